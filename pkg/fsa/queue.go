// Package fsa implements the FSA input queue and dispatcher (spec
// component C3): an ordered queue of typed input events, each carrying
// an origin cause, a logical input symbol, optional payload, and a
// bitmask of pending actions.
package fsa

import "github.com/jabolina/crmd-core/pkg/logging"

// Trigger arms the event loop's wakeup mechanism, the Go analogue of
// mainloop_set_trigger. Raise arms it whenever a non-stalling event is
// enqueued (invariant P2).
type Trigger interface {
	Arm()
}

// Queue is the FIFO of FsaEvents plus the process-wide pending-action
// register and stall flag the raise algorithm reads and mutates (spec
// §4.1). Per spec §5 "Scheduling model" it must only be touched from
// the single event-loop thread; it holds no internal synchronization.
type Queue struct {
	entries        []*Event
	counter        uint32
	stalled        bool
	actionRegister ActionMask
	trigger        Trigger
	log            logging.Logger
}

// NewQueue builds an empty queue. A nil logger defaults to a no-op
// logger so Queue remains usable in isolation during tests.
func NewQueue(log logging.Logger) *Queue {
	if log == nil {
		log = logging.NewDiscardLogger()
	}
	return &Queue{log: log}
}

// SetTrigger installs the event-loop wakeup mechanism.
func (q *Queue) SetTrigger(t Trigger) {
	q.trigger = t
}

// Stalled reports whether the engine is currently fenced by a
// wait_for_event input (spec §3 invariant (ii)).
func (q *Queue) Stalled() bool {
	return q.stalled
}

// ClearStall lifts the fence; driven externally by the FSA engine once
// the awaited condition is satisfied (out of scope here, spec §1).
func (q *Queue) ClearStall() {
	q.stalled = false
}

// PendingActions returns the engine's pending-action register.
func (q *Queue) PendingActions() ActionMask {
	return q.actionRegister
}

// Empty reports whether the queue currently holds any entries.
func (q *Queue) Empty() bool {
	return len(q.entries) == 0
}

// Len reports the current queue depth (used by pkg/metrics).
func (q *Queue) Len() int {
	return len(q.entries)
}

// Raise enqueues a new FsaEvent, or folds it into the pending-action
// register and/or stall state per spec §4.1. Returns the assigned
// event id, or 0 if the raise was rejected or consumed as a register
// update rather than an enqueue.
func (q *Queue) Raise(cause Cause, input Input, payload RawPayload, actions ActionMask, prepend bool, origin string) uint32 {
	if origin == "" {
		origin = "<unknown>"
	}

	if input == InputNull && actions == ActionNothing && payload == nil {
		q.log.Errorf("cannot add entry to queue: no input and no action (origin=%s)", origin)
		return 0
	}

	if input == InputWaitForEvent {
		q.stalled = true
		oldLen := len(q.entries)
		q.log.Debugf("stalling the FSA pending further input: source=%s cause=%s queue=%d", origin, cause, oldLen)
		if oldLen > 0 {
			q.dumpQueue()
			prepend = false
		}
		if payload == nil {
			q.actionRegister |= actions
			q.log.Debugf("restored actions %x", actions)
			return 0
		}
		actions |= q.actionRegister
		q.actionRegister = ActionNothing
	}

	var copied Payload
	if payload != nil {
		copied = q.copyPayload(cause, payload, origin)
	}

	ev := &Event{
		Cause:   cause,
		Input:   input,
		Actions: actions,
		Origin:  origin,
		Payload: copied,
	}
	return q.enqueue(ev, prepend)
}

// enqueue assigns the monotonic id, inserts per the prepend/append/
// stall-fence rule, and arms the trigger.
func (q *Queue) enqueue(ev *Event, prepend bool) uint32 {
	q.counter++
	ev.ID = q.counter

	q.insert(ev, prepend)
	q.log.Debugf("%s %s FSA input %d (%s) cause=%s", ev.Origin, sideFor(prepend), ev.ID, ev.Input, ev.Cause)

	if q.trigger != nil && ev.Input != InputWaitForEvent {
		q.trigger.Arm()
	}
	return ev.ID
}

func sideFor(prepend bool) string {
	if prepend {
		return "prepended"
	}
	return "appended"
}

// insert places ev at the tail, or as far toward the head as possible
// without preceding an already-queued wait_for_event marker (ordering
// guarantee #2: prepended entries never jump ahead of a stall marker).
func (q *Queue) insert(ev *Event, prepend bool) {
	if !prepend {
		q.entries = append(q.entries, ev)
		return
	}

	barrier := 0
	for i, existing := range q.entries {
		if existing.Input == InputWaitForEvent {
			barrier = i + 1
			break
		}
	}

	q.entries = append(q.entries[:barrier:barrier],
		append([]*Event{ev}, q.entries[barrier:]...)...)
}

// RaiseLater is Raise with prepend=false; used by the dispatcher and the
// controller to defer processing until the next engine tick (spec §4.1).
func (q *Queue) RaiseLater(cause Cause, input Input, payload RawPayload, actions ActionMask, origin string) uint32 {
	return q.Raise(cause, input, payload, actions, false, origin)
}

// RaiseError preserves any pending actions as a synthetic event
// carrying the current event's cause/payload, then raises the error
// event itself at the head of the queue with no actions attached
// (spec §4.1).
func (q *Queue) RaiseError(cause Cause, input Input, current *Event, newPayload RawPayload, origin string) uint32 {
	if q.actionRegister != ActionNothing {
		actions := q.actionRegister
		q.actionRegister = ActionNothing

		saveCause := cause
		var cloned Payload
		if current != nil {
			saveCause = current.Cause
			if current.Payload != nil {
				cloned = current.Payload.Clone()
			}
		}
		q.log.Infof("resetting the current action list")
		saved := &Event{Cause: saveCause, Input: InputNull, Actions: actions, Origin: origin, Payload: cloned}
		q.enqueue(saved, true)
	}
	return q.Raise(cause, input, newPayload, ActionNothing, true, origin)
}

// Dequeue removes and returns the head of the FIFO, transferring
// ownership of its payload to the caller (spec §4.1 invariant (iv)).
func (q *Queue) Dequeue() (*Event, bool) {
	if len(q.entries) == 0 {
		return nil, false
	}
	ev := q.entries[0]
	q.entries = q.entries[1:]
	q.log.Debugf("processing input %d", ev.ID)
	return ev, true
}

// Free releases the payload according to its kind. With Go's GC there
// is no memory to reclaim; Free exists to preserve the fatal-on-
// unknown-kind check from spec §4.1/§7 ("invariant violation").
func (q *Queue) Free(ev *Event) {
	if ev == nil || ev.Payload == nil {
		return
	}
	switch ev.Payload.Kind() {
	case KindHAMessage, KindXML, KindLRMEvent:
		// nothing to release explicitly; the payload becomes garbage
		// once the event itself is dropped.
	default:
		q.log.Fatalf("don't know how to free %s data from %s", ev.Cause, ev.Origin)
	}
}

// TypedPayload returns the event's payload only if it matches the
// expected kind. A non-nil payload of the wrong kind is an invariant
// violation and is fatal (spec §4.1, §7); a nil payload simply yields
// nil, matching the original's "no message data available" log-and-
// return-null path.
func (q *Queue) TypedPayload(ev *Event, expected PayloadKind, caller string) Payload {
	if ev == nil {
		q.log.Errorf("%s: no FSA data available", caller)
		return nil
	}
	if ev.Payload == nil {
		q.log.Errorf("%s: no message data available. Origin: %s", caller, ev.Origin)
		return nil
	}
	if ev.Payload.Kind() != expected {
		q.log.Fatalf("%s: message data was the wrong type! %s vs. requested=%s. Origin: %s",
			caller, ev.Payload.Kind(), expected, ev.Origin)
		return nil
	}
	return ev.Payload
}

// copyPayload implements the cause-keyed deep-copy dispatch table from
// spec §4.1. Causes that must never carry a payload abort the process
// (invariant violation, exit code "software").
func (q *Queue) copyPayload(cause Cause, payload RawPayload, origin string) Payload {
	if cause.mustNotCarryPayload() {
		q.log.Fatalf("copying %s data (from %s) not yet implemented", cause, origin)
		return nil
	}

	if cause.carriesMessageDocument() {
		in, ok := payload.(*HAMessageInput)
		if !ok || in == nil || in.Msg == nil {
			q.log.Fatalf("bogus %s payload from %s", cause, origin)
			return nil
		}
		return &HAMessagePayload{Envelope: in.Msg.Clone()}
	}

	if cause == CauseLRMOpCallback {
		in, ok := payload.(*LRMEventInput)
		if !ok || in == nil || in.Event == nil {
			q.log.Fatalf("bogus %s payload from %s", cause, origin)
			return nil
		}
		cp := *in.Event
		return &LRMEventPayload{Event: &cp}
	}

	q.log.Fatalf("unknown cause %s raising payload from %s", cause, origin)
	return nil
}

// dumpQueue traces the current queue contents at debug level; mirrors
// fsa_dump_queue, invoked when a wait_for_event raise finds a
// non-empty queue (SPEC_FULL.md §11 "Supplemented features").
func (q *Queue) dumpQueue() {
	for offset, ev := range q.entries {
		q.log.Debugf("queue[%d.%d]: input %s raised by %s (cause=%s)",
			offset, ev.ID, ev.Input, ev.Origin, ev.Cause)
	}
}
