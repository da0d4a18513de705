package fsa

import (
	"testing"

	"github.com/jabolina/crmd-core/pkg/logging"
	"github.com/jabolina/crmd-core/pkg/message"
)

type spyTrigger struct {
	armed int
}

func (s *spyTrigger) Arm() { s.armed++ }

func newTestQueue() (*Queue, *spyTrigger) {
	q := NewQueue(logging.NewDiscardLogger())
	trig := &spyTrigger{}
	q.SetTrigger(trig)
	return q, trig
}

func haInput(task string) *HAMessageInput {
	return &HAMessageInput{Msg: message.New(task, message.SysController)}
}

// P1: dequeue order equals insertion order modulo prepends.
func TestRaise_AppendOrder(t *testing.T) {
	q, _ := newTestQueue()
	q.Raise(CauseIPCMessage, InputNull, haInput("a"), ActionElectionCount, false, "t")
	q.Raise(CauseIPCMessage, InputNull, haInput("b"), ActionElectionCount, false, "t")

	first, ok := q.Dequeue()
	if !ok || first.Origin != "t" {
		t.Fatalf("expected an event")
	}
	payload := first.Payload.(*HAMessagePayload)
	if payload.Envelope.Task != "a" {
		t.Fatalf("expected fifo order, got task %s", payload.Envelope.Task)
	}

	second, _ := q.Dequeue()
	if second.Payload.(*HAMessagePayload).Envelope.Task != "b" {
		t.Fatalf("expected second event to be b")
	}
}

// P1: prepended entries form a LIFO segment at the head.
func TestRaise_PrependIsLIFOAtHead(t *testing.T) {
	q, _ := newTestQueue()
	q.Raise(CauseIPCMessage, InputNull, haInput("tail"), ActionElectionCount, false, "t")
	q.Raise(CauseIPCMessage, InputNull, haInput("first-prepend"), ActionElectionCount, true, "t")
	q.Raise(CauseIPCMessage, InputNull, haInput("second-prepend"), ActionElectionCount, true, "t")

	order := []string{}
	for !q.Empty() {
		ev, _ := q.Dequeue()
		order = append(order, ev.Payload.(*HAMessagePayload).Envelope.Task)
	}
	expect := []string{"second-prepend", "first-prepend", "tail"}
	for i := range expect {
		if order[i] != expect[i] {
			t.Fatalf("expected order %v, got %v", expect, order)
		}
	}
}

// P2: after any raise, either the trigger was armed or the input is wait_for_event.
func TestRaise_ArmsTriggerUnlessWaitForEvent(t *testing.T) {
	q, trig := newTestQueue()
	q.Raise(CauseIPCMessage, InputNull, haInput("x"), ActionElectionCount, false, "t")
	if trig.armed != 1 {
		t.Fatalf("expected trigger armed once, got %d", trig.armed)
	}

	q.Raise(CauseFSAInternal, InputWaitForEvent, nil, ActionElectionCheck, false, "t")
	if trig.armed != 1 {
		t.Fatalf("wait_for_event must not arm the trigger, got %d", trig.armed)
	}
}

// Rejects a no-op raise (input=null, actions=0, payload=none).
func TestRaise_RejectsNoOp(t *testing.T) {
	q, trig := newTestQueue()
	id := q.Raise(CauseUnknown, InputNull, nil, ActionNothing, false, "t")
	if id != 0 {
		t.Fatalf("expected rejection to return 0, got %d", id)
	}
	if !q.Empty() {
		t.Fatalf("expected no entry to be enqueued")
	}
	if trig.armed != 0 {
		t.Fatalf("rejected raise must not arm the trigger")
	}
}

// wait_for_event with no payload merges actions into the register and
// enqueues nothing.
func TestRaise_WaitForEventNoPayloadMergesActions(t *testing.T) {
	q, _ := newTestQueue()
	id := q.Raise(CauseFSAInternal, InputWaitForEvent, nil, ActionElectionCount, false, "t")
	if id != 0 {
		t.Fatalf("expected 0 for a register-only wait_for_event raise")
	}
	if q.PendingActions() != ActionElectionCount {
		t.Fatalf("expected actions merged into register")
	}
	if !q.Stalled() {
		t.Fatalf("expected engine to be stalled")
	}
	if !q.Empty() {
		t.Fatalf("expected nothing enqueued")
	}
}

// A non-empty queue forces a wait_for_event raise to append rather
// than prepend (invariant (ii)).
func TestRaise_WaitForEventOnNonEmptyQueueForcesAppend(t *testing.T) {
	q, _ := newTestQueue()
	q.Raise(CauseIPCMessage, InputNull, haInput("head"), ActionElectionCount, false, "t")
	q.Raise(CauseHAMessage, InputWaitForEvent, haInput("stall"), ActionElectionCheck, true, "t")

	first, _ := q.Dequeue()
	if first.Payload.(*HAMessagePayload).Envelope.Task != "head" {
		t.Fatalf("wait_for_event prepend must have been downgraded to append")
	}
}

// Ordering guarantee #2: a later prepend must not precede an already
// queued stall marker.
func TestRaise_PrependNeverPrecedesStallMarker(t *testing.T) {
	q, _ := newTestQueue()
	q.Raise(CauseHAMessage, InputWaitForEvent, haInput("stall"), ActionNothing, false, "t")
	q.Raise(CauseIPCMessage, InputNull, haInput("error"), ActionElectionCount, true, "t")

	first, _ := q.Dequeue()
	if first.Payload.(*HAMessagePayload).Envelope.Task != "stall" {
		t.Fatalf("expected the stall marker to remain at the head, got %v", first.Input)
	}
}

// P3: payload is nil iff PayloadKind is KindNone.
func TestEvent_PayloadKindMatchesNilness(t *testing.T) {
	q, _ := newTestQueue()
	q.Raise(CauseFSAInternal, InputElection, nil, ActionElectionCount, false, "t")
	ev, _ := q.Dequeue()
	if ev.Payload != nil {
		t.Fatalf("expected nil payload")
	}
	if ev.PayloadKind() != KindNone {
		t.Fatalf("expected KindNone")
	}

	q.Raise(CauseIPCMessage, InputNull, haInput("x"), ActionNothing, false, "t")
	ev2, _ := q.Dequeue()
	if ev2.Payload == nil || ev2.PayloadKind() != KindHAMessage {
		t.Fatalf("expected a non-nil ha_message payload")
	}
}

// P4: TypedPayload returns non-nil iff the kind matches.
func TestTypedPayload_MatchReturnsPayload(t *testing.T) {
	q, _ := newTestQueue()
	q.Raise(CauseIPCMessage, InputNull, haInput("x"), ActionNothing, false, "t")
	ev, _ := q.Dequeue()

	p := q.TypedPayload(ev, KindHAMessage, "test")
	if p == nil {
		t.Fatalf("expected payload for matching kind")
	}
}

func TestTypedPayload_NilPayloadReturnsNilWithoutFatal(t *testing.T) {
	q, _ := newTestQueue()
	q.Raise(CauseFSAInternal, InputElection, nil, ActionElectionCount, false, "t")
	ev, _ := q.Dequeue()

	p := q.TypedPayload(ev, KindHAMessage, "test")
	if p != nil {
		t.Fatalf("expected nil for a nil payload")
	}
}

func TestTypedPayload_MismatchIsFatal(t *testing.T) {
	q, _ := newTestQueue()
	q.Raise(CauseIPCMessage, InputNull, haInput("x"), ActionNothing, false, "t")
	ev, _ := q.Dequeue()

	defer func() {
		if recover() == nil {
			t.Fatalf("expected mismatched TypedPayload to be fatal")
		}
	}()
	q.TypedPayload(ev, KindLRMEvent, "test")
}

// Causes that must never carry a payload are fatal.
func TestRaise_DisallowedCauseWithPayloadIsFatal(t *testing.T) {
	q, _ := newTestQueue()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected raising timer_popped with a payload to be fatal")
		}
	}()
	q.Raise(CauseTimerPopped, InputNull, haInput("x"), ActionNothing, false, "t")
}

// RaiseError preserves pending actions as a synthetic prepended event
// before raising the error event itself.
func TestRaiseError_PreservesPendingActions(t *testing.T) {
	q, _ := newTestQueue()
	// Build up a pending-action register via a wait_for_event raise.
	q.Raise(CauseFSAInternal, InputWaitForEvent, nil, ActionElectionCount, false, "t")
	current := &Event{Cause: CauseHAMessage, Input: InputNull, Payload: &HAMessagePayload{Envelope: message.New("vote", message.SysController)}}

	q.RaiseError(CauseFSAInternal, InputElection, current, nil, "raise_error")

	if q.PendingActions() != ActionNothing {
		t.Fatalf("expected pending actions to be cleared")
	}

	// Both the saved-actions event and the error event are raised with
	// prepend=true, in that order, so the error event (raised second)
	// ends up at the head.
	errEvent, ok := q.Dequeue()
	if !ok || errEvent.Input != InputElection {
		t.Fatalf("expected the error event at the head, got %+v", errEvent)
	}

	saved, ok := q.Dequeue()
	if !ok {
		t.Fatalf("expected a saved actions event")
	}
	if saved.Actions != ActionElectionCount || saved.Cause != CauseHAMessage {
		t.Fatalf("expected saved event to carry the pending actions and current cause, got %+v", saved)
	}
}
