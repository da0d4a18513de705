package fsa

import "github.com/jabolina/crmd-core/pkg/message"

// PayloadKind discriminates the sum type an FsaEvent's payload holds
// (spec §3, §4.1 "Rationale"). It is the Go rendition of the C
// `enum fsa_data_type` tag on a `void*`.
type PayloadKind int

const (
	KindNone PayloadKind = iota
	KindHAMessage
	KindXML
	KindLRMEvent
)

func (k PayloadKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindHAMessage:
		return "ha_message"
	case KindXML:
		return "xml"
	case KindLRMEvent:
		return "lrm_event"
	default:
		return "unknown"
	}
}

// Payload is implemented by every concrete event payload. Kind is used
// for the queue's fatal-on-mismatch checks; Clone supports raise_error's
// "re-raise the current event's payload" path without re-deriving it
// from a raw source.
type Payload interface {
	Kind() PayloadKind
	Clone() Payload
}

// HAMessagePayload owns a deep copy of a routed/IPC/status-callback
// message. This is the Go analogue of ha_msg_input_t.
type HAMessagePayload struct {
	Envelope *message.Message
}

func (h *HAMessagePayload) Kind() PayloadKind { return KindHAMessage }
func (h *HAMessagePayload) Clone() Payload {
	if h == nil {
		return nil
	}
	return &HAMessagePayload{Envelope: h.Envelope.Clone()}
}

// XMLPayload owns a bare structured document, independent of any
// envelope. Rarely raised directly in this repository's dispatch
// flows, but is a valid closed-set member per spec §3.
type XMLPayload struct {
	Document map[string]interface{}
}

func (x *XMLPayload) Kind() PayloadKind { return KindXML }
func (x *XMLPayload) Clone() Payload {
	if x == nil {
		return nil
	}
	cp := make(map[string]interface{}, len(x.Document))
	for k, v := range x.Document {
		cp[k] = v
	}
	return &XMLPayload{Document: cp}
}

// LRMEvent is a minimal stand-in for the real executor event record
// (lrmd_event_data_t); the LRM body itself is out of scope (spec §1).
type LRMEvent struct {
	ResourceID string
	Operation  string
	ExitStatus int
	ExecTimeMS int64
}

// LRMEventPayload owns a deep copy of an executor event record.
type LRMEventPayload struct {
	Event *LRMEvent
}

func (l *LRMEventPayload) Kind() PayloadKind { return KindLRMEvent }
func (l *LRMEventPayload) Clone() Payload {
	if l == nil || l.Event == nil {
		return &LRMEventPayload{}
	}
	cp := *l.Event
	return &LRMEventPayload{Event: &cp}
}

// RawPayload is the not-yet-copied source handed to Raise. The queue
// copies it into an owned Payload according to Cause (spec §4.1).
type RawPayload interface{}

// HAMessageInput wraps a borrowed message for Raise calls whose cause
// carries a message document (fsa_internal/status_callback/
// ipc_message/ha_message).
type HAMessageInput struct {
	Msg *message.Message
}

// LRMEventInput wraps a borrowed executor event for Raise calls whose
// cause is lrm_op_callback.
type LRMEventInput struct {
	Event *LRMEvent
}
