// Package message implements the typed accessor over a structured
// cluster control message (spec component C1).
package message

import (
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Type is the request/response marker carried by every message.
type Type string

const (
	Request  Type = "request"
	Response Type = "response"
)

// Closed set of subsystem addressees recognized by the router and
// dispatcher.
const (
	SysController      = "controller"
	SysDC               = "dc"
	SysDCCIB            = "dc-cib"
	SysCIB              = "cib"
	SysTransitionEngine = "transition_engine"
	SysScheduler        = "scheduler"
	SysLRMD             = "lrmd"
	SysAttributeDaemon  = "attribute_daemon"
	SysStonith          = "stonith"
)

// Message is a read-only structured document. Fields mirror the
// original XML attributes 1:1; Payload holds nested, task-specific
// data.
type Message struct {
	Type      Type
	Task      string
	SysTo     string
	SysFrom   string
	HostTo    string
	HostFrom  string
	Reference string
	JoinID    string
	Version   string
	Payload   map[string]interface{}
}

// New builds a request message addressed to sysTo, defaulting to no
// payload.
func New(task, sysTo string) *Message {
	return &Message{Type: Request, Task: task, SysTo: sysTo}
}

// Get returns a payload field, or ("", false) if absent or not a string.
func (m *Message) Get(key string) (string, bool) {
	if m == nil || m.Payload == nil {
		return "", false
	}
	v, ok := m.Payload[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Set stores a payload field, allocating the payload map if needed.
func (m *Message) Set(key string, value interface{}) {
	if m.Payload == nil {
		m.Payload = make(map[string]interface{})
	}
	m.Payload[key] = value
}

// Clone deep-copies the message via a JSON marshal/unmarshal round
// trip. This is the boundary operation the FSA queue uses to take
// ownership of a borrowed message (spec §4.1, §5 "Ownership").
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		// Marshaling our own struct can only fail on cyclic or
		// unsupported payload values placed there by a caller; that
		// is a programmer error in the caller, not something this
		// layer can recover from silently.
		panic("message: clone of unmarshalable message: " + err.Error())
	}
	clone := &Message{}
	if err := json.Unmarshal(data, clone); err != nil {
		panic("message: clone round-trip failed: " + err.Error())
	}
	return clone
}

// CreateReply builds a response envelope addressed back to the
// request's origin, preserving Reference, and swapping SysTo/SysFrom.
func CreateReply(request *Message, payload map[string]interface{}) *Message {
	reply := &Message{
		Type:      Response,
		Task:      request.Task,
		SysTo:     request.SysFrom,
		SysFrom:   request.SysTo,
		HostTo:    request.HostFrom,
		HostFrom:  request.HostTo,
		Reference: request.Reference,
		Payload:   payload,
	}
	return reply
}
