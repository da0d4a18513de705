package fsa

// Cause identifies the call site class that raised an FsaEvent. The
// queue's payload deep-copy strategy is keyed off Cause (spec §3, §4.1).
type Cause string

const (
	CauseFSAInternal     Cause = "fsa_internal"
	CauseStatusCallback  Cause = "status_callback"
	CauseIPCMessage      Cause = "ipc_message"
	CauseHAMessage       Cause = "ha_message"
	CauseLRMOpCallback   Cause = "lrm_op_callback"
	CauseTimerPopped     Cause = "timer_popped"
	CauseShutdown        Cause = "shutdown"
	CauseStartup         Cause = "startup"
	CauseUnknown         Cause = "unknown"
)

// carriesMessageDocument returns true for causes whose raw payload is
// an *ha_message*-shaped document that must be deep-copied on raise.
func (c Cause) carriesMessageDocument() bool {
	switch c {
	case CauseFSAInternal, CauseStatusCallback, CauseIPCMessage, CauseHAMessage:
		return true
	default:
		return false
	}
}

// mustNotCarryPayload returns true for causes that spec §4.1 declares
// fatal if raised with a non-nil payload.
func (c Cause) mustNotCarryPayload() bool {
	switch c {
	case CauseTimerPopped, CauseShutdown, CauseStartup, CauseUnknown:
		return true
	default:
		return false
	}
}
