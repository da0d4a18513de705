package fsa

// State is the FSA macro-state. spec.md's Non-goals exclude the full
// transition table; this is the closed set of state names referenced
// by name elsewhere in the spec (ping replies, shutdown handling).
type State string

const (
	StateIdle       State = "s_idle"
	StateElection   State = "s_election"
	StateIntegrate  State = "s_integration"
	StateFinalize   State = "s_finalize_join"
	StateNotDC      State = "s_not_dc"
	StatePolicyEng  State = "s_policy_engine"
	StateTransition State = "s_transition_engine"
	StateStopping   State = "s_stopping"
	StateTerminate  State = "s_terminate"
	StateHalt       State = "s_halt"
	StateRecovery   State = "s_recovery"
	StatePending    State = "s_pending"
)
