package dispatch

import "github.com/jabolina/crmd-core/pkg/fsa"

// State is the process-wide controller state the dispatcher reads and
// mutates (spec §3 "Process-wide controller state", §4.4).
type State interface {
	OurUname() string
	OurDC() string
	AmIDC() bool
	FSAState() fsa.State
	Register() fsa.Register
	SetRegister(fsa.Register)
	PEReference() string
	SetPEReference(string)
	HasQuorum() bool
}
