package fsa

// Register is the process-wide input-register bitset referenced by
// spec §3 ("input_register (bitset incl. R_SHUTDOWN, R_STAYDOWN)").
type Register uint64

const (
	RegisterNone Register = 0
	RShutdown    Register = 1 << 0
	RStaydown    Register = 1 << 1
)

func (r Register) Has(flag Register) bool { return r&flag != 0 }
func (r Register) Set(flag Register) Register   { return r | flag }
func (r Register) Clear(flag Register) Register { return r &^ flag }
