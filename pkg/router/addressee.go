package router

import "strings"

// Addressee is the router's classification of an inbound message's
// sys_to field, computed once per spec.md §9 Design Notes ("Relay
// booleans ... are best replaced by an Addressee enum computed once").
type Addressee int

const (
	AddresseeOther Addressee = iota
	AddresseeDC
	AddresseeDCCIB
	AddresseeTE
	AddresseeCIB
	AddresseeController
)

// subsystemOrder is the closed, ordered set of subsystem names a real
// wire transport would encode as small integer codes. Anything not in
// this list is out of range.
var subsystemOrder = []string{
	"controller", "dc", "dc-cib", "cib", "transition_engine",
	"scheduler", "lrmd", "attribute_daemon", "stonith",
}

// classify maps a sys_to field onto an Addressee, case-insensitively —
// spec.md's message schema treats subsystem names as a closed set but
// does not mandate case sensitivity on the wire.
func classify(sysTo string) Addressee {
	switch strings.ToLower(sysTo) {
	case "dc":
		return AddresseeDC
	case "dc-cib":
		return AddresseeDCCIB
	case "transition_engine":
		return AddresseeTE
	case "cib":
		return AddresseeCIB
	case "controller":
		return AddresseeController
	default:
		return AddresseeOther
	}
}

// subsystemCode maps a sys_to name onto its wire code, substituting the
// controller code for anything out of range. Preserved exactly as the
// original behaves (spec.md §9 Open Questions — "unclear whether this
// is defensive or a historical bug").
func subsystemCode(sysTo string) int {
	lower := strings.ToLower(sysTo)
	for i, name := range subsystemOrder {
		if name == lower {
			return i
		}
	}
	return 0 // controller's index in subsystemOrder
}
