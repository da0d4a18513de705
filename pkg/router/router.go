// Package router implements the message router (spec component C5):
// classifies an inbound message and decides whether it is dropped,
// relayed locally via IPC, relayed to a cluster peer, or handed back
// for local dispatch.
package router

import (
	"github.com/jabolina/crmd-core/pkg/cluster"
	"github.com/jabolina/crmd-core/pkg/logging"
	"github.com/jabolina/crmd-core/pkg/message"
	"github.com/jabolina/crmd-core/pkg/peercache"
)

const taskHello = "hello"
const taskNodeInfo = "node_info"

// StateProvider exposes the process-wide controller state the router
// needs to classify locality and DC-ness (spec §3 "Process-wide
// controller state").
type StateProvider interface {
	OurUname() string
	OurDC() string
	AmIDC() bool
}

// IPCRelay delivers a message to a locally registered subsystem
// (spec §4.6 send_via_ipc, consumed here only for the "local IPC relay"
// outcome — the full seam lives in pkg/ipc).
type IPCRelay interface {
	SendViaIPC(msg *message.Message, sys string) error
}

// Router implements spec §4.3.
type Router struct {
	log       logging.Logger
	state     StateProvider
	ipc       IPCRelay
	transport cluster.Transport
	peers     peercache.Cache
}

// New builds a Router. A nil logger defaults to a discard logger.
func New(log logging.Logger, state StateProvider, ipc IPCRelay, transport cluster.Transport, peers peercache.Cache) *Router {
	if log == nil {
		log = logging.NewDiscardLogger()
	}
	return &Router{log: log, state: state, ipc: ipc, transport: transport, peers: peers}
}

// Route classifies msg and disposes of it, or returns false to signal
// the dispatcher must continue local processing (spec §4.3).
func (r *Router) Route(msg *message.Message, originatedLocally bool) (processingComplete bool, err error) {
	if msg == nil || (msg.Type != message.Request && msg.Type != message.Response) || msg.SysTo == "" {
		r.log.Warnf("router: dropping malformed message %#v", msg)
		return true, nil
	}
	if msg.Task == taskHello {
		return true, nil
	}

	addressee := classify(msg.SysTo)
	isLocal := r.isLocal(msg, addressee, originatedLocally)

	switch addressee {
	case AddresseeDC, AddresseeDCCIB, AddresseeTE:
		return r.routeDCBound(msg, addressee, originatedLocally), nil
	default:
		if isLocal && (addressee == AddresseeController || addressee == AddresseeCIB) {
			return false, nil
		}
		if isLocal {
			r.relayIPC(msg, msg.SysTo)
			return true, nil
		}
		r.relayPeer(msg)
		return true, nil
	}
}

// isLocal implements spec §4.3 step 3.
func (r *Router) isLocal(msg *message.Message, addressee Addressee, originatedLocally bool) bool {
	if msg.HostTo == "" {
		if addressee == AddresseeDC || addressee == AddresseeTE {
			return false
		}
		if addressee == AddresseeController && originatedLocally && msg.Task != taskNodeInfo {
			return false
		}
		return true
	}
	return msg.HostTo == r.state.OurUname()
}

// routeDCBound implements spec §4.3 step 4's dc/dc-cib/te branch.
func (r *Router) routeDCBound(msg *message.Message, addressee Addressee, originatedLocally bool) bool {
	amIDC := r.state.AmIDC()

	if amIDC && addressee == AddresseeTE {
		r.relayIPC(msg, message.SysTransitionEngine)
		return true
	}
	if amIDC {
		return false
	}
	if originatedLocally && msg.SysFrom != message.SysScheduler && msg.SysFrom != message.SysTransitionEngine {
		r.relayPeer(msg)
		return true
	}
	r.log.Debugf("router: discarding stale scheduler/te output for %s, we are not DC", msg.Task)
	return true
}

func (r *Router) relayIPC(msg *message.Message, sys string) {
	if r.ipc == nil {
		r.log.Errorf("router: no IPC relay configured, dropping message for %s", sys)
		return
	}
	if err := r.ipc.SendViaIPC(msg, sys); err != nil {
		r.log.Errorf("router: failed relaying to %s: %v", sys, err)
	}
}

// relayPeer implements the peer-relay outcome, including the
// out-of-range subsystem code substitution preserved from the original
// (spec.md §9 Open Questions).
func (r *Router) relayPeer(msg *message.Message) {
	if msg.HostTo != "" {
		if !r.peerKnown(msg.HostTo) {
			r.log.Errorf("router: cannot relay to unknown peer %s", msg.HostTo)
			return
		}
	}

	msg.Set("sys_to_code", subsystemCode(msg.SysTo))
	if r.transport == nil {
		r.log.Errorf("router: no cluster transport configured, dropping relay to %s", msg.HostTo)
		return
	}
	if err := r.transport.SendClusterMessage(msg.HostTo, msg); err != nil {
		r.log.Errorf("router: cluster send to %s failed: %v", msg.HostTo, err)
	}
}

func (r *Router) peerKnown(hostTo string) bool {
	if r.peers != nil {
		if _, ok := r.peers.Get(0, hostTo); ok {
			return true
		}
	}
	if r.transport != nil {
		return r.transport.FindPeer(hostTo)
	}
	return false
}
