// Package ipc implements outbound IPC delivery (spec component C7,
// §4.6 send_via_ipc): given a message and an addressee, dispatches to a
// registered client, injects into the transition engine, invokes the
// LRM synchronously, forwards through a proxy, or drops with a log.
package ipc

import (
	"sync"

	"github.com/jabolina/crmd-core/pkg/fsa"
	"github.com/jabolina/crmd-core/pkg/logging"
	"github.com/jabolina/crmd-core/pkg/message"
)

// ClientSender delivers a message to one registered IPC client as a
// server event.
type ClientSender interface {
	Send(msg *message.Message) error
}

// ProxySender forwards a message through a registered proxy session.
type ProxySender interface {
	Forward(msg *message.Message) error
}

// TEInjector injects a message directly into the in-process transition
// engine (spec.md §6 "process_te_message").
type TEInjector interface {
	InjectTE(msg *message.Message) error
}

// LRMInvoker synchronously invokes the LRM action handler for a
// synthesized message-cause event (spec.md §6 "do_lrm_invoke").
type LRMInvoker interface {
	InvokeLRM(ev *fsa.Event) error
}

// Registry owns the registered IPC clients and proxy sessions and
// implements router.IPCRelay / Dispatcher's outbound-IPC seam.
type Registry struct {
	log      logging.Logger
	mu       sync.RWMutex
	clients  map[string]ClientSender
	proxies  map[string]ProxySender
	te       TEInjector
	lrm      LRMInvoker
	ourUname func() string
}

// New builds an empty Registry. ourUname supplies the local node name
// used to stamp host_from when absent (spec §4.6).
func New(log logging.Logger, te TEInjector, lrm LRMInvoker, ourUname func() string) *Registry {
	if log == nil {
		log = logging.NewDiscardLogger()
	}
	return &Registry{
		log:      log,
		clients:  make(map[string]ClientSender),
		proxies:  make(map[string]ProxySender),
		te:       te,
		lrm:      lrm,
		ourUname: ourUname,
	}
}

// RegisterClient adds/replaces a registered IPC client by id.
func (r *Registry) RegisterClient(id string, client ClientSender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[id] = client
}

// UnregisterClient removes a registered IPC client.
func (r *Registry) UnregisterClient(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, id)
}

// RegisterProxy adds/replaces a registered proxy session by id.
func (r *Registry) RegisterProxy(id string, proxy ProxySender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.proxies[id] = proxy
}

// SendViaIPC implements spec §4.6.
func (r *Registry) SendViaIPC(msg *message.Message, sys string) error {
	if msg.HostFrom == "" && r.ourUname != nil {
		msg.HostFrom = r.ourUname()
	}

	r.mu.RLock()
	client, isClient := r.clients[sys]
	proxy, isProxy := r.proxies[sys]
	r.mu.RUnlock()

	switch {
	case isClient:
		return client.Send(msg)
	case sys == message.SysTransitionEngine:
		if r.te == nil {
			r.log.Errorf("ipc: no transition engine injector configured, dropping %s", msg.Task)
			return nil
		}
		return r.te.InjectTE(msg)
	case sys == message.SysLRMD:
		return r.invokeLRM(msg)
	case isProxy:
		return proxy.Forward(msg)
	default:
		r.log.Errorf("ipc: no route for addressee %s, dropping %s", sys, msg.Task)
		return nil
	}
}

func (r *Registry) invokeLRM(msg *message.Message) error {
	if r.lrm == nil {
		r.log.Errorf("ipc: no lrm invoker configured, dropping %s", msg.Task)
		return nil
	}
	ev := &fsa.Event{
		Cause:   fsa.CauseIPCMessage,
		Input:   fsa.InputMessage,
		Payload: &fsa.HAMessagePayload{Envelope: msg.Clone()},
		Origin:  "send_via_ipc",
	}
	return r.lrm.InvokeLRM(ev)
}
