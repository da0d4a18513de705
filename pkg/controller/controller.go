// Package controller owns the queue, process-wide registers, and
// collaborators, and drives the single-threaded event loop (spec §5),
// modeled on the teacher's Unity.run/poll/process shape.
package controller

import (
	"sync"

	"github.com/jabolina/crmd-core/internal/attrd"
	"github.com/jabolina/crmd-core/internal/lrm"
	"github.com/jabolina/crmd-core/pkg/cluster"
	"github.com/jabolina/crmd-core/pkg/dispatch"
	"github.com/jabolina/crmd-core/pkg/fsa"
	"github.com/jabolina/crmd-core/pkg/ipc"
	"github.com/jabolina/crmd-core/pkg/logging"
	"github.com/jabolina/crmd-core/pkg/message"
	"github.com/jabolina/crmd-core/pkg/metrics"
	"github.com/jabolina/crmd-core/pkg/peercache"
	"github.com/jabolina/crmd-core/pkg/router"
)

// Controller is the top-level value owning the FSA queue, process-wide
// registers, and every collaborator (spec §9 Design Notes: "encapsulate
// as a single Controller value owning the queue and registers").
type Controller struct {
	log       logging.Logger
	Queue     *fsa.Queue
	Peers     peercache.Cache
	Transport cluster.Transport
	IPC       *ipc.Registry
	Router    *router.Router
	Dispatch  *dispatch.Dispatcher
	Metrics   *metrics.Metrics

	mu          sync.RWMutex
	ourUname    string
	ourDC       string
	amIDC       bool
	fsaState    fsa.State
	register    fsa.Register
	peReference string
	hasQuorum   bool

	wake       chan struct{}
	shutdownCh chan struct{}
	shutdownMu sync.Once
	started    bool
}

// Config bundles the wiring New needs.
type Config struct {
	Log         logging.Logger
	OurUname    string
	ClusterName string
	FeatureSet  string
}

// New wires a Controller with default in-memory/loopback collaborators
// suitable for a single-node run or a test. cmd/controllerd uses this
// wiring as-is; no relt-backed transport or external clients are
// installed.
func New(cfg Config) (*Controller, error) {
	log := cfg.Log
	if log == nil {
		log = logging.NewDiscardLogger()
	}

	peers, err := peercache.NewBuntCache(":memory:")
	if err != nil {
		return nil, err
	}

	c := &Controller{
		log:        log,
		Queue:      fsa.NewQueue(log),
		Peers:      peers,
		Transport:  cluster.NewLoopbackTransport(cfg.OurUname),
		Metrics:    metrics.New(),
		ourUname:   cfg.OurUname,
		fsaState:   fsa.StateIdle,
		wake:       make(chan struct{}, 1),
		shutdownCh: make(chan struct{}),
	}
	c.Queue.SetTrigger(c)

	ipcRegistry := ipc.New(log, nil, nil, c.OurUname)
	c.IPC = ipcRegistry
	c.Router = router.New(log, c, ipcRegistry, c.Transport, peers)
	c.Dispatch = dispatch.New(log, c, c.Queue, peers, attrd.NewMemoryClient(), lrm.NewMemoryClient(), c.Router, c, cfg.FeatureSet)
	return c, nil
}

// Arm implements fsa.Trigger: wakes the event loop without blocking if
// it is already awake (spec §5 "marshalled onto the loop via the
// trigger mechanism").
func (c *Controller) Arm() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// TriggerShutdown implements dispatch.ShutdownTrigger for local_shutdown.
func (c *Controller) TriggerShutdown() {
	c.shutdownMu.Do(func() { close(c.shutdownCh) })
}

// --- dispatch.State / router.StateProvider ---

func (c *Controller) OurUname() string { return c.ourUname }

func (c *Controller) OurDC() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ourDC
}

func (c *Controller) SetOurDC(dc string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ourDC = dc
	c.amIDC = dc == c.ourUname
}

func (c *Controller) AmIDC() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.amIDC
}

func (c *Controller) FSAState() fsa.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fsaState
}

func (c *Controller) SetFSAState(state fsa.State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fsaState = state
}

func (c *Controller) Register() fsa.Register {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.register
}

func (c *Controller) SetRegister(r fsa.Register) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.register = r
}

func (c *Controller) PEReference() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.peReference
}

func (c *Controller) SetPEReference(ref string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.peReference = ref
}

func (c *Controller) HasQuorum() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hasQuorum
}

func (c *Controller) SetHasQuorum(q bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hasQuorum = q
}

// --- event loop ---

// Run drives the controller until TriggerShutdown is called or the
// transport's channel closes. Mirrors the teacher's Unity.run/poll.
func (c *Controller) Run() {
	for {
		select {
		case <-c.shutdownCh:
			return
		default:
		}
		if !c.started {
			c.started = true
			c.poll()
		}
	}
}

func (c *Controller) poll() {
	defer c.log.Infof("controller: shutdown process %s", c.ourUname)
	for {
		select {
		case <-c.shutdownCh:
			return
		case msg, ok := <-c.Transport.Listen():
			if !ok {
				// The transport will never produce again; treat this
				// the same as an explicit shutdown so Run does not
				// spin once poll returns (spec §5 event loop).
				c.TriggerShutdown()
				return
			}
			c.Ingest(msg, false)
		case <-c.wake:
			c.drain()
		}
	}
}

// Ingest feeds an inbound message through the router and, if local
// processing is required, the dispatcher (spec §2 "Control flow").
func (c *Controller) Ingest(msg *message.Message, originatedLocally bool) {
	complete, err := c.Router.Route(msg, originatedLocally)
	if err != nil {
		c.log.Errorf("controller: routing error: %v", err)
	}
	if c.Metrics != nil {
		if complete {
			c.Metrics.ObserveRelay("complete")
		} else {
			c.Metrics.ObserveRelay("local")
		}
	}
	if complete {
		return
	}
	c.dispatchLocal(msg, originatedLocally)
}

func (c *Controller) dispatchLocal(msg *message.Message, originatedLocally bool) {
	cause := fsa.CauseHAMessage
	if originatedLocally {
		cause = fsa.CauseIPCMessage
	}

	input, err := c.Dispatch.Handle(msg, cause)
	if err != nil {
		c.log.Errorf("controller: dispatch error for task %s: %v", msg.Task, err)
	}
	if c.Metrics != nil {
		c.Metrics.ObserveDispatch(msg.Task)
	}

	switch input {
	case fsa.InputNull:
		return
	case fsa.InputRouter:
		c.Ingest(msg, true)
	default:
		c.Queue.RaiseLater(fsa.CauseFSAInternal, input, nil, fsa.ActionNothing, "dispatch result")
	}
}

// drain pops every ready FSA event. The real transition table that
// would consume these is out of scope (spec.md Non-goals); this exists
// so the queue does not grow unbounded and so the trace log fires.
func (c *Controller) drain() {
	for {
		ev, ok := c.Queue.Dequeue()
		if !ok {
			return
		}
		c.log.Debugf("controller: fsa event %d (cause=%s input=%s) ready for the transition table", ev.ID, ev.Cause, ev.Input)
		if c.Metrics != nil {
			c.Metrics.SetQueueDepth(c.Queue.Len())
		}
	}
}
