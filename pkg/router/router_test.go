package router

import (
	"testing"

	"github.com/jabolina/crmd-core/pkg/cluster"
	"github.com/jabolina/crmd-core/pkg/message"
	"github.com/jabolina/crmd-core/pkg/peercache"
)

type fakeState struct {
	uname string
	dc    string
	amIDC bool
}

func (f *fakeState) OurUname() string { return f.uname }
func (f *fakeState) OurDC() string    { return f.dc }
func (f *fakeState) AmIDC() bool      { return f.amIDC }

type fakeIPC struct {
	sent []string
}

func (f *fakeIPC) SendViaIPC(msg *message.Message, sys string) error {
	f.sent = append(f.sent, sys)
	return nil
}

type fakeTransport struct {
	sent  []string
	peers map[string]bool
}

func newFakeTransport() *fakeTransport { return &fakeTransport{peers: map[string]bool{}} }

func (f *fakeTransport) SendClusterMessage(hostTo string, msg *message.Message) error {
	f.sent = append(f.sent, hostTo)
	return nil
}
func (f *fakeTransport) FindPeer(uname string) bool       { return f.peers[uname] }
func (f *fakeTransport) Listen() <-chan *message.Message  { return nil }
func (f *fakeTransport) Close() error                     { return nil }

var _ cluster.Transport = (*fakeTransport)(nil)

func TestRoute_DropsMalformed(t *testing.T) {
	r := New(nil, &fakeState{uname: "n1"}, &fakeIPC{}, newFakeTransport(), nil)
	complete, err := r.Route(&message.Message{Type: message.Request, SysTo: ""}, true)
	if err != nil || !complete {
		t.Fatalf("expected malformed message dropped, complete=%v err=%v", complete, err)
	}
}

func TestRoute_SwallowsHello(t *testing.T) {
	r := New(nil, &fakeState{uname: "n1"}, &fakeIPC{}, newFakeTransport(), nil)
	m := message.New(taskHello, message.SysController)
	complete, _ := r.Route(m, true)
	if !complete {
		t.Fatalf("expected hello swallowed")
	}
}

// S2: relay to peer from a non-DC node.
func TestRoute_RelaysJoinRequestToDCPeer(t *testing.T) {
	transport := newFakeTransport()
	transport.peers["n2"] = true
	r := New(nil, &fakeState{uname: "n1", dc: "n2", amIDC: false}, &fakeIPC{}, transport, nil)

	m := message.New("join_request", message.SysDC)
	m.HostTo = "n2"
	complete, err := r.Route(m, true)
	if err != nil || !complete {
		t.Fatalf("expected relay to complete routing, complete=%v err=%v", complete, err)
	}
	if len(transport.sent) != 1 || transport.sent[0] != "n2" {
		t.Fatalf("expected one peer send to n2, got %v", transport.sent)
	}
}

func TestRoute_DCHandsBackToDispatcher(t *testing.T) {
	r := New(nil, &fakeState{uname: "n1", amIDC: true}, &fakeIPC{}, newFakeTransport(), nil)
	m := message.New("join_request", message.SysDC)
	complete, _ := r.Route(m, true)
	if complete {
		t.Fatalf("expected DC to hand dc-addressed message back to dispatcher")
	}
}

func TestRoute_DCRelaysTEMessageLocally(t *testing.T) {
	ipc := &fakeIPC{}
	r := New(nil, &fakeState{uname: "n1", amIDC: true}, ipc, newFakeTransport(), nil)
	m := message.New("transition", message.SysTransitionEngine)
	complete, _ := r.Route(m, true)
	if !complete {
		t.Fatalf("expected te relay to complete")
	}
	if len(ipc.sent) != 1 || ipc.sent[0] != message.SysTransitionEngine {
		t.Fatalf("expected one ipc relay to transition_engine, got %v", ipc.sent)
	}
}

func TestRoute_NonDCDiscardsStaleSchedulerOutput(t *testing.T) {
	transport := newFakeTransport()
	r := New(nil, &fakeState{uname: "n1", amIDC: false}, &fakeIPC{}, transport, nil)
	m := message.New("pe_calc", message.SysDC)
	m.SysFrom = message.SysScheduler
	complete, _ := r.Route(m, true)
	if !complete {
		t.Fatalf("expected discard to complete routing")
	}
	if len(transport.sent) != 0 {
		t.Fatalf("expected no peer send for stale scheduler output, got %v", transport.sent)
	}
}

func TestRoute_LocalControllerHandsBackToDispatcher(t *testing.T) {
	r := New(nil, &fakeState{uname: "n1"}, &fakeIPC{}, newFakeTransport(), nil)
	m := message.New("ping", message.SysController)
	m.HostTo = "n1"
	complete, _ := r.Route(m, true)
	if complete {
		t.Fatalf("expected local controller message handed back to dispatcher")
	}
}

// A controller-addressed request with no host_to and originated locally
// is treated as not-local (is_local = !originated_locally), matching
// the original: such a request is meant to go out to the whole cluster,
// not be answered by the submitting node itself.
func TestRoute_ControllerBroadcastWithNoHostToIsExternal(t *testing.T) {
	transport := newFakeTransport()
	r := New(nil, &fakeState{uname: "n1"}, &fakeIPC{}, transport, nil)
	m := message.New("ping", message.SysController)
	complete, _ := r.Route(m, true)
	if !complete {
		t.Fatalf("expected external broadcast path to complete routing")
	}
	if len(transport.sent) != 1 || transport.sent[0] != "" {
		t.Fatalf("expected a broadcast cluster send, got %v", transport.sent)
	}
}

// The same message arriving from a peer (not originated locally) is
// treated as local, since is_local = !originated_locally.
func TestRoute_ControllerMessageFromPeerIsLocal(t *testing.T) {
	r := New(nil, &fakeState{uname: "n1"}, &fakeIPC{}, newFakeTransport(), nil)
	m := message.New("ping", message.SysController)
	complete, _ := r.Route(m, false)
	if complete {
		t.Fatalf("expected peer-originated controller message handed back to dispatcher")
	}
}

func TestRoute_NodeInfoIsAlwaysLocal(t *testing.T) {
	ipc := &fakeIPC{}
	r := New(nil, &fakeState{uname: "n1"}, ipc, newFakeTransport(), nil)
	m := message.New(taskNodeInfo, message.SysController)
	complete, _ := r.Route(m, true)
	if complete {
		t.Fatalf("expected node_info to be handed back for local processing, not relayed")
	}
}

func TestRoute_LocalNonControllerRelaysIPC(t *testing.T) {
	ipc := &fakeIPC{}
	r := New(nil, &fakeState{uname: "n1"}, ipc, newFakeTransport(), nil)
	m := message.New("lrm_delete", message.SysLRMD)
	m.HostTo = "n1"
	complete, _ := r.Route(m, true)
	if !complete {
		t.Fatalf("expected ipc relay to complete routing")
	}
	if len(ipc.sent) != 1 || ipc.sent[0] != message.SysLRMD {
		t.Fatalf("expected relay to lrmd, got %v", ipc.sent)
	}
}

func TestRoute_UnknownPeerIsDroppedWithLog(t *testing.T) {
	transport := newFakeTransport()
	r := New(nil, &fakeState{uname: "n1"}, &fakeIPC{}, transport, nil)
	m := message.New("ping", message.SysCIB)
	m.HostTo = "ghost"
	complete, err := r.Route(m, true)
	if err != nil || !complete {
		t.Fatalf("expected drop to complete routing without error")
	}
	if len(transport.sent) != 0 {
		t.Fatalf("expected no send for an unknown peer, got %v", transport.sent)
	}
}

// R1: deep-copying and routing the copy yields the same classification.
func TestRoute_CloneYieldsSameClassification(t *testing.T) {
	transport := newFakeTransport()
	transport.peers["n2"] = true
	r := New(nil, &fakeState{uname: "n1", dc: "n2"}, &fakeIPC{}, transport, nil)

	m := message.New("join_request", message.SysDC)
	m.HostTo = "n2"
	clone := m.Clone()

	c1, _ := r.Route(m, true)
	c2, _ := r.Route(clone, true)
	if c1 != c2 {
		t.Fatalf("expected clone to classify identically, got %v vs %v", c1, c2)
	}
}

// R2: rewriting sys_to := lrmd and re-entering the router relays
// locally when we own that subsystem.
func TestRoute_RewrittenLRMDTaskRelaysLocally(t *testing.T) {
	ipc := &fakeIPC{}
	r := New(nil, &fakeState{uname: "n1"}, ipc, newFakeTransport(), nil)

	m := message.New("lrm_fail", message.SysLRMD)
	m.HostTo = "n1"
	complete, _ := r.Route(m, true)
	if !complete || len(ipc.sent) != 1 || ipc.sent[0] != message.SysLRMD {
		t.Fatalf("expected local relay to lrmd, got complete=%v sent=%v", complete, ipc.sent)
	}
}

func TestSubsystemCode_OutOfRangeFallsBackToController(t *testing.T) {
	if got := subsystemCode("nonexistent"); got != 0 {
		t.Fatalf("expected fallback to controller's code 0, got %d", got)
	}
	if got := subsystemCode("lrmd"); got == 0 {
		t.Fatalf("expected lrmd to have a non-controller code")
	}
}

var _ peercache.Cache = (*peercache.BuntCache)(nil)
