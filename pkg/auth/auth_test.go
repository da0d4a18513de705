package auth

import (
	"testing"

	"github.com/jabolina/crmd-core/pkg/message"
)

type fakeClient struct {
	name          string
	disconnected  bool
}

func (f *fakeClient) SetName(name string) { f.name = name }
func (f *fakeClient) Disconnect()         { f.disconnected = true }

type fakeTrigger struct{ armed int }

func (f *fakeTrigger) Arm() { f.armed++ }

func helloMsg(name, major, minor string) *message.Message {
	m := message.New(taskHello, message.SysController)
	m.Set(fieldClientName, name)
	m.Set(fieldMajorVersion, major)
	m.Set(fieldMinorVersion, minor)
	return m
}

func TestAuthorize_NoIdentityRejected(t *testing.T) {
	a := New(nil, nil)
	if a.Authorize(helloMsg("c", "3", "10"), nil, "") {
		t.Fatalf("expected rejection without a client handle or proxy session")
	}
}

func TestAuthorize_NonHelloTaskPassesThrough(t *testing.T) {
	a := New(nil, nil)
	client := &fakeClient{}
	m := message.New("ping", message.SysController)
	if !a.Authorize(m, client, "") {
		t.Fatalf("expected non-hello task from an identified caller to pass through")
	}
}

func TestAuthorize_ValidHelloArmsTriggerAndReturnsFalse(t *testing.T) {
	trig := &fakeTrigger{}
	a := New(nil, trig)
	client := &fakeClient{}

	ok := a.Authorize(helloMsg("crmd", "3", "10"), client, "")
	if ok {
		t.Fatalf("expected hello itself never to be forwarded to the dispatcher")
	}
	if client.name != "crmd" {
		t.Fatalf("expected client name to be stored, got %q", client.name)
	}
	if client.disconnected {
		t.Fatalf("expected client to remain connected on success")
	}
	if trig.armed != 1 {
		t.Fatalf("expected trigger armed once, got %d", trig.armed)
	}
}

func TestAuthorize_MalformedHelloDisconnects(t *testing.T) {
	a := New(nil, nil)
	client := &fakeClient{}

	m := message.New(taskHello, message.SysController)
	m.Set(fieldClientName, "")

	if a.Authorize(m, client, "") {
		t.Fatalf("expected malformed hello to return false")
	}
	if !client.disconnected {
		t.Fatalf("expected client to be disconnected on malformed hello")
	}
}

func TestAuthorize_NonNumericVersionDisconnects(t *testing.T) {
	a := New(nil, nil)
	client := &fakeClient{}

	ok := a.Authorize(helloMsg("crmd", "not-a-number", "10"), client, "")
	if ok {
		t.Fatalf("expected false for non-numeric version")
	}
	if !client.disconnected {
		t.Fatalf("expected disconnect for non-numeric version")
	}
}

func TestAuthorize_ProxySessionWithoutClientSucceeds(t *testing.T) {
	a := New(nil, nil)
	ok := a.Authorize(helloMsg("crmd", "3", "10"), nil, "proxy-1")
	if ok {
		t.Fatalf("expected hello to still return false with only a proxy session")
	}
}
