// Package lrm defines the Local Resource Manager client seam (spec.md
// §6 "Transition engine & LRM (consumed)", `do_lrm_invoke`) plus an
// in-memory default implementation.
package lrm

import (
	"sync"

	"github.com/jabolina/crmd-core/pkg/fsa"
)

// Client is the LRM seam. The dispatcher calls ClearLastFailure for
// clear_failcount; re-routed lrm_delete/lrm_fail/lrm_refresh/reprobe
// tasks go back through the router rather than through this client.
type Client interface {
	ClearLastFailure(resource, target, op string, intervalMS uint) error
	DoInvoke(actions fsa.ActionMask, cause fsa.Cause, state fsa.State, input fsa.Input, event *fsa.Event) error
}

type clearedFailure struct {
	resource, target, op string
	intervalMS            uint
}

// MemoryClient is an in-memory Client recording the calls made to it.
type MemoryClient struct {
	mu       sync.Mutex
	cleared  []clearedFailure
	invoked  int
}

// NewMemoryClient builds an empty in-memory LRM client.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{}
}

func (m *MemoryClient) ClearLastFailure(resource, target, op string, intervalMS uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleared = append(m.cleared, clearedFailure{resource, target, op, intervalMS})
	return nil
}

func (m *MemoryClient) DoInvoke(actions fsa.ActionMask, cause fsa.Cause, state fsa.State, input fsa.Input, event *fsa.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invoked++
	return nil
}

// ClearedCount returns how many times ClearLastFailure was invoked.
func (m *MemoryClient) ClearedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.cleared)
}

// InvokedCount returns how many times DoInvoke was invoked.
func (m *MemoryClient) InvokedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.invoked
}
