// Package cib defines the Cluster Information Base client seam
// (spec.md §6 "CIB client (consumed)") plus an in-memory default
// implementation so the dispatcher compiles and is testable without a
// running cluster stack.
package cib

import "sync"

// Status mirrors the cib_status enum spec.md references; only StatusOK
// is success, StatusNotExists is surfaced to the caller unchanged.
type Status int

const (
	StatusOK Status = iota
	StatusNotExists
	StatusError
)

// Client is the synchronous CIB seam the dispatcher depends on.
type Client interface {
	SignOn(systemName string, synchronous bool) Status
	QueryNodeUUID(uname string) (string, Status)
	ReadAttribute(node, name string) (string, Status)
	UpdateAttribute(node, name, value string) Status
	DeleteAttribute(node, name string) Status
}

// MemoryClient is an in-memory Client for tests and for running without
// a live CIB. Attributes are namespaced by node.
type MemoryClient struct {
	mu         sync.Mutex
	uuids      map[string]string
	attributes map[string]map[string]string
	signedOn   bool
}

// NewMemoryClient builds an empty in-memory CIB client.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		uuids:      make(map[string]string),
		attributes: make(map[string]map[string]string),
	}
}

// SetUUID seeds a node's uuid for QueryNodeUUID, used by test setup.
func (m *MemoryClient) SetUUID(uname, uuid string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uuids[uname] = uuid
}

func (m *MemoryClient) SignOn(systemName string, synchronous bool) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signedOn = true
	return StatusOK
}

func (m *MemoryClient) QueryNodeUUID(uname string) (string, Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	uuid, ok := m.uuids[uname]
	if !ok {
		return "", StatusNotExists
	}
	return uuid, StatusOK
}

func (m *MemoryClient) ReadAttribute(node, name string) (string, Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	attrs, ok := m.attributes[node]
	if !ok {
		return "", StatusNotExists
	}
	value, ok := attrs[name]
	if !ok {
		return "", StatusNotExists
	}
	return value, StatusOK
}

func (m *MemoryClient) UpdateAttribute(node, name, value string) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	attrs, ok := m.attributes[node]
	if !ok {
		attrs = make(map[string]string)
		m.attributes[node] = attrs
	}
	attrs[name] = value
	return StatusOK
}

func (m *MemoryClient) DeleteAttribute(node, name string) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	attrs, ok := m.attributes[node]
	if !ok {
		return StatusNotExists
	}
	if _, ok := attrs[name]; !ok {
		return StatusNotExists
	}
	delete(attrs, name)
	return StatusOK
}
