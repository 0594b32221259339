package kv

import (
	"context"
	"sync"

	"clubsite/internal/apperr"
)

// MemoryTransport keeps values in process memory. Used for local
// development (STORE_DRIVER=memory) and tests.
type MemoryTransport struct {
	mu   sync.Mutex
	data map[string]string

	// FailReads and FailWrites simulate an unreachable backend.
	FailReads  bool
	FailWrites bool

	gets, sets int
}

func NewMemoryTransport() *MemoryTransport {
	return &MemoryTransport{data: make(map[string]string)}
}

func (m *MemoryTransport) Name() string { return "memory" }

func (m *MemoryTransport) Get(_ context.Context, key string) ReadOutcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.FailReads {
		return Failure(503, "memory transport unavailable", nil)
	}
	v, ok := m.data[key]
	if !ok {
		return Absent()
	}
	return Found(v)
}

func (m *MemoryTransport) Set(_ context.Context, key, raw string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	if key == "" {
		return apperr.Invalid("key", "must not be empty")
	}
	if m.FailWrites {
		return &apperr.TransportError{Op: "set", Key: key, Status: 503, Body: "memory transport unavailable"}
	}
	m.data[key] = raw
	return nil
}

// Raw returns the stored value for key without going through Get.
func (m *MemoryTransport) Raw(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

// Put stores raw directly, bypassing failure simulation.
func (m *MemoryTransport) Put(key, raw string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = raw
}

// Calls reports how many Get and Set calls were made.
func (m *MemoryTransport) Calls() (gets, sets int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gets, m.sets
}
