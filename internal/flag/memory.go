package flag

import (
	"context"
	"sync"
)

// MemoryStore keeps flags in process. Single node only.
type MemoryStore struct {
	mu    sync.Mutex
	flags map[string]Severity
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{flags: make(map[string]Severity)}
}

func (m *MemoryStore) Raise(_ context.Context, scope string, severity Severity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if severity > m.flags[scope] {
		m.flags[scope] = severity
	}
	return nil
}

func (m *MemoryStore) Peek(_ context.Context, scope string) (Severity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flags[scope], nil
}

func (m *MemoryStore) ReadAndClear(_ context.Context, scope string) (Severity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current := m.flags[scope]
	delete(m.flags, scope)
	return current, nil
}

var _ Store = (*MemoryStore)(nil)
