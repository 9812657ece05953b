package db

import (
	"context"
	"sync"
)

// MemoryDB keeps tokens for the life of the process only.
type MemoryDB struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryDB() *MemoryDB {
	return &MemoryDB{values: make(map[string]string)}
}

func (m *MemoryDB) Get(_ context.Context, name string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[name]
	return v, ok, nil
}

func (m *MemoryDB) Set(_ context.Context, values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range values {
		m.values[k] = v
	}
	return nil
}

func (m *MemoryDB) Delete(_ context.Context, names ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range names {
		delete(m.values, n)
	}
	return nil
}

func (m *MemoryDB) Close() error { return nil }
