// Package store provides persistence for client-side state.
//
// The client persists nothing but its session: an opaque token and a
// serialized user identity, each under its own key.
package store

import (
	"context"
	"sync"
)

// KV defines the interface for key/value persistence.
// PutAll and DeleteAll apply all of their keys or none.
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	PutAll(ctx context.Context, entries map[string]string) error
	DeleteAll(ctx context.Context, keys ...string) error

	// Lifecycle
	Close() error
}

// MemoryStore implements KV in process memory. Nothing survives a restart.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get returns the value stored under key.
func (m *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

// PutAll stores all entries.
func (m *MemoryStore) PutAll(ctx context.Context, entries map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range entries {
		m.values[k] = v
	}
	return nil
}

// DeleteAll removes the given keys. Missing keys are ignored.
func (m *MemoryStore) DeleteAll(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}
