package store

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore keeps values in process memory
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string]json.RawMessage
	closed bool
	notifier
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]json.RawMessage)}
}

// Get returns the stored values for keys
func (m *MemoryStore) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}
	return pick(m.data, keys), nil
}

// Set writes values and notifies listeners
func (m *MemoryStore) Set(ctx context.Context, values map[string]any) error {
	encoded, keys, err := encodeValues(values)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	for _, k := range keys {
		m.data[k] = encoded[k]
	}
	m.mu.Unlock()

	m.publish(encoded, keys)
	return nil
}

// Subscribe registers a change listener
func (m *MemoryStore) Subscribe(fn Listener) func() {
	return m.subscribe(fn)
}

// Close marks the store closed
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
