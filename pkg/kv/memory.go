package kv

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Memory is an in-process key-value database.
// Suitable for tests and single-process development setups; contents are
// lost when the process exits.
//
// Values are stored as given, without serialization. Maps, slices and
// pointers inside V stay shared with the caller, so callers that mutate
// them after Set or Get must copy first.
type Memory[V any] struct {
	items  map[string]V
	mu     sync.RWMutex
	closed bool
}

// NewMemory creates an empty in-memory database.
func NewMemory[V any]() *Memory[V] {
	return &Memory[V]{items: make(map[string]V)}
}

// Get retrieves a value by key.
// Returns ErrNotFound if the key does not exist.
func (m *Memory[V]) Get(_ context.Context, key string) (V, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		var zero V
		return zero, ErrClosed
	}

	v, ok := m.items[key]
	if !ok {
		var zero V
		return zero, ErrNotFound
	}
	return v, nil
}

// Set stores a value under key.
func (m *Memory[V]) Set(_ context.Context, key string, value V) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	m.items[key] = value
	return nil
}

// Remove deletes a key.
func (m *Memory[V]) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	delete(m.items, key)
	return nil
}

// Keys returns the sorted keys that start with prefix.
func (m *Memory[V]) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}

	keys := make([]string, 0, len(m.items))
	for k := range m.items {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Len returns the number of stored keys.
func (m *Memory[V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Close drops all entries and makes further operations return ErrClosed.
// Close is idempotent.
func (m *Memory[V]) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.items = make(map[string]V)
	return nil
}

var (
	_ DB[any] = (*Memory[any])(nil)
	_ Lister  = (*Memory[any])(nil)
)
