package lock

import (
	"context"
	"sync"
)

// KeyedMutex is an in-process lock table. Entries are created on demand and
// removed once no longer referenced, so the table does not grow with the
// number of users ever seen.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*keyedEntry
}

type keyedEntry struct {
	ch   chan struct{}
	refs int
}

// NewKeyedMutex creates an empty lock table.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{
		entries: make(map[string]*keyedEntry),
	}
}

func (m *KeyedMutex) entry(key string) *keyedEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		entry = &keyedEntry{ch: make(chan struct{}, 1)}
		m.entries[key] = entry
	}

	entry.refs++

	return entry
}

func (m *KeyedMutex) release(key string, entry *keyedEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry.refs--
	if entry.refs == 0 {
		delete(m.entries, key)
	}
}

// Lock blocks until the key is acquired or the context is done.
func (m *KeyedMutex) Lock(ctx context.Context, key string) error {
	entry := m.entry(key)

	select {
	case entry.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		m.release(key, entry)

		return ctx.Err()
	}
}

// TryLock acquires the key without blocking.
func (m *KeyedMutex) TryLock(_ context.Context, key string) (bool, error) {
	entry := m.entry(key)

	select {
	case entry.ch <- struct{}{}:
		return true, nil
	default:
		m.release(key, entry)

		return false, nil
	}
}

// Unlock releases the key.
func (m *KeyedMutex) Unlock(_ context.Context, key string) error {
	m.mu.Lock()
	entry, ok := m.entries[key]
	m.mu.Unlock()

	if !ok {
		return ErrNotHeld
	}

	select {
	case <-entry.ch:
	default:
		return ErrNotHeld
	}

	m.release(key, entry)

	return nil
}
