package journal

import (
	"slices"
	"sync"
)

// MemoryStore is an in-memory journal for tests. Entries are lost when the
// process exits.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []*Entry
	seq     int64
	closed  bool
}

// NewMemoryStore creates an empty in-memory journal.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append implements Store.
func (m *MemoryStore) Append(entry *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	entry.prepare()
	m.seq++
	entry.Sequence = m.seq

	stored := *entry
	stored.Event = slices.Clone(entry.Event)
	m.entries = append(m.entries, &stored)
	return nil
}

// Get implements Store.
func (m *MemoryStore) Get(id string) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	for _, e := range m.entries {
		if e.ID == id {
			return copyEntry(e), nil
		}
	}
	return nil, ErrNotFound
}

// List implements Store.
func (m *MemoryStore) List(flow string, limit int) ([]*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	out := []*Entry{}
	for _, e := range m.entries {
		if flow != "" && e.Flow != flow {
			continue
		}
		out = append(out, copyEntry(e))
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	m.entries = slices.DeleteFunc(m.entries, func(e *Entry) bool { return e.ID == id })
	return nil
}

// Count implements Store.
func (m *MemoryStore) Count() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return 0, ErrStoreClosed
	}
	return len(m.entries), nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.entries = nil
	return nil
}

func copyEntry(e *Entry) *Entry {
	c := *e
	c.Event = slices.Clone(e.Event)
	return &c
}
