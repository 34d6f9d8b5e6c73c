package routing

import (
	"context"
	"sync"
)

// MemTable is an in-process routing table. It backs single-node deployments
// where the edge runs in the same process, and all tests.
type MemTable struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewMemTable creates an empty in-memory routing table.
func NewMemTable() *MemTable {
	return &MemTable{entries: make(map[string]string)}
}

// Set writes a routing entry. Returns SetSkipped when the entry already
// holds the requested value.
func (t *MemTable) Set(ctx context.Context, key, value string) (SetResult, error) {
	if err := ValidateEntry(key, value); err != nil {
		return SetFailed, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.entries[key]; ok && existing == value {
		return SetSkipped, nil
	}
	t.entries[key] = value
	return SetUpdated, nil
}

// Delete removes a routing entry. Removing an absent key is a no-op.
func (t *MemTable) Delete(ctx context.Context, key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, key)
	return nil
}

// Snapshot produces an immutable view for the edge router.
func (t *MemTable) Snapshot() *Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return NewSnapshot(t.entries)
}
