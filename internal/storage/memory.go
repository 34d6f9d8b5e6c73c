package storage

import (
	"context"
	"fmt"
	"sync"
)

// MemStore is an in-memory ObjectStore for tests and local development.
// It enforces the same immutability contract as the S3 store.
type MemStore struct {
	mu      sync.RWMutex
	objects map[string]memObject

	// FailKeys forces Put failures for specific keys, for abort-path tests.
	FailKeys map[string]bool
}

type memObject struct {
	body        []byte
	contentType string
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{objects: make(map[string]memObject)}
}

// Put stores one object, rejecting overwrites.
func (s *MemStore) Put(ctx context.Context, key string, body []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailKeys[key] {
		return fmt.Errorf("put %q: simulated storage failure", key)
	}
	if _, ok := s.objects[key]; ok {
		return fmt.Errorf("put %q: %w", key, ErrImmutable)
	}

	copied := make([]byte, len(body))
	copy(copied, body)
	s.objects[key] = memObject{body: copied, contentType: contentType}
	return nil
}

// Exists reports whether a key is stored.
func (s *MemStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[key]
	return ok, nil
}

// Get returns a stored object's body and content type, for test assertions.
func (s *MemStore) Get(key string) ([]byte, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	return obj.body, obj.contentType, ok
}

// Len returns the number of stored objects.
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
