package catalog

import (
	"context"
	"sync"
)

// MemoryStore keeps catalogs in process memory. The empty user ID is a
// shared catalog returned for users without their own entries.
type MemoryStore struct {
	mu     sync.RWMutex
	assets map[string][]Asset
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{assets: make(map[string][]Asset)}
}

// Put replaces the catalog of a user.
func (s *MemoryStore) Put(userID string, assets []Asset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets[userID] = clone(assets)
}

// Snapshot returns a copy of the user's catalog.
func (s *MemoryStore) Snapshot(_ context.Context, userID string) ([]Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.assets[userID]; ok {
		return clone(a), nil
	}
	return clone(s.assets[""]), nil
}

// Close is a no-op.
func (s *MemoryStore) Close(context.Context) error { return nil }
