package prefs

import (
	"context"
	"sync"
)

// MemoryStore keeps preferences in process memory.
// Thread-safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	prefs Prefs
	saved bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Get(_ context.Context) (Prefs, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.saved {
		return Default(), nil
	}
	return s.prefs, nil
}

func (s *MemoryStore) Set(_ context.Context, p Prefs) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs = p
	s.saved = true
	return nil
}
