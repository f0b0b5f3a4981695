package links

import (
	"context"
	"sync"
)

// Store persists payment requests by link identifier.
type Store interface {
	// Get returns ErrNotFound when no record exists for id.
	Get(ctx context.Context, id string) (*Record, error)
	Set(ctx context.Context, id string, rec *Record) error
}

// MemoryStore is an in-process Store keyed by StoreKey(id).
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[StoreKey(id)]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (s *MemoryStore) Set(ctx context.Context, id string, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[StoreKey(id)] = *rec
	return nil
}

// Len returns the number of stored links.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
