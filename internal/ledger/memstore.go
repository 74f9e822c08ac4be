package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Compile-time assertion that MemStore satisfies the Store interface.
var _ Store = (*MemStore)(nil)

// MemStore is a thread-safe, in-memory implementation of [Store]. It backs
// tests and DSN-less development runs; state does not survive a restart.
type MemStore struct {
	mu      sync.RWMutex
	records map[string]*PlayerRecord
}

// NewMemStore returns an initialised [MemStore].
func NewMemStore() *MemStore {
	return &MemStore{records: make(map[string]*PlayerRecord)}
}

// Create implements [Store.Create].
func (s *MemStore) Create(ctx context.Context, rec *PlayerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.Identity]; exists {
		return fmt.Errorf("%w: %q", ErrAlreadyRegistered, rec.Identity)
	}
	s.records[rec.Identity] = rec.Clone()
	return nil
}

// Get implements [Store.Get].
func (s *MemStore) Get(ctx context.Context, identity string) (*PlayerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[identity]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotRegistered, identity)
	}
	return rec.Clone(), nil
}

// Update implements [Store.Update]. The mutation runs against a deep copy
// which replaces the stored record only when mutate succeeds, so a failed
// mutation leaves no partial state behind.
func (s *MemStore) Update(ctx context.Context, identity string, mutate func(*PlayerRecord) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[identity]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotRegistered, identity)
	}

	next := rec.Clone()
	if err := mutate(next); err != nil {
		return err
	}
	next.UpdatedAt = time.Now().UTC()
	s.records[identity] = next
	return nil
}

// Delete implements [Store.Delete].
func (s *MemStore) Delete(ctx context.Context, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[identity]; !ok {
		return fmt.Errorf("%w: %q", ErrNotRegistered, identity)
	}
	delete(s.records, identity)
	return nil
}

// List implements [Store.List].
func (s *MemStore) List(ctx context.Context) ([]*PlayerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*PlayerRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec.Clone())
	}
	return out, nil
}
