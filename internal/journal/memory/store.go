// Package memory implements an in-memory transfer journal.
package memory

import (
	"context"
	"sync"

	"solana-usdc-relay/internal/journal"
)

// Store keeps journal entries in memory. Intended for tests and for
// running without a database.
type Store struct {
	mu      sync.Mutex
	entries []journal.Entry
}

// NewStore creates a new in-memory journal.
func NewStore() *Store {
	return &Store{}
}

// Compile-time interface check.
var _ journal.Journal = (*Store)(nil)

// Record appends an entry.
func (s *Store) Record(_ context.Context, e *journal.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, *e)
	return nil
}

// Entries returns a copy of all recorded entries.
func (s *Store) Entries() []journal.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]journal.Entry, len(s.entries))
	copy(out, s.entries)
	return out
}
