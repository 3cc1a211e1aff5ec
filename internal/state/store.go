package state

import (
	"context"
	"fmt"
	"sync"
)

// Store serialises transactions against a Backend. One writer runs at a time,
// which gives every Update a consistent snapshot without backend locking.
type Store struct {
	mu      sync.Mutex
	backend Backend
}

// NewStore wraps backend.
func NewStore(backend Backend) *Store {
	return &Store{backend: backend}
}

// Backend returns the underlying backend.
func (s *Store) Backend() Backend { return s.backend }

// Update runs fn inside a write transaction. The staged writes are committed
// iff fn returns nil; otherwise they are discarded and the backend is untouched.
// Commit hooks registered by fn run after a successful commit and before the
// next transaction starts, so hooks observe commits in order. Hooks must not
// call back into the Store.
func (s *Store) Update(ctx context.Context, fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := newTx(ctx, s.backend, false)
	defer func() { tx.done = true }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if tx.batch.Len() > 0 {
		if err := s.backend.Commit(ctx, tx.batch); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
	}
	tx.done = true

	for _, hook := range tx.hooks {
		hook()
	}
	return nil
}

// View runs fn inside a read-only transaction.
func (s *Store) View(ctx context.Context, fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := newTx(ctx, s.backend, true)
	defer func() { tx.done = true }()
	return fn(tx)
}
