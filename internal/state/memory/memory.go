package memory

import (
	"context"
	"sync"

	"github.com/R3E-Network/kitty_ledger/internal/state"
)

// Store is an in-memory state.Backend. It is safe for concurrent use and is
// primarily intended for tests, local development and the devnet binary.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte

	// failCommit, when set, makes the next Commit fail without applying anything.
	failCommit error
}

var _ state.Backend = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

func (s *Store) Get(_ context.Context, key []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.data[string(key)]
	if !ok {
		return nil, state.ErrNotFound
	}
	return cloneBytes(value), nil
}

func (s *Store) Commit(ctx context.Context, batch *state.Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failCommit; err != nil {
		s.failCommit = nil
		return err
	}

	for _, w := range batch.Writes() {
		if w.Delete {
			delete(s.data, string(w.Key))
			continue
		}
		s.data[string(w.Key)] = cloneBytes(w.Value)
	}
	return nil
}

// FailNextCommit makes the next Commit return err.
func (s *Store) FailNextCommit(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCommit = err
}

// Snapshot returns a deep copy of the committed state.
func (s *Store) Snapshot() map[string][]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]byte, len(s.data))
	for k, v := range s.data {
		out[k] = cloneBytes(v)
	}
	return out
}

// Len returns the number of committed keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
