// Package state is the deterministic key-value layer every ledger module writes through.
//
// Contract:
//   - Backends hold committed state only; Commit MUST apply a batch entirely or not at all.
//   - Modules never talk to a backend directly. They stage reads and writes on a Tx, and
//     Store.Update commits the Tx iff the closure returns nil.
//   - Get MUST return ErrNotFound when the key is absent.
package state

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("state: not found")
	ErrReadOnly = errors.New("state: write in read-only transaction")
	ErrTxDone   = errors.New("state: transaction already finished")
)

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// Backend is the committed store underneath a transaction.
type Backend interface {
	Get(ctx context.Context, key []byte) ([]byte, error)
	Commit(ctx context.Context, batch *Batch) error
}

// Reader is the read side of a transaction.
type Reader interface {
	Get(key []byte) (value []byte, found bool, err error)
}

// Writer stages mutations on top of a Reader.
type Writer interface {
	Reader
	Put(key, value []byte) error
	Delete(key []byte) error
}

// Write is one staged mutation. Delete writes carry a nil Value.
type Write struct {
	Key    []byte
	Value  []byte
	Delete bool
}

// Batch is an ordered, de-duplicated set of writes. The last write to a key wins.
type Batch struct {
	index  map[string]int
	writes []Write
}

// NewBatch returns an empty batch.
func NewBatch() *Batch {
	return &Batch{index: make(map[string]int)}
}

// Put stages key=value.
func (b *Batch) Put(key, value []byte) {
	b.set(Write{Key: cloneBytes(key), Value: cloneBytes(value)})
}

// Delete stages removal of key.
func (b *Batch) Delete(key []byte) {
	b.set(Write{Key: cloneBytes(key), Delete: true})
}

func (b *Batch) set(w Write) {
	if b.index == nil {
		b.index = make(map[string]int)
	}
	if i, ok := b.index[string(w.Key)]; ok {
		b.writes[i] = w
		return
	}
	b.index[string(w.Key)] = len(b.writes)
	b.writes = append(b.writes, w)
}

// lookup returns the staged write for key, if any.
func (b *Batch) lookup(key []byte) (Write, bool) {
	i, ok := b.index[string(key)]
	if !ok {
		return Write{}, false
	}
	return b.writes[i], true
}

// Writes returns the staged writes in first-touch order.
func (b *Batch) Writes() []Write {
	out := make([]Write, len(b.writes))
	copy(out, b.writes)
	return out
}

// Len returns the number of distinct keys touched.
func (b *Batch) Len() int { return len(b.writes) }

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
