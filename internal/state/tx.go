package state

import "context"

// Tx is a write overlay on a Backend. Reads see staged writes first; nothing
// reaches the backend until the owning Store commits the overlay.
type Tx struct {
	ctx      context.Context
	backend  Backend
	batch    *Batch
	readOnly bool
	done     bool
	hooks    []func()
}

func newTx(ctx context.Context, backend Backend, readOnly bool) *Tx {
	return &Tx{
		ctx:      ctx,
		backend:  backend,
		batch:    NewBatch(),
		readOnly: readOnly,
	}
}

// Context returns the context the transaction runs under.
func (t *Tx) Context() context.Context { return t.ctx }

// Get returns the value for key as seen by this transaction.
func (t *Tx) Get(key []byte) ([]byte, bool, error) {
	if t.done {
		return nil, false, ErrTxDone
	}
	if w, ok := t.batch.lookup(key); ok {
		if w.Delete {
			return nil, false, nil
		}
		return cloneBytes(w.Value), true, nil
	}

	value, err := t.backend.Get(t.ctx, key)
	if IsNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Put stages key=value.
func (t *Tx) Put(key, value []byte) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.batch.Put(key, value)
	return nil
}

// Delete stages removal of key.
func (t *Tx) Delete(key []byte) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.batch.Delete(key)
	return nil
}

// OnCommit registers fn to run after the transaction commits. Hooks are
// dropped when the transaction rolls back.
func (t *Tx) OnCommit(fn func()) {
	t.hooks = append(t.hooks, fn)
}

// Pending returns the number of keys staged so far.
func (t *Tx) Pending() int { return t.batch.Len() }

func (t *Tx) writable() error {
	if t.done {
		return ErrTxDone
	}
	if t.readOnly {
		return ErrReadOnly
	}
	return nil
}
