package kitties

import (
	"fmt"
	"math"

	"github.com/R3E-Network/kitty_ledger/internal/state"
)

var countValue = state.NewValue[uint64]("kitties/count")

// Counter is the number of kitties ever minted. It only grows.
type Counter struct{}

func (Counter) Get(r state.Reader) (uint64, error) {
	n, _, err := countValue.Get(r)
	if err != nil {
		return 0, fmt.Errorf("read count: %w", err)
	}
	return n, nil
}

// Increment adds one and returns the new value.
func (c Counter) Increment(w state.Writer) (uint64, error) {
	n, err := c.Get(w)
	if err != nil {
		return 0, err
	}
	if n == math.MaxUint64 {
		return 0, ErrOverflow
	}
	n++
	if err := countValue.Put(w, n); err != nil {
		return 0, err
	}
	return n, nil
}
