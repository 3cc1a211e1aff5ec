package redis

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/kitty_ledger/internal/state"
)

func TestStoreIntegration(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set; skipping redis integration test")
	}

	ctx := context.Background()
	store, err := Open(ctx, addr, "kitty_ledger_test:"+uuid.NewString()+":")
	require.NoError(t, err)
	defer store.Close()

	ledger := state.NewStore(store)
	require.NoError(t, ledger.Update(ctx, func(tx *state.Tx) error {
		if err := tx.Put([]byte("a"), []byte("1")); err != nil {
			return err
		}
		return tx.Put([]byte("b"), []byte("2"))
	}))
	require.NoError(t, ledger.Update(ctx, func(tx *state.Tx) error {
		return tx.Delete([]byte("b"))
	}))

	value, err := store.Get(ctx, []byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), value)

	_, err = store.Get(ctx, []byte("b"))
	require.ErrorIs(t, err, state.ErrNotFound)
}

func TestKeyPrefix(t *testing.T) {
	store := New(nil, "")
	assert.Equal(t, "kitty_ledger:kitties/count", store.key([]byte("kitties/count")))

	custom := New(nil, "devnet:")
	assert.Equal(t, "devnet:x", custom.key([]byte("x")))
}
