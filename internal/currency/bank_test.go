package currency

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/kitty_ledger/internal/state"
	"github.com/R3E-Network/kitty_ledger/internal/state/memory"
)

func newLedger(t *testing.T) (*state.Store, *memory.Store) {
	t.Helper()
	backend := memory.New()
	return state.NewStore(backend), backend
}

func fund(t *testing.T, store *state.Store, bank *Bank, balances map[string]Balance) {
	t.Helper()
	require.NoError(t, store.Update(context.Background(), func(tx *state.Tx) error {
		for who, amount := range balances {
			if err := bank.Deposit(tx, who, amount); err != nil {
				return err
			}
		}
		return nil
	}))
}

func balances(t *testing.T, store *state.Store, bank *Bank, who ...string) []Balance {
	t.Helper()
	out := make([]Balance, len(who))
	require.NoError(t, store.View(context.Background(), func(tx *state.Tx) error {
		for i, w := range who {
			b, err := bank.BalanceOf(tx, w)
			if err != nil {
				return err
			}
			out[i] = b
		}
		return nil
	}))
	return out
}

func TestDepositTracksIssuance(t *testing.T) {
	store, _ := newLedger(t)
	bank := NewBank(10)
	fund(t, store, bank, map[string]Balance{"alice": 100, "bob": 50})

	assert.Equal(t, []Balance{100, 50, 0}, balances(t, store, bank, "alice", "bob", "carol"))
	require.NoError(t, store.View(context.Background(), func(tx *state.Tx) error {
		total, err := bank.TotalIssuance(tx)
		require.NoError(t, err)
		assert.Equal(t, Balance(150), total)
		return nil
	}))
}

func TestDepositBelowExistentialDeposit(t *testing.T) {
	store, _ := newLedger(t)
	bank := NewBank(10)
	err := store.Update(context.Background(), func(tx *state.Tx) error {
		return bank.Deposit(tx, "alice", 5)
	})
	require.ErrorIs(t, err, ErrExistentialDeposit)

	// Topping up a live account has no minimum.
	fund(t, store, bank, map[string]Balance{"alice": 10})
	fund(t, store, bank, map[string]Balance{"alice": 1})
	assert.Equal(t, []Balance{11}, balances(t, store, bank, "alice"))
}

func TestDepositOverflow(t *testing.T) {
	store, _ := newLedger(t)
	bank := NewBank(1)
	fund(t, store, bank, map[string]Balance{"alice": math.MaxUint64})

	err := store.Update(context.Background(), func(tx *state.Tx) error {
		return bank.Deposit(tx, "bob", 1)
	})
	require.ErrorIs(t, err, ErrBalanceOverflow)
}

func TestTransferKeepAlive(t *testing.T) {
	tests := []struct {
		name    string
		amount  Balance
		wantErr error
		want    []Balance
	}{
		{name: "within spendable", amount: 90, want: []Balance{10, 140}},
		{name: "would drop below minimum", amount: 91, wantErr: ErrInsufficientBalance, want: []Balance{100, 50}},
		{name: "more than balance", amount: 101, wantErr: ErrInsufficientBalance, want: []Balance{100, 50}},
		{name: "zero is a no-op", amount: 0, want: []Balance{100, 50}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store, _ := newLedger(t)
			bank := NewBank(10)
			fund(t, store, bank, map[string]Balance{"alice": 100, "bob": 50})

			err := store.Update(context.Background(), func(tx *state.Tx) error {
				return bank.Transfer(tx, "alice", "bob", tc.amount, KeepAlive)
			})
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tc.want, balances(t, store, bank, "alice", "bob"))
		})
	}
}

func TestTransferAllowDeathReapsDust(t *testing.T) {
	store, backend := newLedger(t)
	bank := NewBank(10)
	fund(t, store, bank, map[string]Balance{"alice": 100, "bob": 50})

	require.NoError(t, store.Update(context.Background(), func(tx *state.Tx) error {
		return bank.Transfer(tx, "alice", "bob", 95, AllowDeath)
	}))
	assert.Equal(t, []Balance{0, 145}, balances(t, store, bank, "alice", "bob"))

	_, err := backend.Get(context.Background(), accounts.Key([]byte("alice")))
	require.ErrorIs(t, err, state.ErrNotFound, "reaped account must be removed")

	require.NoError(t, store.View(context.Background(), func(tx *state.Tx) error {
		total, err := bank.TotalIssuance(tx)
		require.NoError(t, err)
		assert.Equal(t, Balance(145), total, "dust is burnt")
		return nil
	}))
}

func TestTransferToNewAccountNeedsExistentialDeposit(t *testing.T) {
	store, _ := newLedger(t)
	bank := NewBank(10)
	fund(t, store, bank, map[string]Balance{"alice": 100})

	err := store.Update(context.Background(), func(tx *state.Tx) error {
		return bank.Transfer(tx, "alice", "carol", 5, KeepAlive)
	})
	require.ErrorIs(t, err, ErrExistentialDeposit)
	assert.Equal(t, []Balance{100, 0}, balances(t, store, bank, "alice", "carol"))
}

func TestTransferToSelfIsNoop(t *testing.T) {
	store, backend := newLedger(t)
	bank := NewBank(1)
	fund(t, store, bank, map[string]Balance{"alice": 100})
	before := backend.Snapshot()

	require.NoError(t, store.Update(context.Background(), func(tx *state.Tx) error {
		return bank.Transfer(tx, "alice", "alice", 100, KeepAlive)
	}))
	assert.Equal(t, before, backend.Snapshot())
}

func TestSpendable(t *testing.T) {
	store, _ := newLedger(t)
	bank := NewBank(10)
	fund(t, store, bank, map[string]Balance{"alice": 100, "bob": 10})

	require.NoError(t, store.View(context.Background(), func(tx *state.Tx) error {
		alice, err := bank.Spendable(tx, "alice")
		require.NoError(t, err)
		assert.Equal(t, Balance(90), alice)

		bob, err := bank.Spendable(tx, "bob")
		require.NoError(t, err)
		assert.Zero(t, bob)

		nobody, err := bank.Spendable(tx, "nobody")
		require.NoError(t, err)
		assert.Zero(t, nobody)
		return nil
	}))
}

func TestNewBankRaisesZeroDeposit(t *testing.T) {
	assert.Equal(t, Balance(1), NewBank(0).ExistentialDeposit())
	assert.Equal(t, "keep_alive", KeepAlive.String())
	assert.Equal(t, "allow_death", AllowDeath.String())
}
