// Package currency is the balance ledger the marketplace settles against.
//
// Balances live in the same state keyspace as the kitty records, so a
// purchase moves currency and ownership inside one state transaction:
// whatever rolls back one rolls back the other.
package currency

import (
	"errors"
	"fmt"
	"math"

	"github.com/R3E-Network/kitty_ledger/internal/state"
)

// Balance is an amount of the native currency in its smallest unit.
type Balance = uint64

// ExistenceRequirement says whether a transfer may leave the payer below
// the existential deposit.
type ExistenceRequirement int

const (
	// KeepAlive rejects transfers that would drop the payer below the existential deposit.
	KeepAlive ExistenceRequirement = iota
	// AllowDeath reaps the payer when the remainder falls below the existential deposit.
	AllowDeath
)

func (r ExistenceRequirement) String() string {
	switch r {
	case KeepAlive:
		return "keep_alive"
	case AllowDeath:
		return "allow_death"
	default:
		return fmt.Sprintf("existence_requirement(%d)", int(r))
	}
}

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrExistentialDeposit  = errors.New("amount below existential deposit")
	ErrBalanceOverflow     = errors.New("balance overflow")
)

// AccountData is the persisted record of one account.
type AccountData struct {
	Free Balance `cbor:"free"`
}

var (
	accounts = state.NewMap[AccountData]("balances/accounts/")
	issuance = state.NewValue[Balance]("balances/issuance")
)

// Bank reads and writes balances through a state transaction.
type Bank struct {
	existentialDeposit Balance
}

// NewBank creates a bank. A zero existential deposit is raised to 1 so that
// empty accounts never exist.
func NewBank(existentialDeposit Balance) *Bank {
	if existentialDeposit == 0 {
		existentialDeposit = 1
	}
	return &Bank{existentialDeposit: existentialDeposit}
}

// ExistentialDeposit returns the minimum balance of a live account.
func (b *Bank) ExistentialDeposit() Balance { return b.existentialDeposit }

// =============================================================================
// Queries
// =============================================================================

// BalanceOf returns the free balance of who. Unknown accounts hold zero.
func (b *Bank) BalanceOf(r state.Reader, who string) (Balance, error) {
	data, _, err := accounts.Get(r, []byte(who))
	if err != nil {
		return 0, fmt.Errorf("read account %s: %w", who, err)
	}
	return data.Free, nil
}

// Spendable returns what who can pay while staying alive.
func (b *Bank) Spendable(r state.Reader, who string) (Balance, error) {
	free, err := b.BalanceOf(r, who)
	if err != nil {
		return 0, err
	}
	if free <= b.existentialDeposit {
		return 0, nil
	}
	return free - b.existentialDeposit, nil
}

// TotalIssuance returns the sum of all balances.
func (b *Bank) TotalIssuance(r state.Reader) (Balance, error) {
	total, _, err := issuance.Get(r)
	if err != nil {
		return 0, fmt.Errorf("read issuance: %w", err)
	}
	return total, nil
}

// =============================================================================
// Mutations
// =============================================================================

// Deposit mints amount into to and raises total issuance.
func (b *Bank) Deposit(w state.Writer, to string, amount Balance) error {
	if amount == 0 {
		return nil
	}
	current, err := b.BalanceOf(w, to)
	if err != nil {
		return err
	}
	if current == 0 && amount < b.existentialDeposit {
		return fmt.Errorf("%w: deposit %d, minimum %d", ErrExistentialDeposit, amount, b.existentialDeposit)
	}
	if current > math.MaxUint64-amount {
		return fmt.Errorf("%w: account %s", ErrBalanceOverflow, to)
	}
	total, err := b.TotalIssuance(w)
	if err != nil {
		return err
	}
	if total > math.MaxUint64-amount {
		return fmt.Errorf("%w: total issuance", ErrBalanceOverflow)
	}

	if err := b.setFree(w, to, current+amount); err != nil {
		return err
	}
	return issuance.Put(w, total+amount)
}

// Transfer moves amount from one account to another. Every check runs before
// the first write, so a rejected transfer stages nothing.
func (b *Bank) Transfer(w state.Writer, from, to string, amount Balance, req ExistenceRequirement) error {
	if amount == 0 || from == to {
		return nil
	}

	fromFree, err := b.BalanceOf(w, from)
	if err != nil {
		return err
	}
	if fromFree < amount {
		return fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientBalance, from, fromFree, amount)
	}
	remaining := fromFree - amount
	var dust Balance
	if remaining < b.existentialDeposit {
		if req == KeepAlive {
			return fmt.Errorf("%w: %s would keep %d, minimum %d", ErrInsufficientBalance, from, remaining, b.existentialDeposit)
		}
		dust, remaining = remaining, 0
	}

	toFree, err := b.BalanceOf(w, to)
	if err != nil {
		return err
	}
	if toFree == 0 && amount < b.existentialDeposit {
		return fmt.Errorf("%w: new account %s receives %d, minimum %d", ErrExistentialDeposit, to, amount, b.existentialDeposit)
	}
	if toFree > math.MaxUint64-amount {
		return fmt.Errorf("%w: account %s", ErrBalanceOverflow, to)
	}

	if err := b.setFree(w, from, remaining); err != nil {
		return err
	}
	if err := b.setFree(w, to, toFree+amount); err != nil {
		return err
	}
	if dust > 0 {
		total, err := b.TotalIssuance(w)
		if err != nil {
			return err
		}
		return issuance.Put(w, total-dust)
	}
	return nil
}

func (b *Bank) setFree(w state.Writer, who string, free Balance) error {
	if free == 0 {
		return accounts.Delete(w, []byte(who))
	}
	return accounts.Put(w, []byte(who), AccountData{Free: free})
}
