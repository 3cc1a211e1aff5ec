package kitties

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/R3E-Network/kitty_ledger/internal/state"
)

// GenesisKitty is a kitty present at genesis. An empty Gender is derived from
// the first DNA byte.
type GenesisKitty struct {
	Owner  AccountID `json:"owner" yaml:"owner"`
	DNA    string    `json:"dna" yaml:"dna"`
	Gender string    `json:"gender,omitempty" yaml:"gender,omitempty"`
}

// GenesisBalance is an endowment present at genesis.
type GenesisBalance struct {
	Account AccountID `json:"account" yaml:"account"`
	Amount  Balance   `json:"amount" yaml:"amount"`
}

// Genesis is the initial ledger state.
type Genesis struct {
	Balances []GenesisBalance `json:"balances,omitempty" yaml:"balances,omitempty"`
	Kitties  []GenesisKitty   `json:"kitties,omitempty" yaml:"kitties,omitempty"`
}

// Empty reports whether g contains no entries.
func (g Genesis) Empty() bool { return len(g.Balances) == 0 && len(g.Kitties) == 0 }

// BuildGenesis applies g in a single transaction. Kitties are minted under
// the usual rules; any failing entry aborts the whole genesis.
func (m *Module) BuildGenesis(ctx context.Context, g Genesis) error {
	var created []Event
	err := m.store.Update(ctx, func(tx *state.Tx) error {
		at := m.head.Block()
		for _, b := range g.Balances {
			if err := m.bank.Deposit(tx, string(b.Account), b.Amount); err != nil {
				return err
			}
		}
		for i, entry := range g.Kitties {
			dna, err := ParseDNA(entry.DNA)
			if err != nil {
				return newError(CodeInvalidGenesis, "kitty %d: %v", i, err)
			}
			if entry.Owner == "" {
				return newError(CodeInvalidGenesis, "kitty %d: owner required", i)
			}
			gender := GenderFromByte(dna[0])
			if entry.Gender != "" {
				if gender, err = ParseGender(entry.Gender); err != nil {
					return newError(CodeInvalidGenesis, "kitty %d: %v", i, err)
				}
			}
			id, err := m.minter.Mint(tx, entry.Owner, dna, gender, at)
			if err != nil {
				return err
			}
			created = append(created, Created{Owner: entry.Owner, ID: id})
		}
		count, err := m.counter.Get(tx)
		if err != nil {
			return err
		}
		tx.OnCommit(func() {
			m.committed(Receipt{Height: at.Height, Events: created}, count, logrus.Fields{"op": "genesis"})
		})
		return nil
	})
	if err != nil {
		m.log.WithError(err).WithField("error_code", CodeOf(err)).Error("genesis rejected")
		return err
	}
	m.log.WithFields(logrus.Fields{
		"kitties":  len(g.Kitties),
		"balances": len(g.Balances),
	}).Info("genesis applied")
	return nil
}
