// Package kitties is the asset ledger: minting, ownership, the marketplace
// and breeding, each public operation executed as one state transaction.
package kitties

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/R3E-Network/kitty_ledger/internal/chain"
	"github.com/R3E-Network/kitty_ledger/internal/currency"
	"github.com/R3E-Network/kitty_ledger/internal/randomness"
	"github.com/R3E-Network/kitty_ledger/internal/state"
	"github.com/R3E-Network/kitty_ledger/pkg/logger"
)

// DefaultMaxOwned is the per-account cap used when none is configured.
const DefaultMaxOwned = 9999

// Config is fixed for the lifetime of a deployment.
type Config struct {
	MaxOwned           uint32
	ExistentialDeposit Balance
}

// EventSink receives events after their transaction commits.
type EventSink interface {
	Publish(kind string, height uint64, payload any)
}

// Observer records operation outcomes. result is "ok" or an error code.
type Observer interface {
	ObserveOperation(op, result string, elapsed time.Duration)
	SetKittyCount(n uint64)
}

// Options wires a Module. Store, Randomness and Clock are required.
type Options struct {
	Config     Config
	Store      *state.Store
	Randomness randomness.Source
	Clock      chain.Head
	Events     EventSink
	Metrics    Observer
	Logger     *logger.Logger
}

// Receipt describes a committed operation.
type Receipt struct {
	ID     KittyID `json:"id"`
	Height uint64  `json:"height"`
	Events []Event `json:"-"`
}

// Stats is a ledger summary.
type Stats struct {
	Count         uint64  `json:"count"`
	TotalIssuance Balance `json:"total_issuance"`
	Height        uint64  `json:"height"`
	MaxOwned      uint32  `json:"max_owned"`
}

// Module is the ledger's runtime surface.
type Module struct {
	store  *state.Store
	head   chain.Head
	bank   *currency.Bank
	events EventSink
	obs    Observer
	log    *logger.Logger

	counter   Counter
	assets    AssetStore
	owned     OwnershipIndex
	minter    *Minter
	transfers *TransferEngine
	market    *Marketplace
	breeding  *BreedingEngine
}

// NewModule builds a module from opts.
func NewModule(opts Options) (*Module, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("state store required")
	}
	if opts.Randomness == nil {
		return nil, fmt.Errorf("randomness source required")
	}
	if opts.Clock == nil {
		return nil, fmt.Errorf("chain clock required")
	}
	cfg := opts.Config
	if cfg.MaxOwned == 0 {
		cfg.MaxOwned = DefaultMaxOwned
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewDefault("kitties")
	}

	m := &Module{
		store:  opts.Store,
		head:   opts.Clock,
		bank:   currency.NewBank(cfg.ExistentialDeposit),
		events: opts.Events,
		obs:    opts.Metrics,
		log:    log,
		owned:  OwnershipIndex{maxOwned: cfg.MaxOwned},
	}
	m.minter = &Minter{assets: m.assets, owned: m.owned, counter: m.counter, rand: opts.Randomness}
	m.transfers = &TransferEngine{assets: m.assets, owned: m.owned}
	m.market = &Marketplace{assets: m.assets, transfers: m.transfers, bank: m.bank}
	m.breeding = &BreedingEngine{assets: m.assets, minter: m.minter}
	return m, nil
}

// Bank exposes the currency ledger the marketplace settles against.
func (m *Module) Bank() *currency.Bank { return m.bank }

// =============================================================================
// Extrinsics
// =============================================================================

// CreateKitty mints a kitty with fresh DNA and gender to caller.
func (m *Module) CreateKitty(ctx context.Context, caller AccountID) (Receipt, error) {
	fields := logrus.Fields{"op": "create_kitty", "caller": caller}
	return m.execute(ctx, "create_kitty", fields, func(tx *state.Tx, at chain.Block) (KittyID, []Event, error) {
		dna, err := m.minter.GenDNA(tx, at)
		if err != nil {
			return KittyID{}, nil, err
		}
		gender, err := m.minter.GenGender(tx, at)
		if err != nil {
			return KittyID{}, nil, err
		}
		id, err := m.minter.Mint(tx, caller, dna, gender, at)
		if err != nil {
			return id, nil, err
		}
		return id, []Event{Created{Owner: caller, ID: id}}, nil
	})
}

// SetPrice lists or, with a nil price, delists a kitty.
func (m *Module) SetPrice(ctx context.Context, caller AccountID, id KittyID, price *Balance) (Receipt, error) {
	fields := logrus.Fields{"op": "set_price", "caller": caller, "kitty_id": id}
	return m.execute(ctx, "set_price", fields, func(tx *state.Tx, _ chain.Block) (KittyID, []Event, error) {
		kitty, err := m.market.SetPrice(tx, caller, id, price)
		if err != nil {
			return id, nil, err
		}
		return id, []Event{PriceSet{Owner: caller, ID: id, Price: kitty.Price}}, nil
	})
}

// Transfer gives a kitty owned by caller to another account.
func (m *Module) Transfer(ctx context.Context, caller, to AccountID, id KittyID) (Receipt, error) {
	fields := logrus.Fields{"op": "transfer", "caller": caller, "kitty_id": id, "to": to}
	return m.execute(ctx, "transfer", fields, func(tx *state.Tx, _ chain.Block) (KittyID, []Event, error) {
		if _, err := m.transfers.Transfer(tx, caller, to, id); err != nil {
			return id, nil, err
		}
		return id, []Event{Transferred{From: caller, To: to, ID: id}}, nil
	})
}

// BuyKitty buys a listed kitty for at most maxPrice.
func (m *Module) BuyKitty(ctx context.Context, buyer AccountID, id KittyID, maxPrice Balance) (Receipt, error) {
	fields := logrus.Fields{"op": "buy_kitty", "caller": buyer, "kitty_id": id, "max_price": maxPrice}
	return m.execute(ctx, "buy_kitty", fields, func(tx *state.Tx, _ chain.Block) (KittyID, []Event, error) {
		bought, err := m.market.Buy(tx, buyer, id, maxPrice)
		if err != nil {
			return id, nil, err
		}
		return id, []Event{bought}, nil
	})
}

// BreedKitty mints a child of two kitties owned by caller.
func (m *Module) BreedKitty(ctx context.Context, caller AccountID, id1, id2 KittyID) (Receipt, error) {
	fields := logrus.Fields{"op": "breed_kitty", "caller": caller, "kitty_id": id1, "partner_id": id2}
	return m.execute(ctx, "breed_kitty", fields, func(tx *state.Tx, at chain.Block) (KittyID, []Event, error) {
		bred, err := m.breeding.Breed(tx, caller, id1, id2, at)
		if err != nil {
			return KittyID{}, nil, err
		}
		return bred.Child, []Event{bred}, nil
	})
}

// Deposit credits account from nothing. Devnet faucet; not a ledger event.
func (m *Module) Deposit(ctx context.Context, account AccountID, amount Balance) error {
	err := m.store.Update(ctx, func(tx *state.Tx) error {
		return m.bank.Deposit(tx, string(account), amount)
	})
	if err != nil {
		return err
	}
	m.log.WithFields(logrus.Fields{"account": account, "amount": amount}).Info("deposit")
	return nil
}

// execute runs fn in one transaction against a single snapshot of the chain
// head. Events, the commit log line and the kitty gauge are emitted only once
// the transaction has committed.
func (m *Module) execute(ctx context.Context, op string, fields logrus.Fields, fn func(tx *state.Tx, at chain.Block) (KittyID, []Event, error)) (Receipt, error) {
	start := time.Now()

	var receipt Receipt
	err := m.store.Update(ctx, func(tx *state.Tx) error {
		at := m.head.Block()
		id, events, err := fn(tx, at)
		if err != nil {
			return err
		}
		count, err := m.counter.Get(tx)
		if err != nil {
			return err
		}
		receipt = Receipt{ID: id, Height: at.Height, Events: events}
		tx.OnCommit(func() { m.committed(receipt, count, fields) })
		return nil
	})

	if m.obs != nil {
		m.obs.ObserveOperation(op, resultOf(err), time.Since(start))
	}
	if err != nil {
		m.log.WithFields(fields).WithField("error_code", CodeOf(err)).WithError(err).Debug("operation rejected")
		return Receipt{}, err
	}
	return receipt, nil
}

func (m *Module) committed(receipt Receipt, count uint64, fields logrus.Fields) {
	if m.events != nil {
		for _, ev := range receipt.Events {
			m.events.Publish(ev.Kind(), receipt.Height, ev)
		}
	}
	if m.obs != nil {
		m.obs.SetKittyCount(count)
	}
	m.log.WithFields(fields).WithFields(logrus.Fields{
		"result_id": receipt.ID,
		"height":    receipt.Height,
	}).Info("operation committed")
}

func resultOf(err error) string {
	if err == nil {
		return "ok"
	}
	if code := CodeOf(err); code != "" {
		return string(code)
	}
	return "error"
}

// =============================================================================
// Queries
// =============================================================================

// Kitty returns the record for id.
func (m *Module) Kitty(ctx context.Context, id KittyID) (Kitty, error) {
	var kitty Kitty
	err := m.store.View(ctx, func(tx *state.Tx) error {
		var err error
		kitty, err = m.assets.MustGet(tx, id)
		return err
	})
	return kitty, err
}

// KittiesOwned returns account's kitties in acquisition order.
func (m *Module) KittiesOwned(ctx context.Context, account AccountID) ([]KittyID, error) {
	var ids []KittyID
	err := m.store.View(ctx, func(tx *state.Tx) error {
		var err error
		ids, err = m.owned.List(tx, account)
		return err
	})
	return ids, err
}

// Count returns the number of kitties.
func (m *Module) Count(ctx context.Context) (uint64, error) {
	var n uint64
	err := m.store.View(ctx, func(tx *state.Tx) error {
		var err error
		n, err = m.counter.Get(tx)
		return err
	})
	return n, err
}

// Balance returns account's free balance.
func (m *Module) Balance(ctx context.Context, account AccountID) (Balance, error) {
	var b Balance
	err := m.store.View(ctx, func(tx *state.Tx) error {
		var err error
		b, err = m.bank.BalanceOf(tx, string(account))
		return err
	})
	return b, err
}

// Stats summarises the ledger.
func (m *Module) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{Height: m.head.Height(), MaxOwned: m.owned.MaxOwned()}
	err := m.store.View(ctx, func(tx *state.Tx) error {
		var err error
		if stats.Count, err = m.counter.Get(tx); err != nil {
			return err
		}
		stats.TotalIssuance, err = m.bank.TotalIssuance(tx)
		return err
	})
	return stats, err
}
