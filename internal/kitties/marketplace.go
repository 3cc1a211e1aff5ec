package kitties

import (
	"errors"
	"fmt"

	"github.com/R3E-Network/kitty_ledger/internal/currency"
	"github.com/R3E-Network/kitty_ledger/internal/state"
)

// Marketplace lists kitties and settles purchases against the bank.
type Marketplace struct {
	assets    AssetStore
	transfers *TransferEngine
	bank      *currency.Bank
}

// SetPrice lists id at price, or delists it when price is nil.
func (m *Marketplace) SetPrice(w state.Writer, caller AccountID, id KittyID, price *Balance) (Kitty, error) {
	kitty, err := m.assets.MustGet(w, id)
	if err != nil {
		return Kitty{}, err
	}
	if kitty.Owner != caller {
		return Kitty{}, newError(CodeNotOwner, "%s does not own %s", caller, id)
	}
	if price != nil {
		p := *price
		price = &p
	}
	kitty.Price = price
	if err := m.assets.update(w, kitty); err != nil {
		return Kitty{}, err
	}
	return kitty, nil
}

// Buy pays the listed price to the owner and transfers id to buyer. Both
// moves are staged on w, so a failed ownership transfer discards the payment.
func (m *Marketplace) Buy(w state.Writer, buyer AccountID, id KittyID, maxPrice Balance) (Bought, error) {
	kitty, err := m.assets.MustGet(w, id)
	if err != nil {
		return Bought{}, err
	}
	seller := kitty.Owner
	if seller == buyer {
		return Bought{}, ErrBuyerIsOwner
	}
	if kitty.Price == nil {
		return Bought{}, newError(CodeNotForSale, "%s", id)
	}
	price := *kitty.Price
	if price > maxPrice {
		return Bought{}, newError(CodePriceTooHigh, "listed at %d, maximum %d", price, maxPrice)
	}

	spendable, err := m.bank.Spendable(w, string(buyer))
	if err != nil {
		return Bought{}, err
	}
	if spendable < price {
		return Bought{}, newError(CodeInsufficientFunds, "%s can spend %d, price %d", buyer, spendable, price)
	}

	if err := m.bank.Transfer(w, string(buyer), string(seller), price, currency.KeepAlive); err != nil {
		switch {
		case errors.Is(err, currency.ErrInsufficientBalance):
			return Bought{}, newError(CodeInsufficientFunds, "%v", err)
		case errors.Is(err, currency.ErrExistentialDeposit):
			return Bought{}, newError(CodeBelowExistentialDeposit, "%s would receive %d, minimum %d",
				seller, price, m.bank.ExistentialDeposit())
		}
		return Bought{}, fmt.Errorf("settle purchase: %w", err)
	}
	if _, err := m.transfers.Transfer(w, seller, buyer, id); err != nil {
		return Bought{}, err
	}

	return Bought{Buyer: buyer, Seller: seller, ID: id, Price: price}, nil
}
