package kitties

import "github.com/R3E-Network/kitty_ledger/internal/state"

// TransferEngine is the only writer of kitty owners.
type TransferEngine struct {
	assets AssetStore
	owned  OwnershipIndex
}

// Transfer moves id from one account to another and delists it.
func (e *TransferEngine) Transfer(w state.Writer, from, to AccountID, id KittyID) (Kitty, error) {
	kitty, err := e.assets.MustGet(w, id)
	if err != nil {
		return Kitty{}, err
	}
	if kitty.Owner != from {
		return Kitty{}, newError(CodeNotOwner, "%s does not own %s", from, id)
	}
	if from == to {
		return Kitty{}, ErrTransferToSelf
	}

	if err := e.owned.Remove(w, from, id); err != nil {
		return Kitty{}, err
	}
	if err := e.owned.Add(w, to, id); err != nil {
		return Kitty{}, err
	}

	kitty.Owner = to
	kitty.Price = nil
	if err := e.assets.update(w, kitty); err != nil {
		return Kitty{}, err
	}
	return kitty, nil
}
