package kitties

import (
	"fmt"

	"github.com/R3E-Network/kitty_ledger/internal/state"
)

var ownedMap = state.NewMap[[]KittyID]("kitties/owned/")

// OwnershipIndex keeps each account's kitties in insertion order, at most
// MaxOwned per account. Accounts with no kitties have no entry.
type OwnershipIndex struct {
	maxOwned uint32
}

func (o OwnershipIndex) MaxOwned() uint32 { return o.maxOwned }

// List returns the ids owned by account.
func (OwnershipIndex) List(r state.Reader, account AccountID) ([]KittyID, error) {
	ids, _, err := ownedMap.Get(r, []byte(account))
	if err != nil {
		return nil, fmt.Errorf("read owned by %s: %w", account, err)
	}
	return ids, nil
}

// Add appends id to account's list.
func (o OwnershipIndex) Add(w state.Writer, account AccountID, id KittyID) error {
	ids, err := o.List(w, account)
	if err != nil {
		return err
	}
	if uint64(len(ids)) >= uint64(o.maxOwned) {
		return newError(CodeExceedMaxOwned, "%s owns %d", account, len(ids))
	}
	return ownedMap.Put(w, []byte(account), append(ids, id))
}

// Remove deletes id from account's list, keeping the order of the rest.
func (o OwnershipIndex) Remove(w state.Writer, account AccountID, id KittyID) error {
	ids, err := o.List(w, account)
	if err != nil {
		return err
	}
	at := -1
	for i, owned := range ids {
		if owned == id {
			at = i
			break
		}
	}
	if at < 0 {
		return newError(CodeKittyNotFound, "%s not owned by %s", id, account)
	}
	rest := append(ids[:at:at], ids[at+1:]...)
	if len(rest) == 0 {
		return ownedMap.Delete(w, []byte(account))
	}
	return ownedMap.Put(w, []byte(account), rest)
}
