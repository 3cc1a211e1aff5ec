package kitties

import (
	"fmt"

	"github.com/R3E-Network/kitty_ledger/internal/state"
)

var assetMap = state.NewMap[Kitty]("kitties/assets/")

// AssetStore maps kitty ids to their records.
type AssetStore struct{}

// Get returns the kitty, or false when the id is unknown.
func (AssetStore) Get(r state.Reader, id KittyID) (Kitty, bool, error) {
	k, found, err := assetMap.Get(r, id[:])
	if err != nil {
		return Kitty{}, false, fmt.Errorf("read kitty %s: %w", id, err)
	}
	return k, found, nil
}

// MustGet is Get with an unknown id reported as ErrKittyNotFound.
func (s AssetStore) MustGet(r state.Reader, id KittyID) (Kitty, error) {
	k, found, err := s.Get(r, id)
	if err != nil {
		return Kitty{}, err
	}
	if !found {
		return Kitty{}, newError(CodeKittyNotFound, "%s", id)
	}
	return k, nil
}

func (AssetStore) Contains(r state.Reader, id KittyID) (bool, error) {
	found, err := assetMap.Has(r, id[:])
	if err != nil {
		return false, fmt.Errorf("read kitty %s: %w", id, err)
	}
	return found, nil
}

// Insert stores a new kitty. Ids are never overwritten.
func (s AssetStore) Insert(w state.Writer, k Kitty) error {
	exists, err := s.Contains(w, k.ID)
	if err != nil {
		return err
	}
	if exists {
		return newError(CodeAssetIDExists, "%s", k.ID)
	}
	return assetMap.Put(w, k.ID[:], k)
}

// update rewrites an existing record.
func (AssetStore) update(w state.Writer, k Kitty) error {
	return assetMap.Put(w, k.ID[:], k)
}
