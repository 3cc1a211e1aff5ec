package kitties

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMixDNA(t *testing.T) {
	var dna1, dna2, mask DNA
	for i := range dna1 {
		dna1[i] = 0xff
	}
	mask[0] = 0x0f
	mask[15] = 0xff

	child := MixDNA(dna1, dna2, mask)
	assert.Equal(t, byte(0xf0), child[0])
	assert.Equal(t, byte(0xff), child[1])
	assert.Equal(t, byte(0x00), child[15])

	assert.Equal(t, dna1, MixDNA(dna1, dna2, DNA{}), "empty mask keeps parent one")
}

func TestBreedUsesMask(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 5)
	idM := h.create(t, "alice", Male)
	idF := h.create(t, "alice", Female)

	mask := DNA{0xff, 0x00, 0xaa}
	h.rand.mask = &mask
	h.rand.queue(Female)
	receipt, err := h.module.BreedKitty(ctx, "alice", idM, idF)
	require.NoError(t, err)

	m, f, child := h.kitty(t, idM), h.kitty(t, idF), h.kitty(t, receipt.ID)
	assert.Equal(t, MixDNA(m.DNA, f.DNA, mask), child.DNA)
	assert.Equal(t, Female, child.Gender)
	assert.Equal(t, Bred{Owner: "alice", Parents: [2]KittyID{idM, idF}, Child: receipt.ID}, receipt.Events[0])

	// Parents are untouched.
	assert.Equal(t, m, h.kitty(t, idM))
	assert.Equal(t, []KittyID{idM, idF, receipt.ID}, h.owned(t, "alice"))
}

func TestBreedRejections(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 10)
	m1 := h.create(t, "alice", Male)
	m2 := h.create(t, "alice", Male)
	f1 := h.create(t, "alice", Female)
	bobF := h.create(t, "bob", Female)

	before := h.backend.Snapshot()

	_, err := h.module.BreedKitty(ctx, "alice", m1, m2)
	require.ErrorIs(t, err, ErrSameGender)

	_, err = h.module.BreedKitty(ctx, "alice", m1, m1)
	require.ErrorIs(t, err, ErrSameGender)

	_, err = h.module.BreedKitty(ctx, "alice", m1, bobF)
	require.ErrorIs(t, err, ErrNotOwner)

	_, err = h.module.BreedKitty(ctx, "bob", m1, f1)
	require.ErrorIs(t, err, ErrNotOwner)

	_, err = h.module.BreedKitty(ctx, "alice", m1, KittyID{1})
	require.ErrorIs(t, err, ErrKittyNotFound)

	assert.Equal(t, before, h.backend.Snapshot())
}

func TestBreedChildCollidingWithParentIsRejected(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 10)
	idM := h.create(t, "alice", Male)
	idF := h.create(t, "alice", Female)

	// An empty mask copies parent one, and a Male child in the same block
	// then hashes to parent one's id.
	h.rand.mask = &DNA{}
	h.rand.queue(Male)

	before := h.backend.Snapshot()
	_, err := h.module.BreedKitty(ctx, "alice", idM, idF)
	require.ErrorIs(t, err, ErrAssetIDExists)
	assert.Equal(t, before, h.backend.Snapshot())
}
