package kitties

import (
	"github.com/R3E-Network/kitty_ledger/internal/chain"
	"github.com/R3E-Network/kitty_ledger/internal/state"
)

// BreedingEngine mints a child from two parents of opposite gender.
type BreedingEngine struct {
	assets AssetStore
	minter *Minter
}

// Breed mints a child for caller. Each child DNA bit comes from parent two
// where the "breed" mask bit is set, else from parent one. Parents are not touched.
func (b *BreedingEngine) Breed(w state.Writer, caller AccountID, id1, id2 KittyID, at chain.Block) (Bred, error) {
	parent1, err := b.assets.MustGet(w, id1)
	if err != nil {
		return Bred{}, err
	}
	parent2, err := b.assets.MustGet(w, id2)
	if err != nil {
		return Bred{}, err
	}
	if parent1.Owner != caller {
		return Bred{}, newError(CodeNotOwner, "%s does not own %s", caller, id1)
	}
	if parent2.Owner != caller {
		return Bred{}, newError(CodeNotOwner, "%s does not own %s", caller, id2)
	}
	if parent1.Gender == parent2.Gender {
		return Bred{}, newError(CodeSameGender, "both parents are %s", parent1.Gender)
	}

	mask, err := b.mask(w, at, id1, id2)
	if err != nil {
		return Bred{}, err
	}
	dna := MixDNA(parent1.DNA, parent2.DNA, mask)

	gender, err := b.minter.GenGender(w, at)
	if err != nil {
		return Bred{}, err
	}
	child, err := b.minter.Mint(w, caller, dna, gender, at)
	if err != nil {
		return Bred{}, err
	}
	return Bred{Owner: caller, Parents: [2]KittyID{id1, id2}, Child: child}, nil
}

func (b *BreedingEngine) mask(r state.Reader, at chain.Block, id1, id2 KittyID) (DNA, error) {
	var mask DNA
	subject := make([]byte, 0, len(subjectBreed)+2*len(id1))
	subject = append(subject, subjectBreed...)
	subject = append(subject, id1[:]...)
	subject = append(subject, id2[:]...)

	out, err := b.minter.draw(r, at, subject)
	if err != nil {
		return mask, err
	}
	copy(mask[:], out.Seed[:len(mask)])
	return mask, nil
}

// MixDNA recombines two genomes bit by bit under mask.
func MixDNA(dna1, dna2, mask DNA) DNA {
	var child DNA
	for i := range child {
		child[i] = (dna1[i] &^ mask[i]) | (dna2[i] & mask[i])
	}
	return child
}
