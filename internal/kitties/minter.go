package kitties

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/R3E-Network/kitty_ledger/internal/chain"
	"github.com/R3E-Network/kitty_ledger/internal/randomness"
	"github.com/R3E-Network/kitty_ledger/internal/state"
)

// Entropy subjects. Each is suffixed with the current count so that draws
// within one block differ.
var (
	subjectGender = []byte("gender")
	subjectDNA    = []byte("dna")
	subjectBreed  = []byte("breed")
)

// Minter is the only writer of new kitties.
type Minter struct {
	assets  AssetStore
	owned   OwnershipIndex
	counter Counter
	rand    randomness.Source
}

// GenGender draws a gender from the "gender" stream at block at.
func (m *Minter) GenGender(r state.Reader, at chain.Block) (Gender, error) {
	out, err := m.draw(r, at, subjectGender)
	if err != nil {
		return 0, err
	}
	return GenderFromByte(out.Seed[0]), nil
}

// GenDNA returns blake2b-128(entropy || be64(at.Height) || be64(count)).
func (m *Minter) GenDNA(r state.Reader, at chain.Block) (DNA, error) {
	var dna DNA

	count, err := m.counter.Get(r)
	if err != nil {
		return dna, err
	}
	out, err := m.random(at, subjectDNA, count)
	if err != nil {
		return dna, err
	}

	h, err := blake2b.New(len(dna), nil)
	if err != nil {
		return dna, fmt.Errorf("init hash: %w", err)
	}
	h.Write(out.Seed[:])
	h.Write(be64(at.Height))
	h.Write(be64(count))
	copy(dna[:], h.Sum(nil))
	return dna, nil
}

// Mint creates a kitty owned by owner at block at. The id, owner index entry
// and count are staged together; any failure leaves the caller to roll back.
func (m *Minter) Mint(w state.Writer, owner AccountID, dna DNA, gender Gender, at chain.Block) (KittyID, error) {
	id, err := kittyID(owner, dna, gender, at.Height)
	if err != nil {
		return id, err
	}

	kitty := Kitty{ID: id, DNA: dna, Gender: gender, Owner: owner}
	if err := m.assets.Insert(w, kitty); err != nil {
		return id, err
	}
	if err := m.owned.Add(w, owner, id); err != nil {
		return id, err
	}
	if _, err := m.counter.Increment(w); err != nil {
		return id, err
	}
	return id, nil
}

func (m *Minter) draw(r state.Reader, at chain.Block, subject []byte) (randomness.Output, error) {
	count, err := m.counter.Get(r)
	if err != nil {
		return randomness.Output{}, err
	}
	return m.random(at, subject, count)
}

func (m *Minter) random(at chain.Block, subject []byte, count uint64) (randomness.Output, error) {
	out, err := m.rand.Random(at, append(append([]byte(nil), subject...), be64(count)...))
	if err != nil {
		return out, fmt.Errorf("randomness %s: %w", subject, err)
	}
	return out, nil
}

// kittyID is blake2b-256 over the CBOR array [gender, dna, owner, height].
func kittyID(owner AccountID, dna DNA, gender Gender, height uint64) (KittyID, error) {
	payload, err := state.Encode([]any{uint8(gender), dna[:], string(owner), height})
	if err != nil {
		return KittyID{}, fmt.Errorf("encode id payload: %w", err)
	}
	return blake2b.Sum256(payload), nil
}

func be64(n uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], n)
	return buf[:]
}
