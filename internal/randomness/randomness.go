// Package randomness supplies the ledger's entropy. Outputs are deterministic
// for a given seed and chain head, so every mint and breed can be replayed.
package randomness

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/R3E-Network/kitty_ledger/internal/chain"
)

// SeedSize is the length of a beacon seed in bytes.
const SeedSize = 32

// Output is one draw from a Source.
type Output struct {
	Seed   [32]byte
	Height uint64
}

// Source returns entropy for a domain-separated subject at block at. The
// caller pins at once per transaction so every draw in it shares one block.
type Source interface {
	Random(at chain.Block, subject []byte) (Output, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(at chain.Block, subject []byte) (Output, error)

func (f SourceFunc) Random(at chain.Block, subject []byte) (Output, error) { return f(at, subject) }

// Beacon derives entropy as blake2b-256(seed || be64(height) || block hash || subject).
type Beacon struct {
	seed []byte
}

var _ Source = (*Beacon)(nil)

// NewBeacon builds a beacon. The seed must be SeedSize bytes.
func NewBeacon(seed []byte) (*Beacon, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", SeedSize, len(seed))
	}
	return &Beacon{seed: append([]byte(nil), seed...)}, nil
}

func (b *Beacon) Random(at chain.Block, subject []byte) (Output, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return Output{}, fmt.Errorf("init hash: %w", err)
	}
	var be [8]byte
	binary.BigEndian.PutUint64(be[:], at.Height)
	h.Write(b.seed)
	h.Write(be[:])
	h.Write(at.Hash[:])
	h.Write(subject)

	out := Output{Height: at.Height}
	copy(out.Seed[:], h.Sum(nil))
	return out, nil
}

// GenerateSeed returns a fresh random seed for devnets started without one.
func GenerateSeed() ([]byte, error) {
	seed := make([]byte, SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("read randomness: %w", err)
	}
	return seed, nil
}
