package kitties

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/R3E-Network/kitty_ledger/internal/currency"
)

// Balance is a currency amount.
type Balance = currency.Balance

// AccountID identifies an account.
type AccountID string

// KittyID is the 256-bit identity of a kitty.
type KittyID [32]byte

// ParseKittyID decodes a hex id, with or without a 0x prefix.
func ParseKittyID(s string) (KittyID, error) {
	var id KittyID
	if err := decodeFixedHex(s, id[:]); err != nil {
		return id, fmt.Errorf("kitty id: %w", err)
	}
	return id, nil
}

func (id KittyID) String() string { return hex.EncodeToString(id[:]) }

func (id KittyID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *KittyID) UnmarshalText(text []byte) error {
	parsed, err := ParseKittyID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// DNA is the 128-bit genome of a kitty.
type DNA [16]byte

// ParseDNA decodes hex DNA, with or without a 0x prefix.
func ParseDNA(s string) (DNA, error) {
	var dna DNA
	if err := decodeFixedHex(s, dna[:]); err != nil {
		return dna, fmt.Errorf("dna: %w", err)
	}
	return dna, nil
}

func (d DNA) String() string { return hex.EncodeToString(d[:]) }

func (d DNA) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *DNA) UnmarshalText(text []byte) error {
	parsed, err := ParseDNA(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func decodeFixedHex(s string, dst []byte) error {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return err
	}
	if len(raw) != len(dst) {
		return fmt.Errorf("want %d bytes, got %d", len(dst), len(raw))
	}
	copy(dst, raw)
	return nil
}

// Gender of a kitty.
type Gender uint8

const (
	Male Gender = iota
	Female
)

// GenderFromByte maps an entropy byte onto a gender: even is Male, odd is Female.
func GenderFromByte(b byte) Gender {
	if b%2 == 0 {
		return Male
	}
	return Female
}

func ParseGender(s string) (Gender, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male":
		return Male, nil
	case "female":
		return Female, nil
	default:
		return 0, fmt.Errorf("unknown gender %q", s)
	}
}

func (g Gender) String() string {
	switch g {
	case Male:
		return "Male"
	case Female:
		return "Female"
	default:
		return fmt.Sprintf("Gender(%d)", uint8(g))
	}
}

func (g Gender) MarshalText() ([]byte, error) {
	if g != Male && g != Female {
		return nil, fmt.Errorf("invalid gender %d", uint8(g))
	}
	return []byte(g.String()), nil
}

func (g *Gender) UnmarshalText(text []byte) error {
	parsed, err := ParseGender(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// Kitty is the persisted asset record. Price nil means not for sale.
type Kitty struct {
	ID     KittyID   `json:"id" cbor:"id"`
	DNA    DNA       `json:"dna" cbor:"dna"`
	Gender Gender    `json:"gender" cbor:"gender"`
	Price  *Balance  `json:"price" cbor:"price"`
	Owner  AccountID `json:"owner" cbor:"owner"`
}

// ForSale reports whether the kitty has a listed price.
func (k Kitty) ForSale() bool { return k.Price != nil }
