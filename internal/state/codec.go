package state

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// State values are CBOR in core deterministic encoding so the same logical value
// always produces the same bytes on every node.
var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("state: cbor enc mode: %v", err))
	}
	decMode, err = cbor.DecOptions{DupMapKey: cbor.DupMapKeyEnforcedAPF}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("state: cbor dec mode: %v", err))
	}
}

// Encode returns the canonical encoding of v.
func Encode(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Decode decodes data into v.
func Decode(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}
