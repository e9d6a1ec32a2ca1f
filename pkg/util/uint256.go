// Package util holds small fixed-size value types shared by the wire codec.
package util

import (
	"encoding/hex"
	"errors"
	"fmt"
)

// Uint256Size is the length in bytes of Uint256.
const Uint256Size = 32

// Uint256 is a 32-byte hash, used as a block/transaction identifier on the wire.
type Uint256 [Uint256Size]uint8

// Uint256DecodeStringLE decodes a hex string into a Uint256, keeping the
// bytes in the order they appear (the order String produces).
func Uint256DecodeStringLE(s string) (u Uint256, err error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return u, err
	}
	return Uint256DecodeBytesLE(b)
}

// Uint256DecodeBytesLE decodes a byte slice into a Uint256.
func Uint256DecodeBytesLE(b []byte) (u Uint256, err error) {
	if len(b) != Uint256Size {
		return u, fmt.Errorf("expected []byte of size %d got %d", Uint256Size, len(b))
	}
	copy(u[:], b)
	return u, nil
}

// BytesLE returns the underlying bytes.
func (u Uint256) BytesLE() []byte {
	b := make([]byte, Uint256Size)
	copy(b, u[:])
	return b
}

// Equals returns true when u and other hold the same bytes.
func (u Uint256) Equals(other Uint256) bool {
	return u == other
}

// String implements the fmt.Stringer interface.
func (u Uint256) String() string {
	return hex.EncodeToString(u[:])
}

// MarshalJSON implements the json.Marshaler interface.
func (u Uint256) MarshalJSON() ([]byte, error) {
	return []byte(`"` + u.String() + `"`), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (u *Uint256) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("invalid Uint256 JSON encoding")
	}
	decoded, err := Uint256DecodeStringLE(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*u = decoded
	return nil
}
