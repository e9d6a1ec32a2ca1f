package util

import (
	"encoding/hex"
	"errors"
	"fmt"
)

// Uint160Size is the length in bytes of Uint160.
const Uint160Size = 20

// Uint160 is a 20-byte value, used for addresses on the wire.
type Uint160 [Uint160Size]uint8

// Uint160DecodeStringLE decodes a hex string into a Uint160.
func Uint160DecodeStringLE(s string) (u Uint160, err error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return u, err
	}
	return Uint160DecodeBytesLE(b)
}

// Uint160DecodeBytesLE decodes a byte slice into a Uint160.
func Uint160DecodeBytesLE(b []byte) (u Uint160, err error) {
	if len(b) != Uint160Size {
		return u, fmt.Errorf("expected []byte of size %d got %d", Uint160Size, len(b))
	}
	copy(u[:], b)
	return u, nil
}

// BytesLE returns the underlying bytes.
func (u Uint160) BytesLE() []byte {
	b := make([]byte, Uint160Size)
	copy(b, u[:])
	return b
}

// Equals returns true when u and other hold the same bytes.
func (u Uint160) Equals(other Uint160) bool {
	return u == other
}

// String implements the fmt.Stringer interface.
func (u Uint160) String() string {
	return hex.EncodeToString(u[:])
}

// MarshalJSON implements the json.Marshaler interface.
func (u Uint160) MarshalJSON() ([]byte, error) {
	return []byte(`"` + u.String() + `"`), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (u *Uint160) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("invalid Uint160 JSON encoding")
	}
	decoded, err := Uint160DecodeStringLE(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*u = decoded
	return nil
}
