package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionRoundTrip(t *testing.T) {
	v := NewVersion(4031, 0xdeadbeefcafef00d)
	decoded, err := DecodeVersion(v.Bytes())
	require.NoError(t, err)
	assert.Equal(t, v, decoded)
}

func TestDecodeVersionMalformed(t *testing.T) {
	_, err := DecodeVersion([]byte{0x01, 0x02})
	assert.ErrorIs(t, err, ErrInvalidHandshake)
}
