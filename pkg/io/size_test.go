package io

import (
	"fmt"
	"testing"

	"github.com/niklaslong/snarkos-network/pkg/util"
	"github.com/stretchr/testify/assert"
)

// fixedCostRecord is a mock Serializable used to check that GetVarSize sums
// a slice's elements via their own Size() rather than guessing a width.
type fixedCostRecord struct{}

func (*fixedCostRecord) DecodeBinary(BinaryReader) {}
func (*fixedCostRecord) EncodeBinary(BinaryWriter) {}
func (*fixedCostRecord) Size() int                 { return 42 }

func TestGetVarSize(t *testing.T) {
	testCases := []struct {
		name     string
		variable interface{}
		expected int
	}{
		{"int below marker", 252, 1},
		{"int at two-byte marker", 253, 3},
		{"int at two-byte marker upper bound", 65535, 3},
		{"int at four-byte marker", 65536, 5},
		{"int at four-byte marker upper bound", 4294967295, 5},
		{"uint below marker", uint(252), 1},
		{"uint at two-byte marker", uint(253), 3},
		{"uint at two-byte marker upper bound", uint(65535), 3},
		{"uint at four-byte marker", uint(65536), 5},
		{"uint at four-byte marker upper bound", uint(4294967295), 5},
		{"byte slice", []byte{1, 2, 4, 5, 6}, 6},
		{"Uint160 array", util.Uint160{1, 2, 4, 5, 6}, 21},
		{"Uint256 array", util.Uint256{1, 2, 3, 4, 5, 6}, 33},
		{"fixed uint8 array, short content", [20]uint8{1, 2, 3, 4, 5, 6}, 21},
		{"fixed uint8 array, more content", [20]uint8{1, 2, 3, 4, 5, 6, 8, 9}, 21},
		{"fixed uint8 array, larger width", [32]uint8{1, 2, 3, 4, 5, 6}, 33},
		{"fixed uint16 array", [10]uint16{1, 2, 3, 4, 5, 6}, 21},
		{"fixed uint16 array, more content", [10]uint16{1, 2, 3, 4, 5, 6, 10, 21}, 21},
		{"fixed uint32 array", [30]uint32{1, 2, 3, 4, 5, 6, 10, 21}, 121},
		{"fixed uint64 array", [30]uint64{1, 2, 3, 4, 5, 6, 10, 21}, 241},
		{"fixed int8 array, short content", [20]int8{1, 2, 3, 4, 5, 6}, 21},
		{"fixed int8 array, negative element", [20]int8{-1, 2, 3, 4, 5, 6, 8, 9}, 21},
		{"fixed int8 array, larger width", [32]int8{-1, 2, 3, 4, 5, 6}, 33},
		{"fixed int16 array", [10]int16{-1, 2, 3, 4, 5, 6}, 21},
		{"fixed int16 array, more content", [10]int16{-1, 2, 3, 4, 5, 6, 10, 21}, 21},
		{"fixed int32 array", [30]int32{-1, 2, 3, 4, 5, 6, 10, 21}, 121},
		{"fixed int64 array", [30]int64{-1, 2, 3, 4, 5, 6, 10, 21}, 241},
		{"short ascii string", "abc", 4},
		{"string with multi-byte rune", "abcà", 6},
		{"hex-like string", "2d3b96ae1bcc5a585e075e3b81920210dec16302", 41},
		{"slice of Serializable elements", []*fixedCostRecord{{}, {}}, 2*42 + 1},
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprintf("run: %s", tc.name), func(t *testing.T) {
			result := GetVarSize(tc.variable)
			assert.Equal(t, tc.expected, result)
		})
	}
}

func TestGetVarSizePanicsOnUnsupportedType(t *testing.T) {
	defer func() {
		r := recover()
		assert.NotNil(t, r)
	}()

	_ = GetVarSize(t)
}
