package io

import (
	"testing"
)

// repeatSlice is a stand-in for slices.Repeat (added in Go 1.23), kept local
// so this file builds against older toolchains.
func repeatSlice[T any](s []T, count int) []T {
	out := make([]T, 0, len(s)*count)
	for i := 0; i < count; i++ {
		out = append(out, s...)
	}
	return out
}

// peerStat is a tiny fixed-width record shaped like the height+RTT pair
// PeerQuality tracks per peer; it exists here purely to give WriteArray's
// reflection-based dispatch something realistic to encode when compared
// against a hand-unrolled loop.
type peerStat struct {
	height uint32
	rttMs  uint64
}

// EncodeBinary implements Serializable.
func (s peerStat) EncodeBinary(w BinaryWriter) {
	w.WriteU32LE(s.height)
	w.WriteU64LE(s.rttMs)
}

// DecodeBinary implements Serializable.
func (s *peerStat) DecodeBinary(r BinaryReader) {
	s.height = r.ReadU32LE()
	s.rttMs = r.ReadU64LE()
}

// peerStatRef is the same shape as peerStat but only ever used through a
// pointer, to compare WriteArray's value-vs-pointer-element code paths.
type peerStatRef struct {
	height uint32
	rttMs  uint64
}

// EncodeBinary implements Serializable.
func (s *peerStatRef) EncodeBinary(w BinaryWriter) {
	w.WriteU32LE(s.height)
	w.WriteU64LE(s.rttMs)
}

// DecodeBinary implements Serializable.
func (s *peerStatRef) DecodeBinary(r BinaryReader) {
	s.height = r.ReadU32LE()
	s.rttMs = r.ReadU64LE()
}

func BenchmarkWriteArray(b *testing.B) {
	const numElems = 10
	var (
		byValue = repeatSlice([]peerStat{{}}, numElems)
		byRef   = repeatSlice([]*peerStatRef{{}}, numElems)
	)

	w := NewBufBinWriter()
	w.Grow(numElems * 16) // more than needed, we don't need reallocations here.

	b.Run("WriteArray method, value", func(b *testing.B) {
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			b.StopTimer()
			w.Reset()
			b.StartTimer()
			w.WriteArray(byValue)
		}
	})
	b.Run("WriteArray method, pointer", func(b *testing.B) {
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			b.StopTimer()
			w.Reset()
			b.StartTimer()
			w.WriteArray(byRef)
		}
	})
	b.Run("WriteArray generic, value", func(b *testing.B) {
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			b.StopTimer()
			w.Reset()
			b.StartTimer()
			WriteArray(w.BinWriter, byValue)
		}
	})
	b.Run("WriteArray generic, pointer", func(b *testing.B) {
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			b.StopTimer()
			w.Reset()
			b.StartTimer()
			WriteArray(w.BinWriter, byRef)
		}
	})
	b.Run("open-coded, value", func(b *testing.B) {
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			b.StopTimer()
			w.Reset()
			b.StartTimer()
			w.WriteVarUint(uint64(len(byValue)))
			for i := range byValue {
				byValue[i].EncodeBinary(w.BinWriter)
			}
		}
	})
	b.Run("open-coded, pointer", func(b *testing.B) {
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			b.StopTimer()
			w.Reset()
			b.StartTimer()
			w.WriteVarUint(uint64(len(byRef)))
			for i := range byRef {
				byRef[i].EncodeBinary(w.BinWriter)
			}
		}
	})
}
