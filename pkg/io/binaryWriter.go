// Package io implements the length-prefixed, little-endian binary codec used
// to (de)serialize wire structures, in the style of a BinReader/BinWriter
// pair that accumulates errors instead of returning them from every call.
package io

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"reflect"
)

// BinaryWriter is the subset of *BinWriter that Serializable implementations
// are given; it lets EncodeBinary be tested against a mock writer.
type BinaryWriter interface {
	WriteU64LE(uint64)
	WriteU32LE(uint32)
	WriteU16LE(uint16)
	WriteU16BE(uint16)
	WriteB(byte)
	WriteBool(bool)
	WriteBytes([]byte)
	WriteString(string)
	WriteVarUint(uint64)
	WriteVarBytes([]byte)
	WriteArray(interface{})
	Error() error
}

// Serializable defines a binary encoding/decoding contract for wire types.
// Errors are never returned directly; they accumulate on the reader/writer.
type Serializable interface {
	EncodeBinary(w BinaryWriter)
	DecodeBinary(r BinaryReader)
}

// BinWriter wraps an io.Writer and accumulates the first error encountered,
// silently no-oping every subsequent call once one occurs.
type BinWriter struct {
	w   io.Writer
	err error
	buf [8]byte
}

// NewBinWriterFromIO makes a BinWriter writing to w.
func NewBinWriterFromIO(iow io.Writer) *BinWriter {
	return &BinWriter{w: iow}
}

// Error returns the first error encountered, if any.
func (w *BinWriter) Error() error {
	return w.err
}

// SetError sets the accumulated error if none is set yet.
func (w *BinWriter) SetError(err error) {
	if w.err == nil {
		w.err = err
	}
}

func (w *BinWriter) write(p []byte) {
	if w.err != nil {
		return
	}
	if _, err := w.w.Write(p); err != nil {
		w.err = err
	}
}

// WriteU64LE writes a uint64 in little-endian order.
func (w *BinWriter) WriteU64LE(u64 uint64) {
	binary.LittleEndian.PutUint64(w.buf[:8], u64)
	w.write(w.buf[:8])
}

// WriteU32LE writes a uint32 in little-endian order.
func (w *BinWriter) WriteU32LE(u32 uint32) {
	binary.LittleEndian.PutUint32(w.buf[:4], u32)
	w.write(w.buf[:4])
}

// WriteU16LE writes a uint16 in little-endian order.
func (w *BinWriter) WriteU16LE(u16 uint16) {
	binary.LittleEndian.PutUint16(w.buf[:2], u16)
	w.write(w.buf[:2])
}

// WriteU16BE writes a uint16 in big-endian order.
func (w *BinWriter) WriteU16BE(u16 uint16) {
	binary.BigEndian.PutUint16(w.buf[:2], u16)
	w.write(w.buf[:2])
}

// WriteB writes a single byte.
func (w *BinWriter) WriteB(b byte) {
	w.buf[0] = b
	w.write(w.buf[:1])
}

// WriteBool writes a single byte, 1 for true and 0 for false.
func (w *BinWriter) WriteBool(b bool) {
	if b {
		w.WriteB(1)
	} else {
		w.WriteB(0)
	}
}

// WriteBytes writes p as-is, without any length prefix.
func (w *BinWriter) WriteBytes(p []byte) {
	w.write(p)
}

// WriteVarUint writes val using the varint-style marker encoding: values
// below 0xfd are written as a single byte; larger values are preceded by a
// 0xfd/0xfe/0xff marker selecting a 2/4/8-byte little-endian payload.
func (w *BinWriter) WriteVarUint(val uint64) {
	if val < 0xfd {
		w.WriteB(byte(val))
		return
	}
	if val <= 0xffff {
		w.WriteB(0xfd)
		w.WriteU16LE(uint16(val))
		return
	}
	if val <= 0xffffffff {
		w.WriteB(0xfe)
		w.WriteU32LE(uint32(val))
		return
	}
	w.WriteB(0xff)
	w.WriteU64LE(val)
}

// WriteVarBytes writes b prefixed with its length as a VarUint.
func (w *BinWriter) WriteVarBytes(b []byte) {
	w.WriteVarUint(uint64(len(b)))
	w.WriteBytes(b)
}

// WriteString writes s as length-prefixed bytes.
func (w *BinWriter) WriteString(s string) {
	w.WriteVarBytes([]byte(s))
}

// encodable is the encode half of Serializable; WriteArray only needs this
// half, so value-typed elements whose DecodeBinary lives on the pointer
// still qualify.
type encodable interface {
	EncodeBinary(w BinaryWriter)
}

// WriteArray writes a length-prefixed array or slice of encodable elements
// (or pointers to them). It panics if arr is not an array/slice or its
// elements cannot be encoded.
func (w *BinWriter) WriteArray(arr interface{}) {
	switch val := reflect.ValueOf(arr); val.Kind() {
	case reflect.Slice, reflect.Array:
		w.WriteVarUint(uint64(val.Len()))
		for i := 0; i < val.Len(); i++ {
			toEncodable(val.Index(i)).EncodeBinary(w)
		}
	default:
		panic("WriteArray: not an array or a slice")
	}
}

func toEncodable(v reflect.Value) encodable {
	if v.CanInterface() {
		if e, ok := v.Interface().(encodable); ok {
			return e
		}
	}
	if v.CanAddr() {
		if e, ok := v.Addr().Interface().(encodable); ok {
			return e
		}
	}
	panic(fmt.Sprintf("%s is not Serializable", v.Type()))
}

// WriteArray is the free-function equivalent of (*BinWriter).WriteArray,
// kept for call sites that only hold a BinaryWriter.
func WriteArray(w BinaryWriter, arr interface{}) {
	w.WriteArray(arr)
}

// BufBinWriter is a BinWriter writing into an in-memory buffer, with Bytes()
// exposing the accumulated output.
type BufBinWriter struct {
	*BinWriter
	buf *bytes.Buffer
}

// NewBufBinWriter creates a new BufBinWriter backed by an empty buffer.
func NewBufBinWriter() *BufBinWriter {
	b := new(bytes.Buffer)
	return &BufBinWriter{
		BinWriter: NewBinWriterFromIO(b),
		buf:       b,
	}
}

// Bytes returns the accumulated bytes, or nil if an error occurred.
func (bw *BufBinWriter) Bytes() []byte {
	if bw.err != nil {
		return nil
	}
	return bw.buf.Bytes()
}

// Len returns the number of bytes written so far.
func (bw *BufBinWriter) Len() int {
	return bw.buf.Len()
}

// Grow grows the underlying buffer's capacity, see bytes.Buffer.Grow.
func (bw *BufBinWriter) Grow(n int) {
	bw.buf.Grow(n)
}

// Reset resets the buffer and the accumulated error, readying it for reuse.
func (bw *BufBinWriter) Reset() {
	bw.buf.Reset()
	bw.err = nil
}
