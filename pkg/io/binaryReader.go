package io

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"reflect"
)

// MaxArraySize bounds ReadArray's default element count, guarding against a
// hostile length prefix forcing a huge allocation.
const MaxArraySize = 1 << 24

// BinaryReader is the subset of *BinReader that Serializable implementations
// are given.
type BinaryReader interface {
	ReadU64LE() uint64
	ReadU32LE() uint32
	ReadU16LE() uint16
	ReadU16BE() uint16
	ReadB() byte
	ReadBool() bool
	ReadBytes([]byte)
	ReadString() string
	ReadVarUint() uint64
	ReadVarBytes(maxlen ...int) []byte
	ReadArray(t interface{}, maxlen ...int)
}

// BinReader wraps an io.Reader and accumulates the first error encountered
// in Err, silently no-oping every subsequent call once one occurs.
type BinReader struct {
	r   io.Reader
	Err error
	buf [8]byte
}

// NewBinReaderFromIO makes a BinReader reading from r.
func NewBinReaderFromIO(ior io.Reader) *BinReader {
	return &BinReader{r: ior}
}

// NewBinReaderFromBuf makes a BinReader reading from an in-memory slice.
func NewBinReaderFromBuf(b []byte) *BinReader {
	return NewBinReaderFromIO(bytes.NewReader(b))
}

func (r *BinReader) read(p []byte) {
	if r.Err != nil {
		return
	}
	if _, err := io.ReadFull(r.r, p); err != nil {
		r.Err = err
	}
}

// ReadU64LE reads a little-endian uint64.
func (r *BinReader) ReadU64LE() uint64 {
	r.read(r.buf[:8])
	if r.Err != nil {
		return 0
	}
	return binary.LittleEndian.Uint64(r.buf[:8])
}

// ReadU32LE reads a little-endian uint32.
func (r *BinReader) ReadU32LE() uint32 {
	r.read(r.buf[:4])
	if r.Err != nil {
		return 0
	}
	return binary.LittleEndian.Uint32(r.buf[:4])
}

// ReadU16LE reads a little-endian uint16.
func (r *BinReader) ReadU16LE() uint16 {
	r.read(r.buf[:2])
	if r.Err != nil {
		return 0
	}
	return binary.LittleEndian.Uint16(r.buf[:2])
}

// ReadU16BE reads a big-endian uint16.
func (r *BinReader) ReadU16BE() uint16 {
	r.read(r.buf[:2])
	if r.Err != nil {
		return 0
	}
	return binary.BigEndian.Uint16(r.buf[:2])
}

// ReadB reads a single byte.
func (r *BinReader) ReadB() byte {
	r.read(r.buf[:1])
	if r.Err != nil {
		return 0
	}
	return r.buf[0]
}

// ReadBool reads a single byte and reports whether it is non-zero.
func (r *BinReader) ReadBool() bool {
	return r.ReadB() != 0
}

// ReadBytes fills buf completely from the reader.
func (r *BinReader) ReadBytes(buf []byte) {
	r.read(buf)
}

// ReadVarUint reads a value encoded by (*BinWriter).WriteVarUint.
func (r *BinReader) ReadVarUint() uint64 {
	b := r.ReadB()
	if r.Err != nil {
		return 0
	}
	switch b {
	case 0xfd:
		return uint64(r.ReadU16LE())
	case 0xfe:
		return uint64(r.ReadU32LE())
	case 0xff:
		return r.ReadU64LE()
	default:
		return uint64(b)
	}
}

// ReadVarBytes reads a length-prefixed byte slice. An optional maxlen bounds
// the accepted length, producing an error if exceeded.
func (r *BinReader) ReadVarBytes(maxlen ...int) []byte {
	max := MaxArraySize
	if len(maxlen) != 0 {
		max = maxlen[0]
	}
	n := r.ReadVarUint()
	if r.Err != nil {
		return []byte{}
	}
	if int(n) > max {
		r.Err = fmt.Errorf("invalid format: size 0x%x is too big", n)
		return []byte{}
	}
	b := make([]byte, n)
	r.ReadBytes(b)
	if r.Err != nil {
		return []byte{}
	}
	return b
}

// ReadString reads a length-prefixed UTF-8 string.
func (r *BinReader) ReadString() string {
	return string(r.ReadVarBytes())
}

// ReadArray reads a length-prefixed array into the slice pointed to by t,
// which must be a pointer to a slice of Serializable values or of pointers
// to Serializable values. An optional maxlen bounds the accepted length.
func (r *BinReader) ReadArray(t interface{}, maxlen ...int) {
	max := MaxArraySize
	switch len(maxlen) {
	case 0:
	case 1:
		max = maxlen[0]
	default:
		panic("ReadArray: at most one maxlen may be given")
	}

	ptrVal := reflect.ValueOf(t)
	if ptrVal.Kind() != reflect.Ptr || ptrVal.Elem().Kind() != reflect.Slice {
		panic("ReadArray: not a pointer to a slice")
	}
	if r.Err != nil {
		return
	}

	sliceVal := ptrVal.Elem()
	l := int(r.ReadVarUint())
	if r.Err != nil {
		return
	}
	if l > max {
		r.Err = fmt.Errorf("array of %d elements is too big (max %d)", l, max)
		return
	}

	sliceType := sliceVal.Type()
	elemType := sliceType.Elem()
	newSlice := reflect.MakeSlice(sliceType, l, l)
	for i := 0; i < l; i++ {
		elem := newSlice.Index(i)
		var ptr reflect.Value
		if elemType.Kind() == reflect.Ptr {
			ptr = reflect.New(elemType.Elem())
			elem.Set(ptr)
		} else {
			ptr = elem.Addr()
		}
		s, ok := ptr.Interface().(Serializable)
		if !ok {
			panic(fmt.Sprintf("%s is not Serializable", elemType))
		}
		s.DecodeBinary(r)
		if r.Err != nil {
			return
		}
	}
	sliceVal.Set(newSlice)
}
