package io

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// alwaysFailRW mocks an io.Reader/io.Writer that always errors, to exercise
// the BinReader/BinWriter's accumulate-and-no-op-afterward behavior.
type alwaysFailRW struct{}

func (w *alwaysFailRW) Write(p []byte) (int, error) {
	return 0, errors.New("it always fails")
}

func (w *alwaysFailRW) Read(p []byte) (int, error) {
	return w.Write(p)
}

func TestFixedWidthRoundTrip(t *testing.T) {
	cases := []struct {
		name  string
		write func(*BinWriter)
		read  func(*BinReader) any
		want  any
		bin   []byte
	}{
		{
			name:  "U64LE",
			write: func(w *BinWriter) { w.WriteU64LE(0xbadc0de15a11dead) },
			read:  func(r *BinReader) any { return r.ReadU64LE() },
			want:  uint64(0xbadc0de15a11dead),
			bin:   []byte{0xad, 0xde, 0x11, 0x5a, 0xe1, 0x0d, 0xdc, 0xba},
		},
		{
			name:  "U32LE",
			write: func(w *BinWriter) { w.WriteU32LE(0xdeadbeef) },
			read:  func(r *BinReader) any { return r.ReadU32LE() },
			want:  uint32(0xdeadbeef),
			bin:   []byte{0xef, 0xbe, 0xad, 0xde},
		},
		{
			name:  "U16LE",
			write: func(w *BinWriter) { w.WriteU16LE(0xbabe) },
			read:  func(r *BinReader) any { return r.ReadU16LE() },
			want:  uint16(0xbabe),
			bin:   []byte{0xbe, 0xba},
		},
		{
			name:  "U16BE",
			write: func(w *BinWriter) { w.WriteU16BE(0xbabe) },
			read:  func(r *BinReader) any { return r.ReadU16BE() },
			want:  uint16(0xbabe),
			bin:   []byte{0xba, 0xbe},
		},
		{
			name:  "Byte",
			write: func(w *BinWriter) { w.WriteB(0xa5) },
			read:  func(r *BinReader) any { return r.ReadB() },
			want:  byte(0xa5),
			bin:   []byte{0xa5},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bw := NewBufBinWriter()
			tc.write(bw.BinWriter)
			assert.NoError(t, bw.Error())
			assert.Equal(t, tc.bin, bw.Bytes())

			br := NewBinReaderFromBuf(tc.bin)
			assert.Equal(t, tc.want, tc.read(br))
			assert.NoError(t, br.Err)
		})
	}
}

func TestWriteBool(t *testing.T) {
	bin := []byte{0x01, 0x00}

	bw := NewBufBinWriter()
	bw.WriteBool(true)
	bw.WriteBool(false)
	assert.NoError(t, bw.Error())
	assert.Equal(t, bin, bw.Bytes())

	br := NewBinReaderFromBuf(bin)
	assert.True(t, br.ReadBool())
	assert.False(t, br.ReadBool())
	assert.NoError(t, br.Err)
}

// TestReadLEAfterError checks that once a BinReader hits an error, every
// further Read* call keeps returning the zero value instead of advancing.
func TestReadLEAfterError(t *testing.T) {
	bin := []byte{0xad, 0xde, 0x11, 0x5a, 0xe1, 0x0d, 0xdc, 0xba}
	br := NewBinReaderFromBuf(bin)
	_ = br.ReadU64LE() // exhausts the buffer, priming the next reads to fail
	require.NoError(t, br.Err)

	assert.Equal(t, uint64(0), br.ReadU64LE())
	assert.Equal(t, uint32(0), br.ReadU32LE())
	assert.Equal(t, uint16(0), br.ReadU16LE())
	assert.Equal(t, uint16(0), br.ReadU16BE())
	assert.Equal(t, byte(0), br.ReadB())
	assert.False(t, br.ReadBool())
	assert.Error(t, br.Err)
}

func TestBufBinWriterLen(t *testing.T) {
	bw := NewBufBinWriter()
	bw.WriteBytes([]byte{0xde})
	require.Equal(t, 1, bw.Len())
}

func TestReadVarBytes(t *testing.T) {
	payload := make([]byte, 11)
	for i := range payload {
		payload[i] = byte(i)
	}
	w := NewBufBinWriter()
	w.WriteVarBytes(payload)
	require.NoError(t, w.Error())
	data := w.Bytes()

	t.Run("no maxlen given", func(t *testing.T) {
		r := NewBinReaderFromBuf(data)
		require.Equal(t, payload, r.ReadVarBytes())
		require.NoError(t, r.Err)
	})
	t.Run("maxlen covers the payload", func(t *testing.T) {
		r := NewBinReaderFromBuf(data)
		require.Equal(t, payload, r.ReadVarBytes(11))
		require.NoError(t, r.Err)
	})
	t.Run("maxlen too small", func(t *testing.T) {
		r := NewBinReaderFromBuf(data)
		r.ReadVarBytes(10)
		require.Error(t, r.Err)
	})
}

func TestWriterStopsAfterFirstError(t *testing.T) {
	bw := NewBinWriterFromIO(&alwaysFailRW{})
	bw.WriteU32LE(0)
	require.Error(t, bw.Error())
	// none of these should panic; the error just sticks.
	bw.WriteU32LE(0)
	bw.WriteU16BE(0)
	bw.WriteVarUint(0)
	bw.WriteVarBytes([]byte{0x55, 0xaa})
	bw.WriteString("peer")
	assert.Error(t, bw.Error())
}

func TestReaderStopsAfterFirstError(t *testing.T) {
	br := NewBinReaderFromIO(&alwaysFailRW{})
	br.ReadU32LE()
	require.Error(t, br.Err)
	// none of these should panic; they should all read as zero values.
	br.ReadU32LE()
	br.ReadU16BE()
	assert.Equal(t, uint64(0), br.ReadVarUint())
	assert.Equal(t, []byte{}, br.ReadVarBytes())
	assert.Equal(t, "", br.ReadString())
	assert.Error(t, br.Err)
}

func TestBufBinWriterInjectedError(t *testing.T) {
	bw := NewBufBinWriter()
	bw.WriteU32LE(0)
	require.NoError(t, bw.Error())
	bw.SetError(errors.New("oopsie"))
	assert.Error(t, bw.Error())
	assert.Nil(t, bw.Bytes())
}

func TestBufBinWriterReset(t *testing.T) {
	bw := NewBufBinWriter()
	for i := 0; i < 3; i++ {
		bw.WriteU32LE(uint32(i))
		require.NoError(t, bw.Error())
		_ = bw.Bytes()
		require.NoError(t, bw.Error())
		bw.SetError(errors.New("forced"))
		require.Error(t, bw.Error())
		bw.Reset()
		require.NoError(t, bw.Error())
	}
}

func TestWriteString(t *testing.T) {
	str := "listener-address"

	bw := NewBufBinWriter()
	bw.WriteString(str)
	require.NoError(t, bw.Error())
	out := bw.Bytes()
	require.Equal(t, len(str)+1, len(out)) // +1 byte for the length prefix

	br := NewBinReaderFromBuf(out)
	assert.Equal(t, str, br.ReadString())
	assert.NoError(t, br.Err)
}

func TestWriteVarUint(t *testing.T) {
	cases := []struct {
		name      string
		val       uint64
		wantLen   int
		wantFirst byte
	}{
		{"single byte", 1, 1, 0x01},
		{"two-byte marker", 1000, 3, 0xfd},
		{"four-byte marker", 100000, 5, 0xfe},
		{"eight-byte marker", 1000000000000, 9, 0xff},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bw := NewBufBinWriter()
			bw.WriteVarUint(tc.val)
			require.NoError(t, bw.Error())
			buf := bw.Bytes()
			require.Equal(t, tc.wantLen, len(buf))
			require.Equal(t, tc.wantFirst, buf[0])

			br := NewBinReaderFromBuf(buf)
			assert.Equal(t, tc.val, br.ReadVarUint())
			assert.NoError(t, br.Err)
		})
	}
}

func TestWriteBytes(t *testing.T) {
	bin := []byte{0xde, 0xad, 0xbe, 0xef}

	bw := NewBufBinWriter()
	bw.WriteBytes(bin)
	require.NoError(t, bw.Error())
	buf := bw.Bytes()
	require.Equal(t, 4, len(buf))
	require.Equal(t, byte(0xde), buf[0])

	bw = NewBufBinWriter()
	bw.SetError(errors.New("smth bad"))
	bw.WriteBytes(bin)
	require.Equal(t, 0, bw.Len())
}

// fixedSample is a value-receiver Serializable used to exercise WriteArray
// and ReadArray against slices of values rather than pointers.
type fixedSample uint16

// EncodeBinary implements Serializable.
func (s fixedSample) EncodeBinary(w BinaryWriter) {
	w.WriteU16LE(uint16(s))
}

// DecodeBinary implements Serializable.
func (s *fixedSample) DecodeBinary(r BinaryReader) {
	*s = fixedSample(r.ReadU16LE())
}

// fixedSampleRef is the pointer-receiver counterpart of fixedSample.
type fixedSampleRef uint16

// EncodeBinary implements Serializable.
func (s *fixedSampleRef) EncodeBinary(w BinaryWriter) {
	w.WriteU16LE(uint16(*s))
}

// DecodeBinary implements Serializable.
func (s *fixedSampleRef) DecodeBinary(r BinaryReader) {
	*s = fixedSampleRef(r.ReadU16LE())
}

func TestWriteArray(t *testing.T) {
	var arr [3]fixedSample
	for i := range arr {
		arr[i] = fixedSample(i)
	}
	expected := []byte{3, 0, 0, 1, 0, 2, 0}

	w := NewBufBinWriter()
	w.WriteArray(arr)
	require.NoError(t, w.Error())
	require.Equal(t, expected, w.Bytes())

	w.Reset()
	w.WriteArray(arr[:])
	require.NoError(t, w.Error())
	require.Equal(t, expected, w.Bytes())

	w.Reset()
	require.Panics(t, func() { w.WriteArray(1) })

	w.Reset()
	w.SetError(errors.New("error"))
	w.WriteArray(arr[:])
	require.Error(t, w.Error())
	require.Equal(t, []byte(nil), w.Bytes())

	w.Reset()
	require.Panics(t, func() { w.WriteArray([]int{1}) })

	w.Reset()
	require.Panics(t, func() { w.WriteArray(make(chan fixedSample)) })

	var arrRef [3]fixedSampleRef
	for i := range arrRef {
		arrRef[i] = fixedSampleRef(i)
	}
	w.Reset()
	w.WriteArray(arrRef[:])
	require.NoError(t, w.Error())
	require.Equal(t, expected, w.Bytes())
}

func TestReadArray(t *testing.T) {
	data := []byte{3, 0, 0, 1, 0, 2, 0}
	elems := []fixedSample{0, 1, 2}

	r := NewBinReaderFromBuf(data)
	var refs []*fixedSample
	r.ReadArray(&refs)
	require.NoError(t, r.Err)
	require.Equal(t, []*fixedSample{&elems[0], &elems[1], &elems[2]}, refs)

	r = NewBinReaderFromBuf(data)
	vals := []fixedSample{}
	r.ReadArray(&vals)
	require.NoError(t, r.Err)
	require.Equal(t, elems, vals)

	r = NewBinReaderFromBuf(data)
	vals = []fixedSample{}
	r.ReadArray(&vals, 3)
	require.NoError(t, r.Err)
	require.Equal(t, elems, vals)

	r = NewBinReaderFromBuf(data)
	vals = []fixedSample{}
	r.ReadArray(&vals, 2)
	require.Error(t, r.Err)

	r = NewBinReaderFromBuf([]byte{0})
	vals = []fixedSample{}
	r.ReadArray(&vals)
	require.NoError(t, r.Err)
	require.Equal(t, []fixedSample{}, vals)

	r = NewBinReaderFromBuf([]byte{0})
	r.Err = errors.New("error")
	vals = nil
	r.ReadArray(&vals)
	require.Error(t, r.Err)
	require.Nil(t, vals)

	r = NewBinReaderFromBuf([]byte{0})
	vals = []fixedSample{1, 2}
	r.ReadArray(&vals)
	require.NoError(t, r.Err)
	require.Equal(t, []fixedSample{}, vals)

	r = NewBinReaderFromBuf([]byte{1})
	require.Panics(t, func() { r.ReadArray(&[]int{1}) })

	r = NewBinReaderFromBuf([]byte{0})
	r.Err = errors.New("error")
	require.Panics(t, func() { r.ReadArray(1) })
}

func TestReadBytesPartial(t *testing.T) {
	data := []byte{0, 1, 2, 3, 4, 5, 6, 7}
	r := NewBinReaderFromBuf(data)

	buf := make([]byte, 4)
	r.ReadBytes(buf)
	require.NoError(t, r.Err)
	require.Equal(t, data[:4], buf)

	r.ReadBytes([]byte{})
	require.NoError(t, r.Err)

	buf = make([]byte, 3)
	r.ReadBytes(buf)
	require.NoError(t, r.Err)
	require.Equal(t, data[4:7], buf)

	buf = make([]byte, 2)
	r.ReadBytes(buf)
	require.Error(t, r.Err)

	r.ReadBytes([]byte{})
	require.Error(t, r.Err)
}
