package network

import (
	"encoding/binary"
	"fmt"
	goio "io"

	"github.com/niklaslong/snarkos-network/pkg/io"
)

// DirectionKind distinguishes where a Message came from or is headed.
type DirectionKind int

// Direction kinds.
const (
	DirectionInbound DirectionKind = iota
	DirectionOutbound
	DirectionInternal
)

// Direction tags a Message's source (Inbound), destination (Outbound), or
// marks it as internally generated (Internal), which carries no address.
type Direction struct {
	Kind    DirectionKind
	Address PeerAddress
}

// Inbound builds a Direction for a message received from addr.
func Inbound(addr PeerAddress) Direction { return Direction{Kind: DirectionInbound, Address: addr} }

// Outbound builds a Direction for a message destined for addr.
func Outbound(addr PeerAddress) Direction { return Direction{Kind: DirectionOutbound, Address: addr} }

// Internal is the Direction for internally generated notifications.
var Internal = Direction{Kind: DirectionInternal}

// Message pairs a Payload with the Direction it travelled.
type Message struct {
	Direction Direction
	Payload   Payload
}

// encodePayload serializes a tagged payload: one kind byte followed by its
// EncodeBinary output.
func encodePayload(p Payload) ([]byte, error) {
	bw := io.NewBufBinWriter()
	bw.WriteB(byte(p.Kind()))
	p.EncodeBinary(bw.BinWriter)
	if err := bw.Error(); err != nil {
		return nil, err
	}
	return bw.Bytes(), nil
}

// decodePayload parses a tagged payload. An unrecognized kind byte decodes
// to *Unknown rather than failing.
func decodePayload(b []byte) (Payload, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidHandshake)
	}
	kind := PayloadKind(b[0])
	r := io.NewBinReaderFromBuf(b[1:])
	p := newPayload(kind)
	if unk, ok := p.(*Unknown); ok {
		unk.Tag = b[0]
		unk.Data = append([]byte(nil), b[1:]...)
		return unk, nil
	}
	p.DecodeBinary(r)
	if r.Err != nil {
		return nil, r.Err
	}
	return p, nil
}

// WriteFrame encodes payload and writes it to w as a 4-byte big-endian
// length prefix followed by the encoded bytes, the framing used once a
// connection has entered transport mode.
func WriteFrame(w goio.Writer, payload Payload) error {
	body, err := encodePayload(payload)
	if err != nil {
		return err
	}
	if len(body) > MaxMessageSize {
		return ErrMessageTooLarge
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(body)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err = w.Write(body)
	return err
}

// ReadFrame reads one length-prefixed payload from r.
func ReadFrame(r goio.Reader) (Payload, error) {
	var lenBuf [4]byte
	if _, err := goio.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > MaxMessageSize {
		return nil, ErrMessageTooLarge
	}
	body := make([]byte, n)
	if _, err := goio.ReadFull(r, body); err != nil {
		return nil, err
	}
	return decodePayload(body)
}
