package network

import (
	"github.com/niklaslong/snarkos-network/pkg/io"
)

// Version is the handshake record exchanged as the payload of the second
// and third Noise messages.
type Version struct {
	ProtocolVersion uint32
	ListenerPort    uint16
	NodeID          uint64
}

// NewVersion builds a Version for this node.
func NewVersion(listenerPort uint16, nodeID uint64) Version {
	return Version{
		ProtocolVersion: ProtocolVersion,
		ListenerPort:    listenerPort,
		NodeID:          nodeID,
	}
}

// EncodeBinary writes the deterministic little-endian encoding of v.
func (v Version) EncodeBinary(w io.BinaryWriter) {
	w.WriteU32LE(v.ProtocolVersion)
	w.WriteU16LE(v.ListenerPort)
	w.WriteU64LE(v.NodeID)
}

// DecodeBinary reads a Version previously written by EncodeBinary.
func (v *Version) DecodeBinary(r io.BinaryReader) {
	v.ProtocolVersion = r.ReadU32LE()
	v.ListenerPort = r.ReadU16LE()
	v.NodeID = r.ReadU64LE()
}

// Bytes serializes v into a fresh byte slice.
func (v Version) Bytes() []byte {
	bw := io.NewBufBinWriter()
	v.EncodeBinary(bw.BinWriter)
	return bw.Bytes()
}

// DecodeVersion deserializes a Version from b. Decoding failures are
// reported as ErrInvalidHandshake.
func DecodeVersion(b []byte) (Version, error) {
	r := io.NewBinReaderFromBuf(b)
	var v Version
	v.DecodeBinary(r)
	if r.Err != nil {
		return Version{}, ErrInvalidHandshake
	}
	return v, nil
}
