package network

import (
	"fmt"

	"github.com/niklaslong/snarkos-network/pkg/io"
	"github.com/niklaslong/snarkos-network/pkg/util"
)

// PayloadKind tags the variant of a Payload on the wire.
type PayloadKind byte

// Payload variants, tag byte first on the wire.
const (
	PayloadKindTransaction PayloadKind = iota
	PayloadKindBlock
	PayloadKindSyncBlock
	PayloadKindGetBlocks
	PayloadKindGetMemoryPool
	PayloadKindMemoryPool
	PayloadKindGetSync
	PayloadKindSync
	PayloadKindGetPeers
	PayloadKindPeers
	PayloadKindPing
	PayloadKindPong
	PayloadKindConnectingTo
	PayloadKindConnectedTo
	PayloadKindDisconnect
	PayloadKindUnknown
)

// Payload is the tagged union carried by every Message.
type Payload interface {
	Kind() PayloadKind
	EncodeBinary(w io.BinaryWriter)
	DecodeBinary(r io.BinaryReader)
}

// Transaction carries opaque, consensus-owned transaction bytes.
type Transaction struct{ Data []byte }

// Kind implements Payload.
func (*Transaction) Kind() PayloadKind { return PayloadKindTransaction }

// EncodeBinary implements Payload.
func (p *Transaction) EncodeBinary(w io.BinaryWriter) { w.WriteVarBytes(p.Data) }

// DecodeBinary implements Payload.
func (p *Transaction) DecodeBinary(r io.BinaryReader) { p.Data = r.ReadVarBytes(MaxMessageSize) }

// Block carries opaque, consensus-owned block bytes.
type Block struct{ Data []byte }

// Kind implements Payload.
func (*Block) Kind() PayloadKind { return PayloadKindBlock }

// EncodeBinary implements Payload.
func (p *Block) EncodeBinary(w io.BinaryWriter) { w.WriteVarBytes(p.Data) }

// DecodeBinary implements Payload.
func (p *Block) DecodeBinary(r io.BinaryReader) { p.Data = r.ReadVarBytes(MaxMessageSize) }

// SyncBlock carries one block fetched as part of a bulk sync.
type SyncBlock struct{ Data []byte }

// Kind implements Payload.
func (*SyncBlock) Kind() PayloadKind { return PayloadKindSyncBlock }

// EncodeBinary implements Payload.
func (p *SyncBlock) EncodeBinary(w io.BinaryWriter) { w.WriteVarBytes(p.Data) }

// DecodeBinary implements Payload.
func (p *SyncBlock) DecodeBinary(r io.BinaryReader) { p.Data = r.ReadVarBytes(MaxMessageSize) }

// GetBlocks requests the blocks identified by Hashes.
type GetBlocks struct{ Hashes []util.Uint256 }

// Kind implements Payload.
func (*GetBlocks) Kind() PayloadKind { return PayloadKindGetBlocks }

// EncodeBinary implements Payload.
func (p *GetBlocks) EncodeBinary(w io.BinaryWriter) { writeHashes(w, p.Hashes) }

// DecodeBinary implements Payload.
func (p *GetBlocks) DecodeBinary(r io.BinaryReader) { p.Hashes = readHashes(r) }

// GetMemoryPool requests the sender's memory pool contents.
type GetMemoryPool struct{}

// Kind implements Payload.
func (*GetMemoryPool) Kind() PayloadKind { return PayloadKindGetMemoryPool }

// EncodeBinary implements Payload.
func (*GetMemoryPool) EncodeBinary(io.BinaryWriter) {}

// DecodeBinary implements Payload.
func (*GetMemoryPool) DecodeBinary(io.BinaryReader) {}

// MemoryPool carries a batch of opaque transaction bytes.
type MemoryPool struct{ Transactions [][]byte }

// Kind implements Payload.
func (*MemoryPool) Kind() PayloadKind { return PayloadKindMemoryPool }

// EncodeBinary implements Payload.
func (p *MemoryPool) EncodeBinary(w io.BinaryWriter) {
	w.WriteVarUint(uint64(len(p.Transactions)))
	for _, tx := range p.Transactions {
		w.WriteVarBytes(tx)
	}
}

// DecodeBinary implements Payload.
func (p *MemoryPool) DecodeBinary(r io.BinaryReader) {
	n := int(r.ReadVarUint())
	p.Transactions = make([][]byte, n)
	for i := 0; i < n; i++ {
		p.Transactions[i] = r.ReadVarBytes(MaxMessageSize)
	}
}

// GetSync requests sync blocks starting from Hashes.
type GetSync struct{ Hashes []util.Uint256 }

// Kind implements Payload.
func (*GetSync) Kind() PayloadKind { return PayloadKindGetSync }

// EncodeBinary implements Payload.
func (p *GetSync) EncodeBinary(w io.BinaryWriter) { writeHashes(w, p.Hashes) }

// DecodeBinary implements Payload.
func (p *GetSync) DecodeBinary(r io.BinaryReader) { p.Hashes = readHashes(r) }

// Sync announces the block hashes available for a bulk sync.
type Sync struct{ Hashes []util.Uint256 }

// Kind implements Payload.
func (*Sync) Kind() PayloadKind { return PayloadKindSync }

// EncodeBinary implements Payload.
func (p *Sync) EncodeBinary(w io.BinaryWriter) { writeHashes(w, p.Hashes) }

// DecodeBinary implements Payload.
func (p *Sync) DecodeBinary(r io.BinaryReader) { p.Hashes = readHashes(r) }

// GetPeers requests a Peers reply.
type GetPeers struct{}

// Kind implements Payload.
func (*GetPeers) Kind() PayloadKind { return PayloadKindGetPeers }

// EncodeBinary implements Payload.
func (*GetPeers) EncodeBinary(io.BinaryWriter) {}

// DecodeBinary implements Payload.
func (*GetPeers) DecodeBinary(io.BinaryReader) {}

// Peers discloses a sample of the sender's connected peers.
type Peers struct{ Addresses []PeerAddress }

// Kind implements Payload.
func (*Peers) Kind() PayloadKind { return PayloadKindPeers }

// EncodeBinary implements Payload.
func (p *Peers) EncodeBinary(w io.BinaryWriter) {
	w.WriteVarUint(uint64(len(p.Addresses)))
	for _, a := range p.Addresses {
		w.WriteString(string(a))
	}
}

// DecodeBinary implements Payload.
func (p *Peers) DecodeBinary(r io.BinaryReader) {
	n := int(r.ReadVarUint())
	p.Addresses = make([]PeerAddress, n)
	for i := 0; i < n; i++ {
		p.Addresses[i] = PeerAddress(r.ReadString())
	}
}

// Ping announces the sender's current block height.
type Ping struct{ BlockHeight uint32 }

// Kind implements Payload.
func (*Ping) Kind() PayloadKind { return PayloadKindPing }

// EncodeBinary implements Payload.
func (p *Ping) EncodeBinary(w io.BinaryWriter) { w.WriteU32LE(p.BlockHeight) }

// DecodeBinary implements Payload.
func (p *Ping) DecodeBinary(r io.BinaryReader) { p.BlockHeight = r.ReadU32LE() }

// Pong replies to a Ping.
type Pong struct{}

// Kind implements Payload.
func (*Pong) Kind() PayloadKind { return PayloadKindPong }

// EncodeBinary implements Payload.
func (*Pong) EncodeBinary(io.BinaryWriter) {}

// DecodeBinary implements Payload.
func (*Pong) DecodeBinary(io.BinaryReader) {}

// ConnectingTo is an internal notification that a dial to Address started.
type ConnectingTo struct{ Address PeerAddress }

// Kind implements Payload.
func (*ConnectingTo) Kind() PayloadKind { return PayloadKindConnectingTo }

// EncodeBinary implements Payload.
func (p *ConnectingTo) EncodeBinary(w io.BinaryWriter) { w.WriteString(string(p.Address)) }

// DecodeBinary implements Payload.
func (p *ConnectingTo) DecodeBinary(r io.BinaryReader) { p.Address = PeerAddress(r.ReadString()) }

// ConnectedTo is an internal notification that Remote is now connected,
// reachable at Listener.
type ConnectedTo struct {
	Remote   PeerAddress
	Listener PeerAddress
}

// Kind implements Payload.
func (*ConnectedTo) Kind() PayloadKind { return PayloadKindConnectedTo }

// EncodeBinary implements Payload.
func (p *ConnectedTo) EncodeBinary(w io.BinaryWriter) {
	w.WriteString(string(p.Remote))
	w.WriteString(string(p.Listener))
}

// DecodeBinary implements Payload.
func (p *ConnectedTo) DecodeBinary(r io.BinaryReader) {
	p.Remote = PeerAddress(r.ReadString())
	p.Listener = PeerAddress(r.ReadString())
}

// Disconnect is an internal notification that Address was disconnected.
type Disconnect struct{ Address PeerAddress }

// Kind implements Payload.
func (*Disconnect) Kind() PayloadKind { return PayloadKindDisconnect }

// EncodeBinary implements Payload.
func (p *Disconnect) EncodeBinary(w io.BinaryWriter) { w.WriteString(string(p.Address)) }

// DecodeBinary implements Payload.
func (p *Disconnect) DecodeBinary(r io.BinaryReader) { p.Address = PeerAddress(r.ReadString()) }

// Unknown is produced for any tag byte this codec version does not
// recognize; the connection stays open and the bytes are kept verbatim.
type Unknown struct {
	Tag  byte
	Data []byte
}

// Kind implements Payload.
func (*Unknown) Kind() PayloadKind { return PayloadKindUnknown }

// EncodeBinary implements Payload.
func (p *Unknown) EncodeBinary(w io.BinaryWriter) { w.WriteVarBytes(p.Data) }

// DecodeBinary implements Payload.
func (p *Unknown) DecodeBinary(r io.BinaryReader) { p.Data = r.ReadVarBytes(MaxMessageSize) }

func writeHashes(w io.BinaryWriter, hashes []util.Uint256) {
	w.WriteVarUint(uint64(len(hashes)))
	for _, h := range hashes {
		w.WriteBytes(h.BytesLE())
	}
}

func readHashes(r io.BinaryReader) []util.Uint256 {
	n := int(r.ReadVarUint())
	hashes := make([]util.Uint256, n)
	for i := 0; i < n; i++ {
		buf := make([]byte, util.Uint256Size)
		r.ReadBytes(buf)
		copy(hashes[i][:], buf)
	}
	return hashes
}

// newPayload allocates the zero value for a given PayloadKind, ready for
// DecodeBinary, or an *Unknown carrying the raw tag for unrecognized kinds.
func newPayload(kind PayloadKind) Payload {
	switch kind {
	case PayloadKindTransaction:
		return &Transaction{}
	case PayloadKindBlock:
		return &Block{}
	case PayloadKindSyncBlock:
		return &SyncBlock{}
	case PayloadKindGetBlocks:
		return &GetBlocks{}
	case PayloadKindGetMemoryPool:
		return &GetMemoryPool{}
	case PayloadKindMemoryPool:
		return &MemoryPool{}
	case PayloadKindGetSync:
		return &GetSync{}
	case PayloadKindSync:
		return &Sync{}
	case PayloadKindGetPeers:
		return &GetPeers{}
	case PayloadKindPeers:
		return &Peers{}
	case PayloadKindPing:
		return &Ping{}
	case PayloadKindPong:
		return &Pong{}
	case PayloadKindConnectingTo:
		return &ConnectingTo{}
	case PayloadKindConnectedTo:
		return &ConnectedTo{}
	case PayloadKindDisconnect:
		return &Disconnect{}
	default:
		return &Unknown{}
	}
}

func (k PayloadKind) String() string {
	switch k {
	case PayloadKindTransaction:
		return "Transaction"
	case PayloadKindBlock:
		return "Block"
	case PayloadKindSyncBlock:
		return "SyncBlock"
	case PayloadKindGetBlocks:
		return "GetBlocks"
	case PayloadKindGetMemoryPool:
		return "GetMemoryPool"
	case PayloadKindMemoryPool:
		return "MemoryPool"
	case PayloadKindGetSync:
		return "GetSync"
	case PayloadKindSync:
		return "Sync"
	case PayloadKindGetPeers:
		return "GetPeers"
	case PayloadKindPeers:
		return "Peers"
	case PayloadKindPing:
		return "Ping"
	case PayloadKindPong:
		return "Pong"
	case PayloadKindConnectingTo:
		return "ConnectingTo"
	case PayloadKindConnectedTo:
		return "ConnectedTo"
	case PayloadKindDisconnect:
		return "Disconnect"
	default:
		return fmt.Sprintf("Unknown(%d)", byte(k))
	}
}
