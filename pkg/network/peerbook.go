package network

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/niklaslong/snarkos-network/pkg/io"
)

// PeerBook owns the three mutually disjoint peer sets and every quality
// mutation on a connected peer. Each map is guarded by its own RWMutex so
// that, say, a dispatcher scanning connected peers never blocks a maintenance
// tick scanning disconnected ones. The canonical lock acquisition order
// when an operation spans maps is disconnected, connecting, connected.
type PeerBook struct {
	log *zap.Logger

	connectingMu sync.RWMutex
	connecting   map[PeerAddress]struct{}

	connectedMu sync.RWMutex
	connected   map[PeerAddress]*PeerInfo

	disconnectedMu sync.RWMutex
	disconnected   map[PeerAddress]*PeerInfo
}

// NewPeerBook creates an empty PeerBook.
func NewPeerBook(log *zap.Logger) *PeerBook {
	if log == nil {
		log = zap.NewNop()
	}
	return &PeerBook{
		log:          log,
		connecting:   make(map[PeerAddress]struct{}),
		connected:    make(map[PeerAddress]*PeerInfo),
		disconnected: make(map[PeerAddress]*PeerInfo),
	}
}

// IsConnecting reports whether addr is in the connecting set.
func (b *PeerBook) IsConnecting(addr PeerAddress) bool {
	b.connectingMu.RLock()
	defer b.connectingMu.RUnlock()
	_, ok := b.connecting[addr]
	return ok
}

// IsConnected reports whether addr is in the connected set.
func (b *PeerBook) IsConnected(addr PeerAddress) bool {
	b.connectedMu.RLock()
	defer b.connectedMu.RUnlock()
	_, ok := b.connected[addr]
	return ok
}

// IsDisconnected reports whether addr is in the disconnected set.
func (b *PeerBook) IsDisconnected(addr PeerAddress) bool {
	b.disconnectedMu.RLock()
	defer b.disconnectedMu.RUnlock()
	_, ok := b.disconnected[addr]
	return ok
}

// NumConnecting returns the size of the connecting set.
func (b *PeerBook) NumConnecting() int {
	b.connectingMu.RLock()
	defer b.connectingMu.RUnlock()
	return len(b.connecting)
}

// NumConnected returns the size of the connected set.
func (b *PeerBook) NumConnected() int {
	b.connectedMu.RLock()
	defer b.connectedMu.RUnlock()
	return len(b.connected)
}

// NumDisconnected returns the size of the disconnected set.
func (b *PeerBook) NumDisconnected() int {
	b.disconnectedMu.RLock()
	defer b.disconnectedMu.RUnlock()
	return len(b.disconnected)
}

// AddPeer is a no-op if addr is already known in any of the three sets;
// otherwise it inserts a fresh, disconnected PeerInfo.
func (b *PeerBook) AddPeer(addr PeerAddress) {
	if b.IsConnecting(addr) || b.IsConnected(addr) || b.IsDisconnected(addr) {
		return
	}
	b.disconnectedMu.Lock()
	defer b.disconnectedMu.Unlock()
	if _, ok := b.disconnected[addr]; ok {
		return
	}
	b.disconnected[addr] = newPeerInfo(addr, b.log)
}

// SetConnecting transitions addr into the connecting set. It is idempotent
// if addr is already connecting, and fails with ErrPeerAlreadyConnected if
// addr is already connected.
func (b *PeerBook) SetConnecting(addr PeerAddress) error {
	if b.IsConnected(addr) {
		return ErrPeerAlreadyConnected
	}
	b.connectingMu.Lock()
	b.connecting[addr] = struct{}{}
	b.connectingMu.Unlock()
	connectionsConnecting.Set(float64(b.NumConnecting()))
	return nil
}

// SetConnected transitions a peer into the connected set. The canonical key
// is listener if given, else addr itself. Any existing PeerInfo under that
// key in disconnected is reused; otherwise a fresh one is created. addr is
// removed from connecting unconditionally. A second SetConnected for an
// already-connected listener is logged and otherwise ignored.
func (b *PeerBook) SetConnected(addr PeerAddress, listener *PeerAddress) *PeerInfo {
	key := addr
	if listener != nil {
		key = *listener
	}

	b.disconnectedMu.Lock()
	info, existed := b.disconnected[key]
	if existed {
		delete(b.disconnected, key)
	}
	b.disconnectedMu.Unlock()
	if !existed {
		info = newPeerInfo(key, b.log)
	}

	b.connectingMu.Lock()
	delete(b.connecting, addr)
	b.connectingMu.Unlock()

	now := time.Now()
	b.connectedMu.Lock()
	if existing, already := b.connected[key]; already {
		b.connectedMu.Unlock()
		b.log.Error("peer is already connected", zap.String("address", string(key)))
		return existing
	}
	info.setConnected(now)
	b.connected[key] = info
	b.connectedMu.Unlock()

	connectionsConnecting.Set(float64(b.NumConnecting()))
	connectionsConnected.Set(float64(b.NumConnected()))
	return info
}

// SetDisconnected moves addr out of connecting or connected. It returns true
// iff addr was previously connected.
func (b *PeerBook) SetDisconnected(addr PeerAddress) bool {
	b.connectingMu.Lock()
	if _, ok := b.connecting[addr]; ok {
		delete(b.connecting, addr)
		b.connectingMu.Unlock()
		connectionsConnecting.Set(float64(b.NumConnecting()))
		return false
	}
	b.connectingMu.Unlock()

	b.connectedMu.Lock()
	info, ok := b.connected[addr]
	if !ok {
		b.connectedMu.Unlock()
		return false
	}
	delete(b.connected, addr)
	b.connectedMu.Unlock()

	info.setDisconnected(time.Now())

	b.disconnectedMu.Lock()
	if _, already := b.disconnected[addr]; already {
		b.log.Error("peer is already disconnected", zap.String("address", string(addr)))
	}
	b.disconnected[addr] = info
	b.disconnectedMu.Unlock()

	connectionsConnected.Set(float64(b.NumConnected()))
	connectionsDisconnected.Set(float64(b.NumDisconnected()))
	return true
}

// SetUnroutable marks addr unroutable, provided it is currently known as
// disconnected.
func (b *PeerBook) SetUnroutable(addr PeerAddress) {
	b.disconnectedMu.Lock()
	defer b.disconnectedMu.Unlock()
	if info, ok := b.disconnected[addr]; ok {
		info.IsRoutable = false
	}
}

// RemovePeer disconnects addr if connected, then erases it entirely.
func (b *PeerBook) RemovePeer(addr PeerAddress) {
	b.SetDisconnected(addr)
	b.disconnectedMu.Lock()
	delete(b.disconnected, addr)
	b.disconnectedMu.Unlock()
}

// GetPeer returns the PeerInfo for addr if connected, or, when
// onlyIfConnected is false, also if disconnected.
func (b *PeerBook) GetPeer(addr PeerAddress, onlyIfConnected bool) (*PeerInfo, bool) {
	b.connectedMu.RLock()
	info, ok := b.connected[addr]
	b.connectedMu.RUnlock()
	if ok || onlyIfConnected {
		return info, ok
	}
	b.disconnectedMu.RLock()
	defer b.disconnectedMu.RUnlock()
	info, ok = b.disconnected[addr]
	return info, ok
}

// ConnectedPeers returns a snapshot of the connected addresses.
func (b *PeerBook) ConnectedPeers() []PeerAddress {
	b.connectedMu.RLock()
	defer b.connectedMu.RUnlock()
	out := make([]PeerAddress, 0, len(b.connected))
	for addr := range b.connected {
		out = append(out, addr)
	}
	return out
}

// DisconnectedPeers returns a snapshot of the disconnected addresses.
func (b *PeerBook) DisconnectedPeers() []PeerAddress {
	b.disconnectedMu.RLock()
	defer b.disconnectedMu.RUnlock()
	out := make([]PeerAddress, 0, len(b.disconnected))
	for addr := range b.disconnected {
		out = append(out, addr)
	}
	return out
}

// ConnectedPeerInfos returns a snapshot of the connected PeerInfo values,
// used by the maintenance loop's disconnect-selection pass.
func (b *PeerBook) ConnectedPeerInfos() []*PeerInfo {
	b.connectedMu.RLock()
	defer b.connectedMu.RUnlock()
	out := make([]*PeerInfo, 0, len(b.connected))
	for _, info := range b.connected {
		out = append(out, info)
	}
	return out
}

// LastSeen returns the connected address with the most recent last-seen
// timestamp, if any peer is connected.
func (b *PeerBook) LastSeen() (PeerAddress, bool) {
	b.connectedMu.RLock()
	defer b.connectedMu.RUnlock()
	var (
		best  PeerAddress
		bestT time.Time
		found bool
	)
	for addr, info := range b.connected {
		t, ok := info.Quality.LastSeen()
		if !ok {
			continue
		}
		if !found || t.After(bestT) {
			best, bestT, found = addr, t, true
		}
	}
	return best, found
}

func (b *PeerBook) quality(addr PeerAddress) (*PeerQuality, bool) {
	b.connectedMu.RLock()
	defer b.connectedMu.RUnlock()
	info, ok := b.connected[addr]
	if !ok {
		return nil, false
	}
	return info.Quality, true
}

// RegisterMessage records the arrival of a message from addr, a no-op if
// addr is not connected.
func (b *PeerBook) RegisterMessage(addr PeerAddress) {
	if q, ok := b.quality(addr); ok {
		q.registerMessage(time.Now())
	} else {
		b.log.Debug("registerMessage from unconnected peer", zap.String("address", string(addr)))
	}
}

// SendingPing records that a Ping was just sent to addr.
func (b *PeerBook) SendingPing(addr PeerAddress) {
	if q, ok := b.quality(addr); ok {
		q.sendingPing(time.Now())
	} else {
		b.log.Warn("sendingPing to unconnected peer", zap.String("address", string(addr)))
	}
}

// ReceivedPing records the block height reported by addr.
func (b *PeerBook) ReceivedPing(addr PeerAddress, blockHeight uint32) {
	if q, ok := b.quality(addr); ok {
		q.receivedPing(blockHeight)
	} else {
		b.log.Warn("receivedPing from unconnected peer", zap.String("address", string(addr)))
	}
}

// ReceivedPong clears the outstanding ping for addr and records RTT, or
// counts a stray pong as a failure.
func (b *PeerBook) ReceivedPong(addr PeerAddress) {
	if q, ok := b.quality(addr); ok {
		q.receivedPong(time.Now())
	} else {
		b.log.Warn("receivedPong from unconnected peer", zap.String("address", string(addr)))
	}
}

// ExpectingSyncBlocks arms the sync-block countdown for addr, reporting
// whether addr was connected.
func (b *PeerBook) ExpectingSyncBlocks(addr PeerAddress, count uint32) bool {
	q, ok := b.quality(addr)
	if !ok {
		b.log.Debug("expectingSyncBlocks for unconnected peer", zap.String("address", string(addr)))
		return false
	}
	q.expectingSyncBlocks(count)
	return true
}

// GotSyncBlock decrements addr's sync-block countdown, reporting whether
// this call is the 1->0 transition; false if addr is not connected.
func (b *PeerBook) GotSyncBlock(addr PeerAddress) bool {
	q, ok := b.quality(addr)
	if !ok {
		return false
	}
	return q.gotSyncBlock()
}

// CancelAnyUnfinishedSyncing zeroes the sync countdown of every connected
// peer, counting a failure for any peer that had one outstanding.
func (b *PeerBook) CancelAnyUnfinishedSyncing() {
	for _, info := range b.ConnectedPeerInfos() {
		if info.Quality.cancelSyncing() {
			b.log.Warn("cancelling unfinished block sync", zap.String("address", string(info.Address)))
			info.Quality.registerFailure()
		}
	}
}

// RegisterFailure increments addr's failure counter, a no-op if addr is not
// connected.
func (b *PeerBook) RegisterFailure(addr PeerAddress) {
	if q, ok := b.quality(addr); ok {
		q.registerFailure()
	}
}

// Snapshot serializes the concatenation of every connected and disconnected
// PeerInfo, loopback addresses filtered out, for handoff to the Storage
// collaborator.
func (b *PeerBook) Snapshot() []byte {
	infos := make([]*PeerInfo, 0, b.NumConnected()+b.NumDisconnected())
	for _, info := range b.ConnectedPeerInfos() {
		if !info.Address.IsLoopback() {
			infos = append(infos, info)
		}
	}
	b.disconnectedMu.RLock()
	for _, info := range b.disconnected {
		if !info.Address.IsLoopback() {
			infos = append(infos, info)
		}
	}
	b.disconnectedMu.RUnlock()

	bw := io.NewBufBinWriter()
	bw.WriteArray(infos)
	return bw.Bytes()
}

// LoadSnapshot restores a snapshot produced by Snapshot into the
// disconnected set only; the connecting and connected sets are always empty
// immediately after a load. Malformed input is logged and ignored.
func (b *PeerBook) LoadSnapshot(data []byte) {
	r := io.NewBinReaderFromBuf(data)
	var infos []*PeerInfo
	r.ReadArray(&infos)
	if r.Err != nil {
		b.log.Warn("failed to decode peer book snapshot", zap.Error(r.Err))
		return
	}

	b.disconnectedMu.Lock()
	defer b.disconnectedMu.Unlock()
	for _, info := range infos {
		if _, ok := b.disconnected[info.Address]; ok {
			continue
		}
		info.log = b.log
		b.disconnected[info.Address] = info
	}
}
