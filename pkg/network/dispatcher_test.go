package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niklaslong/snarkos-network/pkg/util"
)

func newTestDispatcher(book *PeerBook, outbound *OutboundRouter, topology *NetworkTopology, consensus Consensus, isBootnode bool) *InboundDispatcher {
	return NewInboundDispatcher(nil, book, outbound, topology, consensus, isBootnode, "127.0.0.1:9", 8)
}

// TestBootnodeFiltersNonGetPeersInbound checks that a bootnode drops every
// inbound payload other than GetPeers.
func TestBootnodeFiltersNonGetPeersInbound(t *testing.T) {
	book := NewPeerBook(nil)
	from := PeerAddress("10.0.0.5:5")
	book.SetConnected(from, nil)
	d := newTestDispatcher(book, NewOutboundRouter(nil, 4), nil, nil, true)

	d.dispatch(Message{Direction: Inbound(from), Payload: &Ping{BlockHeight: 1}})

	info, ok := book.GetPeer(from, false)
	require.True(t, ok)
	assert.Equal(t, uint32(0), info.Quality.BlockHeight(), "a bootnode must ignore non-GetPeers inbound payloads")
}

// TestBootnodeAllowsGetPeers checks the one carve-out of the bootnode
// inbound filter.
func TestBootnodeAllowsGetPeers(t *testing.T) {
	book := NewPeerBook(nil)
	from := PeerAddress("10.0.0.6:6")
	book.SetConnected(from, nil)
	outbound := NewOutboundRouter(nil, 4)
	ch := outbound.Register(from)
	d := newTestDispatcher(book, outbound, nil, nil, true)

	d.dispatch(Message{Direction: Inbound(from), Payload: &GetPeers{}})
	select {
	case msg := <-ch:
		_, ok := msg.(*Peers)
		assert.True(t, ok, "GetPeers must still be served by a bootnode")
	default:
		t.Fatal("expected a Peers reply")
	}
}

// TestSyncAlwaysArmsCountdown checks that, unlike
// GetBlocks/GetMemoryPool/GetSync, a received Sync always arms the sync
// countdown, even while a block sync is already in flight.
func TestSyncAlwaysArmsCountdown(t *testing.T) {
	for _, syncing := range []bool{true, false} {
		book := NewPeerBook(nil)
		from := PeerAddress("10.0.0.7:7")
		book.SetConnected(from, nil)
		consensus := &fakeConsensus{syncingBlocks: syncing}
		d := newTestDispatcher(book, NewOutboundRouter(nil, 4), nil, consensus, false)

		hash, err := util.Uint256DecodeBytesLE(make([]byte, 32))
		require.NoError(t, err)
		d.dispatch(Message{Direction: Inbound(from), Payload: &Sync{Hashes: []util.Uint256{hash}}})

		info, ok := book.GetPeer(from, false)
		require.True(t, ok)
		assert.Equal(t, uint32(1), info.Quality.RemainingSyncBlocks(), "Sync must always arm the countdown, syncingBlocks=%v", syncing)
	}
}

// TestGetBlocksGatedOnInFlightBlockSync checks the guard on the
// *GetBlocks/*GetMemoryPool/*GetSync cases: we don't serve those requests
// while syncing ourselves.
func TestGetBlocksGatedOnInFlightBlockSync(t *testing.T) {
	book := NewPeerBook(nil)
	from := PeerAddress("10.0.0.7:7")
	book.SetConnected(from, nil)
	consensus := &fakeConsensus{syncingBlocks: true}
	d := newTestDispatcher(book, NewOutboundRouter(nil, 4), nil, consensus, false)

	hash, err := util.Uint256DecodeBytesLE(make([]byte, 32))
	require.NoError(t, err)
	d.dispatch(Message{Direction: Inbound(from), Payload: &GetBlocks{Hashes: []util.Uint256{hash}}})
	d.dispatch(Message{Direction: Inbound(from), Payload: &GetMemoryPool{}})
	d.dispatch(Message{Direction: Inbound(from), Payload: &GetSync{Hashes: []util.Uint256{hash}}})

	assert.False(t, consensus.gotGetBlocks, "must not serve GetBlocks while syncing")
	assert.False(t, consensus.gotGetMemPool, "must not serve GetMemoryPool while syncing")
	assert.False(t, consensus.gotGetSync, "must not serve GetSync while syncing")
}

// TestGetBlocksServedWhenIdle is the complementary case: no block sync in
// flight, so GetBlocks/GetMemoryPool/GetSync are all forwarded.
func TestGetBlocksServedWhenIdle(t *testing.T) {
	book := NewPeerBook(nil)
	from := PeerAddress("10.0.0.8:8")
	book.SetConnected(from, nil)
	consensus := &fakeConsensus{syncingBlocks: false}
	d := newTestDispatcher(book, NewOutboundRouter(nil, 4), nil, consensus, false)

	hash, err := util.Uint256DecodeBytesLE(make([]byte, 32))
	require.NoError(t, err)
	d.dispatch(Message{Direction: Inbound(from), Payload: &GetBlocks{Hashes: []util.Uint256{hash}}})
	d.dispatch(Message{Direction: Inbound(from), Payload: &GetMemoryPool{}})
	d.dispatch(Message{Direction: Inbound(from), Payload: &GetSync{Hashes: []util.Uint256{hash}}})

	assert.True(t, consensus.gotGetBlocks)
	assert.True(t, consensus.gotGetMemPool)
	assert.True(t, consensus.gotGetSync)
}

// TestPingTriggersBlockSyncWhenBehind checks the Ping handler's
// sync-scheduling trigger.
func TestPingTriggersBlockSyncWhenBehind(t *testing.T) {
	book := NewPeerBook(nil)
	from := PeerAddress("10.0.0.9:9")
	book.SetConnected(from, nil)
	consensus := &fakeConsensus{}
	d := newTestDispatcher(book, NewOutboundRouter(nil, 4), nil, consensus, false)

	d.dispatch(Message{Direction: Inbound(from), Payload: &Ping{BlockHeight: 100}})

	info, ok := book.GetPeer(from, false)
	require.True(t, ok)
	assert.Equal(t, uint32(100), info.Quality.BlockHeight())
	assert.Equal(t, from, consensus.blocksFrom, "a Ping from a peer ahead of us must schedule a block sync against it")
}

// TestPeersMergeSkipsOwnAddress checks the *Peers handling: the local
// address must never be re-added to the book, and the topology is updated.
func TestPeersMergeSkipsOwnAddress(t *testing.T) {
	book := NewPeerBook(nil)
	from := PeerAddress("10.0.0.10:10")
	book.SetConnected(from, nil)
	topology := NewNetworkTopology()
	d := newTestDispatcher(book, NewOutboundRouter(nil, 4), topology, nil, false)

	self := PeerAddress("127.0.0.1:9")
	other := PeerAddress("10.0.0.11:11")
	d.dispatch(Message{Direction: Inbound(from), Payload: &Peers{Addresses: []PeerAddress{self, other}}})

	assert.False(t, book.IsDisconnected(self))
	assert.True(t, book.IsDisconnected(other))
	assert.Contains(t, topology.Connections(), NewConnection(from, other))
}
