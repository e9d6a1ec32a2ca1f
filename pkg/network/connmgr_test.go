package network

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niklaslong/snarkos-network/pkg/config"
)

func TestCanConnectPolicy(t *testing.T) {
	book := NewPeerBook(nil)
	m := newTestConnMgr(t, config.P2P{MaxPeers: 2}, book)

	assert.ErrorIs(t, m.CanConnect("127.0.0.1:9"), ErrSelfConnectAttempt)

	book.SetConnected("10.0.0.1:1", nil)
	assert.ErrorIs(t, m.CanConnect("10.0.0.1:1"), ErrPeerAlreadyConnected)

	require.NoError(t, book.SetConnecting("10.0.0.2:2"))
	assert.ErrorIs(t, m.CanConnect("10.0.0.2:2"), ErrPeerAlreadyConnecting)

	// 1 connected + 1 connecting fills the window of 2.
	assert.ErrorIs(t, m.CanConnect("10.0.0.3:3"), ErrTooManyConnections)
}

func TestDisconnectFromPeerRemovesOutboundChannel(t *testing.T) {
	book := NewPeerBook(nil)
	outbound := NewOutboundRouter(nil, 4)
	inbound := make(chan Message, 1)
	m := NewConnectionManager(nil, config.P2P{}, book, outbound, inbound, "127.0.0.1:9", 1)

	addr := PeerAddress("10.0.0.4:4")
	book.SetConnected(addr, nil)
	ch := outbound.Register(addr)

	require.True(t, m.DisconnectFromPeer(addr, nil))
	_, ok := <-ch
	assert.False(t, ok, "the writer task must observe the channel close")

	outbound.Send(addr, &Pong{})
	assert.Equal(t, uint64(1), outbound.Dropped(), "sends after disconnect must drop")
}

// timeoutErr satisfies net.Error with Timeout() == true.
type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestHandshakeFailureClassification(t *testing.T) {
	book := NewPeerBook(nil)
	m := newTestConnMgr(t, config.P2P{}, book)
	addr := PeerAddress("10.0.0.5:5")
	book.AddPeer(addr)

	classified := m.recordHandshakeFailure(addr, true, timeoutErr{})
	assert.ErrorIs(t, classified, ErrHandshakeTimeout)
	info, ok := book.GetPeer(addr, false)
	require.True(t, ok)
	assert.True(t, info.IsRoutable, "a handshake timeout must keep the peer routable")

	bad := errors.New("malformed noise segment")
	classified = m.recordHandshakeFailure(addr, true, bad)
	assert.Equal(t, bad, classified)
	assert.False(t, info.IsRoutable, "an invalid handshake must mark the peer unroutable")
}
