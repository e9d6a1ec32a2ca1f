package network

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/niklaslong/snarkos-network/pkg/config"
)

// ConnectionManager owns the listening socket and every dial attempt; it is
// the only component that opens or closes a net.Conn. Handshake success
// hands a connection's reader and writer halves off as two long-lived tasks
// registered against the peer's PeerInfo.
type ConnectionManager struct {
	log *zap.Logger
	cfg config.P2P

	book     *PeerBook
	outbound *OutboundRouter
	inbound  chan<- Message

	localAddress PeerAddress
	nodeID       uint64
	bootnodes    map[PeerAddress]struct{}
}

// NewConnectionManager builds a ConnectionManager. localAddress is this
// node's own externally-reachable "host:port", used for self-connect
// detection and as the ListenerPort advertised during the handshake.
// nodeID uniquely identifies this node's Version record.
func NewConnectionManager(log *zap.Logger, cfg config.P2P, book *PeerBook, outbound *OutboundRouter, inbound chan<- Message, localAddress PeerAddress, nodeID uint64) *ConnectionManager {
	if log == nil {
		log = zap.NewNop()
	}
	bootnodes := make(map[PeerAddress]struct{}, len(cfg.BootNodes))
	for _, b := range cfg.BootNodes {
		if addr, err := ParsePeerAddress(b); err == nil {
			bootnodes[addr] = struct{}{}
		}
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = HandshakePeerTimeout
	}
	if cfg.BootHandshakeTimeout <= 0 {
		cfg.BootHandshakeTimeout = HandshakeBootnodeTimeout
	}
	return &ConnectionManager{
		log:          log,
		cfg:          cfg,
		book:         book,
		outbound:     outbound,
		inbound:      inbound,
		localAddress: localAddress,
		nodeID:       nodeID,
		bootnodes:    bootnodes,
	}
}

// IsBootnode reports whether addr is configured as one of this node's
// bootnodes, which governs the handshake timeout applied to it.
func (m *ConnectionManager) IsBootnode(addr PeerAddress) bool {
	_, ok := m.bootnodes[addr]
	return ok
}

// CanConnect reports whether addr is a legal dial target right now: not
// ourselves, not already connecting or connected, and within MaxPeers,
// counting attempts already in flight toward the cap.
func (m *ConnectionManager) CanConnect(addr PeerAddress) error {
	if addr == m.localAddress {
		return ErrSelfConnectAttempt
	}
	if m.book.IsConnected(addr) {
		return ErrPeerAlreadyConnected
	}
	if m.book.IsConnecting(addr) {
		return ErrPeerAlreadyConnecting
	}
	if m.cfg.MaxPeers > 0 && m.book.NumConnected()+m.book.NumConnecting() >= m.cfg.MaxPeers {
		return ErrTooManyConnections
	}
	return nil
}

// ConnectToBootnodes attempts a connection to every configured bootnode not
// already connecting or connected.
func (m *ConnectionManager) ConnectToBootnodes(ctx context.Context) {
	for addr := range m.bootnodes {
		m.InitiateConnection(ctx, addr)
	}
}

// ConnectToRandomDisconnectedPeers dials a random sample of up to n
// disconnected, non-bootnode peers.
func (m *ConnectionManager) ConnectToRandomDisconnectedPeers(ctx context.Context, n int) {
	if n <= 0 {
		return
	}
	candidates := m.book.DisconnectedPeers()
	rand.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })

	attempted := 0
	for _, addr := range candidates {
		if attempted >= n {
			return
		}
		if m.IsBootnode(addr) {
			continue
		}
		if m.CanConnect(addr) != nil {
			continue
		}
		m.InitiateConnection(ctx, addr)
		attempted++
	}
}

// InitiateConnection dials addr, performs the initiator side of the
// handshake and, on success, installs the connection's reader/writer tasks.
// Every failure path leaves addr back in the disconnected set and is only
// ever logged; nothing here propagates to the caller.
func (m *ConnectionManager) InitiateConnection(ctx context.Context, addr PeerAddress) {
	if err := m.CanConnect(addr); err != nil {
		m.log.Debug("skipping connection attempt", zap.String("address", string(addr)), zap.Error(err))
		return
	}
	if err := m.book.SetConnecting(addr); err != nil {
		m.log.Debug("connect attempt aborted", zap.String("address", string(addr)), zap.Error(err))
		return
	}
	connectionsAllInitiated.Inc()

	dialer := net.Dialer{Timeout: m.cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", string(addr))
	if err != nil {
		m.log.Debug("dial failed", zap.String("address", string(addr)), zap.Error(err))
		m.book.SetDisconnected(addr)
		if !isTimeout(err) {
			m.book.SetUnroutable(addr)
		}
		return
	}

	handshakeTimeout := m.cfg.HandshakeTimeout
	if m.IsBootnode(addr) {
		handshakeTimeout = m.cfg.BootHandshakeTimeout
	}
	own := NewVersion(m.localAddress.Port(), m.nodeID)

	_ = conn.SetDeadline(time.Now().Add(handshakeTimeout))
	_, reader, writer, err := DialHandshake(conn, own)
	_ = conn.SetDeadline(time.Time{})
	if err != nil {
		conn.Close()
		m.book.SetDisconnected(addr)
		classified := m.recordHandshakeFailure(addr, true, err)
		m.log.Debug("handshake failed", zap.String("address", string(addr)), zap.Error(classified))
		return
	}
	handshakesSuccessesInit.Inc()

	info := m.book.SetConnected(addr, nil)
	m.installConnection(ctx, info.Address, conn, reader, writer)
	m.log.Info("connected to peer", zap.String("address", string(info.Address)))
}

// Listen accepts inbound connections on cfg.LocalBindAddress until ctx is
// cancelled.
func (m *ConnectionManager) Listen(ctx context.Context) error {
	ln, err := net.Listen("tcp", m.cfg.LocalBindAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", m.cfg.LocalBindAddress, err)
	}
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			m.log.Warn("accept failed", zap.Error(err))
			return err
		}
		connectionsAllAccepted.Inc()
		go m.acceptConnection(ctx, conn)
	}
}

// acceptConnection runs the responder side of the handshake for a freshly
// accepted socket.
func (m *ConnectionManager) acceptConnection(ctx context.Context, conn net.Conn) {
	if m.cfg.MaxPeers > 0 && m.book.NumConnected() >= m.cfg.MaxPeers {
		m.log.Debug("rejecting inbound connection, too many peers", zap.String("remote", conn.RemoteAddr().String()))
		conn.Close()
		return
	}

	own := NewVersion(m.localAddress.Port(), m.nodeID)
	_ = conn.SetDeadline(time.Now().Add(m.cfg.HandshakeTimeout))
	peerVersion, reader, writer, err := AcceptHandshake(conn, own)
	_ = conn.SetDeadline(time.Time{})
	if err != nil {
		conn.Close()
		classified := m.recordHandshakeFailure("", false, err)
		m.log.Debug("inbound handshake failed", zap.String("remote", conn.RemoteAddr().String()), zap.Error(classified))
		return
	}
	handshakesSuccessesResp.Inc()

	remoteHost, _, splitErr := net.SplitHostPort(conn.RemoteAddr().String())
	if splitErr != nil {
		conn.Close()
		return
	}
	listener := NewPeerAddress(net.ParseIP(remoteHost), peerVersion.ListenerPort)
	if listener == m.localAddress {
		conn.Close()
		return
	}

	info := m.book.SetConnected(listener, &listener)
	m.installConnection(ctx, info.Address, conn, reader, writer)
	m.log.Info("accepted connection from peer", zap.String("address", string(info.Address)))
}

// installConnection registers the reader/writer tasks for a freshly
// connected peer and spins up their goroutines.
func (m *ConnectionManager) installConnection(ctx context.Context, key PeerAddress, conn net.Conn, reader *ConnReader, writer *ConnWriter) {
	info, ok := m.book.GetPeer(key, true)
	if !ok {
		conn.Close()
		return
	}

	info.registerTask(peerTask{
		abortable: true,
		cancel:    func() { reader.Close() },
	})

	done := make(chan struct{})
	info.registerTask(peerTask{done: done})

	outboundCh := m.outbound.Register(key)
	go m.runReader(ctx, key, reader)
	go m.runWriter(key, writer, outboundCh, done)
}

func (m *ConnectionManager) runReader(ctx context.Context, key PeerAddress, reader *ConnReader) {
	for {
		payload, err := reader.ReadPayload()
		if err != nil {
			m.log.Debug("reader stopped", zap.String("address", string(key)), zap.Error(err))
			m.DisconnectFromPeer(key, err)
			return
		}
		select {
		case m.inbound <- Message{Direction: Inbound(key), Payload: payload}:
		case <-ctx.Done():
			return
		}
	}
}

func (m *ConnectionManager) runWriter(key PeerAddress, writer *ConnWriter, ch <-chan Payload, done chan<- struct{}) {
	defer close(done)
	defer writer.Close()
	for payload := range ch {
		if err := writer.WritePayload(payload); err != nil {
			m.log.Debug("writer stopped", zap.String("address", string(key)), zap.Error(err))
			m.DisconnectFromPeer(key, err)
			return
		}
	}
}

// DisconnectFromPeer moves addr to the disconnected set, cancelling its
// reader and letting its writer drain, and reports whether it had been
// connected.
func (m *ConnectionManager) DisconnectFromPeer(addr PeerAddress, reason error) bool {
	wasConnected := m.book.SetDisconnected(addr)
	m.outbound.Remove(addr)
	if wasConnected {
		m.log.Info("disconnected from peer", zap.String("address", string(addr)), zap.Error(reason))
	}
	return wasConnected
}

// recordHandshakeFailure tallies the failure and, for an initiator-side
// non-timeout failure (an invalid handshake), marks addr unroutable;
// a timeout leaves the peer routable. It returns the classified error:
// ErrHandshakeTimeout when the deadline elapsed, err unchanged otherwise.
func (m *ConnectionManager) recordHandshakeFailure(addr PeerAddress, initiator bool, err error) error {
	timedOut := isTimeout(err)
	switch {
	case initiator && timedOut:
		handshakesTimeoutsInit.Inc()
	case initiator:
		handshakesFailuresInit.Inc()
		m.book.SetUnroutable(addr)
	case timedOut:
		handshakesTimeoutsResp.Inc()
	default:
		handshakesFailuresResp.Inc()
	}
	if timedOut {
		return ErrHandshakeTimeout
	}
	return err
}

// isTimeout reports whether err is a network timeout, the signal that
// distinguishes ErrHandshakeTimeout (peer stays routable) from
// ErrInvalidHandshake (peer marked unroutable).
func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
