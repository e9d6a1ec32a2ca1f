package network

import "errors"

// Error kinds returned by peer and connection lifecycle operations. None of
// these propagate across task boundaries; each is handled at the call site
// that produced it.
var (
	// ErrPeerAlreadyConnected is returned when a connect attempt targets an
	// address that is already in the connected set.
	ErrPeerAlreadyConnected = errors.New("peer is already connected")
	// ErrPeerAlreadyConnecting is returned when a connect attempt targets an
	// address that is already being connected to.
	ErrPeerAlreadyConnecting = errors.New("peer is already connecting")
	// ErrPeerIsDisconnected is returned when an operation expected an
	// established connection that raced away underneath it.
	ErrPeerIsDisconnected = errors.New("peer is disconnected")
	// ErrSelfConnectAttempt is returned when a node tries to dial itself.
	ErrSelfConnectAttempt = errors.New("attempted to connect to self")
	// ErrTooManyConnections is returned when the connection window is full.
	ErrTooManyConnections = errors.New("too many connections")
	// ErrInvalidHandshake is returned for any protocol violation during the
	// Noise handshake: malformed segments, version mismatch, bad framing.
	ErrInvalidHandshake = errors.New("invalid handshake")
	// ErrHandshakeTimeout is returned when the handshake deadline elapses.
	ErrHandshakeTimeout = errors.New("handshake timed out")
	// ErrReceiverFailedToParse is returned by ConnReader.ReadPayload when a
	// received frame cannot be decrypted or decoded; the reader task stops
	// and the peer is disconnected.
	ErrReceiverFailedToParse = errors.New("inbound receiver failed to parse a message")
	// ErrNoConsensus is surfaced to callers that require a consensus
	// collaborator that was never attached.
	ErrNoConsensus = errors.New("no consensus engine attached")
	// ErrNoKnownNetwork is surfaced to RPC-style callers with no configured
	// network to act on.
	ErrNoKnownNetwork = errors.New("no known network")
	// ErrMessageTooLarge is returned when a frame's length prefix exceeds
	// MaxMessageSize.
	ErrMessageTooLarge = errors.New("message exceeds maximum size")
)
