/*
Package network implements the peer-to-peer networking core: an encrypted
transport handshake, a framed message codec, the peer book state machine,
inbound/outbound routing, connection and maintenance orchestration, and
network topology metrics.
*/
package network

import "time"

// Wire- and protocol-visible constants, the fixed maintenance thresholds, and
// the fallback defaults. OutboundQueueDepth, the handshake timeouts and the
// Default* intervals apply only when config.P2P leaves the corresponding
// setting unset; the other values are not configurable.
const (
	// HandshakePattern names the Noise pattern used for every connection.
	HandshakePattern = "Noise_XXpsk3_25519_ChaChaPoly_SHA256"
	// MaxMessageSize bounds a single decrypted payload.
	MaxMessageSize = 8 * 1024 * 1024
	// NoiseBufLen is the protocol's Noise message buffer size. The handshake
	// code in this package does not size any buffer by it; each handshake
	// segment is capped at 255 bytes by its one-byte length prefix.
	NoiseBufLen = 65535
	// NoiseTagLen is the length of the authentication tag Noise transport
	// encryption appends to every ciphertext.
	NoiseTagLen = 16
	// MaxBlockSyncCount is the protocol's largest number of blocks in one
	// sync batch. Nothing in this package checks a batch against it.
	MaxBlockSyncCount = 250
	// SharedPeerCount bounds how many peers are disclosed in a Peers reply.
	SharedPeerCount = 25
	// OutboundQueueDepth is the default depth of a per-peer outbound
	// channel when none is configured.
	OutboundQueueDepth = 256
	// ProtocolVersion is the version carried in every Version handshake
	// record.
	ProtocolVersion = 1

	// HandshakePeerTimeout bounds the handshake for a non-bootnode dial.
	HandshakePeerTimeout = 5 * time.Second
	// HandshakeBootnodeTimeout bounds the handshake for a bootnode dial.
	HandshakeBootnodeTimeout = 10 * time.Second
	// DefaultPeerSyncInterval is the maintenance tick period used when none
	// is configured.
	DefaultPeerSyncInterval = 10 * time.Second
	// DefaultTransactionSyncInterval is the mempool-sync tick period used
	// when neither the configuration nor the consensus collaborator
	// provides one.
	DefaultTransactionSyncInterval = 10 * time.Second
	// TaskDrainTimeout bounds how long a writer task is given to flush and
	// exit after its peer is disconnected.
	TaskDrainTimeout = 5 * time.Second
	// MaxPeerInactivitySecs is how long a connected peer may go unheard
	// from before the maintenance loop considers it inactive.
	MaxPeerInactivitySecs = 600
	// RTTDisconnectThresholdMillis is the RTT above which a peer is
	// considered unhealthy by the maintenance loop.
	RTTDisconnectThresholdMillis = 1500
	// FailuresDisconnectThreshold is the failure count at or above which a
	// peer is disconnected on the next maintenance tick.
	FailuresDisconnectThreshold = 3
)

// HandshakePSK is the fixed 32-byte pre-shared key inserted at position 3 of
// the XXpsk3 pattern.
var HandshakePSK = [32]byte{
	'b', '7', '6', '5', 'e', '4', '2', '7',
	'e', '8', '3', '6', 'e', '0', '0', '2',
	'9', 'a', '1', 'e', '2', 'a', '2', '2',
	'b', 'a', '6', '0', 'c', '5', '2', 'a',
}
