package config

import "time"

// P2P holds peer-to-peer networking settings for a node.
type P2P struct {
	// LocalBindAddress is the "host:port" the node listens on for inbound connections.
	LocalBindAddress string `yaml:"LocalBindAddress"`
	// BootNodes is the set of well-known "host:port" addresses consulted when
	// the node has no connected peers.
	BootNodes []string `yaml:"BootNodes"`
	// IsBootNode enables restricted inbound routing and the bootnode
	// maintenance policy.
	IsBootNode bool `yaml:"IsBootNode"`
	// MinPeers is the lower bound of the desired connection window.
	MinPeers int `yaml:"MinPeers"`
	// MaxPeers is the upper bound of the desired connection window.
	MaxPeers int `yaml:"MaxPeers"`
	// PeerSyncInterval is the period of the maintenance loop tick.
	PeerSyncInterval time.Duration `yaml:"PeerSyncInterval"`
	// TransactionSyncInterval is the period of the memory-pool sync loop tick.
	TransactionSyncInterval time.Duration `yaml:"TransactionSyncInterval"`
	// DialTimeout bounds the TCP dial, HandshakeTimeout bounds the Noise
	// handshake exchange once the socket is open.
	DialTimeout          time.Duration `yaml:"DialTimeout"`
	HandshakeTimeout     time.Duration `yaml:"HandshakeTimeout"`
	BootHandshakeTimeout time.Duration `yaml:"BootHandshakeTimeout"`
	// OutboundQueueSize is the depth of each per-peer outbound channel.
	OutboundQueueSize int `yaml:"OutboundQueueSize"`
}

// Validate returns an error if the P2P configuration is not usable.
func (p P2P) Validate() error {
	if p.MinPeers < 0 || p.MaxPeers < 0 {
		return errInvalidPeerWindow
	}
	if p.MaxPeers > 0 && p.MinPeers > p.MaxPeers {
		return errInvalidPeerWindow
	}
	return nil
}
