package network

import (
	"time"

	"github.com/niklaslong/snarkos-network/pkg/util"
)

// Consensus is the only upward interface this package calls into; its
// implementation (ledger, mempool, consensus engine) lives outside this
// package's scope and is supplied by the embedder.
type Consensus interface {
	ReceivedTransaction(src PeerAddress, tx []byte, connectedPeers []PeerAddress)
	ReceivedBlock(src PeerAddress, block []byte, connectedPeers []PeerAddress)
	ReceivedGetBlocks(src PeerAddress, hashes []util.Uint256)
	ReceivedGetMemoryPool(src PeerAddress)
	ReceivedMemoryPool(transactions [][]byte)
	ReceivedGetSync(src PeerAddress, hashes []util.Uint256)
	ReceivedSync(src PeerAddress, hashes []util.Uint256)

	FinishedSyncingBlocks()
	RegisterBlockSyncAttempt()
	UpdateBlocks(src PeerAddress)
	UpdateTransactions(src PeerAddress)

	IsSyncingBlocks() bool
	ShouldSyncBlocks() bool
	CurrentBlockHeight() uint32
	TransactionSyncInterval() time.Duration
}

// Storage is the optional collaborator backing peer-book persistence.
// Failures here are logged, never fatal.
type Storage interface {
	GetPeerBook() ([]byte, error)
	SavePeerBookToStorage(data []byte) error
}
