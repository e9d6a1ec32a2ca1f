package network

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/niklaslong/snarkos-network/pkg/config"
)

// Node wires together every component of the peer-to-peer core: the peer
// book, outbound router, inbound dispatcher, connection manager,
// maintenance loop and topology tracker. It is the single entry point an
// embedder (a ledger, a CLI) constructs and runs.
type Node struct {
	log *zap.Logger
	cfg config.P2P

	nodeID       uint64
	localAddress PeerAddress

	consensus Consensus
	storage   Storage

	Book       *PeerBook
	Outbound   *OutboundRouter
	Dispatcher *InboundDispatcher
	ConnMgr    *ConnectionManager
	Maint      *MaintenanceLoop
	Topology   *NetworkTopology

	wg sync.WaitGroup
}

// NewNode constructs a Node from cfg. consensus and storage may be nil; a
// nil consensus degrades the dispatcher and maintenance loop to pure
// connectivity management, and a nil storage disables peer-book
// persistence.
func NewNode(log *zap.Logger, cfg config.P2P, consensus Consensus, storage Storage) (*Node, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	localAddress, err := ParsePeerAddress(cfg.LocalBindAddress)
	if err != nil {
		return nil, fmt.Errorf("LocalBindAddress: %w", err)
	}

	nodeID, err := randomNodeID()
	if err != nil {
		return nil, err
	}

	book := NewPeerBook(log)
	for _, b := range cfg.BootNodes {
		if addr, err := ParsePeerAddress(b); err == nil {
			book.AddPeer(addr)
		}
	}

	n := &Node{
		log:          log,
		cfg:          cfg,
		nodeID:       nodeID,
		localAddress: localAddress,
		consensus:    consensus,
		storage:      storage,
		Book:         book,
		Outbound:     NewOutboundRouter(log, cfg.OutboundQueueSize),
		Topology:     NewNetworkTopology(),
	}

	if storage != nil {
		if data, err := storage.GetPeerBook(); err != nil {
			log.Warn("failed to load peer book from storage", zap.Error(err))
		} else {
			n.restorePeerBook(data)
		}
	}

	return n, nil
}

// randomNodeID draws a fresh 64-bit identity used to detect self-dials.
func randomNodeID() (uint64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// restorePeerBook seeds the disconnected set from a snapshot previously
// produced by persistPeerBook.
func (n *Node) restorePeerBook(data []byte) {
	n.Book.LoadSnapshot(data)
}

// persistPeerBook serializes the known peer records and hands them to
// storage, if one was configured. Failures are logged, never fatal.
func (n *Node) persistPeerBook() {
	if n.storage == nil {
		return
	}
	if err := n.storage.SavePeerBookToStorage(n.Book.Snapshot()); err != nil {
		n.log.Warn("failed to persist peer book", zap.Error(err))
	}
}

// Run starts every long-lived task (listener, dispatcher, maintenance
// loop), attempts the initial bootnode connections, and blocks until ctx is
// cancelled, at which point every task is given the chance to wind down and
// the peer book is persisted one last time.
func (n *Node) Run(ctx context.Context) error {
	n.Dispatcher = NewInboundDispatcher(n.log, n.Book, n.Outbound, n.Topology, n.consensus, n.cfg.IsBootNode, n.localAddress, n.cfg.OutboundQueueSize)
	n.ConnMgr = NewConnectionManager(n.log, n.cfg, n.Book, n.Outbound, n.Dispatcher.Inbound(), n.localAddress, n.nodeID)
	n.Maint = NewMaintenanceLoop(n.log, n.cfg, n.Book, n.Outbound, n.ConnMgr, n.consensus)

	n.wg.Add(3)
	go func() {
		defer n.wg.Done()
		n.Dispatcher.Run(ctx)
	}()
	go func() {
		defer n.wg.Done()
		n.Maint.Run(ctx)
	}()
	go func() {
		defer n.wg.Done()
		if err := n.ConnMgr.Listen(ctx); err != nil {
			n.log.Error("listener stopped", zap.Error(err))
		}
	}()

	n.ConnMgr.ConnectToBootnodes(ctx)

	<-ctx.Done()
	n.wg.Wait()
	n.persistPeerBook()
	return nil
}
