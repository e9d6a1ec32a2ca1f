package network

import (
	"context"
	"math/rand"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/niklaslong/snarkos-network/pkg/config"
)

// MaintenanceLoop is the periodic process that keeps the connection window
// between MinPeers and MaxPeers, prunes unhealthy peers, and drives the
// liveness (Ping/GetPeers) and memory-pool sync broadcasts.
type MaintenanceLoop struct {
	log *zap.Logger
	cfg config.P2P

	book      *PeerBook
	outbound  *OutboundRouter
	connmgr   *ConnectionManager
	consensus Consensus

	isBootnode bool
}

// NewMaintenanceLoop builds a MaintenanceLoop. consensus may be nil, in
// which case the transaction-sync pass is skipped and broadcast Pings carry
// block height 0.
func NewMaintenanceLoop(log *zap.Logger, cfg config.P2P, book *PeerBook, outbound *OutboundRouter, connmgr *ConnectionManager, consensus Consensus) *MaintenanceLoop {
	if log == nil {
		log = zap.NewNop()
	}
	return &MaintenanceLoop{
		log:        log,
		cfg:        cfg,
		book:       book,
		outbound:   outbound,
		connmgr:    connmgr,
		consensus:  consensus,
		isBootnode: cfg.IsBootNode,
	}
}

// Run ticks the peer-sync and transaction-sync passes on their own
// intervals until ctx is cancelled. The transaction-sync tick is only
// scheduled when a consensus collaborator is attached and this node isn't a
// bootnode; bootnodes never run the mempool-sync pass.
func (l *MaintenanceLoop) Run(ctx context.Context) {
	peerInterval := l.cfg.PeerSyncInterval
	if peerInterval <= 0 {
		peerInterval = DefaultPeerSyncInterval
	}
	peerTicker := time.NewTicker(peerInterval)
	defer peerTicker.Stop()

	var txTickerC <-chan time.Time
	if l.consensus != nil && !l.isBootnode {
		txInterval := l.cfg.TransactionSyncInterval
		if d := l.consensus.TransactionSyncInterval(); d > 0 {
			txInterval = d
		}
		if txInterval <= 0 {
			txInterval = DefaultTransactionSyncInterval
		}
		txTicker := time.NewTicker(txInterval)
		defer txTicker.Stop()
		txTickerC = txTicker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-peerTicker.C:
			l.peerSyncTick(ctx)
		case <-txTickerC:
			l.transactionSyncTick()
		}
	}
}

// peerSyncTick prunes unhealthy connections, rebalances the connection
// count toward the configured window, and refreshes liveness/topology
// information for every peer still connected afterward.
func (l *MaintenanceLoop) peerSyncTick(ctx context.Context) {
	now := time.Now()
	l.disconnectUnhealthy(now)
	l.rebalance(ctx)
	l.broadcastLiveness()
}

// disconnectUnhealthy drops any connected, non-bootnode peer whose RTT,
// failure count, or inactivity has crossed its threshold. Bootnode peers
// are never dropped for quality alone.
func (l *MaintenanceLoop) disconnectUnhealthy(now time.Time) {
	for _, info := range l.book.ConnectedPeerInfos() {
		if l.connmgr.IsBootnode(info.Address) {
			continue
		}
		q := info.Quality
		switch {
		case q.IsInactive(now):
			l.connmgr.DisconnectFromPeer(info.Address, ErrPeerIsDisconnected)
		case q.RTTMillis() > RTTDisconnectThresholdMillis:
			l.connmgr.DisconnectFromPeer(info.Address, ErrPeerIsDisconnected)
		case q.Failures() >= FailuresDisconnectThreshold:
			l.connmgr.DisconnectFromPeer(info.Address, ErrPeerIsDisconnected)
		}
	}
}

// rebalance computes the (disconnect_count, connect_count) pair for this
// node's role and acts on it:
//
//   - Bootnode: disconnect down to MinPeers, connect up to
//     MaxPeers-2*MinPeers new peers.
//   - Regular: disconnect down to MaxPeers (usually 0), connect up to
//     MinPeers-(connected+connecting) peers.
//
// If nothing is connected, every configured bootnode is dialed regardless of
// the computed connect_count; otherwise a random sample of disconnected,
// non-bootnode peers is dialed.
func (l *MaintenanceLoop) rebalance(ctx context.Context) {
	connected := l.book.NumConnected()
	connecting := l.book.NumConnecting()

	var disconnectCount, connectCount int
	if l.isBootnode {
		if connected > l.cfg.MinPeers {
			disconnectCount = connected - l.cfg.MinPeers
		}
		if want := l.cfg.MaxPeers - 2*l.cfg.MinPeers; want > 0 {
			connectCount = want
		}
	} else {
		if l.cfg.MaxPeers > 0 && connected > l.cfg.MaxPeers {
			disconnectCount = connected - l.cfg.MaxPeers
		}
		if want := l.cfg.MinPeers - (connected + connecting); want > 0 {
			connectCount = want
		}
	}

	if disconnectCount > 0 {
		l.disconnectForRebalance(disconnectCount)
	}

	if connected == 0 {
		l.connmgr.ConnectToBootnodes(ctx)
		return
	}
	if connectCount > 0 {
		l.connmgr.ConnectToRandomDisconnectedPeers(ctx, connectCount)
	}
}

// disconnectForRebalance selects n connected peers to drop to bring the
// connection count back within the window: non-bootnodes drop the most
// recently connected first, bootnodes drop in random order.
func (l *MaintenanceLoop) disconnectForRebalance(n int) {
	infos := l.book.ConnectedPeerInfos()
	if l.isBootnode {
		rand.Shuffle(len(infos), func(i, j int) { infos[i], infos[j] = infos[j], infos[i] })
	} else {
		sort.Slice(infos, func(i, j int) bool {
			return infos[i].LastConnected.After(infos[j].LastConnected)
		})
	}
	for i := 0; i < n && i < len(infos); i++ {
		l.connmgr.DisconnectFromPeer(infos[i].Address, ErrTooManyConnections)
	}
}

// broadcastLiveness sends a Ping carrying the current block height to every
// connected peer, and a GetPeers request where eligible.
func (l *MaintenanceLoop) broadcastLiveness() {
	var height uint32
	if l.consensus != nil {
		height = l.consensus.CurrentBlockHeight()
	}
	l.outbound.BroadcastPings(l.book, height)
	l.outbound.BroadcastGetPeersRequests(l.book, l.isBootnode, l.cfg.MinPeers)
}

// transactionSyncTick asks the consensus collaborator to refresh its
// mempool view against the last-seen connected peer, unless a block sync is
// already in progress.
func (l *MaintenanceLoop) transactionSyncTick() {
	if l.consensus == nil || l.consensus.IsSyncingBlocks() {
		return
	}
	addr, ok := l.book.LastSeen()
	if !ok {
		return
	}
	l.consensus.UpdateTransactions(addr)
}
