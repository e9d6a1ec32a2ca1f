package network

import (
	"context"

	"go.uber.org/zap"
)

// InboundDispatcher is the single task that owns the shared inbound queue
// and routes each decoded Message by payload kind. Dispatch is
// serial: exactly one payload is handled at a time.
type InboundDispatcher struct {
	log          *zap.Logger
	book         *PeerBook
	outbound     *OutboundRouter
	topology     *NetworkTopology
	consensus    Consensus
	isBootnode   bool
	localAddress PeerAddress

	inbound chan Message
}

// NewInboundDispatcher builds a dispatcher reading from a fresh inbound
// channel of the given depth.
func NewInboundDispatcher(log *zap.Logger, book *PeerBook, outbound *OutboundRouter, topology *NetworkTopology, consensus Consensus, isBootnode bool, localAddress PeerAddress, queueDepth int) *InboundDispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &InboundDispatcher{
		log:          log,
		book:         book,
		outbound:     outbound,
		topology:     topology,
		consensus:    consensus,
		isBootnode:   isBootnode,
		localAddress: localAddress,
		inbound:      make(chan Message, queueDepth),
	}
}

// Inbound returns the channel readers should deliver decoded messages to.
func (d *InboundDispatcher) Inbound() chan<- Message {
	return d.inbound
}

// Run drains the inbound queue until ctx is cancelled or the channel is
// closed. A ReceiverFailedToParse-class error never reaches here: malformed
// frames are caught by the reader before a Message is constructed.
func (d *InboundDispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-d.inbound:
			if !ok {
				return
			}
			d.dispatch(msg)
		}
	}
}

func (d *InboundDispatcher) dispatch(msg Message) {
	if d.isBootnode && msg.Direction.Kind != DirectionInternal && msg.Payload.Kind() != PayloadKindGetPeers {
		return
	}

	if msg.Direction.Kind == DirectionInbound {
		d.book.RegisterMessage(msg.Direction.Address)
	}

	src := msg.Direction.Address
	switch p := msg.Payload.(type) {
	case *ConnectingTo:
		if msg.Direction.Kind == DirectionInternal {
			_ = d.book.SetConnecting(p.Address)
		}
	case *ConnectedTo:
		if msg.Direction.Kind == DirectionInternal {
			d.book.SetConnected(p.Remote, &p.Listener)
		}
	case *Disconnect:
		if msg.Direction.Kind == DirectionInternal {
			d.book.SetDisconnected(p.Address)
		}

	case *Transaction:
		if c := d.consensus; c != nil {
			c.ReceivedTransaction(src, p.Data, d.book.ConnectedPeers())
		}
	case *Block:
		if c := d.consensus; c != nil {
			c.ReceivedBlock(src, p.Data, d.book.ConnectedPeers())
		}
	case *SyncBlock:
		if c := d.consensus; c != nil {
			c.ReceivedBlock(src, p.Data, nil)
			if d.book.GotSyncBlock(src) {
				c.FinishedSyncingBlocks()
			}
		}
	case *GetBlocks:
		// Don't answer a blocks request while we're mid-sync ourselves.
		if c := d.consensus; c != nil && !c.IsSyncingBlocks() {
			c.ReceivedGetBlocks(src, p.Hashes)
		}
	case *GetMemoryPool:
		if c := d.consensus; c != nil && !c.IsSyncingBlocks() {
			c.ReceivedGetMemoryPool(src)
		}
	case *MemoryPool:
		if c := d.consensus; c != nil {
			c.ReceivedMemoryPool(p.Transactions)
		}
	case *GetSync:
		if c := d.consensus; c != nil && !c.IsSyncingBlocks() {
			c.ReceivedGetSync(src, p.Hashes)
		}
	case *Sync:
		d.book.ExpectingSyncBlocks(src, uint32(len(p.Hashes)))
		if c := d.consensus; c != nil {
			c.ReceivedSync(src, p.Hashes)
		}

	case *Ping:
		d.outbound.Send(src, &Pong{})
		d.book.ReceivedPing(src, p.BlockHeight)
		if c := d.consensus; c != nil {
			if p.BlockHeight > c.CurrentBlockHeight()+1 && c.ShouldSyncBlocks() && !c.IsSyncingBlocks() {
				c.RegisterBlockSyncAttempt()
				c.UpdateBlocks(src)
			}
		}
	case *Pong:
		d.book.ReceivedPong(src)

	case *GetPeers:
		d.outbound.SendPeers(d.book, src)
	case *Peers:
		for _, addr := range p.Addresses {
			if addr != d.localAddress {
				d.book.AddPeer(addr)
			}
		}
		if d.topology != nil {
			d.topology.Update(src, p.Addresses)
		}

	case *Unknown:
		d.log.Warn("dropping message with unrecognized payload tag", zap.Uint8("tag", p.Tag))
	}
}
