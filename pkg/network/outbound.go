package network

import (
	"math/rand"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// OutboundRouter owns exactly one bounded channel per connected peer,
// registered at Register and removed at Remove. Send never blocks: a
// missing or full channel just drops the message.
type OutboundRouter struct {
	log       *zap.Logger
	queueSize int

	mu       sync.RWMutex
	channels map[PeerAddress]chan Payload

	dropped atomic.Uint64
}

// NewOutboundRouter creates a router whose per-peer channels hold queueSize
// messages before Send starts dropping.
func NewOutboundRouter(log *zap.Logger, queueSize int) *OutboundRouter {
	if log == nil {
		log = zap.NewNop()
	}
	if queueSize <= 0 {
		queueSize = OutboundQueueDepth
	}
	return &OutboundRouter{
		log:       log,
		queueSize: queueSize,
		channels:  make(map[PeerAddress]chan Payload),
	}
}

// Register creates the outbound channel for addr and returns it for the
// writer task to consume. Logs, but does not fail, on a double-register.
func (r *OutboundRouter) Register(addr PeerAddress) <-chan Payload {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ch, ok := r.channels[addr]; ok {
		r.log.Error("outbound channel already registered", zap.String("address", string(addr)))
		return ch
	}
	ch := make(chan Payload, r.queueSize)
	r.channels[addr] = ch
	return ch
}

// Remove drops addr's outbound channel, closing it so the writer task
// observes the close and exits.
func (r *OutboundRouter) Remove(addr PeerAddress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ch, ok := r.channels[addr]; ok {
		delete(r.channels, addr)
		close(ch)
	}
}

// Send enqueues payload for addr. If addr has no channel or the channel is
// full, the message is dropped and a counter incremented; it never blocks.
func (r *OutboundRouter) Send(addr PeerAddress, payload Payload) {
	r.mu.RLock()
	ch, ok := r.channels[addr]
	r.mu.RUnlock()
	if !ok {
		r.dropped.Inc()
		r.log.Debug("dropping message, no outbound channel", zap.String("address", string(addr)))
		return
	}
	select {
	case ch <- payload:
	default:
		r.dropped.Inc()
		r.log.Debug("dropping message, outbound channel full", zap.String("address", string(addr)))
	}
}

// Dropped returns the lifetime count of dropped outbound messages.
func (r *OutboundRouter) Dropped() uint64 { return r.dropped.Load() }

// Broadcast sends payload to every one of the given addresses.
func (r *OutboundRouter) Broadcast(addrs []PeerAddress, payload Payload) {
	for _, addr := range addrs {
		r.Send(addr, payload)
	}
}

// BroadcastPings sends a Ping carrying blockHeight to every connected peer
// and arms each one's pong expectation.
func (r *OutboundRouter) BroadcastPings(book *PeerBook, blockHeight uint32) {
	for _, addr := range book.ConnectedPeers() {
		r.Send(addr, &Ping{BlockHeight: blockHeight})
		book.SendingPing(addr)
	}
}

// BroadcastGetPeersRequests sends GetPeers to every connected peer, but only
// for a non-bootnode that is currently below its minimum peer count.
func (r *OutboundRouter) BroadcastGetPeersRequests(book *PeerBook, isBootnode bool, minPeers int) {
	if isBootnode || book.NumConnected() >= minPeers {
		return
	}
	r.Broadcast(book.ConnectedPeers(), &GetPeers{})
}

// SendPeers replies to `to` with up to SharedPeerCount randomly sampled
// connected peers, excluding `to` itself.
func (r *OutboundRouter) SendPeers(book *PeerBook, to PeerAddress) {
	candidates := book.ConnectedPeers()
	sample := make([]PeerAddress, 0, SharedPeerCount)
	for _, addr := range candidates {
		if addr == to {
			continue
		}
		sample = append(sample, addr)
	}
	rand.Shuffle(len(sample), func(i, j int) { sample[i], sample[j] = sample[j], sample[i] })
	if len(sample) > SharedPeerCount {
		sample = sample[:SharedPeerCount]
	}
	r.Send(to, &Peers{Addresses: sample})
}
