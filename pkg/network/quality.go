package network

import (
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/niklaslong/snarkos-network/pkg/io"
)

// PeerQuality is the aggregate health signal of a connected peer. Counters
// and the block height are plain atomics; the last-seen and last-ping-sent
// timestamps sit behind their own small locks so reader and writer tasks
// never contend on a single coarse mutex.
type PeerQuality struct {
	blockHeight atomic.Uint32

	lastSeenMu sync.RWMutex
	lastSeen   time.Time

	expectingPong atomic.Bool

	lastPingSentMu sync.Mutex
	lastPingSent   time.Time

	rttMillis           atomic.Uint64
	failures            atomic.Uint32
	remainingSyncBlocks atomic.Uint32
	numMessagesReceived atomic.Uint64
}

// newPeerQuality returns a zeroed PeerQuality.
func newPeerQuality() *PeerQuality {
	return &PeerQuality{}
}

// BlockHeight returns the last height reported in a Ping.
func (q *PeerQuality) BlockHeight() uint32 { return q.blockHeight.Load() }

// LastSeen returns the last time a message was registered from this peer.
func (q *PeerQuality) LastSeen() (time.Time, bool) {
	q.lastSeenMu.RLock()
	defer q.lastSeenMu.RUnlock()
	return q.lastSeen, !q.lastSeen.IsZero()
}

func (q *PeerQuality) setLastSeen(t time.Time) {
	q.lastSeenMu.Lock()
	q.lastSeen = t
	q.lastSeenMu.Unlock()
}

// Failures returns the accumulated failure count.
func (q *PeerQuality) Failures() uint32 { return q.failures.Load() }

// RTTMillis returns the last measured round-trip time in milliseconds.
func (q *PeerQuality) RTTMillis() uint64 { return q.rttMillis.Load() }

// ExpectingPong reports whether a Ping is outstanding.
func (q *PeerQuality) ExpectingPong() bool { return q.expectingPong.Load() }

// NumMessagesReceived returns the lifetime count of messages registered.
func (q *PeerQuality) NumMessagesReceived() uint64 { return q.numMessagesReceived.Load() }

// RemainingSyncBlocks returns the outstanding block-sync countdown.
func (q *PeerQuality) RemainingSyncBlocks() uint32 { return q.remainingSyncBlocks.Load() }

// IsInactive reports whether the peer hasn't been seen for longer than
// MaxPeerInactivitySecs, as of now. A peer never seen is treated as
// inactive, the safest default.
func (q *PeerQuality) IsInactive(now time.Time) bool {
	lastSeen, ok := q.LastSeen()
	if !ok {
		return true
	}
	return now.Sub(lastSeen) > MaxPeerInactivitySecs*time.Second
}

// registerMessage records the arrival of any message from the peer.
func (q *PeerQuality) registerMessage(now time.Time) {
	q.setLastSeen(now)
	q.numMessagesReceived.Inc()
}

// sendingPing records that a Ping was just sent, arming the pong timer.
func (q *PeerQuality) sendingPing(now time.Time) {
	q.lastPingSentMu.Lock()
	q.lastPingSent = now
	q.lastPingSentMu.Unlock()
	q.expectingPong.Store(true)
}

// receivedPing records the remote's reported block height.
func (q *PeerQuality) receivedPing(blockHeight uint32) {
	q.blockHeight.Store(blockHeight)
}

// receivedPong clears the outstanding ping and records RTT, or counts a
// stray pong as a failure.
func (q *PeerQuality) receivedPong(now time.Time) {
	if !q.expectingPong.CAS(true, false) {
		q.failures.Inc()
		return
	}
	q.lastPingSentMu.Lock()
	sentAt := q.lastPingSent
	q.lastPingSentMu.Unlock()
	if !sentAt.IsZero() {
		q.rttMillis.Store(uint64(now.Sub(sentAt).Milliseconds()))
	}
}

// expectingSyncBlocks arms the countdown for an incoming batch of count
// sync blocks.
func (q *PeerQuality) expectingSyncBlocks(count uint32) {
	q.remainingSyncBlocks.Store(count)
}

// gotSyncBlock decrements the countdown and reports whether this call is
// the one that took it from 1 to 0. The countdown floors at 0 instead of
// wrapping: a spurious extra SyncBlock delivered after the countdown has
// already reached 0 must not underflow the counter back up to
// 4294967295.
func (q *PeerQuality) gotSyncBlock() bool {
	for {
		cur := q.remainingSyncBlocks.Load()
		if cur == 0 {
			return false
		}
		if q.remainingSyncBlocks.CAS(cur, cur-1) {
			return cur-1 == 0
		}
	}
}

// cancelSyncing zeroes the countdown, reporting whether anything was
// actually outstanding.
func (q *PeerQuality) cancelSyncing() bool {
	return q.remainingSyncBlocks.Swap(0) != 0
}

// registerFailure increments the failure counter directly.
func (q *PeerQuality) registerFailure() {
	q.failures.Inc()
}

// reset clears the fields that must not survive a disconnect.
func (q *PeerQuality) reset() {
	q.expectingPong.Store(false)
	q.remainingSyncBlocks.Store(0)
}

// EncodeBinary writes the subset of quality worth persisting across a
// restart: in-flight ping/sync state is deliberately not carried, since it
// describes a live connection the snapshot will never resume.
func (q *PeerQuality) EncodeBinary(w io.BinaryWriter) {
	w.WriteU32LE(q.blockHeight.Load())
	lastSeen, _ := q.LastSeen()
	writeTime(w, lastSeen)
	w.WriteU64LE(q.rttMillis.Load())
	w.WriteU32LE(q.failures.Load())
	w.WriteU64LE(q.numMessagesReceived.Load())
}

// DecodeBinary reads a PeerQuality previously written by EncodeBinary.
func (q *PeerQuality) DecodeBinary(r io.BinaryReader) {
	q.blockHeight.Store(r.ReadU32LE())
	q.setLastSeen(readTime(r))
	q.rttMillis.Store(r.ReadU64LE())
	q.failures.Store(r.ReadU32LE())
	q.numMessagesReceived.Store(r.ReadU64LE())
}
