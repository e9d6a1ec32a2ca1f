package network

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/niklaslong/snarkos-network/pkg/io"
)

// peerTask is a handle to one of the two long-lived goroutines spun up for
// a connected peer. Abortable handles (the reader) are cancelled
// immediately on disconnect; non-abortable handles (the writer) are given
// TaskDrainTimeout to notice the outbound channel closed and exit on their
// own.
type peerTask struct {
	abortable bool
	cancel    context.CancelFunc
	done      <-chan struct{}
}

// PeerInfo is the per-peer record owned by the PeerBook.
type PeerInfo struct {
	Address PeerAddress

	IsRoutable bool

	FirstConnected   time.Time
	LastConnected    time.Time
	LastDisconnected time.Time
	ConnectedCount   uint64

	Quality *PeerQuality

	log     *zap.Logger
	tasksMu sync.Mutex
	tasks   []peerTask
}

// newPeerInfo creates a fresh, never-connected PeerInfo for addr.
func newPeerInfo(addr PeerAddress, log *zap.Logger) *PeerInfo {
	return &PeerInfo{
		Address:    addr,
		IsRoutable: true,
		Quality:    newPeerQuality(),
		log:        log,
	}
}

// registerTask appends a task handle, to be drained on disconnect.
func (p *PeerInfo) registerTask(t peerTask) {
	p.tasksMu.Lock()
	p.tasks = append(p.tasks, t)
	p.tasksMu.Unlock()
}

// setConnected updates connection bookkeeping; called by PeerBook on a
// successful transition into the connected set.
func (p *PeerInfo) setConnected(now time.Time) {
	if p.FirstConnected.IsZero() {
		p.FirstConnected = now
	}
	p.LastConnected = now
	p.Quality.setLastSeen(now)
	p.ConnectedCount++
}

// setDisconnected records the disconnection time and drains the peer's
// tasks: abortable handles are cancelled in place, awaitable handles are
// given up to TaskDrainTimeout to exit before being abandoned.
func (p *PeerInfo) setDisconnected(now time.Time) {
	p.LastDisconnected = now
	p.Quality.reset()

	p.tasksMu.Lock()
	tasks := p.tasks
	p.tasks = nil
	p.tasksMu.Unlock()

	for i := len(tasks) - 1; i >= 0; i-- {
		t := tasks[i]
		if t.abortable {
			if t.cancel != nil {
				t.cancel()
			}
			continue
		}
		go p.awaitDrain(t)
	}
}

func (p *PeerInfo) awaitDrain(t peerTask) {
	select {
	case <-t.done:
	case <-time.After(TaskDrainTimeout):
		if p.log != nil {
			p.log.Warn("per-connection task didn't shut down cleanly", zap.String("address", string(p.Address)))
		}
	}
}

// EncodeBinary writes a snapshot of p for peer-book persistence: its
// address, routability, connection timestamps/count, and the subset of
// PeerQuality worth remembering across a restart.
func (p *PeerInfo) EncodeBinary(w io.BinaryWriter) {
	w.WriteString(string(p.Address))
	w.WriteBool(p.IsRoutable)
	writeTime(w, p.FirstConnected)
	writeTime(w, p.LastConnected)
	writeTime(w, p.LastDisconnected)
	w.WriteVarUint(p.ConnectedCount)
	p.Quality.EncodeBinary(w)
}

// DecodeBinary reads a PeerInfo previously written by EncodeBinary.
func (p *PeerInfo) DecodeBinary(r io.BinaryReader) {
	p.Address = PeerAddress(r.ReadString())
	p.IsRoutable = r.ReadBool()
	p.FirstConnected = readTime(r)
	p.LastConnected = readTime(r)
	p.LastDisconnected = readTime(r)
	p.ConnectedCount = r.ReadVarUint()
	p.Quality = newPeerQuality()
	p.Quality.DecodeBinary(r)
}

// writeTime encodes t as unix nanoseconds, or 0 for the zero time.
func writeTime(w io.BinaryWriter, t time.Time) {
	if t.IsZero() {
		w.WriteU64LE(0)
		return
	}
	w.WriteU64LE(uint64(t.UnixNano()))
}

// readTime decodes a time previously written by writeTime.
func readTime(r io.BinaryReader) time.Time {
	n := r.ReadU64LE()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, int64(n))
}
