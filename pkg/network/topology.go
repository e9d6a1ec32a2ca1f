package network

import (
	"sort"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// Connection is an unordered pair of addresses, stored in canonical
// (lexicographically sorted) order so that equality and map-key hashing
// automatically ignore orientation.
type Connection struct {
	A PeerAddress
	B PeerAddress
}

// NewConnection builds the canonical Connection between a and b.
func NewConnection(a, b PeerAddress) Connection {
	if a > b {
		a, b = b, a
	}
	return Connection{A: a, B: b}
}

// NetworkTopology tracks the undirected edge set reported by Peers
// messages.
type NetworkTopology struct {
	mu          sync.RWMutex
	connections map[Connection]struct{}
}

// NewNetworkTopology creates an empty topology tracker.
func NewNetworkTopology() *NetworkTopology {
	return &NetworkTopology{connections: make(map[Connection]struct{})}
}

// Update folds a report that source is connected to peers: it removes
// existing edges incident to source that are not in peers, adds edges in
// peers not already present, and leaves every edge not incident to source
// untouched.
func (t *NetworkTopology) Update(source PeerAddress, peers []PeerAddress) {
	newSet := make(map[Connection]struct{}, len(peers))
	for _, p := range peers {
		if p == source {
			continue
		}
		newSet[NewConnection(source, p)] = struct{}{}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for conn := range t.connections {
		if conn.A != source && conn.B != source {
			continue
		}
		if _, stillPresent := newSet[conn]; !stillPresent {
			delete(t.connections, conn)
		}
	}
	for conn := range newSet {
		t.connections[conn] = struct{}{}
	}
}

// Connections returns a snapshot of the current edge set.
func (t *NetworkTopology) Connections() []Connection {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Connection, 0, len(t.connections))
	for conn := range t.connections {
		out = append(out, conn)
	}
	return out
}

// NetworkMetrics is the set of derived graph statistics computed once over
// a fixed node set and edge list.
type NetworkMetrics struct {
	NodeCount             int
	ConnectionCount       int
	Density               float64
	Addresses             []PeerAddress
	Index                 map[PeerAddress]int
	DegreeCentrality      map[PeerAddress]int
	DegreeCentralityDelta int
	EigenvectorCentrality map[PeerAddress]float64
	AlgebraicConnectivity float64
	FiedlerValue          map[PeerAddress]float64
}

// NewNetworkMetrics computes NetworkMetrics over nodes with the given
// connections. Nodes not present in the address set, or self-loops, are
// ignored.
func NewNetworkMetrics(nodes []PeerAddress, connections []Connection) *NetworkMetrics {
	addresses := append([]PeerAddress(nil), nodes...)
	sort.Slice(addresses, func(i, j int) bool { return addresses[i] < addresses[j] })
	n := len(addresses)

	index := make(map[PeerAddress]int, n)
	for i, a := range addresses {
		index[a] = i
	}

	degree := make([]int, n)
	connCount := 0
	var adjacency *mat.SymDense
	if n > 0 {
		adjacency = mat.NewSymDense(n, nil)
	}
	for _, c := range connections {
		i, iok := index[c.A]
		j, jok := index[c.B]
		if !iok || !jok || i == j {
			continue
		}
		adjacency.SetSym(i, j, 1)
		degree[i]++
		degree[j]++
		connCount++
	}

	degreeCentrality := make(map[PeerAddress]int, n)
	for i, a := range addresses {
		degreeCentrality[a] = degree[i]
	}

	delta := 0
	if n > 0 {
		min, max := degree[0], degree[0]
		for _, d := range degree {
			if d < min {
				min = d
			}
			if d > max {
				max = d
			}
		}
		delta = max - min
	}

	density := 0.0
	if n > 1 {
		density = float64(2*connCount) / float64(n*(n-1))
	}

	var laplacian *mat.SymDense
	if n > 0 {
		laplacian = mat.NewSymDense(n, nil)
		for i := 0; i < n; i++ {
			for j := i; j < n; j++ {
				if i == j {
					laplacian.SetSym(i, j, float64(degree[i]))
					continue
				}
				laplacian.SetSym(i, j, -adjacency.At(i, j))
			}
		}
	}

	eigenvectorCentrality := eigenvectorCentrality(adjacency, addresses, n)
	algConn, fiedler := fiedlerValues(laplacian, addresses, n)

	return &NetworkMetrics{
		NodeCount:             n,
		ConnectionCount:       connCount,
		Density:               density,
		Addresses:             addresses,
		Index:                 index,
		DegreeCentrality:      degreeCentrality,
		DegreeCentralityDelta: delta,
		EigenvectorCentrality: eigenvectorCentrality,
		AlgebraicConnectivity: algConn,
		FiedlerValue:          fiedler,
	}
}

// eigenvectorCentrality returns the eigenvector of the adjacency matrix
// belonging to its largest eigenvalue, scaled so its components sum to n.
func eigenvectorCentrality(adjacency *mat.SymDense, addrs []PeerAddress, n int) map[PeerAddress]float64 {
	result := make(map[PeerAddress]float64, n)
	if n == 0 {
		return result
	}

	var es mat.EigenSym
	if !es.Factorize(adjacency, true) {
		return result
	}
	values := es.Values(nil)
	var vectors mat.Dense
	es.VectorsTo(&vectors)

	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}

	sum := 0.0
	comp := make([]float64, n)
	for i := 0; i < n; i++ {
		comp[i] = vectors.At(i, best)
		sum += comp[i]
	}
	if sum == 0 {
		return result
	}
	scale := sum / float64(n)
	for i, addr := range addrs {
		result[addr] = comp[i] / scale
	}
	return result
}

// fiedlerValues returns the second-smallest Laplacian eigenvalue (the
// algebraic connectivity) and its eigenvector's component per node.
func fiedlerValues(laplacian *mat.SymDense, addrs []PeerAddress, n int) (float64, map[PeerAddress]float64) {
	fiedler := make(map[PeerAddress]float64, n)
	if n < 2 {
		return 0, fiedler
	}

	var es mat.EigenSym
	if !es.Factorize(laplacian, true) {
		return 0, fiedler
	}
	values := es.Values(nil)
	var vectors mat.Dense
	es.VectorsTo(&vectors)

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool { return values[idx[i]] < values[idx[j]] })

	second := idx[1]
	for i, addr := range addrs {
		fiedler[addr] = vectors.At(i, second)
	}
	return values[second], fiedler
}
