// Package topology builds the simulated relay network: a near-regular random
// graph over ordinary peers where every connection records which endpoint
// opened it, plus one adversary node holding an outgoing connection to every
// peer.
package topology

import (
	"errors"
	"fmt"
	"sort"
)

// PeerID identifies a node in the graph. Ordinary peers are numbered
// 0..PeerCount-1; the adversary uses the reserved negative id.
type PeerID int

// Adversary is the reserved id of the observing node.
const Adversary PeerID = -1

// IsAdversary reports whether p is the adversary.
func (p PeerID) IsAdversary() bool { return p == Adversary }

// String returns "adv" for the adversary and the number otherwise.
func (p PeerID) String() string {
	if p == Adversary {
		return "adv"
	}
	return fmt.Sprintf("%d", int(p))
}

var (
	ErrFrozen        = errors.New("topology is frozen")
	ErrSelfLoop      = errors.New("peer cannot connect to itself")
	ErrDuplicateEdge = errors.New("peers already connected")
	ErrUnknownPeer   = errors.New("unknown peer")
	ErrInvalidOpener = errors.New("opener must be an endpoint of the edge")
	ErrInvalidParams = errors.New("invalid topology parameters")
	ErrGeneration    = errors.New("failed to generate regular graph")
)

// Edge is an ordered pair: From may send to To.
type Edge struct {
	From PeerID
	To   PeerID
}

// Reverse returns the edge in the opposite direction.
func (e Edge) Reverse() Edge { return Edge{From: e.To, To: e.From} }

// Undirected returns the canonical form of the edge with the smaller id first.
// Both directions of a connection map to the same undirected edge.
func (e Edge) Undirected() Edge {
	if e.From > e.To {
		return e.Reverse()
	}
	return e
}

// Less orders edges by (From, To).
func (e Edge) Less(o Edge) bool {
	if e.From != o.From {
		return e.From < o.From
	}
	return e.To < o.To
}

func (e Edge) String() string {
	return fmt.Sprintf("%s->%s", e.From, e.To)
}

// Graph is an undirected graph over ordinary peers and, once attached, the
// adversary. Every undirected edge carries its opener. A Graph is mutable
// until Freeze; after that every structural edit fails with ErrFrozen.
type Graph struct {
	peerCount int
	adj       map[PeerID]map[PeerID]struct{}
	openers   map[Edge]PeerID
	adversary bool
	frozen    bool
}

// New creates a graph with peerCount ordinary peers and no edges.
func New(peerCount int) (*Graph, error) {
	if peerCount <= 0 {
		return nil, fmt.Errorf("%w: peer count %d", ErrInvalidParams, peerCount)
	}
	g := &Graph{
		peerCount: peerCount,
		adj:       make(map[PeerID]map[PeerID]struct{}, peerCount+1),
		openers:   make(map[Edge]PeerID),
	}
	for i := 0; i < peerCount; i++ {
		g.adj[PeerID(i)] = make(map[PeerID]struct{})
	}
	return g, nil
}

// PeerCount returns the number of ordinary peers.
func (g *Graph) PeerCount() int { return g.peerCount }

// Peers returns the ordinary peers in ascending order.
func (g *Graph) Peers() []PeerID {
	peers := make([]PeerID, g.peerCount)
	for i := range peers {
		peers[i] = PeerID(i)
	}
	return peers
}

// HasPeer reports whether p is a node of the graph, adversary included.
func (g *Graph) HasPeer(p PeerID) bool {
	_, ok := g.adj[p]
	return ok
}

// IsOrdinary reports whether p is an ordinary (non-adversary) peer.
func (g *Graph) IsOrdinary(p PeerID) bool {
	return p >= 0 && int(p) < g.peerCount
}

// HasAdversary reports whether AttachAdversary has run.
func (g *Graph) HasAdversary() bool { return g.adversary }

// Frozen reports whether the graph accepts further edits.
func (g *Graph) Frozen() bool { return g.frozen }

// Freeze makes the graph immutable.
func (g *Graph) Freeze() { g.frozen = true }

// Connect adds the undirected edge {u, v} with the given opener.
func (g *Graph) Connect(u, v, opener PeerID) error {
	if g.frozen {
		return ErrFrozen
	}
	if u == v {
		return fmt.Errorf("%w: %s", ErrSelfLoop, u)
	}
	if !g.HasPeer(u) {
		return fmt.Errorf("%w: %s", ErrUnknownPeer, u)
	}
	if !g.HasPeer(v) {
		return fmt.Errorf("%w: %s", ErrUnknownPeer, v)
	}
	if opener != u && opener != v {
		return fmt.Errorf("%w: %s on %s", ErrInvalidOpener, opener, Edge{u, v})
	}
	if g.Adjacent(u, v) {
		return fmt.Errorf("%w: %s", ErrDuplicateEdge, Edge{u, v})
	}
	g.adj[u][v] = struct{}{}
	g.adj[v][u] = struct{}{}
	g.openers[Edge{u, v}.Undirected()] = opener
	return nil
}

// AttachAdversary adds the adversary node with an edge to every ordinary
// peer, each opened by the adversary.
func (g *Graph) AttachAdversary() error {
	if g.frozen {
		return ErrFrozen
	}
	if g.adversary {
		return fmt.Errorf("%w: adversary already attached", ErrDuplicateEdge)
	}
	g.adj[Adversary] = make(map[PeerID]struct{}, g.peerCount)
	g.adversary = true
	for _, p := range g.Peers() {
		if err := g.Connect(Adversary, p, Adversary); err != nil {
			return err
		}
	}
	return nil
}

// Adjacent reports whether u and v share an edge.
func (g *Graph) Adjacent(u, v PeerID) bool {
	nbrs, ok := g.adj[u]
	if !ok {
		return false
	}
	_, ok = nbrs[v]
	return ok
}

// Neighbors returns the neighbors of p in ascending order. For ordinary
// peers this includes the adversary once attached.
func (g *Graph) Neighbors(p PeerID) []PeerID {
	nbrs := g.adj[p]
	out := make([]PeerID, 0, len(nbrs))
	for n := range nbrs {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Degree returns the number of neighbors of p.
func (g *Graph) Degree(p PeerID) int { return len(g.adj[p]) }

// Opener returns the endpoint that opened the connection between u and v.
func (g *Graph) Opener(u, v PeerID) (PeerID, bool) {
	o, ok := g.openers[Edge{u, v}.Undirected()]
	return o, ok
}

// IsOutgoing reports whether the edge is used in its outgoing orientation,
// meaning its sender opened the connection.
func (g *Graph) IsOutgoing(e Edge) bool {
	o, ok := g.Opener(e.From, e.To)
	return ok && o == e.From
}

// Edges returns every undirected edge in canonical form, sorted.
func (g *Graph) Edges() []Edge {
	edges := make([]Edge, 0, len(g.openers))
	for e := range g.openers {
		edges = append(edges, e)
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].Less(edges[j]) })
	return edges
}

// EdgeCount returns the number of undirected edges.
func (g *Graph) EdgeCount() int { return len(g.openers) }
