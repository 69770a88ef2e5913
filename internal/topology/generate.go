package topology

import (
	"fmt"
	"math/rand"
)

// maxGenerationAttempts bounds restarts of the pairing algorithm.
const maxGenerationAttempts = 100

// Params configures Generate.
type Params struct {
	// PeerCount is the number of ordinary peers.
	PeerCount int

	// OutgoingDegree is the expected number of connections each peer opens.
	// Every peer also accepts about as many, so the graph degree is twice this.
	OutgoingDegree int
}

// Generate builds a frozen relay topology: a random regular graph of degree
// 2*OutgoingDegree over PeerCount peers, with each edge's opener chosen
// uniformly between its endpoints, and the adversary attached to every peer.
// If the requested degree cannot fit, the graph over ordinary peers is
// complete.
func Generate(p Params, rng *rand.Rand) (*Graph, error) {
	if p.PeerCount <= 0 {
		return nil, fmt.Errorf("%w: peer count %d", ErrInvalidParams, p.PeerCount)
	}
	if p.OutgoingDegree <= 0 {
		return nil, fmt.Errorf("%w: outgoing degree %d", ErrInvalidParams, p.OutgoingDegree)
	}

	g, err := New(p.PeerCount)
	if err != nil {
		return nil, err
	}

	var pairs []Edge
	degree := 2 * p.OutgoingDegree
	if degree >= p.PeerCount {
		pairs = completePairs(p.PeerCount)
	} else {
		pairs, err = randomRegularPairs(degree, p.PeerCount, rng)
		if err != nil {
			return nil, err
		}
	}

	for _, e := range pairs {
		opener := e.From
		if rng.Intn(2) == 1 {
			opener = e.To
		}
		if err := g.Connect(e.From, e.To, opener); err != nil {
			return nil, err
		}
	}

	if err := g.AttachAdversary(); err != nil {
		return nil, err
	}
	g.Freeze()
	return g, nil
}

func completePairs(n int) []Edge {
	pairs := make([]Edge, 0, n*(n-1)/2)
	for u := 0; u < n; u++ {
		for v := u + 1; v < n; v++ {
			pairs = append(pairs, Edge{PeerID(u), PeerID(v)})
		}
	}
	return pairs
}

// randomRegularPairs returns the edges of a uniformly-ish random d-regular
// simple graph on n nodes using stub pairing. Stubs that would form a self
// loop or a parallel edge are carried into the next round; a round whose
// leftovers can no longer be paired restarts the attempt.
func randomRegularPairs(d, n int, rng *rand.Rand) ([]Edge, error) {
	if (d*n)%2 != 0 {
		return nil, fmt.Errorf("%w: n*d must be even (n=%d d=%d)", ErrInvalidParams, n, d)
	}
	if d == 0 {
		return nil, nil
	}

	for attempt := 0; attempt < maxGenerationAttempts; attempt++ {
		if edges, ok := tryPairing(d, n, rng); ok {
			return edges, nil
		}
	}
	return nil, fmt.Errorf("%w: n=%d d=%d after %d attempts", ErrGeneration, n, d, maxGenerationAttempts)
}

func tryPairing(d, n int, rng *rand.Rand) ([]Edge, bool) {
	edges := make(map[Edge]struct{}, n*d/2)
	order := make([]Edge, 0, n*d/2)

	stubs := make([]PeerID, 0, n*d)
	for i := 0; i < d; i++ {
		for v := 0; v < n; v++ {
			stubs = append(stubs, PeerID(v))
		}
	}

	for len(stubs) > 0 {
		leftover := make(map[PeerID]int)
		rng.Shuffle(len(stubs), func(i, j int) { stubs[i], stubs[j] = stubs[j], stubs[i] })

		for i := 0; i+1 < len(stubs); i += 2 {
			e := Edge{stubs[i], stubs[i+1]}.Undirected()
			if _, dup := edges[e]; e.From != e.To && !dup {
				edges[e] = struct{}{}
				order = append(order, e)
				continue
			}
			leftover[e.From]++
			leftover[e.To]++
		}

		if !pairable(edges, leftover) {
			return nil, false
		}

		stubs = stubs[:0]
		for v := 0; v < n; v++ {
			for k := 0; k < leftover[PeerID(v)]; k++ {
				stubs = append(stubs, PeerID(v))
			}
		}
	}
	return order, true
}

// pairable reports whether at least one pair of leftover nodes can still be
// joined without creating a self loop or parallel edge.
func pairable(edges map[Edge]struct{}, leftover map[PeerID]int) bool {
	if len(leftover) == 0 {
		return true
	}
	nodes := make([]PeerID, 0, len(leftover))
	for v := range leftover {
		nodes = append(nodes, v)
	}
	for i := range nodes {
		for j := i + 1; j < len(nodes); j++ {
			if _, ok := edges[Edge{nodes[i], nodes[j]}.Undirected()]; !ok {
				return true
			}
		}
	}
	return false
}
