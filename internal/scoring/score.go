// Package scoring grades the adversary's first-sighting guesses against the
// real topology.
package scoring

import (
	"errors"
	"sort"

	"github.com/LeJamon/txdiffusion/internal/diffusion"
	"github.com/LeJamon/txdiffusion/internal/topology"
)

// ErrNoSightings is returned when there is nothing to score.
var ErrNoSightings = errors.New("no sightings to score")

// Correct reports whether the guess in s names a direct neighbor of the peer
// that produced the sighting. The attack can only hope to recover
// connectivity, not who authored the transaction.
func Correct(g *topology.Graph, s diffusion.Sighting) bool {
	return g.Adjacent(s.Peer, s.Guess)
}

// Score returns the fraction of sightings whose guess is correct.
func Score(g *topology.Graph, sightings map[topology.PeerID]diffusion.Sighting) (float64, error) {
	if len(sightings) == 0 {
		return 0, ErrNoSightings
	}
	correct := 0
	for _, s := range sightings {
		if Correct(g, s) {
			correct++
		}
	}
	return float64(correct) / float64(len(sightings)), nil
}

// Earliest returns up to k sightings ordered by time, earliest first. Equal
// times are ordered by peer id. A non-positive k keeps everything.
func Earliest(sightings map[topology.PeerID]diffusion.Sighting, k int) []diffusion.Sighting {
	sorted := make([]diffusion.Sighting, 0, len(sightings))
	for _, s := range sightings {
		sorted = append(sorted, s)
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].When != sorted[j].When {
			return sorted[i].When < sorted[j].When
		}
		return sorted[i].Peer < sorted[j].Peer
	})
	if k > 0 && len(sorted) > k {
		sorted = sorted[:k]
	}
	return sorted
}

// TruncateAfter keeps only the k earliest sightings, modeling an adversary
// that trusts only its first k observations.
func TruncateAfter(sightings map[topology.PeerID]diffusion.Sighting, k int) map[topology.PeerID]diffusion.Sighting {
	kept := Earliest(sightings, k)
	out := make(map[topology.PeerID]diffusion.Sighting, len(kept))
	for _, s := range kept {
		out[s.Peer] = s
	}
	return out
}
