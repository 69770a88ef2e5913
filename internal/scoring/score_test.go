package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/txdiffusion/internal/diffusion"
	"github.com/LeJamon/txdiffusion/internal/topology"
)

// line builds 0-1-2-3 with the adversary attached.
func line(t *testing.T) *topology.Graph {
	t.Helper()
	g, err := topology.New(4)
	require.NoError(t, err)
	require.NoError(t, g.Connect(0, 1, 0))
	require.NoError(t, g.Connect(1, 2, 1))
	require.NoError(t, g.Connect(2, 3, 3))
	require.NoError(t, g.AttachAdversary())
	g.Freeze()
	return g
}

func sighting(peer, guess int, at time.Duration) diffusion.Sighting {
	return diffusion.Sighting{
		Peer:  topology.PeerID(peer),
		Guess: topology.PeerID(guess),
		When:  diffusion.SimTime(at),
	}
}

func TestScore(t *testing.T) {
	g := line(t)

	tests := []struct {
		name      string
		sightings []diffusion.Sighting
		want      float64
	}{
		{"all neighbors", []diffusion.Sighting{sighting(0, 1, time.Second), sighting(2, 1, 2*time.Second)}, 1.0},
		{"none adjacent", []diffusion.Sighting{sighting(0, 3, time.Second)}, 0.0},
		{"half", []diffusion.Sighting{sighting(0, 1, time.Second), sighting(3, 0, time.Second)}, 0.5},
		{"self guess is wrong", []diffusion.Sighting{sighting(2, 2, time.Second)}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := make(map[topology.PeerID]diffusion.Sighting)
			for _, s := range tt.sightings {
				m[s.Peer] = s
			}
			got, err := Score(g, m)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestScoreEmpty(t *testing.T) {
	_, err := Score(line(t), nil)
	assert.ErrorIs(t, err, ErrNoSightings)
}

func TestTruncateAfter(t *testing.T) {
	m := map[topology.PeerID]diffusion.Sighting{
		0: sighting(0, 1, 5*time.Second),
		1: sighting(1, 0, time.Second),
		2: sighting(2, 1, 3*time.Second),
		3: sighting(3, 2, 3*time.Second),
	}

	kept := TruncateAfter(m, 2)
	require.Len(t, kept, 2)
	assert.Contains(t, kept, topology.PeerID(1))
	assert.Contains(t, kept, topology.PeerID(2), "ties resolve by peer id")

	assert.Len(t, TruncateAfter(m, 10), 4)
	assert.Len(t, TruncateAfter(m, 0), 4)
	assert.Empty(t, TruncateAfter(nil, 3))

	ordered := Earliest(m, 0)
	require.Len(t, ordered, 4)
	for i := 1; i < len(ordered); i++ {
		assert.LessOrEqual(t, ordered[i-1].When, ordered[i].When)
	}
}
