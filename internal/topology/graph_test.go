package topology

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		name     string
		params   Params
		wantDeg  int
		complete bool
	}{
		{name: "reference shape", params: Params{PeerCount: 256, OutgoingDegree: 8}, wantDeg: 16},
		{name: "sparse", params: Params{PeerCount: 50, OutgoingDegree: 2}, wantDeg: 4},
		{name: "degree exceeds peers", params: Params{PeerCount: 4, OutgoingDegree: 2}, wantDeg: 3, complete: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := Generate(tt.params, rand.New(rand.NewSource(7)))
			require.NoError(t, err)
			require.True(t, g.Frozen())
			require.True(t, g.HasAdversary())

			for _, p := range g.Peers() {
				// Every peer sees the adversary on top of its relay neighbors.
				assert.Equal(t, tt.wantDeg+1, g.Degree(p), "peer %s", p)
				assert.True(t, g.Adjacent(p, Adversary))
				assert.False(t, g.Adjacent(p, p))
			}
			assert.Equal(t, tt.params.PeerCount, g.Degree(Adversary))
		})
	}
}

func TestGenerateOpeners(t *testing.T) {
	g, err := Generate(Params{PeerCount: 64, OutgoingDegree: 4}, rand.New(rand.NewSource(3)))
	require.NoError(t, err)

	fromSmaller := 0
	relayEdges := 0
	for _, e := range g.Edges() {
		opener, ok := g.Opener(e.From, e.To)
		require.True(t, ok)
		require.True(t, opener == e.From || opener == e.To, "opener %s not on %s", opener, e)

		if e.From == Adversary || e.To == Adversary {
			assert.Equal(t, Adversary, opener)
			continue
		}
		relayEdges++
		if opener == e.From {
			fromSmaller++
		}
	}

	// Openers are a coin flip per edge; both sides should show up plenty.
	assert.Greater(t, fromSmaller, relayEdges/4)
	assert.Less(t, fromSmaller, 3*relayEdges/4)
}

func TestGenerateDeterministic(t *testing.T) {
	a, err := Generate(Params{PeerCount: 32, OutgoingDegree: 3}, rand.New(rand.NewSource(11)))
	require.NoError(t, err)
	b, err := Generate(Params{PeerCount: 32, OutgoingDegree: 3}, rand.New(rand.NewSource(11)))
	require.NoError(t, err)

	require.Equal(t, a.Edges(), b.Edges())
	for _, e := range a.Edges() {
		oa, _ := a.Opener(e.From, e.To)
		ob, _ := b.Opener(e.From, e.To)
		assert.Equal(t, oa, ob)
	}
}

func TestGenerateInvalidParams(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	_, err := Generate(Params{PeerCount: 0, OutgoingDegree: 8}, rng)
	assert.ErrorIs(t, err, ErrInvalidParams)

	_, err = Generate(Params{PeerCount: 10, OutgoingDegree: 0}, rng)
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestGraphConnect(t *testing.T) {
	g, err := New(3)
	require.NoError(t, err)

	require.NoError(t, g.Connect(0, 1, 1))
	assert.ErrorIs(t, g.Connect(1, 0, 0), ErrDuplicateEdge)
	assert.ErrorIs(t, g.Connect(2, 2, 2), ErrSelfLoop)
	assert.ErrorIs(t, g.Connect(0, 5, 0), ErrUnknownPeer)
	assert.ErrorIs(t, g.Connect(0, 2, 1), ErrInvalidOpener)

	assert.True(t, g.IsOutgoing(Edge{1, 0}))
	assert.False(t, g.IsOutgoing(Edge{0, 1}))

	require.NoError(t, g.AttachAdversary())
	assert.True(t, g.IsOutgoing(Edge{Adversary, 2}))
	assert.False(t, g.IsOutgoing(Edge{2, Adversary}))

	g.Freeze()
	assert.ErrorIs(t, g.Connect(0, 2, 0), ErrFrozen)
	assert.ErrorIs(t, g.AttachAdversary(), ErrFrozen)
}

func TestEdgeUndirected(t *testing.T) {
	assert.Equal(t, Edge{Adversary, 3}, Edge{3, Adversary}.Undirected())
	assert.Equal(t, Edge{1, 2}, Edge{2, 1}.Undirected())
	assert.Equal(t, Edge{1, 2}, Edge{1, 2}.Undirected())
	assert.True(t, Edge{1, 2}.Less(Edge{1, 3}))
	assert.True(t, Edge{Adversary, 9}.Less(Edge{0, 1}))
}
