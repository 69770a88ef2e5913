package trial

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/txdiffusion/internal/config"
	"github.com/LeJamon/txdiffusion/internal/diffusion"
	"github.com/LeJamon/txdiffusion/internal/logging"
	"github.com/LeJamon/txdiffusion/internal/topology"
)

func smallConfig() *config.Config {
	c := config.Default()
	c.PeerCount = 16
	c.OutgoingDegree = 2
	c.Trials = 6
	c.TruncateAfter = 4
	return c
}

func TestNewRunnerValidates(t *testing.T) {
	c := smallConfig()
	c.Trials = 0
	_, err := NewRunner(c, logging.Discard())
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestRunOrderedAndBounded(t *testing.T) {
	c := smallConfig()
	r, err := NewRunner(c, logging.Discard())
	require.NoError(t, err)

	results, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, c.Trials)

	scored := 0
	for i, res := range results {
		assert.Equal(t, i, res.Trial)
		assert.Equal(t, c.Seed+int64(i), res.Seed)
		assert.Positive(t, res.Steps)
		assert.LessOrEqual(t, res.Sightings, c.PeerCount-len(c.ProbeSet()))
		if res.Reason == diffusion.StopCeiling {
			assert.GreaterOrEqual(t, res.Elapsed, c.TimeCeiling)
		}
		if res.Scored {
			scored++
			assert.GreaterOrEqual(t, res.Score, 0.0)
			assert.LessOrEqual(t, res.Score, 1.0)
		}
	}
	assert.Positive(t, scored)
}

func TestRunDeterministicAcrossWorkers(t *testing.T) {
	serial := smallConfig()
	serial.Workers = 1
	parallel := smallConfig()
	parallel.Workers = 4

	rs, err := NewRunner(serial, logging.Discard())
	require.NoError(t, err)
	rp, err := NewRunner(parallel, logging.Discard())
	require.NoError(t, err)

	a, err := rs.Run(context.Background())
	require.NoError(t, err)
	b, err := rp.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestRunOneMatchesBatch(t *testing.T) {
	r, err := NewRunner(smallConfig(), logging.Discard())
	require.NoError(t, err)

	batch, err := r.Run(context.Background())
	require.NoError(t, err)

	one, err := r.RunOne(3)
	require.NoError(t, err)
	assert.Equal(t, batch[3], one)
}

func TestRunOneLogsCoverageAtDebug(t *testing.T) {
	var buf bytes.Buffer
	r, err := NewRunner(smallConfig(), logging.New(&buf, logging.LevelDebug, ""))
	require.NoError(t, err)

	loud, err := r.RunOne(0)
	require.NoError(t, err)
	assert.Regexp(t, `trial 0: transactions reached \d+/16 peers`, buf.String())

	buf.Reset()
	quiet, err := NewRunner(smallConfig(), logging.New(&buf, logging.LevelInfo, ""))
	require.NoError(t, err)
	plain, err := quiet.RunOne(0)
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "transactions reached")
	assert.Equal(t, plain, loud, "observing deliveries must not change the trial")
}

func TestRunCancelled(t *testing.T) {
	r, err := NewRunner(smallConfig(), logging.Discard())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = r.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunOneTrialError(t *testing.T) {
	// Bypass validation to reach the simulator's own probe check.
	r := &Runner{
		cfg:    smallConfig(),
		probes: []topology.PeerID{99},
		log:    logging.Discard(),
	}

	_, err := r.RunOne(2)
	require.Error(t, err)

	var terr *TrialError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, 2, terr.Trial)
	assert.Equal(t, "simulate", terr.Op)
	assert.ErrorIs(t, err, diffusion.ErrInvalidProbe)
	assert.Contains(t, err.Error(), "trial 2: simulate")
}

func TestDoubleSpendBatch(t *testing.T) {
	c := smallConfig()
	c.DoubleSpend = true
	r, err := NewRunner(c, logging.Discard())
	require.NoError(t, err)

	results, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, results, c.Trials)
}

func TestSummarize(t *testing.T) {
	results := []Result{
		{Trial: 0, Elapsed: 2 * time.Second, Score: 1, Scored: true},
		{Trial: 1, Elapsed: 4 * time.Second, Score: 0.5, Scored: true},
		{Trial: 2, Elapsed: 6 * time.Second},
	}

	s := Summarize(results)
	assert.Equal(t, 3, s.Trials)
	assert.Equal(t, 2, s.Scored)
	assert.InDelta(t, 0.75, s.MeanScore, 1e-9)
	assert.Equal(t, 4*time.Second, s.MeanElapsed)
	assert.Contains(t, s.String(), "scored=2")

	assert.Equal(t, Summary{}, Summarize(nil))
}

func TestWriteLines(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteLines(&buf, []Result{
		{Elapsed: 1500 * time.Microsecond, Score: 0.25, Scored: true},
		{Elapsed: 3 * time.Second},
	}))
	assert.Equal(t, "1500 0.25\n3000000 -\n", buf.String())
}
