package results

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/pebble/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/txdiffusion/internal/config"
	"github.com/LeJamon/txdiffusion/internal/diffusion"
	"github.com/LeJamon/txdiffusion/internal/storage/database"
	pebbledb "github.com/LeJamon/txdiffusion/internal/storage/database/pebble"
	"github.com/LeJamon/txdiffusion/internal/trial"
)

func openDB(t *testing.T) database.DB {
	t.Helper()
	m := pebbledb.NewManagerFS("results", vfs.NewMem())
	t.Cleanup(func() { _ = m.Close() })

	db, err := m.OpenDB("results")
	require.NoError(t, err)
	return db
}

func newStore(t *testing.T, cacheSize int) *Store {
	t.Helper()
	s, err := NewStore(openDB(t), cacheSize)
	require.NoError(t, err)
	return s
}

// countingDB records point reads that reach the database.
type countingDB struct {
	database.DB
	reads int
}

func (c *countingDB) Read(ctx context.Context, key []byte) ([]byte, error) {
	c.reads++
	return c.DB.Read(ctx, key)
}

func sampleResults() []trial.Result {
	return []trial.Result{
		{Trial: 0, Seed: 1, Elapsed: 12 * time.Second, Score: 0.5, Scored: true, Sightings: 9, Steps: 400, Reason: diffusion.StopAllSighted},
		{Trial: 1, Seed: 2, Elapsed: 50 * time.Second, Sightings: 0, Steps: 900, Reason: diffusion.StopCeiling},
		{Trial: 2, Seed: 3, Elapsed: 31 * time.Second, Score: 0.25, Scored: true, Sightings: 8, Steps: 610, Reason: diffusion.StopAllSighted},
	}
}

func TestSaveAndList(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, 0)

	cfg := config.Default()
	meta := NewRunMeta(cfg, 3)
	want := sampleResults()
	require.NoError(t, s.SaveRun(ctx, meta, want))

	got, err := s.List(ctx, meta.RunID)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	m, err := s.Meta(ctx, meta.RunID)
	require.NoError(t, err)
	assert.Equal(t, meta, m)
	assert.Equal(t, 128, m.Probes)
	assert.WithinDuration(t, time.Now(), m.Created(), time.Minute)
}

func TestGetBypassesCacheWhenEvicted(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, 1)

	meta := NewRunMeta(config.Default(), 3)
	require.NoError(t, s.SaveRun(ctx, meta, sampleResults()))

	// Only the last saved result fits in the cache; the rest come from disk.
	for i, want := range sampleResults() {
		got, err := s.Get(ctx, meta.RunID, i)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := s.Get(ctx, meta.RunID, 7)
	assert.ErrorIs(t, err, database.ErrKeyNotFound)
}

func TestUnknownRun(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, 0)

	_, err := s.Meta(ctx, NewRunID())
	assert.ErrorIs(t, err, ErrRunNotFound)
	_, err = s.List(ctx, NewRunID())
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestRunsAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, 0)

	first := NewRunMeta(config.Default(), 3)
	first.CreatedAt = 100
	second := NewRunMeta(config.Default(), 1)
	second.CreatedAt = 200

	require.NoError(t, s.SaveRun(ctx, second, sampleResults()[:1]))
	require.NoError(t, s.SaveRun(ctx, first, sampleResults()))

	got, err := s.List(ctx, second.RunID)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, first.RunID, runs[0].RunID)
	assert.Equal(t, second.RunID, runs[1].RunID)
}

func TestSaveRunRejectsBadID(t *testing.T) {
	s := newStore(t, 0)
	err := s.SaveRun(context.Background(), RunMeta{RunID: "not-a-uuid"}, nil)
	assert.Error(t, err)
}

func TestListServesCachedResults(t *testing.T) {
	ctx := context.Background()
	db := &countingDB{DB: openDB(t)}
	s, err := NewStore(db, 0)
	require.NoError(t, err)

	meta := NewRunMeta(config.Default(), 3)
	require.NoError(t, s.SaveRun(ctx, meta, sampleResults()))

	got, err := s.List(ctx, meta.RunID)
	require.NoError(t, err)
	assert.Equal(t, sampleResults(), got)
	assert.Equal(t, 1, db.reads, "only the run metadata is read")

	// A cached entry wins over what is on disk.
	marked := sampleResults()[0]
	marked.Score = 42
	s.cache.Add(cacheKey{meta.RunID, 0}, marked)
	got, err = s.List(ctx, meta.RunID)
	require.NoError(t, err)
	assert.Equal(t, 42.0, got[0].Score)
}

func TestListFillsCacheFromDisk(t *testing.T) {
	ctx := context.Background()
	db := &countingDB{DB: openDB(t)}

	writer, err := NewStore(db, 0)
	require.NoError(t, err)
	meta := NewRunMeta(config.Default(), 3)
	require.NoError(t, writer.SaveRun(ctx, meta, sampleResults()))

	reader, err := NewStore(db, 0)
	require.NoError(t, err)

	_, err = reader.List(ctx, meta.RunID)
	require.NoError(t, err)
	assert.Equal(t, 4, db.reads, "metadata plus three results")

	_, err = reader.List(ctx, meta.RunID)
	require.NoError(t, err)
	assert.Equal(t, 5, db.reads, "second listing reads metadata only")
}

func TestSaveRunRejectsMisnumberedResults(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, 0)

	short := NewRunMeta(config.Default(), 4)
	assert.Error(t, s.SaveRun(ctx, short, sampleResults()))

	shuffled := sampleResults()
	shuffled[0], shuffled[1] = shuffled[1], shuffled[0]
	assert.Error(t, s.SaveRun(ctx, NewRunMeta(config.Default(), 3), shuffled))
}
