// Package results persists trial results grouped by run.
//
// Layout:
//
//	meta/<run id>                 -> RunMeta
//	result/<run id>/<trial %08d>  -> trial.Result
//
// Values are msgpack encoded.
package results

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/LeJamon/txdiffusion/internal/config"
	"github.com/LeJamon/txdiffusion/internal/storage/database"
	"github.com/LeJamon/txdiffusion/internal/trial"
)

// DefaultCacheSize bounds the number of decoded results kept in memory.
const DefaultCacheSize = 1024

// ErrRunNotFound is returned for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// RunMeta describes a persisted run.
type RunMeta struct {
	RunID     string `codec:"run_id"`
	CreatedAt int64  `codec:"created_at"` // unix nanoseconds
	Trials    int    `codec:"trials"`

	PeerCount      int           `codec:"peer_count"`
	OutgoingDegree int           `codec:"outgoing_degree"`
	DoubleSpend    bool          `codec:"double_spend"`
	Probes         int           `codec:"probes"`
	TimeCeiling    time.Duration `codec:"time_ceiling"`
	TruncateAfter  int           `codec:"truncate_after"`
	Seed           int64         `codec:"seed"`
}

// Created returns the creation time.
func (m RunMeta) Created() time.Time {
	return time.Unix(0, m.CreatedAt)
}

// NewRunMeta snapshots the parameters of cfg under a fresh run id.
func NewRunMeta(cfg *config.Config, trials int) RunMeta {
	return RunMeta{
		RunID:          NewRunID(),
		CreatedAt:      time.Now().UnixNano(),
		Trials:         trials,
		PeerCount:      cfg.PeerCount,
		OutgoingDegree: cfg.OutgoingDegree,
		DoubleSpend:    cfg.DoubleSpend,
		Probes:         len(cfg.ProbeSet()),
		TimeCeiling:    cfg.TimeCeiling,
		TruncateAfter:  cfg.TruncateAfter,
		Seed:           cfg.Seed,
	}
}

// NewRunID returns a random run identifier.
func NewRunID() string {
	return uuid.NewString()
}

type cacheKey struct {
	run   string
	trial int
}

// Store reads and writes runs on a database.DB.
type Store struct {
	db    database.DB
	cache *lru.Cache[cacheKey, trial.Result]
}

// NewStore wraps db. cacheSize <= 0 uses DefaultCacheSize.
func NewStore(db database.DB, cacheSize int) (*Store, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[cacheKey, trial.Result](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create result cache: %w", err)
	}
	return &Store{db: db, cache: cache}, nil
}

func metaKey(runID string) []byte {
	return []byte("meta/" + runID)
}

func resultPrefix(runID string) []byte {
	return []byte("result/" + runID + "/")
}

func resultKey(runID string, trialNum int) []byte {
	return append(resultPrefix(runID), fmt.Sprintf("%08d", trialNum)...)
}

// SaveRun writes the run metadata and every result in one batch.
func (s *Store) SaveRun(ctx context.Context, meta RunMeta, res []trial.Result) error {
	if _, err := uuid.Parse(meta.RunID); err != nil {
		return fmt.Errorf("invalid run id %q: %w", meta.RunID, err)
	}
	if len(res) != meta.Trials {
		return fmt.Errorf("run %s: %d results for %d trials", meta.RunID, len(res), meta.Trials)
	}
	for i, r := range res {
		if r.Trial != i {
			return fmt.Errorf("run %s: result %d holds trial %d", meta.RunID, i, r.Trial)
		}
	}

	ops := make([]database.BatchOperation, 0, len(res)+1)

	m, err := encode(meta)
	if err != nil {
		return err
	}
	ops = append(ops, database.Put(metaKey(meta.RunID), m))

	for _, r := range res {
		v, err := encode(r)
		if err != nil {
			return err
		}
		ops = append(ops, database.Put(resultKey(meta.RunID, r.Trial), v))
	}

	if err := s.db.Batch(ctx, ops); err != nil {
		return fmt.Errorf("save run %s: %w", meta.RunID, err)
	}
	for _, r := range res {
		s.cache.Add(cacheKey{meta.RunID, r.Trial}, r)
	}
	return nil
}

// Meta returns the metadata of a run.
func (s *Store) Meta(ctx context.Context, runID string) (RunMeta, error) {
	data, err := s.db.Read(ctx, metaKey(runID))
	if errors.Is(err, database.ErrKeyNotFound) {
		return RunMeta{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return RunMeta{}, err
	}

	var meta RunMeta
	if err := decode(data, &meta); err != nil {
		return RunMeta{}, err
	}
	return meta, nil
}

// Get returns a single trial result.
func (s *Store) Get(ctx context.Context, runID string, trialNum int) (trial.Result, error) {
	key := cacheKey{runID, trialNum}
	if r, ok := s.cache.Get(key); ok {
		return r, nil
	}

	data, err := s.db.Read(ctx, resultKey(runID, trialNum))
	if err != nil {
		return trial.Result{}, fmt.Errorf("run %s trial %d: %w", runID, trialNum, err)
	}

	var r trial.Result
	if err := decode(data, &r); err != nil {
		return trial.Result{}, err
	}
	s.cache.Add(key, r)
	return r, nil
}

// List returns every result of a run in trial order. Results already in the
// cache are not read from the database.
func (s *Store) List(ctx context.Context, runID string) ([]trial.Result, error) {
	meta, err := s.Meta(ctx, runID)
	if err != nil {
		return nil, err
	}

	out := make([]trial.Result, 0, meta.Trials)
	for i := 0; i < meta.Trials; i++ {
		r, err := s.Get(ctx, runID, i)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Runs returns the metadata of every stored run, oldest first.
func (s *Store) Runs(ctx context.Context) ([]RunMeta, error) {
	prefix := []byte("meta/")
	it, err := s.db.Iterator(ctx, prefix, database.PrefixEnd(prefix))
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var out []RunMeta
	for it.Next() {
		var m RunMeta
		if err := decode(it.Value(), &m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := it.Error(); err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out, nil
}
