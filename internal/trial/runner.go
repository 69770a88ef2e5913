// Package trial runs batches of independent diffusion experiments and
// collects their scores.
package trial

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/LeJamon/txdiffusion/internal/config"
	"github.com/LeJamon/txdiffusion/internal/delay"
	"github.com/LeJamon/txdiffusion/internal/diffusion"
	"github.com/LeJamon/txdiffusion/internal/logging"
	"github.com/LeJamon/txdiffusion/internal/scoring"
	"github.com/LeJamon/txdiffusion/internal/topology"
)

// Result is the outcome of one trial.
type Result struct {
	Trial int   `codec:"trial"`
	Seed  int64 `codec:"seed"`

	// Elapsed is the simulated time at which the run stopped.
	Elapsed time.Duration `codec:"elapsed"`

	// Score is meaningful only when Scored is set.
	Score  float64 `codec:"score"`
	Scored bool    `codec:"scored"`

	// Sightings counts every first sighting before truncation.
	Sightings int                  `codec:"sightings"`
	Steps     int                  `codec:"steps"`
	Reason    diffusion.StopReason `codec:"reason"`
}

// Runner executes trials described by a configuration. Each trial owns its
// random source, topology and simulator, so trials may run in parallel.
type Runner struct {
	cfg    *config.Config
	probes []topology.PeerID
	log    *logging.Logger
}

// NewRunner validates cfg and returns a runner for it.
func NewRunner(cfg *config.Config, logger *logging.Logger) (*Runner, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return &Runner{
		cfg:    cfg,
		probes: cfg.ProbeSet(),
		log:    logger,
	}, nil
}

// Seed returns the random seed used by trial i.
func (r *Runner) Seed(i int) int64 {
	return r.cfg.Seed + int64(i)
}

// RunOne executes trial i.
func (r *Runner) RunOne(i int) (Result, error) {
	seed := r.Seed(i)
	rng := rand.New(rand.NewSource(seed))

	r.log.Debugf("trial %d: starting (seed=%d)", i, seed)

	g, err := topology.Generate(r.cfg.GraphParams(), rng)
	if err != nil {
		return Result{}, NewTrialError(i, "generate", err)
	}

	sim, err := diffusion.New(g, delay.New(rng, r.cfg.OutgoingMean, r.cfg.IncomingMean), rng, diffusion.Config{
		DoubleSpend: r.cfg.DoubleSpend,
		Probes:      r.probes,
		TimeCeiling: diffusion.SimTime(r.cfg.TimeCeiling),
	})
	if err != nil {
		return Result{}, NewTrialError(i, "simulate", err)
	}

	var deliveries *diffusion.DeliveryCollector
	if r.log.Level() >= logging.LevelDebug {
		deliveries = diffusion.NewDeliveryCollector()
		sim.AddCollector(deliveries)
	}

	out, err := sim.Run()
	if err != nil {
		return Result{}, NewTrialError(i, "simulate", err)
	}
	if deliveries != nil {
		r.log.Debugf("trial %d: transactions reached %d/%d peers",
			i, deliveries.Coverage(g.Peers()), g.PeerCount())
	}

	res := Result{
		Trial:     i,
		Seed:      seed,
		Elapsed:   time.Duration(out.Elapsed),
		Sightings: len(out.Sightings),
		Steps:     out.Steps,
		Reason:    out.Reason,
	}

	score, err := scoring.Score(g, scoring.TruncateAfter(out.Sightings, r.cfg.TruncateAfter))
	switch {
	case errors.Is(err, scoring.ErrNoSightings):
		r.log.Warnf("trial %d: no sightings before stop (%s), not scored", i, out.Reason)
	case err != nil:
		return Result{}, NewTrialError(i, "score", err)
	default:
		res.Score = score
		res.Scored = true
	}

	r.log.Debugf("trial %d: %s after %d steps at %v, score=%.4f",
		i, out.Reason, out.Steps, res.Elapsed, res.Score)
	return res, nil
}

// Run executes every configured trial on a bounded worker pool and returns
// the results in trial order. The first failing trial cancels the rest.
func (r *Runner) Run(ctx context.Context) ([]Result, error) {
	workers := r.cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]Result, r.cfg.Trials)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range results {
		if gCtx.Err() != nil {
			break
		}
		i := i // per-iteration copy; go.mod targets go1.21 loop semantics
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			res, err := r.RunOne(i)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	// errgroup only reports errors from goroutines it started.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.log.Infof("completed %d trials with %d workers", len(results), workers)
	return results, nil
}

// TrialError wraps an error with trial context.
type TrialError struct {
	Trial int
	Op    string
	Err   error
}

// Error returns the error message.
func (e *TrialError) Error() string {
	return fmt.Sprintf("trial %d: %s: %v", e.Trial, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *TrialError) Unwrap() error {
	return e.Err
}

// NewTrialError creates a new TrialError.
func NewTrialError(trial int, op string, err error) *TrialError {
	return &TrialError{Trial: trial, Op: op, Err: err}
}
