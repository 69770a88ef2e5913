package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/LeJamon/txdiffusion/internal/config"
	"github.com/LeJamon/txdiffusion/internal/logging"
	"github.com/LeJamon/txdiffusion/internal/storage/database/pebble"
	"github.com/LeJamon/txdiffusion/internal/storage/results"
	"github.com/LeJamon/txdiffusion/internal/trial"
)

const resultsDBName = "results"

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a batch of diffusion trials",
	Long: `Run independent diffusion trials and print one line per trial:

  <simulated elapsed microseconds> <score>

followed by a summary. Unscored trials (no sightings) print "-" as score.
With --results-dir the batch is stored under a new run id.`,
	Args: cobra.NoArgs,
	RunE: runTrials,
}

func init() {
	rootCmd.AddCommand(runCmd)
	config.RegisterFlags(runCmd.Flags())
}

func runTrials(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	runner, err := trial.NewRunner(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	logger.Infof("running %d trials: peers=%d degree=%d probes=%d double_spend=%t",
		cfg.Trials, cfg.PeerCount, cfg.OutgoingDegree, len(cfg.ProbeSet()), cfg.DoubleSpend)

	res, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if err := trial.WriteLines(out, res); err != nil {
		return err
	}
	fmt.Fprintln(out, trial.Summarize(res))

	if !cfg.Persist() {
		return nil
	}
	runID, err := persist(ctx, cfg, res, logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "run_id=%s\n", runID)
	return nil
}

func persist(ctx context.Context, cfg *config.Config, res []trial.Result, logger *logging.Logger) (string, error) {
	m := pebble.NewManager(cfg.ResultsDir)
	defer m.Close()

	db, err := m.OpenDB(resultsDBName)
	if err != nil {
		return "", err
	}
	store, err := results.NewStore(db, 0)
	if err != nil {
		return "", err
	}

	meta := results.NewRunMeta(cfg, len(res))
	if err := store.SaveRun(ctx, meta, res); err != nil {
		return "", err
	}
	logger.Infof("stored %d results in %s as run %s", len(res), cfg.ResultsDir, meta.RunID)
	return meta.RunID, nil
}
