package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LeJamon/txdiffusion/internal/config"
	"github.com/LeJamon/txdiffusion/internal/storage/database/pebble"
	"github.com/LeJamon/txdiffusion/internal/storage/results"
	"github.com/LeJamon/txdiffusion/internal/trial"
)

var reportRunID string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print a stored run, or list stored runs",
	Long: `Print the per-trial lines and summary of a run stored with
"run --results-dir". Without --run-id, list the stored runs.`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVar(&reportRunID, "run-id", "", "run to print")
	reportCmd.Flags().String("results-dir", "", "pebble directory holding stored runs")
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	if !cfg.Persist() {
		return fmt.Errorf("%w: results_dir is required", config.ErrInvalidConfig)
	}

	m := pebble.NewManager(cfg.ResultsDir)
	defer m.Close()

	db, err := m.OpenDB(resultsDBName)
	if err != nil {
		return err
	}
	store, err := results.NewStore(db, 0)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if reportRunID == "" {
		runs, err := store.Runs(ctx)
		if err != nil {
			return err
		}
		for _, r := range runs {
			fmt.Fprintf(out, "%s %s trials=%d peers=%d degree=%d double_spend=%t\n",
				r.RunID, r.Created().Format("2006-01-02T15:04:05"), r.Trials, r.PeerCount, r.OutgoingDegree, r.DoubleSpend)
		}
		return nil
	}

	res, err := store.List(ctx, reportRunID)
	if err != nil {
		return err
	}
	if err := trial.WriteLines(out, res); err != nil {
		return err
	}
	fmt.Fprintln(out, trial.Summarize(res))
	return nil
}
