package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/LeJamon/txdiffusion/internal/config"
	"github.com/LeJamon/txdiffusion/internal/logging"
)

var (
	// Global flags
	configFile string
	debug      bool
	verbose    bool
	quiet      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "diffsim",
	Short: "diffsim - transaction diffusion deanonymization simulator",
	Long: `diffsim simulates how transactions spread through a randomly wired relay
network and measures how well an adversary connected to every peer can tell
which neighbor handed each peer its first transaction.`,
	Version:       "0.1.0-dev",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "conf", "", "configuration file path (toml, yaml or json)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable normally suppressed debug logging")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log errors")
}

// newLogger applies the global verbosity flags on top of the configured level.
func newLogger(cfg *config.Config) *logging.Logger {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logging.LevelInfo
	}
	switch {
	case debug:
		level = logging.LevelDebug
	case quiet:
		level = logging.LevelError
	case verbose && level < logging.LevelInfo:
		level = logging.LevelInfo
	}
	return logging.New(rootCmd.ErrOrStderr(), level, "diffsim ")
}
