package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LeJamon/txdiffusion/internal/config"
)

var initConfigCmd = &cobra.Command{
	Use:   "init-config <path>",
	Short: "Write a configuration file holding every default",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SaveExampleConfig(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initConfigCmd)
}
