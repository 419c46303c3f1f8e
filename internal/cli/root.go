package cli

import (
	"github.com/spf13/cobra"

	"github.com/stackbench-io/stackbench/internal/logging"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "stackbench",
	Short: "Layered test-infrastructure provisioning",
	Long: `Stackbench stands up the dependent CloudFormation stack chain used by
Slurm accounting integration tests: a VPC stack, a serverless database
stack, and an external slurmdbd stack wired to both.

Each layer can be substituted with a pre-existing stack, and everything
created by a run is torn down at the end of it unless --keep is set.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(logLevel)
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.AddCommand(upCmd)
	rootCmd.AddCommand(downCmd)
	rootCmd.AddCommand(versionCmd)
}
