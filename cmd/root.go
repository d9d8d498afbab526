package cmd

import (
	"os"

	"exercise-sync/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "exercise-sync",
	Short: "Exercise Sync Service",
	Long: `Exercise Sync mirrors exercise records between the local database and a
rate-limited fitness platform API. It plans, pulls and pushes changes and keeps an
audit trail of every run.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		l := logger.Console()
		l.Error("command failed", zap.Error(err))
		_ = l.Sync()
		os.Exit(1)
	}
}
