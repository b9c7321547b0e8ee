package cmd

import (
	"io"
	"os"

	"github.com/abdul-hamid-achik/end2/packages/core/catalog"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"

	// registry is the catalog test packages registered into.
	registry = catalog.Default

	logLevelFlag string
)

var rootCmd = &cobra.Command{
	Use:   "end2",
	Short: "Concurrent end-to-end test runner",
	Long: `end2 discovers test modules registered in a catalog, runs them with
package scoped fixtures, parallel modules and parallel tests, and reports
one suite result.

Test packages register themselves from init(); a driver main blank-imports
them and calls cmd.Execute.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI against cat. A nil cat uses catalog.Default.
func Execute(v, bt string, cat *catalog.Catalog) {
	version = v
	buildTime = bt
	if cat != nil {
		registry = cat
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", getEnvString("END2_LOG_LEVEL", "info"), "Log level: debug, info, warn, error (env: END2_LOG_LEVEL)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

// newLogger builds the root logger at --log-level. An unknown level falls
// back to info.
func newLogger(w io.Writer) *log.Logger {
	level, err := log.ParseLevel(logLevelFlag)
	if err != nil {
		level = log.InfoLevel
	}
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Level:           level,
		Prefix:          "end2",
	})
}
