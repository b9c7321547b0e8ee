package cmd

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/end2/packages/core/result"
	"github.com/abdul-hamid-achik/end2/packages/history"
	"github.com/spf13/cobra"
)

var (
	historyLimitFlag int
	historyFlakyFlag bool
	historyPruneFlag int
)

var historyCmd = &cobra.Command{
	Use:   "history [module::test]",
	Short: "Show past runs from the history database",
	Long: `Show past runs recorded with --history-db (or history-db in the rc
file). With a test name, show that test's outcomes across runs instead.

Examples:
  end2 history --history-db runs.db
  end2 history "tests.api.users::TestLogin" --limit 20
  end2 history --flaky
  end2 history --prune 100`,
	Args: cobra.MaximumNArgs(1),
	RunE: historyCommand,
}

func init() {
	historyCmd.Flags().StringVar(&historyDBFlag, "history-db", getEnvString("END2_HISTORY_DB", ""), "SQLite history database (env: END2_HISTORY_DB)")
	historyCmd.Flags().StringVar(&configFlag, "config", getEnvString("END2_CONFIG", ""), "Path to rc file (env: END2_CONFIG)")
	historyCmd.Flags().IntVarP(&historyLimitFlag, "limit", "n", 10, "Number of runs to show")
	historyCmd.Flags().BoolVar(&historyFlakyFlag, "flaky", false, "List tests that both passed and failed within the last --limit runs")
	historyCmd.Flags().IntVar(&historyPruneFlag, "prune", 0, "Keep only the newest N runs")
}

func historyCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}
	path := cfg.Settings.HistoryDB
	if historyDBFlag != "" {
		path = historyDBFlag
	}
	if path == "" {
		return &ExitError{Code: ExitUsageError, Err: fmt.Errorf("no history database: pass --history-db or set history-db in the rc file")}
	}

	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	w := cmd.OutOrStdout()

	switch {
	case historyPruneFlag > 0:
		removed, err := store.Prune(ctx, historyPruneFlag)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Removed %d runs\n", removed)
		return nil

	case historyFlakyFlag:
		flaky, err := store.Flaky(ctx, historyLimitFlag)
		if err != nil {
			return err
		}
		renderFlaky(w, flaky, historyLimitFlag)
		return nil

	case len(args) == 1:
		runs, err := store.TestHistory(ctx, args[0], historyLimitFlag)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintf(w, "No runs recorded for %s\n", args[0])
			return nil
		}
		renderTestHistory(w, runs)
		return nil
	}

	runs, err := store.Recent(ctx, historyLimitFlag)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintf(w, "No runs recorded in %s\n", path)
		return nil
	}
	renderRuns(w, runs)
	return nil
}

func renderRuns(w io.Writer, runs []history.Run) {
	table := newTable(w, "Run", "Started", "Status", "Passed", "Failed", "Skipped", "Duration")
	for _, r := range runs {
		table.Append([]string{
			r.ID,
			r.StartedAt.Format(time.DateTime),
			statusColor(r.Status),
			fmt.Sprint(r.Passed),
			fmt.Sprint(r.Failed),
			fmt.Sprint(r.Skipped),
			r.Duration.String(),
		})
	}
	table.Render()
}

func renderTestHistory(w io.Writer, runs []history.TestRun) {
	table := newTable(w, "Run", "Started", "Status", "Duration", "Record")
	for _, r := range runs {
		record := r.Record
		if i := strings.IndexByte(record, '\n'); i >= 0 {
			record = record[:i] + " ..."
		}
		table.Append([]string{
			r.RunID,
			r.StartedAt.Format(time.DateTime),
			statusColor(r.Status),
			r.Duration.String(),
			record,
		})
	}
	table.Render()
}

func renderFlaky(w io.Writer, flaky map[string]int, window int) {
	if len(flaky) == 0 {
		fmt.Fprintf(w, "No flaky tests in the last %d runs\n", window)
		return
	}
	names := make([]string, 0, len(flaky))
	for name := range flaky {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b string) int {
		if flaky[a] != flaky[b] {
			return flaky[b] - flaky[a]
		}
		return strings.Compare(a, b)
	})

	table := newTable(w, "Test", "Failures")
	for _, name := range names {
		table.Append([]string{name, fmt.Sprint(flaky[name])})
	}
	table.Render()
}

func statusColor(s result.Status) string {
	switch s {
	case result.Passed:
		return green(s.String())
	case result.Failed:
		return red(s.String())
	}
	return yellow(s.String())
}
