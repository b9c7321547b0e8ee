package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/abdul-hamid-achik/end2/packages/core/config"
	"github.com/abdul-hamid-achik/end2/packages/core/discovery"
	"github.com/abdul-hamid-achik/end2/packages/core/env"
	"github.com/abdul-hamid-achik/end2/packages/core/result"
	"github.com/abdul-hamid-achik/end2/packages/core/runner"
	"github.com/abdul-hamid-achik/end2/packages/export/metrics"
	"github.com/abdul-hamid-achik/end2/packages/history"
	"github.com/abdul-hamid-achik/end2/packages/hooks"
	"github.com/abdul-hamid-achik/end2/packages/notify"
	"github.com/abdul-hamid-achik/end2/packages/output"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Discover and run the selected suite",
	Long: `Discover the selected modules and run them as one suite.

Examples:
  end2 run --suite tests.smoke
  end2 run --suite "tests.api.users::TestLogin,TestRoles[1:]" --suite "!tests.api.flaky"
  end2 run --suite-glob "tests.*.users" --stop-on-fail
  end2 run --suite-regex "tests\.api\..*::Test(Get|List).*"
  end2 run --suite-tag "tests/smoke,fast" --output junit --output-file report.xml
  end2 run --suite-last-failed
  end2 run --suite nightly --watch ./fixtures`,
	Args: cobra.NoArgs,
	RunE: runCommand,
}

var (
	maxWorkersFlag    int
	maxSubFoldersFlag int
	noConcurrencyFlag bool
	stopOnFailFlag    bool
	rateLimitFlag     float64
	seedFlag          int64
	outputFlag        string
	outputFileFlag    string
	noColorFlag       bool
	verboseFlag       bool
	logDirFlag        string
	noLogsFlag        bool
	historyDBFlag     string
	metricsFileFlag   string
	notifyOnFlag      string
	notifySlackFlag   string
	notifyTeamsFlag   string
	envFileFlag       string
	watchFlag         string
)

func init() {
	addSelectionFlags(runCmd)

	// Execution flags
	runCmd.Flags().IntVar(&maxWorkersFlag, "max-workers", getEnvInt("END2_MAX_WORKERS", config.DefaultMaxWorkers), "Modules and tests running at once (env: END2_MAX_WORKERS)")
	runCmd.Flags().BoolVar(&noConcurrencyFlag, "no-concurrency", getEnvBool("END2_NO_CONCURRENCY", false), "Run every module sequentially (env: END2_NO_CONCURRENCY)")
	runCmd.Flags().BoolVar(&stopOnFailFlag, "stop-on-fail", getEnvBool("END2_STOP_ON_FAIL", false), "Stop the suite at the first failure (env: END2_STOP_ON_FAIL)")
	runCmd.Flags().Float64Var(&rateLimitFlag, "rate-limit", 0, "Maximum test starts per second, 0 for unlimited")
	runCmd.Flags().Int64Var(&seedFlag, "seed", 0, "Shuffle seed, 0 for a fresh one")

	// Output flags
	runCmd.Flags().StringVarP(&outputFlag, "output", "o", getEnvString("END2_OUTPUT", config.DefaultOutput), "Output format: console, json, junit, tap, html (env: END2_OUTPUT)")
	runCmd.Flags().StringVar(&outputFileFlag, "output-file", getEnvString("END2_OUTPUT_FILE", ""), "Write the report to a file (default: stdout) (env: END2_OUTPUT_FILE)")
	runCmd.Flags().BoolVar(&noColorFlag, "no-color", getEnvBool("END2_NO_COLOR", false), "Disable colored output (env: END2_NO_COLOR)")
	runCmd.Flags().BoolVarP(&verboseFlag, "verbose", "v", false, "Show passed variants, module progress and the slowest tests")

	// Persistence flags
	runCmd.Flags().StringVar(&logDirFlag, "log-dir", getEnvString("END2_LOG_DIR", ""), "Folder receiving one log folder per run (env: END2_LOG_DIR)")
	runCmd.Flags().IntVar(&maxSubFoldersFlag, "max-sub-folders", config.DefaultMaxSubFolders, "Run log folders to keep")
	runCmd.Flags().BoolVar(&noLogsFlag, "no-logs", false, "Do not write run log folders")
	runCmd.Flags().StringVar(&historyDBFlag, "history-db", getEnvString("END2_HISTORY_DB", ""), "SQLite database recording every run (env: END2_HISTORY_DB)")
	runCmd.Flags().StringVar(&metricsFileFlag, "metrics-file", getEnvString("END2_METRICS_FILE", ""), "Write run metrics, Prometheus text or .json (env: END2_METRICS_FILE)")

	// Notification flags
	runCmd.Flags().StringVar(&notifyOnFlag, "notify-on", "", "When to notify: always, failure, success, recovery")
	runCmd.Flags().StringVar(&notifySlackFlag, "notify-slack", getEnvString("END2_SLACK_WEBHOOK", ""), "Slack webhook URL (env: END2_SLACK_WEBHOOK)")
	runCmd.Flags().StringVar(&notifyTeamsFlag, "notify-teams", getEnvString("END2_TEAMS_WEBHOOK", ""), "Microsoft Teams webhook URL (env: END2_TEAMS_WEBHOOK)")

	runCmd.Flags().StringVar(&envFileFlag, "env-file", getEnvString("END2_ENV_FILE", ""), "Export a .env file before hooks and tests run (env: END2_ENV_FILE)")
	runCmd.Flags().StringVarP(&watchFlag, "watch", "w", "", "Watch a directory and rerun the suite when it changes")
}

// runOverrides collects the run flags set on the command line. Unset flags
// leave the rc file's values alone.
func runOverrides(cmd *cobra.Command) *config.Config {
	o := &config.Config{}
	f := cmd.Flags()
	if f.Changed("max-workers") || os.Getenv("END2_MAX_WORKERS") != "" {
		o.Settings.MaxWorkers = maxWorkersFlag
	}
	if f.Changed("max-sub-folders") {
		o.Settings.MaxSubFolders = maxSubFoldersFlag
	}
	if f.Changed("no-concurrency") || os.Getenv("END2_NO_CONCURRENCY") != "" {
		o.Settings.NoConcurrency = config.BoolPtr(noConcurrencyFlag)
	}
	if f.Changed("stop-on-fail") || os.Getenv("END2_STOP_ON_FAIL") != "" {
		o.Settings.StopOnFail = config.BoolPtr(stopOnFailFlag)
	}
	if f.Changed("no-color") || os.Getenv("END2_NO_COLOR") != "" {
		o.Settings.NoColor = config.BoolPtr(noColorFlag)
	}
	if f.Changed("output") || os.Getenv("END2_OUTPUT") != "" {
		o.Settings.Output = outputFlag
	}
	o.Settings.RateLimit = rateLimitFlag
	o.Settings.Seed = seedFlag
	o.Settings.LogDir = logDirFlag
	o.Settings.HistoryDB = historyDBFlag
	o.Settings.MetricsFile = metricsFileFlag
	o.Notify = config.Notify{On: notifyOnFlag, Slack: notifySlackFlag, Teams: notifyTeamsFlag}
	return o
}

// newNotifier builds the webhook notifiers named by the config. It is nil
// when there are none.
func newNotifier(cfg *config.Config) (*notify.Manager, error) {
	on, err := notify.ParseNotifyOn(cfg.Notify.On)
	if err != nil {
		return nil, &ExitError{Code: ExitUsageError, Err: err}
	}
	var notifiers []notify.Notifier
	// rc files reference webhook secrets as ${VAR}
	if url := os.ExpandEnv(cfg.Notify.Slack); url != "" {
		notifiers = append(notifiers, notify.NewSlackNotifier(url, notify.WithSlackChannel(cfg.Notify.SlackChannel)))
	}
	if url := os.ExpandEnv(cfg.Notify.Teams); url != "" {
		notifiers = append(notifiers, notify.NewTeamsNotifier(url))
	}
	if len(notifiers) == 0 {
		return nil, nil
	}
	return notify.NewManager(on, notifiers...), nil
}

func runCommand(cmd *cobra.Command, args []string) error {
	if envFileFlag != "" {
		if _, err := env.Export(envFileFlag); err != nil {
			return &ExitError{Code: ExitConfigError, Err: err}
		}
	}

	cfg, err := loadConfig(runOverrides(cmd))
	if err != nil {
		return err
	}

	logger := newLogger(cmd.ErrOrStderr())

	notifier, err := newNotifier(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	h := hooks.New(cwd, hooks.WithLogger(logger.With("hook", true)))
	if err := h.PreRun(ctx, cfg.Hooks.PreRun); err != nil {
		return &ExitError{Code: ExitHookError, Err: err}
	}
	defer func() {
		// post-run hooks still run after an interrupt
		if err := h.PostRun(context.WithoutCancel(ctx), cfg.Hooks.PostRun); err != nil {
			logger.Error("post-run hooks", "err", err)
		}
	}()

	s, err := runOnce(ctx, cmd, cfg, logger, notifier)
	if errors.Is(err, errNoLastFailed) {
		fmt.Fprintf(cmd.OutOrStdout(), "%v, nothing to run\n", err)
		return nil
	}
	if err != nil {
		return err
	}

	if watchFlag != "" {
		return watch(ctx, cmd, cfg, logger, notifier, watchFlag)
	}

	if code := s.ExitCode(); code != ExitSuccess {
		return &ExitError{Code: code}
	}
	return nil
}

// runOnce discovers and runs the suite once: report, run logs, last-failed
// file, history record, metrics and notifications included.
func runOnce(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *log.Logger, notifier *notify.Manager) (*result.Suite, error) {
	targets, ignored, err := selectTargets(cfg, false)
	if err != nil {
		return nil, err
	}

	// Own copy, so that teeing into this run's log leaves the root logger
	// alone.
	logger = logger.With()

	var reporters output.Multi
	if !noLogsFlag && cfg.Settings.LogDir != "" {
		sink, err := output.NewFileSink(cfg.Settings.LogDir, cfg.Settings.MaxSubFolders)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := sink.Close(); err != nil {
				logger.Error("closing run logs", "err", err)
			}
		}()
		logger.SetOutput(io.MultiWriter(cmd.ErrOrStderr(), sink.Writer()))
		logger.Debug("run logs", "folder", sink.Folder())
		reporters = append(reporters, sink)
	}

	report, closeReport, err := buildReporter(cmd, cfg)
	if err != nil {
		return nil, err
	}
	defer closeReport()
	reporters = append(reporters, report...)

	tree, failedImports := discovery.DiscoverSuite(registry, targets, ignored, discovery.Options{
		Seed:   cfg.Settings.Seed,
		Logger: logger,
	})
	logger.Info("discovered suite", "tests", tree.Count(), "failed_imports", len(failedImports), "seed", tree.Seed)

	r := runner.NewRunner(&runner.Config{
		MaxWorkers:     cfg.Settings.MaxWorkers,
		NoConcurrency:  cfg.GetNoConcurrency(),
		StopOnFail:     cfg.GetStopOnFail(),
		RateLimit:      cfg.Settings.RateLimit,
		LastFailedFile: cfg.Settings.LastFailedFile,
		Logger:         logger,
	}, reporters)
	s := r.Run(ctx, tree, failedImports)

	if err := reporters.Flush(); err != nil {
		return s, fmt.Errorf("writing report: %w", err)
	}

	publish(ctx, cfg, s, logger, notifier)
	return s, nil
}

// publish hands a finished run to history, the metrics file and the
// webhooks. Failures are logged; they never change the run's outcome.
func publish(ctx context.Context, cfg *config.Config, s *result.Suite, logger *log.Logger, notifier *notify.Manager) {
	ctx = context.WithoutCancel(ctx)
	if cfg.Settings.HistoryDB != "" {
		if err := recordHistory(ctx, cfg.Settings.HistoryDB, s); err != nil {
			logger.Error("recording run history", "err", err)
		}
	}
	if cfg.Settings.MetricsFile != "" {
		if err := metrics.WriteFile(cfg.Settings.MetricsFile, metrics.NewSnapshot(s)); err != nil {
			logger.Error("writing metrics", "err", err)
		}
	}
	if notifier != nil {
		if err := notifier.Notify(ctx, notify.NewRunSummary(s)); err != nil {
			logger.Error("sending notifications", "err", err)
		}
	}
}

// buildReporter creates the --output reporter. A non-console report written
// to a file keeps the console reporter on stdout as well.
func buildReporter(cmd *cobra.Command, cfg *config.Config) ([]runner.Reporter, func(), error) {
	var out io.Writer = cmd.OutOrStdout()
	closeFn := func() {}
	if outputFileFlag != "" {
		f, err := os.Create(outputFileFlag)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot create output file: %w", err)
		}
		out = f
		closeFn = func() { _ = f.Close() }
	}

	consoleOpts := []output.ConsoleOption{
		output.WithVerbose(verboseFlag),
		output.WithNoColor(cfg.GetNoColor() || outputFileFlag != ""),
	}

	format := strings.ToLower(cfg.Settings.Output)
	var report runner.Reporter
	if format == output.FormatHTML {
		report = output.NewHTMLFormatter(output.HTMLWithWriter(out), output.HTMLWithVersion(version))
	} else {
		var err error
		if report, err = output.New(format, out, consoleOpts...); err != nil {
			closeFn()
			return nil, nil, &ExitError{Code: ExitUsageError, Err: err}
		}
	}

	reporters := []runner.Reporter{report}
	if format != output.FormatConsole && format != "" && outputFileFlag != "" {
		reporters = append(reporters, output.NewConsoleReporter(
			output.WithWriter(cmd.OutOrStdout()),
			output.WithVerbose(verboseFlag),
			output.WithNoColor(cfg.GetNoColor()),
		))
	}
	return reporters, closeFn, nil
}

func recordHistory(ctx context.Context, path string, s *result.Suite) error {
	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Save(ctx, s)
}
