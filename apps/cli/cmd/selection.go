package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/abdul-hamid-achik/end2/packages/core/config"
	"github.com/abdul-hamid-achik/end2/packages/core/discovery"
	"github.com/abdul-hamid-achik/end2/packages/core/lastfailed"
	"github.com/spf13/cobra"
)

var (
	suiteFlag      []string
	suiteGlobFlag  []string
	suiteRegexFlag []string
	suiteTagFlag   []string
	lastFailedFlag bool
	configFlag     string
)

var selectionFlags = []string{"suite", "suite-glob", "suite-regex", "suite-tag", "suite-last-failed"}

// errNoLastFailed means --suite-last-failed found nothing to rerun.
var errNoLastFailed = errors.New("no failed tests recorded")

// addSelectionFlags registers the mutually exclusive selection flags.
// Selectors may contain commas, so they are string arrays: repeat the flag
// for several selectors.
func addSelectionFlags(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&suiteFlag, "suite", "s", nil, `Selector "pkg.module::Test1,Test2[1:3]", "!" excludes; aliases expand`)
	cmd.Flags().StringArrayVar(&suiteGlobFlag, "suite-glob", nil, `Glob over module paths with an optional "::" test glob`)
	cmd.Flags().StringArrayVar(&suiteRegexFlag, "suite-regex", nil, `Regex over module paths with an optional "::" test regex`)
	cmd.Flags().StringArrayVar(&suiteTagFlag, "suite-tag", nil, `Tag selector "[path/]tag1,tag2", "!" excludes`)
	cmd.Flags().BoolVar(&lastFailedFlag, "suite-last-failed", false, "Rerun the tests that did not pass last time")
	cmd.Flags().StringVar(&configFlag, "config", getEnvString("END2_CONFIG", ""), "Path to rc file (env: END2_CONFIG)")
	cmd.MarkFlagsMutuallyExclusive(selectionFlags...)
}

// loadConfig reads --config, or the rc file found in the working directory,
// and overlays flag overrides on it.
func loadConfig(overrides *config.Config) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configFlag != "" {
		cfg, err = config.LoadConfig(configFlag)
	} else {
		var cwd string
		if cwd, err = os.Getwd(); err == nil {
			cfg, err = config.FindAndLoadConfig(cwd)
		}
	}
	if err != nil {
		return nil, &ExitError{Code: ExitConfigError, Err: err}
	}
	return cfg.Merge(overrides), nil
}

// selectTargets turns the selection flags into discovery targets and the
// paths to ignore. Disabled suites from the rc file are always ignored.
// all selects the whole catalog when no selection flag is set.
func selectTargets(cfg *config.Config, all bool) ([]discovery.Target, []string, error) {
	_, disabled := cfg.ResolveSelectors(nil)

	switch {
	case len(suiteFlag) > 0:
		resolved, _ := cfg.ResolveSelectors(suiteFlag)
		targets, ignored := discovery.FromSelectors(resolved)
		return targets, append(ignored, disabled...), nil

	case len(suiteGlobFlag) > 0:
		targets, ignored := discovery.FromGlobs(registry, suiteGlobFlag)
		return targets, append(ignored, disabled...), nil

	case len(suiteRegexFlag) > 0:
		targets, ignored := discovery.FromRegexes(registry, suiteRegexFlag)
		return targets, append(ignored, disabled...), nil

	case len(suiteTagFlag) > 0:
		return discovery.FromTags(suiteTagFlag), disabled, nil

	case lastFailedFlag:
		selectors, err := lastfailed.Read(cfg.Settings.LastFailedFile)
		if err != nil {
			return nil, nil, &ExitError{Code: ExitSelectionError, Err: err}
		}
		if len(selectors) == 0 {
			return nil, nil, fmt.Errorf("%w in %s", errNoLastFailed, cfg.Settings.LastFailedFile)
		}
		targets, ignored := discovery.FromSelectors(selectors)
		return targets, append(ignored, disabled...), nil

	case all:
		return []discovery.Target{{Path: ""}}, disabled, nil
	}

	return nil, nil, &ExitError{
		Code: ExitUsageError,
		Err:  fmt.Errorf("one of --suite, --suite-glob, --suite-regex, --suite-tag or --suite-last-failed is required"),
	}
}
