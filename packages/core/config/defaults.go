package config

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

const (
	DefaultMaxWorkers     = 20
	DefaultMaxSubFolders  = 10
	DefaultLogDir         = "logs"
	DefaultLastFailedFile = ".end2_last_failed"
	DefaultOutput         = "console"
)

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Settings: Settings{
			MaxWorkers:     DefaultMaxWorkers,
			MaxSubFolders:  DefaultMaxSubFolders,
			NoConcurrency:  BoolPtr(false),
			StopOnFail:     BoolPtr(false),
			LogDir:         DefaultLogDir,
			LastFailedFile: DefaultLastFailedFile,
			Output:         DefaultOutput,
			NoColor:        BoolPtr(false),
		},
		SuiteAlias:    map[string]string{},
		SuiteDisabled: map[string]string{},
	}
}

// IsDefault returns true if the config matches defaults
func (c *Config) IsDefault() bool {
	defaults := DefaultConfig()
	s, d := c.Settings, defaults.Settings
	return s.MaxWorkers == d.MaxWorkers &&
		s.MaxSubFolders == d.MaxSubFolders &&
		c.GetNoConcurrency() == defaults.GetNoConcurrency() &&
		c.GetStopOnFail() == defaults.GetStopOnFail() &&
		s.RateLimit == d.RateLimit &&
		s.Seed == d.Seed &&
		s.LogDir == d.LogDir &&
		s.LastFailedFile == d.LastFailedFile &&
		s.HistoryDB == d.HistoryDB &&
		s.MetricsFile == d.MetricsFile &&
		s.Output == d.Output &&
		c.GetNoColor() == defaults.GetNoColor() &&
		len(c.SuiteAlias) == 0 &&
		len(c.SuiteDisabled) == 0 &&
		len(c.Hooks.PreRun) == 0 &&
		len(c.Hooks.PostRun) == 0 &&
		c.Notify == Notify{}
}

// Marshal encodes the config as YAML, or as indented JSON.
func (c *Config) Marshal(asJSON bool) ([]byte, error) {
	if asJSON {
		return json.MarshalIndent(c, "", "  ")
	}
	return yaml.Marshal(c)
}

// Template is the commented rc file written by `end2 init`.
const Template = `# end2 configuration
settings:
  max-workers: 20
  max-sub-folders: 10
  no-concurrency: false
  stop-on-fail: false
  rate-limit: 0
  log-dir: logs
  last-failed-file: .end2_last_failed
  output: console

# Named groups of selectors. Aliases may reference other aliases.
suite-alias: {}
#  smoke: tests.smoke tests.regression.users::TestLogin
#  nightly: smoke tests.regression

# Selectors (or aliases) to leave out of every run, with the reason.
suite-disabled: {}
#  tests.regression.flaky: BUG-1234

hooks:
  pre-run: []
  post-run: []

# Webhooks receiving a run summary. on: always, failure, success, recovery
notify:
  on: failure
#  slack: https://hooks.slack.com/services/...
#  teams: https://example.webhook.office.com/...
`
