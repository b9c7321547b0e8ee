package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned when a config document fails schema validation.
var ErrInvalid = errors.New("invalid config")

// Settings are the run defaults a CLI flag can override.
type Settings struct {
	MaxWorkers     int     `yaml:"max-workers,omitempty" json:"max-workers,omitempty"`
	MaxSubFolders  int     `yaml:"max-sub-folders,omitempty" json:"max-sub-folders,omitempty"`
	NoConcurrency  *bool   `yaml:"no-concurrency,omitempty" json:"no-concurrency,omitempty"`
	StopOnFail     *bool   `yaml:"stop-on-fail,omitempty" json:"stop-on-fail,omitempty"`
	RateLimit      float64 `yaml:"rate-limit,omitempty" json:"rate-limit,omitempty"` // test starts per second
	Seed           int64   `yaml:"seed,omitempty" json:"seed,omitempty"`
	LogDir         string  `yaml:"log-dir,omitempty" json:"log-dir,omitempty"`
	LastFailedFile string  `yaml:"last-failed-file,omitempty" json:"last-failed-file,omitempty"`
	HistoryDB      string  `yaml:"history-db,omitempty" json:"history-db,omitempty"`
	MetricsFile    string  `yaml:"metrics-file,omitempty" json:"metrics-file,omitempty"` // .prom or .json
	Output         string  `yaml:"output,omitempty" json:"output,omitempty"`
	NoColor        *bool   `yaml:"no-color,omitempty" json:"no-color,omitempty"`
}

// Hooks are shell commands run around a suite. A command prefixed with "-"
// may fail without failing the run.
type Hooks struct {
	PreRun  []string `yaml:"pre-run,omitempty" json:"pre-run,omitempty"`
	PostRun []string `yaml:"post-run,omitempty" json:"post-run,omitempty"`
}

// Notify names the webhooks that receive a run summary and when.
type Notify struct {
	On           string `yaml:"on,omitempty" json:"on,omitempty"` // always, failure, success, recovery
	Slack        string `yaml:"slack,omitempty" json:"slack,omitempty"`
	SlackChannel string `yaml:"slack-channel,omitempty" json:"slack-channel,omitempty"`
	Teams        string `yaml:"teams,omitempty" json:"teams,omitempty"`
}

// Config represents the end2 rc file
type Config struct {
	Settings      Settings          `yaml:"settings" json:"settings"`
	SuiteAlias    map[string]string `yaml:"suite-alias,omitempty" json:"suite-alias,omitempty"`       // name -> space separated selectors
	SuiteDisabled map[string]string `yaml:"suite-disabled,omitempty" json:"suite-disabled,omitempty"` // selector -> reason
	Hooks         Hooks             `yaml:"hooks,omitempty" json:"hooks,omitempty"`
	Notify        Notify            `yaml:"notify,omitempty" json:"notify,omitempty"`
}

// BoolPtr returns a pointer to b, for building overrides.
func BoolPtr(b bool) *bool {
	return &b
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetNoConcurrency returns the no-concurrency setting, defaulting to false
func (c *Config) GetNoConcurrency() bool {
	return getBool(c.Settings.NoConcurrency, false)
}

// GetStopOnFail returns the stop-on-fail setting, defaulting to false
func (c *Config) GetStopOnFail() bool {
	return getBool(c.Settings.StopOnFail, false)
}

// GetNoColor returns the no-color setting, defaulting to false
func (c *Config) GetNoColor() bool {
	return getBool(c.Settings.NoColor, false)
}

// ConfigFilenames contains the possible config file names, in search order
var ConfigFilenames = []string{
	".end2rc.yaml",
	".end2rc.yml",
	"end2.yaml",
	".end2rc.json",
}

// LoadConfig loads configuration from the specified path or searches for config files
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}
	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}

	// Return defaults if no config file found
	return DefaultConfig(), nil
}

// loadConfigFromFile validates and decodes a config file over the defaults.
// JSON is a subset of YAML, so one decoder serves both formats.
func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := Validate(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return config, nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c // Copy
	s, o := &result.Settings, other.Settings

	if o.MaxWorkers > 0 {
		s.MaxWorkers = o.MaxWorkers
	}
	if o.MaxSubFolders > 0 {
		s.MaxSubFolders = o.MaxSubFolders
	}
	if o.RateLimit > 0 {
		s.RateLimit = o.RateLimit
	}
	if o.Seed != 0 {
		s.Seed = o.Seed
	}
	if o.LogDir != "" {
		s.LogDir = o.LogDir
	}
	if o.LastFailedFile != "" {
		s.LastFailedFile = o.LastFailedFile
	}
	if o.HistoryDB != "" {
		s.HistoryDB = o.HistoryDB
	}
	if o.MetricsFile != "" {
		s.MetricsFile = o.MetricsFile
	}
	if o.Output != "" {
		s.Output = o.Output
	}

	// Boolean flags - only override if explicitly set in other config
	if o.NoConcurrency != nil {
		s.NoConcurrency = o.NoConcurrency
	}
	if o.StopOnFail != nil {
		s.StopOnFail = o.StopOnFail
	}
	if o.NoColor != nil {
		s.NoColor = o.NoColor
	}

	result.SuiteAlias = mergeMap(c.SuiteAlias, other.SuiteAlias)
	result.SuiteDisabled = mergeMap(c.SuiteDisabled, other.SuiteDisabled)

	if len(other.Hooks.PreRun) > 0 {
		result.Hooks.PreRun = other.Hooks.PreRun
	}
	if len(other.Hooks.PostRun) > 0 {
		result.Hooks.PostRun = other.Hooks.PostRun
	}

	n, on := &result.Notify, other.Notify
	if on.On != "" {
		n.On = on.On
	}
	if on.Slack != "" {
		n.Slack = on.Slack
	}
	if on.SlackChannel != "" {
		n.SlackChannel = on.SlackChannel
	}
	if on.Teams != "" {
		n.Teams = on.Teams
	}

	return &result
}

func mergeMap(base, over map[string]string) map[string]string {
	if len(over) == 0 {
		return base
	}
	out := make(map[string]string, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

// SaveConfig writes the configuration as YAML, or as JSON when path ends in
// .json.
func (c *Config) SaveConfig(path string) error {
	data, err := c.Marshal(strings.HasSuffix(path, ".json"))
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
