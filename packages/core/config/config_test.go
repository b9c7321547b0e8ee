package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 20, cfg.Settings.MaxWorkers)
	assert.Equal(t, 10, cfg.Settings.MaxSubFolders)
	assert.False(t, cfg.GetNoConcurrency())
	assert.False(t, cfg.GetStopOnFail())
	assert.Equal(t, "logs", cfg.Settings.LogDir)
	assert.Equal(t, ".end2_last_failed", cfg.Settings.LastFailedFile)
	assert.True(t, cfg.IsDefault())
}

func TestLoadConfig(t *testing.T) {
	t.Run("yaml file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, ".end2rc.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
settings:
  max-workers: 4
  stop-on-fail: true
suite-alias:
  smoke: tests.smoke tests.regression.users
suite-disabled:
  tests.regression.flaky: BUG-1234
`), 0644))

		cfg, err := FindAndLoadConfig(dir)
		require.NoError(t, err)
		assert.Equal(t, 4, cfg.Settings.MaxWorkers)
		assert.Equal(t, 10, cfg.Settings.MaxSubFolders, "unset keys keep defaults")
		assert.True(t, cfg.GetStopOnFail())
		assert.Equal(t, "tests.smoke tests.regression.users", cfg.SuiteAlias["smoke"])
		assert.Equal(t, "BUG-1234", cfg.SuiteDisabled["tests.regression.flaky"])
		assert.False(t, cfg.IsDefault())
	})

	t.Run("json file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rc.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"settings": {"no-concurrency": true, "rate-limit": 2.5}}`), 0644))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.True(t, cfg.GetNoConcurrency())
		assert.Equal(t, 2.5, cfg.Settings.RateLimit)
	})

	t.Run("no file returns defaults", func(t *testing.T) {
		cfg, err := FindAndLoadConfig(t.TempDir())
		require.NoError(t, err)
		assert.True(t, cfg.IsDefault())
	})

	t.Run("schema violation", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "end2.yaml")
		require.NoError(t, os.WriteFile(path, []byte("settings:\n  max-workers: many\n"), 0644))

		_, err := LoadConfig(path)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalid))
		assert.Contains(t, err.Error(), "max-workers")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{"template", Template, false},
		{"empty", "", false},
		{"unknown section", "plugins: {}\n", true},
		{"unknown setting", "settings:\n  workers: 3\n", true},
		{"zero workers", "settings:\n  max-workers: 0\n", true},
		{"bad output", "settings:\n  output: xml\n", true},
		{"empty alias", "suite-alias:\n  smoke: \"\"\n", true},
		{"hooks", "hooks:\n  pre-run: [\"make up\"]\n", false},
		{"notify", "notify:\n  on: recovery\n  slack: https://hooks.example/x\n", false},
		{"bad notify policy", "notify:\n  on: sometimes\n", true},
		{"not yaml", "settings: [\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate([]byte(tt.doc))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalid)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	base := DefaultConfig()
	base.SuiteAlias = map[string]string{"smoke": "a b"}

	merged := base.Merge(&Config{
		Settings: Settings{
			MaxWorkers: 2,
			StopOnFail: BoolPtr(true),
			Seed:       42,
		},
		SuiteAlias: map[string]string{"nightly": "smoke c"},
	})

	assert.Equal(t, 2, merged.Settings.MaxWorkers)
	assert.True(t, merged.GetStopOnFail())
	assert.False(t, merged.GetNoConcurrency(), "unset override keeps base")
	assert.Equal(t, int64(42), merged.Settings.Seed)
	assert.Equal(t, map[string]string{"smoke": "a b", "nightly": "smoke c"}, merged.SuiteAlias)
	assert.Equal(t, "https://hooks.example/x", merged.Notify.Slack)
	assert.Empty(t, merged.Notify.On)
	assert.Equal(t, 20, base.Settings.MaxWorkers, "base is not mutated")
	assert.Same(t, base, base.Merge(nil))
}

func TestResolveSelectors(t *testing.T) {
	tests := []struct {
		name      string
		selectors []string
		alias     map[string]string
		disabled  []string
		want      []string
	}{
		{"alias", []string{"a"}, map[string]string{"a": "b"}, nil, []string{"b"}},
		{"dedup", []string{"a", "b"}, map[string]string{"a": "b"}, nil, []string{"b"}},
		{"mixed", []string{"a", "b"}, map[string]string{"a": "c"}, nil, []string{"b", "c"}},
		{"plain", []string{"a", "b", "c"}, nil, nil, []string{"a", "b", "c"}},
		{"nested", []string{"a"}, map[string]string{"a": "b c", "b": "d", "c": "e"}, nil, []string{"d", "e"}},
		{"disabled target", []string{"a"}, map[string]string{"a": "b"}, []string{"b"}, nil},
		{"disabled alias", []string{"a", "b"}, map[string]string{"a": "b"}, []string{"a"}, []string{"b"}},
		{"unrelated disabled", []string{"a"}, map[string]string{"a": "c"}, []string{"b"}, []string{"c"}},
		{"cycle", []string{"a"}, map[string]string{"a": "b x", "b": "a"}, nil, []string{"x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.SuiteAlias = tt.alias
			for _, d := range tt.disabled {
				cfg.SuiteDisabled[d] = "reason"
			}
			got, _ := cfg.ResolveSelectors(tt.selectors)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveSelectors_DisabledIgnored(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SuiteAlias = map[string]string{"smoke": "pkg"}
	cfg.SuiteDisabled = map[string]string{"pkg.flaky": "BUG-1", "smoke": "later"}

	got, ignored := cfg.ResolveSelectors([]string{"pkg"})
	assert.Equal(t, []string{"pkg"}, got)
	assert.Equal(t, []string{"pkg.flaky"}, ignored)
}

func TestSaveConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig().Merge(&Config{Settings: Settings{MaxWorkers: 7}})

	for _, name := range []string{"out.yaml", "out.json"} {
		path := filepath.Join(dir, name)
		require.NoError(t, cfg.SaveConfig(path))

		loaded, err := LoadConfig(path)
		require.NoError(t, err, name)
		assert.Equal(t, 7, loaded.Settings.MaxWorkers, name)
	}
}
