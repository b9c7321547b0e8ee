package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/abdul-hamid-achik/end2/packages/core/catalog"
	"github.com/abdul-hamid-achik/end2/packages/core/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type emptyModule struct{}

func (emptyModule) TestOne() error { return nil }

func withRegistry(t *testing.T, paths ...string) {
	t.Helper()
	cat := catalog.New()
	for _, p := range paths {
		require.NoError(t, cat.Register(p, catalog.Value(emptyModule{})))
	}
	old := registry
	registry = cat
	t.Cleanup(func() { registry = old })
}

func resetSelection(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		suiteFlag, suiteGlobFlag, suiteRegexFlag, suiteTagFlag = nil, nil, nil, nil
		lastFailedFlag = false
	})
}

func TestSelectTargets(t *testing.T) {
	withRegistry(t, "tests.api.users", "tests.api.orders", "tests.ui.login")
	cfg := config.DefaultConfig()
	cfg.SuiteAlias = map[string]string{"smoke": "tests.api.users tests.ui"}
	cfg.SuiteDisabled = map[string]string{"tests.api.orders": "BUG-7"}

	t.Run("suite expands aliases", func(t *testing.T) {
		resetSelection(t)
		suiteFlag = []string{"smoke"}
		targets, ignored, err := selectTargets(cfg, false)
		require.NoError(t, err)
		require.Len(t, targets, 2)
		assert.Equal(t, "tests.api.users", targets[0].Path)
		assert.Equal(t, "tests.ui", targets[1].Path)
		assert.Equal(t, []string{"tests.api.orders"}, ignored)
	})

	t.Run("glob", func(t *testing.T) {
		resetSelection(t)
		suiteGlobFlag = []string{"tests.api.*"}
		targets, ignored, err := selectTargets(cfg, false)
		require.NoError(t, err)
		assert.Len(t, targets, 2)
		assert.Contains(t, ignored, "tests.api.orders")
	})

	t.Run("tag", func(t *testing.T) {
		resetSelection(t)
		suiteTagFlag = []string{"tests.api/smoke"}
		targets, _, err := selectTargets(cfg, false)
		require.NoError(t, err)
		require.Len(t, targets, 1)
		assert.Equal(t, "tests.api", targets[0].Path)
		assert.NotNil(t, targets[0].Tags)
	})

	t.Run("nothing selected", func(t *testing.T) {
		resetSelection(t)
		_, _, err := selectTargets(cfg, false)
		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, ExitUsageError, exitErr.Code)

		targets, _, err := selectTargets(cfg, true)
		require.NoError(t, err)
		assert.Equal(t, "", targets[0].Path)
	})
}

func TestSelectTargets_LastFailed(t *testing.T) {
	withRegistry(t, "tests.api.users")
	resetSelection(t)
	lastFailedFlag = true

	cfg := config.DefaultConfig()
	cfg.Settings.LastFailedFile = filepath.Join(t.TempDir(), "last_failed")

	_, _, err := selectTargets(cfg, false)
	assert.True(t, errors.Is(err, errNoLastFailed))

	require.NoError(t, os.WriteFile(cfg.Settings.LastFailedFile, []byte("tests.api.users::TestOne\n"), 0644))
	targets, _, err := selectTargets(cfg, false)
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, "tests.api.users", targets[0].Path)
	assert.True(t, targets[0].Tests.Included("TestOne"))
	assert.False(t, targets[0].Tests.Included("TestTwo"))
}

func TestMissingPaths(t *testing.T) {
	withRegistry(t, "tests.api.users")
	assert.Equal(t, []string{"tests.gone"}, missingPaths([]string{"tests.api.users::TestOne", "tests.gone"}))
	assert.Empty(t, missingPaths([]string{"tests.api"}))
}

func TestWatchIgnore(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Settings.LogDir = "logs"
	cfg.Settings.HistoryDB = "runs.db"
	cfg.Settings.MetricsFile = filepath.Join("out", "end2.prom")
	w := newWatchIgnore(cfg)

	assert.True(t, w.match("logs"))
	assert.True(t, w.match(filepath.Join("logs", "01-02-2026_10-00-00", "suite_run.log")))
	assert.True(t, w.match(".end2_last_failed"))
	assert.True(t, w.match("runs.db-journal"))
	assert.True(t, w.match(filepath.Join("out", ".metrics-12345")))
	assert.False(t, w.match(filepath.Join("out", "report.xml")))
	assert.False(t, w.match("logsheet.txt"))
	assert.False(t, w.match(filepath.Join("fixtures", "users.json")))
}

func TestNewNotifier(t *testing.T) {
	cfg := config.DefaultConfig()
	n, err := newNotifier(cfg)
	require.NoError(t, err)
	assert.Nil(t, n)

	cfg.Notify = config.Notify{On: "recovery", Slack: "https://hooks.example/s", Teams: "https://hooks.example/t"}
	n, err = newNotifier(cfg)
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, 2, n.Len())

	cfg.Notify.Slack = "${END2_TEST_UNSET_WEBHOOK}"
	n, err = newNotifier(cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, n.Len(), "an empty expansion disables the notifier")

	cfg.Notify.On = "sometimes"
	_, err = newNotifier(cfg)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, ExitUsageError, exitErr.Code)
}

func TestExitError(t *testing.T) {
	assert.Equal(t, ExitTestFailure, exitCode(&ExitError{Code: ExitTestFailure}))
	assert.Equal(t, ExitConfigError, exitCode(&ExitError{Code: ExitConfigError, Err: errors.New("bad rc")}))
	assert.Equal(t, ExitUsageError, exitCode(errors.New("unknown flag: --nope")))

	err := &ExitError{Code: ExitHookError, Err: os.ErrNotExist}
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, "exit status 1", (&ExitError{Code: 1}).Error())
}
