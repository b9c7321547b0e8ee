package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/end2/packages/core/result"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open("sqlite://" + filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func suiteRun(id string, start time.Time, statuses ...result.Status) *result.Suite {
	s := result.NewSuite("end2", id)
	s.StartTime = start
	m := result.NewModule("pkg.users")
	for i, st := range statuses {
		t := result.NewMethod("pkg.users", []string{"TestLogin", "TestLogout", "TestRoles"}[i])
		if st == result.Failed {
			t.Record = "boom"
		}
		m.Append(t.End(st))
	}
	s.Append(m.End())
	return s.End()
}

func TestStore_SaveAndRecent(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.Save(ctx, suiteRun("r1", now.Add(-2*time.Minute), result.Passed, result.Passed)))
	require.NoError(t, store.Save(ctx, suiteRun("r2", now.Add(-time.Minute), result.Passed, result.Failed)))

	runs, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "r2", runs[0].ID)
	assert.Equal(t, result.Failed, runs[0].Status)
	assert.Equal(t, 1, runs[0].Failed)
	assert.Equal(t, result.Passed, runs[1].Status)

	run, err := store.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 2, run.Passed)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNoRun)
}

func TestStore_SaveDuplicateRun(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	run := suiteRun("r1", time.Now(), result.Passed)

	require.NoError(t, store.Save(ctx, run))
	assert.Error(t, store.Save(ctx, run))

	tests, err := store.RunTests(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, tests, 1, "failed save rolls back")
}

func TestStore_TestHistoryAndFlaky(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.Save(ctx, suiteRun("r1", now.Add(-3*time.Minute), result.Passed, result.Failed, result.Passed)))
	require.NoError(t, store.Save(ctx, suiteRun("r2", now.Add(-2*time.Minute), result.Passed, result.Passed, result.Passed)))
	require.NoError(t, store.Save(ctx, suiteRun("r3", now.Add(-time.Minute), result.Passed, result.Failed, result.Skipped)))

	history, err := store.TestHistory(ctx, "pkg.users::TestLogout", 5)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "r3", history[0].RunID)
	assert.Equal(t, "boom", history[0].Record)
	assert.Equal(t, result.Passed, history[1].Status)

	flaky, err := store.Flaky(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"pkg.users::TestLogout": 2}, flaky)

	flaky, err = store.Flaky(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, flaky)
}

func TestStore_Prune(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	now := time.Now()
	for i, id := range []string{"r1", "r2", "r3"} {
		require.NoError(t, store.Save(ctx, suiteRun(id, now.Add(time.Duration(i)*time.Minute), result.Passed)))
	}

	removed, err := store.Prune(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	tests, err := store.RunTests(ctx, "r1")
	require.NoError(t, err)
	assert.Empty(t, tests, "tests cascade with their run")

	runs, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "r3", runs[0].ID)
}

func TestParseConnectionString(t *testing.T) {
	assert.Equal(t, "a.db", parseConnectionString("sqlite://a.db"))
	assert.Equal(t, "./a.db", parseConnectionString("sqlite:./a.db"))
	assert.Equal(t, "a.db", parseConnectionString(" a.db "))
}
