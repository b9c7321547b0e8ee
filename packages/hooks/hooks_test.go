package hooks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShell(t *testing.T) {
	r := New(t.TempDir())
	ctx := context.Background()

	res := r.Shell(ctx, "echo hello")
	assert.True(t, res.Passed)
	assert.Equal(t, "hello\n", res.Output)

	res = r.Shell(ctx, "exit 3")
	assert.False(t, res.Passed)
	assert.ErrorContains(t, res.Error, `command "exit 3" failed`)

	res = r.Shell(ctx, "- exit 3")
	assert.True(t, res.Passed)
	assert.NoError(t, res.Error)

	assert.True(t, r.Shell(ctx, "   ").Passed)
}

func TestShell_RelativeScript(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "up.sh"), []byte("#!/bin/sh\necho up $1\n"), 0755))

	r := New(dir)
	res := r.Shell(context.Background(), "./up.sh db")
	require.NoError(t, res.Error)
	assert.Equal(t, "up db\n", res.Output)

	res = r.Shell(context.Background(), "up.sh cache")
	require.NoError(t, res.Error)
	assert.Equal(t, "up cache\n", res.Output)
}

func TestPreRun_StopsAtFirstFailure(t *testing.T) {
	dir := t.TempDir()
	r := New(dir)

	err := r.PreRun(context.Background(), []string{"touch a", "false", "touch b"})
	require.ErrorContains(t, err, "pre-run hook failed")
	assert.FileExists(t, filepath.Join(dir, "a"))
	assert.NoFileExists(t, filepath.Join(dir, "b"))
}

func TestPostRun_RunsEverything(t *testing.T) {
	dir := t.TempDir()
	r := New(dir)

	err := r.PostRun(context.Background(), []string{"false", "touch a", "exit 2"})
	require.ErrorContains(t, err, `command "false" failed`)
	assert.FileExists(t, filepath.Join(dir, "a"))

	assert.NoError(t, r.PostRun(context.Background(), nil))
}

func TestWaitForHTTP(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := WaitForHTTP(context.Background(), WaitFor{URL: srv.URL, Interval: 10 * time.Millisecond, Timeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestWaitForHTTP_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	err := WaitForHTTP(context.Background(), WaitFor{URL: srv.URL, Interval: 10 * time.Millisecond, Timeout: 50 * time.Millisecond})
	require.ErrorIs(t, err, ErrNotReady)
	assert.Contains(t, err.Error(), "got status 418, expected 200")
}
