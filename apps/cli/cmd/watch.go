package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/end2/packages/core/config"
	"github.com/abdul-hamid-achik/end2/packages/export/metrics"
	"github.com/abdul-hamid-achik/end2/packages/notify"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond
)

// watch reruns the suite whenever something under dir changes, until ctx
// is done. Files the run writes itself never trigger a rerun.
func watch(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *log.Logger, notifier *notify.Manager, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	ignore := newWatchIgnore(cfg)
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if ignore.match(path) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nWatching %s for changes... (press Ctrl+C to stop)\n\n", dir)

	var debounce <-chan time.Time
	var changed string
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ignore.match(event.Name) || event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			// new directories are watched too
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watcher.Add(event.Name)
				}
			}
			changed = event.Name
			debounce = time.After(WatchDebounceDelay)

		case <-debounce:
			debounce = nil
			fmt.Fprintf(cmd.OutOrStdout(), "\nFile changed: %s\nRe-running suite...\n\n", changed)
			if _, err := runOnce(ctx, cmd, cfg, logger, notifier); err != nil {
				logger.Error("rerun failed", "err", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nWatching %s for changes... (press Ctrl+C to stop)\n", dir)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error", "err", err)
		}
	}
}

// watchIgnore holds the paths a run writes to.
type watchIgnore struct {
	dirs     []string
	files    []string
	prefixes []string
}

func newWatchIgnore(cfg *config.Config) *watchIgnore {
	w := &watchIgnore{}
	if cfg.Settings.LogDir != "" {
		w.dirs = append(w.dirs, absPath(cfg.Settings.LogDir))
	}
	for _, f := range []string{cfg.Settings.LastFailedFile, cfg.Settings.HistoryDB, cfg.Settings.MetricsFile, outputFileFlag} {
		if f != "" {
			w.files = append(w.files, absPath(f))
		}
	}
	if cfg.Settings.MetricsFile != "" {
		w.prefixes = append(w.prefixes, filepath.Join(filepath.Dir(absPath(cfg.Settings.MetricsFile)), metrics.TempPrefix))
	}
	return w
}

func (w *watchIgnore) match(path string) bool {
	path = absPath(path)
	for _, d := range w.dirs {
		if path == d || strings.HasPrefix(path, d+string(filepath.Separator)) {
			return true
		}
	}
	for _, f := range w.files {
		// sqlite keeps -journal and -wal files next to the database
		if path == f || strings.HasPrefix(path, f+"-") {
			return true
		}
	}
	for _, p := range w.prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
