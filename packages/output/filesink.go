package output

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/end2/packages/core/result"
	"github.com/abdul-hamid-achik/end2/packages/core/suite"
	"github.com/charmbracelet/log"
)

const (
	// RunLogName is the suite log inside each run folder.
	RunLogName = "suite_run.log"
	// FolderLayout names run folders by their start time.
	FolderLayout = "01-02-2006_15-04-05"
)

// FileSink writes one folder per run under a base directory: the suite log
// plus one log per module, renamed with the module's final status.
type FileSink struct {
	mu      sync.Mutex
	folder  string
	run     *os.File
	logger  *log.Logger
	modules map[string]*moduleLog
}

type moduleLog struct {
	file   *os.File
	logger *log.Logger
}

func newFileLogger(w io.Writer) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Level:           log.DebugLevel,
	})
}

// NewFileSink creates the run folder under baseDir and removes the oldest
// folders so that at most maxFolders remain, the new one included.
func NewFileSink(baseDir string, maxFolders int) (*FileSink, error) {
	folder, err := createRunFolder(baseDir, time.Now())
	if err != nil {
		return nil, err
	}
	if err := Rotate(baseDir, maxFolders); err != nil {
		return nil, err
	}

	run, err := os.OpenFile(filepath.Join(folder, RunLogName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening run log: %w", err)
	}
	return &FileSink{
		folder:  folder,
		run:     run,
		logger:  newFileLogger(run),
		modules: make(map[string]*moduleLog),
	}, nil
}

func createRunFolder(baseDir string, now time.Time) (string, error) {
	name := now.Format(FolderLayout)
	folder := filepath.Join(baseDir, name)
	for i := 1; ; i++ {
		if _, err := os.Stat(folder); errors.Is(err, os.ErrNotExist) {
			break
		}
		folder = filepath.Join(baseDir, fmt.Sprintf("%s_%d", name, i))
	}
	if err := os.MkdirAll(folder, 0755); err != nil {
		return "", fmt.Errorf("creating log folder: %w", err)
	}
	return folder, nil
}

// Rotate deletes the oldest sub folders of baseDir, by modification time,
// until at most maxFolders remain. maxFolders <= 0 keeps everything.
func Rotate(baseDir string, maxFolders int) error {
	if maxFolders <= 0 {
		return nil
	}
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return fmt.Errorf("reading log dir: %w", err)
	}

	type folder struct {
		path    string
		modTime time.Time
	}
	var folders []folder
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		folders = append(folders, folder{filepath.Join(baseDir, e.Name()), info.ModTime()})
	}
	slices.SortStableFunc(folders, func(a, b folder) int {
		return a.modTime.Compare(b.modTime)
	})

	for i := 0; i < len(folders)-maxFolders; i++ {
		if err := os.RemoveAll(folders[i].path); err != nil {
			return fmt.Errorf("removing old log folder: %w", err)
		}
	}
	return nil
}

// Folder is this run's log folder.
func (s *FileSink) Folder() string {
	return s.folder
}

// Writer is the suite log file, for teeing the run logger into it.
func (s *FileSink) Writer() io.Writer {
	return s.run
}

func (s *FileSink) module(name string) *log.Logger {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.modules[name]; ok {
		return m.logger
	}
	return s.logger.With("module", name)
}

func (s *FileSink) OnSuiteStart(r *result.Suite) {
	s.logger.Info("suite started", "name", r.Name, "run", r.RunID)
}

func (s *FileSink) OnModuleStart(m *suite.TestModule) {
	f, err := os.Create(filepath.Join(s.folder, m.Path+".log"))
	if err != nil {
		s.logger.Error("opening module log", "module", m.Path, "err", err)
		return
	}
	s.mu.Lock()
	s.modules[m.Path] = &moduleLog{file: f, logger: newFileLogger(f)}
	s.mu.Unlock()
	s.module(m.Path).Info("module started", "tests", m.Count(), "mode", m.RunMode)
}

func (s *FileSink) OnSetupModuleDone(module string, r *result.Result) {
	logger := s.module(module)
	if r.Status == result.Passed {
		logger.Debug("setup done", "duration", r.Duration)
		return
	}
	logger.Error("setup failed", "status", r.Status, "record", r.Record)
	s.logger.Error("setup skipping all tests", "module", module)
}

func (s *FileSink) OnSetupTestDone(module, test string, r *result.Result) {
	if r.Status != result.Passed {
		s.module(module).Warn("setup test failed; skipping", "test", test, "record", r.Record)
	}
}

func (s *FileSink) OnTestDone(module string, m *result.Method) {
	logger := s.module(module)
	kv := []any{"test", m.Name, "status", m.Status, "duration", m.Duration}
	if m.Record != "" {
		kv = append(kv, "record", m.Record)
	}
	if m.Status == result.Failed {
		logger.Error("test done", kv...)
	} else {
		logger.Info("test done", kv...)
	}
	for _, p := range m.Parameterized {
		logger.Debug("variant done", "test", p.Name, "status", p.Status, "record", p.Record)
	}
	s.logger.Info(m.Result.String(), "module", module)
}

func (s *FileSink) OnTeardownTestDone(module, test string, r *result.Result) {
	if r.Status == result.Failed {
		s.logger.Error("teardown test failed", "module", module, "test", test, "record", r.Record)
	}
}

func (s *FileSink) OnTeardownModuleDone(module string, r *result.Result) {
	if r.Status == result.Failed {
		s.logger.Error("teardown module failed", "module", module, "record", r.Record)
	}
}

// OnModuleDone closes the module log and renames it with the module's
// status, e.g. FAILED_pkg.users.log.
func (s *FileSink) OnModuleDone(m *result.Module) {
	s.logger.Info(m.String())

	s.mu.Lock()
	ml, ok := s.modules[m.Name]
	delete(s.modules, m.Name)
	s.mu.Unlock()
	if !ok {
		return
	}

	ml.logger.Info("module done", "status", m.Status)
	path := ml.file.Name()
	if err := ml.file.Close(); err != nil {
		s.logger.Error("closing module log", "module", m.Name, "err", err)
		return
	}
	renamed := filepath.Join(s.folder, strings.ToUpper(m.Status.String())+"_"+m.Name+".log")
	if err := os.Rename(path, renamed); err != nil {
		s.logger.Error("renaming module log", "module", m.Name, "err", err)
	}
}

func (s *FileSink) OnSuiteStop(r *result.Suite) {
	s.logger.Info(r.String(), "status", r.Status)
	for _, fi := range r.FailedImports {
		s.logger.Error("failed import", "record", fi)
	}
}

// Close flushes the suite log. Module logs left open by an aborted run are
// closed as well.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for name, ml := range s.modules {
		errs = append(errs, ml.file.Close())
		delete(s.modules, name)
	}
	errs = append(errs, s.run.Close())
	return errors.Join(errs...)
}
