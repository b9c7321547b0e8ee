package runner

import (
	"context"
	"io"
	"sync/atomic"

	"github.com/abdul-hamid-achik/end2/packages/core/lastfailed"
	"github.com/abdul-hamid-achik/end2/packages/core/result"
	"github.com/abdul-hamid-achik/end2/packages/core/scope"
	"github.com/abdul-hamid-achik/end2/packages/core/suite"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

const (
	// DefaultMaxWorkers bounds the module pool and the test pool.
	DefaultMaxWorkers = 20
	// DefaultSuiteName names the suite result when none is configured.
	DefaultSuiteName = "end2"
)

// State is the lifecycle of a Runner.
type State int32

const (
	Created State = iota
	Running
	Completed
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Completed:
		return "completed"
	default:
		return "created"
	}
}

type Config struct {
	Name          string
	MaxWorkers    int
	NoConcurrency bool
	StopOnFail    bool
	// RateLimit caps test starts per second. Zero means unlimited.
	RateLimit float64
	// LastFailedFile receives the non-passed tests at suite end. Empty
	// disables persistence.
	LastFailedFile string
	Logger         *log.Logger
}

// Reporter receives the engine's state transitions, in this order per
// module: OnModuleStart, OnSetupModuleDone, then per test OnSetupTestDone,
// OnTestDone, OnTeardownTestDone, then OnTeardownModuleDone and
// OnModuleDone. Calls for different modules interleave when modules run in
// parallel, so implementations must be safe for concurrent use.
// Method.Teardown is set only after OnTestDone returns; sinks that render
// test teardowns take them from OnTeardownTestDone or read the suite tree
// once the run is over.
type Reporter interface {
	OnSuiteStart(s *result.Suite)
	OnModuleStart(m *suite.TestModule)
	OnSetupModuleDone(module string, r *result.Result)
	OnSetupTestDone(module, test string, r *result.Result)
	OnTestDone(module string, m *result.Method)
	OnTeardownTestDone(module, test string, r *result.Result)
	OnTeardownModuleDone(module string, r *result.Result)
	OnModuleDone(m *result.Module)
	OnSuiteStop(s *result.Suite)
}

type Runner struct {
	config   *Config
	reporter Reporter
	logger   *log.Logger
	limiter  *rate.Limiter
	tests    *semaphore.Weighted
	state    atomic.Int32
}

// NewRunner builds a runner. A nil reporter discards every callback.
func NewRunner(cfg *Config, reporter Reporter) *Runner {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = DefaultMaxWorkers
	}
	if cfg.Name == "" {
		cfg.Name = DefaultSuiteName
	}
	if reporter == nil {
		reporter = nopReporter{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	r := &Runner{
		config:   cfg,
		reporter: reporter,
		logger:   logger,
		tests:    semaphore.NewWeighted(int64(cfg.MaxWorkers)),
	}
	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return r
}

// State reports where the runner is in its lifecycle.
func (r *Runner) State() State {
	return State(r.state.Load())
}

// Run executes the tree and returns the sealed suite result. failedImports
// are carried into the result unchanged. The result is sealed, reported and
// persisted even when the run was stopped early.
func (r *Runner) Run(ctx context.Context, tree *suite.Tree, failedImports []string) *result.Suite {
	r.state.Store(int32(Running))
	defer r.state.Store(int32(Completed))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sr := &suiteRun{
		Runner: r,
		ctx:    ctx,
		cancel: cancel,
		res:    result.NewSuite(r.config.Name, uuid.NewString()),
	}
	sr.res.FailedImports = failedImports

	r.logger.Info("suite started", "run", sr.res.RunID, "seed", tree.Seed, "tests", tree.Count())
	r.reporter.OnSuiteStart(sr.res)

	sr.runPackage(tree.Root, scope.NewRoot(tree.Root.Path), "")

	sr.res.End()
	r.reporter.OnSuiteStop(sr.res)
	r.logger.Info("suite finished", "status", sr.res.Status, "passed", sr.res.Passed,
		"failed", sr.res.Failed, "skipped", sr.res.Skipped, "duration", sr.res.Duration)

	if r.config.LastFailedFile != "" {
		if err := lastfailed.Write(r.config.LastFailedFile, sr.res); err != nil {
			r.logger.Error("persisting last failed", "err", err)
		}
	}
	return sr.res
}

type nopReporter struct{}

func (nopReporter) OnSuiteStart(*result.Suite)                        {}
func (nopReporter) OnModuleStart(*suite.TestModule)                   {}
func (nopReporter) OnSetupModuleDone(string, *result.Result)          {}
func (nopReporter) OnSetupTestDone(string, string, *result.Result)    {}
func (nopReporter) OnTestDone(string, *result.Method)                 {}
func (nopReporter) OnTeardownTestDone(string, string, *result.Result) {}
func (nopReporter) OnTeardownModuleDone(string, *result.Result)       {}
func (nopReporter) OnModuleDone(*result.Module)                       {}
func (nopReporter) OnSuiteStop(*result.Suite)                         {}
