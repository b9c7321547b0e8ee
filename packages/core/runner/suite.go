package runner

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/abdul-hamid-achik/end2/packages/core/fixture"
	"github.com/abdul-hamid-achik/end2/packages/core/result"
	"github.com/abdul-hamid-achik/end2/packages/core/scope"
	"github.com/abdul-hamid-achik/end2/packages/core/suite"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// suiteRun is the state of one Run call.
type suiteRun struct {
	*Runner
	ctx     context.Context
	cancel  context.CancelFunc
	res     *result.Suite
	stopped atomic.Bool
}

// stop broadcasts the stop signal. It reports whether this call was the
// one that raised it.
func (sr *suiteRun) stop(reason string) bool {
	if !sr.stopped.CompareAndSwap(false, true) {
		return false
	}
	sr.logger.Warn("stopping run", "reason", reason)
	sr.cancel()
	return true
}

func (sr *suiteRun) isStopped() bool {
	return sr.stopped.Load()
}

// runPackage sets the package up once, runs its sequential modules in
// order, its parallel modules on the module pool, then its child packages,
// and finally tears it down. skip, when set, is the failed ancestor setup
// every module below is skipped for.
func (sr *suiteRun) runPackage(p *suite.TestPackage, frame *scope.Frame, skip string) {
	if sr.isStopped() {
		return
	}
	logger := sr.logger
	if p.Path != "" {
		logger = logger.With("package", p.Path)
	}

	// A package entered without an inherited skip is torn down, even when
	// it declares no setup or its setup failed.
	entered := skip == ""
	if entered && !p.Setup.IsEmpty() {
		res, err := sr.fixture(sr.ctx, p.Setup, logger, frame)
		if res.Status != result.Passed {
			skip = fmt.Sprintf("Package setup failed for %s - %s", p.Path, res.Record)
			logger.Error("package setup failed", "record", res.Record)
			if errors.Is(err, fixture.ErrStopRun) || sr.config.StopOnFail {
				sr.stop(skip)
			}
		}
	}
	frame.Freeze()

	sequential, parallel := p.Sequential, p.Parallel
	if sr.config.NoConcurrency {
		sequential = append(append([]*suite.TestModule(nil), sequential...), parallel...)
		parallel = nil
	}

	for _, m := range sequential {
		if sr.isStopped() {
			break
		}
		sr.runModule(m, frame, skip)
	}

	if len(parallel) > 0 && !sr.isStopped() {
		var g errgroup.Group
		g.SetLimit(sr.config.MaxWorkers)
		for _, m := range parallel {
			g.Go(func() error {
				if !sr.isStopped() {
					sr.runModule(m, frame, skip)
				}
				return nil
			})
		}
		_ = g.Wait()
	}

	for _, child := range p.Children {
		sr.runPackage(child, frame.Child(child.Path), skip)
	}

	if entered && !p.Teardown.IsEmpty() {
		res, _ := sr.fixture(context.WithoutCancel(sr.ctx), p.Teardown, logger, frame)
		if res.Status == result.Failed {
			logger.Error("package teardown failed", "critical", true, "record", res.Record)
		}
	}
}

// fixture invokes a fixture body outside any test. An ignored fixture
// counts as passed.
func (sr *suiteRun) fixture(ctx context.Context, fn fixture.Func, logger *log.Logger, frame *scope.Frame) (*result.Result, error) {
	t := fixture.NewT(ctx, fn.Name, logger, frame, nil)
	res, err := fixture.Invoke(ctx, fn, t)
	if res == nil {
		res = result.New(fn.Name).End(result.Passed)
		res.Record = fixture.Message(err)
		err = nil
	}
	return res, err
}
