package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/abdul-hamid-achik/end2/packages/core/fixture"
	"github.com/abdul-hamid-achik/end2/packages/core/result"
	"github.com/abdul-hamid-achik/end2/packages/core/scope"
	"github.com/abdul-hamid-achik/end2/packages/core/suite"
	"github.com/charmbracelet/log"
)

// moduleRun owns the result accumulator of one module.
type moduleRun struct {
	*suiteRun
	module     *suite.TestModule
	frame      *scope.Frame
	logger     *log.Logger
	res        *result.Module
	concurrent bool
}

// runModule runs setup, the tests according to the module's run mode, and
// teardown, then seals and records the module result.
func (sr *suiteRun) runModule(m *suite.TestModule, frame *scope.Frame, skip string) {
	mr := &moduleRun{
		suiteRun:   sr,
		module:     m,
		frame:      frame,
		logger:     sr.logger.With("module", m.Path),
		res:        result.NewModule(m.Path),
		concurrent: m.RunMode == suite.ParallelTest && !sr.config.NoConcurrency,
	}
	mr.res.FilePath = m.Path
	mr.res.Description = m.Description

	sr.reporter.OnModuleStart(m)
	if skip != "" {
		mr.skipGroup(m.Root, skip)
	} else {
		mr.runGroup(m.Root, true)
	}

	mr.res.End()
	mr.logger.Info(mr.res.String())
	sr.reporter.OnModuleDone(mr.res)
	sr.res.Append(mr.res)
}

// runGroup wraps a group's tests and nested groups in its setup and
// teardown. A failed setup skips everything in the group; teardown still
// runs.
func (mr *moduleRun) runGroup(g *suite.TestGroup, root bool) {
	setupRes, err := mr.fixture(mr.ctx, g.Setup, mr.logger, mr.frame)
	if root {
		mr.res.Setup = setupRes
		mr.reporter.OnSetupModuleDone(mr.module.Path, setupRes)
	} else {
		mr.res.GroupSetups = append(mr.res.GroupSetups, setupRes)
	}

	if setupRes.Status != result.Passed {
		record := fmt.Sprintf("Setup failed for %s - %s", g.Name, setupRes.Record)
		mr.logger.Error("setup failed", "group", g.Name, "record", setupRes.Record)
		mr.skipGroup(g, record)
		if errors.Is(err, fixture.ErrStopRun) || (mr.config.StopOnFail && setupRes.Status == result.Failed) {
			mr.stop(record)
		}
	} else {
		mr.runTests(g)
		for _, child := range g.Groups {
			if mr.isStopped() {
				break
			}
			mr.runGroup(child, false)
		}
	}

	teardownRes, _ := mr.fixture(context.WithoutCancel(mr.ctx), g.Teardown, mr.logger, mr.frame)
	if teardownRes.Status == result.Failed {
		mr.logger.Error("teardown failed", "group", g.Name, "critical", true, "record", teardownRes.Record)
	}
	if root {
		mr.res.Teardown = teardownRes
		mr.reporter.OnTeardownModuleDone(mr.module.Path, teardownRes)
	} else {
		mr.res.GroupTeardowns = append(mr.res.GroupTeardowns, teardownRes)
	}
}

// skipGroup records every test below g as skipped without running it.
func (mr *moduleRun) skipGroup(g *suite.TestGroup, record string) {
	for _, tc := range g.All() {
		mr.record(skipped(tc, record))
	}
}

func skipped(tc *suite.TestCase, record string) *result.Method {
	m := newMethod(tc)
	for _, v := range tc.Variants() {
		sub := result.New(tc.VariantName(v.Index))
		sub.Record = record
		m.Parameterized = append(m.Parameterized, sub.End(result.Skipped))
	}
	m.Record = record
	return m.End(result.Skipped)
}

func newMethod(tc *suite.TestCase) *result.Method {
	m := result.NewMethod(tc.Module, tc.Name)
	m.Description = tc.Description
	m.Tags = tc.Tags
	return m
}

func (mr *moduleRun) record(m *result.Method) {
	if m == nil {
		return
	}
	mr.reporter.OnTestDone(mr.module.Path, m)
	mr.res.Append(m)
}

// runTests runs a group's tests. Sequential and Parallel modules run them
// one at a time. ParallelTest modules dispatch synchronous tests to the
// test pool and keep every coroutine test in flight on the task lane.
func (mr *moduleRun) runTests(g *suite.TestGroup) {
	if !mr.concurrent {
		for _, tc := range g.Tests {
			if mr.isStopped() || !mr.admit() {
				return
			}
			mr.runMethod(g, tc, false)
		}
		return
	}

	var wg sync.WaitGroup
	for _, tc := range g.Tests {
		wg.Add(1)
		if tc.Func.Coroutine {
			go func() {
				defer wg.Done()
				if mr.ctx.Err() != nil || !mr.admit() {
					mr.record(skipped(tc, mr.cancelRecord()))
					return
				}
				mr.runMethod(g, tc, false)
			}()
			continue
		}
		go func() {
			defer wg.Done()
			if err := mr.tests.Acquire(mr.ctx, 1); err != nil {
				return
			}
			defer mr.tests.Release(1)
			if mr.isStopped() || !mr.admit() {
				return
			}
			mr.runMethod(g, tc, true)
		}()
	}
	wg.Wait()
}

// cancelRecord names why a unit was cut short: the stop-on-fail signal, or
// the caller's context (an interrupt) when the run itself was never stopped.
func (mr *moduleRun) cancelRecord() string {
	if mr.isStopped() {
		return fixture.CancelledRecord
	}
	return fixture.InterruptedRecord
}

// relabel corrects the record of a body cancelled by an interrupt rather
// than by the stop-on-fail signal.
func (mr *moduleRun) relabel(res *result.Result) {
	if res != nil && res.Record == fixture.CancelledRecord {
		res.Record = mr.cancelRecord()
	}
}

// admit waits for the rate limiter. It fails once the run is stopped.
func (mr *moduleRun) admit() bool {
	if mr.limiter == nil {
		return true
	}
	return mr.limiter.Wait(mr.ctx) == nil
}

// runMethod runs one test through setupTest, its body or each of its
// variants, and teardownTest. pooled marks a test on the worker pool: if
// another unit stops the run while it is in flight, its result is
// discarded.
func (mr *moduleRun) runMethod(g *suite.TestGroup, tc *suite.TestCase, pooled bool) {
	logger := mr.logger.With("test", tc.Name)
	m := newMethod(tc)

	setupRes, err := mr.fixture(mr.ctx, g.SetupTest, logger, mr.frame)
	m.Setup = setupRes
	mr.reporter.OnSetupTestDone(mr.module.Path, tc.Name, setupRes)

	var stopErr error
	ignored := false
	if setupRes.Status != result.Passed {
		record := fmt.Sprintf("Setup test failed - %s", setupRes.Record)
		m = skipped(tc, record)
		m.Setup = setupRes
		switch {
		case errors.Is(err, fixture.ErrStopRun):
			stopErr = err
		case setupRes.Status == result.Failed && mr.config.StopOnFail:
			stopErr = errors.New(record)
		}
	} else if tc.Parameterized {
		m.Expected = len(tc.Variants())
		stopErr = mr.runVariants(tc, m, logger)
		ignored = len(m.Parameterized) == 0
		if !ignored {
			m.End()
		}
	} else {
		t := fixture.NewT(mr.ctx, tc.Name, logger, mr.frame, nil)
		res, err := fixture.Invoke(mr.ctx, tc.Func, t)
		mr.relabel(res)
		if res == nil {
			ignored = true
		} else {
			m.Record = res.Record
			m.End(res.Status)
		}
		if errors.Is(err, fixture.ErrStopRun) {
			stopErr = err
		}
	}

	triggered := false
	switch {
	case stopErr != nil:
		triggered = mr.stop(fixture.Message(stopErr))
	case !ignored && m.Status == result.Failed && mr.config.StopOnFail:
		triggered = mr.stop(fmt.Sprintf("%s failed", m.FullName))
	}

	if ignored {
		logger.Info("ignored")
	} else if !pooled || triggered || !mr.isStopped() {
		mr.record(m)
	} else {
		logger.Debug("discarding result after stop")
	}

	teardownRes, _ := mr.fixture(context.WithoutCancel(mr.ctx), g.TeardownTest, logger, mr.frame)
	m.Teardown = teardownRes
	mr.reporter.OnTeardownTestDone(mr.module.Path, tc.Name, teardownRes)
	if teardownRes.Status == result.Failed {
		logger.Error("teardown test failed", "critical", true, "record", teardownRes.Record)
	}
}

// runVariants invokes the test once per resolved parameter tuple. Ignored
// variants are dropped. A stop ends the iteration and the variants left
// unrun are recorded as cancelled.
func (mr *moduleRun) runVariants(tc *suite.TestCase, m *result.Method, logger *log.Logger) error {
	variants := tc.Variants()
	for i, v := range variants {
		if mr.isStopped() || mr.ctx.Err() != nil {
			mr.cancelVariants(tc, m, variants[i:])
			return nil
		}
		name := tc.VariantName(v.Index)
		t := fixture.NewT(mr.ctx, name, logger.With("variant", v.Index), mr.frame, v.Params)
		fn := tc.Func
		fn.Name = name
		res, err := fixture.Invoke(mr.ctx, fn, t)
		mr.relabel(res)
		if res != nil {
			m.Parameterized = append(m.Parameterized, res)
		}
		if errors.Is(err, fixture.ErrStopRun) {
			mr.cancelVariants(tc, m, variants[i+1:])
			return err
		}
		if res != nil && res.Status == result.Failed && mr.config.StopOnFail {
			mr.cancelVariants(tc, m, variants[i+1:])
			return nil
		}
	}
	return nil
}

func (mr *moduleRun) cancelVariants(tc *suite.TestCase, m *result.Method, rest []suite.Variant) {
	for _, v := range rest {
		sub := result.New(tc.VariantName(v.Index))
		sub.Record = mr.cancelRecord()
		m.Parameterized = append(m.Parameterized, sub.End(result.Skipped))
	}
}
