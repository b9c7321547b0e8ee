package fixture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/debug"

	"github.com/abdul-hamid-achik/end2/packages/core/result"
	"github.com/charmbracelet/log"
)

// CancelledRecord marks a coroutine stopped by the stop-on-fail signal.
const CancelledRecord = "Cancelled by stop-on-fail"

// InterruptedRecord marks a unit cut short by the caller's context while the
// run itself was never stopped.
const InterruptedRecord = "Cancelled by interrupt"

// Func is a test or fixture body discovered on a module. Coroutine bodies
// receive the run context and are expected to observe its cancellation.
type Func struct {
	Name      string
	Coroutine bool
	call      func(ctx context.Context, t *T) error
}

// Sync wraps a body that runs to completion on its worker.
func Sync(name string, fn func(*T) error) Func {
	return Func{Name: name, call: func(_ context.Context, t *T) error { return fn(t) }}
}

// Coroutine wraps a body that may suspend and is driven by a task lane.
func Coroutine(name string, fn func(context.Context, *T) error) Func {
	return Func{Name: name, Coroutine: true, call: fn}
}

// Empty is the no-op fixture used when a module declares none.
func Empty(name string) Func {
	return Func{Name: name}
}

// IsEmpty reports whether the Func has no body.
func (f Func) IsEmpty() bool {
	return f.call == nil
}

// Discard returns a logger that writes nowhere.
func Discard() *log.Logger {
	return log.New(io.Discard)
}

// Invoke runs fn and classifies its outcome into a sealed result:
//
//	nil return            -> Passed
//	t.Errorf / FailNow    -> Failed, first failure as record
//	AssertionError        -> Failed, message as record
//	Skip                  -> Skipped
//	cancelled coroutine   -> Skipped, CancelledRecord
//	StopRun               -> Failed, and the error is returned to unwind
//	Ignore                -> nil result, the error is returned
//	anything else, panics -> Failed, "Encountered an exception: <cause>"
func Invoke(ctx context.Context, fn Func, t *T) (res *result.Result, err error) {
	res = result.New(fn.Name)
	res.Status = result.Failed
	if fn.IsEmpty() {
		return res.End(result.Passed), nil
	}

	var bodyErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				bodyErr = recovered(r, t)
			}
		}()
		bodyErr = fn.call(ctx, t)
	}()

	return classify(ctx, res, bodyErr, t)
}

type panicError struct {
	value any
	stack []byte
}

func (p *panicError) Error() string {
	return fmt.Sprint(p.value)
}

func recovered(r any, t *T) error {
	switch v := r.(type) {
	case failNow:
		if !t.Failed() {
			t.Errorf("FailNow called")
		}
		return nil
	case error:
		var s *signal
		if errors.As(v, &s) {
			return v
		}
		var ae *AssertionError
		if errors.As(v, &ae) {
			return v
		}
	}
	return &panicError{value: r, stack: debug.Stack()}
}

func classify(ctx context.Context, res *result.Result, err error, t *T) (*result.Result, error) {
	logger := t.Logger()
	var ae *AssertionError
	var pe *panicError

	switch {
	case errors.Is(err, ErrIgnore):
		logger.Info("ignored", "reason", Message(err))
		return nil, err
	case errors.Is(err, ErrSkip):
		res.Record = Message(err)
		logger.Info(res.Record)
		return res.End(result.Skipped), nil
	case errors.Is(err, ErrStopRun):
		res.Record = Message(err)
		logger.Error(res.Record)
		return res.End(result.Failed), err
	case errors.As(err, &ae):
		res.Record = ae.Message
		logger.Error(res.Record)
		return res.End(result.Failed), nil
	case err != nil && errors.Is(err, context.Canceled) && ctx.Err() != nil:
		res.Record = CancelledRecord
		logger.Info(res.Record)
		return res.End(result.Skipped), nil
	case errors.As(err, &pe):
		logger.Debug("panic", "stack", string(pe.stack))
		res.Record = fmt.Sprintf("Encountered an exception: %v", pe.value)
		logger.Error(res.Record)
		return res.End(result.Failed), nil
	case err != nil:
		logger.Debug("error", "trace", fmt.Sprintf("%+v", err))
		res.Record = fmt.Sprintf("Encountered an exception: %v", err)
		logger.Error(res.Record)
		return res.End(result.Failed), nil
	case t.Failed():
		res.Record = t.firstFailure()
		logger.Error(res.Record)
		return res.End(result.Failed), nil
	}
	return res.End(result.Passed), nil
}
