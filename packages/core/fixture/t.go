// Package fixture defines the handle passed to every test and fixture body,
// the signals a body uses to steer its outcome, and the invocation that turns
// a body's return into a result.
package fixture

import (
	"context"
	"fmt"
	"sync"

	"github.com/abdul-hamid-achik/end2/packages/core/scope"
	"github.com/charmbracelet/log"
)

// T is handed to tests and fixtures. It satisfies testify's assert.TestingT
// and require.TestingT, so bodies can use testify assertions directly.
type T struct {
	ctx    context.Context
	name   string
	logger *log.Logger
	frame  *scope.Frame
	params []any

	mu       sync.Mutex
	failures []string
}

// NewT builds a handle. A nil logger discards output; a nil frame gives the
// body an empty scope.
func NewT(ctx context.Context, name string, logger *log.Logger, frame *scope.Frame, params []any) *T {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = Discard()
	}
	if frame == nil {
		frame = scope.NewRoot(name)
	}
	return &T{ctx: ctx, name: name, logger: logger, frame: frame, params: params}
}

func (t *T) Name() string {
	return t.name
}

func (t *T) Context() context.Context {
	return t.ctx
}

func (t *T) Logger() *log.Logger {
	return t.logger
}

// Scope is the package frame the test's module runs under.
func (t *T) Scope() *scope.Frame {
	return t.frame
}

// Params is the parameter tuple of the variant being run.
func (t *T) Params() []any {
	return t.params
}

// Param returns the i-th parameter or nil.
func (t *T) Param(i int) any {
	if i < 0 || i >= len(t.params) {
		return nil
	}
	return t.params[i]
}

// Errorf records a failure and lets the body continue.
func (t *T) Errorf(format string, args ...any) {
	t.mu.Lock()
	t.failures = append(t.failures, fmt.Sprintf(format, args...))
	t.mu.Unlock()
}

// FailNow stops the body. Invoke recovers it.
func (t *T) FailNow() {
	panic(failNow{})
}

// Helper exists for testify's tHelper check.
func (t *T) Helper() {}

// SkipNow stops the body and records it as skipped.
func (t *T) SkipNow(format string, args ...any) {
	panic(Skip(format, args...))
}

func (t *T) Failed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.failures) > 0
}

func (t *T) firstFailure() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.failures) == 0 {
		return ""
	}
	return t.failures[0]
}

type failNow struct{}
