package fixture

import (
	"errors"
	"fmt"
)

// Sentinels matched with errors.Is to classify what a test body returned.
var (
	ErrSkip    = errors.New("skip")
	ErrIgnore  = errors.New("ignore")
	ErrStopRun = errors.New("stop run")
)

type signal struct {
	kind error
	msg  string
}

func (s *signal) Error() string {
	return s.msg
}

func (s *signal) Is(target error) bool {
	return target == s.kind
}

// Skip marks the current test as an expected, explicit skip.
func Skip(format string, args ...any) error {
	return &signal{kind: ErrSkip, msg: fmt.Sprintf(format, args...)}
}

// Ignore drops the current test from the results entirely, e.g. when a
// capability probe decides the test does not apply to this run.
func Ignore(format string, args ...any) error {
	return &signal{kind: ErrIgnore, msg: fmt.Sprintf(format, args...)}
}

// StopRun fails the current test and unwinds the enclosing run.
func StopRun(format string, args ...any) error {
	return &signal{kind: ErrStopRun, msg: fmt.Sprintf(format, args...)}
}

// AssertionError is a violated test invariant. Its message becomes the
// record of the Failed result.
type AssertionError struct {
	Message string
}

func (e *AssertionError) Error() string {
	return e.Message
}

// Assert returns an AssertionError when cond is false.
func Assert(cond bool, format string, args ...any) error {
	if cond {
		return nil
	}
	return &AssertionError{Message: fmt.Sprintf(format, args...)}
}

// Message extracts the human part of a signal or assertion error.
func Message(err error) string {
	var s *signal
	if errors.As(err, &s) {
		return s.msg
	}
	var ae *AssertionError
	if errors.As(err, &ae) {
		return ae.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
