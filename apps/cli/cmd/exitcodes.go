package cmd

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for end2 CLI
const (
	// ExitSuccess indicates the suite passed
	ExitSuccess = 0

	// ExitTestFailure indicates the suite did not pass
	ExitTestFailure = 1

	// ExitSelectionError indicates a selector or discovery error
	ExitSelectionError = 2

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitHookError indicates a pre-run hook failed
	ExitHookError = 4

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

// ExitError carries the process exit code out of a command. A nil Err
// exits silently.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// exitCode reports err on stderr and maps it to a process exit code.
// Errors that are not ExitErrors come from cobra itself: bad flags or
// arguments.
func exitCode(err error) int {
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitUsageError
	}
	if exitErr.Err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", exitErr.Err)
	}
	return exitErr.Code
}
