// Package hooks runs the shell commands configured around a suite run and
// offers readiness probes that module setups can use before testing a
// service.
package hooks

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// Result represents the outcome of one command.
type Result struct {
	Command string
	Output  string
	Passed  bool
	Error   error
}

// Runner executes hook commands through sh -c from a base directory.
type Runner struct {
	baseDir string
	logger  *log.Logger
}

type Option func(*Runner)

func WithLogger(l *log.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

// New creates a Runner resolving relative executables against baseDir.
func New(baseDir string, opts ...Option) *Runner {
	r := &Runner{baseDir: baseDir, logger: log.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// PreRun runs commands in order and stops at the first failure. A command
// prefixed with "-" may fail without stopping the run.
func (r *Runner) PreRun(ctx context.Context, commands []string) error {
	for _, c := range commands {
		if res := r.Shell(ctx, c); res.Error != nil {
			return fmt.Errorf("pre-run hook failed: %w", res.Error)
		}
	}
	return nil
}

// PostRun runs every command even after failures and returns the first
// error.
func (r *Runner) PostRun(ctx context.Context, commands []string) error {
	var errs []error
	for _, c := range commands {
		if res := r.Shell(ctx, c); res.Error != nil {
			errs = append(errs, res.Error)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("post-run hook failed: %w", errs[0])
	}
	return nil
}

// Shell executes a single command. An empty command passes without running
// anything.
func (r *Runner) Shell(ctx context.Context, command string) *Result {
	res := &Result{Command: command, Passed: true}

	cmdStr := strings.TrimSpace(command)
	if cmdStr == "" {
		return res
	}

	// "-" ignores the exit status
	ignoreError := strings.HasPrefix(cmdStr, "-")
	if ignoreError {
		cmdStr = strings.TrimSpace(strings.TrimPrefix(cmdStr, "-"))
	}
	cmdStr = r.resolveExecutable(cmdStr)

	cmd := exec.CommandContext(ctx, "sh", "-c", cmdStr)
	cmd.Dir = r.baseDir
	cmd.Env = os.Environ()

	output, err := cmd.CombinedOutput()
	res.Output = string(output)
	if len(output) > 0 {
		r.logger.Debug("hook output", "command", command, "output", strings.TrimSpace(res.Output))
	}

	if err != nil {
		res.Passed = ignoreError
		if ignoreError {
			r.logger.Warn("hook failed, ignoring", "command", command, "err", err)
		} else {
			res.Error = fmt.Errorf("command %q failed: %w\nOutput: %s", command, err, output)
		}
	}
	return res
}

// resolveExecutable makes ./x, ../x and scripts sitting in baseDir
// relative to baseDir.
func (r *Runner) resolveExecutable(cmdStr string) string {
	parts := strings.Fields(cmdStr)
	if len(parts) == 0 || r.baseDir == "" {
		return cmdStr
	}
	executable := parts[0]
	switch {
	case strings.HasPrefix(executable, "./"), strings.HasPrefix(executable, "../"):
		parts[0] = filepath.Join(r.baseDir, executable)
	case !filepath.IsAbs(executable) && !isInPath(executable):
		candidate := filepath.Join(r.baseDir, executable)
		if _, err := os.Stat(candidate); err != nil {
			return cmdStr
		}
		parts[0] = candidate
	default:
		return cmdStr
	}
	return strings.Join(parts, " ")
}

// isInPath checks if a command is available in the system PATH
func isInPath(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}
