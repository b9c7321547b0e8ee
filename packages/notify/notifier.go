// Package notify posts run summaries to chat webhooks.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/end2/packages/core/result"
)

// NotifyOn specifies when to send notifications
type NotifyOn string

const (
	// NotifyAlways sends notifications for every run
	NotifyAlways NotifyOn = "always"
	// NotifyFailure sends notifications only when the suite did not pass
	NotifyFailure NotifyOn = "failure"
	// NotifySuccess sends notifications only when the suite passed
	NotifySuccess NotifyOn = "success"
	// NotifyRecovery sends notifications on failure and on the first pass
	// after a failure
	NotifyRecovery NotifyOn = "recovery"
)

// ParseNotifyOn validates a policy name. Empty means failure.
func ParseNotifyOn(s string) (NotifyOn, error) {
	switch on := NotifyOn(strings.ToLower(s)); on {
	case "":
		return NotifyFailure, nil
	case NotifyAlways, NotifyFailure, NotifySuccess, NotifyRecovery:
		return on, nil
	}
	return "", fmt.Errorf("unknown notify policy %q (always, failure, success, recovery)", s)
}

// maxFailedShown caps the failed tests listed in one message.
const maxFailedShown = 10

// RunSummary represents the summary of a test run for notifications
type RunSummary struct {
	Name          string        `json:"name"`
	RunID         string        `json:"run_id"`
	Status        string        `json:"status"`
	TotalTests    int           `json:"total_tests"`
	PassedTests   int           `json:"passed_tests"`
	FailedTests   int           `json:"failed_tests"`
	SkippedTests  int           `json:"skipped_tests"`
	Duration      time.Duration `json:"duration"`
	FailedResults []FailedTest  `json:"failed_results,omitempty"`
	FailedImports []string      `json:"failed_imports,omitempty"`
	Truncated     int           `json:"truncated,omitempty"`
	IsRecovery    bool          `json:"is_recovery,omitempty"`
}

// FailedTest represents a failed test for notifications
type FailedTest struct {
	Name   string   `json:"name"`
	Module string   `json:"module"`
	Errors []string `json:"errors,omitempty"`
}

// Passed reports whether the run counts as a success.
func (s *RunSummary) Passed() bool {
	return s.Status == result.Passed.String()
}

// Title is the one-line headline shared by every notifier.
func (s *RunSummary) Title() string {
	switch {
	case s.FailedTests > 0:
		return fmt.Sprintf("%s: %d test(s) failed", s.Name, s.FailedTests)
	case s.IsRecovery:
		return fmt.Sprintf("%s: tests recovered", s.Name)
	case s.Passed():
		return fmt.Sprintf("%s: all tests passed", s.Name)
	}
	return fmt.Sprintf("%s: %s", s.Name, s.Status)
}

// NewRunSummary condenses a finished suite. Only failed tests are listed,
// with the record of each failed variant.
func NewRunSummary(s *result.Suite) *RunSummary {
	summary := &RunSummary{
		Name:          s.Name,
		RunID:         s.RunID,
		Status:        s.Status.String(),
		TotalTests:    s.Total(),
		PassedTests:   s.Passed,
		FailedTests:   s.Failed,
		SkippedTests:  s.Skipped,
		Duration:      s.Duration,
		FailedImports: s.FailedImports,
	}
	for mod, t := range s.Tests() {
		if t.Status != result.Failed {
			continue
		}
		if len(summary.FailedResults) == maxFailedShown {
			summary.Truncated++
			continue
		}
		ft := FailedTest{Name: t.FullName, Module: mod.Name}
		for _, p := range t.Parameterized {
			if p.Status == result.Failed && p.Record != "" {
				ft.Errors = append(ft.Errors, p.Name+": "+firstLine(p.Record))
			}
		}
		// The method record of a parameterized test only summarizes its
		// variants; it is shown when no variant failed on its own.
		if len(ft.Errors) == 0 && t.Record != "" {
			ft.Errors = append(ft.Errors, firstLine(t.Record))
		}
		summary.FailedResults = append(summary.FailedResults, ft)
	}
	return summary
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// Notifier is the interface for notification services
type Notifier interface {
	// Notify sends a notification about a finished run
	Notify(ctx context.Context, summary *RunSummary) error

	// Name returns the name of the notifier
	Name() string
}

// Manager fans a summary out to every notifier its policy allows. It
// remembers the previous outcome across runs, as in watch mode.
type Manager struct {
	mu        sync.Mutex
	notifiers []Notifier
	notifyOn  NotifyOn
	lastState bool // true if last run was successful
}

// NewManager creates a new notification manager
func NewManager(notifyOn NotifyOn, notifiers ...Notifier) *Manager {
	return &Manager{
		notifiers: notifiers,
		notifyOn:  notifyOn,
		lastState: true,
	}
}

// Len is the number of configured notifiers.
func (m *Manager) Len() int {
	return len(m.notifiers)
}

// Notify sends notifications based on the configured policy. Every
// notifier is tried; their errors are joined.
func (m *Manager) Notify(ctx context.Context, summary *RunSummary) error {
	m.mu.Lock()
	currentSuccess := summary.Passed()
	shouldNotify := false
	switch m.notifyOn {
	case NotifyAlways:
		shouldNotify = true
	case NotifyFailure:
		shouldNotify = !currentSuccess
	case NotifySuccess:
		shouldNotify = currentSuccess
	case NotifyRecovery:
		if !m.lastState && currentSuccess {
			shouldNotify = true
			summary.IsRecovery = true
		}
		if !currentSuccess {
			shouldNotify = true
		}
	}
	m.lastState = currentSuccess
	m.mu.Unlock()

	if !shouldNotify {
		return nil
	}

	var errs []error
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, summary); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}
