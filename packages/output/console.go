package output

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/end2/packages/core/result"
	"github.com/abdul-hamid-achik/end2/packages/core/suite"
	"github.com/abdul-hamid-achik/end2/packages/stats"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

// slowestShown is how many tests the verbose summary lists.
const slowestShown = 5

// formatRecord truncates a record for a single console line
func formatRecord(record string, maxLen int) string {
	if i := strings.IndexByte(record, '\n'); i >= 0 {
		record = record[:i] + " ..."
	}
	if len(record) > maxLen {
		return record[:maxLen] + "..."
	}
	return record
}

// ConsoleReporter prints each test as it finishes and a summary table at
// the end of the suite. Modules running in parallel interleave their lines;
// each line names its module.
type ConsoleReporter struct {
	mu      sync.Mutex
	writer  io.Writer
	verbose bool
	noColor bool
	metrics *stats.Metrics
}

type ConsoleOption func(*ConsoleReporter)

func NewConsoleReporter(opts ...ConsoleOption) *ConsoleReporter {
	f := &ConsoleReporter{
		writer:  os.Stdout,
		metrics: stats.NewMetrics(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleReporter) {
		f.writer = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleReporter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleReporter) {
		f.noColor = nc
	}
}

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func (f *ConsoleReporter) printf(format string, args ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fmt.Fprintf(f.writer, format, args...)
}

func symbol(s result.Status) string {
	switch s {
	case result.Passed:
		return green("✓")
	case result.Failed:
		return red("✗")
	case result.Skipped:
		return yellow("-")
	}
	return "?"
}

func (f *ConsoleReporter) OnSuiteStart(s *result.Suite) {
	f.metrics.Start()
	f.printf("\n%s %s\n\n", bold("Running: "+s.Name), cyan("run "+s.RunID))
}

func (f *ConsoleReporter) OnModuleStart(m *suite.TestModule) {
	if f.verbose {
		f.printf("%s %s (%d tests, %s)\n", bold("▸"), m.Path, m.Count(), m.RunMode)
	}
}

func (f *ConsoleReporter) OnSetupModuleDone(module string, r *result.Result) {
	if r.Status != result.Passed {
		f.printf("  %s %s setup %s\n", red("!"), module, red(formatRecord(r.Record, 120)))
	}
}

func (f *ConsoleReporter) OnSetupTestDone(string, string, *result.Result) {}

func (f *ConsoleReporter) OnTestDone(module string, m *result.Method) {
	f.metrics.Record(module, m.Duration, m.Status)

	f.mu.Lock()
	defer f.mu.Unlock()
	fmt.Fprintf(f.writer, "  %s %s %s", symbol(m.Status), m.FullName, cyan(fmt.Sprintf("(%dms)", m.Duration.Milliseconds())))
	if m.Status != result.Passed && m.Record != "" {
		fmt.Fprintf(f.writer, " %s", formatRecord(m.Record, 120))
	}
	fmt.Fprintf(f.writer, "\n")

	if m.Description != "" && f.verbose {
		fmt.Fprintf(f.writer, "    %s\n", m.Description)
	}
	for _, p := range m.Parameterized {
		if p.Status == result.Passed && !f.verbose {
			continue
		}
		fmt.Fprintf(f.writer, "    %s %s", symbol(p.Status), p.Name)
		if p.Record != "" {
			fmt.Fprintf(f.writer, " %s", formatRecord(p.Record, 100))
		}
		fmt.Fprintf(f.writer, "\n")
	}
}

func (f *ConsoleReporter) OnTeardownTestDone(module, test string, r *result.Result) {
	if r.Status == result.Failed {
		f.printf("    %s teardown of %s %s\n", red("!"), test, red(formatRecord(r.Record, 120)))
	}
}

func (f *ConsoleReporter) OnTeardownModuleDone(module string, r *result.Result) {
	if r.Status == result.Failed {
		f.printf("  %s %s teardown %s\n", red("!"), module, red(formatRecord(r.Record, 120)))
	}
}

func (f *ConsoleReporter) OnModuleDone(m *result.Module) {
	if f.verbose {
		f.printf("%s\n", m.String())
	}
}

func (f *ConsoleReporter) OnSuiteStop(s *result.Suite) {
	f.metrics.Stop()

	f.mu.Lock()
	defer f.mu.Unlock()

	if len(s.FailedImports) > 0 {
		fmt.Fprintf(f.writer, "\n%s\n", red("Failed imports:"))
		for _, fi := range s.FailedImports {
			fmt.Fprintf(f.writer, "  %s %s\n", red("x"), fi)
		}
	}

	summary := f.metrics.GetSummary()
	if len(summary.Modules) > 0 {
		fmt.Fprintf(f.writer, "\n%s", f.table(s, summary))
	}

	if f.verbose {
		if slow := stats.Slowest(s, slowestShown); len(slow) > 0 {
			fmt.Fprintf(f.writer, "\nSlowest:\n")
			for _, m := range slow {
				fmt.Fprintf(f.writer, "  %s %s\n", m.FullName, cyan(m.Duration.Round(time.Millisecond).String()))
			}
		}
	}

	fmt.Fprintf(f.writer, "\n")
	fmt.Fprintf(f.writer, "Tests: ")
	if s.Passed > 0 {
		fmt.Fprintf(f.writer, "%s, ", green(fmt.Sprintf("%d passed", s.Passed)))
	}
	if s.Failed > 0 {
		fmt.Fprintf(f.writer, "%s, ", red(fmt.Sprintf("%d failed", s.Failed)))
	}
	if s.Skipped > 0 {
		fmt.Fprintf(f.writer, "%s, ", yellow(fmt.Sprintf("%d skipped", s.Skipped)))
	}
	fmt.Fprintf(f.writer, "%d total\n", s.Total())
	if summary.Passed+summary.Failed > 0 {
		fmt.Fprintf(f.writer, "Durations: p50 %s  p95 %s  p99 %s  max %s\n",
			summary.P50, summary.P95, summary.P99, summary.Max)
	}
	fmt.Fprintf(f.writer, "Time:  %dms\n", s.Duration.Milliseconds())
	fmt.Fprintf(f.writer, "Status: %s\n\n", statusColor(s.Status))
}

func statusColor(s result.Status) string {
	switch s {
	case result.Passed:
		return green(s.String())
	case result.Failed:
		return red(s.String())
	}
	return yellow(s.String())
}

// table renders the per-module summary.
func (f *ConsoleReporter) table(s *result.Suite, summary *stats.Summary) string {
	status := make(map[string]result.Status, len(s.Modules))
	for _, m := range s.Modules {
		status[m.Name] = m.Status
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Module", "Status", "Passed", "Failed", "Skipped", "P50", "P95"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoFormatHeaders(false)
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT,
	})
	for _, m := range summary.Modules {
		table.Append([]string{
			m.Name,
			status[m.Name].String(),
			fmt.Sprint(m.Passed),
			fmt.Sprint(m.Failed),
			fmt.Sprint(m.Skipped),
			m.P50.Round(time.Millisecond).String(),
			m.P95.Round(time.Millisecond).String(),
		})
	}
	table.Render()
	return buf.String()
}

// FormatError prints an error that ended the command before or after a run.
func (f *ConsoleReporter) FormatError(err error) {
	f.printf("%s %v\n", red("Error:"), err)
}

func (f *ConsoleReporter) FormatHeader(version string) {
	f.printf("%s %s\n", bold("end2"), version)
}
