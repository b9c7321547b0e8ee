package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
)

var (
	diffOutputFlag    string
	diffThresholdFlag string
)

var diffCmd = &cobra.Command{
	Use:   "diff <report1.json> <report2.json>",
	Short: "Compare two JSON reports",
	Long: `Compare two JSON reports written by "end2 run --output json" and show
status changes and duration changes per test.

Examples:
  end2 diff before.json after.json
  end2 diff before.json after.json --output json
  end2 diff before.json after.json --threshold 10%`,
	Args: cobra.ExactArgs(2),
	RunE: diffCommand,
}

func init() {
	diffCmd.Flags().StringVarP(&diffOutputFlag, "output", "o", "console", "Output format: console, json")
	diffCmd.Flags().StringVar(&diffThresholdFlag, "threshold", "", "Fail if any test is slower by this percentage (e.g., 10%)")
}

// Status changes between two reports.
const (
	ChangeImproved  = "improved"
	ChangeRegressed = "regressed"
	ChangeUnchanged = "unchanged"
	ChangeNew       = "new"
	ChangeRemoved   = "removed"
)

// slowdownPercent is the duration change counted as an improvement or a
// regression when the status did not change.
const slowdownPercent = 10

// DiffResult holds the comparison result
type DiffResult struct {
	File1       string           `json:"file1"`
	File2       string           `json:"file2"`
	RunID1      string           `json:"runId1,omitempty"`
	RunID2      string           `json:"runId2,omitempty"`
	Comparisons []TestComparison `json:"comparisons"`
	Summary     DiffSummary      `json:"summary"`
}

// TestComparison represents a comparison between two test results
type TestComparison struct {
	FullName       string  `json:"fullName"`
	StatusChange   string  `json:"statusChange"`
	Status1        string  `json:"status1,omitempty"`
	Status2        string  `json:"status2,omitempty"`
	Duration1      float64 `json:"duration1,omitempty"`
	Duration2      float64 `json:"duration2,omitempty"`
	DurationChange float64 `json:"durationChange,omitempty"`
	InFile1        bool    `json:"-"`
	InFile2        bool    `json:"-"`
}

// DiffSummary provides overall statistics
type DiffSummary struct {
	TotalTests       int     `json:"totalTests"`
	Improved         int     `json:"improved"`
	Regressed        int     `json:"regressed"`
	Unchanged        int     `json:"unchanged"`
	NewTests         int     `json:"newTests"`
	RemovedTests     int     `json:"removedTests"`
	TotalDuration1   float64 `json:"totalDuration1"`
	TotalDuration2   float64 `json:"totalDuration2"`
	ThresholdPassed  bool    `json:"thresholdPassed"`
	ThresholdPercent float64 `json:"thresholdPercent,omitempty"`
}

func diffCommand(cmd *cobra.Command, args []string) error {
	file1, file2 := args[0], args[1]

	report1, err := os.ReadFile(file1)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", file1, err)
	}
	report2, err := os.ReadFile(file2)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", file2, err)
	}

	var threshold float64
	if diffThresholdFlag != "" {
		if threshold, err = parseThreshold(diffThresholdFlag); err != nil {
			return &ExitError{Code: ExitUsageError, Err: err}
		}
	}

	diff, err := compareReports(report1, report2, threshold)
	if err != nil {
		return err
	}
	diff.File1, diff.File2 = file1, file2

	switch strings.ToLower(diffOutputFlag) {
	case "json":
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(diff); err != nil {
			return err
		}
	default:
		writeDiffConsole(cmd.OutOrStdout(), diff)
	}

	if !diff.Summary.ThresholdPassed {
		return &ExitError{Code: ExitTestFailure, Err: fmt.Errorf("threshold exceeded")}
	}
	return nil
}

func parseThreshold(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "%")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid threshold %q: %w", s, err)
	}
	return v, nil
}

type reportTest struct {
	status   string
	duration float64
}

// readReport indexes a JSON report's tests by full name.
func readReport(data []byte) (gjson.Result, map[string]reportTest, error) {
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, nil, fmt.Errorf("not a JSON report")
	}
	report := gjson.ParseBytes(data)
	tests := report.Get("tests")
	if !tests.IsArray() {
		return gjson.Result{}, nil, fmt.Errorf("report has no tests array")
	}
	out := make(map[string]reportTest)
	tests.ForEach(func(_, t gjson.Result) bool {
		out[t.Get("fullName").String()] = reportTest{
			status:   t.Get("status").String(),
			duration: t.Get("duration").Float(),
		}
		return true
	})
	return report, out, nil
}

func compareReports(data1, data2 []byte, threshold float64) (*DiffResult, error) {
	report1, tests1, err := readReport(data1)
	if err != nil {
		return nil, fmt.Errorf("first report: %w", err)
	}
	report2, tests2, err := readReport(data2)
	if err != nil {
		return nil, fmt.Errorf("second report: %w", err)
	}

	diff := &DiffResult{
		RunID1: report1.Get("runId").String(),
		RunID2: report2.Get("runId").String(),
		Summary: DiffSummary{
			TotalDuration1:   report1.Get("duration").Float(),
			TotalDuration2:   report2.Get("duration").Float(),
			ThresholdPercent: threshold,
			ThresholdPassed:  true,
		},
	}

	names := make([]string, 0, len(tests1)+len(tests2))
	for name := range tests1 {
		names = append(names, name)
	}
	for name := range tests2 {
		if _, ok := tests1[name]; !ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	for _, name := range names {
		t1, in1 := tests1[name]
		t2, in2 := tests2[name]
		comp := TestComparison{
			FullName:  name,
			InFile1:   in1,
			InFile2:   in2,
			Status1:   t1.status,
			Status2:   t2.status,
			Duration1: t1.duration,
			Duration2: t2.duration,
		}

		switch {
		case in1 && in2:
			if comp.Duration1 > 0 {
				comp.DurationChange = ((comp.Duration2 - comp.Duration1) / comp.Duration1) * 100
			}
			passed1, passed2 := t1.status == "Passed", t2.status == "Passed"
			switch {
			case passed1 != passed2 && passed2:
				comp.StatusChange = ChangeImproved
			case passed1 != passed2:
				comp.StatusChange = ChangeRegressed
			case comp.DurationChange < -slowdownPercent:
				comp.StatusChange = ChangeImproved
			case comp.DurationChange > slowdownPercent:
				comp.StatusChange = ChangeRegressed
			default:
				comp.StatusChange = ChangeUnchanged
			}
			if threshold > 0 && comp.DurationChange > threshold {
				diff.Summary.ThresholdPassed = false
			}
		case in1:
			comp.StatusChange = ChangeRemoved
		default:
			comp.StatusChange = ChangeNew
		}

		switch comp.StatusChange {
		case ChangeImproved:
			diff.Summary.Improved++
		case ChangeRegressed:
			diff.Summary.Regressed++
		case ChangeUnchanged:
			diff.Summary.Unchanged++
		case ChangeRemoved:
			diff.Summary.RemovedTests++
		case ChangeNew:
			diff.Summary.NewTests++
		}
		diff.Comparisons = append(diff.Comparisons, comp)
		diff.Summary.TotalTests++
	}
	return diff, nil
}

func writeDiffConsole(w io.Writer, diff *DiffResult) {
	cyan := color.New(color.FgCyan).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	fmt.Fprintf(w, "\n%s\n", bold("Report Comparison"))
	fmt.Fprintf(w, "  %s: %s %s\n", cyan("Report 1"), diff.File1, diff.RunID1)
	fmt.Fprintf(w, "  %s: %s %s\n\n", cyan("Report 2"), diff.File2, diff.RunID2)

	fmt.Fprintf(w, "%s\n", bold("Summary"))
	fmt.Fprintf(w, "  Total Tests:    %d\n", diff.Summary.TotalTests)
	if diff.Summary.Improved > 0 {
		fmt.Fprintf(w, "  Improved:       %s\n", green(diff.Summary.Improved))
	}
	if diff.Summary.Regressed > 0 {
		fmt.Fprintf(w, "  Regressed:      %s\n", red(diff.Summary.Regressed))
	}
	if diff.Summary.Unchanged > 0 {
		fmt.Fprintf(w, "  Unchanged:      %d\n", diff.Summary.Unchanged)
	}
	if diff.Summary.NewTests > 0 {
		fmt.Fprintf(w, "  New Tests:      %s\n", cyan(diff.Summary.NewTests))
	}
	if diff.Summary.RemovedTests > 0 {
		fmt.Fprintf(w, "  Removed Tests:  %s\n", yellow(diff.Summary.RemovedTests))
	}
	fmt.Fprintf(w, "  Duration:       %.0fms → %.0fms\n\n", diff.Summary.TotalDuration1, diff.Summary.TotalDuration2)

	fmt.Fprintf(w, "%s\n", bold("Test Details"))
	for _, comp := range diff.Comparisons {
		var symbol string
		paint := fmt.Sprint
		switch comp.StatusChange {
		case ChangeImproved:
			symbol, paint = "↑", green
		case ChangeRegressed:
			symbol, paint = "↓", red
		case ChangeNew:
			symbol, paint = "+", cyan
		case ChangeRemoved:
			symbol, paint = "-", yellow
		default:
			symbol = "="
		}

		switch {
		case comp.InFile1 && comp.InFile2:
			change := ""
			if comp.DurationChange != 0 {
				change = fmt.Sprintf("%+.1f%%", comp.DurationChange)
			}
			status := ""
			if comp.Status1 != comp.Status2 {
				status = fmt.Sprintf(" %s → %s", comp.Status1, comp.Status2)
			}
			fmt.Fprintf(w, "  %s %s%s  %.0fms → %.0fms %s\n",
				paint(symbol), comp.FullName, status, comp.Duration1, comp.Duration2, paint(change))
		case comp.InFile1:
			fmt.Fprintf(w, "  %s %s  (removed)\n", paint(symbol), comp.FullName)
		default:
			fmt.Fprintf(w, "  %s %s  (new, %s, %.0fms)\n", paint(symbol), comp.FullName, comp.Status2, comp.Duration2)
		}
	}
	fmt.Fprintln(w)

	if diff.Summary.ThresholdPercent > 0 {
		if diff.Summary.ThresholdPassed {
			fmt.Fprintf(w, "%s Threshold check passed (max regression: %.1f%%)\n", green("✓"), diff.Summary.ThresholdPercent)
		} else {
			fmt.Fprintf(w, "%s Threshold check failed (some tests exceeded %.1f%% regression)\n", red("✗"), diff.Summary.ThresholdPercent)
		}
	}
}
