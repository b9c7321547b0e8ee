package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/abdul-hamid-achik/end2/packages/core/result"
)

// TAPFormatter formats the suite result in TAP (Test Anything Protocol) format
type TAPFormatter struct {
	collector
	writer io.Writer
}

type TAPOption func(*TAPFormatter)

func NewTAPFormatter(opts ...TAPOption) *TAPFormatter {
	f := &TAPFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func TAPWithWriter(w io.Writer) TAPOption {
	return func(f *TAPFormatter) {
		f.writer = w
	}
}

// Flush writes the TAP stream of the finished suite
func (f *TAPFormatter) Flush() error {
	if f.suite == nil {
		return nil
	}
	s := f.suite

	// TAP version header
	fmt.Fprintf(f.writer, "TAP version 13\n")

	// Test plan
	fmt.Fprintf(f.writer, "1..%d\n", s.Total())

	for _, fi := range s.FailedImports {
		fmt.Fprintf(f.writer, "# %s\n", fi)
	}

	n := 0
	for _, t := range s.Tests() {
		n++
		switch t.Status {
		case result.Skipped:
			reason := t.Record
			if reason == "" {
				reason = "SKIP"
			}
			fmt.Fprintf(f.writer, "ok %d - %s # SKIP %s\n", n, t.FullName, reason)
		case result.Passed:
			fmt.Fprintf(f.writer, "ok %d - %s\n", n, t.FullName)
		default:
			fmt.Fprintf(f.writer, "not ok %d - %s\n", n, t.FullName)
			fmt.Fprintf(f.writer, "  ---\n")
			fmt.Fprintf(f.writer, "  message: %s\n", escapeYAML(t.Record))
			var failures []string
			for _, p := range t.Parameterized {
				if p.Status == result.Failed {
					failures = append(failures, p.Name+": "+p.Record)
				}
			}
			if len(failures) > 0 {
				fmt.Fprintf(f.writer, "  failures:\n")
				for _, a := range failures {
					fmt.Fprintf(f.writer, "    - %s\n", escapeYAML(a))
				}
			}
			fmt.Fprintf(f.writer, "  ...\n")
		}
	}

	// Add final newline for proper TAP output
	_, err := fmt.Fprintln(f.writer)
	return err
}

func escapeYAML(s string) string {
	// Simple YAML escaping - wrap in quotes if contains special chars
	if strings.ContainsAny(s, ":\n\"'[]{}#&*!|>%@`") {
		s = strings.ReplaceAll(s, "\\", "\\\\")
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", "\\n")
		return "\"" + s + "\""
	}
	return s
}
