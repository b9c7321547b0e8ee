// Package lastfailed persists the tests that did not pass so a later run can
// select exactly those again.
package lastfailed

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/abdul-hamid-achik/end2/packages/core/parser"
	"github.com/abdul-hamid-achik/end2/packages/core/result"
)

// DefaultFile is where the store lives when no path is configured.
const DefaultFile = ".end2_last_failed"

// Lines lists the fully qualified names of every non-passed test. A
// parameterized test with exactly one non-passed variant is narrowed to
// that variant's index.
func Lines(s *result.Suite) []string {
	var out []string
	for _, m := range s.Tests() {
		if m.Status == result.Passed {
			continue
		}
		name := m.FullName
		var bad []*result.Result
		for _, p := range m.Parameterized {
			if p.Status != result.Passed {
				bad = append(bad, p)
			}
		}
		if len(bad) == 1 {
			name = result.FullName(m.Module, bad[0].Name)
		}
		out = append(out, name)
	}
	return out
}

// Write replaces the store at path with the suite's non-passed tests.
func Write(path string, s *result.Suite) error {
	if path == "" {
		path = DefaultFile
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating last-failed dir: %w", err)
		}
	}
	var buf bytes.Buffer
	for _, line := range Lines(s) {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing last-failed file: %w", err)
	}
	return nil
}

// Read loads the store at path and groups its entries per module into
// selectors: "module::test_a,test_b[2]". A missing store yields nothing.
func Read(path string) ([]string, error) {
	if path == "" {
		path = DefaultFile
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening last-failed file: %w", err)
	}
	defer f.Close()

	var order []string
	tests := map[string][]string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		module, test, ok := strings.Cut(line, parser.TestSeparator)
		if !ok || module == "" || test == "" {
			return nil, fmt.Errorf("malformed last-failed entry %q", line)
		}
		if _, seen := tests[module]; !seen {
			order = append(order, module)
		}
		tests[module] = append(tests[module], test)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading last-failed file: %w", err)
	}

	selectors := make([]string, 0, len(order))
	for _, module := range order {
		selectors = append(selectors, module+parser.TestSeparator+strings.Join(tests[module], parser.TestDelimiter))
	}
	return selectors, nil
}
