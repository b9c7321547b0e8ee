// Package output provides reporters and formatters for suite results.
//
// Supported output formats:
//   - Console: Human-readable colored terminal output, live per test
//   - JSON: Machine-readable JSON output
//   - JUnit: JUnit XML format for CI integration
//   - TAP: Test Anything Protocol format
//   - HTML: Standalone report page
//
// Every reporter satisfies runner.Reporter. Formatters that render the whole
// suite at once also implement Flushable. FileSink keeps one log folder per
// run.
package output
