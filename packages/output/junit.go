package output

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/end2/packages/core/result"
)

// JUnit XML structures

// JUnitTestSuites is the root element
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Name       string           `xml:"name,attr,omitempty"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Skipped    int              `xml:"skipped,attr"`
	Time       float64          `xml:"time,attr"`
	Timestamp  string           `xml:"timestamp,attr,omitempty"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite represents a test suite (one module)
type JUnitTestSuite struct {
	XMLName   xml.Name        `xml:"testsuite"`
	Name      string          `xml:"name,attr"`
	Tests     int             `xml:"tests,attr"`
	Failures  int             `xml:"failures,attr"`
	Errors    int             `xml:"errors,attr"`
	Skipped   int             `xml:"skipped,attr"`
	Time      float64         `xml:"time,attr"`
	Timestamp string          `xml:"timestamp,attr,omitempty"`
	TestCases []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase represents a single test case
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Error     *JUnitError   `xml:"error,omitempty"`
	Skipped   *JUnitSkipped `xml:"skipped,omitempty"`
}

// JUnitFailure represents a test failure
type JUnitFailure struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
	Content string `xml:",chardata"`
}

// JUnitError represents a test error
type JUnitError struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
	Content string `xml:",chardata"`
}

// JUnitSkipped represents a skipped test
type JUnitSkipped struct {
	Message string `xml:"message,attr,omitempty"`
}

// JUnitFormatter formats the suite result as JUnit XML
type JUnitFormatter struct {
	collector
	writer io.Writer
}

type JUnitOption func(*JUnitFormatter)

func NewJUnitFormatter(opts ...JUnitOption) *JUnitFormatter {
	f := &JUnitFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JUnitWithWriter(w io.Writer) JUnitOption {
	return func(f *JUnitFormatter) {
		f.writer = w
	}
}

// exceptionPrefix marks records of tests that raised instead of asserting.
const exceptionPrefix = "Encountered an exception: "

func junitCase(t *result.Method) JUnitTestCase {
	tc := JUnitTestCase{
		Name:      t.Name,
		ClassName: t.Module,
		Time:      t.Duration.Seconds(),
	}
	switch t.Status {
	case result.Skipped:
		tc.Skipped = &JUnitSkipped{Message: t.Record}
	case result.Failed:
		if strings.HasPrefix(t.Record, exceptionPrefix) {
			tc.Error = &JUnitError{
				Message: strings.TrimPrefix(t.Record, exceptionPrefix),
				Type:    "Error",
			}
			break
		}
		var content strings.Builder
		for _, p := range t.Parameterized {
			if p.Status == result.Failed {
				fmt.Fprintf(&content, "%s: %s\n", p.Name, p.Record)
			}
		}
		tc.Failure = &JUnitFailure{
			Message: t.Record,
			Type:    "AssertionError",
			Content: content.String(),
		}
	}
	return tc
}

// BuildJUnit converts a sealed suite into JUnit XML structures.
func BuildJUnit(s *result.Suite) JUnitTestSuites {
	suites := JUnitTestSuites{
		Name:       s.Name,
		Time:       s.Duration.Seconds(),
		Timestamp:  s.StartTime.Format(time.RFC3339),
		TestSuites: make([]JUnitTestSuite, 0, len(s.Modules)),
	}

	for _, m := range s.Modules {
		ts := JUnitTestSuite{
			Name:      m.Name,
			Tests:     len(m.Tests),
			Skipped:   m.Skipped,
			Time:      m.Duration.Seconds(),
			Timestamp: m.StartTime.Format(time.RFC3339),
			TestCases: make([]JUnitTestCase, 0, len(m.Tests)),
		}
		for _, t := range m.Tests {
			tc := junitCase(t)
			if tc.Error != nil {
				ts.Errors++
			} else if tc.Failure != nil {
				ts.Failures++
			}
			ts.TestCases = append(ts.TestCases, tc)
		}

		suites.Tests += ts.Tests
		suites.Failures += ts.Failures
		suites.Errors += ts.Errors
		suites.Skipped += ts.Skipped
		suites.TestSuites = append(suites.TestSuites, ts)
	}
	return suites
}

// Flush writes the JUnit XML report of the finished suite
func (f *JUnitFormatter) Flush() error {
	if f.suite == nil {
		return nil
	}
	fmt.Fprintf(f.writer, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	encoder := xml.NewEncoder(f.writer)
	encoder.Indent("", "  ")
	if err := encoder.Encode(BuildJUnit(f.suite)); err != nil {
		return err
	}
	_, err := fmt.Fprintln(f.writer)
	return err
}
