package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/abdul-hamid-achik/end2/packages/core/result"
	"github.com/abdul-hamid-achik/end2/packages/core/runner"
	"github.com/abdul-hamid-achik/end2/packages/core/suite"
)

// Formats accepted by New.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
	FormatJUnit   = "junit"
	FormatTAP     = "tap"
	FormatHTML    = "html"
)

// Flushable is implemented by formatters that render the sealed suite once
// the run is over.
type Flushable interface {
	Flush() error
}

// Nop ignores every callback. Embed it to implement only some of them.
type Nop struct{}

func (Nop) OnSuiteStart(*result.Suite)                        {}
func (Nop) OnModuleStart(*suite.TestModule)                   {}
func (Nop) OnSetupModuleDone(string, *result.Result)          {}
func (Nop) OnSetupTestDone(string, string, *result.Result)    {}
func (Nop) OnTestDone(string, *result.Method)                 {}
func (Nop) OnTeardownTestDone(string, string, *result.Result) {}
func (Nop) OnTeardownModuleDone(string, *result.Result)       {}
func (Nop) OnModuleDone(*result.Module)                       {}
func (Nop) OnSuiteStop(*result.Suite)                         {}

// collector keeps the sealed suite for a Flushable formatter.
type collector struct {
	Nop
	suite *result.Suite
}

func (c *collector) OnSuiteStop(s *result.Suite) { c.suite = s }

// Multi fans every callback out to each reporter in order.
type Multi []runner.Reporter

func (m Multi) OnSuiteStart(s *result.Suite) {
	for _, r := range m {
		r.OnSuiteStart(s)
	}
}

func (m Multi) OnModuleStart(mod *suite.TestModule) {
	for _, r := range m {
		r.OnModuleStart(mod)
	}
}

func (m Multi) OnSetupModuleDone(module string, res *result.Result) {
	for _, r := range m {
		r.OnSetupModuleDone(module, res)
	}
}

func (m Multi) OnSetupTestDone(module, test string, res *result.Result) {
	for _, r := range m {
		r.OnSetupTestDone(module, test, res)
	}
}

func (m Multi) OnTestDone(module string, res *result.Method) {
	for _, r := range m {
		r.OnTestDone(module, res)
	}
}

func (m Multi) OnTeardownTestDone(module, test string, res *result.Result) {
	for _, r := range m {
		r.OnTeardownTestDone(module, test, res)
	}
}

func (m Multi) OnTeardownModuleDone(module string, res *result.Result) {
	for _, r := range m {
		r.OnTeardownModuleDone(module, res)
	}
}

func (m Multi) OnModuleDone(res *result.Module) {
	for _, r := range m {
		r.OnModuleDone(res)
	}
}

func (m Multi) OnSuiteStop(s *result.Suite) {
	for _, r := range m {
		r.OnSuiteStop(s)
	}
}

// Flush flushes every Flushable member and returns the first error.
func (m Multi) Flush() error {
	var first error
	for _, r := range m {
		if f, ok := r.(Flushable); ok {
			if err := f.Flush(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}

// New builds the reporter for format writing to w. Console options apply
// only to the console format.
func New(format string, w io.Writer, opts ...ConsoleOption) (runner.Reporter, error) {
	if w == nil {
		w = os.Stdout
	}
	switch strings.ToLower(format) {
	case "", FormatConsole:
		return NewConsoleReporter(append([]ConsoleOption{WithWriter(w)}, opts...)...), nil
	case FormatJSON:
		return NewJSONFormatter(JSONWithWriter(w)), nil
	case FormatJUnit:
		return NewJUnitFormatter(JUnitWithWriter(w)), nil
	case FormatTAP:
		return NewTAPFormatter(TAPWithWriter(w)), nil
	case FormatHTML:
		return NewHTMLFormatter(HTMLWithWriter(w)), nil
	}
	return nil, fmt.Errorf("unknown output format %q", format)
}

var (
	_ runner.Reporter = Nop{}
	_ runner.Reporter = Multi(nil)
	_ runner.Reporter = (*ConsoleReporter)(nil)
	_ runner.Reporter = (*JSONFormatter)(nil)
	_ runner.Reporter = (*JUnitFormatter)(nil)
	_ runner.Reporter = (*TAPFormatter)(nil)
	_ runner.Reporter = (*HTMLFormatter)(nil)
	_ runner.Reporter = (*FileSink)(nil)
)
