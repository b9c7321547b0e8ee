package result

import (
	"fmt"
	"iter"
	"sync"
)

// Method is the result of one test case. Parameterized tests carry one
// sub-result per resolved variant.
type Method struct {
	Result
	FullName      string    `json:"fullName"`
	Module        string    `json:"module"`
	Description   string    `json:"description,omitempty"`
	Tags          []string  `json:"tags,omitempty"`
	Setup         *Result   `json:"setup,omitempty"`
	Teardown      *Result   `json:"teardown,omitempty"`
	Parameterized []*Result `json:"parameterized,omitempty"`
	Expected      int       `json:"expected,omitempty"` // resolved range length
}

// NewMethod starts the result of the test name in module.
func NewMethod(module, name string) *Method {
	return &Method{
		Result:   *New(name),
		Module:   module,
		FullName: FullName(module, name),
	}
}

// FullName builds the module::test identity used by selectors and the
// last-failed store.
func FullName(module, test string) string {
	return fmt.Sprintf("%s::%s", module, test)
}

// End seals the method. With parameterized variants the status is derived:
// Passed only when the passed variants cover the whole resolved range
// (Expected, or every recorded variant when unset), Skipped when all
// recorded variants were skipped.
func (m *Method) End(status ...Status) *Method {
	m.seal(status...)
	if len(m.Parameterized) > 0 && len(status) == 0 {
		n := max(m.Expected, len(m.Parameterized))
		var c Counts
		for _, p := range m.Parameterized {
			c.add(p.Status)
		}
		switch {
		case c.Passed == n:
			m.Status = Passed
		case c.Skipped == len(m.Parameterized):
			m.Status = Skipped
		default:
			m.Status = Failed
			if m.Record == "" {
				m.Record = fmt.Sprintf("%d of %d parameterized runs passed", c.Passed, n)
			}
		}
	}
	return m
}

// Base returns a copy of the method's base record, without children.
func (m *Method) Base() *Result {
	r := m.Result
	return &r
}

// Module is the result of one test module.
type Module struct {
	Result
	Counts
	FilePath       string    `json:"filePath,omitempty"`
	Description    string    `json:"description,omitempty"`
	Setup          *Result   `json:"setup,omitempty"`
	Teardown       *Result   `json:"teardown,omitempty"`
	GroupSetups    []*Result `json:"groupSetups,omitempty"`
	GroupTeardowns []*Result `json:"groupTeardowns,omitempty"`
	Tests          []*Method `json:"tests"`

	mu sync.Mutex
}

// NewModule starts the result of the named module.
func NewModule(name string) *Module {
	return &Module{Result: *New(name)}
}

// Append records a test result. Safe for concurrent use by the module's
// worker and task lanes.
func (m *Module) Append(r *Method) {
	if r == nil {
		return
	}
	m.mu.Lock()
	m.Tests = append(m.Tests, r)
	m.mu.Unlock()
}

// End seals the module and recomputes its counts and status from its tests.
func (m *Module) End(status ...Status) *Module {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seal(status...)
	m.Counts = Counts{}
	for _, t := range m.Tests {
		m.Counts.add(t.Status)
	}
	if len(status) == 0 || status[0] == Unknown {
		m.Status = Rollup(m.Passed, m.Failed, m.Skipped)
	}
	return m
}

func (m *Module) String() string {
	return fmt.Sprintf("%s Results: {Total: %d | Passed: %d | Failed: %d | Skipped: %d | Duration: %s}",
		m.Name, m.Total(), m.Passed, m.Failed, m.Skipped, m.Duration)
}

// Suite is the root of the result tree.
type Suite struct {
	Result
	Counts
	RunID         string    `json:"runId"`
	Modules       []*Module `json:"modules"`
	FailedImports []string  `json:"failedImports,omitempty"`

	mu sync.Mutex
}

// NewSuite starts the suite result for a run.
func NewSuite(name, runID string) *Suite {
	return &Suite{Result: *New(name), RunID: runID}
}

// Append records a module result. Safe for concurrent use.
func (s *Suite) Append(m *Module) {
	if m == nil {
		return
	}
	s.mu.Lock()
	s.Modules = append(s.Modules, m)
	s.mu.Unlock()
}

// End seals the suite, summing module counts and rolling up the status.
func (s *Suite) End(status ...Status) *Suite {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seal(status...)
	s.Counts = Counts{}
	for _, m := range s.Modules {
		s.Counts.Passed += m.Passed
		s.Counts.Failed += m.Failed
		s.Counts.Skipped += m.Skipped
	}
	if len(status) == 0 || status[0] == Unknown {
		s.Status = Rollup(s.Passed, s.Failed, s.Skipped)
	}
	return s
}

// ExitCode is 0 only for a Passed suite.
func (s *Suite) ExitCode() int {
	if s.Status == Passed {
		return 0
	}
	return 1
}

// Tests iterates every method result in module order.
func (s *Suite) Tests() iter.Seq2[*Module, *Method] {
	return func(yield func(*Module, *Method) bool) {
		for _, m := range s.Modules {
			for _, t := range m.Tests {
				if !yield(m, t) {
					return
				}
			}
		}
	}
}

func (s *Suite) String() string {
	return fmt.Sprintf("%s Results: {Total: %d | Passed: %d | Failed: %d | Skipped: %d | Duration: %s}",
		s.Name, s.Total(), s.Passed, s.Failed, s.Skipped, s.Duration)
}
