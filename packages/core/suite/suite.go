// Package suite holds the discovered test tree: packages with their scope
// fixtures, modules partitioned by run mode, groups with their fixtures and
// the test cases inside them.
package suite

import (
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/end2/packages/core/fixture"
	"github.com/abdul-hamid-achik/end2/packages/core/parser"
)

// RunMode declares how a module runs relative to its siblings and how its
// tests run relative to each other.
type RunMode int

const (
	// Sequential modules run one at a time, in discovery order.
	Sequential RunMode = iota
	// Parallel modules run concurrently with other parallel modules.
	Parallel
	// ParallelTest modules additionally run their tests concurrently.
	ParallelTest
)

func (m RunMode) String() string {
	switch m {
	case Sequential:
		return "sequential"
	case Parallel:
		return "parallel"
	case ParallelTest:
		return "parallel_test"
	default:
		return fmt.Sprintf("RunMode(%d)", int(m))
	}
}

// Valid reports whether m is a declared run mode.
func (m RunMode) Valid() bool {
	return m >= Sequential && m <= ParallelTest
}

// Concurrent reports whether the module belongs to the parallel bucket.
func (m RunMode) Concurrent() bool {
	return m == Parallel || m == ParallelTest
}

// ParseRunMode parses the names String produces.
func ParseRunMode(s string) (RunMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sequential", "":
		return Sequential, nil
	case "parallel":
		return Parallel, nil
	case "parallel_test", "parallel-test", "paralleltest":
		return ParallelTest, nil
	}
	return Sequential, fmt.Errorf("%s is not a valid RunMode", s)
}

// Meta is per-test metadata a module declares through Metadata().
type Meta struct {
	Tags        []string
	Description string
	// Params makes the test parameterized: it runs once per tuple.
	Params [][]any
}

// Variant is one resolved parameter tuple of a parameterized test.
type Variant struct {
	// Index is the raw index from the slice, as it appears in the
	// variant's name.
	Index  int
	Params []any
}

// TestCase is one discovered test.
type TestCase struct {
	Name        string
	Module      string
	Func        fixture.Func
	Tags        []string
	Description string

	Parameterized bool
	Params        [][]any
	Range         parser.Range
}

// FullName is the fully qualified "module::test" name.
func (tc *TestCase) FullName() string {
	return tc.Module + parser.TestSeparator + tc.Name
}

// VariantName names one variant, "test[i]".
func (tc *TestCase) VariantName(index int) string {
	return fmt.Sprintf("%s[%d]", tc.Name, index)
}

// Variants resolves the test's range against its parameter list. Indices
// outside the list are skipped.
func (tc *TestCase) Variants() []Variant {
	if !tc.Parameterized {
		return nil
	}
	var out []Variant
	for _, i := range tc.Range.Indices() {
		if j, ok := parser.Resolve(i, len(tc.Params)); ok {
			out = append(out, Variant{Index: i, Params: tc.Params[j]})
		}
	}
	return out
}

// TestGroup is a set of tests sharing group and per-test fixtures. A module
// is a root group; nested groups come from Groups().
type TestGroup struct {
	Name         string
	Setup        fixture.Func
	Teardown     fixture.Func
	SetupTest    fixture.Func
	TeardownTest fixture.Func
	Tests        []*TestCase
	Groups       []*TestGroup
}

// Count is the number of tests in the group and its nested groups.
func (g *TestGroup) Count() int {
	n := len(g.Tests)
	for _, child := range g.Groups {
		n += child.Count()
	}
	return n
}

// All returns every test in the group, depth first.
func (g *TestGroup) All() []*TestCase {
	out := append([]*TestCase(nil), g.Tests...)
	for _, child := range g.Groups {
		out = append(out, child.All()...)
	}
	return out
}

// Filter keeps the tests keep accepts, in every nested group, and drops
// groups left empty.
func (g *TestGroup) Filter(keep func(*TestCase) bool) {
	tests := g.Tests[:0]
	for _, tc := range g.Tests {
		if keep(tc) {
			tests = append(tests, tc)
		}
	}
	g.Tests = tests

	groups := g.Groups[:0]
	for _, child := range g.Groups {
		child.Filter(keep)
		if child.Count() > 0 {
			groups = append(groups, child)
		}
	}
	g.Groups = groups
}

// TestModule is a discovered module.
type TestModule struct {
	Path        string
	Description string
	RunMode     RunMode
	Tags        []string
	Root        *TestGroup
}

// Count is the number of tests in the module.
func (m *TestModule) Count() int {
	return m.Root.Count()
}
