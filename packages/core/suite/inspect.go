package suite

import (
	"context"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"

	"github.com/abdul-hamid-achik/end2/packages/core/fixture"
	"github.com/abdul-hamid-achik/end2/packages/core/scope"
)

// TestPrefix marks test methods.
const TestPrefix = "Test"

// Fixture roles and the method names that fill them.
var (
	setupNames        = []string{"Setup", "SetupModule"}
	teardownNames     = []string{"Teardown", "TeardownModule"}
	setupTestNames    = []string{"SetupTest", "SetupEach"}
	teardownTestNames = []string{"TeardownTest", "TeardownEach"}
)

// Optional interfaces a module value may implement.
type (
	runModer   interface{ RunMode() RunMode }
	tagger     interface{ Tags() []string }
	describer  interface{ Description() string }
	metadataer interface{ Metadata() map[string]Meta }
	grouper    interface{ Groups() map[string]any }
)

// Inspect builds a TestModule from a module value by method name:
//
//	Test*                        tests
//	Setup / Teardown             group fixtures
//	SetupTest / TeardownTest     per-test fixtures
//	RunMode() RunMode            defaults to Sequential
//	Tags() []string              module tags
//	Metadata() map[string]Meta   per-test tags, description, parameters
//	Groups() map[string]any      nested groups, inspected the same way
//	Description() string
//
// Tests and fixtures take func(*fixture.T) error, or
// func(context.Context, *fixture.T) error for coroutines.
func Inspect(path string, v any) (*TestModule, error) {
	if v == nil {
		return nil, fmt.Errorf("%s: nil module", path)
	}

	m := &TestModule{Path: path, RunMode: Sequential}
	if rm, ok := v.(runModer); ok {
		m.RunMode = rm.RunMode()
		if !m.RunMode.Valid() {
			return nil, fmt.Errorf("%s is not a valid RunMode", m.RunMode)
		}
	}
	if tg, ok := v.(tagger); ok {
		m.Tags = tg.Tags()
	}
	if d, ok := v.(describer); ok {
		m.Description = d.Description()
	}

	root, err := inspectGroup(path, path, v, nil)
	if err != nil {
		return nil, err
	}
	m.Root = root
	return m, nil
}

func inspectGroup(module, name string, v any, parent *TestGroup) (*TestGroup, error) {
	g := &TestGroup{Name: name}
	var err error
	if g.Setup, err = role(module, v, "setup", setupNames, fixture.Empty("setup")); err != nil {
		return nil, err
	}
	if g.Teardown, err = role(module, v, "teardown", teardownNames, fixture.Empty("teardown")); err != nil {
		return nil, err
	}
	inheritedSetup, inheritedTeardown := fixture.Empty("setup_test"), fixture.Empty("teardown_test")
	if parent != nil {
		inheritedSetup, inheritedTeardown = parent.SetupTest, parent.TeardownTest
	}
	if g.SetupTest, err = role(module, v, "setup_test", setupTestNames, inheritedSetup); err != nil {
		return nil, err
	}
	if g.TeardownTest, err = role(module, v, "teardown_test", teardownTestNames, inheritedTeardown); err != nil {
		return nil, err
	}

	var meta map[string]Meta
	if md, ok := v.(metadataer); ok {
		meta = md.Metadata()
	}

	rv := reflect.ValueOf(v)
	rt := rv.Type()
	for i := 0; i < rt.NumMethod(); i++ {
		method := rt.Method(i)
		if !strings.HasPrefix(method.Name, TestPrefix) {
			continue
		}
		fn, ok := asFunc(method.Name, rv.Method(i))
		if !ok {
			return nil, fmt.Errorf("%s.%s has an unsupported signature %s", module, method.Name, rv.Method(i).Type())
		}
		tc := &TestCase{Name: method.Name, Module: module, Func: fn}
		if md, ok := meta[method.Name]; ok {
			tc.Tags = md.Tags
			tc.Description = md.Description
			if md.Params != nil {
				tc.Parameterized = true
				tc.Params = md.Params
			}
		}
		g.Tests = append(g.Tests, tc)
	}

	if gr, ok := v.(grouper); ok {
		groups := gr.Groups()
		for _, childName := range slices.Sorted(maps.Keys(groups)) {
			cg, err := inspectGroup(module, childName, groups[childName], g)
			if err != nil {
				return nil, err
			}
			g.Groups = append(g.Groups, cg)
		}
	}
	return g, nil
}

// role resolves the method filling a fixture role. Declaring more than one
// method for the same role is an error.
func role(module string, v any, roleName string, names []string, fallback fixture.Func) (fixture.Func, error) {
	rv := reflect.ValueOf(v)
	found := fallback
	count := 0
	for _, name := range names {
		m := rv.MethodByName(name)
		if !m.IsValid() {
			continue
		}
		fn, ok := asFunc(roleName, m)
		if !ok {
			return fixture.Func{}, fmt.Errorf("%s.%s has an unsupported signature %s", module, name, m.Type())
		}
		found = fn
		count++
	}
	if count > 1 {
		return fixture.Func{}, fmt.Errorf("More than 1 %s in %s", roleName, module)
	}
	return found, nil
}

func asFunc(name string, m reflect.Value) (fixture.Func, bool) {
	switch fn := m.Interface().(type) {
	case func(*fixture.T) error:
		return fixture.Sync(name, fn), true
	case func(context.Context, *fixture.T) error:
		return fixture.Coroutine(name, fn), true
	}
	return fixture.Func{}, false
}

// InspectPackage resolves the package fixtures of a package value:
// Setup and Teardown taking func(*scope.Frame) error or
// func(context.Context, *scope.Frame) error. A nil value has none.
func InspectPackage(path string, v any) (setup, teardown fixture.Func, err error) {
	setup, teardown = fixture.Empty("setup_package"), fixture.Empty("teardown_package")
	if v == nil {
		return setup, teardown, nil
	}
	rv := reflect.ValueOf(v)
	if m := rv.MethodByName("Setup"); m.IsValid() {
		if setup, err = asPackageFunc("setup_package", m); err != nil {
			return setup, teardown, fmt.Errorf("%s.Setup: %w", path, err)
		}
	}
	if m := rv.MethodByName("Teardown"); m.IsValid() {
		if teardown, err = asPackageFunc("teardown_package", m); err != nil {
			return setup, teardown, fmt.Errorf("%s.Teardown: %w", path, err)
		}
	}
	return setup, teardown, nil
}

func asPackageFunc(name string, m reflect.Value) (fixture.Func, error) {
	switch fn := m.Interface().(type) {
	case func(*scope.Frame) error:
		return fixture.Sync(name, func(t *fixture.T) error { return fn(t.Scope()) }), nil
	case func(context.Context, *scope.Frame) error:
		return fixture.Coroutine(name, func(ctx context.Context, t *fixture.T) error { return fn(ctx, t.Scope()) }), nil
	}
	return fixture.Func{}, fmt.Errorf("unsupported signature %s", m.Type())
}
