package suite

import (
	"context"
	"testing"

	"github.com/abdul-hamid-achik/end2/packages/core/fixture"
	"github.com/abdul-hamid-achik/end2/packages/core/parser"
	"github.com/abdul-hamid-achik/end2/packages/core/scope"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loginModule struct{}

func (loginModule) RunMode() RunMode                            { return ParallelTest }
func (loginModule) Tags() []string                              { return []string{"smoke"} }
func (loginModule) Description() string                         { return "login flows" }
func (loginModule) Setup(*fixture.T) error                      { return nil }
func (loginModule) SetupTest(*fixture.T) error                  { return nil }
func (loginModule) TestOK(*fixture.T) error                     { return nil }
func (loginModule) TestAsync(context.Context, *fixture.T) error { return nil }
func (loginModule) TestParams(*fixture.T) error                 { return nil }
func (loginModule) Metadata() map[string]Meta {
	return map[string]Meta{
		"TestParams": {Tags: []string{"slow"}, Description: "per user", Params: [][]any{{"a"}, {"b"}, {"c"}}},
	}
}
func (loginModule) Groups() map[string]any {
	return map[string]any{"admin": adminGroup{}}
}

type adminGroup struct{}

func (adminGroup) Setup(*fixture.T) error      { return nil }
func (adminGroup) TestGrant(*fixture.T) error  { return nil }
func (adminGroup) TestRevoke(*fixture.T) error { return nil }

type badRunMode struct{}

func (badRunMode) RunMode() RunMode { return RunMode(9) }

type twoSetups struct{}

func (twoSetups) Setup(*fixture.T) error       { return nil }
func (twoSetups) SetupModule(*fixture.T) error { return nil }

type badSignature struct{}

func (badSignature) TestWrong(int) error { return nil }

func TestInspect(t *testing.T) {
	m, err := Inspect("suites.login", loginModule{})
	require.NoError(t, err)

	assert.Equal(t, ParallelTest, m.RunMode)
	assert.Equal(t, []string{"smoke"}, m.Tags)
	assert.Equal(t, "login flows", m.Description)
	assert.Equal(t, 5, m.Count())

	root := m.Root
	assert.False(t, root.Setup.IsEmpty())
	assert.True(t, root.Teardown.IsEmpty())
	require.Len(t, root.Tests, 3)

	byName := map[string]*TestCase{}
	for _, tc := range root.Tests {
		byName[tc.Name] = tc
	}
	assert.True(t, byName["TestAsync"].Func.Coroutine)
	assert.False(t, byName["TestOK"].Func.Coroutine)
	assert.Equal(t, "suites.login::TestOK", byName["TestOK"].FullName())

	params := byName["TestParams"]
	assert.True(t, params.Parameterized)
	assert.Equal(t, []string{"slow"}, params.Tags)
	assert.Equal(t, "per user", params.Description)

	require.Len(t, root.Groups, 1)
	admin := root.Groups[0]
	assert.Equal(t, "admin", admin.Name)
	assert.Len(t, admin.Tests, 2)
	assert.False(t, admin.SetupTest.IsEmpty(), "nested group inherits the per-test setup")
}

func TestInspect_Errors(t *testing.T) {
	_, err := Inspect("bad.mode", badRunMode{})
	assert.EqualError(t, err, "RunMode(9) is not a valid RunMode")

	_, err = Inspect("two.setups", twoSetups{})
	assert.EqualError(t, err, "More than 1 setup in two.setups")

	_, err = Inspect("bad.sig", badSignature{})
	assert.ErrorContains(t, err, "unsupported signature")

	_, err = Inspect("nil", nil)
	assert.Error(t, err)
}

type pkgFixtures struct{}

func (pkgFixtures) Setup(f *scope.Frame) error                   { return f.Set("token", "abc") }
func (pkgFixtures) Teardown(context.Context, *scope.Frame) error { return nil }

func TestInspectPackage(t *testing.T) {
	setup, teardown, err := InspectPackage("suites", pkgFixtures{})
	require.NoError(t, err)
	assert.False(t, setup.Coroutine)
	assert.True(t, teardown.Coroutine)

	frame := scope.NewRoot("suites")
	res, err := fixture.Invoke(context.Background(), setup, fixture.NewT(context.Background(), "setup", nil, frame, nil))
	require.NoError(t, err)
	assert.Equal(t, "Passed", res.Status.String())
	assert.Equal(t, "abc", frame.MustGet("token"))

	setup, teardown, err = InspectPackage("empty", nil)
	require.NoError(t, err)
	assert.True(t, setup.IsEmpty())
	assert.True(t, teardown.IsEmpty())
}

func TestTestCase_Variants(t *testing.T) {
	tc := &TestCase{
		Name:          "TestP",
		Parameterized: true,
		Params:        [][]any{{1}, {2}, {3}, {4}},
		Range:         parser.ParseRange("TestP[-1:]", 4),
	}
	variants := tc.Variants()
	require.Len(t, variants, 5)
	assert.Equal(t, Variant{Index: -1, Params: []any{4}}, variants[0])
	assert.Equal(t, Variant{Index: 3, Params: []any{4}}, variants[4])
	assert.Equal(t, "TestP[-1]", tc.VariantName(variants[0].Index))

	tc.Range = parser.Range{Start: 2, Stop: 10, Step: 1}
	assert.Len(t, tc.Variants(), 2)

	assert.Nil(t, (&TestCase{Name: "plain"}).Variants())
}

func TestTestGroup_Filter(t *testing.T) {
	m, err := Inspect("suites.login", loginModule{})
	require.NoError(t, err)

	m.Root.Filter(func(tc *TestCase) bool { return tc.Name == "TestOK" })
	assert.Equal(t, 1, m.Count())
	assert.Empty(t, m.Root.Groups)
}

func TestParseRunMode(t *testing.T) {
	mode, err := ParseRunMode("parallel_test")
	require.NoError(t, err)
	assert.Equal(t, ParallelTest, mode)

	_, err = ParseRunMode("sideways")
	assert.EqualError(t, err, "sideways is not a valid RunMode")
	assert.True(t, Parallel.Concurrent())
	assert.False(t, Sequential.Concurrent())
}

func TestTree_MergeAtCommonPrefix(t *testing.T) {
	a := NewTree()
	a.Package("suites.api").Add(&TestModule{Path: "suites.api.users", Root: &TestGroup{}})

	b := NewTree()
	b.Package("suites.api").Add(&TestModule{Path: "suites.api.orders", RunMode: Parallel, Root: &TestGroup{}})
	b.Package("suites.ui").Add(&TestModule{Path: "suites.ui.login", Root: &TestGroup{}})

	a.Merge(b)

	api := a.Lookup("suites.api")
	require.NotNil(t, api)
	assert.Len(t, api.Sequential, 1)
	assert.Len(t, api.Parallel, 1)
	require.NotNil(t, a.Lookup("suites.ui"))
	assert.Len(t, a.Lookup("suites").Children, 2)
	assert.Nil(t, a.Lookup("suites.missing"))

	var paths []string
	for m := range a.Modules() {
		paths = append(paths, m.Path)
	}
	assert.ElementsMatch(t, []string{"suites.api.users", "suites.api.orders", "suites.ui.login"}, paths)
}

func TestTestPackage_AddReplaces(t *testing.T) {
	p := NewPackage("suites")
	p.Add(&TestModule{Path: "suites.a", Root: &TestGroup{}})
	p.Add(&TestModule{Path: "suites.a", RunMode: Parallel, Root: &TestGroup{}})

	assert.Empty(t, p.Sequential)
	assert.Len(t, p.Parallel, 1)
}

func TestTestPackage_Prune(t *testing.T) {
	tree := NewTree()
	tree.Package("a.b.c")
	tree.Package("a.d").Add(&TestModule{Path: "a.d.m", Root: &TestGroup{}})

	tree.Root.Prune()
	assert.Nil(t, tree.Lookup("a.b"))
	assert.NotNil(t, tree.Lookup("a.d"))
}
