package discovery

import (
	"errors"
	"sort"
	"testing"

	"github.com/abdul-hamid-achik/end2/packages/core/catalog"
	"github.com/abdul-hamid-achik/end2/packages/core/fixture"
	"github.com/abdul-hamid-achik/end2/packages/core/matcher"
	"github.com/abdul-hamid-achik/end2/packages/core/scope"
	"github.com/abdul-hamid-achik/end2/packages/core/suite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type runMod struct{}

func (runMod) TestA(*fixture.T) error { return nil }
func (runMod) TestB(*fixture.T) error { return nil }
func (runMod) TestC(*fixture.T) error { return nil }
func (runMod) TestD(*fixture.T) error { return nil }

type skipMod struct{}

func (skipMod) TestSkipped(*fixture.T) error { return nil }

type parallelMod struct{}

func (parallelMod) RunMode() suite.RunMode { return suite.Parallel }
func (parallelMod) Tags() []string         { return []string{"api"} }
func (parallelMod) TestFast(*fixture.T) error {
	return nil
}
func (parallelMod) TestSlow(*fixture.T) error { return nil }
func (parallelMod) Metadata() map[string]suite.Meta {
	return map[string]suite.Meta{"TestSlow": {Tags: []string{"slow"}}}
}

type paramMod struct{}

func (paramMod) TestP(*fixture.T) error     { return nil }
func (paramMod) TestEmpty(*fixture.T) error { return nil }
func (paramMod) Metadata() map[string]suite.Meta {
	return map[string]suite.Meta{
		"TestP":     {Params: [][]any{{1}, {2}, {3}, {4}, {5}}},
		"TestEmpty": {Params: [][]any{}},
	}
}

type badMode struct{}

func (badMode) RunMode() suite.RunMode { return suite.RunMode(42) }
func (badMode) TestX(*fixture.T) error { return nil }

type pkgFixtures struct{}

func (pkgFixtures) Setup(*scope.Frame) error    { return nil }
func (pkgFixtures) Teardown(*scope.Frame) error { return nil }

type brokenFixtures struct{}

func (brokenFixtures) Setup(int) error { return nil }

func newCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c := catalog.New()
	require.NoError(t, c.RegisterPackage("pkg", pkgFixtures{}))
	require.NoError(t, c.Register("pkg.run_mod", catalog.Value(runMod{})))
	require.NoError(t, c.Register("pkg.skip_mod", catalog.Value(skipMod{})))
	require.NoError(t, c.Register("pkg.sub.parallel_mod", catalog.Value(parallelMod{})))
	require.NoError(t, c.Register("pkg.sub.param_mod", catalog.Value(paramMod{})))
	require.NoError(t, c.Register("broken.load", func() (any, error) { return nil, errors.New("no database") }))
	require.NoError(t, c.Register("broken.mode", catalog.Value(badMode{})))
	require.NoError(t, c.RegisterPackage("bad", brokenFixtures{}))
	require.NoError(t, c.Register("bad.mod", catalog.Value(runMod{})))
	return c
}

func modulePaths(tree *suite.Tree) []string {
	var out []string
	for m := range tree.Modules() {
		out = append(out, m.Path)
	}
	sort.Strings(out)
	return out
}

func testNames(m *suite.TestModule) []string {
	var out []string
	for _, tc := range m.Root.All() {
		out = append(out, tc.Name)
	}
	sort.Strings(out)
	return out
}

func TestDiscoverSuite_IgnoredSiblingAndFilter(t *testing.T) {
	targets, ignored := FromSelectors([]string{"pkg.!skip_mod;run_mod::TestA,TestB"})
	tree, failed := DiscoverSuite(newCatalog(t), targets, ignored, Options{Seed: 1})

	assert.Empty(t, failed)
	assert.Equal(t, []string{"pkg.run_mod"}, modulePaths(tree))

	pkg := tree.Lookup("pkg")
	require.NotNil(t, pkg)
	require.Len(t, pkg.Sequential, 1)
	assert.Equal(t, []string{"TestA", "TestB"}, testNames(pkg.Sequential[0]))
	assert.False(t, pkg.Setup.IsEmpty())
}

func TestDiscoverSuite_PackageWalkHonoursIgnore(t *testing.T) {
	targets, ignored := FromSelectors([]string{"pkg.!skip_mod"})
	tree, failed := DiscoverSuite(newCatalog(t), targets, ignored, Options{Seed: 1})

	assert.Empty(t, failed)
	assert.Equal(t, []string{"pkg.run_mod", "pkg.sub.param_mod", "pkg.sub.parallel_mod"}, modulePaths(tree))

	sub := tree.Lookup("pkg.sub")
	require.NotNil(t, sub)
	assert.Len(t, sub.Parallel, 1)
	assert.Len(t, sub.Sequential, 1)
}

func TestDiscoverSuite_FailedImports(t *testing.T) {
	targets, ignored := FromSelectors([]string{"nope.mod", "broken.load", "broken.mode", "bad.mod", "pkg.run_mod"})
	tree, failed := DiscoverSuite(newCatalog(t), targets, ignored, Options{Seed: 1})

	require.Len(t, failed, 4)
	assert.Equal(t, "Module doesn't exist - nope.mod", failed[0])
	assert.Equal(t, "Failed to load broken.load - no database", failed[1])
	assert.Equal(t, "Failed to load broken.mode - RunMode(42) is not a valid RunMode", failed[2])
	assert.Contains(t, failed[3], "Failed to load bad - ")
	assert.Equal(t, []string{"pkg.run_mod"}, modulePaths(tree))
}

func TestDiscoverSuite_ParameterSlices(t *testing.T) {
	targets, ignored := FromSelectors([]string{"pkg.sub.param_mod::TestP[1:3],TestEmpty"})
	tree, failed := DiscoverSuite(newCatalog(t), targets, ignored, Options{Seed: 1})

	require.Empty(t, failed)
	sub := tree.Lookup("pkg.sub")
	require.NotNil(t, sub)
	require.Len(t, sub.Sequential, 1)

	tests := sub.Sequential[0].Root.All()
	require.Len(t, tests, 1, "empty parameter lists are dropped")
	assert.Equal(t, "TestP", tests[0].Name)
	assert.Len(t, tests[0].Variants(), 2)
}

func TestDiscoverSuite_WholeRangeWithoutSlice(t *testing.T) {
	targets, ignored := FromSelectors([]string{"pkg.sub.param_mod::TestP"})
	tree, _ := DiscoverSuite(newCatalog(t), targets, ignored, Options{Seed: 1})

	tests := tree.Lookup("pkg.sub").Sequential[0].Root.All()
	require.Len(t, tests, 1)
	assert.Len(t, tests[0].Variants(), 5)
}

func TestDiscoverSuite_TagsCombineWithFilters(t *testing.T) {
	_, tags := matcher.ParseTags("slow")
	targets, ignored := FromSelectors([]string{"pkg.sub.parallel_mod::TestFast,TestSlow"})
	tree, _ := DiscoverSuite(newCatalog(t), targets, ignored, Options{Seed: 1, Tags: tags})

	sub := tree.Lookup("pkg.sub")
	require.NotNil(t, sub)
	require.Len(t, sub.Parallel, 1)
	assert.Equal(t, []string{"TestSlow"}, testNames(sub.Parallel[0]))
}

func TestDiscoverSuite_TagTargets(t *testing.T) {
	tree, failed := DiscoverSuite(newCatalog(t), FromTags([]string{"pkg/api"}), nil, Options{Seed: 1})

	assert.Empty(t, failed)
	assert.Equal(t, []string{"pkg.sub.parallel_mod"}, modulePaths(tree))
}

func TestDiscoverSuite_GlobAndRegex(t *testing.T) {
	c := newCatalog(t)

	targets, ignored := FromGlobs(c, []string{"pkg.sub.*::Test*"})
	tree, _ := DiscoverSuite(c, targets, ignored, Options{Seed: 1})
	assert.Equal(t, []string{"pkg.sub.param_mod", "pkg.sub.parallel_mod"}, modulePaths(tree))

	targets, ignored = FromRegexes(c, []string{`pkg\.run_.*::Test[AB]`})
	tree, _ = DiscoverSuite(c, targets, ignored, Options{Seed: 1})
	require.Equal(t, []string{"pkg.run_mod"}, modulePaths(tree))
	assert.Equal(t, []string{"TestA", "TestB"}, testNames(tree.Lookup("pkg").Sequential[0]))

	targets, _ = FromRegexes(c, []string{`pkg[`})
	assert.Empty(t, targets)
}

func TestDiscoverSuite_SeedIsDeterministic(t *testing.T) {
	order := func() []string {
		targets, ignored := FromSelectors([]string{"pkg.run_mod"})
		tree, _ := DiscoverSuite(newCatalog(t), targets, ignored, Options{Seed: 42})
		var names []string
		for _, tc := range tree.Lookup("pkg").Sequential[0].Root.Tests {
			names = append(names, tc.Name)
		}
		return names
	}
	first := order()
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, order())
	}
}

func TestDiscoverSuite_ZeroSeedIsRecorded(t *testing.T) {
	targets, ignored := FromSelectors([]string{"pkg.run_mod"})
	tree, _ := DiscoverSuite(newCatalog(t), targets, ignored, Options{})
	assert.NotZero(t, tree.Seed)
}
