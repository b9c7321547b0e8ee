package discovery

import (
	"strings"

	"github.com/abdul-hamid-achik/end2/packages/core/catalog"
	"github.com/abdul-hamid-achik/end2/packages/core/matcher"
	"github.com/abdul-hamid-achik/end2/packages/core/parser"
)

// FromSelectors turns literal selectors into targets and ignored paths.
func FromSelectors(selectors []string) ([]Target, []string) {
	importables, ignored := parser.ParseSuitePaths(selectors)
	targets := make([]Target, 0, len(importables))
	for _, imp := range importables {
		targets = append(targets, Target{Path: imp.Path, Tests: matcher.Tests(imp.Tests)})
	}
	return targets, ignored
}

// FromGlobs expands "moduleGlob[::testGlob]" patterns over the catalog.
func FromGlobs(cat *catalog.Catalog, patterns []string) ([]Target, []string) {
	return expand(cat, patterns, matcher.GlobModules, func(p string) matcher.Matcher {
		return matcher.GlobTests(p)
	})
}

// FromRegexes expands "moduleRegex[::testRegex]" patterns over the catalog.
func FromRegexes(cat *catalog.Catalog, patterns []string) ([]Target, []string) {
	return expand(cat, patterns, matcher.RegexModules, func(p string) matcher.Matcher {
		return matcher.RegexTests(p)
	})
}

func expand(
	cat *catalog.Catalog,
	patterns []string,
	modules func(string, []string) *matcher.Base,
	tests func(string) matcher.Matcher,
) ([]Target, []string) {
	paths := cat.Paths()
	var targets []Target
	var ignored []string
	for _, pattern := range patterns {
		modPattern, testPattern, _ := strings.Cut(pattern, parser.TestSeparator)
		m := modules(modPattern, paths)
		included := m.IncludedItems()
		if len(included) == 0 {
			ignored = append(ignored, m.ExcludedItems()...)
			continue
		}
		for _, path := range included {
			targets = append(targets, Target{Path: path, Tests: tests(testPattern)})
		}
	}
	return targets, ignored
}

// FromTags turns "path/tag1,tag2" selectors into targets. A selector
// without a path applies to the whole catalog.
func FromTags(selectors []string) []Target {
	targets := make([]Target, 0, len(selectors))
	for _, s := range selectors {
		path, tags := matcher.ParseTags(s)
		targets = append(targets, Target{Path: path, Tags: tags})
	}
	return targets
}
