// Package parser turns suite selector strings into importable module paths
// with their test filters, and resolves parameter slice expressions.
//
// Selector grammar:
//
//	path.to.module[;altModule]*[::test1[,test2...]]
//
// A path or module segment prefixed with '!' is ignored together with
// everything under it. A '!' on the first test of a filter negates the
// whole list. Segments joined with ';' after a package prefix are siblings
// sharing that prefix.
package parser

import (
	"strings"
)

const (
	// Excluder marks an ignored segment or a negated test list.
	Excluder = "!"
	// ModuleDelimiter separates sibling modules.
	ModuleDelimiter = ";"
	// TestDelimiter separates tests in a filter.
	TestDelimiter = ","
	// TestSeparator introduces the test filter of a module.
	TestSeparator = "::"
	// PathSeparator separates package segments.
	PathSeparator = "."
)

// Importable is a module path to discover and the test filters bound to it.
type Importable struct {
	Path  string
	Tests []string
}

// ParseSuitePaths parses every selector and returns the importables and the
// ignored paths in input order.
func ParseSuitePaths(selectors []string) ([]Importable, []string) {
	var importables []Importable
	var ignored []string
	for _, s := range selectors {
		imp, ign := ParseSelector(s)
		importables = append(importables, imp...)
		ignored = append(ignored, ign...)
	}
	return importables, ignored
}

// ParseSelector parses one selector. A selector without special syntax is a
// single importable with no filters. An ignore segment registers its prefix
// as an importable only when the prefix is non-empty and no sibling was
// selected explicitly.
func ParseSelector(selector string) ([]Importable, []string) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return nil, nil
	}

	segments := strings.Split(selector, PathSeparator)
	at := -1
	for i, seg := range segments {
		if strings.HasPrefix(seg, Excluder) || strings.Contains(seg, ModuleDelimiter) || strings.Contains(seg, TestSeparator) {
			at = i
			break
		}
	}
	if at < 0 {
		return []Importable{{Path: selector}}, nil
	}

	prefix := segments[:at]
	rest := strings.Join(segments[at:], PathSeparator)

	var importables []Importable
	var ignored []string
	for _, sibling := range strings.Split(rest, ModuleDelimiter) {
		if sibling == "" {
			continue
		}
		module, tests, _ := strings.Cut(sibling, TestSeparator)

		if strings.HasPrefix(module, Excluder) {
			ignored = append(ignored, join(prefix, strings.TrimPrefix(module, Excluder)))
			continue
		}
		if strings.Contains(module, PathSeparator+Excluder) {
			imp, ign := ParseSelector(join(prefix, sibling))
			importables = append(importables, imp...)
			ignored = append(ignored, ign...)
			continue
		}
		importables = append(importables, Importable{
			Path:  join(prefix, module),
			Tests: SplitTests(tests),
		})
	}

	if len(importables) == 0 && len(ignored) > 0 && len(prefix) > 0 {
		importables = append(importables, Importable{Path: strings.Join(prefix, PathSeparator)})
	}
	return importables, ignored
}

// SplitTests splits a test filter. Once the list is negated, every element
// carries the excluder.
func SplitTests(tests string) []string {
	if tests == "" {
		return nil
	}
	items := strings.Split(tests, TestDelimiter)
	if !strings.HasPrefix(tests, Excluder) {
		return items
	}
	for i, item := range items {
		if !strings.HasPrefix(item, Excluder) {
			items[i] = Excluder + item
		}
	}
	return items
}

func join(prefix []string, name string) string {
	if len(prefix) == 0 {
		return name
	}
	return strings.Join(prefix, PathSeparator) + PathSeparator + name
}
