package matcher

import (
	"github.com/tidwall/match"
)

// GlobModules expands a glob over the catalog's module paths. '*' and '?'
// follow tidwall/match semantics and cross path separators.
func GlobModules(pattern string, paths []string) *Base {
	body, include := split(pattern)
	var items []string
	for _, p := range paths {
		if match.Match(p, body) {
			items = append(items, p)
		}
	}
	if len(items) == 0 {
		return None(pattern)
	}
	return NewBase(items, pattern, include)
}

// Glob matches test names against a glob at query time.
type Glob struct {
	pattern string
	body    string
	include bool
}

// GlobTests compiles a test-name glob. An empty pattern includes everything.
func GlobTests(pattern string) *Glob {
	body, include := split(pattern)
	return &Glob{pattern: pattern, body: body, include: include}
}

func (g *Glob) Included(name string) bool {
	if g.body == "" {
		return true
	}
	return match.Match(name, g.body) == g.include
}

func (g *Glob) Excluded(name string) bool {
	return !g.Included(name)
}

func (g *Glob) String() string {
	return "glob: " + g.pattern
}
