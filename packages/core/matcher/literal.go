package matcher

import (
	"strings"

	"github.com/abdul-hamid-achik/end2/packages/core/parser"
)

// Literal matches exact names. Test names may carry a slice expression,
// which is kept aside and served through Slice.
type Literal struct {
	*Base
	slices map[string]string
}

// ParseLiteral splits pattern on delimiter after stripping a leading
// excluder. An empty pattern includes everything.
func ParseLiteral(pattern, delimiter string) *Literal {
	body, include := split(pattern)
	var items []string
	if body != "" {
		items = strings.Split(body, delimiter)
	}
	return newLiteral(items, pattern, include)
}

// Tests builds a test matcher from a parsed filter list. The list is
// negated when its first element carries the excluder.
func Tests(filters []string) *Literal {
	if len(filters) == 0 {
		return newLiteral(nil, "", true)
	}
	include := !strings.HasPrefix(filters[0], Excluder)
	items := make([]string, 0, len(filters))
	for _, f := range filters {
		items = append(items, strings.TrimPrefix(f, Excluder))
	}
	return newLiteral(items, strings.Join(filters, parser.TestDelimiter), include)
}

func newLiteral(items []string, pattern string, include bool) *Literal {
	names := make([]string, 0, len(items))
	slices := make(map[string]string)
	for _, item := range items {
		name, expr := parser.SplitName(item)
		names = append(names, name)
		if expr != "" {
			slices[name] = item
		}
	}
	return &Literal{Base: NewBase(names, pattern, include), slices: slices}
}

// Slice returns the filter entry, slice expression included, for a test
// name, or the bare name when the filter does not slice it.
func (l *Literal) Slice(name string) string {
	if s, ok := l.slices[name]; ok && l.include {
		return s
	}
	return name
}
