// Package matcher provides the include/exclude predicates used to select
// modules and tests during discovery.
package matcher

import (
	"fmt"
	"slices"
	"strings"
)

// Excluder prefixes a pattern that excludes what it names.
const Excluder = "!"

// Matcher answers whether a module path or test name is selected.
type Matcher interface {
	Included(item string) bool
	Excluded(item string) bool
}

// Slicer is implemented by test matchers that carry parameter slice
// expressions per test name.
type Slicer interface {
	Slice(name string) string
}

// Base is a fixed item set in include or exclude mode. An empty set
// includes everything.
type Base struct {
	items   []string
	set     map[string]struct{}
	pattern string
	include bool
	none    bool
}

// NewBase builds a Base over items.
func NewBase(items []string, pattern string, include bool) *Base {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return &Base{items: items, set: set, pattern: pattern, include: include}
}

// None returns a matcher that excludes everything. Discovery falls back to
// it when a pattern cannot be parsed.
func None(pattern string) *Base {
	return &Base{pattern: pattern, include: true, none: true}
}

func (b *Base) Included(item string) bool {
	if b.none {
		return false
	}
	if len(b.set) == 0 {
		return true
	}
	_, ok := b.set[item]
	return ok == b.include
}

func (b *Base) Excluded(item string) bool {
	return !b.Included(item)
}

// Include reports the mode of the item set.
func (b *Base) Include() bool {
	return b.include
}

// Pattern is the source pattern.
func (b *Base) Pattern() string {
	return b.pattern
}

// IncludedItems is the item set in include mode, otherwise empty.
func (b *Base) IncludedItems() []string {
	if !b.include || b.none {
		return nil
	}
	return slices.Clone(b.items)
}

// ExcludedItems is the item set in exclude mode, otherwise empty.
func (b *Base) ExcludedItems() []string {
	if b.include {
		return nil
	}
	return slices.Clone(b.items)
}

func (b *Base) String() string {
	mode := "include"
	if !b.include {
		mode = "exclude"
	}
	if b.none {
		return fmt.Sprintf("none: %q", b.pattern)
	}
	return fmt.Sprintf("%s: [%s]", mode, strings.Join(b.items, " "))
}

// split strips a leading excluder and reports the resulting mode.
func split(pattern string) (string, bool) {
	if strings.HasPrefix(pattern, Excluder) {
		return pattern[len(Excluder):], false
	}
	return pattern, true
}
