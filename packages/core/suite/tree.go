package suite

import (
	"iter"
	"slices"
	"strings"

	"github.com/abdul-hamid-achik/end2/packages/core/fixture"
)

// TestPackage is a package node. Its fixtures run once around everything
// below it; its modules are split into the sequential and parallel buckets.
type TestPackage struct {
	Path       string
	Setup      fixture.Func
	Teardown   fixture.Func
	Sequential []*TestModule
	Parallel   []*TestModule
	Children   []*TestPackage
}

// NewPackage returns a package node without fixtures.
func NewPackage(path string) *TestPackage {
	return &TestPackage{
		Path:     path,
		Setup:    fixture.Empty("setup_package"),
		Teardown: fixture.Empty("teardown_package"),
	}
}

// Add files m under its run mode bucket, replacing a module already
// selected at the same path.
func (p *TestPackage) Add(m *TestModule) {
	p.remove(m.Path)
	if m.RunMode.Concurrent() {
		p.Parallel = append(p.Parallel, m)
	} else {
		p.Sequential = append(p.Sequential, m)
	}
}

func (p *TestPackage) remove(path string) {
	match := func(m *TestModule) bool { return m.Path == path }
	p.Sequential = slices.DeleteFunc(p.Sequential, match)
	p.Parallel = slices.DeleteFunc(p.Parallel, match)
}

// Child returns the direct child at path, creating it when absent.
func (p *TestPackage) Child(path string) *TestPackage {
	for _, c := range p.Children {
		if c.Path == path {
			return c
		}
	}
	c := NewPackage(path)
	p.Children = append(p.Children, c)
	slices.SortFunc(p.Children, func(a, b *TestPackage) int { return strings.Compare(a.Path, b.Path) })
	return c
}

// Merge folds other, a node at the same path, into p. Fixtures already on p
// are kept; modules and children are merged recursively.
func (p *TestPackage) Merge(other *TestPackage) {
	if p.Setup.IsEmpty() {
		p.Setup = other.Setup
	}
	if p.Teardown.IsEmpty() {
		p.Teardown = other.Teardown
	}
	for _, m := range other.Sequential {
		p.Add(m)
	}
	for _, m := range other.Parallel {
		p.Add(m)
	}
	for _, oc := range other.Children {
		p.Child(oc.Path).Merge(oc)
	}
}

// Modules yields every module below p, depth first.
func (p *TestPackage) Modules() iter.Seq[*TestModule] {
	return func(yield func(*TestModule) bool) {
		p.walk(yield)
	}
}

func (p *TestPackage) walk(yield func(*TestModule) bool) bool {
	for _, m := range p.Sequential {
		if !yield(m) {
			return false
		}
	}
	for _, m := range p.Parallel {
		if !yield(m) {
			return false
		}
	}
	for _, c := range p.Children {
		if !c.walk(yield) {
			return false
		}
	}
	return true
}

// Empty reports whether no module sits below p.
func (p *TestPackage) Empty() bool {
	for range p.Modules() {
		return false
	}
	return true
}

// Prune drops child packages with no modules below them.
func (p *TestPackage) Prune() {
	p.Children = slices.DeleteFunc(p.Children, func(c *TestPackage) bool {
		c.Prune()
		return c.Empty()
	})
}

// Tree is the discovered suite rooted at the unnamed top package.
type Tree struct {
	Root *TestPackage
	// Seed is the shuffle seed discovery used.
	Seed int64
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{Root: NewPackage("")}
}

// Package returns the node at path, creating the chain down to it. Each
// created node extends its parent.
func (t *Tree) Package(path string) *TestPackage {
	node := t.Root
	if path == "" {
		return node
	}
	segments := strings.Split(path, ".")
	for i := range segments {
		node = node.Child(strings.Join(segments[:i+1], "."))
	}
	return node
}

// Lookup returns the node at path or nil.
func (t *Tree) Lookup(path string) *TestPackage {
	node := t.Root
	if path == "" {
		return node
	}
	segments := strings.Split(path, ".")
	for i := range segments {
		want := strings.Join(segments[:i+1], ".")
		var next *TestPackage
		for _, c := range node.Children {
			if c.Path == want {
				next = c
				break
			}
		}
		if next == nil {
			return nil
		}
		node = next
	}
	return node
}

// Merge folds other into t at their deepest common package prefix.
func (t *Tree) Merge(other *Tree) {
	t.Root.Merge(other.Root)
}

// Modules yields every module in the tree.
func (t *Tree) Modules() iter.Seq[*TestModule] {
	return t.Root.Modules()
}

// Count is the number of tests in the tree.
func (t *Tree) Count() int {
	n := 0
	for m := range t.Modules() {
		n += m.Count()
	}
	return n
}
