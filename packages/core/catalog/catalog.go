// Package catalog is the namespace test modules are discovered from. Test
// packages register their modules and package fixtures from init, the way
// database/sql drivers register themselves, under dotted paths such as
// "suites.api.users".
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Separator joins path segments.
const Separator = "."

var (
	// ErrNotExist is returned when nothing is registered at a path.
	ErrNotExist = errors.New("path does not exist")
	// ErrNotModule is returned when loading a package path.
	ErrNotModule = errors.New("path is a package")
	// ErrConflict is returned when a registration clashes with an existing one.
	ErrConflict = errors.New("path already registered")
)

// Kind is what a path resolves to.
type Kind int

const (
	Missing Kind = iota
	Package
	Module
)

func (k Kind) String() string {
	switch k {
	case Package:
		return "package"
	case Module:
		return "module"
	default:
		return "missing"
	}
}

// Loader constructs a module value. A loader error is a failed import.
type Loader func() (any, error)

// Value wraps an already built module value.
func Value(v any) Loader {
	return func() (any, error) { return v, nil }
}

type node struct {
	path     string
	kind     Kind
	fixtures any
	loader   Loader
	children map[string]*node
}

// Catalog is a tree of packages and modules.
type Catalog struct {
	mu   sync.RWMutex
	root *node
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{root: &node{kind: Package, children: map[string]*node{}}}
}

// Default is the catalog package-level registrations go to.
var Default = New()

// Register adds a module to the Default catalog. It panics on conflict.
func Register(path string, loader Loader) {
	if err := Default.Register(path, loader); err != nil {
		panic(err)
	}
}

// RegisterPackage attaches package fixtures to a path of the Default
// catalog. It panics on conflict.
func RegisterPackage(path string, fixtures any) {
	if err := Default.RegisterPackage(path, fixtures); err != nil {
		panic(err)
	}
}

// Register adds a module at path. Missing intermediate segments become
// packages without fixtures.
func (c *Catalog) Register(path string, loader Loader) error {
	if loader == nil {
		return fmt.Errorf("register %s: nil loader", path)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	n, err := c.ensure(path)
	if err != nil {
		return err
	}
	if n.kind == Module || len(n.children) > 0 || n.fixtures != nil {
		return fmt.Errorf("register %s: %w", path, ErrConflict)
	}
	n.kind = Module
	n.loader = loader
	return nil
}

// RegisterPackage attaches package fixtures at path.
func (c *Catalog) RegisterPackage(path string, fixtures any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, err := c.ensure(path)
	if err != nil {
		return err
	}
	if n.kind == Module || n.fixtures != nil {
		return fmt.Errorf("register package %s: %w", path, ErrConflict)
	}
	n.fixtures = fixtures
	return nil
}

func (c *Catalog) ensure(path string) (*node, error) {
	if path == "" {
		return c.root, nil
	}
	cur := c.root
	for _, seg := range strings.Split(path, Separator) {
		if seg == "" {
			return nil, fmt.Errorf("invalid path %q", path)
		}
		if cur.kind == Module {
			return nil, fmt.Errorf("%s is a module: %w", cur.path, ErrConflict)
		}
		next, ok := cur.children[seg]
		if !ok {
			next = &node{
				path:     join(cur.path, seg),
				kind:     Package,
				children: map[string]*node{},
			}
			cur.children[seg] = next
		}
		cur = next
	}
	return cur, nil
}

func (c *Catalog) lookup(path string) *node {
	if path == "" {
		return c.root
	}
	cur := c.root
	for _, seg := range strings.Split(path, Separator) {
		next, ok := cur.children[seg]
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}

// Stat reports what path resolves to.
func (c *Catalog) Stat(path string) Kind {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if n := c.lookup(path); n != nil {
		return n.kind
	}
	return Missing
}

// Children lists the full paths directly under a package, sorted.
func (c *Catalog) Children(path string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := c.lookup(path)
	if n == nil || n.kind != Package {
		return nil
	}
	out := make([]string, 0, len(n.children))
	for _, child := range n.children {
		out = append(out, child.path)
	}
	sort.Strings(out)
	return out
}

// Fixtures returns the package fixtures registered at path, or nil.
func (c *Catalog) Fixtures(path string) any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if n := c.lookup(path); n != nil && n.kind == Package {
		return n.fixtures
	}
	return nil
}

// Load builds the module at path. A panicking loader is reported as a load
// error.
func (c *Catalog) Load(path string) (v any, err error) {
	c.mu.RLock()
	n := c.lookup(path)
	c.mu.RUnlock()

	switch {
	case n == nil || n.kind == Missing:
		return nil, fmt.Errorf("%s: %w", path, ErrNotExist)
	case n.kind == Package:
		return nil, fmt.Errorf("%s: %w", path, ErrNotModule)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("loader panicked: %v", r)
		}
	}()
	return n.loader()
}

// Paths lists every module path, sorted.
func (c *Catalog) Paths() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []string
	var walk func(*node)
	walk = func(n *node) {
		if n.kind == Module {
			out = append(out, n.path)
			return
		}
		for _, child := range n.children {
			walk(child)
		}
	}
	walk(c.root)
	sort.Strings(out)
	return out
}

// Parent returns the package path containing path, "" for top-level paths.
func Parent(path string) string {
	if i := strings.LastIndex(path, Separator); i >= 0 {
		return path[:i]
	}
	return ""
}

// Base returns the last segment of path.
func Base(path string) string {
	return path[strings.LastIndex(path, Separator)+1:]
}

func join(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + Separator + name
}
