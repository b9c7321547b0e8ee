// Package discovery resolves selections against a catalog into the suite
// tree the runner executes.
package discovery

import (
	"fmt"
	"io"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/end2/packages/core/catalog"
	"github.com/abdul-hamid-achik/end2/packages/core/matcher"
	"github.com/abdul-hamid-achik/end2/packages/core/parser"
	"github.com/abdul-hamid-achik/end2/packages/core/suite"
	"github.com/charmbracelet/log"
)

// Target is one path to discover and the matchers bound to it.
type Target struct {
	Path  string
	Tests matcher.Matcher
	Tags  *matcher.Tag
}

// Options tunes a discovery pass.
type Options struct {
	// Seed pins the shuffle order. Zero picks a fresh seed.
	Seed int64
	// Tags filters every target in addition to its own matchers.
	Tags   *matcher.Tag
	Logger *log.Logger
}

type discoverer struct {
	cat      *catalog.Catalog
	ignored  []string
	opts     Options
	tree     *suite.Tree
	rng      *rand.Rand
	failed   []string
	packages map[string]bool
}

// DiscoverSuite resolves targets into a tree. Missing or broken modules do
// not stop the pass; each becomes one entry of the returned failed imports.
// Module and test order is shuffled with the tree's seed.
func DiscoverSuite(cat *catalog.Catalog, targets []Target, ignored []string, opts Options) (*suite.Tree, []string) {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}

	d := &discoverer{
		cat:      cat,
		ignored:  ignored,
		opts:     opts,
		tree:     suite.NewTree(),
		rng:      rand.New(rand.NewPCG(uint64(opts.Seed), uint64(opts.Seed>>1))),
		packages: map[string]bool{},
	}
	d.tree.Seed = opts.Seed

	for _, target := range targets {
		if d.isIgnored(target.Path) {
			opts.Logger.Debug("ignored", "path", target.Path)
			continue
		}
		switch cat.Stat(target.Path) {
		case catalog.Missing:
			d.fail(fmt.Sprintf("Module doesn't exist - %s", target.Path))
		case catalog.Package:
			d.walk(target.Path, target)
		case catalog.Module:
			d.module(target.Path, target)
		}
	}

	d.tree.Root.Prune()
	d.shuffle(d.tree.Root)
	return d.tree, d.failed
}

func (d *discoverer) fail(msg string) {
	d.opts.Logger.Error(msg)
	d.failed = append(d.failed, msg)
}

func (d *discoverer) isIgnored(path string) bool {
	for _, ig := range d.ignored {
		if path == ig || strings.HasPrefix(path, ig+catalog.Separator) {
			return true
		}
	}
	return false
}

func (d *discoverer) walk(path string, target Target) {
	for _, child := range d.cat.Children(path) {
		if d.isIgnored(child) {
			continue
		}
		switch d.cat.Stat(child) {
		case catalog.Package:
			d.walk(child, target)
		case catalog.Module:
			d.module(child, target)
		}
	}
}

func (d *discoverer) module(path string, target Target) {
	v, err := d.cat.Load(path)
	if err != nil {
		d.fail(fmt.Sprintf("Failed to load %s - %v", path, err))
		return
	}
	m, err := suite.Inspect(path, v)
	if err != nil {
		d.fail(fmt.Sprintf("Failed to load %s - %v", path, err))
		return
	}

	m.Root.Filter(func(tc *suite.TestCase) bool {
		return d.keep(m, tc, target)
	})
	if m.Count() == 0 {
		d.opts.Logger.Debug("no tests selected", "module", path)
		return
	}

	pkgPath := catalog.Parent(path)
	if !d.chain(pkgPath) {
		return
	}
	d.tree.Package(pkgPath).Add(m)
	d.opts.Logger.Debug("discovered", "module", path, "tests", m.Count(), "mode", m.RunMode)
}

func (d *discoverer) keep(m *suite.TestModule, tc *suite.TestCase, target Target) bool {
	if target.Tests != nil && !target.Tests.Included(tc.Name) {
		return false
	}
	if target.Tags != nil && !target.Tags.Matches(m.Tags, tc.Tags) {
		return false
	}
	if d.opts.Tags != nil && !d.opts.Tags.Matches(m.Tags, tc.Tags) {
		return false
	}
	if !tc.Parameterized {
		return true
	}
	expr := tc.Name
	if s, ok := target.Tests.(matcher.Slicer); ok {
		expr = s.Slice(tc.Name)
	}
	tc.Range = parser.ParseRange(expr, len(tc.Params))
	if len(tc.Variants()) == 0 {
		d.opts.Logger.Debug("empty parameter range", "test", tc.FullName(), "slice", expr)
		return false
	}
	return true
}

// chain loads the package fixtures from the root down to path once per
// package. A package whose fixtures cannot be resolved fails every module
// below it.
func (d *discoverer) chain(path string) bool {
	prefixes := []string{""}
	if path != "" {
		segments := strings.Split(path, catalog.Separator)
		for i := range segments {
			prefixes = append(prefixes, strings.Join(segments[:i+1], catalog.Separator))
		}
	}
	for _, prefix := range prefixes {
		ok, seen := d.packages[prefix]
		if seen {
			if !ok {
				return false
			}
			continue
		}
		setup, teardown, err := suite.InspectPackage(prefix, d.cat.Fixtures(prefix))
		if err != nil {
			d.packages[prefix] = false
			d.fail(fmt.Sprintf("Failed to load %s - %v", prefix, err))
			return false
		}
		d.packages[prefix] = true
		node := d.tree.Package(prefix)
		node.Setup, node.Teardown = setup, teardown
	}
	return true
}

func (d *discoverer) shuffle(p *suite.TestPackage) {
	d.rng.Shuffle(len(p.Sequential), func(i, j int) {
		p.Sequential[i], p.Sequential[j] = p.Sequential[j], p.Sequential[i]
	})
	d.rng.Shuffle(len(p.Parallel), func(i, j int) {
		p.Parallel[i], p.Parallel[j] = p.Parallel[j], p.Parallel[i]
	})
	for _, m := range p.Sequential {
		d.shuffleGroup(m.Root)
	}
	for _, m := range p.Parallel {
		d.shuffleGroup(m.Root)
	}
	for _, c := range p.Children {
		d.shuffle(c)
	}
}

func (d *discoverer) shuffleGroup(g *suite.TestGroup) {
	d.rng.Shuffle(len(g.Tests), func(i, j int) {
		g.Tests[i], g.Tests[j] = g.Tests[j], g.Tests[i]
	})
	for _, child := range g.Groups {
		d.shuffleGroup(child)
	}
}
