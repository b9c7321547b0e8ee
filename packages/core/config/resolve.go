package config

import (
	"slices"
	"strings"
)

// ResolveSelectors expands suite aliases recursively and drops disabled
// entries at every level. It returns the resulting selectors, sorted and
// deduplicated, plus the disabled keys that are not aliases, which the
// caller adds to the ignore list so a broader selector cannot pull them
// back in.
func (c *Config) ResolveSelectors(selectors []string) (resolved, disabled []string) {
	seen := map[string]bool{}
	c.resolve(selectors, seen, map[string]bool{})
	for s := range seen {
		resolved = append(resolved, s)
	}
	slices.Sort(resolved)

	for key := range c.SuiteDisabled {
		if _, alias := c.SuiteAlias[key]; !alias {
			disabled = append(disabled, key)
		}
	}
	slices.Sort(disabled)
	return resolved, disabled
}

// resolve walks the alias graph. visiting guards against alias cycles.
func (c *Config) resolve(selectors []string, out, visiting map[string]bool) {
	for _, s := range selectors {
		if s == "" {
			continue
		}
		if _, off := c.SuiteDisabled[s]; off {
			continue
		}
		expansion, ok := c.SuiteAlias[s]
		if !ok {
			out[s] = true
			continue
		}
		if visiting[s] {
			continue
		}
		visiting[s] = true
		c.resolve(strings.Fields(expansion), out, visiting)
		delete(visiting, s)
	}
}
