package matcher

import (
	"regexp"
)

// RegexModules selects every catalog path the pattern matches from its
// start. An invalid pattern selects nothing.
func RegexModules(pattern string, paths []string) *Base {
	body, include := split(pattern)
	re, err := compile(body)
	if err != nil {
		return None(pattern)
	}
	var items []string
	for _, p := range paths {
		if re.MatchString(p) {
			items = append(items, p)
		}
	}
	if len(items) == 0 {
		return None(pattern)
	}
	return NewBase(items, pattern, include)
}

// Regex matches test names against a compiled expression.
type Regex struct {
	pattern string
	re      *regexp.Regexp
	include bool
	invalid bool
}

// RegexTests compiles a test-name expression. An invalid expression
// excludes every test.
func RegexTests(pattern string) *Regex {
	body, include := split(pattern)
	if body == "" {
		return &Regex{pattern: pattern, include: true}
	}
	re, err := compile(body)
	if err != nil {
		return &Regex{pattern: pattern, invalid: true}
	}
	return &Regex{pattern: pattern, re: re, include: include}
}

func (r *Regex) Included(name string) bool {
	if r.invalid {
		return false
	}
	if r.re == nil {
		return true
	}
	return r.re.MatchString(name) == r.include
}

func (r *Regex) Excluded(name string) bool {
	return !r.Included(name)
}

func (r *Regex) String() string {
	return "regex: " + r.pattern
}

func compile(body string) (*regexp.Regexp, error) {
	return regexp.Compile(`^(?:` + body + `)`)
}
