package matcher

import (
	"strings"
)

// TagSeparator separates a path from its tag set in a tag selector:
// "pkg.sub/smoke,fast".
const TagSeparator = "/"

// Tag matches tag sets. In include mode a candidate passes when any of its
// tags is in the set; in exclude mode when none is.
type Tag struct {
	*Base
}

// ParseTags splits a tag selector into the path it applies to and its tag
// matcher. A selector without a separator is a bare tag list that applies to
// every module.
func ParseTags(selector string) (string, *Tag) {
	path, tags := "", selector
	if i := strings.LastIndex(selector, TagSeparator); i >= 0 {
		path, tags = selector[:i], selector[i+1:]
	}
	body, include := split(tags)
	var items []string
	for _, t := range strings.Split(body, ",") {
		if t = strings.TrimSpace(t); t != "" {
			items = append(items, t)
		}
	}
	return path, &Tag{Base: NewBase(items, tags, include)}
}

// Matches reports whether a candidate carrying tags is selected. Test
// candidates pass the union of their module's tags and their own.
func (t *Tag) Matches(tags ...[]string) bool {
	if len(t.set) == 0 {
		return true
	}
	hit := false
	for _, group := range tags {
		for _, tag := range group {
			if _, ok := t.set[tag]; ok {
				hit = true
			}
		}
	}
	return hit == t.include
}
