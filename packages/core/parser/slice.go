package parser

import (
	"strconv"
	"strings"
)

// Range is a half-open, stepped index range over a parameter list.
type Range struct {
	Start, Stop, Step int
}

// FullRange covers n parameters.
func FullRange(n int) Range {
	return Range{Start: 0, Stop: n, Step: 1}
}

// Len is the number of indices the range yields.
func (r Range) Len() int {
	switch {
	case r.Step > 0 && r.Stop > r.Start:
		return (r.Stop - r.Start + r.Step - 1) / r.Step
	case r.Step < 0 && r.Stop < r.Start:
		return (r.Start - r.Stop - r.Step - 1) / -r.Step
	}
	return 0
}

// Empty reports whether the range yields nothing.
func (r Range) Empty() bool {
	return r.Len() == 0
}

// Indices returns the raw indices the range yields, negative ones included.
func (r Range) Indices() []int {
	n := r.Len()
	out := make([]int, 0, n)
	for i, v := 0, r.Start; i < n; i, v = i+1, v+r.Step {
		out = append(out, v)
	}
	return out
}

// Resolve maps a raw index onto a list of length n the way a negative
// sequence index does. ok is false when it falls outside the list.
func Resolve(index, n int) (int, bool) {
	if index < 0 {
		index += n
	}
	return index, index >= 0 && index < n
}

// SplitName separates a test name from its slice expression:
// "test_a[1:3]" -> ("test_a", "[1:3]").
func SplitName(name string) (string, string) {
	if i := strings.Index(name, "["); i >= 0 {
		return name[:i], name[i:]
	}
	if i := strings.Index(name, "]"); i >= 0 {
		return name[:i], name[i:]
	}
	return name, ""
}

// ParseRange resolves the slice expression on name against a list of n
// parameters. No brackets selects everything; malformed brackets select
// nothing.
//
//	t        -> [0, n)
//	t[i]     -> [i, i+1)
//	t[a:b]   -> [a, b), an empty a is 0, an empty b is n, a negative b is n+b
//	t[a:b:c] -> [a, b) stepping by c
func ParseRange(name string, n int) Range {
	open := strings.Index(name, "[")
	if open < 0 {
		if strings.Contains(name, "]") {
			return Range{}
		}
		return FullRange(n)
	}
	if !strings.HasSuffix(name, "]") || open+1 > len(name)-1 {
		return Range{}
	}
	token := name[open+1 : len(name)-1]
	if token == "" {
		return Range{}
	}

	if !strings.Contains(token, ":") {
		i, err := strconv.Atoi(token)
		if err != nil {
			return Range{}
		}
		if i < 0 {
			i += n
		}
		return Range{Start: i, Stop: i + 1, Step: 1}
	}

	parts := strings.Split(token, ":")
	if len(parts) > 3 {
		return Range{}
	}
	r := Range{Start: 0, Stop: n, Step: 1}
	for i, part := range parts {
		if part == "" {
			continue
		}
		v, err := strconv.Atoi(part)
		if err != nil {
			return Range{}
		}
		switch i {
		case 0:
			r.Start = v
		case 1:
			if v < 0 {
				v += n
			}
			r.Stop = v
		case 2:
			if v == 0 {
				return Range{}
			}
			r.Step = v
		}
	}
	return r
}
