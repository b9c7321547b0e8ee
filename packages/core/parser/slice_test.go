package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRange(t *testing.T) {
	const n = 8
	tests := []struct {
		name string
		want Range
	}{
		{"test_1", Range{0, 8, 1}},
		{"test_1[0]", Range{0, 1, 1}},
		{"test_1[3]", Range{3, 4, 1}},
		{"test_1[-1]", Range{7, 8, 1}},
		{"test_1[-1:]", Range{-1, 8, 1}},
		{"test_1[:-1]", Range{0, 7, 1}},
		{"test_1[1:3]", Range{1, 3, 1}},
		{"test_1[1:1:1]", Range{1, 1, 1}},
		{"test_1[::2]", Range{0, 8, 2}},
		{"test_1[::-1]", Range{0, 8, -1}},
		{"test_1[", Range{}},
		{"test_1[]", Range{}},
		{"test_1]", Range{}},
		{"test_1][", Range{}},
		{"test_1[a]", Range{}},
		{"test_1[1:2:3:4]", Range{}},
		{"test_1[::0]", Range{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseRange(tt.name, n))
		})
	}
}

func TestRange_Len(t *testing.T) {
	assert.Equal(t, 8, ParseRange("t", 8).Len())
	assert.Equal(t, 1, ParseRange("t[0]", 8).Len())
	assert.Equal(t, 9, ParseRange("t[-1:]", 8).Len())
	assert.Equal(t, 7, ParseRange("t[:-1]", 8).Len())
	assert.Equal(t, 4, ParseRange("t[::2]", 8).Len())
	assert.Equal(t, 0, ParseRange("t[1:1:1]", 8).Len())
	assert.True(t, ParseRange("t[::-1]", 8).Empty())
	assert.Equal(t, 3, Range{5, 2, -1}.Len())
}

func TestRange_Indices(t *testing.T) {
	assert.Equal(t, []int{1, 2}, ParseRange("t[1:3]", 5).Indices())
	assert.Equal(t, []int{0, 2, 4}, ParseRange("t[::2]", 5).Indices())
	assert.Equal(t, []int{5, 4, 3}, Range{5, 2, -1}.Indices())
	assert.Empty(t, ParseRange("t[]", 5).Indices())
}

func TestResolve(t *testing.T) {
	i, ok := Resolve(-1, 4)
	assert.True(t, ok)
	assert.Equal(t, 3, i)

	_, ok = Resolve(4, 4)
	assert.False(t, ok)

	_, ok = Resolve(-5, 4)
	assert.False(t, ok)
}

func TestSplitName(t *testing.T) {
	name, expr := SplitName("test_a[1:3]")
	assert.Equal(t, "test_a", name)
	assert.Equal(t, "[1:3]", expr)

	name, expr = SplitName("test_b")
	assert.Equal(t, "test_b", name)
	assert.Empty(t, expr)
}
