package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBase_Included(t *testing.T) {
	tests := []struct {
		name    string
		items   []string
		include bool
		item    string
		want    bool
	}{
		{"member included", []string{"a"}, true, "a", true},
		{"non-member included", []string{"a"}, true, "b", false},
		{"member excluded", []string{"a"}, false, "a", false},
		{"non-member excluded", []string{"a"}, false, "b", true},
		{"empty include", nil, true, "a", true},
		{"empty exclude", nil, false, "b", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewBase(tt.items, "", tt.include)
			assert.Equal(t, tt.want, m.Included(tt.item))
			assert.Equal(t, !tt.want, m.Excluded(tt.item))
		})
	}
}

func TestBase_XorInvariant(t *testing.T) {
	items := []string{"a", "b"}
	candidates := []string{"a", "b", "c", "", "ab"}
	for _, include := range []bool{true, false} {
		m := NewBase(items, "", include)
		for _, c := range candidates {
			member := c == "a" || c == "b"
			assert.Equal(t, member != !include, m.Included(c), "include=%v item=%q", include, c)
		}
	}
}

func TestBase_Items(t *testing.T) {
	inc := NewBase([]string{"a"}, "a", true)
	assert.Equal(t, []string{"a"}, inc.IncludedItems())
	assert.Empty(t, inc.ExcludedItems())

	exc := NewBase([]string{"a"}, "!a", false)
	assert.Empty(t, exc.IncludedItems())
	assert.Equal(t, []string{"a"}, exc.ExcludedItems())
	assert.Equal(t, "exclude: [a]", exc.String())
}

func TestNone_ExcludesEverything(t *testing.T) {
	m := None("[")
	assert.False(t, m.Included("anything"))
	assert.True(t, m.Excluded(""))
	assert.Empty(t, m.IncludedItems())
}

func TestParseLiteral(t *testing.T) {
	m := ParseLiteral("a;b", ";")
	assert.True(t, m.Included("a"))
	assert.False(t, m.Included("c"))

	neg := ParseLiteral("!a;b", ";")
	assert.False(t, neg.Included("b"))
	assert.True(t, neg.Included("c"))

	all := ParseLiteral("", ";")
	assert.True(t, all.Included("anything"))
}

func TestTests_Slices(t *testing.T) {
	m := Tests([]string{"test_a", "test_p[1:3]"})
	assert.True(t, m.Included("test_a"))
	assert.True(t, m.Included("test_p"))
	assert.False(t, m.Included("test_b"))
	assert.Equal(t, "test_p[1:3]", m.Slice("test_p"))
	assert.Equal(t, "test_a", m.Slice("test_a"))

	neg := Tests([]string{"!test_a", "!test_b"})
	assert.False(t, neg.Included("test_a"))
	assert.True(t, neg.Included("test_c"))

	assert.True(t, Tests(nil).Included("test_x"))
}

func TestGlobModules(t *testing.T) {
	paths := []string{"pkg.api.users", "pkg.api.orders", "pkg.ui.login"}

	m := GlobModules("pkg.api.*", paths)
	assert.Equal(t, []string{"pkg.api.users", "pkg.api.orders"}, m.IncludedItems())

	assert.False(t, GlobModules("nothing.*", paths).Included("pkg.ui.login"))
}

func TestGlobTests(t *testing.T) {
	m := GlobTests("test_log?n*")
	assert.True(t, m.Included("test_login_ok"))
	assert.False(t, m.Included("test_logout"))

	neg := GlobTests("!test_slow*")
	assert.False(t, neg.Included("test_slow_upload"))
	assert.True(t, neg.Included("test_fast"))

	assert.True(t, GlobTests("").Included("whatever"))
}

func TestRegexModules(t *testing.T) {
	paths := []string{"pkg.api.users", "pkg.api.orders", "other.api"}

	m := RegexModules(`pkg\.api\.(users|orders)`, paths)
	assert.Equal(t, []string{"pkg.api.users", "pkg.api.orders"}, m.IncludedItems())

	bad := RegexModules(`pkg[`, paths)
	for _, p := range paths {
		assert.False(t, bad.Included(p))
	}
}

func TestRegexTests(t *testing.T) {
	m := RegexTests(`test_\d+`)
	assert.True(t, m.Included("test_12"))
	assert.False(t, m.Included("xtest_12"))

	assert.False(t, RegexTests(`(`).Included("test_1"))
	assert.True(t, RegexTests("").Included("test_1"))
	assert.False(t, RegexTests(`!test_1`).Included("test_1"))
}

func TestParseTags(t *testing.T) {
	path, m := ParseTags("pkg.sub/smoke,fast")
	assert.Equal(t, "pkg.sub", path)
	assert.True(t, m.Matches([]string{"smoke"}))
	assert.True(t, m.Matches(nil, []string{"fast"}))
	assert.False(t, m.Matches([]string{"slow"}))
	assert.False(t, m.Matches(nil))

	path, neg := ParseTags("!slow")
	assert.Empty(t, path)
	assert.False(t, neg.Matches([]string{"api"}, []string{"slow"}))
	assert.True(t, neg.Matches([]string{"api"}))

	_, all := ParseTags("pkg/")
	assert.True(t, all.Matches(nil))
}
