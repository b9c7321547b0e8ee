package scope

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrame_GetFallsBackToAncestors(t *testing.T) {
	root := NewRoot("pkg")
	require.NoError(t, root.Set("db", "conn"))
	require.NoError(t, root.Set("env", "dev"))

	child := root.Child("pkg.sub")
	require.NoError(t, child.Set("env", "staging"))

	v, ok := child.Get("db")
	assert.True(t, ok)
	assert.Equal(t, "conn", v)

	v, ok = child.Get("env")
	assert.True(t, ok)
	assert.Equal(t, "staging", v)

	v, _ = root.Get("env")
	assert.Equal(t, "dev", v, "child writes never reach the parent")

	_, ok = child.Get("missing")
	assert.False(t, ok)
}

func TestFrame_FreezeRejectsWrites(t *testing.T) {
	f := NewRoot("pkg")
	require.NoError(t, f.Set("a", 1))
	f.Freeze()

	err := f.Set("b", 2)
	assert.ErrorIs(t, err, ErrFrozen)
	assert.True(t, f.Frozen())

	child := f.Child("pkg.sub")
	assert.NoError(t, child.Set("b", 2), "freezing a parent leaves children writable")
}

func TestFrame_KeysAndPath(t *testing.T) {
	root := NewRoot("a")
	_ = root.Set("x", 1)
	child := root.Child("a.b")
	_ = child.Set("y", 2)
	leaf := child.Child("a.b.c")

	assert.Equal(t, []string{"x", "y"}, leaf.Keys())
	assert.Equal(t, []string{"a", "a.b", "a.b.c"}, leaf.Path())
	assert.Same(t, child, leaf.Parent())
}

func TestFrame_MustGetPanicsOnMissing(t *testing.T) {
	f := NewRoot("pkg")
	assert.Panics(t, func() { f.MustGet("nope") })
}

func TestFrame_ConcurrentReads(t *testing.T) {
	root := NewRoot("pkg")
	_ = root.Set("k", "v")
	root.Freeze()
	child := root.Child("pkg.sub")
	child.Freeze()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, ok := child.Get("k")
			assert.True(t, ok)
			assert.Equal(t, "v", v)
		}()
	}
	wg.Wait()
}
