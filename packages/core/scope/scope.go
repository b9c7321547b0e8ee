// Package scope implements the scope chain shared through nested package
// fixtures: a linked list of frames, one per package, where reads fall back
// from child to root and writes land on the frame they are made on.
package scope

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrFrozen is returned when writing to a frame whose package setup has
// already completed.
var ErrFrozen = errors.New("scope frame is frozen")

// Frame is one package's slice of shared state.
type Frame struct {
	name   string
	parent *Frame

	mu     sync.RWMutex
	values map[string]any
	frozen bool
}

// NewRoot creates a frame with no parent.
func NewRoot(name string) *Frame {
	return &Frame{name: name, values: make(map[string]any)}
}

// Child extends the chain with a frame for a nested package.
func (f *Frame) Child(name string) *Frame {
	return &Frame{name: name, parent: f, values: make(map[string]any)}
}

func (f *Frame) Name() string {
	return f.name
}

func (f *Frame) Parent() *Frame {
	return f.parent
}

// Get resolves key starting at this frame and walking towards the root.
func (f *Frame) Get(key string) (any, bool) {
	for fr := f; fr != nil; fr = fr.parent {
		fr.mu.RLock()
		v, ok := fr.values[key]
		fr.mu.RUnlock()
		if ok {
			return v, true
		}
	}
	return nil, false
}

// MustGet is Get for keys an ancestor setup is known to have written.
func (f *Frame) MustGet(key string) any {
	v, ok := f.Get(key)
	if !ok {
		panic(fmt.Sprintf("scope %q: no attribute named %q", f.name, key))
	}
	return v
}

// Set writes key on this frame only, shadowing any ancestor value.
func (f *Frame) Set(key string, value any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.frozen {
		return fmt.Errorf("set %q on %q: %w", key, f.name, ErrFrozen)
	}
	f.values[key] = value
	return nil
}

// Freeze closes the frame's write window.
func (f *Frame) Freeze() {
	f.mu.Lock()
	f.frozen = true
	f.mu.Unlock()
}

func (f *Frame) Frozen() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.frozen
}

// Keys lists every key visible from this frame, sorted.
func (f *Frame) Keys() []string {
	seen := make(map[string]bool)
	for fr := f; fr != nil; fr = fr.parent {
		fr.mu.RLock()
		for k := range fr.values {
			seen[k] = true
		}
		fr.mu.RUnlock()
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Path returns the frame names from root to this frame.
func (f *Frame) Path() []string {
	var names []string
	for fr := f; fr != nil; fr = fr.parent {
		names = append([]string{fr.name}, names...)
	}
	return names
}
