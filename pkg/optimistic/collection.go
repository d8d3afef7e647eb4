package optimistic

import (
	"maps"
	"slices"
)

// List is an immutable ordered collection. Every modification returns a new
// List and leaves the receiver untouched.
type List[T comparable] struct {
	items []T
}

// NewList copies items into a List.
func NewList[T comparable](items ...T) List[T] {
	return List[T]{items: slices.Clone(items)}
}

// Items returns a copy of the elements.
func (l List[T]) Items() []T {
	return slices.Clone(l.items)
}

func (l List[T]) Len() int {
	return len(l.items)
}

func (l List[T]) Contains(item T) bool {
	return slices.Contains(l.items, item)
}

// IndexFunc returns the index of the first element satisfying f, or -1.
func (l List[T]) IndexFunc(f func(T) bool) int {
	return slices.IndexFunc(l.items, f)
}

// With appends item unless it is already present.
func (l List[T]) With(item T) (List[T], bool) {
	if l.Contains(item) {
		return l, false
	}
	next := make([]T, len(l.items), len(l.items)+1)
	copy(next, l.items)
	return List[T]{items: append(next, item)}, true
}

// Without removes item. Removing an absent item is a no-op.
func (l List[T]) Without(item T) (List[T], bool) {
	i := slices.Index(l.items, item)
	if i < 0 {
		return l, false
	}
	return List[T]{items: slices.Delete(slices.Clone(l.items), i, i+1)}, true
}

// Toggled removes item if present and appends it otherwise.
func (l List[T]) Toggled(item T) (List[T], bool) {
	if l.Contains(item) {
		return l.Without(item)
	}
	return l.With(item)
}

// Equal reports whether both lists hold the same elements in the same order.
func (l List[T]) Equal(other List[T]) bool {
	return slices.Equal(l.items, other.items)
}

// Flags is an immutable set of named boolean settings.
type Flags struct {
	values map[string]bool
}

// NewFlags copies values into a Flags snapshot.
func NewFlags(values map[string]bool) Flags {
	return Flags{values: maps.Clone(values)}
}

// Get returns the value of name. Unknown flags are false.
func (f Flags) Get(name string) bool {
	return f.values[name]
}

// Set returns a snapshot with name set to value.
func (f Flags) Set(name string, value bool) (Flags, bool) {
	if f.values[name] == value {
		return f, false
	}
	next := maps.Clone(f.values)
	if next == nil {
		next = make(map[string]bool, 1)
	}
	next[name] = value
	return Flags{values: next}, true
}

// Toggled returns a snapshot with name flipped.
func (f Flags) Toggled(name string) (Flags, bool) {
	return f.Set(name, !f.values[name])
}

// Map returns a copy of the values.
func (f Flags) Map() map[string]bool {
	return maps.Clone(f.values)
}

// Names returns the flag names in sorted order.
func (f Flags) Names() []string {
	return slices.Sorted(maps.Keys(f.values))
}

func (f Flags) Len() int {
	return len(f.values)
}
