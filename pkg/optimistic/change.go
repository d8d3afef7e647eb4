package optimistic

import (
	"context"
	"fmt"

	"github.com/vango-dev/gigmarket/pkg/resource"
)

// WriteFunc persists a change. next is the state the change produced when
// it was re-applied to the committed state, so the request always matches
// what will be committed.
type WriteFunc[S any] func(ctx context.Context, next S) error

// Change describes one intended modification of a single element or field
// together with the one network write that persists it.
type Change[S any] struct {
	Action Action
	Target string

	// Apply computes the next state. It must be pure: the mutator calls it
	// again when the write's turn comes and when replaying pending changes.
	Apply func(S) (S, bool)

	Write WriteFunc[S]

	// Invalidates lists the read models that are stale once the write succeeds.
	Invalidates []resource.Key
}

// Add appends item to a list.
func Add[T comparable](item T, write WriteFunc[List[T]]) Change[List[T]] {
	return Change[List[T]]{
		Action: ActionAdd,
		Target: fmt.Sprint(item),
		Apply:  func(l List[T]) (List[T], bool) { return l.With(item) },
		Write:  write,
	}
}

// Remove deletes item from a list.
func Remove[T comparable](item T, write WriteFunc[List[T]]) Change[List[T]] {
	return Change[List[T]]{
		Action: ActionRemove,
		Target: fmt.Sprint(item),
		Apply:  func(l List[T]) (List[T], bool) { return l.Without(item) },
		Write:  write,
	}
}

// Member sets whether item belongs to a list. Views use it for toggle
// buttons so the request reflects what the user saw when clicking.
func Member[T comparable](item T, present bool, write WriteFunc[List[T]]) Change[List[T]] {
	return Change[List[T]]{
		Action: ActionToggle,
		Target: fmt.Sprint(item),
		Apply: func(l List[T]) (List[T], bool) {
			if present {
				return l.With(item)
			}
			return l.Without(item)
		},
		Write: write,
	}
}

// Toggle flips a boolean flag.
func Toggle(name string, write WriteFunc[Flags]) Change[Flags] {
	return Change[Flags]{
		Action: ActionToggle,
		Target: name,
		Apply:  func(f Flags) (Flags, bool) { return f.Toggled(name) },
		Write:  write,
	}
}

// SetFlag sets a boolean flag to value. Views prefer it over Toggle
// because re-applying it is harmless.
func SetFlag(name string, value bool, write WriteFunc[Flags]) Change[Flags] {
	return Change[Flags]{
		Action: ActionToggle,
		Target: name,
		Apply:  func(f Flags) (Flags, bool) { return f.Set(name, value) },
		Write:  write,
	}
}

// Set updates a single field of a state value.
func Set[S any](field string, apply func(S) (S, bool), write WriteFunc[S]) Change[S] {
	return Change[S]{
		Action: ActionSet,
		Target: field,
		Apply:  apply,
		Write:  write,
	}
}

// Invalidating returns a copy of c that marks keys stale on success.
func (c Change[S]) Invalidating(keys ...resource.Key) Change[S] {
	c.Invalidates = append(append([]resource.Key(nil), c.Invalidates...), keys...)
	return c
}
