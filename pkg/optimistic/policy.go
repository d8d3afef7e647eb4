package optimistic

import "fmt"

// Policy decides whether a transition from current to next is allowed.
// It returns nil to allow it and a *RejectedError otherwise.
type Policy[S any] interface {
	Check(current, next S) error
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc[S any] func(current, next S) error

func (f PolicyFunc[S]) Check(current, next S) error {
	return f(current, next)
}

// Sized is implemented by collections a size limit can apply to.
type Sized interface {
	Len() int
}

// MaxItems rejects growing a collection beyond limit. Shrinking is always
// allowed so an over-full collection loaded from the server can recover.
func MaxItems[S Sized](limit int, title, notice string) Policy[S] {
	if notice == "" {
		notice = fmt.Sprintf("You can select at most %d items.", limit)
	}
	return PolicyFunc[S](func(current, next S) error {
		if next.Len() > limit && next.Len() > current.Len() {
			return &RejectedError{Reason: "limit", Title: title, Notice: notice}
		}
		return nil
	})
}

// NoDuplicates rejects a list in which two elements share the same key.
// key normalises elements before comparison, e.g. strings.ToLower.
// Only growing transitions are checked.
func NoDuplicates[T comparable](key func(T) T, title, notice string) Policy[List[T]] {
	return PolicyFunc[List[T]](func(current, next List[T]) error {
		if next.Len() <= current.Len() {
			return nil
		}
		seen := make(map[T]struct{}, next.Len())
		for _, item := range next.items {
			k := item
			if key != nil {
				k = key(item)
			}
			if _, dup := seen[k]; dup {
				return &RejectedError{Reason: "duplicate", Title: title, Notice: notice}
			}
			seen[k] = struct{}{}
		}
		return nil
	})
}

// All combines policies. The first violation wins.
func All[S any](policies ...Policy[S]) Policy[S] {
	return PolicyFunc[S](func(current, next S) error {
		for _, p := range policies {
			if p == nil {
				continue
			}
			if err := p.Check(current, next); err != nil {
				return err
			}
		}
		return nil
	})
}
