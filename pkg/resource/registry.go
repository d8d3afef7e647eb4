package resource

import (
	"strings"
	"sync"
)

// Key identifies a read model, e.g. "users:42:skills".
type Key string

// KeyOf joins parts into a Key.
func KeyOf(parts ...string) Key {
	return Key(strings.Join(parts, ":"))
}

// HasPrefix reports whether k lies under prefix.
func (k Key) HasPrefix(prefix Key) bool {
	return k == prefix || strings.HasPrefix(string(k), string(prefix)+":")
}

// Refreshable is the part of a Resource the Registry needs.
type Refreshable interface {
	Key() Key
	Invalidate()
	Refetch()
}

// Registry maps read-model keys to the resources that hold them.
// A key may be held by several resources (two open views of the same data).
type Registry struct {
	mu        sync.Mutex
	resources map[Key][]Refreshable
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{resources: make(map[Key][]Refreshable)}
}

// Add registers r under its key. The returned function removes it.
func (g *Registry) Add(r Refreshable) func() {
	g.mu.Lock()
	g.resources[r.Key()] = append(g.resources[r.Key()], r)
	g.mu.Unlock()

	return func() { g.remove(r) }
}

func (g *Registry) remove(r Refreshable) {
	g.mu.Lock()
	defer g.mu.Unlock()

	list := g.resources[r.Key()]
	for i, existing := range list {
		if existing == r {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(g.resources, r.Key())
		return
	}
	g.resources[r.Key()] = list
}

// Invalidate marks every resource held under keys (or below them) stale and
// refetches it. It returns the number of resources refetched.
func (g *Registry) Invalidate(keys ...Key) int {
	g.mu.Lock()
	var targets []Refreshable
	for key, list := range g.resources {
		for _, want := range keys {
			if key.HasPrefix(want) {
				targets = append(targets, list...)
				break
			}
		}
	}
	g.mu.Unlock()

	for _, r := range targets {
		r.Invalidate()
		r.Refetch()
	}
	return len(targets)
}

// Len returns the number of registered resources.
func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, list := range g.resources {
		n += len(list)
	}
	return n
}
