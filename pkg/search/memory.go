package search

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/vango-dev/gigmarket/pkg/api"
)

// Memory is a Searcher over listings held in memory. Matching is a
// case-insensitive substring test on title, company and description.
type Memory struct {
	mu       sync.RWMutex
	listings map[string]api.Listing
}

// NewMemory creates a Memory searcher seeded with listings.
func NewMemory(listings ...api.Listing) *Memory {
	m := &Memory{listings: make(map[string]api.Listing, len(listings))}
	for _, l := range listings {
		m.listings[l.ID] = l
	}
	return m
}

// Healthy always reports true.
func (m *Memory) Healthy() bool { return true }

// IndexListings adds or replaces listings.
func (m *Memory) IndexListings(_ context.Context, listings []api.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range listings {
		m.listings[l.ID] = l
	}
	return nil
}

// DeleteListing removes a listing.
func (m *Memory) DeleteListing(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.listings, id)
	return nil
}

// Search returns matches ordered by title.
func (m *Memory) Search(ctx context.Context, q Query) (Results, error) {
	if err := ctx.Err(); err != nil {
		return Results{}, err
	}

	text := strings.ToLower(strings.TrimSpace(q.Text))

	m.mu.RLock()
	var matched []api.Listing
	for _, l := range m.listings {
		if q.Kind != "" && l.Kind != q.Kind {
			continue
		}
		if q.Status != "" && l.Status != q.Status {
			continue
		}
		if text != "" && !containsFold(text, l.Title, l.Company, l.Description) {
			continue
		}
		matched = append(matched, l)
	}
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Title != matched[j].Title {
			return matched[i].Title < matched[j].Title
		}
		return matched[i].ID < matched[j].ID
	})

	res := Results{Hits: []Hit{}, Total: len(matched), Query: q.Text}
	start := min(q.Offset, len(matched))
	if start < 0 {
		start = 0
	}
	end := min(start+q.limit(), len(matched))
	for _, l := range matched[start:end] {
		res.Hits = append(res.Hits, Hit{
			ID:       l.ID,
			Kind:     l.Kind,
			Title:    l.Title,
			Company:  l.Company,
			Location: l.Location,
			Status:   l.Status,
			Snippet:  snippet(l.Description, 160),
		})
	}
	return res, nil
}

func containsFold(needle string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

func snippet(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "…"
}
