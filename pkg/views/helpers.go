package views

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// DateLayout is the display format of dates in tables.
const DateLayout = "Jan 2, 2006"

// FormatDate formats t for display. The zero time renders empty.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// RelativeTime renders t relative to now, e.g. "3 hours ago".
func RelativeTime(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// Page is one page of a paginated list.
type Page[T any] struct {
	Items []T `json:"items"`
	Page  int `json:"page"`
	Pages int `json:"pages"`
	Total int `json:"total"`
}

// Paginate returns page (1-based) of items. Out-of-range pages are clamped.
func Paginate[T any](items []T, page, size int) Page[T] {
	if size <= 0 {
		size = 10
	}
	total := len(items)
	pages := (total + size - 1) / size
	if pages == 0 {
		pages = 1
	}
	page = max(1, min(page, pages))

	start := (page - 1) * size
	end := min(start+size, total)
	return Page[T]{
		Items: slices.Clone(items[start:end]),
		Page:  page,
		Pages: pages,
		Total: total,
	}
}

// Filter returns the items keep accepts, in order.
func Filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}

// SortBy returns a copy of items sorted by key. The sort is stable.
func SortBy[T any, K cmp.Ordered](items []T, key func(T) K, desc bool) []T {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b T) int {
		c := cmp.Compare(key(a), key(b))
		if desc {
			return -c
		}
		return c
	})
	return out
}

// containsFold reports whether any field contains query, ignoring case.
func containsFold(query string, fields ...string) bool {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), query) {
			return true
		}
	}
	return false
}
