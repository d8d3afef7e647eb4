package views

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/vango-dev/gigmarket/pkg/api"
	"github.com/vango-dev/gigmarket/pkg/notify"
	"github.com/vango-dev/gigmarket/pkg/search"
)

// SearchBox searches open listings for members.
type SearchBox struct {
	*base

	mu      sync.Mutex
	seq     uint64
	query   search.Query
	results search.Results
	loading bool
	failed  bool
}

// NewSearchBox creates an empty search box.
func NewSearchBox(env Env) *SearchBox {
	return &SearchBox{base: newBase("search", env)}
}

// Search runs q and shows its results. Results of a search overtaken by a
// newer one are dropped.
func (v *SearchBox) Search(ctx context.Context, q search.Query) (search.Results, error) {
	if v.env.Searcher == nil {
		return search.Results{}, fmt.Errorf("%w: search", ErrUnavailable)
	}

	v.mu.Lock()
	v.seq++
	seq := v.seq
	v.query = q
	v.loading = true
	v.mu.Unlock()
	v.changed()

	res, err := v.env.Searcher.Search(ctx, q)

	v.mu.Lock()
	if seq != v.seq {
		v.mu.Unlock()
		return res, err
	}
	v.loading = false
	v.failed = err != nil
	if err == nil {
		v.results = res
	} else {
		v.results = search.Results{Query: q.Text}
	}
	v.mu.Unlock()
	v.changed()

	switch {
	case errors.Is(err, search.ErrUnavailable):
		v.env.Notifier.Notify(notify.Info("Search unavailable", "Search is temporarily unavailable. Please try again shortly."))
	case err != nil && ctx.Err() == nil:
		v.logger.Warn("search failed", "query", q.Text, "error", err)
		v.env.Notifier.Notify(notify.Error("Search failed", "Your search could not be completed."))
	}
	return res, err
}

// SearchSnapshot is the rendered state of a SearchBox.
type SearchSnapshot struct {
	Query   string       `json:"query"`
	Kind    string       `json:"kind,omitempty"`
	Loading bool         `json:"loading"`
	Failed  bool         `json:"failed"`
	Hits    []search.Hit `json:"hits"`
	Total   int          `json:"total"`
	Page    int          `json:"page"`
	Pages   int          `json:"pages"`
}

func (v *SearchBox) Snapshot() any {
	v.mu.Lock()
	defer v.mu.Unlock()

	limit := v.query.Limit
	if limit <= 0 {
		limit = search.DefaultLimit
	}
	hits := v.results.Hits
	if hits == nil {
		hits = []search.Hit{}
	}
	pages := max(1, (v.results.Total+limit-1)/limit)
	return SearchSnapshot{
		Query:   v.query.Text,
		Kind:    string(v.query.Kind),
		Loading: v.loading,
		Failed:  v.failed,
		Hits:    hits,
		Total:   v.results.Total,
		Page:    v.query.Offset/limit + 1,
		Pages:   pages,
	}
}

// Handle accepts "search" (q, kind, page) and "clear". Searches run in the
// background.
func (v *SearchBox) Handle(_ context.Context, in Intent) error {
	switch in.Action {
	case "search":
		page := max(1, in.Int("page", 1))
		q := search.Query{
			Text:   in.Arg("q"),
			Kind:   api.ListingKind(in.Arg("kind")),
			Status: api.StatusOpen,
			Limit:  search.DefaultLimit,
			Offset: (page - 1) * search.DefaultLimit,
		}
		v.async(func(ctx context.Context) { _, _ = v.Search(ctx, q) })
		return nil
	case "clear":
		v.mu.Lock()
		v.seq++
		v.query = search.Query{}
		v.results = search.Results{}
		v.loading, v.failed = false, false
		v.mu.Unlock()
		v.changed()
		return nil
	default:
		return unknownAction(v.name, in)
	}
}
