// Package search queries the listings index.
//
// Meili talks to Meilisearch; Memory is an in-process Searcher for tests
// and for running without a search engine.
package search

import (
	"context"
	"errors"

	"github.com/vango-dev/gigmarket/pkg/api"
)

// ErrUnavailable is returned while the search engine is unreachable.
var ErrUnavailable = errors.New("search: unavailable")

// DefaultLimit is used when Query.Limit is zero.
const DefaultLimit = 20

// Query describes a listing search.
type Query struct {
	Text   string
	Kind   api.ListingKind   // empty = all kinds
	Status api.ListingStatus // empty = all statuses
	Limit  int
	Offset int
}

func (q Query) limit() int {
	if q.Limit <= 0 {
		return DefaultLimit
	}
	return q.Limit
}

// Hit is a single listing match.
type Hit struct {
	ID       string            `json:"id"`
	Kind     api.ListingKind   `json:"kind"`
	Title    string            `json:"title"`
	Company  string            `json:"company"`
	Location string            `json:"location,omitempty"`
	Status   api.ListingStatus `json:"status"`
	Snippet  string            `json:"snippet,omitempty"`
}

// Results is the envelope returned by GET /search.
type Results struct {
	Hits  []Hit  `json:"hits"`
	Total int    `json:"total"`
	Query string `json:"query"`
}

// Searcher can execute a listing search.
type Searcher interface {
	Search(ctx context.Context, q Query) (Results, error)
	Healthy() bool
}

// Indexer pushes listings into the index.
type Indexer interface {
	IndexListings(ctx context.Context, listings []api.Listing) error
	DeleteListing(ctx context.Context, id string) error
}

// Record is the document stored in the index for a listing.
type Record struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	Description string `json:"description"`
	Status      string `json:"status"`
	OwnerID     string `json:"ownerId"`
}

// RecordOf converts a listing to its index record.
func RecordOf(l api.Listing) Record {
	return Record{
		ID:          l.ID,
		Kind:        string(l.Kind),
		Title:       l.Title,
		Company:     l.Company,
		Location:    l.Location,
		Description: l.Description,
		Status:      string(l.Status),
		OwnerID:     l.OwnerID,
	}
}
