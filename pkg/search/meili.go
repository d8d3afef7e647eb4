package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"

	"github.com/vango-dev/gigmarket/pkg/api"
)

// IndexUID is the Meilisearch index uid for listings.
const IndexUID = "gigmarket_listings"

// Meili implements Searcher and Indexer via Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	index   string
	logger  *slog.Logger
	healthy atomic.Bool
	done    chan struct{}
	once    sync.Once
}

// MeiliOption configures a Meili client.
type MeiliOption func(*Meili)

// WithIndex overrides the index uid. Default: IndexUID.
func WithIndex(uid string) MeiliOption {
	return func(m *Meili) {
		if uid != "" {
			m.index = uid
		}
	}
}

// NewMeili creates a Meilisearch client and configures the listings
// index. An unreachable server is not an error: searches fail with
// ErrUnavailable until the health loop sees it recover.
func NewMeili(url, apiKey string, logger *slog.Logger, opts ...MeiliOption) *Meili {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Meili{
		client: meili.New(url, meili.WithAPIKey(apiKey)),
		index:  IndexUID,
		logger: logger.With("component", "search"),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	if _, err := m.client.Health(); err != nil {
		m.logger.Warn("meilisearch unavailable", "url", url, "error", err)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop(10 * time.Second)
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{Uid: m.index, PrimaryKey: "id"}); err != nil {
		m.logger.Debug("create index (may already exist)", "index", m.index, "error", err)
	}

	index := m.client.Index(m.index)
	filterable := []interface{}{"kind", "status", "ownerId"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		m.logger.Warn("update filterable attributes", "index", m.index, "error", err)
	}
	searchable := []string{"title", "company", "description", "location"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		m.logger.Warn("update searchable attributes", "index", m.index, "error", err)
	}
}

func (m *Meili) healthLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			was := m.healthy.Swap(err == nil)
			if err == nil && !was {
				m.logger.Info("meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	m.once.Do(func() { close(m.done) })
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Search queries the listings index.
func (m *Meili) Search(ctx context.Context, q Query) (Results, error) {
	if !m.healthy.Load() {
		return Results{}, ErrUnavailable
	}

	resp, err := m.client.Index(m.index).SearchWithContext(ctx, q.Text, searchRequest(q))
	if err != nil {
		m.healthy.Store(false)
		return Results{}, fmt.Errorf("meilisearch search: %w", err)
	}

	res := Results{Hits: make([]Hit, 0, len(resp.Hits)), Total: int(resp.EstimatedTotalHits), Query: q.Text}
	for _, h := range resp.Hits {
		res.Hits = append(res.Hits, hitToResult(h))
	}
	return res, nil
}

// IndexListings adds or updates listings.
func (m *Meili) IndexListings(_ context.Context, listings []api.Listing) error {
	if len(listings) == 0 {
		return nil
	}
	records := make([]Record, len(listings))
	for i, l := range listings {
		records[i] = RecordOf(l)
	}
	_, err := m.client.Index(m.index).AddDocuments(records, nil)
	return err
}

// DeleteListing removes a listing from the index.
func (m *Meili) DeleteListing(_ context.Context, id string) error {
	_, err := m.client.Index(m.index).DeleteDocument(id, nil)
	return err
}

func searchRequest(q Query) *meili.SearchRequest {
	sr := &meili.SearchRequest{
		Limit:                 int64(q.limit()),
		Offset:                int64(q.Offset),
		AttributesToHighlight: []string{"title"},
		AttributesToCrop:      []string{"description"},
		CropLength:            32,
		HighlightPreTag:       "<mark>",
		HighlightPostTag:      "</mark>",
	}
	if f := filters(q); len(f) > 0 {
		sr.Filter = f
	}
	return sr
}

func filters(q Query) []string {
	var f []string
	if q.Kind != "" {
		f = append(f, fmt.Sprintf("kind = %q", q.Kind))
	}
	if q.Status != "" {
		f = append(f, fmt.Sprintf("status = %q", q.Status))
	}
	return f
}

func hitToResult(hit meili.Hit) Hit {
	return Hit{
		ID:       decodeString(hit, "id"),
		Kind:     api.ListingKind(decodeString(hit, "kind")),
		Title:    firstNonBlank(decodeFormattedString(hit, "title"), decodeString(hit, "title")),
		Company:  decodeString(hit, "company"),
		Location: decodeString(hit, "location"),
		Status:   api.ListingStatus(decodeString(hit, "status")),
		Snippet:  firstNonBlank(decodeFormattedString(hit, "description"), decodeString(hit, "description")),
	}
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func decodeFormattedString(hit meili.Hit, key string) string {
	raw, ok := hit["_formatted"]
	if !ok {
		return ""
	}
	var formatted map[string]json.RawMessage
	if err := json.Unmarshal(raw, &formatted); err != nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(formatted[key], &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
