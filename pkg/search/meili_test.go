package search

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	meili "github.com/meilisearch/meilisearch-go"

	"github.com/vango-dev/gigmarket/pkg/api"
)

func rawHit(t *testing.T, v map[string]any) meili.Hit {
	t.Helper()
	hit := meili.Hit{}
	for k, val := range v {
		b, err := json.Marshal(val)
		if err != nil {
			t.Fatalf("marshal %s: %v", k, err)
		}
		hit[k] = b
	}
	return hit
}

func TestHitToResult(t *testing.T) {
	hit := rawHit(t, map[string]any{
		"id":          "l1",
		"kind":        "gig",
		"title":       "Go developer",
		"company":     "Acme",
		"location":    "Remote",
		"status":      "open",
		"description": "Build things",
		"_formatted": map[string]any{
			"title":       "<mark>Go</mark> developer",
			"description": " …Build things… ",
			"applicants":  3,
		},
	})

	got := hitToResult(hit)
	want := Hit{
		ID:       "l1",
		Kind:     api.KindGig,
		Title:    "<mark>Go</mark> developer",
		Company:  "Acme",
		Location: "Remote",
		Status:   api.StatusOpen,
		Snippet:  "…Build things…",
	}
	if got != want {
		t.Errorf("hitToResult = %+v, want %+v", got, want)
	}
}

func TestHitToResult_WithoutFormatted(t *testing.T) {
	hit := rawHit(t, map[string]any{"id": "l2", "title": "Mentor", "description": "Weekly calls", "status": 7})

	got := hitToResult(hit)
	if got.Title != "Mentor" || got.Snippet != "Weekly calls" {
		t.Errorf("got %+v", got)
	}
	if got.Status != "" {
		t.Errorf("non-string status decoded as %q", got.Status)
	}
}

func TestSearchRequest(t *testing.T) {
	sr := searchRequest(Query{Text: "go", Kind: api.KindJob, Status: api.StatusOpen, Offset: 40})

	if sr.Limit != DefaultLimit || sr.Offset != 40 {
		t.Errorf("limit/offset = %d/%d", sr.Limit, sr.Offset)
	}
	f, ok := sr.Filter.([]string)
	if !ok {
		t.Fatalf("Filter = %T, want []string", sr.Filter)
	}
	if len(f) != 2 || f[0] != `kind = "job"` || f[1] != `status = "open"` {
		t.Errorf("Filter = %v", f)
	}

	if sr := searchRequest(Query{Limit: 5}); sr.Filter != nil || sr.Limit != 5 {
		t.Errorf("unfiltered request = %+v", sr)
	}
}

type fakeMeili struct {
	mu       sync.Mutex
	healthy  bool
	searches []map[string]any
}

func (f *fakeMeili) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.URL.Path == "/health":
		if !f.healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			io.WriteString(w, `{"message":"down","code":"unavailable","type":"system","link":""}`)
			return
		}
		io.WriteString(w, `{"status":"available"}`)
	case strings.HasSuffix(r.URL.Path, "/search"):
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.searches = append(f.searches, body)
		io.WriteString(w, `{
			"hits": [{"id":"l1","kind":"job","title":"Go developer","company":"Acme","status":"open",
			          "_formatted":{"title":"<mark>Go</mark> developer"}}],
			"estimatedTotalHits": 12,
			"processingTimeMs": 1,
			"query": "go",
			"limit": 20,
			"offset": 0
		}`)
	default:
		w.WriteHeader(http.StatusAccepted)
		io.WriteString(w, `{"taskUid":1,"indexUid":"gigmarket_listings","status":"enqueued","type":"settingsUpdate","enqueuedAt":"2026-01-02T03:04:05Z"}`)
	}
}

func TestMeili_Search(t *testing.T) {
	fake := &fakeMeili{healthy: true}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	m := NewMeili(srv.URL, "key", nil)
	defer m.Close()

	if !m.Healthy() {
		t.Fatal("expected healthy")
	}

	res, err := m.Search(context.Background(), Query{Text: "go", Kind: api.KindJob})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Total != 12 || len(res.Hits) != 1 || res.Query != "go" {
		t.Fatalf("res = %+v", res)
	}
	if res.Hits[0].Title != "<mark>Go</mark> developer" || res.Hits[0].Kind != api.KindJob {
		t.Errorf("hit = %+v", res.Hits[0])
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.searches) != 1 || fake.searches[0]["q"] != "go" {
		t.Errorf("searches = %v", fake.searches)
	}
}

func TestMeili_UnavailableAtStartup(t *testing.T) {
	srv := httptest.NewServer(&fakeMeili{healthy: false})
	defer srv.Close()

	m := NewMeili(srv.URL, "", nil)
	defer m.Close()

	if m.Healthy() {
		t.Fatal("expected unhealthy")
	}
	if _, err := m.Search(context.Background(), Query{Text: "x"}); !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
	m.Close()
}
