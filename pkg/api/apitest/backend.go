// Package apitest provides an in-memory marketplace backend for tests.
//
//	backend := apitest.New(t)
//	backend.Profiles["u1"] = &api.Profile{ID: "u1", Skills: []string{"React"}}
//	backend.Fail(http.MethodPut, "/documents/d3/star", http.StatusInternalServerError)
//
//	client := backend.Client(t)
package apitest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/vango-dev/gigmarket/pkg/api"
)

// Request is a request the backend received.
type Request struct {
	Method string
	Path   string
	Query  string
	Body   map[string]any
	Header http.Header
}

type failure struct {
	method string
	path   string
	status int
}

type hold struct {
	method  string
	path    string
	arrived chan struct{}
	release chan struct{}
}

// Backend is a fake marketplace backend. Its maps may be seeded before the
// first request; afterwards use the accessor methods.
type Backend struct {
	Server *httptest.Server

	mu            sync.Mutex
	Profiles      map[string]*api.Profile
	Documents     map[string][]api.Document
	Settings      map[string]map[string]bool
	Listings      map[string]api.Listing
	Notifications map[string][]api.Notification

	requests []Request
	failures []failure
	holds    []*hold
}

// New starts a backend that is closed when the test ends.
func New(t testing.TB) *Backend {
	t.Helper()
	b := &Backend{
		Profiles:      make(map[string]*api.Profile),
		Documents:     make(map[string][]api.Document),
		Settings:      make(map[string]map[string]bool),
		Listings:      make(map[string]api.Listing),
		Notifications: make(map[string][]api.Notification),
	}
	b.Server = httptest.NewServer(b.routes())
	t.Cleanup(b.Server.Close)
	return b
}

// Client returns an api.Client pointed at the backend.
func (b *Backend) Client(t testing.TB) *api.Client {
	t.Helper()
	c, err := api.New(b.Server.URL)
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	return c
}

// Fail makes the next request matching method and path answer status.
func (b *Backend) Fail(method, path string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = append(b.failures, failure{method: method, path: path, status: status})
}

// Hold blocks the next request matching method and path until release is
// called. arrived is closed when the request reaches the backend.
func (b *Backend) Hold(method, path string) (arrived <-chan struct{}, release func()) {
	h := &hold{method: method, path: path, arrived: make(chan struct{}), release: make(chan struct{})}
	b.mu.Lock()
	b.holds = append(b.holds, h)
	b.mu.Unlock()

	var once sync.Once
	return h.arrived, func() { once.Do(func() { close(h.release) }) }
}

// Requests returns every request received so far.
func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.requests)
}

// Writes returns the non-GET requests received so far.
func (b *Backend) Writes() []Request {
	var writes []Request
	for _, r := range b.Requests() {
		if r.Method != http.MethodGet {
			writes = append(writes, r)
		}
	}
	return writes
}

// Profile returns a copy of a stored profile.
func (b *Backend) Profile(id string) (api.Profile, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.Profiles[id]
	if !ok {
		return api.Profile{}, false
	}
	cp := *p
	cp.Skills = slices.Clone(p.Skills)
	return cp, true
}

func (b *Backend) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(b.record)

	r.Get("/users/{id}", b.getProfile)
	r.Put("/users/{id}/profile", b.updateProfile)
	r.Put("/users/{id}/skills", b.addSkill)
	r.Delete("/users/{id}/skills", b.removeSkill)
	r.Get("/users/{id}/documents", b.listDocuments)
	r.Put("/documents/{id}/star", b.starDocument)
	r.Get("/users/{id}/settings", b.getSettings)
	r.Put("/users/{id}/settings", b.updateSetting)
	r.Get("/listings", b.listListings)
	r.Get("/listings/{id}", b.getListing)
	r.Delete("/listings/{id}", b.deleteListing)
	r.Get("/users/{id}/notifications", b.listNotifications)
	r.Put("/notifications/read-all", b.markAllRead)
	r.Put("/notifications/{id}/read", b.markRead)
	return r
}

// record logs the request, then applies holds and injected failures.
func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(data))

		req := Request{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Header: r.Header.Clone()}
		if len(data) > 0 {
			_ = json.Unmarshal(data, &req.Body)
		}

		b.mu.Lock()
		b.requests = append(b.requests, req)
		var held *hold
		for i, h := range b.holds {
			if h.method == r.Method && h.path == r.URL.Path {
				held = h
				b.holds = slices.Delete(b.holds, i, i+1)
				break
			}
		}
		status := 0
		for i, f := range b.failures {
			if f.method == r.Method && f.path == r.URL.Path {
				status = f.status
				b.failures = slices.Delete(b.failures, i, i+1)
				break
			}
		}
		b.mu.Unlock()

		if held != nil {
			close(held.arrived)
			select {
			case <-held.release:
			case <-r.Context().Done():
				return
			}
		}
		if status != 0 {
			writeJSON(w, status, map[string]string{"code": "injected", "message": http.StatusText(status)})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func notFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]string{"code": "not_found", "message": "Not found"})
}

func decode(r *http.Request, v any) bool {
	return json.NewDecoder(r.Body).Decode(v) == nil
}

func (b *Backend) getProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := b.Profile(chi.URLParam(r, "id"))
	if !ok {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (b *Backend) updateProfile(w http.ResponseWriter, r *http.Request) {
	var in api.UpdateProfileRequest
	if !decode(r, &in) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "bad body"})
		return
	}
	b.mu.Lock()
	p, ok := b.Profiles[chi.URLParam(r, "id")]
	if ok {
		p.Name, p.Headline, p.Bio, p.Website, p.AvatarURL = in.Name, in.Headline, in.Bio, in.Website, in.AvatarURL
	}
	b.mu.Unlock()
	if !ok {
		notFound(w)
		return
	}
	b.getProfile(w, r)
}

func (b *Backend) addSkill(w http.ResponseWriter, r *http.Request) {
	var in api.AddSkillRequest
	if !decode(r, &in) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "bad body"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.Profiles[chi.URLParam(r, "id")]
	if !ok {
		notFound(w)
		return
	}
	if !slices.ContainsFunc(p.Skills, func(s string) bool { return strings.EqualFold(s, in.Skill) }) {
		p.Skills = append(p.Skills, in.Skill)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) removeSkill(w http.ResponseWriter, r *http.Request) {
	var in api.RemoveSkillRequest
	if !decode(r, &in) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "bad body"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.Profiles[chi.URLParam(r, "id")]
	if !ok {
		notFound(w)
		return
	}
	p.Skills = slices.DeleteFunc(p.Skills, func(s string) bool { return s == in.Skill })
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) listDocuments(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	docs := slices.Clone(b.Documents[chi.URLParam(r, "id")])
	b.mu.Unlock()
	if docs == nil {
		docs = []api.Document{}
	}
	writeJSON(w, http.StatusOK, docs)
}

func (b *Backend) starDocument(w http.ResponseWriter, r *http.Request) {
	var in api.StarDocumentRequest
	if !decode(r, &in) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "bad body"})
		return
	}
	id := chi.URLParam(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	for user, docs := range b.Documents {
		for i := range docs {
			if docs[i].ID == id {
				b.Documents[user][i].Starred = in.Starred
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
	}
	notFound(w)
}

func (b *Backend) getSettings(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	settings := make(map[string]bool)
	for k, v := range b.Settings[chi.URLParam(r, "id")] {
		settings[k] = v
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, settings)
}

func (b *Backend) updateSetting(w http.ResponseWriter, r *http.Request) {
	var in api.UpdateSettingRequest
	if !decode(r, &in) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "bad body"})
		return
	}
	id := chi.URLParam(r, "id")
	b.mu.Lock()
	if b.Settings[id] == nil {
		b.Settings[id] = make(map[string]bool)
	}
	b.Settings[id][in.Field] = in.Value
	b.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) listListings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	b.mu.Lock()
	out := make([]api.Listing, 0, len(b.Listings))
	for _, l := range b.Listings {
		if k := q.Get("kind"); k != "" && string(l.Kind) != k {
			continue
		}
		if s := q.Get("status"); s != "" && string(l.Status) != s {
			continue
		}
		if o := q.Get("owner"); o != "" && l.OwnerID != o {
			continue
		}
		out = append(out, l)
	}
	b.mu.Unlock()
	slices.SortFunc(out, func(x, y api.Listing) int { return strings.Compare(x.ID, y.ID) })
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) getListing(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	l, ok := b.Listings[chi.URLParam(r, "id")]
	b.mu.Unlock()
	if !ok {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (b *Backend) deleteListing(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	b.mu.Lock()
	_, ok := b.Listings[id]
	delete(b.Listings, id)
	b.mu.Unlock()
	if !ok {
		notFound(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) listNotifications(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	out := slices.Clone(b.Notifications[chi.URLParam(r, "id")])
	b.mu.Unlock()
	if out == nil {
		out = []api.Notification{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) markRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	for user, list := range b.Notifications {
		for i := range list {
			if list[i].ID == id {
				b.Notifications[user][i].Read = true
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
	}
	notFound(w)
}

func (b *Backend) markAllRead(w http.ResponseWriter, r *http.Request) {
	var in api.MarkAllReadRequest
	if !decode(r, &in) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "bad body"})
		return
	}
	b.mu.Lock()
	for i := range b.Notifications[in.UserID] {
		b.Notifications[in.UserID][i].Read = true
	}
	b.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}
