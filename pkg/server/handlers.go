package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	apperrors "github.com/vango-dev/gigmarket/internal/errors"
	"github.com/vango-dev/gigmarket/pkg/api"
	"github.com/vango-dev/gigmarket/pkg/search"
)

// errorBody is the JSON error envelope of the HTTP endpoints.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err *apperrors.AppError) {
	writeJSON(w, status, errorBody{Code: err.Code, Message: err.Message})
}

// handleSearch answers GET /search?q=&kind=&status=&limit=&offset=.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.opts.Searcher == nil {
		writeError(w, http.StatusServiceUnavailable, apperrors.New(apperrors.ErrSearchUnavailable))
		return
	}

	q := r.URL.Query()
	query := search.Query{
		Text:   q.Get("q"),
		Kind:   api.ListingKind(q.Get("kind")),
		Status: api.ListingStatus(q.Get("status")),
	}
	var err error
	if query.Limit, err = intParam(q.Get("limit")); err != nil {
		writeError(w, http.StatusBadRequest, apperrors.New(apperrors.ErrInvalidRequest).WithDetail("limit: "+err.Error()))
		return
	}
	if query.Offset, err = intParam(q.Get("offset")); err != nil {
		writeError(w, http.StatusBadRequest, apperrors.New(apperrors.ErrInvalidRequest).WithDetail("offset: "+err.Error()))
		return
	}

	res, err := s.opts.Searcher.Search(r.Context(), query)
	switch {
	case errors.Is(err, search.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, apperrors.New(apperrors.ErrSearchUnavailable))
		return
	case err != nil:
		s.logger.Error("search failed", "query", query.Text, "error", err)
		writeError(w, http.StatusBadGateway, apperrors.New(apperrors.ErrSearchUnavailable).Wrap(err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errors.New("must not be negative")
	}
	return n, nil
}

// Health is the body of GET /healthz.
type Health struct {
	Status   string            `json:"status"`
	Checks   map[string]string `json:"checks,omitempty"`
	Sessions int               `json:"sessions"`
}

// handleHealth runs every check. Any failure answers 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]Pinger, len(s.opts.Checks)+1)
	for name, p := range s.opts.Checks {
		checks[name] = p
	}
	if s.opts.Searcher != nil {
		checks["search"] = PingFunc(func(context.Context) error {
			if !s.opts.Searcher.Healthy() {
				return search.ErrUnavailable
			}
			return nil
		})
	}

	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	h := Health{Status: "ok", Checks: make(map[string]string, len(names))}
	status := http.StatusOK
	for _, name := range names {
		if err := checks[name].Ping(ctx); err != nil {
			h.Checks[name] = err.Error()
			h.Status = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		h.Checks[name] = "ok"
	}
	h.Sessions = s.opts.Sessions.Stats().Connected
	writeJSON(w, status, h)
}
