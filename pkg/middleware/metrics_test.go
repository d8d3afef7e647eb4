package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vango-dev/gigmarket/pkg/optimistic"
)

func newTestMetrics(t *testing.T) (*Metrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewMetrics(WithRegistry(reg)), reg
}

func TestMetricsHTTP_LabelsByRoutePattern(t *testing.T) {
	m, _ := newTestMetrics(t)

	r := chi.NewRouter()
	r.Use(m.HTTP)
	r.Get("/listings/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})
	r.Get("/plain", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	for _, path := range []string{"/listings/a", "/listings/b", "/boom", "/plain", "/missing"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	tests := []struct {
		route, status string
		want          float64
	}{
		{"/listings/{id}", "204", 2},
		{"/boom", "502", 1},
		{"/plain", "200", 1},
		{"unmatched", "404", 1},
	}
	for _, tt := range tests {
		if got := testutil.ToFloat64(m.httpRequests.WithLabelValues(http.MethodGet, tt.route, tt.status)); got != tt.want {
			t.Errorf("requests{%s,%s} = %v, want %v", tt.route, tt.status, got, tt.want)
		}
	}
	if n := testutil.CollectAndCount(m.httpDuration); n != 4 {
		t.Errorf("duration series = %d, want 4", n)
	}
}

func TestMetricsObserve(t *testing.T) {
	m, _ := newTestMetrics(t)

	events := []optimistic.Event{
		{Collection: "starred", Outcome: optimistic.OutcomeApplied, Pending: 1},
		{Collection: "starred", Outcome: optimistic.OutcomeRejected, Pending: 1},
		{Collection: "starred", Outcome: optimistic.OutcomeRolledBack, Duration: 20 * time.Millisecond, Pending: 0},
		{Collection: "skills", Outcome: optimistic.OutcomeNoop},
		{Outcome: optimistic.OutcomeCommitted, Duration: time.Millisecond},
	}
	var obs optimistic.Observer = m
	for _, e := range events {
		obs.Observe(e)
	}

	counts := map[[2]string]float64{
		{"starred", "applied"}:     1,
		{"starred", "rejected"}:    1,
		{"starred", "rolled_back"}: 1,
		{"skills", "noop"}:         1,
		{"unnamed", "committed"}:   1,
	}
	for labels, want := range counts {
		if got := testutil.ToFloat64(m.operations.WithLabelValues(labels[0], labels[1])); got != want {
			t.Errorf("operations%v = %v, want %v", labels, got, want)
		}
	}
	if got := testutil.ToFloat64(m.pending.WithLabelValues("starred")); got != 0 {
		t.Errorf("pending = %v, want 0", got)
	}
	// only settled operations have a duration
	if n := testutil.CollectAndCount(m.opDuration); n != 2 {
		t.Errorf("duration series = %d, want 2", n)
	}
}

func TestMetricsSessions(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()
	if got := testutil.ToFloat64(m.activeSessions); got != 1 {
		t.Errorf("active sessions = %v, want 1", got)
	}

	m.WebSocketError(errors.New("i/o timeout"))
	m.WebSocketError(errors.New("websocket: close 1006 (abnormal closure)"))
	if got := testutil.ToFloat64(m.wsErrors.WithLabelValues("timeout")); got != 1 {
		t.Errorf("timeout errors = %v", got)
	}
	if got := testutil.ToFloat64(m.wsErrors.WithLabelValues("closed")); got != 1 {
		t.Errorf("closed errors = %v", got)
	}
}

func TestNewMetrics_Namespace(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(WithRegistry(reg), WithNamespace("test"), WithConstLabels(prometheus.Labels{"env": "ci"}))
	m.SessionOpened()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "test_active_sessions" {
			found = true
			if l := f.GetMetric()[0].GetLabel(); len(l) != 1 || l[0].GetValue() != "ci" {
				t.Errorf("labels = %v", l)
			}
		}
	}
	if !found {
		t.Error("test_active_sessions not registered")
	}
}

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "none"},
		{errors.New("context deadline exceeded"), "timeout"},
		{errors.New("invalid message type"), "protocol"},
		{errors.New("websocket: read limit exceeded"), "too_large"},
		{errors.New("boom"), "internal"},
	}
	for _, tt := range tests {
		if got := categorizeError(tt.err); got != tt.want {
			t.Errorf("categorizeError(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
