package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/vango-dev/gigmarket/pkg/optimistic"
)

// recorder is a minimal TracerProvider that keeps finished spans.
type recorder struct {
	noop.TracerProvider

	mu    sync.Mutex
	spans []*recordedSpan
}

func (p *recorder) Tracer(string, ...trace.TracerOption) trace.Tracer {
	return &recordingTracer{p: p}
}

func (p *recorder) ended() []*recordedSpan {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*recordedSpan
	for _, s := range p.spans {
		if s.done {
			out = append(out, s)
		}
	}
	return out
}

type recordingTracer struct {
	noop.Tracer
	p *recorder
}

func (t *recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	cfg := trace.NewSpanStartConfig(opts...)
	s := &recordedSpan{name: name, kind: cfg.SpanKind(), start: cfg.Timestamp(), attrs: map[attribute.Key]attribute.Value{}}
	for _, kv := range cfg.Attributes() {
		s.attrs[kv.Key] = kv.Value
	}
	t.p.mu.Lock()
	t.p.spans = append(t.p.spans, s)
	t.p.mu.Unlock()
	return trace.ContextWithSpan(ctx, s), s
}

type recordedSpan struct {
	noop.Span

	name   string
	kind   trace.SpanKind
	start  time.Time
	end    time.Time
	attrs  map[attribute.Key]attribute.Value
	status codes.Code
	errs   []error
	done   bool
}

func (s *recordedSpan) SetName(name string) { s.name = name }

func (s *recordedSpan) SetAttributes(kv ...attribute.KeyValue) {
	for _, a := range kv {
		s.attrs[a.Key] = a.Value
	}
}

func (s *recordedSpan) SetStatus(code codes.Code, _ string) { s.status = code }

func (s *recordedSpan) RecordError(err error, _ ...trace.EventOption) { s.errs = append(s.errs, err) }

func (s *recordedSpan) End(opts ...trace.SpanEndOption) {
	cfg := trace.NewSpanEndConfig(opts...)
	s.end = cfg.Timestamp()
	s.done = true
}

func TestTracing_ServerSpan(t *testing.T) {
	rec := &recorder{}
	r := chi.NewRouter()
	r.Use(Tracing(WithTracerProvider(rec), WithAttributeExtractor(func(*http.Request) []attribute.KeyValue {
		return []attribute.KeyValue{attribute.String("test.attr", "ok")}
	})))

	var inHandler trace.Span
	r.Get("/listings/{id}", func(w http.ResponseWriter, r *http.Request) {
		inHandler = trace.SpanFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/fail", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/listings/l1", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fail", nil))

	spans := rec.ended()
	if len(spans) != 2 {
		t.Fatalf("spans = %d, want 2", len(spans))
	}
	ok := spans[0]
	if ok.name != "GET /listings/{id}" || ok.kind != trace.SpanKindServer || ok.status != codes.Ok {
		t.Errorf("span = %+v", ok)
	}
	if ok.attrs["http.route"].AsString() != "/listings/{id}" || ok.attrs["http.status_code"].AsInt64() != 200 {
		t.Errorf("attrs = %v", ok.attrs)
	}
	if ok.attrs["test.attr"].AsString() != "ok" {
		t.Error("custom attribute missing")
	}
	if inHandler != trace.Span(ok) {
		t.Error("handler did not see the request span")
	}
	if spans[1].status != codes.Error {
		t.Errorf("5xx status = %v, want Error", spans[1].status)
	}
}

func TestTracing_FilterSkips(t *testing.T) {
	rec := &recorder{}
	h := Tracing(WithTracerProvider(rec), WithRequestFilter(func(r *http.Request) bool {
		return r.URL.Path != "/healthz"
	}))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if n := len(rec.ended()); n != 0 {
		t.Errorf("spans = %d, want 0", n)
	}
}

func TestTraceObserver(t *testing.T) {
	rec := &recorder{}
	var obs optimistic.Observer = NewTraceObserver(WithTracerProvider(rec))

	writeErr := errors.New("502 bad gateway")
	obs.Observe(optimistic.Event{Collection: "skills", Outcome: optimistic.OutcomeNoop})
	obs.Observe(optimistic.Event{Collection: "skills", Outcome: optimistic.OutcomeApplied, Op: uuid.New()})
	obs.Observe(optimistic.Event{
		Collection: "starred",
		Op:         uuid.New(),
		Action:     optimistic.ActionToggle,
		Target:     "d3",
		Outcome:    optimistic.OutcomeRolledBack,
		Err:        writeErr,
		Duration:   50 * time.Millisecond,
	})

	spans := rec.ended()
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}
	s := spans[0]
	if s.status != codes.Error || len(s.errs) != 1 || !errors.Is(s.errs[0], writeErr) {
		t.Errorf("span = %+v", s)
	}
	if s.attrs["optimistic.target"].AsString() != "d3" || s.attrs["optimistic.outcome"].AsString() != "rolled_back" {
		t.Errorf("attrs = %v", s.attrs)
	}
	if got := s.end.Sub(s.start); got != 50*time.Millisecond {
		t.Errorf("span length = %v, want 50ms", got)
	}
}
