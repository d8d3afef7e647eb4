package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/gigmarket/pkg/optimistic"
)

// Default tracer name for the gigmarket server.
const defaultTracerName = "gigmarket"

// OTelConfig configures the OpenTelemetry middleware.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "gigmarket").
	TracerName string

	// TracerProvider supplies the tracer. Default: otel.GetTracerProvider()
	TracerProvider trace.TracerProvider

	// Filter determines which requests to trace.
	// If nil, all requests are traced.
	Filter func(r *http.Request) bool

	// AttributeExtractor adds custom attributes to each request span.
	AttributeExtractor func(r *http.Request) []attribute.KeyValue
}

// OTelOption configures the OpenTelemetry middleware.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(c *OTelConfig) {
		c.TracerProvider = tp
	}
}

// WithRequestFilter sets a filter function for requests.
func WithRequestFilter(filter func(r *http.Request) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(r *http.Request) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = extractor
	}
}

func newOTelConfig(opts []OTelOption) OTelConfig {
	config := OTelConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}
	if config.TracerProvider == nil {
		config.TracerProvider = otel.GetTracerProvider()
	}
	return config
}

// Tracing wraps every request in a server span. The caller's trace context
// is extracted from the request headers, and the span is stored in the
// request context for downstream calls.
func Tracing(opts ...OTelOption) func(http.Handler) http.Handler {
	config := newOTelConfig(opts)
	tracer := config.TracerProvider.Tracer(config.TracerName)
	propagator := otel.GetTextMapPropagator()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if config.Filter != nil && !config.Filter(r) {
				next.ServeHTTP(w, r)
				return
			}

			ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			attrs := []attribute.KeyValue{
				attribute.String("http.method", r.Method),
				attribute.String("http.target", r.URL.Path),
			}
			if config.AttributeExtractor != nil {
				attrs = append(attrs, config.AttributeExtractor(r)...)
			}

			ctx, span := tracer.Start(ctx, fmt.Sprintf("HTTP %s", r.Method),
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(attrs...),
			)
			defer span.End()

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			r = r.WithContext(ctx)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := routePattern(r)
			span.SetName(fmt.Sprintf("%s %s", r.Method, route))
			span.SetAttributes(
				attribute.String("http.route", route),
				attribute.Int("http.status_code", status),
			)
			if status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(status))
			} else {
				span.SetStatus(codes.Ok, "")
			}
		})
	}
}

// TraceObserver records a span for every settled optimistic operation.
// Noop and rejected intents never reach the server and are not traced.
type TraceObserver struct {
	tracer trace.Tracer
}

// NewTraceObserver creates an observer using the configured tracer.
func NewTraceObserver(opts ...OTelOption) *TraceObserver {
	config := newOTelConfig(opts)
	return &TraceObserver{tracer: config.TracerProvider.Tracer(config.TracerName)}
}

// Observe implements optimistic.Observer.
func (o *TraceObserver) Observe(e optimistic.Event) {
	switch e.Outcome {
	case optimistic.OutcomeCommitted, optimistic.OutcomeRolledBack, optimistic.OutcomeAbandoned:
	default:
		return
	}

	end := time.Now()
	_, span := o.tracer.Start(context.Background(), fmt.Sprintf("optimistic.%s %s", e.Action, e.Collection),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithTimestamp(end.Add(-e.Duration)),
		trace.WithAttributes(
			attribute.String("optimistic.collection", e.Collection),
			attribute.String("optimistic.op", e.Op.String()),
			attribute.String("optimistic.action", string(e.Action)),
			attribute.String("optimistic.target", e.Target),
			attribute.String("optimistic.outcome", string(e.Outcome)),
			attribute.Int("optimistic.pending", e.Pending),
		),
	)
	if e.Outcome == optimistic.OutcomeRolledBack {
		if e.Err != nil {
			span.RecordError(e.Err)
		}
		span.SetStatus(codes.Error, "rolled back")
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End(trace.WithTimestamp(end))
}
