// Package middleware provides the observability layer of the gigmarket
// server.
//
// This package includes:
//   - Prometheus metrics for HTTP requests, WebSocket sessions and
//     optimistic operations
//   - OpenTelemetry server spans for HTTP requests
//   - An optimistic.Observer that traces every settled operation
//
// # Prometheus Metrics
//
//	metrics := middleware.NewMetrics(middleware.WithRegistry(reg))
//	r.Use(metrics.HTTP)
//
//	// Count operations of every mounted collection
//	env.Observer = metrics
//
// Collected metrics (namespace "gigmarket"):
//   - gigmarket_http_requests_total: requests by method, route and status
//   - gigmarket_http_request_duration_seconds: request latency
//   - gigmarket_active_sessions: open WebSocket sessions
//   - gigmarket_websocket_errors_total: WebSocket errors by type
//   - gigmarket_operations_total: optimistic intents by collection and outcome
//   - gigmarket_operation_duration_seconds: Apply to settlement latency
//   - gigmarket_pending_operations: queued operations per collection
//
// # OpenTelemetry
//
// Tracing wraps handlers in a server span and extracts the caller's trace
// context from the request headers. The tracer comes from the global
// provider unless WithTracerProvider is given:
//
//	r.Use(middleware.Tracing(middleware.WithTracerName("gigmarket")))
//
// TraceObserver turns settled operations into spans so that a rolled back
// write shows up next to the REST call that failed.
package middleware
