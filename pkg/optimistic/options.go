package optimistic

import (
	"log/slog"
	"time"
)

// Option configures a Mutator.
type Option[S any] func(*Mutator[S])

// WithName names the collection in logs and events.
func WithName[S any](name string) Option[S] {
	return func(m *Mutator[S]) {
		m.name = name
	}
}

// WithPolicy sets the constraint policy checked before every change.
func WithPolicy[S any](p Policy[S]) Option[S] {
	return func(m *Mutator[S]) {
		m.policy = p
	}
}

// WithObserver receives an Event per intent and per settled operation.
func WithObserver[S any](o Observer) Option[S] {
	return func(m *Mutator[S]) {
		m.observer = o
	}
}

// WithOnSuccess is called after a write succeeds, typically to invalidate
// the read models listed in Change.Invalidates.
func WithOnSuccess[S any](fn func(*Operation[S])) Option[S] {
	return func(m *Mutator[S]) {
		m.onSuccess = fn
	}
}

// WithOnError is called exactly once for each rolled back operation.
func WithOnError[S any](fn func(*Operation[S], error)) Option[S] {
	return func(m *Mutator[S]) {
		m.onError = fn
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger[S any](logger *slog.Logger) Option[S] {
	return func(m *Mutator[S]) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithWriteTimeout bounds every write. Zero leaves the timeout to the
// HTTP client.
func WithWriteTimeout[S any](d time.Duration) Option[S] {
	return func(m *Mutator[S]) {
		m.writeTimeout = d
	}
}

// WithDispatcher routes completion callbacks through dispatch, e.g. onto a
// session event loop. By default they run on the worker goroutine.
func WithDispatcher[S any](dispatch func(func())) Option[S] {
	return func(m *Mutator[S]) {
		if dispatch != nil {
			m.dispatch = dispatch
		}
	}
}
