package resource

import "time"

// Option configures a Resource.
type Option func(*options)

type options struct {
	staleTime  time.Duration
	retryCount int
	retryDelay time.Duration
	onError    func(error)
}

// WithStaleTime sets the duration before data is considered stale.
func WithStaleTime(d time.Duration) Option {
	return func(o *options) {
		o.staleTime = d
	}
}

// WithRetry sets the number of retries and delay between them.
func WithRetry(count int, delay time.Duration) Option {
	return func(o *options) {
		o.retryCount = count
		o.retryDelay = delay
	}
}

// WithOnError registers a callback to be called when data loading fails.
func WithOnError(fn func(error)) Option {
	return func(o *options) {
		o.onError = fn
	}
}
