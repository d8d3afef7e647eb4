package resource

import (
	"context"
	"sync"
	"time"
)

// State represents the current state of a resource.
type State int

const (
	Pending State = iota // Initial state, before first fetch
	Loading              // Fetch in progress
	Ready                // Data successfully loaded
	Error                // Fetch failed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Fetcher loads the current server state of a read model.
type Fetcher[T any] func(ctx context.Context) (T, error)

// Resource manages asynchronous data fetching and state.
type Resource[T any] struct {
	key     Key
	fetcher Fetcher[T]

	mu    sync.Mutex
	state State
	data  T
	err   error

	// Options
	staleTime  time.Duration
	retryCount int
	retryDelay time.Duration
	onError    func(error)

	// Internal
	lastFetch time.Time
	fetchID   uint64        // For ignoring outdated fetches
	settled   chan struct{} // Closed when the current fetch completes
	subs      map[uint64]func(T)
	nextSub   uint64
	ctx       context.Context
	cancel    context.CancelFunc
}

// New creates a new Resource with the given fetcher function.
// The fetch is triggered immediately.
func New[T any](key Key, fetcher Fetcher[T], opts ...Option) *Resource[T] {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Resource[T]{
		key:     key,
		fetcher: fetcher,
		state:   Pending,
		settled: make(chan struct{}),
		subs:    make(map[uint64]func(T)),
		ctx:     ctx,
		cancel:  cancel,
	}
	cfg := options{}
	for _, opt := range opts {
		opt(&cfg)
	}
	r.staleTime = cfg.staleTime
	r.retryCount = cfg.retryCount
	r.retryDelay = cfg.retryDelay
	r.onError = cfg.onError

	r.Fetch()
	return r
}

// Key returns the read-model key of the resource.
func (r *Resource[T]) Key() Key {
	return r.key
}

// State methods

func (r *Resource[T]) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Resource[T]) IsLoading() bool {
	s := r.State()
	return s == Loading || s == Pending
}

func (r *Resource[T]) IsReady() bool {
	return r.State() == Ready
}

func (r *Resource[T]) IsError() bool {
	return r.State() == Error
}

// Data access methods

func (r *Resource[T]) Data() T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data
}

func (r *Resource[T]) DataOr(fallback T) T {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == Ready {
		return r.data
	}
	return fallback
}

func (r *Resource[T]) Error() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Subscribe registers fn to receive data after every successful fetch.
// Callbacks run on the fetching goroutine; views hop back onto their event
// loop before touching view state.
// The returned function removes the subscription.
func (r *Resource[T]) Subscribe(fn func(T)) func() {
	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
	}
}

// Await blocks until the fetch in progress settles and returns its result.
func (r *Resource[T]) Await(ctx context.Context) (T, error) {
	r.mu.Lock()
	settled := r.settled
	r.mu.Unlock()

	select {
	case <-settled:
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data, r.err
}

// Control methods

// Fetch triggers a data fetch. It respects the stale time if data is already
// ready. To force a fetch, use Refetch().
func (r *Resource[T]) Fetch() {
	r.mu.Lock()
	if r.state == Ready && time.Since(r.lastFetch) < r.staleTime {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()
	r.Refetch()
}

// Refetch forces a data fetch, bypassing the stale time.
func (r *Resource[T]) Refetch() {
	r.mu.Lock()
	if r.ctx.Err() != nil {
		r.mu.Unlock()
		return
	}
	r.fetchID++
	currentID := r.fetchID
	if r.state != Loading {
		r.settled = make(chan struct{})
	}
	settled := r.settled
	r.state = Loading
	r.err = nil
	r.mu.Unlock()

	go func() {
		var result T
		var err error

		maxAttempts := 1 + r.retryCount
		for i := 0; i < maxAttempts; i++ {
			if i > 0 {
				select {
				case <-time.After(r.retryDelay):
				case <-r.ctx.Done():
					return
				}
			}

			if !r.current(currentID) {
				return
			}

			result, err = r.fetcher(r.ctx)
			if err == nil {
				break
			}
		}

		r.mu.Lock()
		if r.fetchID != currentID || r.ctx.Err() != nil {
			r.mu.Unlock()
			return
		}
		r.lastFetch = time.Now()
		if err != nil {
			r.err = err
			r.state = Error
		} else {
			r.data = result
			r.state = Ready
		}
		subs := make([]func(T), 0, len(r.subs))
		for _, fn := range r.subs {
			subs = append(subs, fn)
		}
		close(settled)
		r.mu.Unlock()

		if err != nil {
			if r.onError != nil {
				r.onError(err)
			}
			return
		}
		for _, fn := range subs {
			fn(result)
		}
	}()
}

func (r *Resource[T]) current(id uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fetchID == id
}

// Invalidate marks the current data as stale.
func (r *Resource[T]) Invalidate() {
	r.mu.Lock()
	r.lastFetch = time.Time{}
	r.mu.Unlock()
}

// Close cancels in-flight fetches and drops subscribers. A closed resource
// never changes state again.
func (r *Resource[T]) Close() {
	r.cancel()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = make(map[uint64]func(T))
	if r.state == Loading {
		r.state = Error
		r.err = context.Canceled
		close(r.settled)
	}
}
