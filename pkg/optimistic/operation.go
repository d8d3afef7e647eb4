package optimistic

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Operation is one accepted change on its way to the backend.
type Operation[S any] struct {
	ID     uuid.UUID
	Change Change[S]

	// Previous is the displayed state when the change was applied,
	// Next the state it displayed.
	Previous S
	Next     S

	start time.Time

	mu     sync.Mutex
	status Status
	err    error
	done   chan struct{}
}

func newOperation[S any](change Change[S], previous, next S) *Operation[S] {
	return &Operation[S]{
		ID:       uuid.New(),
		Change:   change,
		Previous: previous,
		Next:     next,
		start:    time.Now(),
		status:   Idle,
		done:     make(chan struct{}),
	}
}

// Status returns the current lifecycle state.
func (o *Operation[S]) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// Err returns the failure of a rolled back or abandoned operation.
func (o *Operation[S]) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}

// Done is closed when the operation reaches a final status.
func (o *Operation[S]) Done() <-chan struct{} {
	return o.done
}

// Wait blocks until the operation settles and returns its error.
func (o *Operation[S]) Wait(ctx context.Context) error {
	select {
	case <-o.done:
		return o.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Operation[S]) setStatus(s Status) {
	o.mu.Lock()
	o.status = s
	o.mu.Unlock()
}

// finalize records a final status. It reports false if the operation had
// already been finalized; only the caller that finalized may call finish.
func (o *Operation[S]) finalize(s Status, err error) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.status.Final() {
		return false
	}
	o.status = s
	o.err = err
	return true
}

// finish releases waiters.
func (o *Operation[S]) finish() {
	close(o.done)
}

func (o *Operation[S]) settle(s Status, err error) bool {
	if !o.finalize(s, err) {
		return false
	}
	o.finish()
	return true
}
