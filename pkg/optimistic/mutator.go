package optimistic

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// Mutator owns the state of one collection and serialises its writes.
type Mutator[S any] struct {
	name         string
	policy       Policy[S]
	observer     Observer
	onSuccess    func(*Operation[S])
	onError      func(*Operation[S], error)
	logger       *slog.Logger
	writeTimeout time.Duration
	dispatch     func(func())

	mu        sync.Mutex
	committed S
	displayed S
	version   uint64 // bumped when committed is replaced by Reconcile
	pending   []*Operation[S]
	subs      map[uint64]func(S)
	nextSub   uint64
	closed    bool

	wake chan struct{}
	stop chan struct{}
}

// New creates a Mutator holding initial, the state fetched from the server
// when the view mounted, and starts its write worker.
func New[S any](initial S, opts ...Option[S]) *Mutator[S] {
	m := &Mutator[S]{
		name:      "collection",
		logger:    slog.Default(),
		dispatch:  func(fn func()) { fn() },
		committed: initial,
		displayed: initial,
		subs:      make(map[uint64]func(S)),
		wake:      make(chan struct{}, 1),
		stop:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "optimistic", "collection", m.name)

	go m.run()
	return m
}

// Name returns the collection name.
func (m *Mutator[S]) Name() string {
	return m.name
}

// State returns the displayed state: committed plus every pending change.
func (m *Mutator[S]) State() S {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.displayed
}

// Committed returns the last state confirmed by the backend.
func (m *Mutator[S]) Committed() S {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.committed
}

// Pending returns the number of queued or in-flight operations.
func (m *Mutator[S]) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Subscribe registers fn to receive the displayed state after every change.
func (m *Mutator[S]) Subscribe(fn func(S)) func() {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// Check runs the policy against a hypothetical change without applying it.
// Views use it to disable controls that would be rejected.
func (m *Mutator[S]) Check(change Change[S]) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	next, changed := change.Apply(m.displayed)
	if !changed {
		return ErrNoop
	}
	return m.check(m.displayed, next)
}

// Apply displays change immediately and queues its write.
//
// It returns ErrNoop when the change leaves the displayed state as is and a
// *RejectedError when the policy refuses it. In both cases nothing is sent.
func (m *Mutator[S]) Apply(change Change[S]) (*Operation[S], error) {
	if change.Apply == nil || change.Write == nil {
		return nil, fmt.Errorf("optimistic: change %s %q needs Apply and Write", change.Action, change.Target)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}

	previous := m.displayed
	next, changed := change.Apply(previous)
	if !changed {
		pending := len(m.pending)
		m.mu.Unlock()
		m.emit(Event{Collection: m.name, Action: change.Action, Target: change.Target, Outcome: OutcomeNoop, Pending: pending})
		return nil, ErrNoop
	}
	if err := m.check(previous, next); err != nil {
		pending := len(m.pending)
		m.mu.Unlock()
		m.logger.Debug("change rejected", "action", change.Action, "target", change.Target, "error", err)
		m.emit(Event{Collection: m.name, Action: change.Action, Target: change.Target, Outcome: OutcomeRejected, Err: err, Pending: pending})
		return nil, err
	}

	op := newOperation(change, previous, next)
	op.setStatus(Applying)
	m.pending = append(m.pending, op)
	m.displayed = next
	pending := len(m.pending)
	subs := m.subscribers()
	m.mu.Unlock()

	m.logger.Debug("change applied", "op", op.ID, "action", change.Action, "target", change.Target, "pending", pending)
	m.emit(Event{Collection: m.name, Op: op.ID, Action: change.Action, Target: change.Target, Outcome: OutcomeApplied, Pending: pending})
	for _, fn := range subs {
		fn(next)
	}

	// Wake the worker only now so its completion cannot overtake this render.
	select {
	case m.wake <- struct{}{}:
	default:
	}
	return op, nil
}

// Reconcile replaces the committed state with fresh server data, e.g. the
// result of a refetch. Pending changes stay displayed on top of it.
func (m *Mutator[S]) Reconcile(server S) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.committed = server
	m.version++
	m.displayed = m.replay()
	displayed := m.displayed
	subs := m.subscribers()
	m.mu.Unlock()

	for _, fn := range subs {
		fn(displayed)
	}
}

// Close unmounts the collection. Queued operations end Abandoned, the write
// in flight is left to finish and its result is dropped. No callback runs
// after Close returns.
func (m *Mutator[S]) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	abandoned := m.pending
	m.pending = nil
	m.subs = make(map[uint64]func(S))
	m.mu.Unlock()

	close(m.stop)
	for _, op := range abandoned {
		if op.settle(Abandoned, ErrClosed) {
			m.emit(Event{Collection: m.name, Op: op.ID, Action: op.Change.Action, Target: op.Change.Target,
				Outcome: OutcomeAbandoned, Err: ErrClosed, Duration: time.Since(op.start)})
		}
	}
	if len(abandoned) > 0 {
		m.logger.Debug("pending operations abandoned", "count", len(abandoned))
	}
}

// Closed reports whether Close has been called.
func (m *Mutator[S]) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// run is the single writer. It takes the oldest pending operation, re-applies
// it to the committed state and performs its write.
func (m *Mutator[S]) run() {
	for {
		op, next, version, ok := m.head()
		if !ok {
			select {
			case <-m.wake:
				continue
			case <-m.stop:
				return
			}
		}
		if op == nil {
			// settled without a write
			continue
		}

		err := m.write(op, next)
		m.complete(op, next, version, err)
	}
}

// head prepares the oldest pending operation. A nil op with ok set means it
// settled during preparation and the loop should move on.
func (m *Mutator[S]) head() (op *Operation[S], next S, version uint64, ok bool) {
	m.mu.Lock()
	if m.closed || len(m.pending) == 0 {
		m.mu.Unlock()
		return nil, next, 0, false
	}
	op = m.pending[0]

	next, changed := op.Change.Apply(m.committed)
	if !changed {
		// An earlier completion or a reconcile already produced this state.
		m.pending = m.pending[1:]
		m.displayed = m.replay()
		m.mu.Unlock()
		m.settle(op, Committed, nil, false)
		return nil, next, 0, true
	}
	if err := m.check(m.committed, next); err != nil {
		m.pending = m.pending[1:]
		m.displayed = m.replay()
		m.mu.Unlock()
		m.settle(op, RolledBack, err, true)
		return nil, next, 0, true
	}
	version = m.version
	m.mu.Unlock()
	return op, next, version, true
}

func (m *Mutator[S]) write(op *Operation[S], next S) (err error) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("write panic", "op", op.ID, "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("write panicked: %v", r)
		}
	}()

	ctx := context.Background()
	if m.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.writeTimeout)
		defer cancel()
	}
	return op.Change.Write(ctx, next)
}

func (m *Mutator[S]) complete(op *Operation[S], next S, version uint64, err error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	if len(m.pending) > 0 && m.pending[0] == op {
		m.pending = m.pending[1:]
	}
	if err == nil {
		if m.version == version {
			m.committed = next
		} else if reconciled, changed := op.Change.Apply(m.committed); changed {
			// server data arrived mid-flight and does not show this write yet
			m.committed = reconciled
		}
	}
	m.displayed = m.replay()
	m.mu.Unlock()

	if err != nil {
		m.settle(op, RolledBack, &WriteError{Op: op.ID, Action: op.Change.Action, Target: op.Change.Target, Err: err}, true)
		return
	}
	m.settle(op, Committed, nil, true)
}

// settle finalises op, notifies subscribers and runs the success or error
// callback through the dispatcher. Waiters are released last, so with the
// default dispatcher callbacks have run when Wait returns.
func (m *Mutator[S]) settle(op *Operation[S], status Status, err error, wrote bool) {
	if !op.finalize(status, err) {
		return
	}
	defer op.finish()

	outcome := OutcomeCommitted
	if status == RolledBack {
		outcome = OutcomeRolledBack
		m.logger.Warn("change rolled back", "op", op.ID, "action", op.Change.Action, "target", op.Change.Target, "error", err)
	} else {
		m.logger.Debug("change committed", "op", op.ID, "action", op.Change.Action, "target", op.Change.Target, "wrote", wrote)
	}
	m.emit(Event{Collection: m.name, Op: op.ID, Action: op.Change.Action, Target: op.Change.Target,
		Outcome: outcome, Err: err, Duration: time.Since(op.start), Pending: m.Pending()})

	m.dispatch(func() {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return
		}
		displayed := m.displayed
		subs := m.subscribers()
		m.mu.Unlock()

		for _, fn := range subs {
			fn(displayed)
		}
		switch {
		case status == RolledBack && m.onError != nil:
			m.onError(op, err)
		case status == Committed && wrote && m.onSuccess != nil:
			m.onSuccess(op)
		}
	})
}

// replay computes committed plus every pending change. A change the policy
// no longer admits is skipped; its write will roll it back. Callers hold mu.
func (m *Mutator[S]) replay() S {
	state := m.committed
	for _, op := range m.pending {
		next, changed := op.Change.Apply(state)
		if !changed {
			continue
		}
		if m.check(state, next) != nil {
			continue
		}
		state = next
	}
	return state
}

func (m *Mutator[S]) check(current, next S) error {
	if m.policy == nil {
		return nil
	}
	return m.policy.Check(current, next)
}

// subscribers returns a snapshot of the subscriber callbacks. Callers hold mu.
func (m *Mutator[S]) subscribers() []func(S) {
	subs := make([]func(S), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	return subs
}

func (m *Mutator[S]) emit(e Event) {
	if m.observer != nil {
		m.observer.Observe(e)
	}
}
