package views

import (
	"context"
	"fmt"

	"github.com/vango-dev/gigmarket/pkg/optimistic"
	"github.com/vango-dev/gigmarket/pkg/resource"
)

// collection pairs the read model a view loads with the optimistic state
// derived from it. Every refetch of the read model reconciles the state.
type collection[S any, T any] struct {
	res *resource.Resource[T]
	mut *optimistic.Mutator[S]
}

type mountConfig[S any, T any] struct {
	name      string
	key       resource.Key
	fetch     resource.Fetcher[T]
	state     func(T) S
	policy    optimistic.Policy[S]
	failTitle string

	// loaded sees every fetch result before the state is reconciled.
	loaded func(T)

	onSuccess func(*optimistic.Operation[S])
}

// mount loads the read model, creates the mutator on top of it and ties
// both to the view's lifetime.
func mount[S any, T any](ctx context.Context, b *base, cfg mountConfig[S, T]) (*collection[S, T], error) {
	res := resource.New(cfg.key, cfg.fetch)
	data, err := res.Await(ctx)
	if err != nil {
		res.Close()
		return nil, fmt.Errorf("load %s: %w", cfg.key, err)
	}
	if cfg.loaded != nil {
		cfg.loaded(data)
	}

	env := b.env
	mut := optimistic.New(cfg.state(data),
		optimistic.WithName[S](cfg.name),
		optimistic.WithPolicy[S](cfg.policy),
		optimistic.WithObserver[S](env.Observer),
		optimistic.WithLogger[S](b.logger),
		optimistic.WithDispatcher[S](env.Dispatch),
		optimistic.WithWriteTimeout[S](env.WriteTimeout),
		optimistic.WithOnSuccess[S](func(op *optimistic.Operation[S]) {
			if len(op.Change.Invalidates) > 0 {
				env.Registry.Invalidate(op.Change.Invalidates...)
			}
			if cfg.onSuccess != nil {
				cfg.onSuccess(op)
			}
		}),
		optimistic.WithOnError[S](func(op *optimistic.Operation[S], err error) {
			b.logger.Debug("write failed", "op", op.ID, "target", op.Change.Target, "error", err)
			b.fail(cfg.failTitle, err)
		}),
	)

	unsubState := mut.Subscribe(func(S) { b.changed() })
	unsubData := res.Subscribe(func(data T) {
		if cfg.loaded != nil {
			cfg.loaded(data)
		}
		mut.Reconcile(cfg.state(data))
	})
	unregister := env.Registry.Add(res)

	b.onClose(res.Close, mut.Close, unsubData, unsubState, unregister)
	return &collection[S, T]{res: res, mut: mut}, nil
}

// submit queues change and warns the user when the policy refuses it.
func submit[S any](b *base, mut *optimistic.Mutator[S], change optimistic.Change[S]) (*optimistic.Operation[S], error) {
	op, err := mut.Apply(change)
	if optimistic.IsRejected(err) {
		b.warn(err)
	}
	return op, err
}
