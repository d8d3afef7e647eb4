// Package optimistic applies user changes to view state immediately and
// persists them in the background, rolling back when the backend refuses.
//
// # How It Works
//
// A Mutator holds two snapshots of one collection: the last state the
// backend confirmed (committed) and the state the user sees (displayed).
// Apply computes the next state, checks it against the collection's
// Policy and makes it visible before any network I/O:
//
//  1. An unchanged state returns ErrNoop. Nothing is sent.
//  2. A policy violation returns a *RejectedError. Nothing is sent.
//  3. Otherwise the change is displayed and queued.
//
// One worker per Mutator issues the queued writes in order. When a write's
// turn comes its change is re-applied to the committed state, so a rollback
// only ever removes the failed change:
//
//	displayed = committed + pending[0] + pending[1] + ...
//
// A failed write drops its change and recomputes the displayed state from
// what remains. OnError runs exactly once for it. A successful write
// advances the committed state and calls OnSuccess, which is where views
// invalidate their read models.
//
// # Example Usage
//
//	skills := optimistic.New(optimistic.NewList(profile.Skills...),
//	    optimistic.WithName[optimistic.List[string]]("skills"),
//	    optimistic.WithPolicy(optimistic.NoDuplicates(strings.ToLower, "Skill already listed")),
//	    optimistic.WithOnError(func(op *optimistic.Operation[optimistic.List[string]], err error) {
//	        notifier.Notify(notify.Error("Could not save", err.Error()))
//	    }),
//	)
//	defer skills.Close()
//
//	op, err := skills.Apply(optimistic.Add("Go", func(ctx context.Context, _ optimistic.List[string]) error {
//	    return client.AddSkill(ctx, api.AddSkillRequest{UserID: id, Skill: "Go"})
//	}))
//
// Close is the unmount signal: queued operations end Abandoned and late
// completions are dropped without callbacks.
package optimistic
