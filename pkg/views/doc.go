// Package views implements the dashboard components of the marketplace.
//
// A view mounts one or more optimistic collections from server data,
// renders them to a JSON snapshot and turns user intents into changes:
//
//	skills, err := views.NewSkillsEditor(ctx, env)
//	unsubscribe := skills.Subscribe(func() { send(skills.Snapshot()) })
//	skills.Add("Go")     // displayed at once, PUT /users/{id}/skills queued
//	skills.Add("go")     // warning pop-up, nothing sent
//
// Every failure ends at the view that caused it: the view rolls its state
// back and shows the pop-up. Nothing is reported to the caller except
// malformed intents.
//
// Views never block on the user. Intents that ask for confirmation or
// perform a search run in their own goroutine and report through
// Subscribe; their blocking counterparts (Delete, Search) are exported for
// callers that want the result.
package views
