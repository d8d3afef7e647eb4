// Package resource provides the remote data cache used by the console views.
//
// A Resource holds the authoritative server state for one read model
// (a user's skills, the document list, a listing page) and handles the
// fetch lifecycle:
//
//   - Pending, Loading, Ready and Error states
//   - Stale time and forced refetch
//   - Retry on error
//   - Ignoring results of outdated fetches
//
// Read models are identified by a Key. Views declare which keys a change
// affects and the Registry invalidates them once the change is committed,
// so reconciliation with the server never depends on ad hoc refetch calls
// scattered through handlers.
//
// Basic Usage:
//
//	skills := resource.New(resource.KeyOf("users", id, "skills"),
//	    func(ctx context.Context) ([]string, error) {
//	        return client.ListSkills(ctx, id)
//	    },
//	    resource.WithStaleTime(30*time.Second),
//	)
//	registry.Add(skills)
//
//	// after a successful write:
//	registry.Invalidate(resource.KeyOf("users", id, "skills"))
package resource
