// Package session serves one browser connection per Session and keeps the
// records needed to resume it.
//
// # Sessions
//
// A Session owns a WebSocket connection and the dashboard mounted for the
// signed-in user. The browser sends JSON messages:
//
//	{"type":"intent","data":{"view":"listings","action":"delete","args":{"id":"l1"}}}
//	{"type":"confirm","data":{"id":"...","confirmed":true}}
//	{"type":"modal","data":{"id":"edit-profile","open":false}}
//
// and receives hello, state, popup, confirm, modal and error messages.
// Intents, completion callbacks and renders all run on the session's event
// loop, one at a time.
//
// # Resuming
//
// The Manager keeps a Record for every disconnected session for its resume
// window. The record holds the user, role, token and the last filter and
// search intents; live view data is always reloaded from the backend.
//
//	store, err := session.NewRedisStore(ctx, "redis://localhost:6379/0")
//	// or
//	store := session.NewMemoryStore()
//
//	manager := session.NewManager(store, session.ManagerConfig{
//	    MaxDetachedSessions: 10000,
//	    MaxSessionsPerIP:    100,
//	    ResumeWindow:        5 * time.Minute,
//	}, logger)
package session
