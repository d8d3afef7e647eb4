// Package server is the HTTP front of the dashboard.
//
// Routes:
//
//	GET  /ws              WebSocket; one session.Session per connection
//	POST /uploads/avatar  multipart image upload
//	GET  /search          listing search as JSON
//	GET  /healthz         dependency checks
//	GET  /metrics         Prometheus collectors
//	GET  /media/*         disk uploads, local development only
//
// The server sits behind an auth proxy that sets X-User-ID and X-User-Role
// and passes the user's bearer token through, either in the Authorization
// header or as the access_token query parameter.
//
//	srv := server.New(server.Options{
//	    Config:   server.Config{Address: ":8080"},
//	    Client:   client,
//	    Sessions: session.NewManager(store, session.ManagerConfig{}, logger),
//	})
//	err := srv.Run(ctx)
package server
