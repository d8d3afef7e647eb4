package server

import (
	"errors"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/vango-dev/gigmarket/pkg/api"
	"github.com/vango-dev/gigmarket/pkg/session"
)

// Identity headers set by the auth proxy in front of the server.
const (
	HeaderUserID = "X-User-ID"
	HeaderRole   = "X-User-Role"
)

// identity is who is connecting. The auth proxy authenticates the user;
// the server only forwards the token to the backend.
type identity struct {
	userID string
	role   api.Role
	token  string
}

func identify(r *http.Request) (identity, error) {
	id := identity{
		userID: r.Header.Get(HeaderUserID),
		role:   api.Role(r.Header.Get(HeaderRole)),
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		id.token = strings.TrimPrefix(auth, "Bearer ")
	} else {
		// browsers cannot set headers on a WebSocket handshake
		id.token = r.URL.Query().Get("access_token")
	}

	switch {
	case id.userID == "":
		return id, errors.New("missing user")
	case !id.role.Valid():
		return id, errors.New("missing or unknown role")
	}
	return id, nil
}

// handleWebSocket upgrades the connection and starts a session. A
// "session" query parameter resumes a detached session of the same user.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	id, err := identify(r)
	if err != nil {
		http.Error(w, "Unauthorized: "+err.Error(), http.StatusUnauthorized)
		return
	}
	ip := s.clientIP(r)

	rec, resumed, err := s.opts.Sessions.Open(r.Context(), session.OpenRequest{
		SessionID: r.URL.Query().Get("session"),
		UserID:    id.userID,
		Role:      id.role,
		Token:     id.token,
		IP:        ip,
	})
	switch {
	case errors.Is(err, session.ErrTooManySessionsFromIP):
		http.Error(w, "Too many sessions", http.StatusTooManyRequests)
		return
	case errors.Is(err, session.ErrManagerStopped):
		http.Error(w, "Shutting down", http.StatusServiceUnavailable)
		return
	case err != nil:
		s.logger.Error("session open failed", "user_id", id.userID, "error", err)
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already answered the client
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	opts := session.Options{
		Config:  s.config.Session,
		Env:     s.env(),
		Logger:  s.logger,
		Resumed: resumed,
		OnClose: s.opts.Sessions.Detach,
	}
	if s.opts.Metrics != nil {
		opts.Hooks = s.opts.Metrics
	}
	sess := session.New(conn, rec, opts)
	if err := s.opts.Sessions.Register(sess, ip); err != nil {
		s.logger.Warn("session rejected", "session_id", rec.ID, "error", err)
		sess.Close()
		return
	}
	if err := sess.Start(r.Context()); err != nil {
		s.logger.Warn("session start failed", "session_id", rec.ID, "error", err)
	}
}

// checkOrigin accepts the listed origins. With none listed only same-origin
// requests are accepted.
func checkOrigin(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return nil // gorilla's same-origin check
	}
	if slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		for _, a := range allowed {
			if strings.EqualFold(a, origin) || strings.EqualFold(a, u.Host) {
				return true
			}
		}
		return false
	}
}
