package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/vango-dev/gigmarket/pkg/api"
	"github.com/vango-dev/gigmarket/pkg/views"
)

// Record is the resumable part of a session: who is signed in and the view
// preferences to restore after a reconnect. Live view state is not stored;
// it is reloaded from the backend.
type Record struct {
	ID     string   `json:"id"`
	UserID string   `json:"user_id"`
	Role   api.Role `json:"role"`

	// Token is forwarded to the backend as a bearer token.
	Token string `json:"token,omitempty"`

	// Preferences holds the last filter-like intent per view and action,
	// keyed "view/action". They are replayed on resume.
	Preferences map[string]views.Intent `json:"preferences,omitempty"`

	CreatedAt  time.Time `json:"created_at"`
	LastActive time.Time `json:"last_active"`

	// Version is the serialization format version.
	Version int `json:"version"`
}

// CurrentVersion is the current version of the serialization format.
// Increment when making breaking changes to the format.
const CurrentVersion = 1

// ErrUnsupportedVersion is returned by Decode for records written by an
// incompatible server version.
var ErrUnsupportedVersion = errors.New("session: unsupported record version")

// preferenceActions are the intents remembered across reconnects.
var preferenceActions = map[string]bool{
	"filter": true,
	"search": true,
}

// Remember stores in as a preference if it is one.
func (r *Record) Remember(in views.Intent) bool {
	if !preferenceActions[in.Action] {
		return false
	}
	if r.Preferences == nil {
		r.Preferences = make(map[string]views.Intent)
	}
	in.Args = maps.Clone(in.Args)
	r.Preferences[in.View+"/"+in.Action] = in
	return true
}

// Validate checks that the record identifies a user.
func (r *Record) Validate() error {
	switch {
	case r.ID == "":
		return errors.New("session: record has no id")
	case r.UserID == "":
		return errors.New("session: record has no user")
	case !r.Role.Valid():
		return fmt.Errorf("session: invalid role %q", r.Role)
	}
	return nil
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	cp := *r
	if r.Preferences != nil {
		cp.Preferences = make(map[string]views.Intent, len(r.Preferences))
		for k, in := range r.Preferences {
			in.Args = maps.Clone(in.Args)
			cp.Preferences[k] = in
		}
	}
	return &cp
}

// Encode converts a record to bytes.
func Encode(r *Record) ([]byte, error) {
	cp := *r
	cp.Version = CurrentVersion
	return json.Marshal(&cp)
}

// Decode converts bytes back to a record.
func Decode(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("session: decode record: %w", err)
	}
	if r.Version != CurrentVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, r.Version)
	}
	return &r, nil
}
