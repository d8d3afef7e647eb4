// Package modal tracks which dialogs of a session are open.
//
// Dialogs are identified by the ID enum and owned by a Controller that is
// passed to the views that open them. Nothing looks a dialog up by name.
package modal

import (
	"errors"
	"fmt"
	"sync"
)

// ErrOpen is returned by Claim when the dialog is already showing.
var ErrOpen = errors.New("modal: dialog already open")

// ID identifies a dialog.
type ID int

const (
	ListingDetail ID = iota + 1
	ConfirmDelete
	EditProfile
	UploadAvatar
	Notifications
)

var names = map[ID]string{
	ListingDetail: "listing-detail",
	ConfirmDelete: "confirm-delete",
	EditProfile:   "edit-profile",
	UploadAvatar:  "upload-avatar",
	Notifications: "notifications",
}

func (id ID) String() string {
	if name, ok := names[id]; ok {
		return name
	}
	return fmt.Sprintf("modal(%d)", int(id))
}

// Valid reports whether id is a known dialog.
func (id ID) Valid() bool {
	_, ok := names[id]
	return ok
}

// Parse converts the wire name sent by the browser into an ID.
func Parse(name string) (ID, error) {
	for id, n := range names {
		if n == name {
			return id, nil
		}
	}
	return 0, fmt.Errorf("modal: unknown dialog %q", name)
}

// MarshalText encodes the ID by name.
func (id ID) MarshalText() ([]byte, error) {
	if !id.Valid() {
		return nil, fmt.Errorf("modal: unknown dialog %d", int(id))
	}
	return []byte(id.String()), nil
}

// UnmarshalText decodes an ID from its name.
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Change is delivered to subscribers when a dialog opens or closes.
type Change struct {
	ID      ID   `json:"id"`
	Open    bool `json:"open"`
	Payload any  `json:"payload,omitempty"`
}

// Controller holds the open dialogs of one session.
type Controller struct {
	mu      sync.Mutex
	open    map[ID]any
	subs    map[uint64]func(Change)
	nextSub uint64
}

// NewController creates a controller with every dialog closed.
func NewController() *Controller {
	return &Controller{
		open: make(map[ID]any),
		subs: make(map[uint64]func(Change)),
	}
}

// Open shows dialog id with payload. Opening an open dialog replaces its
// payload.
func (c *Controller) Open(id ID, payload any) error {
	if !id.Valid() {
		return fmt.Errorf("modal: unknown dialog %d", int(id))
	}
	c.mu.Lock()
	c.open[id] = payload
	subs := c.subscribers()
	c.mu.Unlock()

	c.notify(subs, Change{ID: id, Open: true, Payload: payload})
	return nil
}

// Claim shows dialog id only if it is closed. A caller that claimed the
// dialog owns it until it calls Close.
func (c *Controller) Claim(id ID, payload any) error {
	if !id.Valid() {
		return fmt.Errorf("modal: unknown dialog %d", int(id))
	}
	c.mu.Lock()
	if _, ok := c.open[id]; ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrOpen, id)
	}
	c.open[id] = payload
	subs := c.subscribers()
	c.mu.Unlock()

	c.notify(subs, Change{ID: id, Open: true, Payload: payload})
	return nil
}

// Close hides dialog id. Closing a closed dialog does nothing.
func (c *Controller) Close(id ID) {
	c.mu.Lock()
	if _, ok := c.open[id]; !ok {
		c.mu.Unlock()
		return
	}
	delete(c.open, id)
	subs := c.subscribers()
	c.mu.Unlock()

	c.notify(subs, Change{ID: id})
}

// CloseAll hides every dialog.
func (c *Controller) CloseAll() {
	c.mu.Lock()
	ids := make([]ID, 0, len(c.open))
	for id := range c.open {
		ids = append(ids, id)
	}
	c.mu.Unlock()

	for _, id := range ids {
		c.Close(id)
	}
}

func (c *Controller) IsOpen(id ID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.open[id]
	return ok
}

// Payload returns the payload dialog id was opened with.
func (c *Controller) Payload(id ID) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.open[id]
	return p, ok
}

// PayloadAs returns the payload of dialog id as a T.
func PayloadAs[T any](c *Controller, id ID) (T, bool) {
	p, ok := c.Payload(id)
	if !ok {
		var zero T
		return zero, false
	}
	v, ok := p.(T)
	return v, ok
}

// Subscribe registers fn for open and close changes.
func (c *Controller) Subscribe(fn func(Change)) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

func (c *Controller) subscribers() []func(Change) {
	subs := make([]func(Change), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	return subs
}

func (c *Controller) notify(subs []func(Change), ch Change) {
	for _, fn := range subs {
		fn(ch)
	}
}
