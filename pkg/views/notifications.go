package views

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vango-dev/gigmarket/pkg/api"
	"github.com/vango-dev/gigmarket/pkg/modal"
	"github.com/vango-dev/gigmarket/pkg/optimistic"
)

// NotificationsDropdown lists notifications and marks them read. Its state
// is the set of read notification IDs.
type NotificationsDropdown struct {
	*base
	read *collection[optimistic.List[string], []api.Notification]

	mu    sync.RWMutex
	items []api.Notification
}

// NewNotificationsDropdown loads the notifications.
func NewNotificationsDropdown(ctx context.Context, env Env) (*NotificationsDropdown, error) {
	v := &NotificationsDropdown{base: newBase("notifications", env)}
	client, userID := v.env.Client, v.env.UserID

	read, err := mount(ctx, v.base, mountConfig[optimistic.List[string], []api.Notification]{
		name: "notifications",
		key:  notificationsKey(userID),
		fetch: func(ctx context.Context) ([]api.Notification, error) {
			return client.ListNotifications(ctx, api.ListNotificationsRequest{UserID: userID})
		},
		state: func(items []api.Notification) optimistic.List[string] {
			var ids []string
			for _, n := range items {
				if n.Read {
					ids = append(ids, n.ID)
				}
			}
			return optimistic.NewList(ids...)
		},
		loaded: func(items []api.Notification) {
			v.mu.Lock()
			v.items = items
			v.mu.Unlock()
		},
		failTitle: "Could not update notifications",
	})
	if err != nil {
		v.Close()
		return nil, err
	}
	v.read = read
	return v, nil
}

func (v *NotificationsDropdown) ids() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	ids := make([]string, len(v.items))
	for i, n := range v.items {
		ids[i] = n.ID
	}
	return ids
}

// Unread returns the number of notifications displayed as unread.
func (v *NotificationsDropdown) Unread() int {
	read := v.read.mut.State()
	n := 0
	for _, id := range v.ids() {
		if !read.Contains(id) {
			n++
		}
	}
	return n
}

// MarkRead marks one notification read. Marking a read one does nothing.
func (v *NotificationsDropdown) MarkRead(id string) (*optimistic.Operation[optimistic.List[string]], error) {
	known := false
	for _, n := range v.ids() {
		if n == id {
			known = true
			break
		}
	}
	if !known {
		return nil, fmt.Errorf("%w: notification %q", ErrUnknownItem, id)
	}

	client := v.env.Client
	change := optimistic.Member(id, true, func(ctx context.Context, _ optimistic.List[string]) error {
		return client.MarkRead(ctx, api.MarkReadRequest{NotificationID: id})
	}).Invalidating(notificationsKey(v.env.UserID))

	return submit(v.base, v.read.mut, change)
}

// MarkAllRead marks every listed notification read with a single request.
func (v *NotificationsDropdown) MarkAllRead() (*optimistic.Operation[optimistic.List[string]], error) {
	ids := v.ids()
	client, userID := v.env.Client, v.env.UserID

	change := optimistic.Set("read", func(read optimistic.List[string]) (optimistic.List[string], bool) {
		changed := false
		for _, id := range ids {
			var added bool
			read, added = read.With(id)
			changed = changed || added
		}
		return read, changed
	}, func(ctx context.Context, _ optimistic.List[string]) error {
		return client.MarkAllRead(ctx, api.MarkAllReadRequest{UserID: userID})
	}).Invalidating(notificationsKey(userID))

	return submit(v.base, v.read.mut, change)
}

// NotificationRow is one rendered notification.
type NotificationRow struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body,omitempty"`
	Link  string `json:"link,omitempty"`
	Read  bool   `json:"read"`
	When  string `json:"when,omitempty"`
}

// NotificationsSnapshot is the rendered state of the dropdown.
type NotificationsSnapshot struct {
	Open    bool              `json:"open"`
	Unread  int               `json:"unread"`
	Items   []NotificationRow `json:"items"`
	Pending int               `json:"pending"`
}

func (v *NotificationsDropdown) Snapshot() any {
	read := v.read.mut.State()
	now := time.Now()

	v.mu.RLock()
	items := v.items
	v.mu.RUnlock()

	snap := NotificationsSnapshot{
		Open:    v.env.Modals.IsOpen(modal.Notifications),
		Items:   make([]NotificationRow, 0, len(items)),
		Pending: v.read.mut.Pending(),
	}
	for _, n := range items {
		isRead := read.Contains(n.ID)
		if !isRead {
			snap.Unread++
		}
		snap.Items = append(snap.Items, NotificationRow{
			ID:    n.ID,
			Title: n.Title,
			Body:  n.Body,
			Link:  n.Link,
			Read:  isRead,
			When:  RelativeTime(n.CreatedAt, now),
		})
	}
	return snap
}

// Handle accepts "open", "close", "read" (id) and "read_all".
func (v *NotificationsDropdown) Handle(_ context.Context, in Intent) error {
	var err error
	switch in.Action {
	case "open":
		err = v.env.Modals.Open(modal.Notifications, nil)
		v.changed()
	case "close":
		v.env.Modals.Close(modal.Notifications)
		v.changed()
	case "read":
		_, err = v.MarkRead(in.Arg("id"))
	case "read_all":
		_, err = v.MarkAllRead()
	default:
		return unknownAction(v.name, in)
	}
	if expected(err) {
		return nil
	}
	return err
}
