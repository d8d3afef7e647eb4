package views

import (
	"context"
	"sync"

	"github.com/vango-dev/gigmarket/pkg/api"
	"github.com/vango-dev/gigmarket/pkg/modal"
	"github.com/vango-dev/gigmarket/pkg/resource"
)

// ListingDetail shows the listing the ListingDetail dialog was opened
// with. It loads the listing when the dialog opens and drops it when the
// dialog closes.
type ListingDetail struct {
	*base

	mu      sync.Mutex
	id      string
	res     *resource.Resource[api.Listing]
	release func()
}

// NewListingDetail follows the session's modal controller.
func NewListingDetail(env Env) *ListingDetail {
	v := &ListingDetail{base: newBase("detail", env)}
	unsubscribe := v.env.Modals.Subscribe(v.onModal)
	v.onClose(v.drop, unsubscribe)

	if id, ok := modal.PayloadAs[string](v.env.Modals, modal.ListingDetail); ok {
		v.show(id)
	}
	return v
}

func (v *ListingDetail) onModal(ch modal.Change) {
	if ch.ID != modal.ListingDetail {
		return
	}
	id, _ := ch.Payload.(string)
	if ch.Open && id != "" {
		v.show(id)
		return
	}
	v.drop()
	v.changed()
}

func (v *ListingDetail) show(id string) {
	v.drop()

	client := v.env.Client
	res := resource.New(listingKey(id), func(ctx context.Context) (api.Listing, error) {
		return client.GetListing(ctx, api.GetListingRequest{ID: id})
	}, resource.WithOnError(func(err error) {
		v.logger.Debug("load listing", "listing", id, "error", err)
		v.changed()
	}))
	unsubscribe := res.Subscribe(func(api.Listing) { v.changed() })
	unregister := v.env.Registry.Add(res)

	v.mu.Lock()
	v.id = id
	v.res = res
	v.release = func() {
		unregister()
		unsubscribe()
		res.Close()
	}
	v.mu.Unlock()
	v.changed()
}

func (v *ListingDetail) drop() {
	v.mu.Lock()
	release := v.release
	v.id, v.res, v.release = "", nil, nil
	v.mu.Unlock()
	if release != nil {
		release()
	}
}

// Await waits for the shown listing to load.
func (v *ListingDetail) Await(ctx context.Context) (api.Listing, error) {
	v.mu.Lock()
	res := v.res
	v.mu.Unlock()
	if res == nil {
		return api.Listing{}, ErrUnknownItem
	}
	return res.Await(ctx)
}

// DetailSnapshot is the rendered state of a ListingDetail.
type DetailSnapshot struct {
	Open        bool              `json:"open"`
	ID          string            `json:"id,omitempty"`
	State       string            `json:"state,omitempty"`
	Error       string            `json:"error,omitempty"`
	Title       string            `json:"title,omitempty"`
	Company     string            `json:"company,omitempty"`
	Location    string            `json:"location,omitempty"`
	Kind        api.ListingKind   `json:"kind,omitempty"`
	Status      api.ListingStatus `json:"status,omitempty"`
	Applicants  int               `json:"applicants,omitempty"`
	Created     string            `json:"created,omitempty"`
	Deadline    string            `json:"deadline,omitempty"`
	Description string            `json:"description,omitempty"` // sanitized HTML
}

func (v *ListingDetail) Snapshot() any {
	v.mu.Lock()
	id, res := v.id, v.res
	v.mu.Unlock()

	if res == nil {
		return DetailSnapshot{}
	}
	snap := DetailSnapshot{Open: true, ID: id, State: res.State().String()}
	switch res.State() {
	case resource.Error:
		snap.Error = describeLoad(res.Error())
	case resource.Ready:
		l := res.Data()
		snap.Title = l.Title
		snap.Company = l.Company
		snap.Location = l.Location
		snap.Kind = l.Kind
		snap.Status = l.Status
		snap.Applicants = l.Applicants
		snap.Created = FormatDate(l.CreatedAt)
		snap.Deadline = FormatDate(l.Deadline)
		snap.Description = RenderMarkdown(l.Description)
	}
	return snap
}

func describeLoad(err error) string {
	if api.IsStatus(err, 404) {
		return "This listing no longer exists."
	}
	return "The listing could not be loaded."
}

// Handle accepts "open" (id) and "close".
func (v *ListingDetail) Handle(_ context.Context, in Intent) error {
	switch in.Action {
	case "open":
		return v.env.Modals.Open(modal.ListingDetail, in.Arg("id"))
	case "close":
		v.env.Modals.Close(modal.ListingDetail)
		return nil
	default:
		return unknownAction(v.name, in)
	}
}
