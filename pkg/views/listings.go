package views

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/vango-dev/gigmarket/pkg/api"
	"github.com/vango-dev/gigmarket/pkg/confirm"
	"github.com/vango-dev/gigmarket/pkg/modal"
	"github.com/vango-dev/gigmarket/pkg/notify"
	"github.com/vango-dev/gigmarket/pkg/optimistic"
)

// DefaultPageSize is the number of rows per listings page.
const DefaultPageSize = 10

// Scope selects the listings a table shows.
type Scope struct {
	Kind    api.ListingKind
	Status  api.ListingStatus
	OwnerID string
}

// Sortable listing columns.
const (
	SortTitle      = "title"
	SortCreated    = "created"
	SortDeadline   = "deadline"
	SortApplicants = "applicants"
	SortStatus     = "status"
)

// ListingTable is the listings table of the employer, mentor and admin
// dashboards. Deleting a listing asks for confirmation first.
type ListingTable struct {
	*base
	scope Scope
	ids   *collection[optimistic.List[string], []api.Listing]

	mu       sync.RWMutex
	listings map[string]api.Listing
	query    string
	status   api.ListingStatus
	sortBy   string
	desc     bool
	page     int
	pageSize int
}

// NewListingTable loads the listings in scope.
func NewListingTable(ctx context.Context, env Env, name string, scope Scope) (*ListingTable, error) {
	v := &ListingTable{
		base:     newBase(name, env),
		scope:    scope,
		listings: make(map[string]api.Listing),
		sortBy:   SortCreated,
		desc:     true,
		page:     1,
	}
	v.pageSize = v.env.PageSize
	client := v.env.Client

	ids, err := mount(ctx, v.base, mountConfig[optimistic.List[string], []api.Listing]{
		name: name,
		key:  listingsKey,
		fetch: func(ctx context.Context) ([]api.Listing, error) {
			return client.ListListings(ctx, api.ListListingsRequest{Kind: scope.Kind, Status: scope.Status, OwnerID: scope.OwnerID})
		},
		state: func(listings []api.Listing) optimistic.List[string] {
			ids := make([]string, len(listings))
			for i, l := range listings {
				ids[i] = l.ID
			}
			return optimistic.NewList(ids...)
		},
		loaded:    v.loaded,
		failTitle: "Could not delete listing",
		onSuccess: v.deleted,
	})
	if err != nil {
		v.Close()
		return nil, err
	}
	v.ids = ids
	return v, nil
}

func (v *ListingTable) loaded(listings []api.Listing) {
	byID := make(map[string]api.Listing, len(listings))
	for _, l := range listings {
		byID[l.ID] = l
	}
	v.mu.Lock()
	v.listings = byID
	v.mu.Unlock()

	if v.env.Indexer != nil {
		if err := v.env.Indexer.IndexListings(v.ctx, listings); err != nil {
			v.logger.Warn("index listings", "error", err)
		}
	}
}

func (v *ListingTable) deleted(op *optimistic.Operation[optimistic.List[string]]) {
	id := op.Change.Target
	title := id
	v.mu.RLock()
	if l, ok := v.listings[id]; ok {
		title = l.Title
	}
	v.mu.RUnlock()

	if v.env.Indexer != nil {
		if err := v.env.Indexer.DeleteListing(v.ctx, id); err != nil {
			v.logger.Warn("remove listing from index", "listing", id, "error", err)
		}
	}
	v.env.Notifier.Notify(notify.Success("Listing deleted", fmt.Sprintf("%q has been deleted.", title)))
}

// Listing returns a listing shown in the table.
func (v *ListingTable) Listing(id string) (api.Listing, bool) {
	if !v.ids.mut.State().Contains(id) {
		return api.Listing{}, false
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	l, ok := v.listings[id]
	return l, ok
}

// IDs returns the displayed listing IDs in server order.
func (v *ListingTable) IDs() []string {
	return v.ids.mut.State().Items()
}

// Delete asks for confirmation and then removes the listing optimistically.
// ran is false when the user declined. Delete blocks until the user
// answers; Handle runs it in the background. Only one delete can wait for
// confirmation at a time; another returns ErrBusy.
func (v *ListingTable) Delete(ctx context.Context, id string) (ran bool, op *optimistic.Operation[optimistic.List[string]], err error) {
	listing, ok := v.Listing(id)
	if !ok {
		return false, nil, fmt.Errorf("%w: listing %q", ErrUnknownItem, id)
	}

	modals := v.env.Modals
	if err := modals.Claim(modal.ConfirmDelete, id); err != nil {
		if errors.Is(err, modal.ErrOpen) {
			return false, nil, fmt.Errorf("%w: delete %q", ErrBusy, id)
		}
		return false, nil, err
	}
	defer modals.Close(modal.ConfirmDelete)

	prompt := confirm.Prompt{
		Title:             "Delete listing?",
		Text:              fmt.Sprintf("%q will be removed for everyone. This cannot be undone.", listing.Title),
		Icon:              notify.IconWarning,
		ConfirmButtonText: "Delete",
		CancelButtonText:  "Keep",
	}
	client := v.env.Client
	ran, err = confirm.Guard(ctx, v.env.Gate, prompt, func() error {
		change := optimistic.Remove(id, func(ctx context.Context, _ optimistic.List[string]) error {
			return client.DeleteListing(ctx, api.DeleteListingRequest{ID: id})
		}).Invalidating(listingsKey)

		var applyErr error
		op, applyErr = submit(v.base, v.ids.mut, change)
		return applyErr
	})
	return ran, op, err
}

// SetFilter filters rows by text and status and returns to the first page.
func (v *ListingTable) SetFilter(query string, status api.ListingStatus) {
	v.mu.Lock()
	v.query = query
	v.status = status
	v.page = 1
	v.mu.Unlock()
	v.changed()
}

// SortBy sorts by column. Sorting by the current column flips the direction.
func (v *ListingTable) SortBy(column string) error {
	switch column {
	case SortTitle, SortCreated, SortDeadline, SortApplicants, SortStatus:
	default:
		return fmt.Errorf("%w: sort column %q", ErrUnknownItem, column)
	}
	v.mu.Lock()
	if v.sortBy == column {
		v.desc = !v.desc
	} else {
		v.sortBy = column
		v.desc = false
	}
	v.mu.Unlock()
	v.changed()
	return nil
}

// SetPage moves to page (1-based). It is clamped when rendering.
func (v *ListingTable) SetPage(page int) {
	v.mu.Lock()
	v.page = page
	v.mu.Unlock()
	v.changed()
}

// ListingRow is one rendered listing.
type ListingRow struct {
	ID         string            `json:"id"`
	Kind       api.ListingKind   `json:"kind"`
	Title      string            `json:"title"`
	Company    string            `json:"company,omitempty"`
	Location   string            `json:"location,omitempty"`
	Status     api.ListingStatus `json:"status"`
	Applicants int               `json:"applicants"`
	Created    string            `json:"created"`
	Deadline   string            `json:"deadline,omitempty"`
}

// ListingsSnapshot is the rendered state of a ListingTable.
type ListingsSnapshot struct {
	Rows    Page[ListingRow] `json:"rows"`
	Query   string           `json:"query,omitempty"`
	Status  string           `json:"status,omitempty"`
	Sort    string           `json:"sort"`
	Desc    bool             `json:"desc"`
	Pending int              `json:"pending"`
}

// rows returns the displayed listings filtered and sorted.
func (v *ListingTable) rows() []api.Listing {
	ids := v.ids.mut.State().Items()

	v.mu.RLock()
	listings := make([]api.Listing, 0, len(ids))
	for _, id := range ids {
		if l, ok := v.listings[id]; ok {
			listings = append(listings, l)
		}
	}
	query, status, column, desc := v.query, v.status, v.sortBy, v.desc
	v.mu.RUnlock()

	listings = Filter(listings, func(l api.Listing) bool {
		if status != "" && l.Status != status {
			return false
		}
		return containsFold(query, l.Title, l.Company, l.Location)
	})

	switch column {
	case SortTitle:
		return SortBy(listings, func(l api.Listing) string { return strings.ToLower(l.Title) }, desc)
	case SortDeadline:
		return SortBy(listings, func(l api.Listing) int64 { return l.Deadline.Unix() }, desc)
	case SortApplicants:
		return SortBy(listings, func(l api.Listing) int { return l.Applicants }, desc)
	case SortStatus:
		return SortBy(listings, func(l api.Listing) string { return string(l.Status) }, desc)
	default:
		return SortBy(listings, func(l api.Listing) int64 { return l.CreatedAt.UnixNano() }, desc)
	}
}

func (v *ListingTable) Snapshot() any {
	listings := v.rows()

	v.mu.RLock()
	page, size := v.page, v.pageSize
	snap := ListingsSnapshot{Query: v.query, Status: string(v.status), Sort: v.sortBy, Desc: v.desc}
	v.mu.RUnlock()

	p := Paginate(listings, page, size)
	snap.Rows = Page[ListingRow]{Items: make([]ListingRow, len(p.Items)), Page: p.Page, Pages: p.Pages, Total: p.Total}
	for i, l := range p.Items {
		snap.Rows.Items[i] = ListingRow{
			ID:         l.ID,
			Kind:       l.Kind,
			Title:      l.Title,
			Company:    l.Company,
			Location:   l.Location,
			Status:     l.Status,
			Applicants: l.Applicants,
			Created:    FormatDate(l.CreatedAt),
			Deadline:   FormatDate(l.Deadline),
		}
	}
	snap.Pending = v.ids.mut.Pending()
	return snap
}

// Handle accepts "filter" (query, status), "sort" (column), "page" (page),
// "open" (id) and "delete" (id). Delete waits for the confirmation in the
// background.
func (v *ListingTable) Handle(_ context.Context, in Intent) error {
	switch in.Action {
	case "filter":
		v.SetFilter(in.Arg("query"), api.ListingStatus(in.Arg("status")))
		return nil
	case "sort":
		return v.SortBy(in.Arg("column"))
	case "page":
		v.SetPage(in.Int("page", 1))
		return nil
	case "open":
		id := in.Arg("id")
		if _, ok := v.Listing(id); !ok {
			return fmt.Errorf("%w: listing %q", ErrUnknownItem, id)
		}
		return v.env.Modals.Open(modal.ListingDetail, id)
	case "delete":
		id := in.Arg("id")
		if _, ok := v.Listing(id); !ok {
			return fmt.Errorf("%w: listing %q", ErrUnknownItem, id)
		}
		v.async(func(ctx context.Context) {
			_, _, err := v.Delete(ctx, id)
			switch {
			case errors.Is(err, ErrBusy):
				v.env.Notifier.Notify(notify.Warning("Delete pending", "Answer the open confirmation first."))
			case !expected(err):
				v.logger.Warn("delete listing", "listing", id, "error", err)
			}
		})
		return nil
	default:
		return unknownAction(v.name, in)
	}
}
