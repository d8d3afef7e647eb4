package views

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vango-dev/gigmarket/pkg/api"
	"github.com/vango-dev/gigmarket/pkg/optimistic"
)

// MaxStarred is the default number of documents a member can star.
const MaxStarred = 3

// StarredDocuments lists a member's documents and lets them star up to
// Env.MaxStarred of them.
type StarredDocuments struct {
	*base
	starred *collection[optimistic.List[string], []api.Document]
	max     int

	mu   sync.RWMutex
	docs []api.Document
}

// NewStarredDocuments loads the documents and mounts the starred set.
func NewStarredDocuments(ctx context.Context, env Env) (*StarredDocuments, error) {
	v := &StarredDocuments{base: newBase("starred", env)}
	client, userID, limit := v.env.Client, v.env.UserID, v.env.MaxStarred
	v.max = limit

	starred, err := mount(ctx, v.base, mountConfig[optimistic.List[string], []api.Document]{
		name: "starred_documents",
		key:  documentsKey(userID),
		fetch: func(ctx context.Context) ([]api.Document, error) {
			return client.ListDocuments(ctx, api.ListDocumentsRequest{UserID: userID})
		},
		state: func(docs []api.Document) optimistic.List[string] {
			var ids []string
			for _, d := range docs {
				if d.Starred {
					ids = append(ids, d.ID)
				}
			}
			return optimistic.NewList(ids...)
		},
		loaded: func(docs []api.Document) {
			v.mu.Lock()
			v.docs = docs
			v.mu.Unlock()
		},
		policy: optimistic.MaxItems[optimistic.List[string]](limit,
			"Limit reached", fmt.Sprintf("You can star at most %d documents.", limit)),
		failTitle: "Could not update starred documents",
	})
	if err != nil {
		v.Close()
		return nil, err
	}
	v.starred = starred
	return v, nil
}

func (v *StarredDocuments) known(id string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, d := range v.docs {
		if d.ID == id {
			return true
		}
	}
	return false
}

// Starred returns the IDs of the displayed starred documents.
func (v *StarredDocuments) Starred() []string {
	return v.starred.mut.State().Items()
}

// IsStarred reports whether id is displayed as starred.
func (v *StarredDocuments) IsStarred(id string) bool {
	return v.starred.mut.State().Contains(id)
}

func (v *StarredDocuments) change(id string, starred bool) optimistic.Change[optimistic.List[string]] {
	client := v.env.Client
	return optimistic.Member(id, starred, func(ctx context.Context, _ optimistic.List[string]) error {
		return client.StarDocument(ctx, api.StarDocumentRequest{DocumentID: id, Starred: starred})
	}).Invalidating(documentsKey(v.env.UserID))
}

// CanStar reports whether the star button of id is enabled: unstarring is
// always possible, starring only below the limit.
func (v *StarredDocuments) CanStar(id string) bool {
	if v.IsStarred(id) {
		return true
	}
	return v.starred.mut.Check(v.change(id, true)) == nil
}

// Toggle stars or unstars a document. Starring beyond the limit shows
// "Limit reached" and sends nothing.
func (v *StarredDocuments) Toggle(id string) (*optimistic.Operation[optimistic.List[string]], error) {
	if !v.known(id) {
		return nil, fmt.Errorf("%w: document %q", ErrUnknownItem, id)
	}
	return submit(v.base, v.starred.mut, v.change(id, !v.IsStarred(id)))
}

// DocumentRow is one rendered document.
type DocumentRow struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	URL      string `json:"url,omitempty"`
	Starred  bool   `json:"starred"`
	Disabled bool   `json:"disabled"`
	Updated  string `json:"updated,omitempty"`
}

// StarredSnapshot is the rendered state of StarredDocuments.
type StarredSnapshot struct {
	Documents []DocumentRow `json:"documents"`
	Starred   int           `json:"starred"`
	Max       int           `json:"max"`
	Pending   int           `json:"pending"`
}

func (v *StarredDocuments) Snapshot() any {
	state := v.starred.mut.State()
	now := time.Now()

	v.mu.RLock()
	docs := v.docs
	v.mu.RUnlock()

	rows := make([]DocumentRow, 0, len(docs))
	full := state.Len() >= v.max
	for _, d := range docs {
		starred := state.Contains(d.ID)
		rows = append(rows, DocumentRow{
			ID:       d.ID,
			Title:    d.Title,
			URL:      d.URL,
			Starred:  starred,
			Disabled: full && !starred,
			Updated:  RelativeTime(d.UpdatedAt, now),
		})
	}
	return StarredSnapshot{Documents: rows, Starred: state.Len(), Max: v.max, Pending: v.starred.mut.Pending()}
}

// Handle accepts "toggle" with an "id" argument.
func (v *StarredDocuments) Handle(_ context.Context, in Intent) error {
	if in.Action != "toggle" {
		return unknownAction(v.name, in)
	}
	_, err := v.Toggle(in.Arg("id"))
	if expected(err) {
		return nil
	}
	return err
}
