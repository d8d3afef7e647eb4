package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apperrors "github.com/vango-dev/gigmarket/internal/errors"
	"github.com/vango-dev/gigmarket/pkg/api"
	"github.com/vango-dev/gigmarket/pkg/api/apitest"
)

func TestNewInvalidURL(t *testing.T) {
	for _, raw := range []string{"", "localhost", "://bad"} {
		if _, err := api.New(raw); err == nil {
			t.Errorf("New(%q) should fail", raw)
		}
	}
}

func TestGetProfile(t *testing.T) {
	backend := apitest.New(t)
	backend.Profiles["u1"] = &api.Profile{ID: "u1", Name: "Ada", Role: api.RoleMember, Skills: []string{"React"}}
	client := backend.Client(t).WithToken("secret")

	p, err := client.GetProfile(context.Background(), api.GetProfileRequest{UserID: "u1"})
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if p.Name != "Ada" || len(p.Skills) != 1 {
		t.Errorf("profile = %+v", p)
	}

	reqs := backend.Requests()
	if len(reqs) != 1 {
		t.Fatalf("requests = %d, want 1", len(reqs))
	}
	if got := reqs[0].Header.Get("Authorization"); got != "Bearer secret" {
		t.Errorf("Authorization = %q", got)
	}
}

func TestWritesSendJSONBodies(t *testing.T) {
	backend := apitest.New(t)
	backend.Profiles["u1"] = &api.Profile{ID: "u1"}
	client := backend.Client(t)
	ctx := context.Background()

	if err := client.AddSkill(ctx, api.AddSkillRequest{UserID: "u1", Skill: "Go"}); err != nil {
		t.Fatalf("AddSkill: %v", err)
	}
	if err := client.UpdateSetting(ctx, api.UpdateSettingRequest{UserID: "u1", Field: "emailAlerts", Value: true}); err != nil {
		t.Fatalf("UpdateSetting: %v", err)
	}

	writes := backend.Writes()
	if len(writes) != 2 {
		t.Fatalf("writes = %d, want 2", len(writes))
	}
	if writes[0].Method != http.MethodPut || writes[0].Path != "/users/u1/skills" || writes[0].Body["skill"] != "Go" {
		t.Errorf("add skill request = %+v", writes[0])
	}
	if _, leaked := writes[0].Body["UserID"]; leaked {
		t.Error("user id leaked into the body")
	}
	if writes[1].Body["field"] != "emailAlerts" || writes[1].Body["value"] != true {
		t.Errorf("setting request body = %v", writes[1].Body)
	}
}

func TestValidationBlocksRequest(t *testing.T) {
	backend := apitest.New(t)
	client := backend.Client(t)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{"empty skill", func() error {
			return client.AddSkill(ctx, api.AddSkillRequest{UserID: "u1", Skill: "  "})
		}},
		{"long skill", func() error {
			return client.AddSkill(ctx, api.AddSkillRequest{UserID: "u1", Skill: strings.Repeat("x", api.MaxSkillLength+1)})
		}},
		{"missing user", func() error {
			return client.AddSkill(ctx, api.AddSkillRequest{Skill: "Go"})
		}},
		{"path traversal id", func() error {
			return client.DeleteListing(ctx, api.DeleteListingRequest{ID: "../users"})
		}},
		{"bad setting name", func() error {
			return client.UpdateSetting(ctx, api.UpdateSettingRequest{UserID: "u1", Field: "Drop Table"})
		}},
		{"bad website", func() error {
			_, err := client.UpdateProfile(ctx, api.UpdateProfileRequest{UserID: "u1", Name: "Ada", Website: "not a url"})
			return err
		}},
		{"unknown kind", func() error {
			_, err := client.ListListings(ctx, api.ListListingsRequest{Kind: "contract"})
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if code := apperrors.Code(err); code != apperrors.ErrInvalidRequest {
				t.Errorf("code = %q, want %s", code, apperrors.ErrInvalidRequest)
			}
		})
	}

	if n := len(backend.Requests()); n != 0 {
		t.Errorf("invalid requests reached the backend: %d", n)
	}
}

func TestStatusError(t *testing.T) {
	backend := apitest.New(t)
	backend.Fail(http.MethodPut, "/documents/d1/star", http.StatusInternalServerError)
	client := backend.Client(t)

	err := client.StarDocument(context.Background(), api.StarDocumentRequest{DocumentID: "d1", Starred: true})
	var se *api.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("StarDocument error = %v, want *StatusError", err)
	}
	if se.Status != http.StatusInternalServerError || se.Code != "injected" {
		t.Errorf("status error = %+v", se)
	}
	if !api.IsStatus(err, http.StatusInternalServerError) {
		t.Error("IsStatus(500) = false")
	}

	_, err = client.GetListing(context.Background(), api.GetListingRequest{ID: "missing"})
	if !api.IsStatus(err, http.StatusNotFound) {
		t.Errorf("GetListing(missing) = %v, want 404", err)
	}
}

func TestStatusErrorPlainBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	client, err := api.New(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	err = client.MarkRead(context.Background(), api.MarkReadRequest{NotificationID: "n1"})
	var se *api.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("MarkRead error = %v", err)
	}
	if se.Message != "Bad Gateway" {
		t.Errorf("message = %q, want status text", se.Message)
	}
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client, err := api.New(srv.URL, api.WithTimeout(20*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	err = client.MarkAllRead(context.Background(), api.MarkAllReadRequest{UserID: "u1"})
	if code := apperrors.Code(err); code != apperrors.ErrBackendRequest {
		t.Errorf("code = %q (%v), want %s", code, err, apperrors.ErrBackendRequest)
	}
}

func TestListListingsQuery(t *testing.T) {
	backend := apitest.New(t)
	backend.Listings["l1"] = api.Listing{ID: "l1", Kind: api.KindJob, OwnerID: "e1", Status: api.StatusOpen}
	backend.Listings["l2"] = api.Listing{ID: "l2", Kind: api.KindGig, OwnerID: "e1", Status: api.StatusOpen}
	backend.Listings["l3"] = api.Listing{ID: "l3", Kind: api.KindJob, OwnerID: "e2", Status: api.StatusOpen}
	client := backend.Client(t)

	got, err := client.ListListings(context.Background(), api.ListListingsRequest{Kind: api.KindJob, OwnerID: "e1"})
	if err != nil {
		t.Fatalf("ListListings: %v", err)
	}
	if len(got) != 1 || got[0].ID != "l1" {
		t.Errorf("listings = %+v", got)
	}
	if q := backend.Requests()[0].Query; !strings.Contains(q, "kind=job") || !strings.Contains(q, "owner=e1") {
		t.Errorf("query = %q", q)
	}
}

func TestNotificationsEndpoints(t *testing.T) {
	backend := apitest.New(t)
	backend.Notifications["u1"] = []api.Notification{{ID: "n1"}, {ID: "n2"}}
	client := backend.Client(t)
	ctx := context.Background()

	if err := client.MarkRead(ctx, api.MarkReadRequest{NotificationID: "n1"}); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	list, err := client.ListNotifications(ctx, api.ListNotificationsRequest{UserID: "u1"})
	if err != nil {
		t.Fatalf("ListNotifications: %v", err)
	}
	if !list[0].Read || list[1].Read {
		t.Errorf("after MarkRead: %+v", list)
	}

	if err := client.MarkAllRead(ctx, api.MarkAllReadRequest{UserID: "u1"}); err != nil {
		t.Fatalf("MarkAllRead: %v", err)
	}
	list, _ = client.ListNotifications(ctx, api.ListNotificationsRequest{UserID: "u1"})
	for _, n := range list {
		if !n.Read {
			t.Errorf("%s unread after MarkAllRead", n.ID)
		}
	}
}
