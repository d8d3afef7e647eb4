package modal

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestOpenClose(t *testing.T) {
	c := NewController()
	var changes []Change
	unsubscribe := c.Subscribe(func(ch Change) { changes = append(changes, ch) })

	if err := c.Open(ListingDetail, "listing-7"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !c.IsOpen(ListingDetail) {
		t.Error("ListingDetail should be open")
	}
	if c.IsOpen(EditProfile) {
		t.Error("EditProfile should be closed")
	}
	if p, ok := PayloadAs[string](c, ListingDetail); !ok || p != "listing-7" {
		t.Errorf("PayloadAs = %q, %v", p, ok)
	}
	if _, ok := PayloadAs[int](c, ListingDetail); ok {
		t.Error("PayloadAs with the wrong type succeeded")
	}

	c.Close(ListingDetail)
	c.Close(ListingDetail)
	if c.IsOpen(ListingDetail) {
		t.Error("ListingDetail should be closed")
	}

	if len(changes) != 2 {
		t.Fatalf("changes = %d, want 2", len(changes))
	}
	if !changes[0].Open || changes[1].Open {
		t.Errorf("changes = %+v", changes)
	}

	unsubscribe()
	c.Open(Notifications, nil)
	if len(changes) != 2 {
		t.Error("unsubscribed callback was called")
	}
}

func TestClaim(t *testing.T) {
	c := NewController()
	var opened int
	c.Subscribe(func(ch Change) {
		if ch.Open {
			opened++
		}
	})

	if err := c.Claim(ConfirmDelete, "l1"); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if err := c.Claim(ConfirmDelete, "l2"); !errors.Is(err, ErrOpen) {
		t.Errorf("second Claim err = %v, want ErrOpen", err)
	}
	if p, _ := PayloadAs[string](c, ConfirmDelete); p != "l1" {
		t.Errorf("payload = %q, want the first claim's", p)
	}
	if opened != 1 {
		t.Errorf("open notifications = %d, want 1", opened)
	}

	c.Close(ConfirmDelete)
	if err := c.Claim(ConfirmDelete, "l2"); err != nil {
		t.Errorf("Claim after Close: %v", err)
	}
	if err := c.Claim(ID(42), nil); err == nil || errors.Is(err, ErrOpen) {
		t.Errorf("Claim(unknown) err = %v", err)
	}
}

func TestOpenUnknown(t *testing.T) {
	c := NewController()
	if err := c.Open(ID(42), nil); err == nil {
		t.Error("expected error for unknown dialog")
	}
}

func TestCloseAll(t *testing.T) {
	c := NewController()
	c.Open(ListingDetail, nil)
	c.Open(UploadAvatar, nil)
	c.CloseAll()
	for _, id := range []ID{ListingDetail, UploadAvatar} {
		if c.IsOpen(id) {
			t.Errorf("%v still open", id)
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		want    ID
		wantErr bool
	}{
		{"listing-detail", ListingDetail, false},
		{"confirm-delete", ConfirmDelete, false},
		{"edit-profile", EditProfile, false},
		{"upload-avatar", UploadAvatar, false},
		{"notifications", Notifications, false},
		{"#listingModal", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v", tt.name, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %v, want %v", tt.name, got, tt.want)
			}
			if !tt.wantErr && got.String() != tt.name {
				t.Errorf("String() = %q", got.String())
			}
		})
	}
}

func TestIDJSON(t *testing.T) {
	data, err := json.Marshal(Change{ID: UploadAvatar, Open: true})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `{"id":"upload-avatar","open":true}` {
		t.Errorf("Marshal = %s", data)
	}

	var ch Change
	if err := json.Unmarshal([]byte(`{"id":"edit-profile"}`), &ch); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if ch.ID != EditProfile {
		t.Errorf("ID = %v", ch.ID)
	}

	if err := json.Unmarshal([]byte(`{"id":"bogus"}`), &ch); err == nil {
		t.Error("expected error for unknown dialog name")
	}
}
