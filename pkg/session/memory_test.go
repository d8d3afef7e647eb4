package session

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore(WithCleanupInterval(time.Hour))
	defer store.Close()
	ctx := context.Background()

	rec := testRecord("s1")
	if err := store.Save(ctx, rec, time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	rec.Preferences["search/search"].Args["query"] = "changed"

	got, err := store.Load(ctx, "s1")
	if err != nil || got == nil {
		t.Fatalf("Load = %v, %v", got, err)
	}
	if q := got.Preferences["search/search"].Arg("query"); q != "go" {
		t.Errorf("stored record shares maps with the caller: query = %q", q)
	}

	if err := store.Touch(ctx, "s1", time.Now().Add(-time.Second)); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	if got, _ := store.Load(ctx, "s1"); got != nil {
		t.Error("expired record loaded")
	}
	store.cleanup()
	if n := store.Count(); n != 0 {
		t.Errorf("Count after cleanup = %d, want 0", n)
	}

	if err := store.SaveAll(ctx, []*Record{testRecord("a"), testRecord("b")}, time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}
	if err := store.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if n := store.Count(); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}

	store.Close()
	if err := store.Save(ctx, rec, time.Now().Add(time.Minute)); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Save after Close err = %v, want ErrStoreClosed", err)
	}
}
