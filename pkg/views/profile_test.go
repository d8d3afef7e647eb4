package views_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/vango-dev/gigmarket/pkg/api"
	"github.com/vango-dev/gigmarket/pkg/api/apitest"
	"github.com/vango-dev/gigmarket/pkg/form"
	"github.com/vango-dev/gigmarket/pkg/modal"
	"github.com/vango-dev/gigmarket/pkg/notify"
	"github.com/vango-dev/gigmarket/pkg/upload"
	"github.com/vango-dev/gigmarket/pkg/views"
)

func newProfileBackend(t *testing.T) *apitest.Backend {
	t.Helper()
	backend := apitest.New(t)
	backend.Profiles["u1"] = &api.Profile{ID: "u1", Name: "Ada", Headline: "Engineer", Role: api.RoleMember}
	return backend
}

func TestProfileEditor_SaveValidates(t *testing.T) {
	backend := newProfileBackend(t)
	env, rec := newEnv(t, backend, "u1")

	editor, err := views.NewProfileEditor(mountCtx(t), env)
	if err != nil {
		t.Fatalf("NewProfileEditor: %v", err)
	}
	defer editor.Close()

	_, err = editor.Save(views.ProfileFields{Name: "  ", Website: "not a url"})
	var errs form.Errors
	if !errors.As(err, &errs) {
		t.Fatalf("Save err = %v, want form.Errors", err)
	}
	if len(backend.Writes()) != 0 {
		t.Errorf("writes = %+v, want none", backend.Writes())
	}
	p, ok := rec.Last()
	if !ok || p.Icon != notify.IconWarning || p.Title != "Check your input" {
		t.Errorf("popup = %+v", p)
	}
	if editor.Fields().Name != "Ada" {
		t.Errorf("name = %q, want unchanged", editor.Fields().Name)
	}
}

func TestProfileEditor_SaveFromIntent(t *testing.T) {
	backend := newProfileBackend(t)
	env, rec := newEnv(t, backend, "u1")
	env.Modals = modal.NewController()

	editor, err := views.NewProfileEditor(mountCtx(t), env)
	if err != nil {
		t.Fatalf("NewProfileEditor: %v", err)
	}
	defer editor.Close()

	ctx := context.Background()
	if err := editor.Handle(ctx, views.Intent{Action: "edit"}); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if snap := editor.Snapshot().(views.ProfileSnapshot); !snap.Editing {
		t.Fatal("edit dialog not open")
	}

	if err := editor.Handle(ctx, views.Intent{Action: "save", Args: map[string]string{"bio": " Writes compilers. "}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	snap := editor.Snapshot().(views.ProfileSnapshot)
	if snap.Editing {
		t.Error("edit dialog still open after save")
	}
	if snap.Fields.Bio != "Writes compilers." || snap.Fields.Name != "Ada" {
		t.Errorf("fields = %+v", snap.Fields)
	}

	eventually(t, "profile saved", func() bool { return rec.Count(notify.IconSuccess) == 1 })
	stored, _ := backend.Profile("u1")
	if stored.Bio != "Writes compilers." || stored.Headline != "Engineer" {
		t.Errorf("stored = %+v", stored)
	}
	if p, _ := rec.Last(); p.Title != "Profile saved" {
		t.Errorf("popup = %+v", p)
	}
}

func TestProfileEditor_SaveFailureRestoresFields(t *testing.T) {
	backend := newProfileBackend(t)
	backend.Fail(http.MethodPut, "/users/u1/profile", http.StatusUnprocessableEntity)
	env, rec := newEnv(t, backend, "u1")

	editor, err := views.NewProfileEditor(mountCtx(t), env)
	if err != nil {
		t.Fatalf("NewProfileEditor: %v", err)
	}
	defer editor.Close()

	op, err := editor.Save(views.ProfileFields{Name: "Grace"})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if editor.Fields().Name != "Grace" {
		t.Errorf("name = %q, want optimistic value", editor.Fields().Name)
	}
	rolledBack(t, op)

	if got := editor.Fields(); got.Name != "Ada" || got.Headline != "Engineer" {
		t.Errorf("fields = %+v, want restored", got)
	}
	p, ok := rec.Last()
	if !ok || p.Icon != notify.IconError || p.Title != "Could not save your profile" {
		t.Errorf("popup = %+v", p)
	}
}

func TestProfileEditor_UploadAvatar(t *testing.T) {
	backend := newProfileBackend(t)
	env, rec := newEnv(t, backend, "u1")

	store, err := upload.NewDiskStore(t.TempDir(), "https://cdn.example.com/media")
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	env.Uploader = upload.NewUploader(store, nil)

	editor, err := views.NewProfileEditor(mountCtx(t), env)
	if err != nil {
		t.Fatalf("NewProfileEditor: %v", err)
	}
	defer editor.Close()

	png := append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...)
	op, err := editor.UploadAvatar(context.Background(), "me.png", int64(len(png)), bytes.NewReader(png))
	if err != nil {
		t.Fatalf("UploadAvatar: %v", err)
	}
	committed(t, op)

	url := editor.Fields().AvatarURL
	if !strings.HasPrefix(url, "https://cdn.example.com/media/avatars/") || !strings.HasSuffix(url, ".png") {
		t.Errorf("avatar = %q", url)
	}
	stored, _ := backend.Profile("u1")
	if stored.AvatarURL != url {
		t.Errorf("stored avatar = %q, want %q", stored.AvatarURL, url)
	}

	_, err = editor.UploadAvatar(context.Background(), "notes.txt", 11, strings.NewReader("hello world"))
	if !errors.Is(err, upload.ErrUnsupportedType) {
		t.Fatalf("UploadAvatar(txt) err = %v", err)
	}
	if p, _ := rec.Last(); p.Title != "Unsupported image" {
		t.Errorf("popup = %+v", p)
	}
}

func TestProfileEditor_UploadWithoutUploader(t *testing.T) {
	backend := newProfileBackend(t)
	env, _ := newEnv(t, backend, "u1")

	editor, err := views.NewProfileEditor(mountCtx(t), env)
	if err != nil {
		t.Fatalf("NewProfileEditor: %v", err)
	}
	defer editor.Close()

	if _, err := editor.UploadAvatar(context.Background(), "a.png", 1, strings.NewReader("x")); !errors.Is(err, views.ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}
