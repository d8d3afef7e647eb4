package views

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/vango-dev/gigmarket/pkg/api"
	"github.com/vango-dev/gigmarket/pkg/form"
	"github.com/vango-dev/gigmarket/pkg/modal"
	"github.com/vango-dev/gigmarket/pkg/notify"
	"github.com/vango-dev/gigmarket/pkg/optimistic"
	"github.com/vango-dev/gigmarket/pkg/upload"
)

// ProfileFields are the editable fields of a profile.
type ProfileFields struct {
	Name      string `json:"name"`
	Headline  string `json:"headline"`
	Bio       string `json:"bio"`
	Website   string `json:"website"`
	AvatarURL string `json:"avatarUrl"`
}

func fieldsOf(p api.Profile) ProfileFields {
	return ProfileFields{Name: p.Name, Headline: p.Headline, Bio: p.Bio, Website: p.Website, AvatarURL: p.AvatarURL}
}

func (f ProfileFields) trimmed() ProfileFields {
	return ProfileFields{
		Name:      strings.TrimSpace(f.Name),
		Headline:  strings.TrimSpace(f.Headline),
		Bio:       strings.TrimSpace(f.Bio),
		Website:   strings.TrimSpace(f.Website),
		AvatarURL: strings.TrimSpace(f.AvatarURL),
	}
}

// ProfileEditor edits the signed-in user's profile.
type ProfileEditor struct {
	*base
	profile *collection[ProfileFields, api.Profile]
}

// NewProfileEditor loads the profile.
func NewProfileEditor(ctx context.Context, env Env) (*ProfileEditor, error) {
	v := &ProfileEditor{base: newBase("profile", env)}
	client, userID := v.env.Client, v.env.UserID

	profile, err := mount(ctx, v.base, mountConfig[ProfileFields, api.Profile]{
		name: "profile",
		key:  profileKey(userID),
		fetch: func(ctx context.Context) (api.Profile, error) {
			return client.GetProfile(ctx, api.GetProfileRequest{UserID: userID})
		},
		state:     fieldsOf,
		failTitle: "Could not save your profile",
		onSuccess: func(op *optimistic.Operation[ProfileFields]) {
			if op.Change.Target == "profile" {
				v.env.Notifier.Notify(notify.Success("Profile saved", ""))
			}
		},
	})
	if err != nil {
		v.Close()
		return nil, err
	}
	v.profile = profile
	return v, nil
}

// Fields returns the displayed profile fields.
func (v *ProfileEditor) Fields() ProfileFields {
	return v.profile.mut.State()
}

func (v *ProfileEditor) request(f ProfileFields) api.UpdateProfileRequest {
	return api.UpdateProfileRequest{
		UserID:    v.env.UserID,
		Name:      f.Name,
		Headline:  f.Headline,
		Bio:       f.Bio,
		Website:   f.Website,
		AvatarURL: f.AvatarURL,
	}
}

func (v *ProfileEditor) write(ctx context.Context, next ProfileFields) error {
	_, err := v.env.Client.UpdateProfile(ctx, v.request(next))
	return err
}

// Save validates the form and updates the profile. Invalid input is
// reported with a warning and nothing is sent.
func (v *ProfileEditor) Save(fields ProfileFields) (*optimistic.Operation[ProfileFields], error) {
	fields = fields.trimmed()
	if err := form.Struct(v.request(fields)); err != nil {
		v.warn(err)
		return nil, err
	}

	change := optimistic.Set("profile", func(cur ProfileFields) (ProfileFields, bool) {
		return fields, cur != fields
	}, v.write).Invalidating(profileKey(v.env.UserID))

	op, err := submit(v.base, v.profile.mut, change)
	if err == nil || errors.Is(err, optimistic.ErrNoop) {
		v.env.Modals.Close(modal.EditProfile)
	}
	return op, err
}

// SetAvatar points the profile picture at url.
func (v *ProfileEditor) SetAvatar(url string) (*optimistic.Operation[ProfileFields], error) {
	url = strings.TrimSpace(url)
	if err := form.Field("avatarUrl", url, form.Required("Choose an image."), form.URL("The image address is invalid.")); err != nil {
		v.warn(err)
		return nil, err
	}

	change := optimistic.Set("avatarUrl", func(cur ProfileFields) (ProfileFields, bool) {
		if cur.AvatarURL == url {
			return cur, false
		}
		cur.AvatarURL = url
		return cur, true
	}, v.write).Invalidating(profileKey(v.env.UserID))

	return submit(v.base, v.profile.mut, change)
}

// UploadAvatar stores an image with the image host and then sets it as the
// profile picture.
func (v *ProfileEditor) UploadAvatar(ctx context.Context, filename string, size int64, r io.Reader) (*optimistic.Operation[ProfileFields], error) {
	if v.env.Uploader == nil {
		return nil, fmt.Errorf("%w: image uploads", ErrUnavailable)
	}

	file, err := v.env.Uploader.Upload(ctx, filename, size, r)
	switch {
	case errors.Is(err, upload.ErrTooLarge):
		v.env.Notifier.Notify(notify.Warning("Image too large",
			fmt.Sprintf("Images can be at most %d MB.", v.env.Uploader.MaxFileSize()>>20)))
		return nil, err
	case errors.Is(err, upload.ErrUnsupportedType):
		v.env.Notifier.Notify(notify.Warning("Unsupported image", "Use a JPEG, PNG, GIF or WebP image."))
		return nil, err
	case err != nil:
		v.env.Notifier.Notify(notify.Error("Upload failed", "The image could not be stored. Please try again."))
		return nil, err
	}

	v.env.Modals.Close(modal.UploadAvatar)
	return v.SetAvatar(file.URL)
}

// ProfileSnapshot is the rendered state of a ProfileEditor.
type ProfileSnapshot struct {
	Fields    ProfileFields `json:"fields"`
	Editing   bool          `json:"editing"`
	Uploading bool          `json:"uploading"`
	Pending   int           `json:"pending"`
}

func (v *ProfileEditor) Snapshot() any {
	return ProfileSnapshot{
		Fields:    v.Fields(),
		Editing:   v.env.Modals.IsOpen(modal.EditProfile),
		Uploading: v.env.Modals.IsOpen(modal.UploadAvatar),
		Pending:   v.profile.mut.Pending(),
	}
}

// Handle accepts "edit", "cancel", "save" (name, headline, bio, website,
// avatarUrl; missing fields keep their value), "upload" to open the upload
// dialog and "avatar" (url), sent by the browser after it posted the image
// to the upload endpoint.
func (v *ProfileEditor) Handle(_ context.Context, in Intent) error {
	var err error
	switch in.Action {
	case "edit":
		err = v.env.Modals.Open(modal.EditProfile, nil)
		v.changed()
	case "cancel":
		v.env.Modals.Close(modal.EditProfile)
		v.env.Modals.Close(modal.UploadAvatar)
		v.changed()
	case "upload":
		err = v.env.Modals.Open(modal.UploadAvatar, nil)
		v.changed()
	case "save":
		cur := v.Fields()
		_, err = v.Save(ProfileFields{
			Name:      in.ArgOr("name", cur.Name),
			Headline:  in.ArgOr("headline", cur.Headline),
			Bio:       in.ArgOr("bio", cur.Bio),
			Website:   in.ArgOr("website", cur.Website),
			AvatarURL: in.ArgOr("avatarUrl", cur.AvatarURL),
		})
	case "avatar":
		_, err = v.SetAvatar(in.Arg("url"))
		if err == nil {
			v.env.Modals.Close(modal.UploadAvatar)
		}
	default:
		return unknownAction(v.name, in)
	}
	if expected(err) {
		return nil
	}
	return err
}
