package api

import (
	"fmt"
	"net/url"

	"github.com/vango-dev/gigmarket/pkg/form"
)

// Every request validates itself before it is sent. A request that fails
// validation never reaches the backend.

func requireID(field, id string) error {
	return form.Field(field, id, form.Required(""), form.Pattern(`^[A-Za-z0-9_-]+$`, "Invalid identifier"))
}

type GetProfileRequest struct {
	UserID string
}

func (r GetProfileRequest) Validate() error {
	return requireID("userId", r.UserID)
}

type UpdateProfileRequest struct {
	UserID    string `json:"-"`
	Name      string `json:"name" validate:"required,max=80"`
	Headline  string `json:"headline" validate:"max=120"`
	Bio       string `json:"bio" validate:"max=2000"`
	Website   string `json:"website" validate:"url"`
	AvatarURL string `json:"avatarUrl" validate:"url"`
}

func (r UpdateProfileRequest) Validate() error {
	if err := requireID("userId", r.UserID); err != nil {
		return err
	}
	return form.Struct(r)
}

// MaxSkillLength bounds a single skill.
const MaxSkillLength = 40

type AddSkillRequest struct {
	UserID string `json:"-"`
	Skill  string `json:"skill"`
}

func (r AddSkillRequest) Validate() error {
	if err := requireID("userId", r.UserID); err != nil {
		return err
	}
	return form.Field("skill", r.Skill, form.Required(""), form.MaxLength(MaxSkillLength, ""))
}

type RemoveSkillRequest struct {
	UserID string `json:"-"`
	Skill  string `json:"skill"`
}

func (r RemoveSkillRequest) Validate() error {
	if err := requireID("userId", r.UserID); err != nil {
		return err
	}
	return form.Field("skill", r.Skill, form.Required(""))
}

type ListDocumentsRequest struct {
	UserID string
}

func (r ListDocumentsRequest) Validate() error {
	return requireID("userId", r.UserID)
}

type StarDocumentRequest struct {
	DocumentID string `json:"-"`
	Starred    bool   `json:"starred"`
}

func (r StarDocumentRequest) Validate() error {
	return requireID("documentId", r.DocumentID)
}

type GetSettingsRequest struct {
	UserID string
}

func (r GetSettingsRequest) Validate() error {
	return requireID("userId", r.UserID)
}

type UpdateSettingRequest struct {
	UserID string `json:"-"`
	Field  string `json:"field"`
	Value  bool   `json:"value"`
}

func (r UpdateSettingRequest) Validate() error {
	if err := requireID("userId", r.UserID); err != nil {
		return err
	}
	return form.Field("field", r.Field, form.Required(""), form.Pattern(`^[a-z][a-zA-Z0-9_]*$`, "Invalid setting name"))
}

type ListListingsRequest struct {
	Kind    ListingKind
	Status  ListingStatus
	OwnerID string
}

func (r ListListingsRequest) Validate() error {
	if err := form.Field("kind", string(r.Kind), form.OneOf([]string{"job", "gig", "mentorship"}, "")); err != nil {
		return err
	}
	if err := form.Field("status", string(r.Status), form.OneOf([]string{"open", "closed", "draft"}, "")); err != nil {
		return err
	}
	if r.OwnerID != "" {
		return requireID("ownerId", r.OwnerID)
	}
	return nil
}

type GetListingRequest struct {
	ID string
}

func (r GetListingRequest) Validate() error {
	return requireID("listingId", r.ID)
}

type DeleteListingRequest struct {
	ID string
}

func (r DeleteListingRequest) Validate() error {
	return requireID("listingId", r.ID)
}

type ListNotificationsRequest struct {
	UserID string
}

func (r ListNotificationsRequest) Validate() error {
	return requireID("userId", r.UserID)
}

type MarkReadRequest struct {
	NotificationID string
}

func (r MarkReadRequest) Validate() error {
	return requireID("notificationId", r.NotificationID)
}

type MarkAllReadRequest struct {
	UserID string `json:"userId"`
}

func (r MarkAllReadRequest) Validate() error {
	return requireID("userId", r.UserID)
}

// pathOf fills format with path-escaped identifiers.
func pathOf(format string, ids ...string) string {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = url.PathEscape(id)
	}
	return fmt.Sprintf(format, args...)
}
