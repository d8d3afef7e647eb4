package api

import (
	"context"
	"net/http"
	"net/url"
)

// GetProfile fetches a user's profile.
func (c *Client) GetProfile(ctx context.Context, req GetProfileRequest) (Profile, error) {
	var out Profile
	err := c.call(ctx, req, http.MethodGet, pathOf("/users/%s", req.UserID), nil, nil, &out)
	return out, err
}

// UpdateProfile replaces the editable profile fields.
func (c *Client) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (Profile, error) {
	var out Profile
	err := c.call(ctx, req, http.MethodPut, pathOf("/users/%s/profile", req.UserID), nil, req, &out)
	return out, err
}

// AddSkill adds one skill to a profile.
func (c *Client) AddSkill(ctx context.Context, req AddSkillRequest) error {
	return c.call(ctx, req, http.MethodPut, pathOf("/users/%s/skills", req.UserID), nil, req, nil)
}

// RemoveSkill removes one skill from a profile.
func (c *Client) RemoveSkill(ctx context.Context, req RemoveSkillRequest) error {
	return c.call(ctx, req, http.MethodDelete, pathOf("/users/%s/skills", req.UserID), nil, req, nil)
}

// ListDocuments returns the documents visible to a member, with their
// starred flag.
func (c *Client) ListDocuments(ctx context.Context, req ListDocumentsRequest) ([]Document, error) {
	var out []Document
	err := c.call(ctx, req, http.MethodGet, pathOf("/users/%s/documents", req.UserID), nil, nil, &out)
	return out, err
}

// StarDocument stars or unstars a document.
func (c *Client) StarDocument(ctx context.Context, req StarDocumentRequest) error {
	return c.call(ctx, req, http.MethodPut, pathOf("/documents/%s/star", req.DocumentID), nil, req, nil)
}

// GetSettings returns the boolean settings of a user.
func (c *Client) GetSettings(ctx context.Context, req GetSettingsRequest) (map[string]bool, error) {
	out := make(map[string]bool)
	err := c.call(ctx, req, http.MethodGet, pathOf("/users/%s/settings", req.UserID), nil, nil, &out)
	return out, err
}

// UpdateSetting changes a single setting.
func (c *Client) UpdateSetting(ctx context.Context, req UpdateSettingRequest) error {
	return c.call(ctx, req, http.MethodPut, pathOf("/users/%s/settings", req.UserID), nil, req, nil)
}

// ListListings returns listings matching the filter.
func (c *Client) ListListings(ctx context.Context, req ListListingsRequest) ([]Listing, error) {
	query := url.Values{}
	if req.Kind != "" {
		query.Set("kind", string(req.Kind))
	}
	if req.Status != "" {
		query.Set("status", string(req.Status))
	}
	if req.OwnerID != "" {
		query.Set("owner", req.OwnerID)
	}
	var out []Listing
	err := c.call(ctx, req, http.MethodGet, "/listings", query, nil, &out)
	return out, err
}

// GetListing fetches one listing.
func (c *Client) GetListing(ctx context.Context, req GetListingRequest) (Listing, error) {
	var out Listing
	err := c.call(ctx, req, http.MethodGet, pathOf("/listings/%s", req.ID), nil, nil, &out)
	return out, err
}

// DeleteListing deletes a listing.
func (c *Client) DeleteListing(ctx context.Context, req DeleteListingRequest) error {
	return c.call(ctx, req, http.MethodDelete, pathOf("/listings/%s", req.ID), nil, nil, nil)
}

// ListNotifications returns a user's notifications, newest first.
func (c *Client) ListNotifications(ctx context.Context, req ListNotificationsRequest) ([]Notification, error) {
	var out []Notification
	err := c.call(ctx, req, http.MethodGet, pathOf("/users/%s/notifications", req.UserID), nil, nil, &out)
	return out, err
}

// MarkRead marks one notification as read.
func (c *Client) MarkRead(ctx context.Context, req MarkReadRequest) error {
	return c.call(ctx, req, http.MethodPut, pathOf("/notifications/%s/read", req.NotificationID), nil, nil, nil)
}

// MarkAllRead marks every notification of a user as read.
func (c *Client) MarkAllRead(ctx context.Context, req MarkAllReadRequest) error {
	return c.call(ctx, req, http.MethodPut, "/notifications/read-all", nil, req, nil)
}
