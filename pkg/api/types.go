package api

import "time"

// Role is the marketplace role of a user. It selects the dashboard.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployer Role = "employer"
	RoleMentor   Role = "mentor"
	RoleMember   Role = "member"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleEmployer, RoleMentor, RoleMember:
		return true
	}
	return false
}

// Profile is a user's public profile.
type Profile struct {
	ID        string   `json:"id"`
	Role      Role     `json:"role"`
	Name      string   `json:"name"`
	Email     string   `json:"email,omitempty"`
	Headline  string   `json:"headline,omitempty"`
	Bio       string   `json:"bio,omitempty"`
	Website   string   `json:"website,omitempty"`
	AvatarURL string   `json:"avatarUrl,omitempty"`
	Skills    []string `json:"skills"`
}

// Document is a resource a member can star.
type Document struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	URL       string    `json:"url,omitempty"`
	Starred   bool      `json:"starred"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ListingKind distinguishes jobs, gigs and mentorships.
type ListingKind string

const (
	KindJob        ListingKind = "job"
	KindGig        ListingKind = "gig"
	KindMentorship ListingKind = "mentorship"
)

// ListingStatus is the publication state of a listing.
type ListingStatus string

const (
	StatusOpen   ListingStatus = "open"
	StatusClosed ListingStatus = "closed"
	StatusDraft  ListingStatus = "draft"
)

// Listing is a job, gig or mentorship offer.
type Listing struct {
	ID          string        `json:"id"`
	Kind        ListingKind   `json:"kind"`
	Title       string        `json:"title"`
	Company     string        `json:"company,omitempty"`
	OwnerID     string        `json:"ownerId"`
	Location    string        `json:"location,omitempty"`
	Description string        `json:"description,omitempty"` // markdown
	Status      ListingStatus `json:"status"`
	Applicants  int           `json:"applicants"`
	CreatedAt   time.Time     `json:"createdAt"`
	Deadline    time.Time     `json:"deadline,omitempty"`
}

// Notification is an entry of the notifications dropdown.
type Notification struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	Link      string    `json:"link,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}
