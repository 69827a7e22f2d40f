package application

import (
	"slices"
	"time"
)

// Principal represents the authenticated user invoking a service method.
// It is produced by session validation and never taken from request input.
type Principal struct {
	UserID  string
	IsAdmin bool
}

// EventInput captures caller provided event fields.
type EventInput struct {
	Title       string
	Description string
	Location    string
	ImageURL    string
	Date        string
	Time        string
}

// Event represents a scheduled gathering on the board.
type Event struct {
	ID           string
	CreatorID    string
	CreatorName  string
	Title        string
	Description  string
	Location     string
	ImageURL     string
	Date         string
	Time         string
	Attendees    []string
	IsAdminEvent bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// EventDate returns the ISO calendar date of the event.
func (e Event) EventDate() string { return e.Date }

// EventTime returns the 24-hour start time of the event.
func (e Event) EventTime() string { return e.Time }

// HasAttendee reports whether userID has joined the event.
func (e Event) HasAttendee(userID string) bool {
	return slices.Contains(e.Attendees, userID)
}

// CreateEventParams wraps the data required to create an event.
type CreateEventParams struct {
	Principal Principal
	Input     EventInput
}

// UpdateEventParams wraps the data required to update an event. ImageURL on
// the input is ignored; only title, description, location, date, and time change.
type UpdateEventParams struct {
	Principal Principal
	EventID   string
	Input     EventInput
}

// ListScope selects events relative to the current time.
type ListScope string

const (
	// ListScopeAll returns every event in store order.
	ListScopeAll ListScope = ""
	// ListScopeUpcoming returns events that are not past, earliest first.
	ListScopeUpcoming ListScope = "upcoming"
	// ListScopePast returns past events, latest first.
	ListScopePast ListScope = "past"
)

// EventKind selects events by the creator's admin status at creation.
type EventKind string

const (
	// EventKindAll applies no filter.
	EventKindAll EventKind = ""
	// EventKindAdmin keeps admin events only.
	EventKindAdmin EventKind = "admin"
	// EventKindStudent keeps events created by non-admins only.
	EventKindStudent EventKind = "student"
)

// ListEventsParams wraps the filters supported by event listings.
type ListEventsParams struct {
	Scope     ListScope
	Kind      EventKind
	CreatorID string
	Attendee  string
}

// User represents an account created by the first login of an identity.
type User struct {
	ID          string
	Email       string
	DisplayName string
	PhotoURL    string
	IsAdmin     bool
	LastLogin   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Identity is the profile returned by the identity provider after a login.
type Identity struct {
	Subject     string
	Email       string
	DisplayName string
	PhotoURL    string
}

// Session represents an authenticated session issued to a user. Token is
// only populated when the session is first issued.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}

// SessionRecord is the stored form of a session; the token itself is never kept.
type SessionRecord struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}

// LoginResult captures the outcome of a completed login.
type LoginResult struct {
	User    User
	Session Session
}
