package persistence

import "time"

// User represents a resident account created on first login.
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

// Event represents a hall event stored with its attendee list.
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

// EventPatch carries the mutable event fields merged by UpdateEvent.
type EventPatch struct {
	Title       string
	Description string
	Date        string
	Time        string
	Location    string
	UpdatedAt   time.Time
}

// Session represents an authentication session persisted for a user.
// Only the hash of the bearer token is stored.
type Session struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}
