package persistence

import (
	"context"
	"time"
)

// EventRepository stores events and their attendee sets.
type EventRepository interface {
	CreateEvent(ctx context.Context, event Event) error
	GetEvent(ctx context.Context, id string) (Event, error)
	ListEvents(ctx context.Context) ([]Event, error)
	UpdateEvent(ctx context.Context, id string, patch EventPatch) error
	DeleteEvent(ctx context.Context, id string) error
	// AddAttendee appends userID atomically. It returns ErrDuplicate when the
	// user already attends.
	AddAttendee(ctx context.Context, eventID, userID string) error
	// RemoveAttendee removes userID atomically. It returns ErrNotMember when the
	// user does not attend.
	RemoveAttendee(ctx context.Context, eventID, userID string) error
}

// UserRepository exposes the user operations the service layer needs.
type UserRepository interface {
	GetUser(ctx context.Context, id string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	SetUserAdmin(ctx context.Context, id string, isAdmin bool, updatedAt time.Time) error
	// UpsertLogin creates the user on first login or refreshes the identity
	// attributes and LastLogin, keeping IsAdmin and CreatedAt.
	UpsertLogin(ctx context.Context, user User) (User, error)
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) error
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (Session, error)
	RevokeSession(ctx context.Context, tokenHash string, revokedAt time.Time) error
	DeleteExpiredSessions(ctx context.Context, reference time.Time) (int64, error)
}
