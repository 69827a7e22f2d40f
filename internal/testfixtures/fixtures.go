package testfixtures

import (
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/example/eventboard/internal/application"
	"github.com/example/eventboard/internal/persistence"
)

var (
	userCounter    uint64
	eventCounter   uint64
	sessionCounter uint64
)

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime is the instant every fixture timestamp is derived from.
func ReferenceTime() time.Time {
	return referenceTime
}

// UserFixture is a resident account convertible to each layer's user type.
type UserFixture struct {
	ID          string
	Email       string
	DisplayName string
	PhotoURL    string
	IsAdmin     bool
	LastLogin   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UserOption tweaks a UserFixture.
type UserOption func(*UserFixture)

// NewUserFixture numbers users user-001, user-002 and so on.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := UserFixture{
		ID:          id,
		Email:       fmt.Sprintf("%s@example.edu", id),
		DisplayName: fmt.Sprintf("Resident %03d", idx),
		LastLogin:   created,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithUserID(id string) UserOption {
	return func(f *UserFixture) {
		f.ID = id
	}
}

func WithUserEmail(email string) UserOption {
	return func(f *UserFixture) {
		f.Email = email
	}
}

func WithUserDisplayName(name string) UserOption {
	return func(f *UserFixture) {
		f.DisplayName = name
	}
}

// WithUserAdmin marks the user as hall staff.
func WithUserAdmin(isAdmin bool) UserOption {
	return func(f *UserFixture) {
		f.IsAdmin = isAdmin
	}
}

// WithUserLastLogin sets the last login timestamp.
func WithUserLastLogin(t time.Time) UserOption {
	return func(f *UserFixture) {
		f.LastLogin = t
	}
}

func (f UserFixture) Application() application.User {
	return application.User{
		ID:          f.ID,
		Email:       f.Email,
		DisplayName: f.DisplayName,
		PhotoURL:    f.PhotoURL,
		IsAdmin:     f.IsAdmin,
		LastLogin:   f.LastLogin,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// Principal is the identity RequireSession would attach for this user.
func (f UserFixture) Principal() application.Principal {
	return application.Principal{UserID: f.ID, IsAdmin: f.IsAdmin}
}

func (f UserFixture) Persistence() persistence.User {
	return persistence.User{
		ID:          f.ID,
		Email:       f.Email,
		DisplayName: f.DisplayName,
		PhotoURL:    f.PhotoURL,
		IsAdmin:     f.IsAdmin,
		LastLogin:   f.LastLogin,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// ----------------------------- Event fixtures ----------------------------

// EventFixture represents a deterministic event posting.
type EventFixture struct {
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

// EventOption configures the generated event fixture.
type EventOption func(*EventFixture)

// NewEventFixture returns an event one year after ReferenceTime so it is
// upcoming unless a test moves the date.
func NewEventFixture(opts ...EventOption) EventFixture {
	idx := atomic.AddUint64(&eventCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := EventFixture{
		ID:          fmt.Sprintf("event-%03d", idx),
		CreatorID:   "user-001",
		CreatorName: "Resident 001",
		Title:       fmt.Sprintf("Floor Meetup %03d", idx),
		Description: "Snacks in the lounge",
		Location:    "West Village H Lounge",
		Date:        referenceTime.AddDate(1, 0, 0).Format("2006-01-02"),
		Time:        "19:00",
		Attendees:   []string{},
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithEventID overrides the generated event ID.
func WithEventID(id string) EventOption {
	return func(f *EventFixture) {
		f.ID = id
	}
}

// WithEventCreator sets the creator and the display name snapshot.
func WithEventCreator(id, name string) EventOption {
	return func(f *EventFixture) {
		f.CreatorID = id
		f.CreatorName = name
	}
}

// WithEventTitle overrides the title.
func WithEventTitle(title string) EventOption {
	return func(f *EventFixture) {
		f.Title = title
	}
}

// WithEventSchedule sets the date and time strings.
func WithEventSchedule(date, clock string) EventOption {
	return func(f *EventFixture) {
		f.Date = date
		f.Time = clock
	}
}

// WithEventAttendees replaces the attendee list.
func WithEventAttendees(userIDs ...string) EventOption {
	return func(f *EventFixture) {
		f.Attendees = append([]string{}, userIDs...)
	}
}

// WithEventAdmin marks the event as posted by hall staff.
func WithEventAdmin(isAdmin bool) EventOption {
	return func(f *EventFixture) {
		f.IsAdminEvent = isAdmin
	}
}

// Input returns the mutable fields as an application.EventInput.
func (f EventFixture) Input() application.EventInput {
	return application.EventInput{
		Title:       f.Title,
		Description: f.Description,
		Location:    f.Location,
		ImageURL:    f.ImageURL,
		Date:        f.Date,
		Time:        f.Time,
	}
}

// Application returns the fixture as an application.Event value.
func (f EventFixture) Application() application.Event {
	return application.Event{
		ID:           f.ID,
		CreatorID:    f.CreatorID,
		CreatorName:  f.CreatorName,
		Title:        f.Title,
		Description:  f.Description,
		Location:     f.Location,
		ImageURL:     f.ImageURL,
		Date:         f.Date,
		Time:         f.Time,
		Attendees:    slices.Clone(f.Attendees),
		IsAdminEvent: f.IsAdminEvent,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Event value.
func (f EventFixture) Persistence() persistence.Event {
	return persistence.Event{
		ID:           f.ID,
		CreatorID:    f.CreatorID,
		CreatorName:  f.CreatorName,
		Title:        f.Title,
		Description:  f.Description,
		Location:     f.Location,
		ImageURL:     f.ImageURL,
		Date:         f.Date,
		Time:         f.Time,
		Attendees:    slices.Clone(f.Attendees),
		IsAdminEvent: f.IsAdminEvent,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// SessionFixture represents a deterministic session. Token is the plaintext
// value; persistence records store its hash.
type SessionFixture struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}

type SessionOption func(*SessionFixture)

// NewSessionFixture issues a session that expires a day after it was created.
func NewSessionFixture(opts ...SessionOption) SessionFixture {
	idx := atomic.AddUint64(&sessionCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := SessionFixture{
		ID:        fmt.Sprintf("session-%03d", idx),
		UserID:    "user-001",
		Token:     fmt.Sprintf("token-%03d", idx),
		ExpiresAt: created.Add(24 * time.Hour),
		CreatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithSessionUserID(id string) SessionOption {
	return func(f *SessionFixture) {
		f.UserID = id
	}
}

func WithSessionToken(token string) SessionOption {
	return func(f *SessionFixture) {
		f.Token = token
	}
}

func WithSessionExpiresAt(t time.Time) SessionOption {
	return func(f *SessionFixture) {
		f.ExpiresAt = t
	}
}

// WithSessionRevokedAt marks the session as signed out at t.
func WithSessionRevokedAt(t time.Time) SessionOption {
	return func(f *SessionFixture) {
		revoked := t
		f.RevokedAt = &revoked
	}
}

// TokenHash returns the digest under which the token is stored.
func (f SessionFixture) TokenHash() string {
	return application.HashToken(f.Token)
}

// Persistence stores the token hash, never the token.
func (f SessionFixture) Persistence() persistence.Session {
	return persistence.Session{
		ID:        f.ID,
		UserID:    f.UserID,
		TokenHash: f.TokenHash(),
		ExpiresAt: f.ExpiresAt,
		CreatedAt: f.CreatedAt,
		RevokedAt: cloneTime(f.RevokedAt),
	}
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}
