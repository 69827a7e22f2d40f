package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/example/eventboard/internal/persistence"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type eventRepositoryStub struct {
	mu     sync.Mutex
	events []Event
	// listHook runs after ListEvents has copied its snapshot.
	listHook  func()
	listErr   error
	createErr error
}

func newEventRepositoryStub(events ...Event) *eventRepositoryStub {
	return &eventRepositoryStub{events: events}
}

func (r *eventRepositoryStub) CreateEvent(_ context.Context, event Event) (Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return Event{}, r.createErr
	}
	r.events = append(r.events, cloneEvent(event))
	return cloneEvent(event), nil
}

func (r *eventRepositoryStub) GetEvent(_ context.Context, id string) (Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, event := range r.events {
		if event.ID == id {
			return cloneEvent(event), nil
		}
	}
	return Event{}, persistence.ErrNotFound
}

func (r *eventRepositoryStub) ListEvents(context.Context) ([]Event, error) {
	r.mu.Lock()
	if r.listErr != nil {
		r.mu.Unlock()
		return nil, r.listErr
	}
	out := make([]Event, len(r.events))
	for i, event := range r.events {
		out[i] = cloneEvent(event)
	}
	hook := r.listHook
	r.mu.Unlock()

	if hook != nil {
		hook()
	}
	return out, nil
}

func (r *eventRepositoryStub) UpdateEvent(_ context.Context, event Event) (Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.events {
		if r.events[i].ID == event.ID {
			stored := r.events[i]
			stored.Title = event.Title
			stored.Description = event.Description
			stored.Location = event.Location
			stored.Date = event.Date
			stored.Time = event.Time
			stored.UpdatedAt = event.UpdatedAt
			r.events[i] = stored
			return cloneEvent(stored), nil
		}
	}
	return Event{}, persistence.ErrNotFound
}

func (r *eventRepositoryStub) DeleteEvent(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.events {
		if r.events[i].ID == id {
			r.events = slices.Delete(r.events, i, i+1)
			return nil
		}
	}
	return persistence.ErrNotFound
}

func (r *eventRepositoryStub) AddAttendee(_ context.Context, eventID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.events {
		if r.events[i].ID == eventID {
			if slices.Contains(r.events[i].Attendees, userID) {
				return persistence.ErrDuplicate
			}
			r.events[i].Attendees = append(slices.Clone(r.events[i].Attendees), userID)
			return nil
		}
	}
	return persistence.ErrNotFound
}

func (r *eventRepositoryStub) RemoveAttendee(_ context.Context, eventID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.events {
		if r.events[i].ID == eventID {
			if !slices.Contains(r.events[i].Attendees, userID) {
				return persistence.ErrNotMember
			}
			r.events[i].Attendees = slices.DeleteFunc(slices.Clone(r.events[i].Attendees), func(v string) bool { return v == userID })
			return nil
		}
	}
	return persistence.ErrNotFound
}

func (r *eventRepositoryStub) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func cloneEvent(event Event) Event {
	event.Attendees = slices.Clone(event.Attendees)
	if event.Attendees == nil {
		event.Attendees = []string{}
	}
	return event
}

type userRepositoryStub struct {
	mu      sync.Mutex
	users   map[string]User
	setErr  error
	upserts []User
}

func newUserRepositoryStub(users ...User) *userRepositoryStub {
	stub := &userRepositoryStub{users: make(map[string]User)}
	for _, user := range users {
		stub.users[user.ID] = user
	}
	return stub
}

func (r *userRepositoryStub) GetUser(_ context.Context, id string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return User{}, persistence.ErrNotFound
	}
	return user, nil
}

func (r *userRepositoryStub) ListUsers(context.Context) ([]User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]User, 0, len(r.users))
	for _, user := range r.users {
		out = append(out, user)
	}
	return out, nil
}

func (r *userRepositoryStub) SetUserAdmin(_ context.Context, id string, isAdmin bool, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.setErr != nil {
		return r.setErr
	}
	user, ok := r.users[id]
	if !ok {
		return persistence.ErrNotFound
	}
	user.IsAdmin = isAdmin
	user.UpdatedAt = updatedAt
	r.users[id] = user
	return nil
}

func (r *userRepositoryStub) UpsertLogin(_ context.Context, user User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserts = append(r.upserts, user)
	if existing, ok := r.users[user.ID]; ok {
		existing.Email = user.Email
		existing.DisplayName = user.DisplayName
		existing.PhotoURL = user.PhotoURL
		existing.LastLogin = user.LastLogin
		existing.UpdatedAt = user.LastLogin
		r.users[user.ID] = existing
		return existing, nil
	}
	r.users[user.ID] = user
	return user, nil
}

type sessionRepositoryStub struct {
	mu        sync.Mutex
	sessions  map[string]SessionRecord
	createErr error
	purgedAt  []time.Time
}

func newSessionRepositoryStub() *sessionRepositoryStub {
	return &sessionRepositoryStub{sessions: make(map[string]SessionRecord)}
}

func (r *sessionRepositoryStub) CreateSession(_ context.Context, session SessionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.sessions[session.TokenHash] = session
	return nil
}

func (r *sessionRepositoryStub) GetSessionByTokenHash(_ context.Context, tokenHash string) (SessionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[tokenHash]
	if !ok {
		return SessionRecord{}, persistence.ErrNotFound
	}
	return session, nil
}

func (r *sessionRepositoryStub) RevokeSession(_ context.Context, tokenHash string, revokedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[tokenHash]
	if !ok {
		return persistence.ErrNotFound
	}
	session.RevokedAt = &revokedAt
	r.sessions[tokenHash] = session
	return nil
}

func (r *sessionRepositoryStub) DeleteExpiredSessions(_ context.Context, reference time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.purgedAt = append(r.purgedAt, reference)
	var removed int64
	for hash, session := range r.sessions {
		if !session.ExpiresAt.After(reference) {
			delete(r.sessions, hash)
			removed++
		}
	}
	return removed, nil
}

type identityProviderStub struct {
	identity Identity
	err      error
	codes    []string
}

func (p *identityProviderStub) AuthCodeURL(state string) string {
	return "https://login.example.test/authorize?state=" + state
}

func (p *identityProviderStub) Exchange(_ context.Context, code string) (Identity, error) {
	p.codes = append(p.codes, code)
	if p.err != nil {
		return Identity{}, p.err
	}
	return p.identity, nil
}

type recorderStub struct {
	mu           sync.Mutex
	observations []string
}

func (r *recorderStub) ObserveOperation(service, operation, errorKind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observations = append(r.observations, service+"."+operation+":"+errorKind)
}

var errStoreDown = errors.New("store unavailable")
