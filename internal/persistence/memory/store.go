// Package memory provides an in-process implementation of the persistence
// contracts. It is used by tests and by local development when no SQLite DSN
// is configured.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/example/eventboard/internal/persistence"
)

// Store keeps users, events, and sessions in maps guarded by a single lock.
type Store struct {
	mu       sync.RWMutex
	users    map[string]persistence.User
	events   map[string]persistence.Event
	sessions map[string]persistence.Session
	// order records insertion sequence so listings are stable.
	order []string
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		users:    make(map[string]persistence.User),
		events:   make(map[string]persistence.Event),
		sessions: make(map[string]persistence.Session),
	}
}

// Close releases resources held by the store. No-op for the in-memory implementation.
func (s *Store) Close() error {
	return nil
}

// --- UserRepository implementation ---

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	return user, nil
}

// ListUsers returns all users ordered by CreatedAt ascending.
func (s *Store) ListUsers(ctx context.Context) ([]persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]persistence.User, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, user)
	}

	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})

	return users, nil
}

// SetUserAdmin updates the admin flag of an existing user.
func (s *Store) SetUserAdmin(ctx context.Context, id string, isAdmin bool, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return persistence.ErrNotFound
	}
	user.IsAdmin = isAdmin
	user.UpdatedAt = updatedAt
	s.users[id] = user
	return nil
}

// UpsertLogin creates or refreshes a user from a login.
func (s *Store) UpsertLogin(ctx context.Context, user persistence.User) (persistence.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[user.ID]
	if !ok {
		if user.CreatedAt.IsZero() {
			user.CreatedAt = user.LastLogin
		}
		if user.UpdatedAt.IsZero() {
			user.UpdatedAt = user.LastLogin
		}
		s.users[user.ID] = user
		return user, nil
	}

	existing.Email = user.Email
	existing.DisplayName = user.DisplayName
	existing.PhotoURL = user.PhotoURL
	existing.LastLogin = user.LastLogin
	existing.UpdatedAt = user.LastLogin
	s.users[user.ID] = existing
	return existing, nil
}

// PutUser stores a user verbatim. It exists for seeding tests and fixtures.
func (s *Store) PutUser(user persistence.User) {
	s.mu.Lock()
	s.users[user.ID] = user
	s.mu.Unlock()
}

// --- EventRepository implementation ---

// CreateEvent stores a new event under its pre-assigned ID.
func (s *Store) CreateEvent(ctx context.Context, event persistence.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[event.ID]; ok {
		return persistence.ErrDuplicate
	}

	s.events[event.ID] = cloneEvent(event)
	s.order = append(s.order, event.ID)
	return nil
}

// GetEvent retrieves an event by ID.
func (s *Store) GetEvent(ctx context.Context, id string) (persistence.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	event, ok := s.events[id]
	if !ok {
		return persistence.Event{}, persistence.ErrNotFound
	}
	return cloneEvent(event), nil
}

// ListEvents returns every event in insertion order.
func (s *Store) ListEvents(ctx context.Context) ([]persistence.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]persistence.Event, 0, len(s.events))
	for _, id := range s.order {
		if event, ok := s.events[id]; ok {
			events = append(events, cloneEvent(event))
		}
	}
	return events, nil
}

// UpdateEvent merges the patch into an existing event.
func (s *Store) UpdateEvent(ctx context.Context, id string, patch persistence.EventPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[id]
	if !ok {
		return persistence.ErrNotFound
	}

	event.Title = patch.Title
	event.Description = patch.Description
	event.Date = patch.Date
	event.Time = patch.Time
	event.Location = patch.Location
	event.UpdatedAt = patch.UpdatedAt
	s.events[id] = event
	return nil
}

// DeleteEvent removes an event permanently.
func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[id]; !ok {
		return persistence.ErrNotFound
	}

	delete(s.events, id)
	s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })
	return nil
}

// AddAttendee appends a user to the attendee list under the store lock.
func (s *Store) AddAttendee(ctx context.Context, eventID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[eventID]
	if !ok {
		return persistence.ErrNotFound
	}
	if slices.Contains(event.Attendees, userID) {
		return persistence.ErrDuplicate
	}

	event.Attendees = append(slices.Clone(event.Attendees), userID)
	s.events[eventID] = event
	return nil
}

// RemoveAttendee removes a user from the attendee list under the store lock.
func (s *Store) RemoveAttendee(ctx context.Context, eventID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[eventID]
	if !ok {
		return persistence.ErrNotFound
	}
	if !slices.Contains(event.Attendees, userID) {
		return persistence.ErrNotMember
	}

	event.Attendees = slices.DeleteFunc(slices.Clone(event.Attendees), func(v string) bool { return v == userID })
	s.events[eventID] = event
	return nil
}

// --- SessionRepository implementation ---

// CreateSession stores a new session keyed by its token hash.
func (s *Store) CreateSession(ctx context.Context, session persistence.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[session.TokenHash]; ok {
		return persistence.ErrDuplicate
	}
	s.sessions[session.TokenHash] = cloneSession(session)
	return nil
}

// GetSessionByTokenHash retrieves a session by the hash of its token.
func (s *Store) GetSessionByTokenHash(ctx context.Context, tokenHash string) (persistence.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[tokenHash]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	return cloneSession(session), nil
}

// RevokeSession marks a session as revoked.
func (s *Store) RevokeSession(ctx context.Context, tokenHash string, revokedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[tokenHash]
	if !ok {
		return persistence.ErrNotFound
	}
	at := revokedAt
	session.RevokedAt = &at
	s.sessions[tokenHash] = session
	return nil
}

// DeleteExpiredSessions removes sessions that expired at or before reference.
func (s *Store) DeleteExpiredSessions(ctx context.Context, reference time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for hash, session := range s.sessions {
		if !session.ExpiresAt.After(reference) {
			delete(s.sessions, hash)
			removed++
		}
	}
	return removed, nil
}

func cloneEvent(event persistence.Event) persistence.Event {
	event.Attendees = slices.Clone(event.Attendees)
	if event.Attendees == nil {
		event.Attendees = []string{}
	}
	return event
}

func cloneSession(session persistence.Session) persistence.Session {
	if session.RevokedAt != nil {
		at := *session.RevokedAt
		session.RevokedAt = &at
	}
	return session
}
