package main

import (
	"context"
	"slices"
	"time"

	"github.com/example/eventboard/internal/application"
	"github.com/example/eventboard/internal/persistence"
)

type eventRepositoryAdapter struct {
	repo persistence.EventRepository
}

func newEventRepositoryAdapter(repo persistence.EventRepository) *eventRepositoryAdapter {
	return &eventRepositoryAdapter{repo: repo}
}

func (a *eventRepositoryAdapter) CreateEvent(ctx context.Context, event application.Event) (application.Event, error) {
	if err := a.repo.CreateEvent(ctx, toPersistenceEvent(event)); err != nil {
		return application.Event{}, err
	}
	return a.GetEvent(ctx, event.ID)
}

func (a *eventRepositoryAdapter) GetEvent(ctx context.Context, id string) (application.Event, error) {
	stored, err := a.repo.GetEvent(ctx, id)
	if err != nil {
		return application.Event{}, err
	}
	return toApplicationEvent(stored), nil
}

func (a *eventRepositoryAdapter) ListEvents(ctx context.Context) ([]application.Event, error) {
	stored, err := a.repo.ListEvents(ctx)
	if err != nil {
		return nil, err
	}
	events := make([]application.Event, 0, len(stored))
	for _, event := range stored {
		events = append(events, toApplicationEvent(event))
	}
	return events, nil
}

// UpdateEvent writes only the mutable fields; creator, attendees and the admin
// flag are never touched by an edit.
func (a *eventRepositoryAdapter) UpdateEvent(ctx context.Context, event application.Event) (application.Event, error) {
	patch := persistence.EventPatch{
		Title:       event.Title,
		Description: event.Description,
		Date:        event.Date,
		Time:        event.Time,
		Location:    event.Location,
		UpdatedAt:   event.UpdatedAt,
	}
	if err := a.repo.UpdateEvent(ctx, event.ID, patch); err != nil {
		return application.Event{}, err
	}
	return a.GetEvent(ctx, event.ID)
}

func (a *eventRepositoryAdapter) DeleteEvent(ctx context.Context, id string) error {
	return a.repo.DeleteEvent(ctx, id)
}

func (a *eventRepositoryAdapter) AddAttendee(ctx context.Context, eventID, userID string) error {
	return a.repo.AddAttendee(ctx, eventID, userID)
}

func (a *eventRepositoryAdapter) RemoveAttendee(ctx context.Context, eventID, userID string) error {
	return a.repo.RemoveAttendee(ctx, eventID, userID)
}

type userRepositoryAdapter struct {
	repo persistence.UserRepository
}

func newUserRepositoryAdapter(repo persistence.UserRepository) *userRepositoryAdapter {
	return &userRepositoryAdapter{repo: repo}
}

func (a *userRepositoryAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) ListUsers(ctx context.Context) ([]application.User, error) {
	stored, err := a.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	users := make([]application.User, 0, len(stored))
	for _, user := range stored {
		users = append(users, toApplicationUser(user))
	}
	return users, nil
}

func (a *userRepositoryAdapter) SetUserAdmin(ctx context.Context, id string, isAdmin bool, updatedAt time.Time) error {
	return a.repo.SetUserAdmin(ctx, id, isAdmin, updatedAt)
}

func (a *userRepositoryAdapter) UpsertLogin(ctx context.Context, user application.User) (application.User, error) {
	stored, err := a.repo.UpsertLogin(ctx, toPersistenceUser(user))
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

type sessionRepositoryAdapter struct {
	repo persistence.SessionRepository
}

func newSessionRepositoryAdapter(repo persistence.SessionRepository) *sessionRepositoryAdapter {
	return &sessionRepositoryAdapter{repo: repo}
}

func (a *sessionRepositoryAdapter) CreateSession(ctx context.Context, session application.SessionRecord) error {
	return a.repo.CreateSession(ctx, toPersistenceSession(session))
}

func (a *sessionRepositoryAdapter) GetSessionByTokenHash(ctx context.Context, tokenHash string) (application.SessionRecord, error) {
	stored, err := a.repo.GetSessionByTokenHash(ctx, tokenHash)
	if err != nil {
		return application.SessionRecord{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) RevokeSession(ctx context.Context, tokenHash string, revokedAt time.Time) error {
	return a.repo.RevokeSession(ctx, tokenHash, revokedAt)
}

func (a *sessionRepositoryAdapter) DeleteExpiredSessions(ctx context.Context, reference time.Time) (int64, error) {
	return a.repo.DeleteExpiredSessions(ctx, reference)
}

func toApplicationEvent(model persistence.Event) application.Event {
	attendees := slices.Clone(model.Attendees)
	if attendees == nil {
		attendees = []string{}
	}
	return application.Event{
		ID:           model.ID,
		CreatorID:    model.CreatorID,
		CreatorName:  model.CreatorName,
		Title:        model.Title,
		Description:  model.Description,
		Location:     model.Location,
		ImageURL:     model.ImageURL,
		Date:         model.Date,
		Time:         model.Time,
		Attendees:    attendees,
		IsAdminEvent: model.IsAdminEvent,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}
}

func toPersistenceEvent(event application.Event) persistence.Event {
	return persistence.Event{
		ID:           event.ID,
		CreatorID:    event.CreatorID,
		CreatorName:  event.CreatorName,
		Title:        event.Title,
		Description:  event.Description,
		Location:     event.Location,
		ImageURL:     event.ImageURL,
		Date:         event.Date,
		Time:         event.Time,
		Attendees:    slices.Clone(event.Attendees),
		IsAdminEvent: event.IsAdminEvent,
		CreatedAt:    event.CreatedAt,
		UpdatedAt:    event.UpdatedAt,
	}
}

func toApplicationUser(model persistence.User) application.User {
	return application.User{
		ID:          model.ID,
		Email:       model.Email,
		DisplayName: model.DisplayName,
		PhotoURL:    model.PhotoURL,
		IsAdmin:     model.IsAdmin,
		LastLogin:   model.LastLogin,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

func toPersistenceUser(user application.User) persistence.User {
	return persistence.User{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		PhotoURL:    user.PhotoURL,
		IsAdmin:     user.IsAdmin,
		LastLogin:   user.LastLogin,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
}

func toApplicationSession(model persistence.Session) application.SessionRecord {
	return application.SessionRecord{
		ID:        model.ID,
		UserID:    model.UserID,
		TokenHash: model.TokenHash,
		ExpiresAt: model.ExpiresAt,
		CreatedAt: model.CreatedAt,
		RevokedAt: cloneTime(model.RevokedAt),
	}
}

func toPersistenceSession(session application.SessionRecord) persistence.Session {
	return persistence.Session{
		ID:        session.ID,
		UserID:    session.UserID,
		TokenHash: session.TokenHash,
		ExpiresAt: session.ExpiresAt,
		CreatedAt: session.CreatedAt,
		RevokedAt: cloneTime(session.RevokedAt),
	}
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}
