package http

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/example/eventboard/internal/application"
)

type stubEventService struct {
	mu sync.Mutex

	createFn func(application.CreateEventParams) (application.Event, error)
	updateFn func(application.UpdateEventParams) (application.Event, error)
	deleteFn func(application.Principal, string) error
	joinFn   func(application.Principal, string) (application.Event, error)
	leaveFn  func(application.Principal, string) (application.Event, error)
	getFn    func(string) (application.Event, error)
	listFn   func(application.ListEventsParams) ([]application.Event, error)
	past     map[string]bool

	listCalls []application.ListEventsParams
}

func (s *stubEventService) CreateEvent(_ context.Context, params application.CreateEventParams) (application.Event, error) {
	if s.createFn == nil {
		return application.Event{}, errors.New("create not stubbed")
	}
	return s.createFn(params)
}

func (s *stubEventService) UpdateEvent(_ context.Context, params application.UpdateEventParams) (application.Event, error) {
	if s.updateFn == nil {
		return application.Event{}, errors.New("update not stubbed")
	}
	return s.updateFn(params)
}

func (s *stubEventService) DeleteEvent(_ context.Context, principal application.Principal, eventID string) error {
	if s.deleteFn == nil {
		return errors.New("delete not stubbed")
	}
	return s.deleteFn(principal, eventID)
}

func (s *stubEventService) JoinEvent(_ context.Context, principal application.Principal, eventID string) (application.Event, error) {
	if s.joinFn == nil {
		return application.Event{}, errors.New("join not stubbed")
	}
	return s.joinFn(principal, eventID)
}

func (s *stubEventService) LeaveEvent(_ context.Context, principal application.Principal, eventID string) (application.Event, error) {
	if s.leaveFn == nil {
		return application.Event{}, errors.New("leave not stubbed")
	}
	return s.leaveFn(principal, eventID)
}

func (s *stubEventService) GetEvent(_ context.Context, eventID string) (application.Event, error) {
	if s.getFn == nil {
		return application.Event{}, application.ErrNotFound
	}
	return s.getFn(eventID)
}

func (s *stubEventService) ListEvents(_ context.Context, params application.ListEventsParams) ([]application.Event, error) {
	s.mu.Lock()
	s.listCalls = append(s.listCalls, params)
	s.mu.Unlock()
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(params)
}

func (s *stubEventService) IsPast(event application.Event) bool {
	return s.past[event.ID]
}

type stubUserService struct {
	users    map[string]application.User
	err      error
	setCalls []setAdminCall
}

type setAdminCall struct {
	principal application.Principal
	targetID  string
	isAdmin   bool
}

func (s *stubUserService) GetUser(_ context.Context, _ application.Principal, userID string) (application.User, error) {
	if s.err != nil {
		return application.User{}, s.err
	}
	user, ok := s.users[userID]
	if !ok {
		return application.User{}, application.ErrNotFound
	}
	return user, nil
}

func (s *stubUserService) ListUsers(_ context.Context, principal application.Principal) (map[string]application.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	if !principal.IsAdmin {
		return nil, application.ErrUnauthorized
	}
	return s.users, nil
}

func (s *stubUserService) SetUserAdmin(_ context.Context, principal application.Principal, targetID string, isAdmin bool) (application.User, error) {
	s.setCalls = append(s.setCalls, setAdminCall{principal: principal, targetID: targetID, isAdmin: isAdmin})
	if s.err != nil {
		return application.User{}, s.err
	}
	user, ok := s.users[targetID]
	if !ok {
		return application.User{}, application.ErrNotFound
	}
	user.IsAdmin = isAdmin
	return user, nil
}

type stubAuthService struct {
	loginURL    string
	result      application.LoginResult
	completeErr error
	revokeErr   error

	codes   []string
	revoked []string
}

func (s *stubAuthService) LoginURL(state string) (string, error) {
	return s.loginURL + "?state=" + state, nil
}

func (s *stubAuthService) CompleteLogin(_ context.Context, code string) (application.LoginResult, error) {
	s.codes = append(s.codes, code)
	if s.completeErr != nil {
		return application.LoginResult{}, s.completeErr
	}
	return s.result, nil
}

func (s *stubAuthService) RevokeSession(_ context.Context, token string) error {
	s.revoked = append(s.revoked, token)
	return s.revokeErr
}

// stubSessions resolves tokens from a fixed table. Unknown tokens are
// reported as invalid credentials.
type stubSessions struct {
	principals map[string]application.Principal
	errs       map[string]error
}

func (s stubSessions) ValidateSession(_ context.Context, token string) (application.Principal, error) {
	if err, ok := s.errs[token]; ok {
		return application.Principal{}, err
	}
	if principal, ok := s.principals[token]; ok {
		return principal, nil
	}
	return application.Principal{}, application.ErrInvalidCredentials
}

type stubCalendar struct {
	events []application.Event
}

func (c *stubCalendar) Write(w io.Writer, events []application.Event) error {
	c.events = events
	_, err := io.WriteString(w, "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n")
	return err
}

type stubStatusRecorder struct {
	mu       sync.Mutex
	statuses []int
	timings  int
	limited  int
}

func (r *stubStatusRecorder) RecordHTTPStatus(statusCode int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, statusCode)
}

func (r *stubStatusRecorder) RecordHTTPLatency(time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timings++
}

func (r *stubStatusRecorder) RecordRateLimited() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limited++
}
