package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/eventboard/internal/persistence"
)

// UserRepository captures the persistence operations needed by the user service.
type UserRepository interface {
	GetUser(ctx context.Context, id string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	SetUserAdmin(ctx context.Context, id string, isAdmin bool, updatedAt time.Time) error
}

// UserService exposes user lookups and admin promotion.
type UserService struct {
	users    UserRepository
	now      func() time.Time
	logger   *slog.Logger
	recorder Recorder
}

// NewUserService wires dependencies for the user service.
func NewUserService(users UserRepository, now func() time.Time) *UserService {
	return NewUserServiceWithLogger(users, now, nil, nil)
}

// NewUserServiceWithLogger constructs a user service with a specified logger and recorder.
func NewUserServiceWithLogger(users UserRepository, now func() time.Time, logger *slog.Logger, recorder Recorder) *UserService {
	if now == nil {
		now = time.Now
	}
	return &UserService{
		users:    users,
		now:      now,
		logger:   defaultLogger(logger),
		recorder: defaultRecorder(recorder),
	}
}

func (s *UserService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "UserService", operation, attrs...)
}

// SetUserAdmin changes the admin flag of target. The requester's own admin
// status is read from the store, not from the principal.
func (s *UserService) SetUserAdmin(ctx context.Context, principal Principal, targetID string, isAdmin bool) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	targetID = strings.TrimSpace(targetID)
	logger := s.loggerWith(ctx, "SetUserAdmin",
		"principal_id", principal.UserID,
		"target_id", targetID,
		"is_admin", isAdmin,
	)
	defer func() {
		s.recorder.ObserveOperation("UserService", "SetUserAdmin", ErrorKind(err))
		logOutcome(ctx, logger, err, "admin flag updated")
	}()

	if targetID == "" {
		vErr := &ValidationError{}
		vErr.add("user_id", "user id is required")
		err = vErr
		return
	}

	if err = s.requireAdmin(ctx, principal); err != nil {
		return
	}

	if _, err = s.users.GetUser(ctx, targetID); err != nil {
		err = mapUserRepoError(err)
		return
	}

	if err = s.users.SetUserAdmin(ctx, targetID, isAdmin, s.now()); err != nil {
		err = mapUserRepoError(err)
		return
	}

	user, err = s.users.GetUser(ctx, targetID)
	if err != nil {
		err = mapUserRepoError(err)
	}
	return
}

// GetUser returns a single user to any authenticated principal.
func (s *UserService) GetUser(ctx context.Context, principal Principal, userID string) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("UserService is nil")
	}
	if s.users == nil {
		return User{}, fmt.Errorf("user repository not configured")
	}
	if strings.TrimSpace(principal.UserID) == "" {
		return User{}, ErrUnauthorized
	}

	userID = strings.TrimSpace(userID)
	if userID == "" {
		vErr := &ValidationError{}
		vErr.add("user_id", "user id is required")
		return User{}, vErr
	}

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return User{}, mapUserRepoError(err)
	}
	return user, nil
}

// ListUsers returns every user keyed by ID. Only admins may list users.
func (s *UserService) ListUsers(ctx context.Context, principal Principal) (users map[string]User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "ListUsers", "principal_id", principal.UserID)
	defer func() {
		s.recorder.ObserveOperation("UserService", "ListUsers", ErrorKind(err))
		logOutcome(ctx, logger, err, "users listed", "count", len(users))
	}()

	if err = s.requireAdmin(ctx, principal); err != nil {
		return
	}

	var list []User
	list, err = s.users.ListUsers(ctx)
	if err != nil {
		return
	}

	users = make(map[string]User, len(list))
	for _, user := range list {
		users[user.ID] = user
	}
	return
}

func (s *UserService) requireAdmin(ctx context.Context, principal Principal) error {
	if strings.TrimSpace(principal.UserID) == "" {
		return ErrUnauthorized
	}
	requester, err := s.users.GetUser(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
			return ErrUnauthorized
		}
		return err
	}
	if !requester.IsAdmin {
		return ErrUnauthorized
	}
	return nil
}

func mapUserRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
