package application

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/example/eventboard/internal/persistence"
)

// IdentityProvider performs the OAuth authorization code flow against an
// external identity service.
type IdentityProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (Identity, error)
}

// AccountStore records logins and resolves users for validated sessions.
type AccountStore interface {
	GetUser(ctx context.Context, id string) (User, error)
	UpsertLogin(ctx context.Context, user User) (User, error)
}

// SessionRepository captures the persistence interactions for issued sessions.
type SessionRepository interface {
	CreateSession(ctx context.Context, session SessionRecord) error
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (SessionRecord, error)
	RevokeSession(ctx context.Context, tokenHash string, revokedAt time.Time) error
	DeleteExpiredSessions(ctx context.Context, reference time.Time) (int64, error)
}

// AuthServiceDeps lists the collaborators of an AuthService.
type AuthServiceDeps struct {
	Provider        IdentityProvider
	Accounts        AccountStore
	Sessions        SessionRepository
	IDGenerator     func() string
	TokenGenerator  func() string
	Now             func() time.Time
	SessionTTL      time.Duration
	BootstrapAdmins []string
	Logger          *slog.Logger
	Recorder        Recorder
}

// AuthService turns identity provider logins into sessions and sessions into principals.
type AuthService struct {
	provider        IdentityProvider
	accounts        AccountStore
	sessions        SessionRepository
	idGenerator     func() string
	tokenGenerator  func() string
	now             func() time.Time
	sessionTTL      time.Duration
	bootstrapAdmins map[string]struct{}
	logger          *slog.Logger
	recorder        Recorder
}

// NewAuthService constructs an AuthService with the provided dependencies.
func NewAuthService(deps AuthServiceDeps) *AuthService {
	if deps.IDGenerator == nil {
		deps.IDGenerator = func() string { return "" }
	}
	if deps.TokenGenerator == nil {
		deps.TokenGenerator = func() string { return "" }
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.SessionTTL <= 0 {
		deps.SessionTTL = 24 * time.Hour
	}
	admins := make(map[string]struct{}, len(deps.BootstrapAdmins))
	for _, email := range deps.BootstrapAdmins {
		if email = normalizeEmail(email); email != "" {
			admins[email] = struct{}{}
		}
	}
	return &AuthService{
		provider:        deps.Provider,
		accounts:        deps.Accounts,
		sessions:        deps.Sessions,
		idGenerator:     deps.IDGenerator,
		tokenGenerator:  deps.TokenGenerator,
		now:             deps.Now,
		sessionTTL:      deps.SessionTTL,
		bootstrapAdmins: admins,
		logger:          defaultLogger(deps.Logger),
		recorder:        defaultRecorder(deps.Recorder),
	}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// HashToken returns the hex encoded BLAKE2b-256 digest under which a session token is stored.
func HashToken(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// LoginURL returns the provider URL that starts a login carrying state.
func (s *AuthService) LoginURL(state string) (string, error) {
	if s == nil || s.provider == nil {
		return "", fmt.Errorf("identity provider not configured")
	}
	return s.provider.AuthCodeURL(state), nil
}

// CompleteLogin exchanges an authorization code, records the login, and issues a session.
func (s *AuthService) CompleteLogin(ctx context.Context, code string) (result LoginResult, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.provider == nil || s.accounts == nil || s.sessions == nil {
		err = fmt.Errorf("auth service dependencies not configured")
		return
	}

	logger := s.loggerWith(ctx, "CompleteLogin")
	defer func() {
		s.recorder.ObserveOperation("AuthService", "CompleteLogin", ErrorKind(err))
		logOutcome(ctx, logger, err, "login completed",
			"user_id", result.User.ID,
			"session_id", result.Session.ID,
		)
	}()

	code = strings.TrimSpace(code)
	if code == "" {
		err = ErrInvalidCredentials
		return
	}

	var identity Identity
	identity, err = s.provider.Exchange(ctx, code)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrIdentityProvider, err)
		return
	}
	if strings.TrimSpace(identity.Subject) == "" {
		err = ErrInvalidCredentials
		return
	}

	now := s.now()
	login := User{
		ID:          identity.Subject,
		Email:       normalizeEmail(identity.Email),
		DisplayName: strings.TrimSpace(identity.DisplayName),
		PhotoURL:    strings.TrimSpace(identity.PhotoURL),
		LastLogin:   now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if login.DisplayName == "" {
		login.DisplayName = login.Email
	}

	// The flag only matters on first login; the store keeps it for known users.
	_, lookupErr := s.accounts.GetUser(ctx, login.ID)
	switch {
	case lookupErr == nil:
	case errors.Is(lookupErr, ErrNotFound), errors.Is(lookupErr, persistence.ErrNotFound):
		_, login.IsAdmin = s.bootstrapAdmins[login.Email]
	default:
		err = lookupErr
		return
	}

	result.User, err = s.accounts.UpsertLogin(ctx, login)
	if err != nil {
		return
	}

	token := s.tokenGenerator()
	if token == "" {
		err = fmt.Errorf("token generator returned an empty token")
		return
	}
	record := SessionRecord{
		ID:        s.idGenerator(),
		UserID:    result.User.ID,
		TokenHash: HashToken(token),
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err = s.sessions.CreateSession(ctx, record); err != nil {
		return
	}

	result.Session = Session{
		ID:        record.ID,
		UserID:    record.UserID,
		Token:     token,
		CreatedAt: record.CreatedAt,
		ExpiresAt: record.ExpiresAt,
	}
	return
}

// ValidateSession verifies that the provided token corresponds to an active
// session and returns its principal. The admin flag comes from the current
// user record.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (principal Principal, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.sessions == nil || s.accounts == nil {
		err = fmt.Errorf("auth service dependencies not configured")
		return
	}

	trimmed := strings.TrimSpace(token)
	logger := s.loggerWith(ctx, "ValidateSession", "token_provided", trimmed != "")
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "session validation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("principal_id", principal.UserID).DebugContext(ctx, "session validated")
	}()

	if trimmed == "" {
		err = ErrInvalidCredentials
		return
	}

	var session SessionRecord
	session, err = s.sessions.GetSessionByTokenHash(ctx, HashToken(trimmed))
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
			err = ErrInvalidCredentials
		}
		return
	}

	now := s.now()
	if session.RevokedAt != nil && !session.RevokedAt.IsZero() {
		err = ErrSessionRevoked
		return
	}
	if !session.ExpiresAt.IsZero() && !session.ExpiresAt.After(now) {
		err = ErrSessionExpired
		return
	}

	var user User
	user, err = s.accounts.GetUser(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
			err = ErrInvalidCredentials
		}
		return
	}

	principal = Principal{UserID: user.ID, IsAdmin: user.IsAdmin}
	return
}

// RevokeSession invalidates an existing session token.
func (s *AuthService) RevokeSession(ctx context.Context, token string) error {
	if s == nil {
		return fmt.Errorf("AuthService is nil")
	}
	if s.sessions == nil {
		return fmt.Errorf("session repository not configured")
	}

	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return ErrInvalidCredentials
	}

	logger := s.loggerWith(ctx, "RevokeSession")
	if err := s.sessions.RevokeSession(ctx, HashToken(trimmed), s.now()); err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
			err = ErrInvalidCredentials
		}
		logger.WarnContext(ctx, "failed to revoke session", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	logger.InfoContext(ctx, "session revoked")
	return nil
}

// PurgeExpiredSessions deletes every session whose expiry has passed and
// returns how many were removed.
func (s *AuthService) PurgeExpiredSessions(ctx context.Context) (removed int64, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.sessions == nil {
		err = fmt.Errorf("session repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "PurgeExpiredSessions")
	defer func() {
		s.recorder.ObserveOperation("AuthService", "PurgeExpiredSessions", ErrorKind(err))
		logOutcome(ctx, logger, err, "expired sessions purged", "removed", removed)
	}()

	removed, err = s.sessions.DeleteExpiredSessions(ctx, s.now())
	return
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
