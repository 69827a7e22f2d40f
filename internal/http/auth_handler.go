package http

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/eventboard/internal/application"
	"github.com/example/eventboard/internal/i18n"
)

const (
	sessionCookieName = "session_token"
	stateCookieName   = "oauth_state"
	stateTTL          = 10 * time.Minute
)

type authService interface {
	LoginURL(state string) (string, error)
	CompleteLogin(ctx context.Context, code string) (application.LoginResult, error)
	RevokeSession(ctx context.Context, token string) error
}

type profileService interface {
	GetUser(ctx context.Context, principal application.Principal, userID string) (application.User, error)
}

// AuthHandlerConfig configures an AuthHandler.
type AuthHandlerConfig struct {
	Service      authService
	Users        profileService
	CookieSecure bool
	// AfterLogin is where a completed login lands. Defaults to "/".
	AfterLogin   string
	StateFactory func() string
	Logger       *slog.Logger
}

// AuthHandler drives the login redirect, OAuth callback, logout, and profile endpoints.
type AuthHandler struct {
	service      authService
	users        profileService
	cookieSecure bool
	afterLogin   string
	newState     func() string
	responder    responder
	logger       *slog.Logger
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(cfg AuthHandlerConfig) *AuthHandler {
	base := defaultLogger(cfg.Logger)
	if cfg.AfterLogin == "" {
		cfg.AfterLogin = "/"
	}
	if cfg.StateFactory == nil {
		cfg.StateFactory = uuid.NewString
	}
	return &AuthHandler{
		service:      cfg.Service,
		users:        cfg.Users,
		cookieSecure: cfg.CookieSecure,
		afterLogin:   cfg.AfterLogin,
		newState:     cfg.StateFactory,
		responder:    newResponder(base),
		logger:       base,
	}
}

func (h *AuthHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AuthHandler", operation, attrs...)
}

// Login redirects the browser to the identity provider.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	state := h.newState()
	target, err := h.service.LoginURL(state)
	if err != nil {
		h.log(r.Context(), "Login").ErrorContext(r.Context(), "failed to build login URL", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/auth",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}

// Callback completes the authorization code flow and sets the session cookie.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "Callback")
	query := r.URL.Query()

	cookie, err := r.Cookie(stateCookieName)
	state := query.Get("state")
	if err != nil || state == "" || subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(state)) != 1 {
		logger.WarnContext(r.Context(), "oauth state mismatch", "error_kind", "invalid_state")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, "invalid_state", i18n.MsgInvalidState, nil)
		return
	}
	h.clearCookie(w, stateCookieName, "/auth")

	if providerErr := query.Get("error"); providerErr != "" {
		logger.WarnContext(r.Context(), "identity provider returned an error", "provider_error", providerErr)
		h.responder.handleServiceError(r.Context(), w, application.ErrInvalidCredentials)
		return
	}

	result, err := h.service.CompleteLogin(r.Context(), query.Get("code"))
	if err != nil {
		logger.ErrorContext(r.Context(), "login failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.setSessionCookie(w, result.Session.Token, result.Session.ExpiresAt)
	logger.With("user_id", result.User.ID).InfoContext(r.Context(), "user signed in")
	http.Redirect(w, r, h.afterLogin, http.StatusTemporaryRedirect)
}

// Logout revokes the current session if there is one and clears the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "Logout")
	if token := extractTokenFromRequest(r); token != "" {
		if err := h.service.RevokeSession(r.Context(), token); err != nil && !errors.Is(err, application.ErrInvalidCredentials) {
			logger.ErrorContext(r.Context(), "failed to revoke session", "error", err, "error_kind", application.ErrorKind(err))
			h.responder.handleServiceError(r.Context(), w, err)
			return
		}
	}

	h.clearCookie(w, sessionCookieName, "/")
	logger.InfoContext(r.Context(), "session closed")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Me returns the signed-in user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.users == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	user, err := h.users.GetUser(r.Context(), principal, principal.UserID)
	if err != nil {
		h.log(r.Context(), "Me", "principal_id", principal.UserID).ErrorContext(r.Context(), "profile lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toUserDTO(user))
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	cookie := &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
	}
	if !expires.IsZero() {
		cookie.Expires = expires.UTC()
	}
	http.SetCookie(w, cookie)
}

func (h *AuthHandler) clearCookie(w http.ResponseWriter, name, path string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func extractTokenFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		const prefix = "Bearer "
		if strings.HasPrefix(header, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(header, prefix))
		}
	}
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}
