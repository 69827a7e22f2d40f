package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/eventboard/internal/application"
	"github.com/example/eventboard/internal/i18n"
)

type userService interface {
	GetUser(ctx context.Context, principal application.Principal, userID string) (application.User, error)
	ListUsers(ctx context.Context, principal application.Principal) (map[string]application.User, error)
	SetUserAdmin(ctx context.Context, principal application.Principal, targetID string, isAdmin bool) (application.User, error)
}

// UserHandler serves user lookups and admin promotion.
type UserHandler struct {
	service   userService
	responder responder
	logger    *slog.Logger
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(service userService, logger *slog.Logger) *UserHandler {
	base := defaultLogger(logger)
	return &UserHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *UserHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "UserHandler", operation, attrs...)
}

// Get returns the user named by ?userId=, or every user keyed by id when the
// parameter is absent. Listing is admin only.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()

	if !query.Has("userId") {
		logger := h.log(r.Context(), "List", "principal_id", principal.UserID)
		users, err := h.service.ListUsers(r.Context(), principal)
		if err != nil {
			logger.WarnContext(r.Context(), "user list failed", "error", err, "error_kind", application.ErrorKind(err))
			h.responder.handleServiceError(r.Context(), w, err)
			return
		}

		out := make(map[string]userDTO, len(users))
		for id, user := range users {
			out[id] = toUserDTO(user)
		}
		logger.With("result_count", len(out)).InfoContext(r.Context(), "users listed")
		h.responder.writeJSON(r.Context(), w, http.StatusOK, out)
		return
	}

	userID := strings.TrimSpace(query.Get("userId"))
	logger := h.log(r.Context(), "Get", "principal_id", principal.UserID, "user_id", userID)
	user, err := h.service.GetUser(r.Context(), principal, userID)
	if err != nil {
		logger.WarnContext(r.Context(), "user lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toUserDTO(user))
}

// SetAdmin changes another user's admin flag.
func (h *UserHandler) SetAdmin(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req setAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "SetAdmin", "principal_id", principal.UserID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode admin request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, "invalid_request", i18n.MsgInvalidRequest, nil)
		return
	}
	if req.IsAdmin == nil {
		h.responder.handleServiceError(r.Context(), w, &application.ValidationError{
			FieldErrors: map[string]string{"isAdmin": "is required"},
		})
		return
	}

	logger := h.log(r.Context(), "SetAdmin", "principal_id", principal.UserID, "user_id", req.UserID)
	user, err := h.service.SetUserAdmin(r.Context(), principal, req.UserID, *req.IsAdmin)
	if err != nil {
		logger.WarnContext(r.Context(), "admin update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "admin flag updated", "is_admin", user.IsAdmin)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, setAdminResponse{
		Message: h.responder.message(r.Context(), i18n.MsgAdminStatus, map[string]any{"IsAdmin": user.IsAdmin}),
		User:    toUserDTO(user),
	})
}

type setAdminRequest struct {
	UserID  string `json:"userId"`
	IsAdmin *bool  `json:"isAdmin"`
}

type setAdminResponse struct {
	Message string  `json:"message"`
	User    userDTO `json:"user"`
}

type userDTO struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL,omitempty"`
	IsAdmin     bool   `json:"isAdmin"`
	LastLogin   string `json:"lastLogin,omitempty"`
	CreatedAt   string `json:"createdAt"`
}

func toUserDTO(user application.User) userDTO {
	dto := userDTO{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		PhotoURL:    user.PhotoURL,
		IsAdmin:     user.IsAdmin,
		CreatedAt:   user.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if !user.LastLogin.IsZero() {
		dto.LastLogin = user.LastLogin.UTC().Format(time.RFC3339Nano)
	}
	return dto
}
