package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/example/eventboard/internal/application"
	"github.com/example/eventboard/internal/i18n"
	"github.com/example/eventboard/internal/logging"
)

var fallbackBundle = sync.OnceValue(i18n.MustNewBundle)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// writeError writes a localized error body. code is the machine readable
// error_code.
func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, code, messageID string, data map[string]any) {
	r.writeJSON(ctx, w, status, errorResponse{
		ErrorCode: code,
		Message:   r.localize(ctx, messageID, data),
	})
}

// message renders a localized success message.
func (r responder) message(ctx context.Context, messageID string, data map[string]any) string {
	return r.localize(ctx, messageID, data)
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, "internal", i18n.MsgInternal, nil)
		return
	}

	kind := application.ErrorKind(err)
	switch {
	case errors.Is(err, application.ErrUnauthorized):
		r.writeError(ctx, w, http.StatusForbidden, kind, i18n.MsgForbidden, nil)
	case errors.Is(err, application.ErrNotFound):
		r.writeError(ctx, w, http.StatusNotFound, kind, i18n.MsgNotFound, nil)
	case errors.Is(err, application.ErrTitleTaken):
		r.writeError(ctx, w, http.StatusBadRequest, kind, i18n.MsgTitleTaken, nil)
	case errors.Is(err, application.ErrAlreadyAttending):
		r.writeError(ctx, w, http.StatusBadRequest, kind, i18n.MsgAlreadyAttending, nil)
	case errors.Is(err, application.ErrNotAttending):
		r.writeError(ctx, w, http.StatusBadRequest, kind, i18n.MsgNotAttending, nil)
	case errors.Is(err, application.ErrQuotaExceeded):
		limit := application.DefaultQuotaLimit
		var qErr *application.QuotaError
		if errors.As(err, &qErr) {
			limit = qErr.Limit
		}
		r.writeError(ctx, w, http.StatusForbidden, kind, i18n.MsgQuotaExceeded, map[string]any{"Limit": limit})
	case errors.Is(err, application.ErrSessionExpired):
		r.writeError(ctx, w, http.StatusUnauthorized, kind, i18n.MsgSessionExpired, nil)
	case errors.Is(err, application.ErrSessionRevoked):
		r.writeError(ctx, w, http.StatusUnauthorized, kind, i18n.MsgSessionRevoked, nil)
	case errors.Is(err, application.ErrInvalidCredentials):
		r.writeError(ctx, w, http.StatusUnauthorized, kind, i18n.MsgInvalidCredentials, nil)
	case errors.Is(err, application.ErrIdentityProvider):
		r.writeError(ctx, w, http.StatusBadGateway, kind, i18n.MsgIdentityProvider, nil)
	default:
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			r.writeJSON(ctx, w, http.StatusBadRequest, errorResponse{
				ErrorCode: kind,
				Message:   r.localize(ctx, i18n.MsgValidationFailed, nil),
				Errors:    r.localizeValidationErrors(ctx, vErr),
			})
			return
		}

		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "error", err)
		r.writeError(ctx, w, http.StatusInternalServerError, "internal", i18n.MsgInternal, nil)
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := logging.FromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func (r responder) localize(ctx context.Context, messageID string, data map[string]any) string {
	localizer := LocalizerFromContext(ctx)
	if localizer == nil {
		localizer = fallbackBundle().Localizer("")
	}
	return localizer.Message(messageID, data)
}

// validationMessageIDs maps service validation messages to catalog entries.
var validationMessageIDs = map[string]string{
	"title is required":                            i18n.MsgTitleRequired,
	"date must use YYYY-MM-DD":                     i18n.MsgDateFormat,
	"time must use 24-hour HH:MM":                  i18n.MsgTimeFormat,
	"image must be a preset image or an https URL": i18n.MsgImageNotAllowed,
	"user id is required":                          i18n.MsgUserIDRequired,
	"is required":                                  i18n.MsgFieldRequired,
}

func (r responder) localizeValidationErrors(ctx context.Context, vErr *application.ValidationError) map[string]string {
	if vErr == nil || len(vErr.FieldErrors) == 0 {
		return nil
	}

	translated := make(map[string]string, len(vErr.FieldErrors))
	for field, msg := range vErr.FieldErrors {
		switch {
		case msg == "contains inappropriate language":
			translated[field] = r.localize(ctx, i18n.MsgProfanity, map[string]any{"Field": field})
		case validationMessageIDs[msg] != "":
			translated[field] = r.localize(ctx, validationMessageIDs[msg], nil)
		default:
			translated[field] = msg
		}
	}
	return translated
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}
