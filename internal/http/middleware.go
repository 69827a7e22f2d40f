package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/example/eventboard/internal/application"
	"github.com/example/eventboard/internal/i18n"
	"github.com/example/eventboard/internal/logging"
)

// SessionValidator resolves a session token to its principal.
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (application.Principal, error)
}

// StatusRecorder observes completed responses.
type StatusRecorder interface {
	RecordHTTPStatus(statusCode int)
	RecordHTTPLatency(d time.Duration)
}

// RequireSession rejects requests without a valid session and stores the
// principal in the request context.
func RequireSession(validator SessionValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractTokenFromRequest(r)
			if token == "" {
				responder.writeError(r.Context(), w, http.StatusUnauthorized, "unauthenticated", i18n.MsgUnauthenticated, nil)
				return
			}

			principal, err := validator.ValidateSession(r.Context(), token)
			if err != nil {
				switch {
				case errors.Is(err, application.ErrSessionExpired),
					errors.Is(err, application.ErrSessionRevoked),
					errors.Is(err, application.ErrInvalidCredentials),
					errors.Is(err, application.ErrUnauthorized),
					errors.Is(err, application.ErrNotFound):
					responder.handleServiceError(r.Context(), w, unauthenticated(err))
				default:
					responder.handleServiceError(r.Context(), w, err)
				}
				return
			}

			ctx := ContextWithPrincipal(r.Context(), principal)
			if logger := logging.FromContext(ctx); logger != nil {
				ctx = logging.ContextWithLogger(ctx, logger.With("principal_id", principal.UserID))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// unauthenticated folds authorization failures during session lookup into
// the credential errors that map to 401.
func unauthenticated(err error) error {
	if errors.Is(err, application.ErrUnauthorized) || errors.Is(err, application.ErrNotFound) {
		return application.ErrInvalidCredentials
	}
	return err
}

// RequestLogger attaches a request scoped logger and logs each request once
// it completes. It reads the id assigned by chi's RequestID middleware.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := base.With(
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := logging.ContextWithLogger(r.Context(), logger)
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r.WithContext(ctx))
			logger.InfoContext(ctx, "request completed",
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			)
		})
	}
}

// Recover turns a panic into a 500 response.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					responder.loggerFor(r.Context()).ErrorContext(r.Context(), "panic recovered",
						"panic", rec,
						"stack", string(debug.Stack()),
					)
					responder.writeError(r.Context(), w, http.StatusInternalServerError, "internal", i18n.MsgInternal, nil)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Localize negotiates the response language from Accept-Language.
func Localize(bundle *i18n.Bundle) func(http.Handler) http.Handler {
	if bundle == nil {
		bundle = fallbackBundle()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			localizer := bundle.Localizer(r.Header.Get("Accept-Language"))
			w.Header().Set("Content-Language", localizer.Language().String())
			next.ServeHTTP(w, r.WithContext(ContextWithLocalizer(r.Context(), localizer)))
		})
	}
}

// Metrics records the status code and latency of every response.
func Metrics(recorder StatusRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if recorder == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			recorder.RecordHTTPStatus(status)
			recorder.RecordHTTPLatency(time.Since(start))
		})
	}
}
