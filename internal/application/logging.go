package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/eventboard/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = base
	}
	if logger == nil {
		logger = slog.Default()
	}

	pairs := []any{"service", serviceName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if len(attrs) > 0 {
		pairs = append(pairs, attrs...)
	}
	return logger.With(pairs...)
}

// logOutcome writes the single completion line every service operation emits.
// Expected rejections log at warn, everything else at error.
func logOutcome(ctx context.Context, logger *slog.Logger, err error, success string, attrs ...any) {
	if err == nil {
		logger.InfoContext(ctx, success, attrs...)
		return
	}
	kind := ErrorKind(err)
	args := append([]any{"error", err, "error_kind", kind}, attrs...)
	if kind == "unexpected" {
		logger.ErrorContext(ctx, "operation failed", args...)
		return
	}
	logger.WarnContext(ctx, "operation rejected", args...)
}

// Recorder receives one observation per completed service operation.
type Recorder interface {
	ObserveOperation(service, operation, errorKind string)
}

type noopRecorder struct{}

func (noopRecorder) ObserveOperation(string, string, string) {}

func defaultRecorder(recorder Recorder) Recorder {
	if recorder != nil {
		return recorder
	}
	return noopRecorder{}
}

// ErrorKind maps sentinel and validation errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrTitleTaken):
		return "title_taken"
	case errors.Is(err, ErrAlreadyAttending):
		return "already_attending"
	case errors.Is(err, ErrNotAttending):
		return "not_attending"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrSessionExpired):
		return "session_expired"
	case errors.Is(err, ErrSessionRevoked):
		return "session_revoked"
	case errors.Is(err, ErrIdentityProvider):
		return "identity_provider"
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}

	return "unexpected"
}
