package http

import (
	"context"
	"log/slog"

	"github.com/example/eventboard/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// handlerLogger prefers the request scoped logger, which already carries the
// request id and, behind RequireSession, the principal.
func handlerLogger(ctx context.Context, fallback *slog.Logger, handlerName, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = defaultLogger(fallback)
	}

	fields := make([]any, 0, 4+len(attrs))
	fields = append(fields, "handler", handlerName)
	if operation != "" {
		fields = append(fields, "operation", operation)
	}
	return logger.With(append(fields, attrs...)...)
}
