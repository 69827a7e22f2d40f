package http

import (
	"context"

	"github.com/example/eventboard/internal/application"
	"github.com/example/eventboard/internal/i18n"
)

type contextKey string

const (
	principalContextKey contextKey = "principal"
	localizerContextKey contextKey = "localizer"
)

// ContextWithPrincipal returns a derived context containing the authenticated principal.
func ContextWithPrincipal(ctx context.Context, principal application.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}

// PrincipalFromContext extracts the authenticated principal from context if available.
func PrincipalFromContext(ctx context.Context) (application.Principal, bool) {
	principal, ok := ctx.Value(principalContextKey).(application.Principal)
	return principal, ok
}

// ContextWithLocalizer attaches the localizer negotiated for the request.
func ContextWithLocalizer(ctx context.Context, localizer *i18n.Localizer) context.Context {
	return context.WithValue(ctx, localizerContextKey, localizer)
}

// LocalizerFromContext returns the request localizer, if any.
func LocalizerFromContext(ctx context.Context) *i18n.Localizer {
	localizer, _ := ctx.Value(localizerContextKey).(*i18n.Localizer)
	return localizer
}
