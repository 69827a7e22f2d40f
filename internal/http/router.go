package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/example/eventboard/internal/i18n"
)

// RouterConfig collects the handlers and cross cutting pieces served by
// NewRouter. Nil handlers leave their routes unmounted.
type RouterConfig struct {
	Auth     *AuthHandler
	Events   *EventHandler
	Users    *UserHandler
	Sessions SessionValidator
	Bundle   *i18n.Bundle
	Metrics  StatusRecorder
	// MetricsHandler is mounted at /metrics when set.
	MetricsHandler http.Handler
	// RateLimit wraps the authenticated routes when set.
	RateLimit func(http.Handler) http.Handler
	Logger    *slog.Logger
}

// NewRouter builds the HTTP surface of the event board.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := defaultLogger(cfg.Logger)
	responder := newResponder(logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(Recover(logger))
	r.Use(Metrics(cfg.Metrics))
	r.Use(Localize(cfg.Bundle))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		responder.writeError(req.Context(), w, http.StatusNotFound, "not_found", i18n.MsgNotFound, nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		responder.writeError(req.Context(), w, http.StatusMethodNotAllowed, "method_not_allowed", i18n.MsgInvalidRequest, nil)
	})

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		responder.writeJSON(req.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	if cfg.Auth != nil {
		r.Get("/auth/login", cfg.Auth.Login)
		r.Get("/auth/callback", cfg.Auth.Callback)
		r.Post("/auth/logout", cfg.Auth.Logout)
	}
	if cfg.Events != nil {
		r.Get("/event-images", cfg.Events.Images)
		r.Get("/events.ics", cfg.Events.Calendar)
		r.Get("/events", cfg.Events.List)
		r.Get("/events/{id}", cfg.Events.Get)
	}

	if cfg.Sessions == nil {
		return r
	}

	r.Group(func(r chi.Router) {
		r.Use(RequireSession(cfg.Sessions, logger))
		if cfg.RateLimit != nil {
			r.Use(cfg.RateLimit)
		}

		if cfg.Auth != nil {
			r.Get("/auth/me", cfg.Auth.Me)
		}
		if cfg.Events != nil {
			r.Post("/events", cfg.Events.Create)
			r.Put("/events/{id}", cfg.Events.Update)
			r.Delete("/events/{id}", cfg.Events.Delete)
			r.Post("/events/{id}/join", cfg.Events.Join)
			r.Post("/events/{id}/remove", cfg.Events.Leave)
		}
		if cfg.Users != nil {
			r.Get("/users", cfg.Users.Get)
			r.Post("/users", cfg.Users.SetAdmin)
		}
	})

	return r
}
