package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/eventboard/internal/application"
	"github.com/example/eventboard/internal/content"
	"github.com/example/eventboard/internal/i18n"
	"github.com/example/eventboard/internal/temporal"
)

type eventService interface {
	CreateEvent(ctx context.Context, params application.CreateEventParams) (application.Event, error)
	UpdateEvent(ctx context.Context, params application.UpdateEventParams) (application.Event, error)
	DeleteEvent(ctx context.Context, principal application.Principal, eventID string) error
	JoinEvent(ctx context.Context, principal application.Principal, eventID string) (application.Event, error)
	LeaveEvent(ctx context.Context, principal application.Principal, eventID string) (application.Event, error)
	GetEvent(ctx context.Context, eventID string) (application.Event, error)
	ListEvents(ctx context.Context, params application.ListEventsParams) ([]application.Event, error)
	IsPast(event application.Event) bool
}

// CalendarWriter renders events as an iCalendar document.
type CalendarWriter interface {
	Write(w io.Writer, events []application.Event) error
}

// ImageLister returns the preset event images.
type ImageLister interface {
	Images() []content.Image
}

// EventHandlerConfig wires an EventHandler.
type EventHandlerConfig struct {
	Service  eventService
	Calendar CalendarWriter
	Images   ImageLister
	Logger   *slog.Logger
}

// EventHandler serves the event board.
type EventHandler struct {
	service   eventService
	calendar  CalendarWriter
	images    ImageLister
	responder responder
	logger    *slog.Logger
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(cfg EventHandlerConfig) *EventHandler {
	base := defaultLogger(cfg.Logger)
	return &EventHandler{
		service:   cfg.Service,
		calendar:  cfg.Calendar,
		images:    cfg.Images,
		responder: newResponder(base),
		logger:    base,
	}
}

func (h *EventHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "EventHandler", operation, attrs...)
}

func (h *EventHandler) ready(w http.ResponseWriter) bool {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return false
	}
	return true
}

// List returns events filtered by the scope, kind, creatorId and attendee
// query parameters.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	query := r.URL.Query()
	params := application.ListEventsParams{
		Scope:     application.ListScope(strings.ToLower(strings.TrimSpace(query.Get("scope")))),
		Kind:      application.EventKind(strings.ToLower(strings.TrimSpace(query.Get("kind")))),
		CreatorID: strings.TrimSpace(query.Get("creatorId")),
		Attendee:  strings.TrimSpace(query.Get("attendee")),
	}
	logger := h.log(r.Context(), "List", "scope", string(params.Scope), "kind", string(params.Kind))

	events, err := h.service.ListEvents(r.Context(), params)
	if err != nil {
		logger.WarnContext(r.Context(), "event list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]eventDTO, 0, len(events))
	for _, event := range events {
		out = append(out, h.toEventDTO(event))
	}
	logger.With("result_count", len(out)).InfoContext(r.Context(), "events listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, out)
}

// Get returns a single event.
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	eventID := chi.URLParam(r, "id")
	event, err := h.service.GetEvent(r.Context(), eventID)
	if err != nil {
		h.log(r.Context(), "Get", "event_id", eventID).WarnContext(r.Context(), "event lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, h.toEventDTO(event))
}

// Create posts a new event for the signed in user.
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID)

	input, ok := h.decodeInput(w, r, logger)
	if !ok {
		return
	}

	event, err := h.service.CreateEvent(r.Context(), application.CreateEventParams{Principal: principal, Input: input})
	if err != nil {
		logger.WarnContext(r.Context(), "event creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "event created", "event_id", event.ID)
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, eventResponse{
		Message: h.responder.message(r.Context(), i18n.MsgEventCreated, nil),
		Event:   h.toEventDTO(event),
	})
}

// Update edits an event the principal created, or any event for admins.
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	eventID := chi.URLParam(r, "id")
	logger := h.log(r.Context(), "Update", "principal_id", principal.UserID, "event_id", eventID)

	input, ok := h.decodeInput(w, r, logger)
	if !ok {
		return
	}

	event, err := h.service.UpdateEvent(r.Context(), application.UpdateEventParams{
		Principal: principal,
		EventID:   eventID,
		Input:     input,
	})
	if err != nil {
		logger.WarnContext(r.Context(), "event update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "event updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, eventResponse{
		Message: h.responder.message(r.Context(), i18n.MsgEventUpdated, nil),
		Event:   h.toEventDTO(event),
	})
}

// Delete removes an event.
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	eventID := chi.URLParam(r, "id")
	logger := h.log(r.Context(), "Delete", "principal_id", principal.UserID, "event_id", eventID)

	if err := h.service.DeleteEvent(r.Context(), principal, eventID); err != nil {
		logger.WarnContext(r.Context(), "event deletion failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "event deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, messageResponse{
		Message: h.responder.message(r.Context(), i18n.MsgEventDeleted, nil),
	})
}

// Join adds the principal to the attendee list.
func (h *EventHandler) Join(w http.ResponseWriter, r *http.Request) {
	h.membership(w, r, "Join", h.joinEvent, i18n.MsgEventJoined)
}

// Leave removes the principal from the attendee list.
func (h *EventHandler) Leave(w http.ResponseWriter, r *http.Request) {
	h.membership(w, r, "Leave", h.leaveEvent, i18n.MsgEventLeft)
}

func (h *EventHandler) joinEvent(ctx context.Context, principal application.Principal, eventID string) (application.Event, error) {
	return h.service.JoinEvent(ctx, principal, eventID)
}

func (h *EventHandler) leaveEvent(ctx context.Context, principal application.Principal, eventID string) (application.Event, error) {
	return h.service.LeaveEvent(ctx, principal, eventID)
}

type membershipFunc func(ctx context.Context, principal application.Principal, eventID string) (application.Event, error)

func (h *EventHandler) membership(w http.ResponseWriter, r *http.Request, operation string, apply membershipFunc, messageID string) {
	if !h.ready(w) {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	eventID := chi.URLParam(r, "id")
	logger := h.log(r.Context(), operation, "principal_id", principal.UserID, "event_id", eventID)

	event, err := apply(r.Context(), principal, eventID)
	if err != nil {
		logger.WarnContext(r.Context(), "attendance change failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "attendance changed", "attendee_count", len(event.Attendees))
	h.responder.writeJSON(r.Context(), w, http.StatusOK, eventResponse{
		Message: h.responder.message(r.Context(), messageID, nil),
		Event:   h.toEventDTO(event),
	})
}

// Calendar serves upcoming events as text/calendar.
func (h *EventHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	logger := h.log(r.Context(), "Calendar")
	if h.calendar == nil {
		h.responder.writeError(r.Context(), w, http.StatusNotFound, "not_found", i18n.MsgNotFound, nil)
		return
	}

	events, err := h.service.ListEvents(r.Context(), application.ListEventsParams{Scope: application.ListScopeUpcoming})
	if err != nil {
		logger.WarnContext(r.Context(), "event list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	var buf bytes.Buffer
	if err := h.calendar.Write(&buf, events); err != nil {
		logger.ErrorContext(r.Context(), "calendar rendering failed", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusInternalServerError, "internal", i18n.MsgInternal, nil)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="events.ics"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		logger.WarnContext(r.Context(), "failed to write calendar", "error", err)
	}
}

// Images lists the preset event images.
func (h *EventHandler) Images(w http.ResponseWriter, r *http.Request) {
	images := content.DefaultCatalog()
	if h.images != nil {
		images = h.images.Images()
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, images)
}

func (h *EventHandler) decodeInput(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (application.EventInput, bool) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(r.Context(), "failed to decode event request", "error", err, "error_kind", "bad_request")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, "invalid_request", i18n.MsgInvalidRequest, nil)
		return application.EventInput{}, false
	}
	return application.EventInput{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		ImageURL:    req.ImageURL,
		Date:        req.Date,
		Time:        req.Time,
	}, true
}

type eventRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Location    string `json:"location"`
	ImageURL    string `json:"imageUrl"`
	Date        string `json:"date"`
	Time        string `json:"time"`
}

type eventResponse struct {
	Message string   `json:"message"`
	Event   eventDTO `json:"event"`
}

type eventDTO struct {
	ID           string   `json:"id"`
	CreatorID    string   `json:"creatorId"`
	CreatorName  string   `json:"creatorName"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Location     string   `json:"location"`
	ImageURL     string   `json:"imageUrl"`
	Date         string   `json:"date"`
	Time         string   `json:"time"`
	DisplayDate  string   `json:"displayDate"`
	DisplayTime  string   `json:"displayTime"`
	Attendees    []string `json:"attendees"`
	IsAdminEvent bool     `json:"isAdminEvent"`
	IsPast       bool     `json:"isPast"`
	CreatedAt    string   `json:"createdAt"`
	UpdatedAt    string   `json:"updatedAt"`
}

func (h *EventHandler) toEventDTO(event application.Event) eventDTO {
	attendees := event.Attendees
	if attendees == nil {
		attendees = []string{}
	}
	return eventDTO{
		ID:           event.ID,
		CreatorID:    event.CreatorID,
		CreatorName:  event.CreatorName,
		Title:        event.Title,
		Description:  event.Description,
		Location:     event.Location,
		ImageURL:     event.ImageURL,
		Date:         event.Date,
		Time:         event.Time,
		DisplayDate:  temporal.FormatDate(event.Date),
		DisplayTime:  temporal.FormatTime(event.Time),
		Attendees:    attendees,
		IsAdminEvent: event.IsAdminEvent,
		IsPast:       h.service.IsPast(event),
		CreatedAt:    event.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:    event.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}
