package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/eventboard/internal/content"
	"github.com/example/eventboard/internal/persistence"
	"github.com/example/eventboard/internal/temporal"
)

// DefaultQuotaLimit is the number of upcoming events a non-admin may own at once.
const DefaultQuotaLimit = 3

// EventRepository captures the persistence interactions needed by the event service.
type EventRepository interface {
	CreateEvent(ctx context.Context, event Event) (Event, error)
	GetEvent(ctx context.Context, id string) (Event, error)
	ListEvents(ctx context.Context) ([]Event, error)
	UpdateEvent(ctx context.Context, event Event) (Event, error)
	DeleteEvent(ctx context.Context, id string) error
	AddAttendee(ctx context.Context, eventID, userID string) error
	RemoveAttendee(ctx context.Context, eventID, userID string) error
}

// UserDirectory exposes user lookup operations.
type UserDirectory interface {
	GetUser(ctx context.Context, id string) (User, error)
}

// EventServiceDeps lists the collaborators of an EventService. Only Events and
// Users are required.
type EventServiceDeps struct {
	Events      EventRepository
	Users       UserDirectory
	Content     *content.Policy
	Sanitizer   *content.Sanitizer
	Images      *content.Catalog
	Location    *time.Location
	QuotaLimit  int
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
	Recorder    Recorder
}

// EventService enforces the event lifecycle rules: content screening, the
// upcoming event quota, title uniqueness, and creator-or-admin authorization.
type EventService struct {
	events      EventRepository
	users       UserDirectory
	content     *content.Policy
	sanitizer   *content.Sanitizer
	images      *content.Catalog
	temporal    temporal.Policy
	quota       int
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
	recorder    Recorder
}

// NewEventService wires dependencies for event operations.
func NewEventService(deps EventServiceDeps) *EventService {
	if deps.IDGenerator == nil {
		deps.IDGenerator = func() string { return "" }
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.QuotaLimit <= 0 {
		deps.QuotaLimit = DefaultQuotaLimit
	}
	if deps.Content == nil {
		deps.Content = content.NewPolicy(nil)
	}
	if deps.Sanitizer == nil {
		deps.Sanitizer = content.NewSanitizer()
	}
	if deps.Images == nil {
		deps.Images = content.NewCatalog(nil)
	}
	return &EventService{
		events:      deps.Events,
		users:       deps.Users,
		content:     deps.Content,
		sanitizer:   deps.Sanitizer,
		images:      deps.Images,
		temporal:    temporal.NewPolicy(deps.Location, deps.Now),
		quota:       deps.QuotaLimit,
		idGenerator: deps.IDGenerator,
		now:         deps.Now,
		logger:      defaultLogger(deps.Logger),
		recorder:    defaultRecorder(deps.Recorder),
	}
}

func (s *EventService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "EventService", operation, attrs...)
}

func (s *EventService) finish(ctx context.Context, logger *slog.Logger, operation string, err error, success string, attrs ...any) {
	s.recorder.ObserveOperation("EventService", operation, ErrorKind(err))
	logOutcome(ctx, logger, err, success, attrs...)
}

// IsPast reports whether the event has already started.
func (s *EventService) IsPast(event Event) bool {
	return s.temporal.IsPast(event.Date, event.Time)
}

// CreateEvent validates and screens the draft, enforces the quota and title
// uniqueness, and stores the event with an empty attendee list.
func (s *EventService) CreateEvent(ctx context.Context, params CreateEventParams) (event Event, err error) {
	if s == nil {
		err = fmt.Errorf("EventService is nil")
		return
	}
	if s.events == nil || s.users == nil {
		err = fmt.Errorf("event service dependencies not configured")
		return
	}

	principal := params.Principal
	logger := s.loggerWith(ctx, "CreateEvent", "principal_id", principal.UserID)
	defer func() {
		s.finish(ctx, logger, "CreateEvent", err, "event created", "event_id", event.ID)
	}()

	input := s.normalize(params.Input)
	vErr := s.screen(input)
	vErr.merge(s.validate(input, true))
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var creator User
	creator, err = s.users.GetUser(ctx, principal.UserID)
	if err != nil {
		err = mapEventRepoError(err)
		return
	}

	var existing []Event
	existing, err = s.events.ListEvents(ctx)
	if err != nil {
		err = mapEventRepoError(err)
		return
	}

	if !creator.IsAdmin && s.upcomingOwnedBy(existing, creator.ID) >= s.quota {
		err = &QuotaError{Limit: s.quota}
		return
	}

	if titleInUse(existing, input.Title, "") {
		err = ErrTitleTaken
		return
	}

	createdAt := s.now()
	draft := Event{
		ID:           s.idGenerator(),
		CreatorID:    creator.ID,
		CreatorName:  creator.DisplayName,
		Title:        input.Title,
		Description:  input.Description,
		Location:     input.Location,
		ImageURL:     input.ImageURL,
		Date:         input.Date,
		Time:         input.Time,
		Attendees:    []string{},
		IsAdminEvent: creator.IsAdmin,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}

	event, err = s.events.CreateEvent(ctx, draft)
	if err != nil {
		err = mapEventRepoError(err)
		return
	}
	return
}

// UpdateEvent changes title, description, location, date, and time of an
// event owned by the principal, or of any event when the principal is an admin.
func (s *EventService) UpdateEvent(ctx context.Context, params UpdateEventParams) (event Event, err error) {
	if s == nil {
		err = fmt.Errorf("EventService is nil")
		return
	}
	if s.events == nil {
		err = fmt.Errorf("event repository not configured")
		return
	}

	principal := params.Principal
	logger := s.loggerWith(ctx, "UpdateEvent", "principal_id", principal.UserID, "event_id", params.EventID)
	defer func() {
		s.finish(ctx, logger, "UpdateEvent", err, "event updated")
	}()

	input := s.normalize(params.Input)
	vErr := s.screen(input)
	vErr.merge(s.validate(input, false))
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var existing Event
	existing, err = s.events.GetEvent(ctx, params.EventID)
	if err != nil {
		err = mapEventRepoError(err)
		return
	}

	if !canManage(principal, existing) {
		err = ErrUnauthorized
		return
	}

	if input.Title != existing.Title {
		var all []Event
		all, err = s.events.ListEvents(ctx)
		if err != nil {
			err = mapEventRepoError(err)
			return
		}
		if titleInUse(all, input.Title, existing.ID) {
			err = ErrTitleTaken
			return
		}
	}

	updated := existing
	updated.Title = input.Title
	updated.Description = input.Description
	updated.Location = input.Location
	updated.Date = input.Date
	updated.Time = input.Time
	updated.UpdatedAt = s.now()

	event, err = s.events.UpdateEvent(ctx, updated)
	if err != nil {
		err = mapEventRepoError(err)
		return
	}
	return
}

// JoinEvent adds the principal to the event's attendees. Joining twice is a
// conflict rather than a no-op.
func (s *EventService) JoinEvent(ctx context.Context, principal Principal, eventID string) (event Event, err error) {
	if s == nil {
		err = fmt.Errorf("EventService is nil")
		return
	}
	if s.events == nil {
		err = fmt.Errorf("event repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "JoinEvent", "principal_id", principal.UserID, "event_id", eventID)
	defer func() {
		s.finish(ctx, logger, "JoinEvent", err, "event joined")
	}()

	if strings.TrimSpace(principal.UserID) == "" {
		err = ErrUnauthorized
		return
	}

	event, err = s.events.GetEvent(ctx, eventID)
	if err != nil {
		err = mapEventRepoError(err)
		return
	}
	if event.HasAttendee(principal.UserID) {
		err = ErrAlreadyAttending
		return
	}

	if err = s.events.AddAttendee(ctx, eventID, principal.UserID); err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			err = ErrAlreadyAttending
			return
		}
		err = mapEventRepoError(err)
		return
	}

	event.Attendees = append(event.Attendees, principal.UserID)
	return
}

// LeaveEvent removes the principal from the event's attendees.
func (s *EventService) LeaveEvent(ctx context.Context, principal Principal, eventID string) (event Event, err error) {
	if s == nil {
		err = fmt.Errorf("EventService is nil")
		return
	}
	if s.events == nil {
		err = fmt.Errorf("event repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "LeaveEvent", "principal_id", principal.UserID, "event_id", eventID)
	defer func() {
		s.finish(ctx, logger, "LeaveEvent", err, "event left")
	}()

	if strings.TrimSpace(principal.UserID) == "" {
		err = ErrUnauthorized
		return
	}

	event, err = s.events.GetEvent(ctx, eventID)
	if err != nil {
		err = mapEventRepoError(err)
		return
	}
	if !event.HasAttendee(principal.UserID) {
		err = ErrNotAttending
		return
	}

	if err = s.events.RemoveAttendee(ctx, eventID, principal.UserID); err != nil {
		if errors.Is(err, persistence.ErrNotMember) {
			err = ErrNotAttending
			return
		}
		err = mapEventRepoError(err)
		return
	}

	remaining := make([]string, 0, len(event.Attendees))
	for _, id := range event.Attendees {
		if id != principal.UserID {
			remaining = append(remaining, id)
		}
	}
	event.Attendees = remaining
	return
}

// DeleteEvent permanently removes an event owned by the principal, or any
// event when the principal is an admin.
func (s *EventService) DeleteEvent(ctx context.Context, principal Principal, eventID string) (err error) {
	if s == nil {
		return fmt.Errorf("EventService is nil")
	}
	if s.events == nil {
		return fmt.Errorf("event repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteEvent", "principal_id", principal.UserID, "event_id", eventID)
	defer func() {
		s.finish(ctx, logger, "DeleteEvent", err, "event deleted")
	}()

	var existing Event
	existing, err = s.events.GetEvent(ctx, eventID)
	if err != nil {
		err = mapEventRepoError(err)
		return
	}

	if !canManage(principal, existing) {
		err = ErrUnauthorized
		return
	}

	if err = s.events.DeleteEvent(ctx, eventID); err != nil {
		err = mapEventRepoError(err)
		return
	}
	return nil
}

// GetEvent returns a single event.
func (s *EventService) GetEvent(ctx context.Context, eventID string) (Event, error) {
	if s == nil {
		return Event{}, fmt.Errorf("EventService is nil")
	}
	if s.events == nil {
		return Event{}, fmt.Errorf("event repository not configured")
	}

	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return Event{}, mapEventRepoError(err)
	}
	return event, nil
}

// ListEvents returns events filtered by scope, kind, creator, and attendee.
// Upcoming listings are ordered earliest first and past listings latest first.
func (s *EventService) ListEvents(ctx context.Context, params ListEventsParams) ([]Event, error) {
	if s == nil {
		return nil, fmt.Errorf("EventService is nil")
	}
	if s.events == nil {
		return []Event{}, nil
	}

	all, err := s.events.ListEvents(ctx)
	if err != nil {
		s.loggerWith(ctx, "ListEvents").ErrorContext(ctx, "failed to list events", "error", err, "error_kind", ErrorKind(err))
		return nil, mapEventRepoError(err)
	}

	out := make([]Event, 0, len(all))
	for _, event := range all {
		switch params.Kind {
		case EventKindAdmin:
			if !event.IsAdminEvent {
				continue
			}
		case EventKindStudent:
			if event.IsAdminEvent {
				continue
			}
		}
		if params.CreatorID != "" && event.CreatorID != params.CreatorID {
			continue
		}
		if params.Attendee != "" && !event.HasAttendee(params.Attendee) {
			continue
		}

		past := s.IsPast(event)
		switch params.Scope {
		case ListScopeUpcoming:
			if past {
				continue
			}
		case ListScopePast:
			if !past {
				continue
			}
		}
		out = append(out, event)
	}

	switch params.Scope {
	case ListScopeUpcoming:
		temporal.SortByDateAscending(out)
	case ListScopePast:
		temporal.SortByDateDescending(out)
	}
	return out, nil
}

func (s *EventService) normalize(input EventInput) EventInput {
	return EventInput{
		Title:       s.sanitizer.Text(input.Title),
		Description: s.sanitizer.Text(input.Description),
		Location:    s.sanitizer.Text(input.Location),
		ImageURL:    strings.TrimSpace(input.ImageURL),
		Date:        strings.TrimSpace(input.Date),
		Time:        strings.TrimSpace(input.Time),
	}
}

func (s *EventService) screen(input EventInput) *ValidationError {
	vErr := &ValidationError{}
	flagged := s.content.Screen(
		content.Field{Name: content.FieldTitle, Value: input.Title},
		content.Field{Name: content.FieldDescription, Value: input.Description},
		content.Field{Name: content.FieldLocation, Value: input.Location},
	)
	for _, field := range flagged {
		vErr.add(field, "contains inappropriate language")
	}
	return vErr
}

func (s *EventService) validate(input EventInput, checkImage bool) *ValidationError {
	vErr := &ValidationError{}

	if input.Title == "" {
		vErr.add("title", "title is required")
	}
	if _, err := temporal.ParseDate(input.Date); err != nil {
		vErr.add("date", "date must use YYYY-MM-DD")
	}
	if _, err := temporal.ParseClock(input.Time); err != nil {
		vErr.add("time", "time must use 24-hour HH:MM")
	}
	if checkImage && !s.images.Allows(input.ImageURL) {
		vErr.add("image_url", "image must be a preset image or an https URL")
	}

	return vErr
}

func (s *EventService) upcomingOwnedBy(events []Event, userID string) int {
	count := 0
	for _, event := range events {
		if event.CreatorID == userID && !s.IsPast(event) {
			count++
		}
	}
	return count
}

func titleInUse(events []Event, title, exceptID string) bool {
	for _, event := range events {
		if event.ID != exceptID && event.Title == title {
			return true
		}
	}
	return false
}

func canManage(principal Principal, event Event) bool {
	if principal.IsAdmin {
		return true
	}
	return principal.UserID != "" && principal.UserID == event.CreatorID
}

func mapEventRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrNotMember) {
		return ErrNotAttending
	}
	return err
}
