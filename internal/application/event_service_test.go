package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/eventboard/internal/content"
)

var serviceNow = time.Date(2025, time.March, 7, 12, 0, 0, 0, time.UTC)

func newTestEventService(events EventRepository, users UserDirectory, opts ...func(*EventServiceDeps)) *EventService {
	var counter atomic.Int64
	deps := EventServiceDeps{
		Events: events,
		Users:  users,
		Content: content.NewPolicy(content.ClassifierFunc(func(text string) bool {
			return strings.Contains(strings.ToLower(text), "darn")
		})),
		Location: time.UTC,
		IDGenerator: func() string {
			return fmt.Sprintf("evt-%d", counter.Add(1))
		},
		Now:    func() time.Time { return serviceNow },
		Logger: discardLogger(),
	}
	for _, opt := range opts {
		opt(&deps)
	}
	return NewEventService(deps)
}

func draft(title string) EventInput {
	return EventInput{
		Title:       title,
		Description: "Snacks provided",
		Location:    "Lounge",
		Date:        "2025-04-01",
		Time:        "19:00",
	}
}

func TestEventService_CreateEvent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("stores event with creator snapshot and empty attendees", func(t *testing.T) {
		t.Parallel()

		events := newEventRepositoryStub()
		users := newUserRepositoryStub(User{ID: "u1", DisplayName: "Ada"})
		svc := newTestEventService(events, users)

		event, err := svc.CreateEvent(ctx, CreateEventParams{Principal: Principal{UserID: "u1"}, Input: draft("Game Night")})
		if err != nil {
			t.Fatalf("CreateEvent failed: %v", err)
		}
		if event.ID != "evt-1" || event.CreatorID != "u1" || event.CreatorName != "Ada" {
			t.Fatalf("unexpected identity fields: %+v", event)
		}
		if event.IsAdminEvent {
			t.Fatal("expected non-admin event")
		}
		if event.Attendees == nil || len(event.Attendees) != 0 {
			t.Fatalf("expected empty attendees, got %#v", event.Attendees)
		}
		if !event.CreatedAt.Equal(serviceNow) || !event.UpdatedAt.Equal(serviceNow) {
			t.Fatalf("expected timestamps from clock, got %v/%v", event.CreatedAt, event.UpdatedAt)
		}
	})

	t.Run("admin flag comes from the stored user, not the principal", func(t *testing.T) {
		t.Parallel()

		events := newEventRepositoryStub()
		users := newUserRepositoryStub(User{ID: "u1", IsAdmin: true})
		svc := newTestEventService(events, users)

		event, err := svc.CreateEvent(ctx, CreateEventParams{Principal: Principal{UserID: "u1", IsAdmin: false}, Input: draft("Town Hall")})
		if err != nil {
			t.Fatalf("CreateEvent failed: %v", err)
		}
		if !event.IsAdminEvent {
			t.Fatal("expected admin event for stored admin")
		}
	})

	t.Run("rejects profane fields independently before any lookup", func(t *testing.T) {
		t.Parallel()

		events := newEventRepositoryStub()
		svc := newTestEventService(events, newUserRepositoryStub())

		input := draft("Darn Good Games")
		input.Location = "the darn lounge"
		_, err := svc.CreateEvent(ctx, CreateEventParams{Principal: Principal{UserID: "ghost"}, Input: input})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["title"]; !ok {
			t.Fatalf("expected title to be flagged, got %v", vErr.FieldErrors)
		}
		if _, ok := vErr.FieldErrors["location"]; !ok {
			t.Fatalf("expected location to be flagged, got %v", vErr.FieldErrors)
		}
		if _, ok := vErr.FieldErrors["description"]; ok {
			t.Fatalf("description should pass, got %v", vErr.FieldErrors)
		}
		if events.count() != 0 {
			t.Fatal("expected nothing stored")
		}
	})

	t.Run("validates required fields and formats", func(t *testing.T) {
		t.Parallel()

		svc := newTestEventService(newEventRepositoryStub(), newUserRepositoryStub(User{ID: "u1"}))
		_, err := svc.CreateEvent(ctx, CreateEventParams{
			Principal: Principal{UserID: "u1"},
			Input:     EventInput{Title: "  ", Date: "04/01/2025", Time: "7pm", ImageURL: "http://example.com/a.png"},
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		for _, field := range []string{"title", "date", "time", "image_url"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Errorf("expected %s to be invalid, got %v", field, vErr.FieldErrors)
			}
		}
	})

	t.Run("accepts preset and https images", func(t *testing.T) {
		t.Parallel()

		svc := newTestEventService(newEventRepositoryStub(), newUserRepositoryStub(User{ID: "u1", IsAdmin: true}))
		for i, image := range []string{content.DefaultImage, "https://cdn.example.edu/poster.png"} {
			input := draft(fmt.Sprintf("Poster %d", i))
			input.ImageURL = image
			event, err := svc.CreateEvent(ctx, CreateEventParams{Principal: Principal{UserID: "u1"}, Input: input})
			if err != nil {
				t.Fatalf("CreateEvent(%s) failed: %v", image, err)
			}
			if event.ImageURL != image {
				t.Fatalf("expected image %q, got %q", image, event.ImageURL)
			}
		}
	})

	t.Run("strips markup from free text", func(t *testing.T) {
		t.Parallel()

		svc := newTestEventService(newEventRepositoryStub(), newUserRepositoryStub(User{ID: "u1"}))
		input := draft("<b>Pizza</b> Social")
		input.Description = `<script>alert(1)</script>Bring a friend`
		event, err := svc.CreateEvent(ctx, CreateEventParams{Principal: Principal{UserID: "u1"}, Input: input})
		if err != nil {
			t.Fatalf("CreateEvent failed: %v", err)
		}
		if event.Title != "Pizza Social" || event.Description != "Bring a friend" {
			t.Fatalf("expected sanitized text, got %q / %q", event.Title, event.Description)
		}
	})

	t.Run("entity encoded markup is not stored as tags", func(t *testing.T) {
		t.Parallel()

		events := newEventRepositoryStub()
		svc := newTestEventService(events, newUserRepositoryStub(User{ID: "u1"}))
		input := draft("&lt;script&gt;alert(1)&lt;/script&gt;Party")
		input.Location = "&lt;img src=x onerror=alert(1)&gt;Lounge"
		if _, err := svc.CreateEvent(ctx, CreateEventParams{Principal: Principal{UserID: "u1"}, Input: input}); err != nil {
			t.Fatalf("CreateEvent failed: %v", err)
		}

		stored, _ := events.ListEvents(ctx)
		if len(stored) != 1 {
			t.Fatalf("expected one stored event, got %d", len(stored))
		}
		if stored[0].Title != "Party" || stored[0].Location != "Lounge" {
			t.Fatalf("expected markup removed, got %q / %q", stored[0].Title, stored[0].Location)
		}
		if strings.Contains(stored[0].Title+stored[0].Location, "<") {
			t.Fatalf("stored text still carries markup: %+v", stored[0])
		}
	})

	t.Run("unknown requester is not found", func(t *testing.T) {
		t.Parallel()

		svc := newTestEventService(newEventRepositoryStub(), newUserRepositoryStub())
		_, err := svc.CreateEvent(ctx, CreateEventParams{Principal: Principal{UserID: "ghost"}, Input: draft("Game Night")})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("duplicate title is a conflict", func(t *testing.T) {
		t.Parallel()

		events := newEventRepositoryStub(Event{ID: "existing", CreatorID: "u9", Title: "Game Night", Date: "2020-01-01", Time: "10:00"})
		svc := newTestEventService(events, newUserRepositoryStub(User{ID: "u1"}))

		_, err := svc.CreateEvent(ctx, CreateEventParams{Principal: Principal{UserID: "u1"}, Input: draft("Game Night")})
		if !errors.Is(err, ErrTitleTaken) || !errors.Is(err, ErrConflict) {
			t.Fatalf("expected ErrTitleTaken, got %v", err)
		}

		if _, err := svc.CreateEvent(ctx, CreateEventParams{Principal: Principal{UserID: "u1"}, Input: draft("game night")}); err != nil {
			t.Fatalf("title match is case-sensitive, got %v", err)
		}
	})

	t.Run("propagates store failures", func(t *testing.T) {
		t.Parallel()

		events := newEventRepositoryStub()
		events.createErr = errStoreDown
		recorder := &recorderStub{}
		svc := newTestEventService(events, newUserRepositoryStub(User{ID: "u1"}), func(d *EventServiceDeps) {
			d.Recorder = recorder
		})

		_, err := svc.CreateEvent(ctx, CreateEventParams{Principal: Principal{UserID: "u1"}, Input: draft("Game Night")})
		if !errors.Is(err, errStoreDown) {
			t.Fatalf("expected store error, got %v", err)
		}
		if len(recorder.observations) != 1 || recorder.observations[0] != "EventService.CreateEvent:unexpected" {
			t.Fatalf("unexpected observations: %v", recorder.observations)
		}
	})
}

func TestEventService_Quota(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	seed := func(creator string, dates ...string) []Event {
		out := make([]Event, len(dates))
		for i, date := range dates {
			out[i] = Event{ID: fmt.Sprintf("%s-%d", creator, i), CreatorID: creator, Title: fmt.Sprintf("%s event %d", creator, i), Date: date, Time: "18:00"}
		}
		return out
	}

	t.Run("non-admin with three upcoming events is rejected", func(t *testing.T) {
		t.Parallel()

		events := newEventRepositoryStub(seed("u1", "2025-03-08", "2025-03-09", "2025-03-10")...)
		svc := newTestEventService(events, newUserRepositoryStub(User{ID: "u1"}))

		_, err := svc.CreateEvent(ctx, CreateEventParams{Principal: Principal{UserID: "u1"}, Input: draft("Fourth")})
		if !errors.Is(err, ErrQuotaExceeded) {
			t.Fatalf("expected ErrQuotaExceeded, got %v", err)
		}
	})

	t.Run("past events and other creators do not count", func(t *testing.T) {
		t.Parallel()

		seeded := append(seed("u1", "2025-03-01", "2025-03-06", "2025-03-09", "2025-03-10"), seed("u2", "2025-04-01")...)
		events := newEventRepositoryStub(seeded...)
		svc := newTestEventService(events, newUserRepositoryStub(User{ID: "u1"}))

		if _, err := svc.CreateEvent(ctx, CreateEventParams{Principal: Principal{UserID: "u1"}, Input: draft("Third upcoming")}); err != nil {
			t.Fatalf("expected create to succeed, got %v", err)
		}
	})

	t.Run("admins are never limited", func(t *testing.T) {
		t.Parallel()

		events := newEventRepositoryStub(seed("admin", "2025-03-08", "2025-03-09", "2025-03-10", "2025-03-11")...)
		svc := newTestEventService(events, newUserRepositoryStub(User{ID: "admin", IsAdmin: true}))

		if _, err := svc.CreateEvent(ctx, CreateEventParams{Principal: Principal{UserID: "admin", IsAdmin: true}, Input: draft("Fifth")}); err != nil {
			t.Fatalf("expected admin create to succeed, got %v", err)
		}
	})

	t.Run("limit is configurable", func(t *testing.T) {
		t.Parallel()

		events := newEventRepositoryStub(seed("u1", "2025-03-08")...)
		svc := newTestEventService(events, newUserRepositoryStub(User{ID: "u1"}), func(d *EventServiceDeps) {
			d.QuotaLimit = 1
		})

		_, err := svc.CreateEvent(ctx, CreateEventParams{Principal: Principal{UserID: "u1"}, Input: draft("Second")})
		if !errors.Is(err, ErrQuotaExceeded) {
			t.Fatalf("expected ErrQuotaExceeded, got %v", err)
		}
	})
}

func TestEventService_UpdateEvent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	base := func() *eventRepositoryStub {
		return newEventRepositoryStub(
			Event{ID: "e1", CreatorID: "u1", CreatorName: "Ada", Title: "Game Night", ImageURL: content.DefaultImage, Date: "2025-04-01", Time: "19:00", Attendees: []string{"u3"}},
			Event{ID: "e2", CreatorID: "u2", Title: "Movie Night", Date: "2025-04-02", Time: "20:00"},
		)
	}

	t.Run("applies only the editable fields", func(t *testing.T) {
		t.Parallel()

		events := base()
		svc := newTestEventService(events, newUserRepositoryStub())
		input := EventInput{Title: "Game Night", Description: "Bring dice", Location: "Basement", Date: "2025-04-03", Time: "18:30", ImageURL: "https://elsewhere.example/img.png"}

		updated, err := svc.UpdateEvent(ctx, UpdateEventParams{Principal: Principal{UserID: "u1"}, EventID: "e1", Input: input})
		if err != nil {
			t.Fatalf("UpdateEvent failed: %v", err)
		}
		if updated.Description != "Bring dice" || updated.Location != "Basement" || updated.Date != "2025-04-03" || updated.Time != "18:30" {
			t.Fatalf("expected editable fields applied, got %+v", updated)
		}
		if updated.ImageURL != content.DefaultImage || updated.CreatorName != "Ada" || len(updated.Attendees) != 1 {
			t.Fatalf("expected fixed fields untouched, got %+v", updated)
		}
	})

	t.Run("renaming onto another event's title is a conflict", func(t *testing.T) {
		t.Parallel()

		svc := newTestEventService(base(), newUserRepositoryStub())
		_, err := svc.UpdateEvent(ctx, UpdateEventParams{Principal: Principal{UserID: "u1"}, EventID: "e1", Input: draft("Movie Night")})
		if !errors.Is(err, ErrTitleTaken) {
			t.Fatalf("expected ErrTitleTaken, got %v", err)
		}
	})

	t.Run("unknown event is not found", func(t *testing.T) {
		t.Parallel()

		svc := newTestEventService(base(), newUserRepositoryStub())
		_, err := svc.UpdateEvent(ctx, UpdateEventParams{Principal: Principal{UserID: "u1", IsAdmin: true}, EventID: "missing", Input: draft("X")})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("profanity is rejected", func(t *testing.T) {
		t.Parallel()

		svc := newTestEventService(base(), newUserRepositoryStub())
		input := draft("Game Night")
		input.Description = "darn it"
		_, err := svc.UpdateEvent(ctx, UpdateEventParams{Principal: Principal{UserID: "u1"}, EventID: "e1", Input: input})
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.FieldErrors["description"] == "" {
			t.Fatalf("expected description violation, got %v", err)
		}
	})
}

func TestEventService_AuthorizationMatrix(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tests := []struct {
		name      string
		principal Principal
		allowed   bool
	}{
		{name: "creator", principal: Principal{UserID: "owner"}, allowed: true},
		{name: "creator admin", principal: Principal{UserID: "owner", IsAdmin: true}, allowed: true},
		{name: "other admin", principal: Principal{UserID: "staff", IsAdmin: true}, allowed: true},
		{name: "other user", principal: Principal{UserID: "stranger"}, allowed: false},
		{name: "anonymous", principal: Principal{}, allowed: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run("update/"+tt.name, func(t *testing.T) {
			t.Parallel()

			events := newEventRepositoryStub(Event{ID: "e1", CreatorID: "owner", Title: "Game Night", Date: "2025-04-01", Time: "19:00"})
			svc := newTestEventService(events, newUserRepositoryStub())
			_, err := svc.UpdateEvent(ctx, UpdateEventParams{Principal: tt.principal, EventID: "e1", Input: draft("Game Night")})
			if tt.allowed && err != nil {
				t.Fatalf("expected success, got %v", err)
			}
			if !tt.allowed && !errors.Is(err, ErrUnauthorized) {
				t.Fatalf("expected ErrUnauthorized, got %v", err)
			}
		})

		t.Run("delete/"+tt.name, func(t *testing.T) {
			t.Parallel()

			events := newEventRepositoryStub(Event{ID: "e1", CreatorID: "owner", Title: "Game Night", Date: "2025-04-01", Time: "19:00"})
			svc := newTestEventService(events, newUserRepositoryStub())
			err := svc.DeleteEvent(ctx, tt.principal, "e1")
			if tt.allowed {
				if err != nil {
					t.Fatalf("expected success, got %v", err)
				}
				if events.count() != 0 {
					t.Fatal("expected event to be removed")
				}
				return
			}
			if !errors.Is(err, ErrUnauthorized) {
				t.Fatalf("expected ErrUnauthorized, got %v", err)
			}
			if events.count() != 1 {
				t.Fatal("expected event to remain")
			}
		})
	}
}

func TestEventService_JoinLeave(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	events := newEventRepositoryStub(Event{ID: "e1", CreatorID: "u1", Title: "Game Night", Date: "2025-04-01", Time: "19:00", Attendees: []string{"u5"}})
	svc := newTestEventService(events, newUserRepositoryStub())
	member := Principal{UserID: "u2"}

	joined, err := svc.JoinEvent(ctx, member, "e1")
	if err != nil {
		t.Fatalf("JoinEvent failed: %v", err)
	}
	if !joined.HasAttendee("u2") {
		t.Fatalf("expected u2 among attendees, got %v", joined.Attendees)
	}

	if _, err := svc.JoinEvent(ctx, member, "e1"); !errors.Is(err, ErrAlreadyAttending) {
		t.Fatalf("expected ErrAlreadyAttending on second join, got %v", err)
	}

	left, err := svc.LeaveEvent(ctx, member, "e1")
	if err != nil {
		t.Fatalf("LeaveEvent failed: %v", err)
	}
	if len(left.Attendees) != 1 || left.Attendees[0] != "u5" {
		t.Fatalf("expected original attendees restored, got %v", left.Attendees)
	}
	stored, _ := svc.GetEvent(ctx, "e1")
	if len(stored.Attendees) != 1 || stored.Attendees[0] != "u5" {
		t.Fatalf("expected stored attendees restored, got %v", stored.Attendees)
	}

	if _, err := svc.LeaveEvent(ctx, member, "e1"); !errors.Is(err, ErrNotAttending) {
		t.Fatalf("expected ErrNotAttending, got %v", err)
	}
	if _, err := svc.JoinEvent(ctx, member, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for join, got %v", err)
	}
	if _, err := svc.LeaveEvent(ctx, member, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for leave, got %v", err)
	}
	if _, err := svc.JoinEvent(ctx, Principal{}, "e1"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized without a principal, got %v", err)
	}
}

func TestEventService_GameNightScenario(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	events := newEventRepositoryStub()
	users := newUserRepositoryStub(User{ID: "u1", DisplayName: "Ada"}, User{ID: "u2", DisplayName: "Grace"})
	svc := newTestEventService(events, users)

	created, err := svc.CreateEvent(ctx, CreateEventParams{Principal: Principal{UserID: "u1"}, Input: draft("Game Night")})
	if err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}
	if created.IsAdminEvent {
		t.Fatal("expected isAdminEvent=false")
	}

	if _, err := svc.CreateEvent(ctx, CreateEventParams{Principal: Principal{UserID: "u2"}, Input: draft("Game Night")}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate title, got %v", err)
	}

	joined, err := svc.JoinEvent(ctx, Principal{UserID: "u2"}, created.ID)
	if err != nil {
		t.Fatalf("JoinEvent failed: %v", err)
	}
	if len(joined.Attendees) != 1 || joined.Attendees[0] != "u2" {
		t.Fatalf("expected attendees [u2], got %v", joined.Attendees)
	}

	if err := svc.DeleteEvent(ctx, Principal{UserID: "u1"}, created.ID); err != nil {
		t.Fatalf("DeleteEvent failed: %v", err)
	}
	if _, err := svc.GetEvent(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestEventService_QuotaThenPromotionScenario(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	events := newEventRepositoryStub()
	users := newUserRepositoryStub(User{ID: "student"}, User{ID: "admin", IsAdmin: true})
	svc := newTestEventService(events, users)
	userSvc := NewUserServiceWithLogger(users, func() time.Time { return serviceNow }, discardLogger(), nil)
	student := Principal{UserID: "student"}

	for i := 1; i <= 3; i++ {
		if _, err := svc.CreateEvent(ctx, CreateEventParams{Principal: student, Input: draft(fmt.Sprintf("Study Group %d", i))}); err != nil {
			t.Fatalf("create %d failed: %v", i, err)
		}
	}
	if _, err := svc.CreateEvent(ctx, CreateEventParams{Principal: student, Input: draft("Study Group 4")}); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}

	if _, err := userSvc.SetUserAdmin(ctx, Principal{UserID: "admin", IsAdmin: true}, "student", true); err != nil {
		t.Fatalf("SetUserAdmin failed: %v", err)
	}

	event, err := svc.CreateEvent(ctx, CreateEventParams{Principal: Principal{UserID: "student", IsAdmin: true}, Input: draft("Study Group 4")})
	if err != nil {
		t.Fatalf("expected create after promotion to succeed, got %v", err)
	}
	if !event.IsAdminEvent {
		t.Fatal("expected the promoted user's event to be an admin event")
	}
}

func TestEventService_TitleRaceWindow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	events := newEventRepositoryStub()

	// Both creates must pass the uniqueness check before either writes.
	var arrived sync.WaitGroup
	arrived.Add(2)
	events.listHook = func() {
		arrived.Done()
		arrived.Wait()
	}

	svc := newTestEventService(events, newUserRepositoryStub(User{ID: "u1"}, User{ID: "u2"}))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, user := range []string{"u1", "u2"} {
		wg.Add(1)
		go func(i int, user string) {
			defer wg.Done()
			_, errs[i] = svc.CreateEvent(ctx, CreateEventParams{Principal: Principal{UserID: user}, Input: draft("Game Night")})
		}(i, user)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("create %d failed: %v", i, err)
		}
	}
	if events.count() != 2 {
		t.Fatalf("expected the race to store two events, got %d", events.count())
	}
}

func TestEventService_ListEvents(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	events := newEventRepositoryStub(
		Event{ID: "a", Title: "A", Date: "2025-03-01", Time: "10:00", IsAdminEvent: true},
		Event{ID: "b", Title: "B", Date: "2025-03-20", Time: "10:00", Attendees: []string{"u9"}},
		Event{ID: "c", Title: "C", Date: "2025-03-07", Time: "11:59", CreatorID: "u1"},
		Event{ID: "d", Title: "D", Date: "2025-03-07", Time: "12:00", IsAdminEvent: true},
		Event{ID: "e", Title: "E", Date: "2025-03-08", Time: "09:00", CreatorID: "u1"},
	)
	svc := newTestEventService(events, newUserRepositoryStub())

	tests := []struct {
		name   string
		params ListEventsParams
		want   []string
	}{
		{name: "all keeps store order", params: ListEventsParams{}, want: []string{"a", "b", "c", "d", "e"}},
		{name: "upcoming earliest first", params: ListEventsParams{Scope: ListScopeUpcoming}, want: []string{"d", "e", "b"}},
		{name: "past latest first", params: ListEventsParams{Scope: ListScopePast}, want: []string{"c", "a"}},
		{name: "admin upcoming", params: ListEventsParams{Scope: ListScopeUpcoming, Kind: EventKindAdmin}, want: []string{"d"}},
		{name: "student past", params: ListEventsParams{Scope: ListScopePast, Kind: EventKindStudent}, want: []string{"c"}},
		{name: "by creator", params: ListEventsParams{CreatorID: "u1"}, want: []string{"c", "e"}},
		{name: "by attendee", params: ListEventsParams{Attendee: "u9"}, want: []string{"b"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := svc.ListEvents(ctx, tt.params)
			if err != nil {
				t.Fatalf("ListEvents failed: %v", err)
			}
			ids := make([]string, len(got))
			for i, event := range got {
				ids[i] = event.ID
			}
			if strings.Join(ids, ",") != strings.Join(tt.want, ",") {
				t.Fatalf("got %v, want %v", ids, tt.want)
			}
		})
	}

	t.Run("store failure surfaces", func(t *testing.T) {
		t.Parallel()

		failing := newEventRepositoryStub()
		failing.listErr = errStoreDown
		_, err := newTestEventService(failing, newUserRepositoryStub()).ListEvents(ctx, ListEventsParams{})
		if !errors.Is(err, errStoreDown) {
			t.Fatalf("expected store error, got %v", err)
		}
	})
}
