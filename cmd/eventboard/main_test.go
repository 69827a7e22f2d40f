package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/example/eventboard/internal/application"
	"github.com/example/eventboard/internal/config"
	"github.com/example/eventboard/internal/persistence/memory"
	"github.com/example/eventboard/internal/persistence/sqlite"
	"github.com/example/eventboard/internal/testfixtures"
)

type fakeProvider struct {
	identities map[string]application.Identity
}

func (p fakeProvider) AuthCodeURL(state string) string {
	return "https://login.example.test/authorize?state=" + url.QueryEscape(state)
}

func (p fakeProvider) Exchange(_ context.Context, code string) (application.Identity, error) {
	identity, ok := p.identities[code]
	if !ok {
		return application.Identity{}, fmt.Errorf("unknown code %q", code)
	}
	return identity, nil
}

type harness struct {
	t       *testing.T
	svc     *service
	clock   *testfixtures.Clock
	handler http.Handler
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("failed to load location: %v", err)
	}
	cfg := config.Default()
	cfg.Location = loc
	cfg.CookieSecure = false
	cfg.Admins = []string{"ra@example.edu"}

	clock := testfixtures.NewClock(time.Date(2025, time.March, 1, 17, 0, 0, 0, time.UTC))
	store := memory.New()
	t.Cleanup(func() { _ = store.Close() })

	svc, err := build(wiring{
		Config:  cfg,
		Storage: store,
		Provider: fakeProvider{identities: map[string]application.Identity{
			"ra-code":      {Subject: "ra", Email: "RA@example.edu", DisplayName: "Hall RA"},
			"student-code": {Subject: "student", Email: "sam@example.edu", DisplayName: "Sam"},
		}},
		Registry: prometheus.NewRegistry(),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:      clock.NowFunc(),
	})
	if err != nil {
		t.Fatalf("build returned error: %v", err)
	}
	t.Cleanup(svc.limiter.Stop)

	return &harness{t: t, svc: svc, clock: clock, handler: svc.handler}
}

func (h *harness) do(method, path, body, token string) *httptest.ResponseRecorder {
	h.t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

// login runs the redirect and callback legs and returns the session token.
func (h *harness) login(code string) string {
	h.t.Helper()

	rec := h.do(http.MethodGet, "/auth/login", "", "")
	if rec.Code != http.StatusTemporaryRedirect {
		h.t.Fatalf("login: expected 307, got %d", rec.Code)
	}
	var state *http.Cookie
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == "oauth_state" {
			state = cookie
		}
	}
	if state == nil {
		h.t.Fatalf("login: missing state cookie")
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code="+code+"&state="+url.QueryEscape(state.Value), nil)
	req.AddCookie(state)
	rec = httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTemporaryRedirect {
		h.t.Fatalf("callback: expected 307, got %d: %s", rec.Code, rec.Body.String())
	}
	var token string
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == "session_token" {
			token = cookie.Value
		}
	}
	if len(token) != 64 {
		h.t.Fatalf("callback: expected a 32 byte hex session cookie, got %q", token)
	}
	return token
}

type eventBody struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	CreatorName  string   `json:"creatorName"`
	Attendees    []string `json:"attendees"`
	IsAdminEvent bool     `json:"isAdminEvent"`
	IsPast       bool     `json:"isPast"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func eventJSON(title, date string) string {
	return fmt.Sprintf(`{"title":%q,"description":"All welcome","location":"Lounge","date":%q,"time":"19:00"}`, title, date)
}

func TestEventBoardEndToEnd(t *testing.T) {
	h := newHarness(t)
	ra := h.login("ra-code")
	student := h.login("student-code")

	me := decode[map[string]any](t, h.do(http.MethodGet, "/auth/me", "", ra))
	if me["isAdmin"] != true || me["email"] != "ra@example.edu" {
		t.Fatalf("bootstrap admin not applied: %v", me)
	}

	t.Run("student quota", func(t *testing.T) {
		for i := 1; i <= 3; i++ {
			rec := h.do(http.MethodPost, "/events", eventJSON(fmt.Sprintf("Study Group %d", i), "2025-04-0"+fmt.Sprint(i)), student)
			if rec.Code != http.StatusCreated {
				t.Fatalf("create %d: expected 201, got %d: %s", i, rec.Code, rec.Body.String())
			}
		}
		rec := h.do(http.MethodPost, "/events", eventJSON("Study Group 4", "2025-04-04"), student)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403 over quota, got %d", rec.Code)
		}
		body := decode[map[string]any](t, rec)
		if body["error_code"] != "quota_exceeded" {
			t.Fatalf("unexpected body %v", body)
		}
	})

	var partyID string
	t.Run("admin events skip the quota and keep titles unique", func(t *testing.T) {
		rec := h.do(http.MethodPost, "/events", eventJSON("Floor Party", "2025-03-20"), ra)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		created := decode[struct {
			Event eventBody `json:"event"`
		}](t, rec)
		if !created.Event.IsAdminEvent || created.Event.CreatorName != "Hall RA" || created.Event.IsPast {
			t.Fatalf("unexpected event %+v", created.Event)
		}
		partyID = created.Event.ID

		rec = h.do(http.MethodPost, "/events", eventJSON("Floor Party", "2025-03-21"), ra)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for duplicate title, got %d", rec.Code)
		}
	})

	t.Run("join and leave", func(t *testing.T) {
		rec := h.do(http.MethodPost, "/events/"+partyID+"/join", "", student)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if rec := h.do(http.MethodPost, "/events/"+partyID+"/join", "", student); rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 joining twice, got %d", rec.Code)
		}

		attending := decode[[]eventBody](t, h.do(http.MethodGet, "/events?attendee=student", "", ""))
		if len(attending) != 1 || attending[0].ID != partyID {
			t.Fatalf("unexpected attending list %+v", attending)
		}

		if rec := h.do(http.MethodPost, "/events/"+partyID+"/remove", "", student); rec.Code != http.StatusOK {
			t.Fatalf("expected 200 leaving, got %d", rec.Code)
		}
		if rec := h.do(http.MethodPost, "/events/"+partyID+"/remove", "", student); rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 leaving twice, got %d", rec.Code)
		}
	})

	t.Run("only the creator or an admin may edit", func(t *testing.T) {
		rec := h.do(http.MethodPut, "/events/"+partyID, eventJSON("Quiet Party", "2025-03-20"), student)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
		rec = h.do(http.MethodPut, "/events/"+partyID, eventJSON("Quiet Party", "2025-03-20"), ra)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("calendar feed lists upcoming events", func(t *testing.T) {
		rec := h.do(http.MethodGet, "/events.ics", "", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		body := rec.Body.String()
		if !strings.Contains(body, "SUMMARY:Quiet Party") || !strings.Contains(body, "SUMMARY:Study Group 1") {
			t.Fatalf("calendar is missing events: %s", body)
		}
	})

	t.Run("past events stop counting toward the quota", func(t *testing.T) {
		h.clock.Set(time.Date(2025, time.April, 2, 12, 0, 0, 0, time.UTC))
		// The old sessions expired with the jump.
		if rec := h.do(http.MethodGet, "/auth/me", "", student); rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 for expired session, got %d", rec.Code)
		}
		ra = h.login("ra-code")
		student = h.login("student-code")

		rec := h.do(http.MethodPost, "/events", eventJSON("Study Group 4", "2025-04-10"), student)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201 once an event is past, got %d: %s", rec.Code, rec.Body.String())
		}
		past := decode[[]eventBody](t, h.do(http.MethodGet, "/events?scope=past", "", ""))
		if len(past) != 2 {
			t.Fatalf("expected two past events, got %+v", past)
		}
	})

	t.Run("user administration", func(t *testing.T) {
		if rec := h.do(http.MethodGet, "/users", "", student); rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403 listing as student, got %d", rec.Code)
		}
		users := decode[map[string]map[string]any](t, h.do(http.MethodGet, "/users", "", ra))
		if len(users) != 2 {
			t.Fatalf("expected two users, got %v", users)
		}

		rec := h.do(http.MethodPost, "/users", `{"userId":"student","isAdmin":true}`, ra)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if rec := h.do(http.MethodGet, "/users", "", student); rec.Code != http.StatusOK {
			t.Fatalf("promotion should apply on the next request, got %d", rec.Code)
		}
	})

	t.Run("metrics are exposed", func(t *testing.T) {
		rec := h.do(http.MethodGet, "/metrics", "", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		body := rec.Body.String()
		if !strings.Contains(body, `eventboard_operations_total{operation="CreateEvent",outcome="quota_exceeded",service="EventService"} 1`) {
			t.Fatalf("expected quota outcome in metrics:\n%s", body)
		}
		if !strings.Contains(body, "eventboard_http_status_total") {
			t.Fatalf("expected http status metrics")
		}
	})

	t.Run("logout revokes the session", func(t *testing.T) {
		if rec := h.do(http.MethodPost, "/auth/logout", "", student); rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		rec := h.do(http.MethodGet, "/auth/me", "", student)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 after logout, got %d", rec.Code)
		}
		if body := decode[map[string]any](t, rec); body["error_code"] != "session_revoked" {
			t.Fatalf("unexpected body %v", body)
		}
	})
}

func TestSessionPurgeJobIsScheduled(t *testing.T) {
	h := newHarness(t)
	if h.svc.scheduler.Len() != 1 {
		t.Fatalf("expected one scheduled job, got %d", h.svc.scheduler.Len())
	}

	token := h.login("student-code")
	h.clock.Advance(48 * time.Hour)

	removed, err := h.svc.auth.PurgeExpiredSessions(context.Background())
	if err != nil {
		t.Fatalf("PurgeExpiredSessions returned error: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected one purged session, got %d", removed)
	}
	if rec := h.do(http.MethodGet, "/auth/me", "", token); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for purged session, got %d", rec.Code)
	}
}

func TestBuildRejectsInvalidPurgeSchedule(t *testing.T) {
	cfg := config.Default()
	cfg.PurgeSchedule = "every hour"

	_, err := build(wiring{
		Config:   cfg,
		Storage:  memory.New(),
		Provider: fakeProvider{},
		Registry: prometheus.NewRegistry(),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err == nil {
		t.Fatalf("expected an error for an invalid cron expression")
	}
}

func TestOpenStorageFallsBackToMemory(t *testing.T) {
	store, err := openStorage(context.Background(), "", slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("openStorage returned error: %v", err)
	}
	if _, ok := store.(*memory.Store); !ok {
		t.Fatalf("expected in-memory store, got %T", store)
	}
}

func TestOpenStorageMigratesSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.db")
	var logs bytes.Buffer

	store, err := openStorage(context.Background(), path, slog.New(slog.NewJSONHandler(&logs, nil)))
	if err != nil {
		t.Fatalf("openStorage returned error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if _, ok := store.(*sqlite.Store); !ok {
		t.Fatalf("expected sqlite store, got %T", store)
	}
	events, err := store.ListEvents(context.Background())
	if err != nil || len(events) != 0 {
		t.Fatalf("expected an empty migrated schema, got %v (err %v)", events, err)
	}
	if strings.Contains(logs.String(), path) || strings.Contains(logs.String(), "board.db") {
		t.Fatalf("connection string leaked into logs: %s", logs.String())
	}
	if !strings.Contains(logs.String(), `"driver":"sqlite"`) {
		t.Fatalf("expected driver in logs: %s", logs.String())
	}
}

func TestRandomHex(t *testing.T) {
	a, b := randomHex(32), randomHex(32)
	if len(a) != 64 || a == b {
		t.Fatalf("unexpected tokens %q %q", a, b)
	}
}
