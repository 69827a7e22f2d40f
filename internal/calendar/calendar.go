// Package calendar renders board events as an iCalendar feed.
package calendar

import (
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/example/eventboard/internal/application"
	"github.com/example/eventboard/internal/temporal"
)

const (
	defaultProductID = "-//eventboard//Residence Hall Events//EN"
	defaultName      = "Residence Hall Events"
	// Events carry only a start; the feed gives them a nominal length.
	defaultDuration = time.Hour
)

// Config controls feed metadata.
type Config struct {
	Name     string
	BaseURL  string
	Location *time.Location
	Duration time.Duration
}

// Exporter writes events as VEVENTs.
type Exporter struct {
	name     string
	baseURL  string
	location *time.Location
	duration time.Duration
}

// NewExporter returns an Exporter with defaults applied.
func NewExporter(cfg Config) *Exporter {
	if cfg.Name == "" {
		cfg.Name = defaultName
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Duration <= 0 {
		cfg.Duration = defaultDuration
	}
	return &Exporter{
		name:     cfg.Name,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		location: cfg.Location,
		duration: cfg.Duration,
	}
}

// Calendar builds the feed. Events whose date or time cannot be parsed are
// left out.
func (e *Exporter) Calendar(events []application.Event) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(defaultProductID)
	cal.SetName(e.name)
	cal.SetXWRTimezone(e.location.String())

	for _, event := range events {
		if _, err := temporal.ParseClock(event.Time); err != nil {
			continue
		}
		start, ok := temporal.Instant(event.Date, event.Time, e.location)
		if !ok {
			continue
		}

		vevent := cal.AddEvent(e.uid(event))
		vevent.SetDtStampTime(event.UpdatedAt)
		vevent.SetCreatedTime(event.CreatedAt)
		vevent.SetModifiedAt(event.UpdatedAt)
		vevent.SetStartAt(start)
		vevent.SetEndAt(start.Add(e.duration))
		vevent.SetSummary(event.Title)
		if event.Description != "" {
			vevent.SetDescription(event.Description)
		}
		if event.Location != "" {
			vevent.SetLocation(event.Location)
		}
		if e.baseURL != "" {
			vevent.SetURL(e.baseURL + "/events/" + event.ID)
		}
		if event.IsAdminEvent {
			vevent.SetProperty(ical.ComponentPropertyCategories, "Hall Staff")
		}
	}
	return cal
}

// Write serializes the feed for events to w.
func (e *Exporter) Write(w io.Writer, events []application.Event) error {
	if err := e.Calendar(events).SerializeTo(w); err != nil {
		return fmt.Errorf("failed to serialize calendar: %w", err)
	}
	return nil
}

func (e *Exporter) uid(event application.Event) string {
	return event.ID + "@eventboard"
}
