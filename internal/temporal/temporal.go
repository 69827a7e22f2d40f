// Package temporal decides whether an event's calendar date and clock time lie
// in the past and orders events for upcoming and past listings.
//
// Dates use the ISO "2006-01-02" layout and clock times the 24-hour "15:04"
// layout. Both are interpreted in the campus time zone supplied by the caller.
package temporal

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"
)

const (
	// DateLayout is the storage layout for event dates.
	DateLayout = "2006-01-02"
	// ClockLayout is the storage layout for event times of day.
	ClockLayout = "15:04"
)

// IsPast reports whether the instant described by date and clock in loc is
// strictly before now. An event starting exactly at now is not past.
//
// A clock that cannot be parsed is treated as the last minute of the day so
// the event remains upcoming for the whole date. A date that cannot be parsed
// is never past.
func IsPast(date, clock string, now time.Time, loc *time.Location) bool {
	start, ok := Instant(date, clock, loc)
	if !ok {
		return false
	}
	return start.Before(now)
}

// Instant combines date and clock into a point in time in loc. The boolean is
// false when the date cannot be parsed.
func Instant(date, clock string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	day, err := time.ParseInLocation(DateLayout, strings.TrimSpace(date), loc)
	if err != nil {
		return time.Time{}, false
	}

	hour, minute := 23, 59
	if parsed, err := ParseClock(clock); err == nil {
		hour, minute = parsed.Hour(), parsed.Minute()
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc), true
}

// Policy binds IsPast to a time zone and clock.
type Policy struct {
	Location *time.Location
	Now      func() time.Time
}

// NewPolicy returns a Policy for loc. A nil now uses time.Now.
func NewPolicy(loc *time.Location, now func() time.Time) Policy {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return Policy{Location: loc, Now: now}
}

// IsPast reports whether date and clock describe an instant before the policy's current time.
func (p Policy) IsPast(date, clock string) bool {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	return IsPast(date, clock, now(), p.Location)
}

// Dated is implemented by values that carry a calendar date and clock time.
type Dated interface {
	EventDate() string
	EventTime() string
}

// SortByDateDescending orders items by date, latest first. Items sharing a
// date keep their relative order.
func SortByDateDescending[T Dated](items []T) {
	slices.SortStableFunc(items, func(a, b T) int {
		return cmp.Compare(b.EventDate(), a.EventDate())
	})
}

// SortByDateAscending orders items by date and then time of day, earliest first.
func SortByDateAscending[T Dated](items []T) {
	slices.SortStableFunc(items, func(a, b T) int {
		if c := cmp.Compare(a.EventDate(), b.EventDate()); c != 0 {
			return c
		}
		return cmp.Compare(a.EventTime(), b.EventTime())
	})
}

// ParseDate validates an ISO calendar date.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("temporal: invalid date %q", value)
	}
	return t, nil
}

// ParseClock validates a 24-hour HH:MM time of day.
func ParseClock(value string) (time.Time, error) {
	t, err := time.Parse(ClockLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("temporal: invalid time %q", value)
	}
	return t, nil
}

// FormatDate renders an ISO date as M/D/YYYY. Unparseable input is returned unchanged.
func FormatDate(value string) string {
	t, err := ParseDate(value)
	if err != nil {
		return value
	}
	return t.Format("1/2/2006")
}

// FormatTime renders a 24-hour clock as h:mm AM/PM. Unparseable input is returned unchanged.
func FormatTime(value string) string {
	t, err := ParseClock(value)
	if err != nil {
		return value
	}
	return t.Format("3:04 PM")
}
