package testfixtures

import (
	"fmt"
	"sync"
	"time"

	"github.com/example/eventboard/internal/temporal"
)

// Clock is a settable time source shared by services under test.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts a clock at start, or at ReferenceTime when start is zero.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// NowFunc returns c.Now for injection into service deps. A nil clock falls
// back to wall time.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Current is Now for call sites that only read the clock.
func (c *Clock) Current() time.Time {
	return c.Now()
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// Advance moves the clock by d and returns the new reading.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// SetWallTime moves the clock to an event's local date and time, so tests can
// stand exactly on the boundary where an event becomes past.
func (c *Clock) SetWallTime(date, clock string, loc *time.Location) error {
	instant, ok := temporal.Instant(date, clock, loc)
	if !ok {
		return fmt.Errorf("testfixtures: invalid wall time %q %q", date, clock)
	}
	c.Set(instant)
	return nil
}
