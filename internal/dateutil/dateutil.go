// Package dateutil holds the date arithmetic shared by the scheduler, the
// fallback generator and the project services.
package dateutil

import (
	"math"
	"sync"
	"time"
)

// WorkHoursPerDay is the number of estimated hours that fit in one calendar day.
const WorkHoursPerDay = 8

// Day is one calendar day.
const Day = 24 * time.Hour

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// ManualClock is a Clock whose time only moves when told to.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock creates a ManualClock stopped at now.
func NewManualClock(now time.Time) *ManualClock {
	return &ManualClock{now: now}
}

// Now returns the clock's current time.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Set moves the clock to t.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// StartOfDay truncates t to midnight in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// AddDays adds n calendar days to t.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// DaysBetween returns the number of whole days from a to b, never negative.
func DaysBetween(a, b time.Time) int {
	if !b.After(a) {
		return 0
	}
	return int(b.Sub(a) / Day)
}

// Clamp bounds t to [lo, hi]. lo wins when the range is inverted.
func Clamp(t, lo, hi time.Time) time.Time {
	if t.After(hi) {
		t = hi
	}
	if t.Before(lo) {
		t = lo
	}
	return t
}

// Max returns the later of a and b.
func Max(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

// Min returns the earlier of a and b.
func Min(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

// Proportional returns the instant at fraction frac of the way from start to end.
func Proportional(start, end time.Time, frac float64) time.Time {
	if frac <= 0 {
		return start
	}
	if frac >= 1 {
		return end
	}
	return start.Add(time.Duration(float64(end.Sub(start)) * frac))
}

// DurationDays converts an hour estimate into calendar days, at least one.
func DurationDays(hours float64) int {
	days := int(math.Ceil(hours / WorkHoursPerDay))
	if days < 1 {
		return 1
	}
	return days
}

// InWindow reports whether t lies inside [start, end].
func InWindow(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}
