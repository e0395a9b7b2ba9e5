package timeutil

import (
	"fmt"
	"strings"
	"time"
)

// ClockTime is a time of day without a date, e.g. "08:00".
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM" on a 24h clock.
func ParseClock(s string) (ClockTime, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return ClockTime{}, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	var h, m int
	if _, err := fmt.Sscanf(parts[0], "%d", &h); err != nil {
		return ClockTime{}, fmt.Errorf("invalid hour in %q", s)
	}
	if _, err := fmt.Sscanf(parts[1], "%d", &m); err != nil {
		return ClockTime{}, fmt.Errorf("invalid minute in %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return ClockTime{}, fmt.Errorf("invalid time %q", s)
	}
	return ClockTime{Hour: h, Minute: m}, nil
}

// MustClock is ParseClock for literals; it panics on bad input.
func MustClock(s string) ClockTime {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Minutes since midnight.
func (c ClockTime) Minutes() int {
	return c.Hour*60 + c.Minute
}

// OnDate returns the naive time with this clock time on the given date.
func (c ClockTime) OnDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, c.Hour, c.Minute, 0, 0, time.UTC)
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

func (c ClockTime) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *ClockTime) UnmarshalText(b []byte) error {
	parsed, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Window is an absolute period, inclusive of Start and exclusive of End.
type Window struct {
	Start time.Time
	End   time.Time
}

// WindowOn anchors a clock time on the date of day and extends it by d.
// The window may run past midnight into the next day.
func WindowOn(day time.Time, start ClockTime, d time.Duration) Window {
	s := start.OnDate(day.Year(), day.Month(), day.Day())
	return Window{Start: s, End: s.Add(d)}
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}
