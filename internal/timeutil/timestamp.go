package timeutil

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMalformedTimestamp is returned for text that is not an ISO-8601 timestamp.
var ErrMalformedTimestamp = errors.New("malformed timestamp")

// Layouts accepted after a trailing "Z" has been rewritten to "+00:00".
// Fractional seconds are accepted by time.Parse after the seconds field
// without being named in the layout.
var layouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02 15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp converts stored timestamp text into a naive wall-clock time.
//
// Any UTC offset in the text is dropped without shifting the clock fields:
// "2024-03-31T02:00:00+02:00" becomes 2024-03-31 02:00. The result is carried
// in time.UTC only so that equal labels compare equal.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrMalformedTimestamp)
	}
	if strings.HasSuffix(s, "Z") {
		s = strings.TrimSuffix(s, "Z") + "+00:00"
	}
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return Naive(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedTimestamp, s)
}

// Naive keeps the wall-clock fields of t and drops its location.
func Naive(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// DateOf truncates a naive time to midnight of its calendar day.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date into a naive midnight.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

// FormatTimestamp renders the canonical storage form of a naive time.
func FormatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}
