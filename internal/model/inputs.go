package model

import "time"

// Inflation escalates forecast prices relative to a base date.
// A zero BaseDate means "now" and is resolved by the caller.
type Inflation struct {
	Rate     float64   `json:"rate" yaml:"rate"`
	BaseDate time.Time `json:"base_date" yaml:"-"`
}

// Selection is the full set of inputs an analysis runs against.
// It is passed explicitly to every call; nothing keeps a "current" selection.
type Selection struct {
	Market    string
	Start     time.Time // first date, zero = unbounded
	End       time.Time // last date (whole day included), zero = unbounded
	Profile   string
	Inflation Inflation
}

// InRange reports whether t falls inside the selection's date window.
func (s Selection) InRange(t time.Time) bool {
	if !s.Start.IsZero() && t.Before(s.Start) {
		return false
	}
	if !s.End.IsZero() && !t.Before(s.End.AddDate(0, 0, 1)) {
		return false
	}
	return true
}
