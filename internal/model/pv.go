package model

import "time"

// CalendarKey is the (month, day, hour) key a PV profile is indexed by.
// The year is deliberately absent: one profile is reused for every year.
type CalendarKey struct {
	Month int
	Day   int
	Hour  int
}

// KeyOf returns the calendar key of a wall-clock timestamp.
func KeyOf(t time.Time) CalendarKey {
	return CalendarKey{Month: int(t.Month()), Day: t.Day(), Hour: t.Hour()}
}

func (k CalendarKey) IsLeapDay() bool {
	return k.Month == 2 && k.Day == 29
}

// RawPVRow is one stored profile row as a provider returns it.
type RawPVRow struct {
	Month  int      `json:"month"`
	Day    int      `json:"day"`
	Hour   int      `json:"hour"`
	Output *float64 `json:"output"`
}

// PVInterval is the expected output (MWh per MWp) for one calendar hour.
type PVInterval struct {
	Key    CalendarKey
	Output float64
}

// PVProfile is a named year-agnostic production profile.
type PVProfile struct {
	Name      string
	Intervals []PVInterval
}

// HasLeapDay reports whether any interval falls on Feb 29.
func (p PVProfile) HasLeapDay() bool {
	for _, iv := range p.Intervals {
		if iv.Key.IsLeapDay() {
			return true
		}
	}
	return false
}

// Index maps each calendar key to its output.
func (p PVProfile) Index() map[CalendarKey]float64 {
	idx := make(map[CalendarKey]float64, len(p.Intervals))
	for _, iv := range p.Intervals {
		idx[iv.Key] = iv.Output
	}
	return idx
}

// JoinedRecord is a price interval matched with the profile output of its
// calendar hour. Weighted is Price*Output.
type JoinedRecord struct {
	Datetime time.Time
	Price    float64
	Output   float64
	Weighted float64
}
