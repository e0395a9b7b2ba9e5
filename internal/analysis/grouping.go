package analysis

import (
	"fmt"
	"sort"
	"strconv"
	"time"
)

// Grouping names a calendar axis results can be aggregated on.
type Grouping string

const (
	ByYear          Grouping = "year"
	ByYearMonth     Grouping = "year_month"
	ByCalendarMonth Grouping = "month"
	ByDate          Grouping = "date"
	ByWeekday       Grouping = "weekday"
	ByHour          Grouping = "hour"
)

// Groupings lists every supported axis.
var Groupings = []Grouping{ByYear, ByYearMonth, ByCalendarMonth, ByDate, ByWeekday, ByHour}

// DayOrder is the display order of weekdays; index is the weekday ordinal.
var DayOrder = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// MonthNames are short month labels indexed by month-1.
var MonthNames = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

func ParseGrouping(s string) (Grouping, error) {
	for _, g := range Groupings {
		if string(g) == s {
			return g, nil
		}
	}
	return "", fmt.Errorf("unknown grouping %q", s)
}

// GroupKey identifies one group. Order sorts groups chronologically and
// doubles as the numeric value for month, weekday ordinal and hour.
type GroupKey struct {
	Label string `json:"label"`
	Order int    `json:"order"`
}

// GroupValue is one aggregated value.
type GroupValue struct {
	Key   GroupKey `json:"key"`
	Value float64  `json:"value"`
}

// WeekdayOrdinal numbers weekdays Monday=0 through Sunday=6.
func WeekdayOrdinal(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// KeyOf returns the group t falls in.
func (g Grouping) KeyOf(t time.Time) GroupKey {
	switch g {
	case ByYear:
		return GroupKey{Label: strconv.Itoa(t.Year()), Order: t.Year()}
	case ByYearMonth:
		return GroupKey{Label: t.Format("2006-01"), Order: t.Year()*100 + int(t.Month())}
	case ByCalendarMonth:
		return monthKey(int(t.Month()))
	case ByDate:
		return GroupKey{Label: t.Format("2006-01-02"), Order: t.Year()*10000 + int(t.Month())*100 + t.Day()}
	case ByWeekday:
		return weekdayKey(WeekdayOrdinal(t))
	case ByHour:
		return hourKey(t.Hour())
	}
	return GroupKey{}
}

func monthKey(m int) GroupKey   { return GroupKey{Label: MonthNames[m-1], Order: m} }
func weekdayKey(d int) GroupKey { return GroupKey{Label: DayOrder[d], Order: d} }
func hourKey(h int) GroupKey    { return GroupKey{Label: strconv.Itoa(h), Order: h} }

// Axis returns the full set of keys for bounded groupings, in display order.
// Unbounded groupings (year, year-month, date) return nil.
func (g Grouping) Axis() []GroupKey {
	var out []GroupKey
	switch g {
	case ByCalendarMonth:
		for m := 1; m <= 12; m++ {
			out = append(out, monthKey(m))
		}
	case ByWeekday:
		for d := range DayOrder {
			out = append(out, weekdayKey(d))
		}
	case ByHour:
		for h := 0; h < 24; h++ {
			out = append(out, hourKey(h))
		}
	}
	return out
}

func sortValues(v []GroupValue) {
	sort.Slice(v, func(i, j int) bool { return v[i].Key.Order < v[j].Key.Order })
}

// accumulator keeps insertion-independent sums per group.
type accumulator struct {
	sums map[GroupKey]*sums
}

type sums struct {
	a, b  float64
	count int
}

func newAccumulator() *accumulator {
	return &accumulator{sums: make(map[GroupKey]*sums)}
}

func (acc *accumulator) add(k GroupKey, a, b float64) {
	s, ok := acc.sums[k]
	if !ok {
		s = &sums{}
		acc.sums[k] = s
	}
	s.a += a
	s.b += b
	s.count++
}
