// Package align turns provider rows into normalized series and joins price
// intervals with a year-agnostic PV profile.
package align

import (
	"math"
	"sort"
	"time"

	"spain-energy/internal/model"
	"spain-energy/internal/timeutil"
)

const secondsPerYear = 365.25 * 86400

// Prices normalizes raw price rows. Rows with unparseable timestamps are
// dropped and counted. Duplicate timestamps keep the last row seen. The
// result is sorted by time and tagged with the detected resolution.
func Prices(rows []model.RawPriceRow) (prices []model.PriceInterval, dropped int) {
	byTime := make(map[time.Time]int, len(rows))
	prices = make([]model.PriceInterval, 0, len(rows))
	for _, r := range rows {
		ts, err := timeutil.ParseTimestamp(r.Timestamp)
		if err != nil {
			dropped++
			continue
		}
		iv := model.PriceInterval{Datetime: ts}
		if r.Price != nil && !math.IsNaN(*r.Price) {
			iv.Price = *r.Price
			iv.Valid = true
		}
		if i, ok := byTime[ts]; ok {
			prices[i] = iv
			continue
		}
		byTime[ts] = len(prices)
		prices = append(prices, iv)
	}
	model.SortPrices(prices)

	res := timeutil.DetectPriceResolution(prices)
	for i := range prices {
		prices[i].Resolution = res
	}
	return prices, dropped
}

// Profile normalizes raw profile rows into a PVProfile. Rows with a null
// output or an impossible calendar key are dropped and counted. Duplicate
// keys keep the last row seen.
func Profile(name string, rows []model.RawPVRow) (model.PVProfile, int) {
	dropped := 0
	byKey := make(map[model.CalendarKey]int, len(rows))
	p := model.PVProfile{Name: name, Intervals: make([]model.PVInterval, 0, len(rows))}
	for _, r := range rows {
		if r.Output == nil || math.IsNaN(*r.Output) || !validKey(r.Month, r.Day, r.Hour) {
			dropped++
			continue
		}
		iv := model.PVInterval{
			Key:    model.CalendarKey{Month: r.Month, Day: r.Day, Hour: r.Hour},
			Output: *r.Output,
		}
		if i, ok := byKey[iv.Key]; ok {
			p.Intervals[i] = iv
			continue
		}
		byKey[iv.Key] = len(p.Intervals)
		p.Intervals = append(p.Intervals, iv)
	}
	sort.Slice(p.Intervals, func(i, j int) bool {
		a, b := p.Intervals[i].Key, p.Intervals[j].Key
		if a.Month != b.Month {
			return a.Month < b.Month
		}
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		return a.Hour < b.Hour
	})
	return p, dropped
}

func validKey(month, day, hour int) bool {
	if month < 1 || month > 12 || hour < 0 || hour > 23 || day < 1 {
		return false
	}
	// 2024 is a leap year, so Feb 29 is a valid profile day.
	return day <= time.Date(2024, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Align inner-joins prices with a profile on (month, day, hour).
//
// Null prices are dropped first. When the profile carries no Feb 29 rows,
// Feb 29 prices are dropped too. Sub-hourly intervals all pick up the output
// of their clock hour. Output order follows the price series.
func Align(prices []model.PriceInterval, profile model.PVProfile) []model.JoinedRecord {
	valid := model.ValidPrices(prices)
	if len(valid) == 0 || len(profile.Intervals) == 0 {
		return []model.JoinedRecord{}
	}

	dropLeap := !profile.HasLeapDay()
	idx := profile.Index()

	out := make([]model.JoinedRecord, 0, len(valid))
	for _, p := range valid {
		key := model.KeyOf(p.Datetime)
		if dropLeap && key.IsLeapDay() {
			continue
		}
		output, ok := idx[key]
		if !ok {
			continue
		}
		out = append(out, model.JoinedRecord{
			Datetime: p.Datetime,
			Price:    p.Price,
			Output:   output,
			Weighted: p.Price * output,
		})
	}
	return out
}

// ApplyInflation escalates prices by (1+rate)^years, where years is the
// signed distance from base in Julian years. Intervals before base are
// deflated. A zero rate returns an unchanged copy.
func ApplyInflation(prices []model.PriceInterval, rate float64, base time.Time) []model.PriceInterval {
	out := make([]model.PriceInterval, len(prices))
	copy(out, prices)
	if rate == 0 {
		return out
	}
	for i := range out {
		if !out[i].Valid {
			continue
		}
		years := out[i].Datetime.Sub(base).Seconds() / secondsPerYear
		out[i].Price *= math.Pow(1+rate, years)
	}
	return out
}
