package timeutil

import (
	"sort"
	"time"

	"spain-energy/internal/model"
)

const (
	quarterHourMin = 10 * time.Minute
	quarterHourMax = 20 * time.Minute
)

// DetectResolution classifies a series by the median gap between consecutive
// timestamps: a median in [10m, 20m] is quarter-hourly, anything else hourly.
// Fewer than two timestamps default to hourly.
func DetectResolution(times []time.Time) model.Resolution {
	if len(times) < 2 {
		return model.ResolutionHourly
	}
	sorted := make([]time.Time, len(times))
	copy(sorted, times)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	deltas := make([]time.Duration, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		deltas = append(deltas, sorted[i].Sub(sorted[i-1]))
	}
	med := medianDuration(deltas)
	if med >= quarterHourMin && med <= quarterHourMax {
		return model.ResolutionQuarterHourly
	}
	return model.ResolutionHourly
}

// DetectPriceResolution is DetectResolution over the intervals' timestamps.
func DetectPriceResolution(prices []model.PriceInterval) model.Resolution {
	times := make([]time.Time, len(prices))
	for i, p := range prices {
		times[i] = p.Datetime
	}
	return DetectResolution(times)
}

func medianDuration(d []time.Duration) time.Duration {
	sort.Slice(d, func(i, j int) bool { return d[i] < d[j] })
	n := len(d)
	if n%2 == 1 {
		return d[n/2]
	}
	return (d[n/2-1] + d[n/2]) / 2
}

// ResolutionFromMaxPeriod classifies a day of period-indexed rows.
// More than 24 periods means quarter-hourly.
func ResolutionFromMaxPeriod(maxPeriod int) model.Resolution {
	if maxPeriod > 24 {
		return model.ResolutionQuarterHourly
	}
	return model.ResolutionHourly
}

// PeriodClock maps a 1-based period index to a clock time.
// ok is false for periods that fall outside the day.
func PeriodClock(period int, res model.Resolution) (hour, minute int, ok bool) {
	if period < 1 {
		return 0, 0, false
	}
	if res == model.ResolutionQuarterHourly {
		hour = (period - 1) / 4
		minute = ((period - 1) % 4) * 15
	} else {
		hour = period - 1
	}
	if hour > 23 {
		return 0, 0, false
	}
	return hour, minute, true
}
