package analysis

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"spain-energy/internal/model"
)

// HourlyPrices averages valid prices into clock hours. Hourly series pass
// through unchanged; quarter-hourly series become one value per hour.
func HourlyPrices(prices []model.PriceInterval) []model.PriceInterval {
	type bucket struct {
		sum float64
		n   int
	}
	order := make([]time.Time, 0)
	buckets := make(map[time.Time]*bucket)
	for _, p := range prices {
		if !p.Valid {
			continue
		}
		h := p.Datetime.Truncate(time.Hour)
		b, ok := buckets[h]
		if !ok {
			b = &bucket{}
			buckets[h] = b
			order = append(order, h)
		}
		b.sum += p.Price
		b.n++
	}
	out := make([]model.PriceInterval, 0, len(order))
	for _, h := range order {
		b := buckets[h]
		out = append(out, model.PriceInterval{
			Datetime:   h,
			Price:      b.sum / float64(b.n),
			Valid:      true,
			Resolution: model.ResolutionHourly,
		})
	}
	model.SortPrices(out)
	return out
}

// ThresholdGroup counts the hours of one group priced at or below a threshold.
type ThresholdGroup struct {
	Key        GroupKey `json:"key"`
	Hours      int      `json:"hours"`
	TotalHours int      `json:"total_hours"`
	Share      float64  `json:"share_pct"`
}

// ThresholdResult is the overall and grouped threshold count.
type ThresholdResult struct {
	Threshold  float64          `json:"threshold"`
	Hours      int              `json:"hours"`
	TotalHours int              `json:"total_hours"`
	Share      float64          `json:"share_pct"`
	Groups     []ThresholdGroup `json:"groups"`
}

// HoursAtOrBelow averages prices to hours and counts those with price <=
// threshold, overall and per group. Bounded axes list every member, with
// zero counts where no hours were observed.
func HoursAtOrBelow(prices []model.PriceInterval, threshold float64, g Grouping) ThresholdResult {
	hourly := HourlyPrices(prices)
	res := ThresholdResult{Threshold: threshold, TotalHours: len(hourly)}

	acc := newAccumulator()
	for _, p := range hourly {
		hit := 0.0
		if p.Price <= threshold {
			hit = 1
			res.Hours++
		}
		acc.add(g.KeyOf(p.Datetime), hit, 0)
	}
	if res.TotalHours > 0 {
		res.Share = float64(res.Hours) / float64(res.TotalHours) * 100
	}

	keys := g.Axis()
	if keys == nil {
		for k := range acc.sums {
			keys = append(keys, k)
		}
	}
	for _, k := range keys {
		tg := ThresholdGroup{Key: k}
		if s, ok := acc.sums[k]; ok {
			tg.Hours = int(s.a)
			tg.TotalHours = s.count
			tg.Share = s.a / float64(s.count) * 100
		}
		res.Groups = append(res.Groups, tg)
	}
	sortThreshold(res.Groups)
	return res
}

func sortThreshold(g []ThresholdGroup) {
	sort.Slice(g, func(i, j int) bool { return g[i].Key.Order < g[j].Key.Order })
}

// HistogramBin counts hourly prices in (Lower, Upper].
type HistogramBin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// MaxHistogramBins bounds the number of bins a width may produce.
const MaxHistogramBins = 10000

var ErrTooManyBins = errors.New("too many histogram bins")

// Histogram bins hourly prices with the given width, aligning the edges so
// that threshold is the inclusive upper bound of one bin.
func Histogram(prices []model.PriceInterval, threshold, width float64) ([]HistogramBin, error) {
	hourly := HourlyPrices(prices)
	if len(hourly) == 0 || width <= 0 {
		return nil, nil
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range hourly {
		lo = math.Min(lo, p.Price)
		hi = math.Max(hi, p.Price)
	}
	start := threshold - math.Ceil((threshold-lo)/width)*width
	if start >= lo {
		start -= width
	}
	span := math.Ceil((hi - start) / width)
	if math.IsNaN(span) || span > MaxHistogramBins {
		return nil, fmt.Errorf("%w: width %g spans more than %d bins", ErrTooManyBins, width, MaxHistogramBins)
	}
	n := int(span)
	if n < 1 {
		n = 1
	}
	bins := make([]HistogramBin, n)
	for i := range bins {
		bins[i] = HistogramBin{Lower: start + float64(i)*width, Upper: start + float64(i+1)*width}
	}
	for _, p := range hourly {
		i := int(math.Ceil((p.Price-start)/width)) - 1
		if i < 0 {
			i = 0
		}
		if i >= n {
			i = n - 1
		}
		bins[i].Count++
	}
	return bins, nil
}

// TypicalDay is the mean profile output per hour of day, all 24 hours present.
func TypicalDay(profile model.PVProfile) []GroupValue {
	acc := newAccumulator()
	for _, iv := range profile.Intervals {
		acc.add(hourKey(iv.Key.Hour), iv.Output, 0)
	}
	out := make([]GroupValue, 0, 24)
	for _, k := range ByHour.Axis() {
		v := 0.0
		if s, ok := acc.sums[k]; ok {
			v = s.a / float64(s.count)
		}
		out = append(out, GroupValue{Key: k, Value: v})
	}
	return out
}
