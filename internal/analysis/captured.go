package analysis

import (
	"spain-energy/internal/model"
)

// CapturedPrice is the generation-weighted average price per group:
// sum(price*output) / sum(output). Groups whose total output is not positive
// are omitted.
func CapturedPrice(records []model.JoinedRecord, g Grouping) []GroupValue {
	acc := newAccumulator()
	for _, r := range records {
		acc.add(g.KeyOf(r.Datetime), r.Weighted, r.Output)
	}
	out := make([]GroupValue, 0, len(acc.sums))
	for k, s := range acc.sums {
		if s.b <= 0 {
			continue
		}
		out = append(out, GroupValue{Key: k, Value: s.a / s.b})
	}
	sortValues(out)
	return out
}

// OverallCapturedPrice is CapturedPrice over the whole set.
// ok is false when total output is not positive.
func OverallCapturedPrice(records []model.JoinedRecord) (float64, bool) {
	var weighted, output float64
	for _, r := range records {
		weighted += r.Weighted
		output += r.Output
	}
	if output <= 0 {
		return 0, false
	}
	return weighted / output, true
}

// MeanPrice is the simple (baseload) mean of valid prices per group.
func MeanPrice(prices []model.PriceInterval, g Grouping) []GroupValue {
	acc := newAccumulator()
	for _, p := range prices {
		if !p.Valid {
			continue
		}
		acc.add(g.KeyOf(p.Datetime), p.Price, 0)
	}
	out := make([]GroupValue, 0, len(acc.sums))
	for k, s := range acc.sums {
		out = append(out, GroupValue{Key: k, Value: s.a / float64(s.count)})
	}
	sortValues(out)
	return out
}

// CapturedFactor divides each group's captured price by the baseload mean of
// the full price series in the same group. prices must be the series the
// records were aligned from, not the joined subset. Only groups present on
// both sides are returned; groups with a zero baseload mean are omitted.
func CapturedFactor(records []model.JoinedRecord, prices []model.PriceInterval, g Grouping) []GroupValue {
	base := make(map[GroupKey]float64)
	for _, v := range MeanPrice(prices, g) {
		base[v.Key] = v.Value
	}
	captured := CapturedPrice(records, g)
	out := make([]GroupValue, 0, len(captured))
	for _, c := range captured {
		b, ok := base[c.Key]
		if !ok || b == 0 {
			continue
		}
		out = append(out, GroupValue{Key: c.Key, Value: c.Value / b})
	}
	return out
}

// OverallCapturedFactor is CapturedFactor over the whole set.
func OverallCapturedFactor(records []model.JoinedRecord, prices []model.PriceInterval) (float64, bool) {
	cp, ok := OverallCapturedPrice(records)
	if !ok {
		return 0, false
	}
	var sum float64
	n := 0
	for _, p := range prices {
		if p.Valid {
			sum += p.Price
			n++
		}
	}
	if n == 0 || sum == 0 {
		return 0, false
	}
	return cp / (sum / float64(n)), true
}

// EnsureComplete fills the missing members of a bounded axis (calendar
// month, weekday, hour) with zero values and returns them in display order.
// Other groupings are returned sorted but otherwise unchanged.
func EnsureComplete(values []GroupValue, g Grouping) []GroupValue {
	axis := g.Axis()
	if axis == nil {
		out := append([]GroupValue(nil), values...)
		sortValues(out)
		return out
	}
	have := make(map[GroupKey]float64, len(values))
	for _, v := range values {
		have[v.Key] = v.Value
	}
	out := make([]GroupValue, 0, len(axis))
	for _, k := range axis {
		out = append(out, GroupValue{Key: k, Value: have[k]})
	}
	return out
}
