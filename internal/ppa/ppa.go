// Package ppa settles a pay-as-produced PPA that pays the strike price only
// for generation in intervals with a strictly positive market price.
package ppa

import (
	"sort"
	"time"

	"spain-energy/internal/analysis"
	"spain-energy/internal/model"
)

// Settlement is one joined interval with its PPA outcome.
type Settlement struct {
	Datetime time.Time `json:"datetime"`
	Price    float64   `json:"price"`
	Output   float64   `json:"output"`
	Eligible bool      `json:"eligible"`
	Revenue  float64   `json:"revenue"`
}

// Metrics summarizes a settlement run.
type Metrics struct {
	Strike          float64 `json:"strike"`
	TotalGeneration float64 `json:"total_generation_mwh"`
	EligibleOutput  float64 `json:"eligible_generation_mwh"`
	TotalRevenue    float64 `json:"total_revenue"`
	EffectivePrice  float64 `json:"effective_price"`
	PctEligible     float64 `json:"pct_eligible"`
}

// Result is the per-interval settlement plus its metrics.
type Result struct {
	Rows    []Settlement `json:"rows"`
	Metrics Metrics      `json:"metrics"`
}

// Simulate settles every joined record at the strike price.
// An interval is eligible only when its price is > 0; a price of exactly
// zero is not eligible. With no generation the effective price is 0.
func Simulate(records []model.JoinedRecord, strike float64) Result {
	res := Result{
		Rows:    make([]Settlement, 0, len(records)),
		Metrics: Metrics{Strike: strike},
	}
	for _, r := range records {
		s := Settlement{Datetime: r.Datetime, Price: r.Price, Output: r.Output}
		if r.Price > 0 {
			s.Eligible = true
			s.Revenue = r.Output * strike
			res.Metrics.EligibleOutput += r.Output
		}
		res.Metrics.TotalGeneration += r.Output
		res.Metrics.TotalRevenue += s.Revenue
		res.Rows = append(res.Rows, s)
	}
	if res.Metrics.TotalGeneration > 0 {
		res.Metrics.EffectivePrice = res.Metrics.TotalRevenue / res.Metrics.TotalGeneration
		res.Metrics.PctEligible = res.Metrics.EligibleOutput / res.Metrics.TotalGeneration * 100
	}
	return res
}

// EffectivePriceBy computes revenue/generation per group. Unlike captured
// price, groups with zero generation are kept with an effective price of 0.
func EffectivePriceBy(rows []Settlement, g analysis.Grouping) []analysis.GroupValue {
	type sums struct{ rev, gen float64 }
	acc := make(map[analysis.GroupKey]*sums)
	for _, r := range rows {
		k := g.KeyOf(r.Datetime)
		s, ok := acc[k]
		if !ok {
			s = &sums{}
			acc[k] = s
		}
		s.rev += r.Revenue
		s.gen += r.Output
	}
	out := make([]analysis.GroupValue, 0, len(acc))
	for k, s := range acc {
		v := 0.0
		if s.gen > 0 {
			v = s.rev / s.gen
		}
		out = append(out, analysis.GroupValue{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.Order < out[j].Key.Order })
	return out
}

// MonthBreakdown is the settlement of one calendar month.
type MonthBreakdown struct {
	Month          int     `json:"month"`
	MonthName      string  `json:"month_name"`
	TotalPV        float64 `json:"total_pv"`
	EligiblePV     float64 `json:"eligible_pv"`
	PctEligible    float64 `json:"pct_eligible"`
	Revenue        float64 `json:"revenue"`
	EffectivePrice float64 `json:"effective_price"`
}

// MonthlyBreakdown aggregates settlements per calendar month. All twelve
// months are returned, zero-filled where there was no generation.
func MonthlyBreakdown(rows []Settlement) []MonthBreakdown {
	out := make([]MonthBreakdown, 12)
	for i := range out {
		out[i] = MonthBreakdown{Month: i + 1, MonthName: analysis.MonthNames[i]}
	}
	for _, r := range rows {
		m := &out[int(r.Datetime.Month())-1]
		m.TotalPV += r.Output
		m.Revenue += r.Revenue
		if r.Eligible {
			m.EligiblePV += r.Output
		}
	}
	for i := range out {
		if out[i].TotalPV > 0 {
			out[i].PctEligible = out[i].EligiblePV / out[i].TotalPV * 100
			out[i].EffectivePrice = out[i].Revenue / out[i].TotalPV
		}
	}
	return out
}
