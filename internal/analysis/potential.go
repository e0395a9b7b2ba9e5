package analysis

import (
	"math"
	"sort"
	"time"

	"spain-energy/internal/model"
	"spain-energy/internal/timeutil"
)

// PriceSummary describes a price series. It does not depend on a specific
// battery; OracleRevenue is a perfect-foresight benchmark for a canonical
// 1 MW / 1 MWh battery that starts empty every day, the same daily reset the
// scheduled dispatch simulator uses.
type PriceSummary struct {
	Market     string           `json:"market"`
	Resolution model.Resolution `json:"resolution"`

	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	Count int `json:"count"`

	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
	P05  float64 `json:"p05"`
	P95  float64 `json:"p95"`

	SpreadP95P05 float64 `json:"spread_p95_p05"`

	// NonPositiveShare is the fraction of intervals priced at or below zero.
	NonPositiveShare float64 `json:"non_positive_share"`

	OracleRevenue float64 `json:"oracle_revenue"`
}

// Summarize computes PriceSummary over the valid intervals of prices.
func Summarize(market string, prices []model.PriceInterval) PriceSummary {
	valid := model.ValidPrices(prices)
	s := PriceSummary{Market: market}
	if len(valid) == 0 {
		return s
	}
	model.SortPrices(valid)
	s.Count = len(valid)
	s.Start = valid[0].Datetime
	s.End = valid[len(valid)-1].Datetime
	s.Resolution = timeutil.DetectPriceResolution(valid)

	sum := 0.0
	minv := math.Inf(1)
	maxv := math.Inf(-1)
	nonPositive := 0
	vals := make([]float64, 0, len(valid))
	for _, it := range valid {
		v := it.Price
		vals = append(vals, v)
		sum += v
		if v < minv {
			minv = v
		}
		if v > maxv {
			maxv = v
		}
		if v <= 0 {
			nonPositive++
		}
	}
	sort.Float64s(vals)
	s.Min = minv
	s.Max = maxv
	s.Mean = sum / float64(len(vals))
	s.P05 = percentileSorted(vals, 0.05)
	s.P95 = percentileSorted(vals, 0.95)
	s.SpreadP95P05 = s.P95 - s.P05
	s.NonPositiveShare = float64(nonPositive) / float64(len(vals))

	s.OracleRevenue = oracleRevenueDaily(valid, s.Resolution.IntervalHours())
	return s
}

func percentileSorted(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	// Linear interpolation between order stats.
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// oracleRevenueDaily sums the best achievable revenue of each calendar day.
// prices must be sorted.
func oracleRevenueDaily(prices []model.PriceInterval, dt float64) float64 {
	total := 0.0
	start := 0
	for i := 1; i <= len(prices); i++ {
		if i == len(prices) || !timeutil.DateOf(prices[i].Datetime).Equal(timeutil.DateOf(prices[start].Datetime)) {
			total += oracleRevenueCanonical(prices[start:i], dt)
			start = i
		}
	}
	return total
}

// oracleRevenueCanonical computes the optimum with a simple DP:
// SOC discretized into steps of dt (since P=1MW, E=1MWh), starting empty.
func oracleRevenueCanonical(prices []model.PriceInterval, dt float64) float64 {
	if len(prices) == 0 || dt <= 0 {
		return 0
	}
	steps := int(math.Round(1.0 / dt))
	if steps < 1 {
		steps = 1
	}
	// SOC grid: 0..steps (inclusive) maps to soc = i/steps.
	nStates := steps + 1
	negInf := -1e100
	dp := make([]float64, nStates)
	next := make([]float64, nStates)
	for i := range dp {
		dp[i] = negInf
	}
	dp[0] = 0

	for _, it := range prices {
		for i := range next {
			next[i] = negInf
		}
		price := it.Price

		for socIdx := 0; socIdx <= steps; socIdx++ {
			if dp[socIdx] <= negInf/2 {
				continue
			}

			// Idle
			if dp[socIdx] > next[socIdx] {
				next[socIdx] = dp[socIdx]
			}

			// Charge: buy dt MWh, SOC increases by one step.
			if socIdx < steps {
				gain := -(price * dt)
				if dp[socIdx]+gain > next[socIdx+1] {
					next[socIdx+1] = dp[socIdx] + gain
				}
			}

			// Discharge: sell dt MWh, SOC decreases by one step.
			if socIdx > 0 {
				gain := price * dt
				if dp[socIdx]+gain > next[socIdx-1] {
					next[socIdx-1] = dp[socIdx] + gain
				}
			}
		}
		dp, next = next, dp
	}

	best := negInf
	for _, v := range dp {
		if v > best {
			best = v
		}
	}
	if best <= negInf/2 {
		return 0
	}
	return best
}
