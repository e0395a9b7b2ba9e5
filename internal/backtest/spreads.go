package backtest

import (
	"sort"
	"time"

	"spain-energy/internal/analysis"
)

// SpreadGroup holds energy-weighted prices of one group of active intervals.
type SpreadGroup struct {
	Key               analysis.GroupKey `json:"key"`
	ChargeMWh         float64           `json:"charge_mwh"`
	DischargeMWh      float64           `json:"discharge_mwh"`
	AvgChargePrice    float64           `json:"avg_charge_price"`
	AvgDischargePrice float64           `json:"avg_discharge_price"`
	AvgSpread         float64           `json:"avg_spread"`
}

// SpreadsBy groups the active intervals of a ledger and computes charge and
// discharge prices per group, with the same spread rule as Summarize.
// Bounded axes (calendar month, weekday, hour) are zero-filled.
func SpreadsBy(ledger []LedgerRow, g analysis.Grouping) []SpreadGroup {
	type sums struct{ cost, chg, rev, dis float64 }
	acc := make(map[analysis.GroupKey]*sums)
	for _, r := range ledger {
		if !r.Active() {
			continue
		}
		k := g.KeyOf(r.Datetime)
		s, ok := acc[k]
		if !ok {
			s = &sums{}
			acc[k] = s
		}
		if r.ChargeMWh > 0 {
			s.cost += r.ChargeCost
			s.chg += r.ChargeMWh
		}
		if r.DischargeMWh > 0 {
			s.rev += r.DischargeRevenue
			s.dis += r.DischargeMWh
		}
	}

	keys := g.Axis()
	if keys == nil {
		for k := range acc {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i].Order < keys[j].Order })
	}

	out := make([]SpreadGroup, 0, len(keys))
	for _, k := range keys {
		sg := SpreadGroup{Key: k}
		if s, ok := acc[k]; ok {
			sg.ChargeMWh = s.chg
			sg.DischargeMWh = s.dis
			if s.chg > 0 {
				sg.AvgChargePrice = -s.cost / s.chg
			}
			if s.dis > 0 {
				sg.AvgDischargePrice = s.rev / s.dis
			}
			if s.chg > 0 && s.dis > 0 {
				sg.AvgSpread = sg.AvgDischargePrice - sg.AvgChargePrice
			}
		}
		out = append(out, sg)
	}
	return out
}

// TimeWindow is a span of ledger intervals.
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// DayWindow is the charge or discharge activity of one day.
type DayWindow struct {
	TimeWindow
	EnergyMWh      float64 `json:"energy_mwh"`
	AvgPricePerMWh float64 `json:"avg_price_per_mwh"`
}

// DailyWindows returns, per day and in chronological order, the span from
// the first to the end of the last charging interval and likewise for
// discharging, with energy-weighted prices.
func DailyWindows(res *Result) (charge, discharge []DayWindow) {
	if res == nil {
		return nil, nil
	}
	step := time.Duration(res.Resolution.IntervalHours() * float64(time.Hour))

	type agg struct {
		win           TimeWindow
		value, energy float64
	}
	var chargeDays, dischargeDays []time.Time
	chargeBy := make(map[time.Time]*agg)
	dischargeBy := make(map[time.Time]*agg)

	add := func(by map[time.Time]*agg, order *[]time.Time, r LedgerRow, value, energy float64) {
		a, ok := by[r.Date]
		if !ok {
			a = &agg{win: TimeWindow{Start: r.Datetime}}
			by[r.Date] = a
			*order = append(*order, r.Date)
		}
		a.win.End = r.Datetime.Add(step)
		a.value += value
		a.energy += energy
	}

	for _, r := range res.Ledger {
		if r.ChargeMWh > 0 {
			add(chargeBy, &chargeDays, r, -r.ChargeCost, r.ChargeMWh)
		}
		if r.DischargeMWh > 0 {
			add(dischargeBy, &dischargeDays, r, r.DischargeRevenue, r.DischargeMWh)
		}
	}

	build := func(by map[time.Time]*agg, order []time.Time) []DayWindow {
		out := make([]DayWindow, 0, len(order))
		for _, d := range order {
			a := by[d]
			w := DayWindow{TimeWindow: a.win, EnergyMWh: a.energy}
			if a.energy > 0 {
				w.AvgPricePerMWh = a.value / a.energy
			}
			out = append(out, w)
		}
		return out
	}
	return build(chargeBy, chargeDays), build(dischargeBy, dischargeDays)
}
