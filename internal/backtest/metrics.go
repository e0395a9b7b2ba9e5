package backtest

import (
	"time"
)

// Metrics summarizes a dispatch run.
type Metrics struct {
	TotalChargeMWh    float64 `json:"total_charge_mwh"`
	TotalDischargeMWh float64 `json:"total_discharge_mwh"`

	// Energy-weighted prices. AvgChargePrice is negative when the battery
	// was paid to charge.
	AvgChargePrice    float64 `json:"avg_charge_price"`
	AvgDischargePrice float64 `json:"avg_discharge_price"`
	AvgSpread         float64 `json:"avg_spread"`

	TotalRevenue    float64 `json:"total_revenue"`
	DailyAvgRevenue float64 `json:"daily_avg_revenue"`
	// DailyRevenuePerMWh is DailyAvgRevenue per MWh of installed capacity.
	DailyRevenuePerMWh float64 `json:"daily_revenue_per_mwh"`

	TotalCycles int `json:"total_cycles"`
	Days        int `json:"days"`
}

// Summarize computes aggregate metrics from a run's ledger.
//
// The spread is reported as 0 unless the run both charged and discharged.
// Total revenue is the last cumulative value, so it matches the ledger.
// A cycle is a distinct day with at least one discharging interval.
func Summarize(res *Result) Metrics {
	var m Metrics
	if res == nil || len(res.Ledger) == 0 {
		return m
	}

	var chargeCost, dischargeRevenue float64
	days := make(map[time.Time]struct{})
	cycleDays := make(map[time.Time]struct{})
	for _, r := range res.Ledger {
		days[r.Date] = struct{}{}
		if r.ChargeMWh > 0 {
			m.TotalChargeMWh += r.ChargeMWh
			chargeCost += r.ChargeCost
		}
		if r.DischargeMWh > 0 {
			m.TotalDischargeMWh += r.DischargeMWh
			dischargeRevenue += r.DischargeRevenue
			cycleDays[r.Date] = struct{}{}
		}
	}

	if m.TotalChargeMWh > 0 {
		m.AvgChargePrice = -chargeCost / m.TotalChargeMWh
	}
	if m.TotalDischargeMWh > 0 {
		m.AvgDischargePrice = dischargeRevenue / m.TotalDischargeMWh
	}
	if m.TotalChargeMWh > 0 && m.TotalDischargeMWh > 0 {
		m.AvgSpread = m.AvgDischargePrice - m.AvgChargePrice
	}

	m.TotalRevenue = res.Ledger[len(res.Ledger)-1].NetRevenue
	m.Days = len(days)
	m.DailyAvgRevenue = m.TotalRevenue / float64(m.Days)
	if c := res.Battery.CapacityMWh(); c > 0 {
		m.DailyRevenuePerMWh = m.DailyAvgRevenue / c
	}
	m.TotalCycles = len(cycleDays)
	return m
}
