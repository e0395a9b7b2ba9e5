package backtest

import (
	"time"

	"spain-energy/internal/model"
)

// LedgerRow is one row of per-interval output.
// This is the primary artifact for "what happened" in a dispatch run.
type LedgerRow struct {
	Index int `json:"index"`

	Datetime time.Time `json:"datetime"`
	Date     time.Time `json:"date"`

	Price float64 `json:"price"`

	Action model.Action `json:"action"`
	Cycle  int          `json:"cycle"`

	ChargeMWh    float64 `json:"charge_mwh"`
	DischargeMWh float64 `json:"discharge_mwh"`

	SOCStartMWh float64 `json:"soc_start_mwh"`
	SOCMWh      float64 `json:"battery_soc"`

	ChargeCost       float64 `json:"charge_cost"`
	DischargeRevenue float64 `json:"discharge_revenue"`

	// CashFlow is this interval's signed contribution; NetRevenue is the
	// running total since the first interval and never resets.
	CashFlow   float64 `json:"cash_flow"`
	NetRevenue float64 `json:"net_revenue"`
}

// Active reports whether the battery moved any energy in the interval.
func (r LedgerRow) Active() bool {
	return r.ChargeMWh > 0 || r.DischargeMWh > 0
}

type Result struct {
	Market     string            `json:"market,omitempty"`
	Battery    model.BatterySpec `json:"battery"`
	Strategy   string            `json:"strategy"`
	Resolution model.Resolution  `json:"resolution"`

	Ledger       []LedgerRow `json:"ledger"`
	TotalRevenue float64     `json:"total_revenue"`
	FinalSOC     float64     `json:"final_soc_mwh"`
}
