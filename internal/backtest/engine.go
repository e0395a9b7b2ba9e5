package backtest

import (
	"fmt"

	"spain-energy/internal/model"
	"spain-energy/internal/strategy"
	"spain-energy/internal/timeutil"
)

type Engine struct{}

func New() *Engine { return &Engine{} }

// Run simulates scheduled dispatch over a price series.
//
// Intervals without a price are skipped. The remaining ones are processed in
// time order; the battery is emptied at the start of every calendar day and
// the interval length comes from the detected resolution. When an interval
// is in both a charge and a discharge window, charging wins. An empty series
// yields an empty result.
func (e *Engine) Run(intervals []model.PriceInterval, batt *model.Battery, strat strategy.Strategy) (*Result, error) {
	if batt == nil {
		return nil, fmt.Errorf("battery is nil")
	}
	if strat == nil {
		return nil, fmt.Errorf("strategy is nil")
	}
	if err := batt.Spec.Validate(); err != nil {
		return nil, err
	}

	prices := model.ValidPrices(intervals)
	model.SortPrices(prices)

	res := &Result{
		Battery:    batt.Spec,
		Strategy:   strat.Name(),
		Resolution: timeutil.DetectPriceResolution(prices),
		Ledger:     make([]LedgerRow, 0, len(prices)),
	}
	dtH := res.Resolution.IntervalHours()
	cum := 0.0
	batt.Reset()

	for idx, it := range prices {
		day := timeutil.DateOf(it.Datetime)
		if idx > 0 && !day.Equal(res.Ledger[idx-1].Date) {
			batt.Reset()
		}

		d := strat.Decide(strategy.Context{Index: idx, Interval: it})

		var step model.IntervalResult
		switch {
		case d.Charging:
			step = batt.Charge(it.Price, dtH)
		case d.Discharging:
			step = batt.Discharge(it.Price, dtH)
		default:
			step = batt.Idle()
		}
		cum += step.CashFlow()

		cycle := 0
		if step.ChargeMWh > 0 || step.DischargeMWh > 0 {
			cycle = d.Cycle
		}

		res.Ledger = append(res.Ledger, LedgerRow{
			Index:    idx,
			Datetime: it.Datetime,
			Date:     day,
			Price:    it.Price,

			Action: model.ActionFromResult(step),
			Cycle:  cycle,

			ChargeMWh:    step.ChargeMWh,
			DischargeMWh: step.DischargeMWh,

			SOCStartMWh: step.SOCStartMWh,
			SOCMWh:      step.SOCEndMWh,

			ChargeCost:       step.ChargeCost,
			DischargeRevenue: step.DischargeRevenue,

			CashFlow:   step.CashFlow(),
			NetRevenue: cum,
		})
	}

	res.TotalRevenue = cum
	res.FinalSOC = batt.SOCMWh
	return res, nil
}
