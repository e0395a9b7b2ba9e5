package report

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"spain-energy/internal/analysis"
	"spain-energy/internal/backtest"
	"spain-energy/internal/ppa"
)

const (
	summarySheet = "summary"
	ledgerSheet  = "ledger"
	dailySheet   = "daily"
	monthlySheet = "monthly"
	groupsSheet  = "groups"

	dateLayout     = "2006-01-02"
	datetimeLayout = "2006-01-02 15:04"
)

// BuildBESSXLSX renders a dispatch run: metrics, per-day windows and the
// full ledger.
func BuildBESSXLSX(res *backtest.Result, m backtest.Metrics) ([]byte, error) {
	if res == nil {
		return nil, fmt.Errorf("build bess xlsx: nil result")
	}
	f := excelize.NewFile()
	defer f.Close()
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(dailySheet)
	f.NewSheet(ledgerSheet)

	summary := [][]interface{}{
		{"BESS Dispatch"},
		{},
		{"Power (MW)", res.Battery.PowerMW},
		{"Duration (h)", res.Battery.DurationHours},
		{"Capacity (MWh)", res.Battery.CapacityMWh()},
		{"Efficiency", res.Battery.Efficiency},
		{"Resolution", string(res.Resolution)},
		{"Days", m.Days},
		{"Cycles", m.TotalCycles},
		{"Total Charge (MWh)", m.TotalChargeMWh},
		{"Total Discharge (MWh)", m.TotalDischargeMWh},
		{"Avg Charge Price (EUR/MWh)", m.AvgChargePrice},
		{"Avg Discharge Price (EUR/MWh)", m.AvgDischargePrice},
		{"Avg Spread (EUR/MWh)", m.AvgSpread},
		{"Total Revenue (EUR)", m.TotalRevenue},
		{"Daily Avg Revenue (EUR)", m.DailyAvgRevenue},
		{"Daily Revenue per MWh (EUR)", m.DailyRevenuePerMWh},
	}
	if err := writeRows(f, summarySheet, summary); err != nil {
		return nil, err
	}

	charge, discharge := backtest.DailyWindows(res)
	daily := [][]interface{}{{"Kind", "Start", "End", "Energy (MWh)", "Avg Price (EUR/MWh)"}}
	for _, w := range charge {
		daily = append(daily, []interface{}{"charge", w.Start.Format(datetimeLayout), w.End.Format(datetimeLayout), w.EnergyMWh, w.AvgPricePerMWh})
	}
	for _, w := range discharge {
		daily = append(daily, []interface{}{"discharge", w.Start.Format(datetimeLayout), w.End.Format(datetimeLayout), w.EnergyMWh, w.AvgPricePerMWh})
	}
	if err := writeRows(f, dailySheet, daily); err != nil {
		return nil, err
	}

	ledger := make([][]interface{}, 0, len(res.Ledger)+1)
	header := make([]interface{}, 0, len(backtest.LedgerHeader()))
	for _, h := range backtest.LedgerHeader() {
		header = append(header, h)
	}
	ledger = append(ledger, header)
	for _, r := range res.Ledger {
		ledger = append(ledger, []interface{}{
			r.Index,
			r.Datetime.Format(datetimeLayout),
			r.Date.Format(dateLayout),
			r.Price,
			string(r.Action),
			r.Cycle,
			r.ChargeMWh,
			r.DischargeMWh,
			r.SOCStartMWh,
			r.SOCMWh,
			r.ChargeCost,
			r.DischargeRevenue,
			r.CashFlow,
			r.NetRevenue,
		})
	}
	if err := writeRows(f, ledgerSheet, ledger); err != nil {
		return nil, err
	}
	return encode(f)
}

// BuildPPAXLSX renders a settlement's metrics and monthly breakdown.
func BuildPPAXLSX(m ppa.Metrics, monthly []ppa.MonthBreakdown) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(monthlySheet)

	summary := [][]interface{}{
		{"PPA Settlement"},
		{},
		{"Strike (EUR/MWh)", m.Strike},
		{"Total Generation (MWh)", m.TotalGeneration},
		{"Eligible Generation (MWh)", m.EligibleOutput},
		{"Eligible (%)", m.PctEligible},
		{"Total Revenue (EUR)", m.TotalRevenue},
		{"Effective Price (EUR/MWh)", m.EffectivePrice},
	}
	if err := writeRows(f, summarySheet, summary); err != nil {
		return nil, err
	}

	rows := [][]interface{}{{"Month", "Total PV (MWh)", "Eligible PV (MWh)", "Eligible (%)", "Revenue (EUR)", "Effective Price (EUR/MWh)"}}
	for _, mb := range monthly {
		rows = append(rows, []interface{}{mb.MonthName, mb.TotalPV, mb.EligiblePV, mb.PctEligible, mb.Revenue, mb.EffectivePrice})
	}
	if err := writeRows(f, monthlySheet, rows); err != nil {
		return nil, err
	}
	return encode(f)
}

// BuildGroupedXLSX renders one grouped series as a two-column sheet.
func BuildGroupedXLSX(title string, g analysis.Grouping, values []analysis.GroupValue) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	f.SetSheetName("Sheet1", groupsSheet)

	rows := [][]interface{}{{title}, {string(g), "value"}}
	for _, v := range values {
		rows = append(rows, []interface{}{v.Key.Label, v.Value})
	}
	if err := writeRows(f, groupsSheet, rows); err != nil {
		return nil, err
	}
	return encode(f)
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		r := row
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func encode(f *excelize.File) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
