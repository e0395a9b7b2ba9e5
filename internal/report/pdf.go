package report

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"spain-energy/internal/backtest"
	"spain-energy/internal/ppa"
)

// maxDailyRows caps the per-day table of the BESS report.
const maxDailyRows = 62

// BuildBESSPDF renders a short dispatch report: battery, metrics and the
// first days of discharge activity.
func BuildBESSPDF(market string, res *backtest.Result, m backtest.Metrics) ([]byte, error) {
	if res == nil {
		return nil, fmt.Errorf("build bess pdf: nil result")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "BESS Dispatch Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	line(pdf, "Market: %s", market)
	line(pdf, "Battery: %.2f MW / %.2f h (%.2f MWh), efficiency %.0f%%",
		res.Battery.PowerMW, res.Battery.DurationHours, res.Battery.CapacityMWh(), res.Battery.Efficiency*100)
	line(pdf, "Resolution: %s", res.Resolution)
	if len(res.Ledger) > 0 {
		line(pdf, "Period: %s to %s",
			res.Ledger[0].Date.Format(dateLayout), res.Ledger[len(res.Ledger)-1].Date.Format(dateLayout))
	}

	pdf.Ln(4)
	line(pdf, "Days: %d    Cycles: %d", m.Days, m.TotalCycles)
	line(pdf, "Charged: %.3f MWh at %.2f EUR/MWh", m.TotalChargeMWh, m.AvgChargePrice)
	line(pdf, "Discharged: %.3f MWh at %.2f EUR/MWh", m.TotalDischargeMWh, m.AvgDischargePrice)
	line(pdf, "Average spread: %.2f EUR/MWh", m.AvgSpread)
	line(pdf, "Total revenue: %.2f EUR", m.TotalRevenue)
	line(pdf, "Daily average: %.2f EUR (%.2f EUR per MWh)", m.DailyAvgRevenue, m.DailyRevenuePerMWh)
	pdf.Ln(8)

	// Daily discharge table
	_, discharge := backtest.DailyWindows(res)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(35, 6, "Day", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "From", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "To", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Energy (MWh)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(45, 6, "Avg Price (EUR/MWh)", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for i, w := range discharge {
		if i == maxDailyRows {
			pdf.CellFormat(180, 6, fmt.Sprintf("... %d more days", len(discharge)-maxDailyRows), "1", 0, "C", false, 0, "")
			pdf.Ln(-1)
			break
		}
		pdf.CellFormat(35, 6, w.Start.Format(dateLayout), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, w.Start.Format("15:04"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, w.End.Format("15:04"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 6, fmt.Sprintf("%.3f", w.EnergyMWh), "1", 0, "R", false, 0, "")
		pdf.CellFormat(45, 6, fmt.Sprintf("%.2f", w.AvgPricePerMWh), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	return output(pdf)
}

// BuildPPAPDF renders a settlement summary with its monthly table.
func BuildPPAPDF(market, profile string, m ppa.Metrics, monthly []ppa.MonthBreakdown) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "PPA Settlement Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	line(pdf, "Market: %s", market)
	line(pdf, "Profile: %s", profile)
	line(pdf, "Strike: %.2f EUR/MWh", m.Strike)
	line(pdf, "Generation: %.3f MWh (%.1f%% eligible)", m.TotalGeneration, m.PctEligible)
	line(pdf, "Revenue: %.2f EUR", m.TotalRevenue)
	line(pdf, "Effective price: %.2f EUR/MWh", m.EffectivePrice)
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(25, 6, "Month", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "PV (MWh)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Eligible (MWh)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Eligible %", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Revenue", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "EUR/MWh", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, mb := range monthly {
		pdf.CellFormat(25, 6, mb.MonthName, "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 6, fmt.Sprintf("%.3f", mb.TotalPV), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, fmt.Sprintf("%.3f", mb.EligiblePV), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 6, fmt.Sprintf("%.1f", mb.PctEligible), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, fmt.Sprintf("%.2f", mb.Revenue), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%.2f", mb.EffectivePrice), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	return output(pdf)
}

func line(pdf *gofpdf.Fpdf, format string, args ...interface{}) {
	pdf.Cell(0, 6, fmt.Sprintf(format, args...))
	pdf.Ln(5)
}

func output(pdf *gofpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
