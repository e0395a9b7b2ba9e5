package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"spain-energy/internal/analysis"
	"spain-energy/internal/backtest"
	"spain-energy/internal/model"
	"spain-energy/internal/ppa"
	"spain-energy/internal/strategy"
	"spain-energy/internal/timeutil"
)

func sampleRun(t *testing.T) (*backtest.Result, backtest.Metrics) {
	t.Helper()
	day := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	var prices []model.PriceInterval
	for d := 0; d < 3; d++ {
		for h := 0; h < 24; h++ {
			prices = append(prices, model.PriceInterval{
				Datetime: day.AddDate(0, 0, d).Add(time.Duration(h) * time.Hour),
				Price:    float64(10 + h),
				Valid:    true,
			})
		}
	}
	s, err := strategy.NewScheduleStrategy(strategy.ScheduleParams{
		Cycles:        []strategy.Cycle{{Charge: timeutil.MustClock("02:00"), Discharge: timeutil.MustClock("19:00")}},
		DurationHours: 2,
	})
	require.NoError(t, err)
	b, err := model.NewBattery(model.BatterySpec{PowerMW: 1, DurationHours: 2, Efficiency: 0.9})
	require.NoError(t, err)
	res, err := backtest.New().Run(prices, b, s)
	require.NoError(t, err)
	return res, backtest.Summarize(res)
}

func TestBuildBESSXLSX(t *testing.T) {
	res, m := sampleRun(t)
	raw, err := BuildBESSXLSX(res, m)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{summarySheet, dailySheet, ledgerSheet}, f.GetSheetList())

	title, err := f.GetCellValue(summarySheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "BESS Dispatch", title)

	rows, err := f.GetRows(ledgerSheet)
	require.NoError(t, err)
	require.Len(t, rows, len(res.Ledger)+1)
	assert.Equal(t, backtest.LedgerHeader(), rows[0])
	assert.Equal(t, "CHARGING", rows[3][4])

	daily, err := f.GetRows(dailySheet)
	require.NoError(t, err)
	assert.Len(t, daily, 1+3+3)

	_, err = BuildBESSXLSX(nil, m)
	assert.Error(t, err)
}

func TestBuildPPAXLSX(t *testing.T) {
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	settled := ppa.Simulate([]model.JoinedRecord{
		{Datetime: at, Price: 40, Output: 2},
		{Datetime: at.Add(time.Hour), Price: 0, Output: 2},
	}, 30)
	raw, err := BuildPPAXLSX(settled.Metrics, ppa.MonthlyBreakdown(settled.Rows))
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(monthlySheet)
	require.NoError(t, err)
	require.Len(t, rows, 13)
	assert.Equal(t, "Jun", rows[6][0])
	assert.Equal(t, "50", rows[6][3])
}

func TestBuildGroupedXLSX(t *testing.T) {
	values := analysis.EnsureComplete([]analysis.GroupValue{{Key: analysis.ByHour.KeyOf(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)), Value: 42}}, analysis.ByHour)
	raw, err := BuildGroupedXLSX("Captured price", analysis.ByHour, values)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(groupsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2+24)
	assert.Equal(t, []string{"12", "42"}, rows[14])
}

func TestBuildPDFs(t *testing.T) {
	res, m := sampleRun(t)
	raw, err := BuildBESSPDF("omie_da", res, m)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("%PDF")))

	settled := ppa.Simulate(nil, 30)
	raw, err = BuildPPAPDF("omie_da", "fixed", settled.Metrics, ppa.MonthlyBreakdown(settled.Rows))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("%PDF")))

	_, err = BuildBESSPDF("omie_da", nil, m)
	assert.Error(t, err)
}
