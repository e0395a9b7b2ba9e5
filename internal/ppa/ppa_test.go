package ppa

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spain-energy/internal/analysis"
	"spain-energy/internal/model"
)

func rec(t time.Time, price, output float64) model.JoinedRecord {
	return model.JoinedRecord{Datetime: t, Price: price, Output: output, Weighted: price * output}
}

func at(m time.Month, d, h int) time.Time {
	return time.Date(2024, m, d, h, 0, 0, 0, time.UTC)
}

func TestSimulate_StrictlyPositiveEligibility(t *testing.T) {
	records := []model.JoinedRecord{
		rec(at(1, 1, 10), 50, 1),
		rec(at(1, 1, 11), 0, 1),
		rec(at(1, 1, 12), -3, 2),
	}
	res := Simulate(records, 40)

	require.Len(t, res.Rows, 3)
	assert.True(t, res.Rows[0].Eligible)
	assert.False(t, res.Rows[1].Eligible, "zero price is not eligible")
	assert.False(t, res.Rows[2].Eligible)

	assert.InDelta(t, 4.0, res.Metrics.TotalGeneration, 1e-9)
	assert.InDelta(t, 40.0, res.Metrics.TotalRevenue, 1e-9)
	assert.InDelta(t, 10.0, res.Metrics.EffectivePrice, 1e-9)
	assert.InDelta(t, 25.0, res.Metrics.PctEligible, 1e-9)
}

func TestSimulate_AllPositiveEqualsStrike(t *testing.T) {
	records := []model.JoinedRecord{rec(at(3, 1, 10), 5, 2), rec(at(3, 1, 11), 80, 3)}
	res := Simulate(records, 42)
	assert.InDelta(t, 42.0, res.Metrics.EffectivePrice, 1e-9)
	assert.InDelta(t, 100.0, res.Metrics.PctEligible, 1e-9)
}

func TestSimulate_NoGeneration(t *testing.T) {
	res := Simulate([]model.JoinedRecord{rec(at(1, 1, 2), 30, 0)}, 40)
	assert.Equal(t, 0.0, res.Metrics.EffectivePrice)
	assert.Equal(t, 0.0, res.Metrics.PctEligible)

	empty := Simulate(nil, 40)
	assert.Empty(t, empty.Rows)
	assert.Equal(t, 0.0, empty.Metrics.EffectivePrice)
}

func TestSimulate_EffectivePriceBounded(t *testing.T) {
	records := []model.JoinedRecord{rec(at(5, 1, 9), -1, 1), rec(at(5, 1, 10), 1, 7), rec(at(5, 1, 11), 0, 2)}
	m := Simulate(records, 60).Metrics
	assert.GreaterOrEqual(t, m.EffectivePrice, 0.0)
	assert.LessOrEqual(t, m.EffectivePrice, 60.0)
	assert.GreaterOrEqual(t, m.PctEligible, 0.0)
	assert.LessOrEqual(t, m.PctEligible, 100.0)
}

// Zero-output groups stay in the PPA output at 0, while captured price
// drops them from its output.
func TestEffectivePriceBy_ZeroFillsWhereCapturedPriceDrops(t *testing.T) {
	records := []model.JoinedRecord{
		rec(at(1, 1, 3), 20, 0),
		rec(at(1, 1, 12), 50, 2),
		rec(at(1, 1, 13), -5, 2),
	}
	res := Simulate(records, 40)
	got := EffectivePriceBy(res.Rows, analysis.ByHour)
	require.Len(t, got, 3)
	assert.Equal(t, 3, got[0].Key.Order)
	assert.Equal(t, 0.0, got[0].Value)
	assert.InDelta(t, 40.0, got[1].Value, 1e-9)
	assert.Equal(t, 0.0, got[2].Value)

	captured := analysis.CapturedPrice(records, analysis.ByHour)
	require.Len(t, captured, 2)
	for _, c := range captured {
		assert.NotEqual(t, 3, c.Key.Order)
	}
}

func TestMonthlyBreakdown(t *testing.T) {
	records := []model.JoinedRecord{
		rec(at(2, 1, 12), 50, 3),
		rec(at(2, 2, 12), -1, 1),
		rec(at(7, 1, 12), 10, 2),
	}
	got := MonthlyBreakdown(Simulate(records, 40).Rows)
	require.Len(t, got, 12)

	feb := got[1]
	assert.Equal(t, 2, feb.Month)
	assert.Equal(t, "Feb", feb.MonthName)
	assert.InDelta(t, 4.0, feb.TotalPV, 1e-9)
	assert.InDelta(t, 3.0, feb.EligiblePV, 1e-9)
	assert.InDelta(t, 75.0, feb.PctEligible, 1e-9)
	assert.InDelta(t, 120.0, feb.Revenue, 1e-9)
	assert.InDelta(t, 30.0, feb.EffectivePrice, 1e-9)

	assert.InDelta(t, 40.0, got[6].EffectivePrice, 1e-9)
	assert.Equal(t, 0.0, got[0].TotalPV)
	assert.Equal(t, 0.0, got[0].EffectivePrice)
}
