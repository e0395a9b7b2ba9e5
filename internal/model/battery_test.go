package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSpec() BatterySpec {
	return BatterySpec{PowerMW: 1, DurationHours: 2, Efficiency: 0.9}
}

func TestBatterySpec_Capacity(t *testing.T) {
	assert.InDelta(t, 2.0, testSpec().CapacityMWh(), 1e-9)
	assert.InDelta(t, 40.0, BatterySpec{PowerMW: 10, DurationHours: 4, Efficiency: 1}.CapacityMWh(), 1e-9)
}

func TestBatterySpec_Validate(t *testing.T) {
	require.NoError(t, testSpec().Validate())

	cases := []BatterySpec{
		{PowerMW: 0, DurationHours: 2, Efficiency: 0.9},
		{PowerMW: 1, DurationHours: -1, Efficiency: 0.9},
		{PowerMW: 1, DurationHours: 2, Efficiency: 0},
		{PowerMW: 1, DurationHours: 2, Efficiency: 1.1},
	}
	for _, c := range cases {
		err := c.Validate()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidBattery))
	}
}

func TestBattery_ChargeLimitedByPowerThenHeadroom(t *testing.T) {
	b, err := NewBattery(testSpec())
	require.NoError(t, err)

	r := b.Charge(20, 1)
	assert.InDelta(t, 1.0, r.ChargeMWh, 1e-9)
	assert.InDelta(t, -20.0, r.ChargeCost, 1e-9)
	assert.InDelta(t, 1.0, b.SOCMWh, 1e-9)

	b.SOCMWh = 1.75
	r = b.Charge(20, 1)
	assert.InDelta(t, 0.25, r.ChargeMWh, 1e-9)
	assert.InDelta(t, 2.0, b.SOCMWh, 1e-9)

	r = b.Charge(20, 1)
	assert.Equal(t, 0.0, r.ChargeMWh)
	assert.Equal(t, ActionIdle, ActionFromResult(r))
}

func TestBattery_NegativePriceChargeEarns(t *testing.T) {
	b, _ := NewBattery(testSpec())
	r := b.Charge(-10, 1)
	assert.InDelta(t, 10.0, r.ChargeCost, 1e-9)
	assert.InDelta(t, 10.0, r.CashFlow(), 1e-9)
}

func TestBattery_DischargeAppliesEfficiency(t *testing.T) {
	b, _ := NewBattery(testSpec())
	b.SOCMWh = 2

	r := b.Discharge(100, 1)
	assert.InDelta(t, 1.0, r.DischargeMWh, 1e-9)
	assert.InDelta(t, 1/0.9, r.RemovedMWh, 1e-9)
	assert.InDelta(t, 100.0, r.DischargeRevenue, 1e-9)
	assert.InDelta(t, 2-1/0.9, b.SOCMWh, 1e-9)

	// Remaining stored energy 0.888.. delivers 0.8 after losses.
	r = b.Discharge(100, 1)
	assert.InDelta(t, (2-1/0.9)*0.9, r.DischargeMWh, 1e-9)
	assert.InDelta(t, 0.0, b.SOCMWh, 1e-9)
	assert.Equal(t, ActionDischarging, ActionFromResult(r))
}

func TestBattery_QuarterHourInterval(t *testing.T) {
	b, _ := NewBattery(testSpec())
	r := b.Charge(40, 0.25)
	assert.InDelta(t, 0.25, r.ChargeMWh, 1e-9)
	assert.InDelta(t, -10.0, r.ChargeCost, 1e-9)
}

func TestBattery_Reset(t *testing.T) {
	b, _ := NewBattery(testSpec())
	b.Charge(10, 1)
	assert.InDelta(t, 0.5, b.SOCFraction(), 1e-9)
	b.Reset()
	assert.Equal(t, 0.0, b.SOCMWh)
}

func TestSelection_InRangeIncludesWholeEndDay(t *testing.T) {
	sel := Selection{
		Start: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
	}
	assert.False(t, sel.InRange(time.Date(2024, 2, 29, 23, 0, 0, 0, time.UTC)))
	assert.True(t, sel.InRange(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, sel.InRange(time.Date(2024, 3, 31, 23, 45, 0, 0, time.UTC)))
	assert.False(t, sel.InRange(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, Selection{}.InRange(time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)))
}
