package align

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spain-energy/internal/model"
)

func f(v float64) *float64 { return &v }

func at(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.UTC)
}

func price(t time.Time, p float64) model.PriceInterval {
	return model.PriceInterval{Datetime: t, Price: p, Valid: true}
}

func flatProfile(withLeap bool) model.PVProfile {
	p := model.PVProfile{Name: "flat"}
	for m := 1; m <= 12; m++ {
		days := time.Date(2023, time.Month(m)+1, 0, 0, 0, 0, 0, time.UTC).Day()
		if m == 2 && withLeap {
			days = 29
		}
		for d := 1; d <= days; d++ {
			for h := 0; h < 24; h++ {
				p.Intervals = append(p.Intervals, model.PVInterval{
					Key:    model.CalendarKey{Month: m, Day: d, Hour: h},
					Output: float64(h) / 10,
				})
			}
		}
	}
	return p
}

func TestPrices_NormalizesAndDrops(t *testing.T) {
	rows := []model.RawPriceRow{
		{Timestamp: "2024-01-01T01:00:00+01:00", Price: f(20)},
		{Timestamp: "2024-01-01 00:00:00", Price: f(10)},
		{Timestamp: "garbage", Price: f(99)},
		{Timestamp: "2024-01-01T02:00:00Z", Price: nil},
		{Timestamp: "2024-01-01 01:00:00", Price: f(25)},
	}
	prices, dropped := Prices(rows)
	assert.Equal(t, 1, dropped)
	require.Len(t, prices, 3)

	assert.True(t, prices[0].Datetime.Equal(at(2024, 1, 1, 0, 0)))
	assert.Equal(t, 25.0, prices[1].Price, "duplicate timestamp keeps last row")
	assert.False(t, prices[2].Valid)
	assert.Equal(t, model.ResolutionHourly, prices[0].Resolution)
}

func TestProfile_DropsNullAndBadKeys(t *testing.T) {
	rows := []model.RawPVRow{
		{Month: 1, Day: 1, Hour: 12, Output: f(0.5)},
		{Month: 1, Day: 1, Hour: 11, Output: f(0.4)},
		{Month: 2, Day: 30, Hour: 12, Output: f(0.5)},
		{Month: 1, Day: 2, Hour: 24, Output: f(0.5)},
		{Month: 1, Day: 3, Hour: 10, Output: nil},
		{Month: 2, Day: 29, Hour: 10, Output: f(0.1)},
	}
	p, dropped := Profile("site", rows)
	assert.Equal(t, 3, dropped)
	require.Len(t, p.Intervals, 3)
	assert.Equal(t, 11, p.Intervals[0].Key.Hour)
	assert.True(t, p.HasLeapDay())
}

func TestAlign_InnerJoinOnCalendarHour(t *testing.T) {
	prices := []model.PriceInterval{
		price(at(2023, 6, 1, 12, 0), 50),
		price(at(2023, 6, 1, 12, 15), 60),
		price(at(2023, 6, 1, 12, 30), 70),
		price(at(2023, 6, 1, 12, 45), 80),
		{Datetime: at(2023, 6, 1, 13, 0)},
	}
	profile := model.PVProfile{Intervals: []model.PVInterval{
		{Key: model.CalendarKey{Month: 6, Day: 1, Hour: 12}, Output: 2},
	}}

	got := Align(prices, profile)
	require.Len(t, got, 4)
	for _, r := range got {
		assert.Equal(t, 2.0, r.Output, "quarter hours share the hourly output")
		assert.InDelta(t, r.Price*r.Output, r.Weighted, 1e-9)
	}
}

func TestAlign_DropsLeapDayWithoutProfileSupport(t *testing.T) {
	prices := []model.PriceInterval{
		price(at(2024, 2, 28, 10, 0), 40),
		price(at(2024, 2, 29, 10, 0), 41),
		price(at(2024, 3, 1, 10, 0), 42),
	}

	got := Align(prices, flatProfile(false))
	require.Len(t, got, 2)
	for _, r := range got {
		assert.False(t, model.KeyOf(r.Datetime).IsLeapDay())
	}

	got = Align(prices, flatProfile(true))
	assert.Len(t, got, 3)
}

func TestAlign_EmptyInputs(t *testing.T) {
	assert.Empty(t, Align(nil, flatProfile(false)))
	assert.Empty(t, Align([]model.PriceInterval{{Datetime: at(2023, 1, 1, 0, 0)}}, flatProfile(false)))
	assert.Empty(t, Align([]model.PriceInterval{price(at(2023, 1, 1, 0, 0), 1)}, model.PVProfile{}))
}

func TestAlign_OnlyKeysPresentInBoth(t *testing.T) {
	prices := []model.PriceInterval{
		price(at(2023, 1, 1, 0, 0), 10),
		price(at(2023, 1, 1, 1, 0), 20),
	}
	profile := model.PVProfile{Intervals: []model.PVInterval{
		{Key: model.CalendarKey{Month: 1, Day: 1, Hour: 1}, Output: 1},
		{Key: model.CalendarKey{Month: 1, Day: 1, Hour: 2}, Output: 1},
	}}
	got := Align(prices, profile)
	require.Len(t, got, 1)
	assert.Equal(t, 20.0, got[0].Price)
}

func TestApplyInflation(t *testing.T) {
	base := at(2025, 1, 1, 0, 0)
	oneYear := base.Add(time.Duration(365.25 * 24 * float64(time.Hour)))
	prices := []model.PriceInterval{
		price(base, 100),
		price(oneYear, 100),
		price(base.Add(-time.Duration(365.25*24*float64(time.Hour))), 100),
		{Datetime: oneYear},
	}

	got := ApplyInflation(prices, 0.02, base)
	assert.InDelta(t, 100.0, got[0].Price, 1e-9)
	assert.InDelta(t, 102.0, got[1].Price, 1e-9)
	assert.InDelta(t, 100/1.02, got[2].Price, 1e-9)
	assert.False(t, got[3].Valid)
	assert.Equal(t, 100.0, prices[1].Price, "input is not mutated")

	same := ApplyInflation(prices, 0, base)
	for i := range prices {
		assert.Equal(t, prices[i].Price, same[i].Price)
	}
}

func TestApplyInflation_MonotoneInRate(t *testing.T) {
	base := at(2025, 1, 1, 0, 0)
	p := []model.PriceInterval{price(at(2030, 1, 1, 0, 0), 50)}
	low := ApplyInflation(p, 0.01, base)[0].Price
	high := ApplyInflation(p, 0.03, base)[0].Price
	assert.Greater(t, high, low)
	assert.InDelta(t, 50*math.Pow(1.03, 5*365/365.25+1/365.25), high, 1e-6)
}
