package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spain-energy/internal/model"
)

func at(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.UTC)
}

func rec(t time.Time, price, output float64) model.JoinedRecord {
	return model.JoinedRecord{Datetime: t, Price: price, Output: output, Weighted: price * output}
}

func price(t time.Time, p float64) model.PriceInterval {
	return model.PriceInterval{Datetime: t, Price: p, Valid: true}
}

func TestGrouping_Keys(t *testing.T) {
	ts := at(2024, 3, 4, 15, 30) // Monday
	assert.Equal(t, GroupKey{Label: "2024", Order: 2024}, ByYear.KeyOf(ts))
	assert.Equal(t, GroupKey{Label: "2024-03", Order: 202403}, ByYearMonth.KeyOf(ts))
	assert.Equal(t, GroupKey{Label: "Mar", Order: 3}, ByCalendarMonth.KeyOf(ts))
	assert.Equal(t, GroupKey{Label: "2024-03-04", Order: 20240304}, ByDate.KeyOf(ts))
	assert.Equal(t, GroupKey{Label: "Monday", Order: 0}, ByWeekday.KeyOf(ts))
	assert.Equal(t, GroupKey{Label: "Sunday", Order: 6}, ByWeekday.KeyOf(at(2024, 3, 10, 0, 0)))
	assert.Equal(t, GroupKey{Label: "15", Order: 15}, ByHour.KeyOf(ts))

	g, err := ParseGrouping("year_month")
	require.NoError(t, err)
	assert.Equal(t, ByYearMonth, g)
	_, err = ParseGrouping("fortnight")
	assert.Error(t, err)
}

func TestCapturedPrice_WeightedByOutput(t *testing.T) {
	records := []model.JoinedRecord{
		rec(at(2024, 1, 1, 10, 0), 100, 1),
		rec(at(2024, 1, 1, 11, 0), 40, 3),
		rec(at(2024, 2, 1, 10, 0), 70, 2),
	}
	got := CapturedPrice(records, ByCalendarMonth)
	require.Len(t, got, 2)
	assert.Equal(t, "Jan", got[0].Key.Label)
	assert.InDelta(t, (100+120)/4.0, got[0].Value, 1e-9)
	assert.InDelta(t, 70.0, got[1].Value, 1e-9)

	overall, ok := OverallCapturedPrice(records)
	require.True(t, ok)
	assert.InDelta(t, (100+120+140)/6.0, overall, 1e-9)
}

func TestCapturedPrice_UniformPriceEqualsPrice(t *testing.T) {
	var records []model.JoinedRecord
	for h := 0; h < 24; h++ {
		records = append(records, rec(at(2024, 5, 1, h, 0), 55, float64(h%7)))
	}
	for _, v := range CapturedPrice(records, ByHour) {
		assert.InDelta(t, 55.0, v.Value, 1e-9)
	}
}

func TestCapturedPrice_DropsZeroOutputGroups(t *testing.T) {
	records := []model.JoinedRecord{
		rec(at(2024, 1, 1, 2, 0), 30, 0),
		rec(at(2024, 1, 1, 12, 0), 60, 1),
	}
	got := CapturedPrice(records, ByHour)
	require.Len(t, got, 1)
	assert.Equal(t, 12, got[0].Key.Order)

	_, ok := OverallCapturedPrice([]model.JoinedRecord{rec(at(2024, 1, 1, 2, 0), 30, 0)})
	assert.False(t, ok)
}

func TestCapturedFactor_UsesFullPriceSeries(t *testing.T) {
	var prices []model.PriceInterval
	var records []model.JoinedRecord
	for h := 0; h < 24; h++ {
		p := 40.0
		if h >= 10 && h < 16 {
			p = 20
		}
		ts := at(2024, 6, 3, h, 0)
		prices = append(prices, price(ts, p))
		out := 0.0
		if h >= 10 && h < 16 {
			out = 1
		}
		records = append(records, rec(ts, p, out))
	}
	// Baseload mean (18*40 + 6*20)/24 = 35, captured price 20.
	got := CapturedFactor(records, prices, ByDate)
	require.Len(t, got, 1)
	assert.InDelta(t, 20.0/35.0, got[0].Value, 1e-9)

	cf, ok := OverallCapturedFactor(records, prices)
	require.True(t, ok)
	assert.InDelta(t, 20.0/35.0, cf, 1e-9)
}

func TestCapturedFactor_FlatPriceIsOne(t *testing.T) {
	var prices []model.PriceInterval
	var records []model.JoinedRecord
	for d := 1; d <= 3; d++ {
		for h := 0; h < 24; h++ {
			ts := at(2024, 7, d, h, 0)
			prices = append(prices, price(ts, 80))
			records = append(records, rec(ts, 80, float64(h)))
		}
	}
	for _, v := range CapturedFactor(records, prices, ByDate) {
		assert.InDelta(t, 1.0, v.Value, 1e-9)
	}
}

func TestCapturedFactor_InnerJoinOnGroups(t *testing.T) {
	prices := []model.PriceInterval{price(at(2024, 1, 1, 12, 0), 50), price(at(2024, 2, 1, 12, 0), 0)}
	records := []model.JoinedRecord{rec(at(2024, 1, 1, 12, 0), 50, 1), rec(at(2024, 2, 1, 12, 0), 0, 1), rec(at(2024, 3, 1, 12, 0), 50, 1)}
	got := CapturedFactor(records, prices, ByCalendarMonth)
	require.Len(t, got, 1, "Feb has zero baseload, Mar has no baseload row")
	assert.Equal(t, 1, got[0].Key.Order)
}

func TestEnsureComplete(t *testing.T) {
	got := EnsureComplete([]GroupValue{{Key: ByCalendarMonth.KeyOf(at(2024, 5, 1, 0, 0)), Value: 3}}, ByCalendarMonth)
	require.Len(t, got, 12)
	for i, v := range got {
		assert.Equal(t, i+1, v.Key.Order)
		if i == 4 {
			assert.Equal(t, 3.0, v.Value)
		} else {
			assert.Equal(t, 0.0, v.Value)
		}
	}

	days := EnsureComplete(nil, ByWeekday)
	require.Len(t, days, 7)
	assert.Equal(t, "Monday", days[0].Key.Label)
	assert.Equal(t, "Sunday", days[6].Key.Label)

	hours := EnsureComplete([]GroupValue{{Key: GroupKey{Label: "23", Order: 23}, Value: 1}}, ByHour)
	require.Len(t, hours, 24)
	assert.Equal(t, 1.0, hours[23].Value)

	years := []GroupValue{{Key: GroupKey{Label: "2025", Order: 2025}}, {Key: GroupKey{Label: "2023", Order: 2023}}}
	got = EnsureComplete(years, ByYear)
	require.Len(t, got, 2)
	assert.Equal(t, 2023, got[0].Key.Order)
}

func TestHoursAtOrBelow_AveragesQuarterHours(t *testing.T) {
	var prices []model.PriceInterval
	// 00:00 hour averages to 5, 01:00 hour averages to 25.
	for i, p := range []float64{0, 10, 0, 10, 20, 30, 20, 30} {
		prices = append(prices, price(at(2024, 4, 1, 0, 0).Add(time.Duration(i)*15*time.Minute), p))
	}
	hourly := HourlyPrices(prices)
	require.Len(t, hourly, 2)
	assert.InDelta(t, 5.0, hourly[0].Price, 1e-9)
	assert.InDelta(t, 25.0, hourly[1].Price, 1e-9)

	res := HoursAtOrBelow(prices, 5, ByHour)
	assert.Equal(t, 1, res.Hours)
	assert.Equal(t, 2, res.TotalHours)
	assert.InDelta(t, 50.0, res.Share, 1e-9)
	require.Len(t, res.Groups, 24)
	assert.Equal(t, 1, res.Groups[0].Hours)
	assert.Equal(t, 0, res.Groups[1].Hours)
	assert.Equal(t, 1, res.Groups[1].TotalHours)
	assert.Equal(t, 0, res.Groups[5].TotalHours)
}

func TestHistogram_ThresholdIsBinEdge(t *testing.T) {
	prices := []model.PriceInterval{
		price(at(2024, 1, 1, 0, 0), 3),
		price(at(2024, 1, 1, 1, 0), 10),
		price(at(2024, 1, 1, 2, 0), 11),
		price(at(2024, 1, 1, 3, 0), 27),
	}
	bins, err := Histogram(prices, 10, 5)
	require.NoError(t, err)
	require.NotEmpty(t, bins)
	total := 0
	foundEdge := false
	for _, b := range bins {
		total += b.Count
		if b.Upper == 10 {
			foundEdge = true
			assert.Equal(t, 1, b.Count)
		}
	}
	assert.Equal(t, 4, total)
	assert.True(t, foundEdge)
}

func TestHistogram_RejectsTooManyBins(t *testing.T) {
	prices := []model.PriceInterval{
		price(at(2024, 1, 1, 0, 0), -10),
		price(at(2024, 1, 1, 1, 0), 150),
	}
	bins, err := Histogram(prices, 0, 1e-12)
	assert.ErrorIs(t, err, ErrTooManyBins)
	assert.Nil(t, bins)

	bins, err = Histogram(prices, 0, 160.0/MaxHistogramBins*2)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(bins), MaxHistogramBins)
}

func TestTypicalDay(t *testing.T) {
	profile := model.PVProfile{Intervals: []model.PVInterval{
		{Key: model.CalendarKey{Month: 1, Day: 1, Hour: 12}, Output: 1},
		{Key: model.CalendarKey{Month: 7, Day: 1, Hour: 12}, Output: 3},
	}}
	got := TypicalDay(profile)
	require.Len(t, got, 24)
	assert.InDelta(t, 2.0, got[12].Value, 1e-9)
	assert.Equal(t, 0.0, got[0].Value)
}

func TestSummarize(t *testing.T) {
	prices := []model.PriceInterval{
		price(at(2024, 1, 1, 0, 0), 10),
		price(at(2024, 1, 1, 1, 0), 50),
		price(at(2024, 1, 2, 0, 0), -5),
		price(at(2024, 1, 2, 1, 0), 20),
		{Datetime: at(2024, 1, 2, 2, 0)},
	}
	s := Summarize("omie_da", prices)
	assert.Equal(t, 4, s.Count)
	assert.Equal(t, -5.0, s.Min)
	assert.Equal(t, 50.0, s.Max)
	assert.InDelta(t, 18.75, s.Mean, 1e-9)
	assert.InDelta(t, 0.25, s.NonPositiveShare, 1e-9)
	assert.Equal(t, model.ResolutionHourly, s.Resolution)
	// Day 1: buy at 10 sell at 50. Day 2: buy at -5 sell at 20.
	assert.InDelta(t, 40.0+25.0, s.OracleRevenue, 1e-9)

	empty := Summarize("x", nil)
	assert.Equal(t, 0, empty.Count)
}

func TestRankProfiles(t *testing.T) {
	prices := []model.PriceInterval{price(at(2024, 1, 1, 9, 0), 10), price(at(2024, 1, 1, 20, 0), 90)}
	joined := map[string][]model.JoinedRecord{
		"solar":   {rec(at(2024, 1, 1, 9, 0), 10, 1), rec(at(2024, 1, 1, 20, 0), 90, 0)},
		"evening": {rec(at(2024, 1, 1, 9, 0), 10, 0), rec(at(2024, 1, 1, 20, 0), 90, 1)},
		"dark":    {rec(at(2024, 1, 1, 9, 0), 10, 0)},
	}
	got := RankProfiles(prices, joined)
	require.Len(t, got, 3)
	assert.Equal(t, "evening", got[0].Profile)
	assert.InDelta(t, 1.8, got[0].CapturedFactor, 1e-9)
	assert.Equal(t, "solar", got[1].Profile)
	assert.Equal(t, "dark", got[2].Profile)
	assert.Equal(t, 0.0, got[2].CapturedFactor)
}
