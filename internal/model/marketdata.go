package model

import (
	"sort"
	"time"
)

// Resolution is the sampling interval of a price series.
type Resolution string

const (
	ResolutionHourly        Resolution = "hourly"
	ResolutionQuarterHourly Resolution = "quarter_hourly"
)

// IntervalHours is the length of one interval in hours.
func (r Resolution) IntervalHours() float64 {
	if r == ResolutionQuarterHourly {
		return 0.25
	}
	return 1
}

func (r Resolution) IntervalsPerHour() int {
	if r == ResolutionQuarterHourly {
		return 4
	}
	return 1
}

// RawPriceRow is one stored price row as a provider returns it: the timestamp
// text is unparsed and the price may be null.
type RawPriceRow struct {
	Timestamp string   `json:"datetime"`
	Price     *float64 `json:"price"`
}

// PriceFile is the JSON shape accepted by the price importer.
//
// Example:
//
//	{
//	  "market": "omie_da",
//	  "data": [ {"datetime": "2024-01-01 00:00:00", "price": 63.33}, ... ]
//	}
type PriceFile struct {
	Market string        `json:"market"`
	Data   []RawPriceRow `json:"data"`
}

// PriceInterval is one normalized price observation in EUR/MWh.
// Datetime is a naive wall-clock label (carried in time.UTC, no offset math).
// Valid is false when the source row had no price.
type PriceInterval struct {
	Datetime   time.Time
	Price      float64
	Valid      bool
	Resolution Resolution
}

// SortPrices orders intervals by Datetime, keeping the input order of ties.
func SortPrices(prices []PriceInterval) {
	sort.SliceStable(prices, func(i, j int) bool {
		return prices[i].Datetime.Before(prices[j].Datetime)
	})
}

// ValidPrices returns only the intervals that carry a price.
func ValidPrices(prices []PriceInterval) []PriceInterval {
	out := make([]PriceInterval, 0, len(prices))
	for _, p := range prices {
		if p.Valid {
			out = append(out, p)
		}
	}
	return out
}

// FilterRange keeps the intervals inside sel's date window.
func FilterRange(prices []PriceInterval, sel Selection) []PriceInterval {
	out := make([]PriceInterval, 0, len(prices))
	for _, p := range prices {
		if sel.InRange(p.Datetime) {
			out = append(out, p)
		}
	}
	return out
}
