package models

// SelectionQuery is the query-string form of an analysis selection.
type SelectionQuery struct {
	Market        string   `form:"market"`
	Start         string   `form:"start"` // YYYY-MM-DD, inclusive
	End           string   `form:"end"`   // YYYY-MM-DD, inclusive
	Profile       string   `form:"profile"`
	Grouping      string   `form:"grouping"`
	InflationRate *float64 `form:"inflation_rate"`
	InflationBase string   `form:"inflation_base"` // YYYY-MM-DD, default today
}

// ThresholdQuery selects the hours priced at or below Threshold.
type ThresholdQuery struct {
	SelectionQuery
	Threshold float64 `form:"threshold"`
	BinWidth  float64 `form:"bin_width" binding:"omitempty,gt=0"` // 0 = no histogram
}

// RankQuery ranks profiles; Profiles is comma-separated, empty = all.
type RankQuery struct {
	SelectionQuery
	Profiles string `form:"profiles"`
	Limit    int    `form:"limit"` // default: 10
}

// SelectionBody is the JSON form of an analysis selection.
type SelectionBody struct {
	Market    string         `json:"market"`
	Start     string         `json:"start,omitempty"`
	End       string         `json:"end,omitempty"`
	Profile   string         `json:"profile,omitempty"`
	Inflation *InflationBody `json:"inflation,omitempty"`
}

type InflationBody struct {
	Rate     float64 `json:"rate"`
	BaseDate string  `json:"base_date,omitempty"`
}

// PPARequest represents the request body for a PPA settlement
type PPARequest struct {
	Selection   SelectionBody `json:"selection" binding:"required"`
	StrikePrice *float64      `json:"strike_price"` // default from config
	Grouping    string        `json:"grouping,omitempty"`
	IncludeRows bool          `json:"include_rows,omitempty"`
}

// BESSConfig contains battery and schedule configuration
type BESSConfig struct {
	// BatteryID names a preset from the battery directory; Battery overrides its fields.
	BatteryID string        `json:"battery_id,omitempty"`
	Battery   BatteryConfig `json:"battery,omitempty"`
	Cycles    []CycleConfig `json:"cycles,omitempty"`
}

// BatteryConfig defines battery parameters
type BatteryConfig struct {
	Name          string  `json:"name,omitempty"`
	PowerMW       float64 `json:"power_mw"`
	DurationHours float64 `json:"duration_hours"`
	Efficiency    float64 `json:"efficiency"`
}

// CycleConfig is one daily charge/discharge pair in HH:MM.
type CycleConfig struct {
	Charge    string `json:"charge" binding:"required"`
	Discharge string `json:"discharge" binding:"required"`
}

// BESSRequest represents the request body for running a dispatch simulation
type BESSRequest struct {
	Selection     SelectionBody `json:"selection" binding:"required"`
	Config        BESSConfig    `json:"config"`
	Grouping      string        `json:"grouping,omitempty"`
	IncludeLedger bool          `json:"include_ledger,omitempty"`
}

// CompareBESSRequest runs several configurations over the same prices
type CompareBESSRequest struct {
	Selection  SelectionBody   `json:"selection" binding:"required"`
	BaseConfig BESSConfig      `json:"base_config"`
	Variations []BESSVariation `json:"variations" binding:"required,min=1"`
}

// BESSVariation defines a variation to test
type BESSVariation struct {
	Name   string     `json:"name" binding:"required"`
	Config BESSConfig `json:"config"`
}
