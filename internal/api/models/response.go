package models

import (
	"spain-energy/internal/analysis"
	"spain-energy/internal/backtest"
)

// BESSResponse represents the response from a dispatch run
type BESSResponse struct {
	ID               string                 `json:"id"`
	Status           string                 `json:"status"`
	Market           string                 `json:"market"`
	Resolution       string                 `json:"resolution"`
	Battery          BatterySpecs           `json:"battery"`
	Metrics          backtest.Metrics       `json:"metrics"`
	Grouping         analysis.Grouping      `json:"grouping"`
	Spreads          []backtest.SpreadGroup `json:"spreads"`
	ChargeWindows    []backtest.DayWindow   `json:"charge_windows,omitempty"`
	DischargeWindows []backtest.DayWindow   `json:"discharge_windows,omitempty"`
	Ledger           []backtest.LedgerRow   `json:"ledger,omitempty"`
}

// CompareBESSResponse represents the response from a comparison
type CompareBESSResponse struct {
	Comparison []ComparisonResult `json:"comparison"`
}

// ComparisonResult contains results for one variation
type ComparisonResult struct {
	Name    string           `json:"name"`
	ID      string           `json:"id"`
	Battery BatterySpecs     `json:"battery"`
	Metrics backtest.Metrics `json:"metrics"`
}

// MarketInfo describes a stored price series
type MarketInfo struct {
	ID       string `json:"id"`
	Forecast bool   `json:"forecast"`
}

// BatteryInfo represents information about a battery preset
type BatteryInfo struct {
	ID    string       `json:"id"`
	Name  string       `json:"name"`
	File  string       `json:"file"`
	Specs BatterySpecs `json:"specs"`
}

// BatterySpecs contains battery specifications
type BatterySpecs struct {
	PowerMW       float64 `json:"power_mw"`
	DurationHours float64 `json:"duration_hours"`
	CapacityMWh   float64 `json:"capacity_mwh"`
	Efficiency    float64 `json:"efficiency"`
}

// StrategyInfo represents information about a strategy
type StrategyInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ParameterInfo `json:"parameters"`
}

// ParameterInfo describes a strategy parameter
type ParameterInfo struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"` // "float", "int", "string"
	Description string      `json:"description"`
	Default     interface{} `json:"default,omitempty"`
}

// ThresholdResponse is the threshold count plus an optional histogram
type ThresholdResponse struct {
	analysis.ThresholdResult
	Histogram []analysis.HistogramBin `json:"histogram,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error codes
const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeInvalidConfig  = "INVALID_CONFIG"
	CodeUnknownMarket  = "UNKNOWN_MARKET"
	CodeNotFound       = "NOT_FOUND"
	CodeAnalysisError  = "ANALYSIS_ERROR"
	CodeInternalError  = "INTERNAL_ERROR"
)

// RankResponse represents the response from ranking PV profiles
type RankResponse struct {
	Market   string    `json:"market"`
	Rankings []Ranking `json:"rankings"`
}

// Ranking represents one ranked profile
type Ranking struct {
	Rank           int     `json:"rank"`
	Profile        string  `json:"profile"`
	Matched        int     `json:"matched_intervals"`
	CapturedPrice  float64 `json:"captured_price"`
	CapturedFactor float64 `json:"captured_factor"`
}
