package store

import "spain-energy/internal/model"

// StoredPrice is one market price row persisted to the database. Datetime
// keeps the naive text label so no driver ever applies a zone to it.
type StoredPrice struct {
	ID       uint     `gorm:"primaryKey"`
	Market   string   `gorm:"uniqueIndex:idx_price_market_datetime;not null"`
	Datetime string   `gorm:"uniqueIndex:idx_price_market_datetime;not null"`
	Price    *float64 `gorm:"column:price"`
}

func (StoredPrice) TableName() string { return "prices" }

// StoredPVPoint is one calendar hour of a named PV profile.
type StoredPVPoint struct {
	ID      uint     `gorm:"primaryKey"`
	Profile string   `gorm:"uniqueIndex:idx_pv_profile_key;not null"`
	Month   int      `gorm:"uniqueIndex:idx_pv_profile_key"`
	Day     int      `gorm:"uniqueIndex:idx_pv_profile_key"`
	Hour    int      `gorm:"uniqueIndex:idx_pv_profile_key"`
	Output  *float64 `gorm:"column:output"`
}

func (StoredPVPoint) TableName() string { return "pv_points" }

func newStoredPrice(market string, row model.RawPriceRow) StoredPrice {
	return StoredPrice{Market: market, Datetime: row.Timestamp, Price: row.Price}
}

func newStoredPVPoint(profile string, row model.RawPVRow) StoredPVPoint {
	return StoredPVPoint{Profile: profile, Month: row.Month, Day: row.Day, Hour: row.Hour, Output: row.Output}
}

func (p StoredPrice) raw() model.RawPriceRow {
	return model.RawPriceRow{Timestamp: p.Datetime, Price: p.Price}
}

func (p StoredPVPoint) raw() model.RawPVRow {
	return model.RawPVRow{Month: p.Month, Day: p.Day, Hour: p.Hour, Output: p.Output}
}
