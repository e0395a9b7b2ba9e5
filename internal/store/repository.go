package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"spain-energy/internal/model"
)

const batchSize = 500

// Repository stores market prices and PV profiles in a local sqlite file.
type Repository struct {
	db *gorm.DB
}

func New(path string) (*Repository, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Migrate the schema
	err = db.AutoMigrate(&StoredPrice{}, &StoredPVPoint{})
	if err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return &Repository{
		db: db,
	}, nil
}

func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SavePrices upserts rows for a market; an existing (market, datetime)
// row takes the new price.
func (r *Repository) SavePrices(ctx context.Context, market string, rows []model.RawPriceRow) (int, error) {
	if market == "" {
		return 0, errors.New("save prices: empty market")
	}
	if len(rows) == 0 {
		return 0, nil
	}
	stored := make([]StoredPrice, 0, len(rows))
	seen := make(map[string]int, len(rows))
	for _, row := range rows {
		if i, ok := seen[row.Timestamp]; ok {
			stored[i] = newStoredPrice(market, row)
			continue
		}
		seen[row.Timestamp] = len(stored)
		stored = append(stored, newStoredPrice(market, row))
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "market"}, {Name: "datetime"}},
		DoUpdates: clause.AssignmentColumns([]string{"price"}),
	}).CreateInBatches(stored, batchSize)
	if result.Error != nil {
		return 0, fmt.Errorf("save prices: %w", result.Error)
	}
	return len(stored), nil
}

// PriceRows returns the raw rows of a market ordered by their text label.
func (r *Repository) PriceRows(ctx context.Context, market string) ([]model.RawPriceRow, error) {
	var stored []StoredPrice
	result := r.db.WithContext(ctx).Where("market = ?", market).Order("datetime asc").Find(&stored)
	if result.Error != nil {
		return nil, result.Error
	}
	out := make([]model.RawPriceRow, len(stored))
	for i, s := range stored {
		out[i] = s.raw()
	}
	return out, nil
}

func (r *Repository) Markets(ctx context.Context) ([]string, error) {
	var markets []string
	result := r.db.WithContext(ctx).Model(&StoredPrice{}).Distinct("market").Order("market asc").Pluck("market", &markets)
	if result.Error != nil {
		return nil, result.Error
	}
	return markets, nil
}

// SavePVProfile replaces a profile's rows.
func (r *Repository) SavePVProfile(ctx context.Context, profile string, rows []model.RawPVRow) (int, error) {
	if profile == "" {
		return 0, errors.New("save profile: empty name")
	}
	type key struct{ m, d, h int }
	stored := make([]StoredPVPoint, 0, len(rows))
	seen := make(map[key]int, len(rows))
	for _, row := range rows {
		k := key{row.Month, row.Day, row.Hour}
		if i, ok := seen[k]; ok {
			stored[i] = newStoredPVPoint(profile, row)
			continue
		}
		seen[k] = len(stored)
		stored = append(stored, newStoredPVPoint(profile, row))
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("profile = ?", profile).Delete(&StoredPVPoint{}).Error; err != nil {
			return err
		}
		if len(stored) == 0 {
			return nil
		}
		return tx.CreateInBatches(stored, batchSize).Error
	})
	if err != nil {
		return 0, fmt.Errorf("save profile %s: %w", profile, err)
	}
	return len(stored), nil
}

func (r *Repository) PVRows(ctx context.Context, profile string) ([]model.RawPVRow, error) {
	var stored []StoredPVPoint
	result := r.db.WithContext(ctx).Where("profile = ?", profile).Order("month asc, day asc, hour asc").Find(&stored)
	if result.Error != nil {
		return nil, result.Error
	}
	out := make([]model.RawPVRow, len(stored))
	for i, s := range stored {
		out[i] = s.raw()
	}
	return out, nil
}

func (r *Repository) Profiles(ctx context.Context) ([]string, error) {
	var profiles []string
	result := r.db.WithContext(ctx).Model(&StoredPVPoint{}).Distinct("profile").Order("profile asc").Pluck("profile", &profiles)
	if result.Error != nil {
		return nil, result.Error
	}
	return profiles, nil
}
