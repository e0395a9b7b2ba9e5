package store

import (
	"context"
	"fmt"

	"spain-energy/internal/model"
)

// Reader is the read side shared by the sqlite repository and the
// Postgres reader.
type Reader interface {
	PriceRows(ctx context.Context, market string) ([]model.RawPriceRow, error)
	Markets(ctx context.Context) ([]string, error)
	PVRows(ctx context.Context, profile string) ([]model.RawPVRow, error)
	Profiles(ctx context.Context) ([]string, error)
	Close() error
}

var (
	_ Reader = (*Repository)(nil)
	_ Reader = (*PostgresReader)(nil)
)

// Open returns a reader for driver "sqlite" (dsn is a file path) or
// "postgres" (dsn is a connection URL).
func Open(ctx context.Context, driver, dsn string) (Reader, error) {
	switch driver {
	case "sqlite", "":
		repo, err := New(dsn)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case "postgres":
		pg, err := OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return pg, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}
}
