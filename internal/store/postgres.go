package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"spain-energy/internal/model"
)

// PostgresReader reads prices and PV profiles from a shared Postgres
// database with the same prices / pv_points layout as the sqlite store.
// It never writes.
type PostgresReader struct {
	db *sql.DB
}

// OpenPostgres connects through the pgx database/sql driver.
func OpenPostgres(ctx context.Context, url string) (*PostgresReader, error) {
	if url == "" {
		return nil, errors.New("postgres: empty database url")
	}
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresReader{db: db}, nil
}

// NewPostgresReader wraps an existing handle.
func NewPostgresReader(db *sql.DB) *PostgresReader {
	return &PostgresReader{db: db}
}

func (r *PostgresReader) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *PostgresReader) PriceRows(ctx context.Context, market string) ([]model.RawPriceRow, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("postgres reader: nil db")
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT datetime, price FROM prices WHERE market = $1 ORDER BY datetime`, market)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.RawPriceRow
	for rows.Next() {
		var (
			ts    string
			price sql.NullFloat64
		)
		if err := rows.Scan(&ts, &price); err != nil {
			return nil, err
		}
		row := model.RawPriceRow{Timestamp: ts}
		if price.Valid {
			v := price.Float64
			row.Price = &v
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *PostgresReader) Markets(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, `SELECT DISTINCT market FROM prices ORDER BY market`)
}

func (r *PostgresReader) PVRows(ctx context.Context, profile string) ([]model.RawPVRow, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("postgres reader: nil db")
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT month, day, hour, output FROM pv_points WHERE profile = $1 ORDER BY month, day, hour`, profile)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.RawPVRow
	for rows.Next() {
		var (
			row    model.RawPVRow
			output sql.NullFloat64
		)
		if err := rows.Scan(&row.Month, &row.Day, &row.Hour, &output); err != nil {
			return nil, err
		}
		if output.Valid {
			v := output.Float64
			row.Output = &v
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *PostgresReader) Profiles(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, `SELECT DISTINCT profile FROM pv_points ORDER BY profile`)
}

func (r *PostgresReader) distinct(ctx context.Context, query string) ([]string, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("postgres reader: nil db")
	}
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
