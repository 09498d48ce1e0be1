package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var sqliteSchema = []string{
	`
	CREATE TABLE IF NOT EXISTS fuel_stations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		opis_truck_stop_id INTEGER NOT NULL DEFAULT 0,
		name TEXT NOT NULL,
		address TEXT NOT NULL,
		city TEXT NOT NULL,
		state TEXT NOT NULL,
		rack_id INTEGER NOT NULL DEFAULT 0,
		retail_price TEXT NOT NULL,
		lat REAL,
		lon REAL
	);
	`,
	`
	CREATE INDEX IF NOT EXISTS idx_fuel_stations_state
	ON fuel_stations(state);
	`,
	`
	CREATE TABLE IF NOT EXISTS geocode_cache (
		address TEXT PRIMARY KEY,
		lon REAL NOT NULL,
		lat REAL NOT NULL
	);
	`,
}

var postgresSchema = []string{
	`
	CREATE TABLE IF NOT EXISTS fuel_stations (
		id BIGSERIAL PRIMARY KEY,
		opis_truck_stop_id BIGINT NOT NULL DEFAULT 0,
		name VARCHAR(255) NOT NULL,
		address VARCHAR(255) NOT NULL,
		city VARCHAR(100) NOT NULL,
		state VARCHAR(2) NOT NULL,
		rack_id BIGINT NOT NULL DEFAULT 0,
		retail_price NUMERIC(8,4) NOT NULL,
		lat DOUBLE PRECISION,
		lon DOUBLE PRECISION
	);
	`,
	`
	CREATE INDEX IF NOT EXISTS idx_fuel_stations_state
	ON fuel_stations(state);
	`,
	`
	CREATE INDEX IF NOT EXISTS idx_fuel_stations_located
	ON fuel_stations(id) WHERE lat IS NOT NULL AND lon IS NOT NULL;
	`,
	`
	CREATE TABLE IF NOT EXISTS geocode_cache (
		address TEXT PRIMARY KEY,
		lon DOUBLE PRECISION NOT NULL,
		lat DOUBLE PRECISION NOT NULL
	);
	`,
}

// Initialize the database schema for the connected driver (SQLite or Postgres).
func InitSchema(ctx context.Context, db *sqlx.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	var statements []string
	switch db.DriverName() {
	case "sqlite":
		statements = sqliteSchema
	case "pgx":
		statements = postgresSchema
	default:
		return fmt.Errorf("init schema: unsupported driver %q", db.DriverName())
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}
