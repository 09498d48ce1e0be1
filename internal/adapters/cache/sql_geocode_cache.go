package cache

import (
	"context"
	"errors"
	"fmt"
	"fuel-route-service/internal/domain"
	"fuel-route-service/internal/platform/obs"
	"slices"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Upsert accepted by both SQLite (3.24+) and Postgres; placeholders are rebound per driver.
const upsertGeocode = `
INSERT INTO geocode_cache (address, lon, lat)
VALUES (?, ?, ?)
ON CONFLICT (address) DO UPDATE
SET lon = excluded.lon,
	lat = excluded.lat;
`

// SQLGeocodeCache maps normalized addresses to coordinates in the
// geocode_cache table. It works on any driver InitSchema supports.
type SQLGeocodeCache struct {
	DB *sqlx.DB
}

func NewSQLGeocodeCache(db *sqlx.DB) *SQLGeocodeCache {
	return &SQLGeocodeCache{DB: db}
}

// Fetch cached coordinates for the given addresses. Misses are absent from the result.
func (s *SQLGeocodeCache) GetMany(
	ctx context.Context,
	addresses []string,
) (_ map[string]domain.Coordinates, err error) {
	defer obs.Time(ctx, "geocode.cache.GetMany")(&err)

	if s.DB == nil {
		return nil, errors.New("geocode cache: db is nil")
	}

	uniq := uniqueAddresses(addresses)
	if len(uniq) == 0 {
		return map[string]domain.Coordinates{}, nil
	}

	q, args, err := sqlx.In(`SELECT address, lon, lat FROM geocode_cache WHERE address IN (?)`, uniq)
	if err != nil {
		return nil, fmt.Errorf("get geocode cache: expand query: %w", err)
	}

	var rows []geocodeRow
	if err := s.DB.SelectContext(ctx, &rows, s.DB.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("get geocode cache: query geocode_cache table: %w", err)
	}

	return rowsToCoordinates(rows), nil
}

// Store address -> coordinate mappings, replacing existing entries.
// Nothing is written when any key is blank.
func (s *SQLGeocodeCache) PutMany(ctx context.Context, results map[string]domain.Coordinates) (err error) {
	defer obs.Time(ctx, "geocode.cache.PutMany")(&err)

	if s.DB == nil {
		return errors.New("geocode cache: db is nil")
	}

	addrs := make([]string, 0, len(results))
	for addr := range results {
		if strings.TrimSpace(addr) == "" {
			return errors.New("put geocode cache: empty address key")
		}
		addrs = append(addrs, addr)
	}
	if len(addrs) == 0 {
		return nil
	}
	slices.Sort(addrs)

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("put geocode cache: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PreparexContext(ctx, tx.Rebind(upsertGeocode))
	if err != nil {
		return fmt.Errorf("put geocode cache: prepare: %w", err)
	}
	defer stmt.Close()

	for _, addr := range addrs {
		c := results[addr]
		if _, err := stmt.ExecContext(ctx, addr, c.Lon, c.Lat); err != nil {
			return fmt.Errorf("put geocode cache address=%q: %w", addr, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("put geocode cache: commit: %w", err)
	}
	return nil
}
