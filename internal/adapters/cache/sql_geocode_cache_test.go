package cache

import (
	"context"
	"fuel-route-service/internal/adapters/repositories"
	"fuel-route-service/internal/domain"
	"fuel-route-service/internal/platform/db"
	"os"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// geocodeCacheDBs returns a fresh SQLite database and, when
// FUEL_TEST_DATABASE_URL is set, a Postgres one with an empty cache table.
func geocodeCacheDBs(t *testing.T) map[string]*sqlx.DB {
	t.Helper()
	ctx := context.Background()

	sqlite, err := db.OpenSQLite(ctx, db.MemoryDSN)
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })
	require.NoError(t, repositories.InitSchema(ctx, sqlite))
	dbs := map[string]*sqlx.DB{"sqlite": sqlite}

	if url := os.Getenv("FUEL_TEST_DATABASE_URL"); url != "" {
		pg, err := db.OpenPostgres(ctx, url)
		require.NoError(t, err)
		t.Cleanup(func() { pg.Close() })
		require.NoError(t, repositories.InitSchema(ctx, pg))
		_, err = pg.ExecContext(ctx, `DELETE FROM geocode_cache`)
		require.NoError(t, err)
		dbs["postgres"] = pg
	}

	return dbs
}

func TestSQLGeocodeCache(t *testing.T) {
	for name, conn := range geocodeCacheDBs(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := NewSQLGeocodeCache(conn)

			empty, err := c.GetMany(ctx, []string{"Dallas, TX"})
			require.NoError(t, err)
			assert.Empty(t, empty)

			require.NoError(t, c.PutMany(ctx, map[string]domain.Coordinates{
				"Dallas, TX":  {Lat: 32.7767, Lon: -96.797},
				"Houston, TX": {Lat: 29.7604, Lon: -95.3698},
			}))
			require.NoError(t, c.PutMany(ctx, map[string]domain.Coordinates{
				"Dallas, TX": {Lat: 32.78, Lon: -96.8},
			}))

			got, err := c.GetMany(ctx, []string{"Dallas, TX", " Dallas, TX ", "Houston, TX", "Austin, TX", ""})
			require.NoError(t, err)
			assert.Equal(t, map[string]domain.Coordinates{
				"Dallas, TX":  {Lat: 32.78, Lon: -96.8},
				"Houston, TX": {Lat: 29.7604, Lon: -95.3698},
			}, got)
		})
	}
}

func TestSQLGeocodeCacheRejectsBlankKeyAtomically(t *testing.T) {
	ctx := context.Background()
	conn := geocodeCacheDBs(t)["sqlite"]
	c := NewSQLGeocodeCache(conn)

	err := c.PutMany(ctx, map[string]domain.Coordinates{
		"Austin, TX": {Lat: 30.2672, Lon: -97.7431},
		"  ":         {},
	})
	require.Error(t, err)

	got, err := c.GetMany(ctx, []string{"Austin, TX"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLGeocodeCacheNilDB(t *testing.T) {
	c := NewSQLGeocodeCache(nil)

	_, err := c.GetMany(context.Background(), []string{"Dallas, TX"})
	assert.Error(t, err)
	assert.Error(t, c.PutMany(context.Background(), map[string]domain.Coordinates{"Dallas, TX": {}}))
}
