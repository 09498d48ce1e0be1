package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port int `validate:"min=1,max=65535"`

	// Postgres DSN. When empty the SQLite database at DBPath is used.
	DatabaseURL string
	DBPath      string `validate:"required_without=DatabaseURL"`

	// Optional; the route cache is disabled when empty.
	RedisURL      string        `validate:"omitempty,url"`
	RouteCacheTTL time.Duration `validate:"gte=0"`

	ORS     ORSConfig
	Planner PlannerConfig

	IndexRefreshInterval time.Duration `validate:"gte=0"`
	GeocodeInterval      time.Duration `validate:"gt=0"`
	FuelPricesCSV        string

	LogLevel string `validate:"oneof=debug info warn error"`
}

type ORSConfig struct {
	APIKey  string
	BaseURL string `validate:"required,url"`
	Profile string `validate:"required"`
	Country string `validate:"required"`
}

type PlannerConfig struct {
	VehicleRangeKm  float64 `validate:"gt=0"`
	SearchRadiusDeg float64 `validate:"gt=0,lte=5"`
	MaxQueries      int     `validate:"min=1"`
}

var defaults = map[string]any{
	"PORT":                   8080,
	"DATABASE_URL":           "",
	"DB_PATH":                "data/app.db",
	"REDIS_URL":              "",
	"ROUTE_CACHE_TTL":        "24h",
	"ORS_API_KEY":            "",
	"ORS_BASE_URL":           "https://api.openrouteservice.org",
	"ORS_PROFILE":            "driving-car",
	"ORS_COUNTRY":            "USA",
	"VEHICLE_RANGE_KM":       804.672,
	"SEARCH_RADIUS_DEG":      0.3,
	"MAX_QUERIES":            200,
	"INDEX_REFRESH_INTERVAL": "0s",
	"GEOCODE_INTERVAL":       "650ms",
	"FUEL_PRICES_CSV":        "data/fuel-prices.csv",
	"LOG_LEVEL":              "info",
}

var validate = validator.New()

// Load reads configuration from the environment, after loading any of the
// given dotenv files that exist (".env" when none are given). Variables
// already set in the environment win over dotenv values.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load config: read %s: %w", f, err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	cfg := &Config{
		Port:          v.GetInt("PORT"),
		DatabaseURL:   strings.TrimSpace(v.GetString("DATABASE_URL")),
		DBPath:        v.GetString("DB_PATH"),
		RedisURL:      strings.TrimSpace(v.GetString("REDIS_URL")),
		RouteCacheTTL: v.GetDuration("ROUTE_CACHE_TTL"),
		ORS: ORSConfig{
			APIKey:  strings.TrimSpace(v.GetString("ORS_API_KEY")),
			BaseURL: v.GetString("ORS_BASE_URL"),
			Profile: v.GetString("ORS_PROFILE"),
			Country: v.GetString("ORS_COUNTRY"),
		},
		Planner: PlannerConfig{
			VehicleRangeKm:  v.GetFloat64("VEHICLE_RANGE_KM"),
			SearchRadiusDeg: v.GetFloat64("SEARCH_RADIUS_DEG"),
			MaxQueries:      v.GetInt("MAX_QUERIES"),
		},
		IndexRefreshInterval: v.GetDuration("INDEX_REFRESH_INTERVAL"),
		GeocodeInterval:      v.GetDuration("GEOCODE_INTERVAL"),
		FuelPricesCSV:        v.GetString("FUEL_PRICES_CSV"),
		LogLevel:             strings.ToLower(v.GetString("LOG_LEVEL")),
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return cfg, nil
}

// RequireORS fails when no OpenRouteService API key is configured.
func (c *Config) RequireORS() error {
	if c.ORS.APIKey == "" {
		return errors.New("ORS_API_KEY is required")
	}
	return nil
}

// UsePostgres reports whether the catalog lives in Postgres rather than SQLite.
func (c *Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}
