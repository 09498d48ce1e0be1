package main

import (
	"context"
	"flag"
	"fmt"
	"fuel-route-service/internal/adapters/cache"
	"fuel-route-service/internal/adapters/repositories"
	"fuel-route-service/internal/adapters/routing"
	"fuel-route-service/internal/config"
	"fuel-route-service/internal/platform/db"
	"fuel-route-service/internal/platform/logging"
	"fuel-route-service/internal/ports"
	"fuel-route-service/internal/services"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

const usage = `usage: dbtool <command> [flags]

commands:
  init           create the catalog schema
  load-prices    load the fuel price CSV (-csv path, -clear)
  geocode        geocode stations missing coordinates (-limit n, -dry-run)
  prune-states   delete stations outside the 50 US states
  stats          print catalog counts
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()
	defer logging.Install(logger)()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, os.Args[1], os.Args[2:]); err != nil {
		logger.Error("dbtool failed", zap.String("command", os.Args[1]), zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, cmd string, args []string) error {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	csvPath := fs.String("csv", cfg.FuelPricesCSV, "fuel price CSV path (load-prices)")
	clearFirst := fs.Bool("clear", false, "delete existing stations before loading (load-prices)")
	limit := fs.Int("limit", 0, "maximum stations to geocode, 0 for all (geocode)")
	dryRun := fs.Bool("dry-run", false, "report what would be geocoded without calling the API (geocode)")
	dupLimit := fs.Int("duplicates", 10, "duplicate address groups to report (prune-states)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	switch cmd {
	case "init", "load-prices", "geocode", "prune-states", "stats":
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}

	sqlDB, err := openCatalog(ctx, cfg)
	if err != nil {
		return err
	}
	defer sqlDB.Close()
	store := repositories.NewSQLStationRepository(sqlDB)

	switch cmd {
	case "init":
		logger.Info("schema ready")
		return nil

	case "load-prices":
		f, err := os.Open(*csvPath)
		if err != nil {
			return fmt.Errorf("load prices: %w", err)
		}
		defer f.Close()

		res, err := services.LoadFuelPrices(ctx, f, store, services.LoadFuelPricesOptions{
			Clear:  *clearFirst,
			Logger: logger,
		})
		if err != nil {
			return err
		}
		logger.Info("fuel prices loaded",
			zap.String("csv", *csvPath),
			zap.Int64("cleared", res.Cleared),
			zap.Int("inserted", res.Inserted),
			zap.Int("skipped", res.Skipped),
			zap.Int("total", res.Total),
		)
		return nil

	case "geocode":
		var geocoder ports.Geocoder
		if !*dryRun {
			if err := cfg.RequireORS(); err != nil {
				return err
			}
			ors, err := routing.NewORSClient(routing.ORSConfig{
				APIKey:  cfg.ORS.APIKey,
				BaseURL: cfg.ORS.BaseURL,
				Profile: cfg.ORS.Profile,
				Country: cfg.ORS.Country,
				Logger:  logger,
			}, cache.NewSQLGeocodeCache(sqlDB), nil)
			if err != nil {
				return err
			}
			geocoder = ors
		}

		res, err := services.GeocodeStations(ctx, services.GeocodeStationsRequest{
			Limit:    *limit,
			DryRun:   *dryRun,
			Interval: cfg.GeocodeInterval,
			Logger:   logger,
		}, store, geocoder)
		if err != nil {
			return err
		}
		logger.Info("geocoding finished",
			zap.Int("attempted", res.Attempted),
			zap.Int("geocoded", res.Geocoded),
			zap.Int("failed", res.Failed),
		)
		return nil

	case "prune-states":
		res, err := services.PruneNonUSStations(ctx, store, *dupLimit)
		if err != nil {
			return err
		}
		logger.Info("non-US stations pruned",
			zap.Int64("deleted", res.Deleted),
			zap.Int("remaining", res.Remaining.Total),
			zap.Int("located", res.Remaining.Located),
		)
		for _, g := range res.Duplicates {
			logger.Info("duplicate address",
				zap.String("address", g.Address),
				zap.String("city", g.City),
				zap.String("state", g.State),
				zap.Int("count", g.Count),
			)
		}
		return nil

	default: // stats
		counts, err := store.CountStations(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("total=%d located=%d missing=%d\n", counts.Total, counts.Located, counts.Missing())
		return nil
	}
}

func openCatalog(ctx context.Context, cfg *config.Config) (*sqlx.DB, error) {
	var (
		sqlDB *sqlx.DB
		err   error
	)
	if cfg.UsePostgres() {
		sqlDB, err = db.OpenPostgres(ctx, cfg.DatabaseURL)
	} else {
		sqlDB, err = db.OpenSQLite(ctx, cfg.DBPath)
	}
	if err != nil {
		return nil, err
	}

	if err := repositories.InitSchema(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return sqlDB, nil
}
