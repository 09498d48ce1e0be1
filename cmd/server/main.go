package main

import (
	"context"
	"errors"
	"fuel-route-service/internal/adapters/cache"
	"fuel-route-service/internal/adapters/repositories"
	"fuel-route-service/internal/adapters/routing"
	"fuel-route-service/internal/api"
	"fuel-route-service/internal/config"
	"fuel-route-service/internal/platform/db"
	"fuel-route-service/internal/platform/logging"
	"fuel-route-service/internal/platform/metrics"
	"fuel-route-service/internal/ports"
	"fuel-route-service/internal/spatial"
	"log"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// main is the application composition root.
// It wires concrete adapters (SQL catalog, ORS, Redis) behind ports and starts the HTTP server.
func main() {
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

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.RequireORS(); err != nil {
		return err
	}

	sqlDB, err := openCatalog(ctx, cfg)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	repo := repositories.NewSQLStationRepository(sqlDB)

	var routeCache ports.RouteCache
	if cfg.RedisURL != "" {
		rdb, err := db.OpenRedis(ctx, cfg.RedisURL, logger)
		if err != nil {
			return err
		}
		defer rdb.Close()
		routeCache = cache.NewRedisRouteCache(rdb, cfg.RouteCacheTTL)
	} else {
		logger.Info("route cache disabled (REDIS_URL not set)")
	}

	ors, err := routing.NewORSClient(routing.ORSConfig{
		APIKey:  cfg.ORS.APIKey,
		BaseURL: cfg.ORS.BaseURL,
		Profile: cfg.ORS.Profile,
		Country: cfg.ORS.Country,
		Logger:  logger,
	}, cache.NewSQLGeocodeCache(sqlDB), routeCache)
	if err != nil {
		return err
	}

	collector, err := metrics.NewCollector(prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}

	index := spatial.NewIndex(repo, logger, collector)
	// The first plan request retries the build if this one fails.
	if _, err := index.Rebuild(ctx); err != nil {
		logger.Warn("initial station index build failed", zap.Error(err))
	}
	go index.RunRefresher(ctx, cfg.IndexRefreshInterval)

	router := api.NewRouter(api.Deps{
		Routes:          ors,
		Catalog:         repo,
		Index:           index,
		Metrics:         collector,
		Logger:          logger,
		VehicleRangeKm:  cfg.Planner.VehicleRangeKm,
		SearchRadiusDeg: cfg.Planner.SearchRadiusDeg,
		MaxQueries:      cfg.Planner.MaxQueries,
	})

	// Timeouts are tuned for cold-cache route planning (external API latency).
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
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
