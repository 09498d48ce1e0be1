package services

import (
	"context"
	"errors"
	"fmt"
	"fuel-route-service/internal/ports"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultGeocodeInterval keeps bulk geocoding under 100 requests per minute.
const DefaultGeocodeInterval = 650 * time.Millisecond

type GeocodeStationsRequest struct {
	// Maximum number of stations to attempt. 0 means all.
	Limit    int
	DryRun   bool
	Interval time.Duration
	Logger   *zap.Logger
}

type GeocodeStationsResult struct {
	Total     int
	Located   int
	Missing   int
	Attempted int
	Geocoded  int
	Failed    int
}

// GeocodeStations fills in coordinates for stations that lack them.
//
// Requests are spaced by req.Interval. A failed lookup is logged and counted
// and the batch moves on; only context cancellation or a catalog error stops
// it early. The index must be rebuilt afterwards to pick up new locations.
func GeocodeStations(
	ctx context.Context,
	req GeocodeStationsRequest,
	store ports.StationStore,
	geocoder ports.Geocoder,
) (GeocodeStationsResult, error) {
	var res GeocodeStationsResult

	logger := req.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	counts, err := store.CountStations(ctx)
	if err != nil {
		return res, fmt.Errorf("geocode stations: count stations: %w", err)
	}
	res.Total = counts.Total
	res.Located = counts.Located
	res.Missing = counts.Missing()

	logger.Info("station coordinates",
		zap.Int("total", res.Total),
		zap.Int("located", res.Located),
		zap.Int("missing", res.Missing),
	)

	if res.Missing == 0 || req.DryRun {
		return res, nil
	}

	pending, err := store.ListStationsMissingLocation(ctx, req.Limit)
	if err != nil {
		return res, fmt.Errorf("geocode stations: list missing: %w", err)
	}

	interval := req.Interval
	if interval <= 0 {
		interval = DefaultGeocodeInterval
	}
	limiter := rate.NewLimiter(rate.Every(interval), 1)

	for _, s := range pending {
		if err := limiter.Wait(ctx); err != nil {
			return res, fmt.Errorf("geocode stations: wait: %w", err)
		}

		res.Attempted++
		query := s.GeocodeQuery()

		c, err := geocoder.Geocode(ctx, query)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return res, fmt.Errorf("geocode stations: %w", err)
			}
			res.Failed++
			logger.Warn("no geocode result", zap.Int64("station_id", s.ID), zap.String("address", query), zap.Error(err))
			continue
		}

		if err := store.UpdateStationLocation(ctx, s.ID, c); err != nil {
			return res, fmt.Errorf("geocode stations: update station_id=%d: %w", s.ID, err)
		}
		res.Geocoded++

		logger.Info("geocoded station",
			zap.Int("done", res.Geocoded),
			zap.String("name", s.Name),
			zap.Float64("lat", c.Lat),
			zap.Float64("lon", c.Lon),
		)
	}

	return res, nil
}
