package services

import (
	"context"
	"fmt"
	"fuel-route-service/internal/domain"
	"fuel-route-service/internal/ports"
)

// StationLocator answers radius queries over station coordinates.
type StationLocator interface {
	QueryWithinRadius(lat, lon, radiusDeg float64) []int64
}

// GatherCandidates collects the stations near a route.
//
// The polyline is sampled every max(1, len(points)/maxQueries) points so the
// number of index queries stays bounded for long routes. Station ids are
// deduplicated in first-seen order and resolved through the catalog.
// Stations missing from the catalog, or that no longer have coordinates,
// are dropped.
func GatherCandidates(
	ctx context.Context,
	points []domain.Coordinates,
	radiusDeg float64,
	maxQueries int,
	locator StationLocator,
	catalog ports.StationRepository,
) ([]*domain.FuelStation, error) {
	if len(points) == 0 {
		return []*domain.FuelStation{}, nil
	}

	if locator == nil || catalog == nil {
		return nil, fmt.Errorf("gather candidates: locator and catalog must be non-nil")
	}

	if maxQueries < 1 {
		maxQueries = 1
	}
	step := max(1, len(points)/maxQueries)

	seen := make(map[int64]struct{})
	order := make([]int64, 0)
	for i := 0; i < len(points); i += step {
		p := points[i]
		for _, id := range locator.QueryWithinRadius(p.Lat, p.Lon, radiusDeg) {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			order = append(order, id)
		}
	}

	if len(order) == 0 {
		return []*domain.FuelStation{}, nil
	}

	stations, err := catalog.GetStationsByIDs(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("gather candidates: resolve %d station ids: %w", len(order), err)
	}

	byID := make(map[int64]*domain.FuelStation, len(stations))
	for _, s := range stations {
		byID[s.ID] = s
	}

	out := make([]*domain.FuelStation, 0, len(order))
	for _, id := range order {
		s, ok := byID[id]
		if !ok || !s.HasLocation() {
			continue
		}
		out = append(out, s)
	}

	return out, nil
}
