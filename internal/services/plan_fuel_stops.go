package services

import (
	"context"
	"errors"
	"fmt"
	"fuel-route-service/internal/domain"
	"fuel-route-service/internal/platform/obs"
	"fuel-route-service/internal/ports"
	"fuel-route-service/internal/spatial"
	"math"
	"strings"
)

const (
	// DefaultVehicleRangeKm is 500 miles.
	DefaultVehicleRangeKm  = 804.672
	DefaultSearchRadiusDeg = 0.3
	DefaultMaxQueries      = 200
)

var ErrInvalidPlanRequest = errors.New("invalid plan request")

// SnapshotSource hands out the live station snapshot, building it on first use.
type SnapshotSource interface {
	EnsureBuilt(ctx context.Context) (*spatial.Snapshot, error)
}

type PlanFuelStopsRequest struct {
	Origin      string
	Destination string
	RangeKm     float64
	RadiusDeg   float64
	MaxQueries  int
	MaxStops    int
}

// PlanFuelStops routes origin to destination and picks refuelling stops along it.
//
// A single snapshot is pinned for the whole request so a concurrent rebuild
// cannot mix two catalog generations into one plan.
func PlanFuelStops(
	ctx context.Context,
	req PlanFuelStopsRequest,
	routes ports.RouteProvider,
	index SnapshotSource,
	catalog ports.StationRepository,
) (_ *domain.StopPlan, err error) {
	defer obs.Time(ctx, "plan.FuelStops")(&err)

	origin := strings.TrimSpace(req.Origin)
	destination := strings.TrimSpace(req.Destination)
	if origin == "" || destination == "" {
		return nil, fmt.Errorf("plan fuel stops: origin and destination are required: %w", ErrInvalidPlanRequest)
	}

	rangeKm := req.RangeKm
	if rangeKm <= 0 {
		rangeKm = DefaultVehicleRangeKm
	}
	radiusDeg := req.RadiusDeg
	if radiusDeg <= 0 {
		radiusDeg = DefaultSearchRadiusDeg
	}
	maxQueries := req.MaxQueries
	if maxQueries <= 0 {
		maxQueries = DefaultMaxQueries
	}

	route, err := routes.GetRoute(ctx, origin, destination)
	if err != nil {
		return nil, fmt.Errorf("plan fuel stops: get route %q -> %q: %w", origin, destination, err)
	}

	if route.IsEmpty() {
		plan := &domain.StopPlan{Stops: []domain.FuelStop{}}
		if route != nil {
			plan.Route = *route
		}
		return plan, nil
	}
	plan := &domain.StopPlan{Route: *route, Stops: []domain.FuelStop{}}

	maxStops := req.MaxStops
	if maxStops <= 0 {
		maxStops = max(1, int(math.Ceil(route.TotalKm/rangeKm)))
	}

	snap, err := index.EnsureBuilt(ctx)
	if err != nil {
		return nil, fmt.Errorf("plan fuel stops: %w: %w", spatial.ErrIndexNotBuilt, err)
	}

	profile := CumulativeDistances(route.Points)

	candidates, err := GatherCandidates(ctx, route.Points, radiusDeg, maxQueries, snap, catalog)
	if err != nil {
		return nil, fmt.Errorf("plan fuel stops: %w", err)
	}

	plan.Stops = PlanSegmentStops(candidates, route.Points, profile, route.TotalKm, rangeKm, maxStops)

	return plan, nil
}
