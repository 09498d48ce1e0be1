package services

import (
	"context"
	"errors"
	"fuel-route-service/internal/adapters/repositories"
	"fuel-route-service/internal/adapters/routing"
	"fuel-route-service/internal/domain"
	"fuel-route-service/internal/spatial"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func equatorRoute() *domain.Route {
	points := equatorLine(11, 0.1)
	profile := CumulativeDistances(points)
	return &domain.Route{Points: points, TotalKm: profile[len(profile)-1]}
}

func TestPlanFuelStops(t *testing.T) {
	catalog := repositories.NewMemoryStationRepository(
		station(1, 0.05, 0.1, "3.40"),
		station(2, -0.05, 0.2, "3.10"),
		station(3, 0.05, 0.8, "3.30"),
		station(4, 0.0, 0.9, "3.60"),
		station(5, 4, 4, "1.99"),
	)
	routes := routing.NewMockRouteProvider([]routing.MockRoute{
		{From: "Dallas, TX", To: "Houston, TX", Route: equatorRoute()},
	})
	index := spatial.NewIndex(catalog, nil, nil)

	req := PlanFuelStopsRequest{
		Origin:      "  Dallas, TX ",
		Destination: "Houston, TX",
		RangeKm:     60,
	}

	plan, err := PlanFuelStops(context.Background(), req, routes, index, catalog)
	require.NoError(t, err)

	assert.True(t, index.IsReady())
	assert.Len(t, plan.Route.Points, 11)
	// ceil(111.2 / 60) = 2 stops, one per half.
	assert.Equal(t, []int64{2, 3}, stopIDs(plan.Stops))
}

func TestPlanFuelStopsMaxStopsOverride(t *testing.T) {
	catalog := repositories.NewMemoryStationRepository(
		station(1, 0, 0.1, "3.40"),
		station(2, 0, 0.5, "3.10"),
		station(3, 0, 0.9, "3.30"),
	)
	routes := routing.NewMockRouteProvider([]routing.MockRoute{
		{From: "A", To: "B", Route: equatorRoute()},
	})

	plan, err := PlanFuelStops(context.Background(), PlanFuelStopsRequest{
		Origin:      "A",
		Destination: "B",
		RangeKm:     10,
		MaxStops:    1,
	}, routes, spatial.NewIndex(catalog, nil, nil), catalog)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, stopIDs(plan.Stops))
}

func TestPlanFuelStopsRequiresEndpoints(t *testing.T) {
	catalog := repositories.NewMemoryStationRepository()
	routes := routing.NewMockRouteProvider(nil)

	_, err := PlanFuelStops(context.Background(), PlanFuelStopsRequest{Origin: "A", Destination: "   "},
		routes, spatial.NewIndex(catalog, nil, nil), catalog)
	assert.ErrorIs(t, err, ErrInvalidPlanRequest)
}

func TestPlanFuelStopsRouteErrors(t *testing.T) {
	catalog := repositories.NewMemoryStationRepository()
	routes := routing.NewMockRouteProvider([]routing.MockRoute{
		{From: "A", To: "B", Err: errors.Join(errors.New("upstream 503"), domain.ErrRouting)},
	})
	index := spatial.NewIndex(catalog, nil, nil)

	_, err := PlanFuelStops(context.Background(), PlanFuelStopsRequest{Origin: "A", Destination: "B"},
		routes, index, catalog)
	assert.ErrorIs(t, err, domain.ErrRouting)

	_, err = PlanFuelStops(context.Background(), PlanFuelStopsRequest{Origin: "A", Destination: "nowhere"},
		routes, index, catalog)
	assert.ErrorIs(t, err, domain.ErrAddressResolution)

	assert.False(t, index.IsReady())
}

func TestPlanFuelStopsNoRouteAvailable(t *testing.T) {
	catalog := repositories.NewMemoryStationRepository(station(1, 0, 0, "3.00"))
	routes := routing.NewMockRouteProvider([]routing.MockRoute{{From: "A", To: "B"}})
	index := spatial.NewIndex(catalog, nil, nil)

	var plan *domain.StopPlan
	require.NotPanics(t, func() {
		var err error
		plan, err = PlanFuelStops(context.Background(), PlanFuelStopsRequest{Origin: "A", Destination: "B"},
			routes, index, catalog)
		require.NoError(t, err)
	})
	assert.Empty(t, plan.Route.Points)
	assert.Zero(t, plan.Route.TotalKm)
	assert.NotNil(t, plan.Stops)
	assert.Empty(t, plan.Stops)
	assert.False(t, index.IsReady())
}

func TestPlanFuelStopsEmptyRoute(t *testing.T) {
	catalog := repositories.NewMemoryStationRepository(station(1, 0, 0, "3.00"))
	routes := routing.NewMockRouteProvider([]routing.MockRoute{
		{From: "A", To: "A", Route: &domain.Route{}},
	})
	index := spatial.NewIndex(catalog, nil, nil)

	plan, err := PlanFuelStops(context.Background(), PlanFuelStopsRequest{Origin: "A", Destination: "A"},
		routes, index, catalog)
	require.NoError(t, err)
	assert.Empty(t, plan.Stops)
	assert.NotNil(t, plan.Stops)
	assert.False(t, index.IsReady())
}

func TestPlanFuelStopsIndexUnavailable(t *testing.T) {
	routes := routing.NewMockRouteProvider([]routing.MockRoute{
		{From: "A", To: "B", Route: equatorRoute()},
	})

	_, err := PlanFuelStops(context.Background(), PlanFuelStopsRequest{Origin: "A", Destination: "B"},
		routes, spatial.NewIndex(failingCatalog{}, nil, nil), failingCatalog{})
	assert.ErrorIs(t, err, spatial.ErrIndexNotBuilt)
	assert.Contains(t, err.Error(), "catalog offline")
}
