package ports

import (
	"context"
	"fuel-route-service/internal/domain"
)

// Contract for retrieving a driving route between two free-text addresses.
type RouteProvider interface {
	// Return the route polyline and total distance. Unresolvable addresses
	// wrap domain.ErrAddressResolution; provider failures wrap domain.ErrRouting.
	GetRoute(ctx context.Context, origin string, destination string) (*domain.Route, error)
}
