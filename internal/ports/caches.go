package ports

import (
	"context"
	"fuel-route-service/internal/domain"
)

// Persistent address -> coordinate cache.
type GeocodeCache interface {
	GetMany(ctx context.Context, addresses []string) (map[string]domain.Coordinates, error)
	PutMany(ctx context.Context, results map[string]domain.Coordinates) error
}

// Cache of routes keyed by normalized origin and destination.
type RouteCache interface {
	// Return the cached route, or nil when absent.
	Get(ctx context.Context, origin, destination string) (*domain.Route, error)
	Put(ctx context.Context, origin, destination string, route *domain.Route) error
}
