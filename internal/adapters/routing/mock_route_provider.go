package routing

import (
	"context"
	"fmt"
	"fuel-route-service/internal/domain"
)

type MockRoute struct {
	From, To string
	Route    *domain.Route
	Err      error
}

// MockRouteProvider serves canned routes keyed by origin and destination.
type MockRouteProvider struct {
	m map[string]MockRoute
}

func NewMockRouteProvider(routes []MockRoute) *MockRouteProvider {
	m := make(map[string]MockRoute, len(routes))
	for _, r := range routes {
		m[r.From+"|"+r.To] = r
	}
	return &MockRouteProvider{m: m}
}

func (p *MockRouteProvider) GetRoute(ctx context.Context, origin, destination string) (*domain.Route, error) {
	r, ok := p.m[origin+"|"+destination]
	if !ok {
		return nil, fmt.Errorf("mock route %q -> %q: %w", origin, destination, domain.ErrAddressResolution)
	}
	if r.Err != nil {
		return nil, r.Err
	}

	return r.Route, nil
}
