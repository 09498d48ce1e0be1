package ports

import (
	"context"
	"fuel-route-service/internal/domain"
)

// Contract for resolving a free-text address to coordinates.
type Geocoder interface {
	// Errors wrap domain.ErrAddressResolution when the address has no match.
	Geocode(ctx context.Context, address string) (domain.Coordinates, error)
}
