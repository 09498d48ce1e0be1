package routing

import (
	"context"
	"errors"
	"fmt"
	"fuel-route-service/internal/domain"
	"fuel-route-service/internal/platform/obs"
	"fuel-route-service/internal/ports"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultORSBaseURL = "https://api.openrouteservice.org"
	DefaultORSProfile = "driving-car"
	DefaultORSCountry = "USA"
)

type ORSConfig struct {
	APIKey  string
	BaseURL string
	Profile string
	// Country restricts geocoding results (boundary.country).
	Country string
	Timeout time.Duration
	Logger  *zap.Logger
}

// ORSClient implements RouteProvider and Geocoder using OpenRouteService.
//
// It coordinates:
//   - Address normalization
//   - Persistent geocode caching
//   - Route caching
//   - External API calls with retry/backoff
//
// The client is safe for concurrent use. Both caches are optional.
type ORSClient struct {
	session      *http.Client
	apiKey       string
	baseURL      string
	profile      string
	country      string
	geocodeCache ports.GeocodeCache
	routeCache   ports.RouteCache
	logger       *zap.Logger
	// First retry delay; zero means initialBackoff.
	backoff time.Duration
}

func NewORSClient(
	cfg ORSConfig,
	geocodeCache ports.GeocodeCache,
	routeCache ports.RouteCache,
) (*ORSClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("ORS api key is empty")
	}

	c := &ORSClient{
		session:      &http.Client{Timeout: 15 * time.Second},
		apiKey:       cfg.APIKey,
		baseURL:      DefaultORSBaseURL,
		profile:      DefaultORSProfile,
		country:      DefaultORSCountry,
		geocodeCache: geocodeCache,
		routeCache:   routeCache,
		logger:       cfg.Logger,
	}
	if cfg.BaseURL != "" {
		c.baseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.Profile != "" {
		c.profile = cfg.Profile
	}
	if cfg.Country != "" {
		c.country = cfg.Country
	}
	if cfg.Timeout > 0 {
		c.session.Timeout = cfg.Timeout
	}
	if c.logger == nil {
		c.logger = zap.L()
	}

	return c, nil
}

// normalize ensures consistent cache keys by collapsing whitespace.
func (o *ORSClient) normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Geocode resolves a free-text address, consulting the geocode cache first.
func (o *ORSClient) Geocode(ctx context.Context, address string) (_ domain.Coordinates, err error) {
	defer obs.Time(ctx, "ors.Geocode")(&err)

	norm := o.normalize(address)
	if norm == "" {
		return domain.Coordinates{}, fmt.Errorf("geocode: address must be non-empty: %w", domain.ErrAddressResolution)
	}

	if o.geocodeCache != nil {
		hits, err := o.geocodeCache.GetMany(ctx, []string{norm})
		if err != nil {
			return domain.Coordinates{}, fmt.Errorf("ORS get geocode cache: %w", err)
		}
		if c, ok := hits[norm]; ok {
			return c, nil
		}
	}

	c, err := o.geocodeOne(ctx, norm)
	if err != nil {
		return domain.Coordinates{}, err
	}

	if o.geocodeCache != nil {
		if err := o.geocodeCache.PutMany(ctx, map[string]domain.Coordinates{norm: c}); err != nil {
			o.logger.Warn("geocode cache write failed", zap.Error(err))
		}
	}

	return c, nil
}

// GetRoute geocodes both endpoints and fetches the driving route between them.
func (o *ORSClient) GetRoute(ctx context.Context, origin, destination string) (_ *domain.Route, err error) {
	defer obs.Time(ctx, "ors.GetRoute")(&err)

	normOrigin := o.normalize(origin)
	normDestination := o.normalize(destination)
	if normOrigin == "" || normDestination == "" {
		return nil, fmt.Errorf("get route: origin and destination must be non-empty: %w", domain.ErrAddressResolution)
	}

	if o.routeCache != nil {
		cached, err := o.routeCache.Get(ctx, normOrigin, normDestination)
		if err != nil {
			return nil, fmt.Errorf("ORS get route cache: %w", err)
		}
		if cached != nil {
			return cached, nil
		}
	}

	originCoord, err := o.Geocode(ctx, normOrigin)
	if err != nil {
		return nil, fmt.Errorf("resolve origin %q: %w", normOrigin, err)
	}
	destinationCoord, err := o.Geocode(ctx, normDestination)
	if err != nil {
		return nil, fmt.Errorf("resolve destination %q: %w", normDestination, err)
	}

	route, err := o.fetchDirections(ctx, originCoord, destinationCoord)
	if err != nil {
		return nil, fmt.Errorf("fetching directions: %w", err)
	}

	if o.routeCache != nil {
		if err := o.routeCache.Put(ctx, normOrigin, normDestination, route); err != nil {
			o.logger.Warn("route cache write failed", zap.Error(err))
		}
	}

	return route, nil
}
