package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"fuel-route-service/internal/domain"
	"fuel-route-service/internal/platform/obs"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/twpayne/go-polyline"
)

const routeKeyPrefix = "fuel-route:route:"

// Cached route payload. The geometry is stored as an encoded polyline,
// which is the precision ORS returns it in.
type cachedRoute struct {
	Polyline string  `json:"polyline"`
	TotalKm  float64 `json:"total_km"`
}

// RedisRouteCache caches ORS routes keyed by normalized origin and destination.
type RedisRouteCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisRouteCache(client *redis.Client, ttl time.Duration) *RedisRouteCache {
	return &RedisRouteCache{client: client, ttl: ttl}
}

func routeKey(origin, destination string) string {
	return routeKeyPrefix + origin + "|" + destination
}

// Get returns the cached route or nil when absent.
func (c *RedisRouteCache) Get(ctx context.Context, origin, destination string) (_ *domain.Route, err error) {
	defer obs.Time(ctx, "route.cache.Get")(&err)

	if c.client == nil {
		return nil, errors.New("route cache: client is nil")
	}

	raw, err := c.client.Get(ctx, routeKey(origin, destination)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get route cache: %w", err)
	}

	var cr cachedRoute
	if err := json.Unmarshal(raw, &cr); err != nil {
		return nil, fmt.Errorf("get route cache: decode entry: %w", err)
	}

	coords, _, err := polyline.DecodeCoords([]byte(cr.Polyline))
	if err != nil {
		return nil, fmt.Errorf("get route cache: decode polyline: %w", err)
	}

	points := make([]domain.Coordinates, 0, len(coords))
	for _, p := range coords {
		points = append(points, domain.Coordinates{Lat: p[0], Lon: p[1]})
	}

	return &domain.Route{Points: points, TotalKm: cr.TotalKm}, nil
}

// Put stores the route with the configured TTL. A zero TTL keeps it forever.
func (c *RedisRouteCache) Put(ctx context.Context, origin, destination string, route *domain.Route) error {
	if c.client == nil {
		return errors.New("route cache: client is nil")
	}
	if route == nil {
		return nil
	}

	coords := make([][]float64, 0, len(route.Points))
	for _, p := range route.Points {
		coords = append(coords, []float64{p.Lat, p.Lon})
	}

	raw, err := json.Marshal(cachedRoute{
		Polyline: string(polyline.EncodeCoords(coords)),
		TotalKm:  route.TotalKm,
	})
	if err != nil {
		return fmt.Errorf("put route cache: encode entry: %w", err)
	}

	if err := c.client.Set(ctx, routeKey(origin, destination), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("put route cache: %w", err)
	}

	return nil
}
