package routing

import (
	"context"
	"encoding/json"
	"fuel-route-service/internal/domain"
	"fuel-route-service/internal/ports"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-polyline"
)

type memGeocodeCache struct {
	mu sync.Mutex
	m  map[string]domain.Coordinates
}

func (c *memGeocodeCache) GetMany(ctx context.Context, addresses []string) (map[string]domain.Coordinates, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]domain.Coordinates)
	for _, a := range addresses {
		if v, ok := c.m[a]; ok {
			out[a] = v
		}
	}
	return out, nil
}

func (c *memGeocodeCache) PutMany(ctx context.Context, results map[string]domain.Coordinates) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k, v := range results {
		c.m[k] = v
	}
	return nil
}

type memRouteCache struct {
	mu sync.Mutex
	m  map[string]*domain.Route
}

func (c *memRouteCache) Get(ctx context.Context, origin, destination string) (*domain.Route, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.m[origin+"|"+destination], nil
}

func (c *memRouteCache) Put(ctx context.Context, origin, destination string, route *domain.Route) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[origin+"|"+destination] = route
	return nil
}

type fakeORS struct {
	places         map[string][2]float64 // text -> lon, lat
	geometry       [][]float64           // lat, lon
	distanceMeters float64

	geocodeCalls    atomic.Int32
	directionsCalls atomic.Int32
	failDirections  atomic.Int32 // respond 503 this many times first
	directionsCode  int
	lastCoordinates [][]float64
}

func (f *fakeORS) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/geocode/search", func(w http.ResponseWriter, r *http.Request) {
		f.geocodeCalls.Add(1)
		assert.Equal(t, "test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "USA", r.URL.Query().Get("boundary.country"))

		type feature struct {
			Geometry struct {
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
		}
		res := struct {
			Features []feature `json:"features"`
		}{Features: []feature{}}

		if p, ok := f.places[r.URL.Query().Get("text")]; ok {
			var ft feature
			ft.Geometry.Coordinates = []float64{p[0], p[1]}
			res.Features = append(res.Features, ft)
		}
		_ = json.NewEncoder(w).Encode(res)
	})

	mux.HandleFunc("/v2/directions/driving-car", func(w http.ResponseWriter, r *http.Request) {
		f.directionsCalls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)

		if f.failDirections.Load() > 0 {
			f.failDirections.Add(-1)
			http.Error(w, `{"error":"busy"}`, http.StatusServiceUnavailable)
			return
		}
		if f.directionsCode != 0 {
			http.Error(w, `{"error":{"code":2010}}`, f.directionsCode)
			return
		}

		var body directionsRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		f.lastCoordinates = body.Coordinates

		_ = json.NewEncoder(w).Encode(map[string]any{
			"routes": []map[string]any{{
				"geometry": string(polyline.EncodeCoords(f.geometry)),
				"summary":  map[string]any{"distance": f.distanceMeters},
			}},
		})
	})

	return mux
}

func newFakeORS() *fakeORS {
	return &fakeORS{
		places: map[string][2]float64{
			"Dallas, TX":  {-96.797, 32.7767},
			"Houston, TX": {-95.3698, 29.7604},
		},
		geometry:       [][]float64{{32.7767, -96.797}, {31.5, -96.1}, {29.7604, -95.3698}},
		distanceMeters: 385123,
	}
}

func newTestClient(t *testing.T, srv *httptest.Server, gc *memGeocodeCache, rc *memRouteCache) *ORSClient {
	t.Helper()

	// Avoid typed-nil interfaces so the client sees a missing cache.
	var geocodeCache ports.GeocodeCache
	if gc != nil {
		geocodeCache = gc
	}
	var routeCache ports.RouteCache
	if rc != nil {
		routeCache = rc
	}

	c, err := NewORSClient(ORSConfig{APIKey: "test-key", BaseURL: srv.URL + "/"}, geocodeCache, routeCache)
	require.NoError(t, err)
	c.backoff = time.Millisecond
	return c
}

func TestORSClientGetRoute(t *testing.T) {
	f := newFakeORS()
	srv := httptest.NewServer(f.handler(t))
	defer srv.Close()

	gc := &memGeocodeCache{m: map[string]domain.Coordinates{}}
	rc := &memRouteCache{m: map[string]*domain.Route{}}
	client := newTestClient(t, srv, gc, rc)

	route, err := client.GetRoute(context.Background(), " Dallas,   TX", "Houston, TX")
	require.NoError(t, err)

	require.Len(t, route.Points, 3)
	assert.InDelta(t, 32.7767, route.Points[0].Lat, 1e-5)
	assert.InDelta(t, -96.797, route.Points[0].Lon, 1e-5)
	assert.InDelta(t, 29.7604, route.Points[2].Lat, 1e-5)
	assert.InDelta(t, 385.123, route.TotalKm, 1e-9)

	// ORS wants [lon, lat].
	assert.Equal(t, [][]float64{{-96.797, 32.7767}, {-95.3698, 29.7604}}, f.lastCoordinates)
	assert.Contains(t, gc.m, "Dallas, TX")

	_, err = client.GetRoute(context.Background(), "Dallas, TX", "Houston, TX")
	require.NoError(t, err)
	assert.EqualValues(t, 1, f.directionsCalls.Load())
	assert.EqualValues(t, 2, f.geocodeCalls.Load())
}

func TestORSClientGeocodeUsesCache(t *testing.T) {
	f := newFakeORS()
	srv := httptest.NewServer(f.handler(t))
	defer srv.Close()

	gc := &memGeocodeCache{m: map[string]domain.Coordinates{"Austin, TX": {Lat: 30.2672, Lon: -97.7431}}}
	client := newTestClient(t, srv, gc, nil)

	c, err := client.Geocode(context.Background(), "Austin,  TX ")
	require.NoError(t, err)
	assert.Equal(t, domain.Coordinates{Lat: 30.2672, Lon: -97.7431}, c)
	assert.Zero(t, f.geocodeCalls.Load())
}

func TestORSClientUnknownAddress(t *testing.T) {
	f := newFakeORS()
	srv := httptest.NewServer(f.handler(t))
	defer srv.Close()

	client := newTestClient(t, srv, nil, nil)

	_, err := client.GetRoute(context.Background(), "Atlantis", "Houston, TX")
	assert.ErrorIs(t, err, domain.ErrAddressResolution)
	assert.Zero(t, f.directionsCalls.Load())

	_, err = client.GetRoute(context.Background(), "  ", "Houston, TX")
	assert.ErrorIs(t, err, domain.ErrAddressResolution)
}

func TestORSClientRetriesTransientFailures(t *testing.T) {
	f := newFakeORS()
	f.failDirections.Store(2)
	srv := httptest.NewServer(f.handler(t))
	defer srv.Close()

	client := newTestClient(t, srv, nil, nil)

	route, err := client.GetRoute(context.Background(), "Dallas, TX", "Houston, TX")
	require.NoError(t, err)
	assert.Len(t, route.Points, 3)
	assert.EqualValues(t, 3, f.directionsCalls.Load())
}

func TestORSClientGivesUpAfterMaxAttempts(t *testing.T) {
	f := newFakeORS()
	f.failDirections.Store(100)
	srv := httptest.NewServer(f.handler(t))
	defer srv.Close()

	client := newTestClient(t, srv, nil, nil)

	_, err := client.GetRoute(context.Background(), "Dallas, TX", "Houston, TX")
	assert.ErrorIs(t, err, domain.ErrRouting)
	assert.EqualValues(t, maxAttempts, f.directionsCalls.Load())

	var he *httpStatusError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusServiceUnavailable, he.Code)
}

func TestORSClientDoesNotRetryClientErrors(t *testing.T) {
	f := newFakeORS()
	f.directionsCode = http.StatusNotFound
	srv := httptest.NewServer(f.handler(t))
	defer srv.Close()

	client := newTestClient(t, srv, nil, nil)

	_, err := client.GetRoute(context.Background(), "Dallas, TX", "Houston, TX")
	assert.ErrorIs(t, err, domain.ErrRouting)
	assert.EqualValues(t, 1, f.directionsCalls.Load())
}

func TestNewORSClientRequiresKey(t *testing.T) {
	_, err := NewORSClient(ORSConfig{}, nil, nil)
	assert.Error(t, err)
}
