package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"fuel-route-service/internal/adapters/repositories"
	"fuel-route-service/internal/adapters/routing"
	"fuel-route-service/internal/domain"
	"fuel-route-service/internal/platform/metrics"
	"fuel-route-service/internal/spatial"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func station(id int64, lat, lon float64, price string) *domain.FuelStation {
	return &domain.FuelStation{
		ID:       id,
		Name:     fmt.Sprintf("Stop %d", id),
		Address:  fmt.Sprintf("%d Main St", id),
		City:     "Dallas",
		State:    "TX",
		Price:    decimal.RequireFromString(price),
		Location: &domain.Coordinates{Lat: lat, Lon: lon},
	}
}

// equatorRoute is eleven vertices 0.1 degrees apart, roughly 111 km long.
func equatorRoute() *domain.Route {
	points := make([]domain.Coordinates, 11)
	for i := range points {
		points[i] = domain.Coordinates{Lat: 0, Lon: float64(i) * 0.1}
	}
	return &domain.Route{Points: points, TotalKm: 111.19}
}

type failingCatalog struct {
	*repositories.MemoryStationRepository
}

func (failingCatalog) ListLocatedStations(context.Context) ([]*domain.FuelStation, error) {
	return nil, errors.New("catalog offline")
}

type testServer struct {
	handler   http.Handler
	index     *spatial.Index
	collector *metrics.Collector
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	catalog := repositories.NewMemoryStationRepository(
		station(1, 0.05, 0.1, "3.40"),
		station(2, -0.05, 0.2, "3.10"),
		station(3, 0.05, 0.8, "3.30"),
		station(4, 0.0, 0.9, "3.60"),
		station(5, 4, 4, "1.99"),
	)
	routes := routing.NewMockRouteProvider([]routing.MockRoute{
		{From: "Dallas, TX", To: "Houston, TX", Route: equatorRoute()},
		{From: "Dallas, TX", To: "Nowhere", Err: fmt.Errorf("ors directions: %w", domain.ErrRouting)},
	})

	collector, err := metrics.NewCollector(prometheus.NewRegistry())
	require.NoError(t, err)

	index := spatial.NewIndex(catalog, nil, collector)

	return &testServer{
		handler: NewRouter(Deps{
			Routes:          routes,
			Catalog:         catalog,
			Index:           index,
			Metrics:         collector,
			VehicleRangeKm:  60,
			SearchRadiusDeg: 0.3,
			MaxQueries:      200,
		}),
		index:     index,
		collector: collector,
	}
}

func (s *testServer) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

type planBody struct {
	Polyline  [][2]float64 `json:"polyline"`
	TotalKm   float64      `json:"total_km"`
	FuelStops []struct {
		ID      int64   `json:"id"`
		Name    string  `json:"name"`
		Price   float64 `json:"price"`
		AlongKm float64 `json:"along_km"`
	} `json:"fuel_stops"`
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func errorMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	return decodeBody[map[string]string](t, rr)["error"]
}

func TestHealthReportsIndexReadiness(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody[map[string]any](t, rr)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["index_ready"])
	assert.NotContains(t, body, "index_built_at")

	_, err := s.index.Rebuild(context.Background())
	require.NoError(t, err)

	body = decodeBody[map[string]any](t, s.do(t, http.MethodGet, "/health", ""))
	assert.Equal(t, true, body["index_ready"])
	assert.Contains(t, body, "index_built_at")
}

func TestPlanPost(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodPost, "/routes/plan", `{"origin":"Dallas, TX","destination":"Houston, TX"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	body := decodeBody[planBody](t, rr)
	assert.Len(t, body.Polyline, 11)
	assert.Equal(t, [2]float64{0, 0.5}, body.Polyline[5])
	assert.InDelta(t, 111.19, body.TotalKm, 1e-9)

	require.Len(t, body.FuelStops, 2)
	assert.Equal(t, int64(2), body.FuelStops[0].ID)
	assert.Equal(t, 3.10, body.FuelStops[0].Price)
	assert.Equal(t, "Stop 2", body.FuelStops[0].Name)
	assert.Equal(t, int64(3), body.FuelStops[1].ID)
	assert.Less(t, body.FuelStops[0].AlongKm, body.FuelStops[1].AlongKm)

	assert.Equal(t, float64(1), testutil.ToFloat64(s.collector.IndexRebuilds.WithLabelValues("ok")))
}

func TestPlanGetWithAliasesAndOverrides(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodGet,
		"/routes/plan?origin_address=Dallas,+TX&destination_address=Houston,+TX&vehicle_range_km=500&max_stops=0", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	// One segment covers the whole route, so the cheapest nearby station wins.
	body := decodeBody[planBody](t, rr)
	require.Len(t, body.FuelStops, 1)
	assert.Equal(t, int64(2), body.FuelStops[0].ID)

	rr = s.do(t, http.MethodGet, "/routes/plan?origin=Dallas,+TX&destination=Houston,+TX&vehicle_range_km=25&max_stops=4", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Len(t, decodeBody[planBody](t, rr).FuelStops, 4)
}

func TestPlanErrors(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		target  string
		body    string
		status  int
		message string
	}{
		{
			name:    "missing destination",
			method:  http.MethodPost,
			target:  "/routes/plan",
			body:    `{"origin":"Dallas, TX","destination":"   "}`,
			status:  http.StatusBadRequest,
			message: "origin and destination required",
		},
		{
			name:    "unknown field",
			method:  http.MethodPost,
			target:  "/routes/plan",
			body:    `{"origin":"Dallas, TX","destination":"Houston, TX","fuel":"diesel"}`,
			status:  http.StatusBadRequest,
			message: "invalid json body",
		},
		{
			name:    "trailing object",
			method:  http.MethodPost,
			target:  "/routes/plan",
			body:    `{"origin":"Dallas, TX","destination":"Houston, TX"}{}`,
			status:  http.StatusBadRequest,
			message: "body must contain only one JSON object",
		},
		{
			name:    "max stops out of range",
			method:  http.MethodPost,
			target:  "/routes/plan",
			body:    `{"origin":"Dallas, TX","destination":"Houston, TX","max_stops":51}`,
			status:  http.StatusBadRequest,
			message: "invalid MaxStops: must satisfy lte=50",
		},
		{
			name:    "bad query number",
			method:  http.MethodGet,
			target:  "/routes/plan?origin=a&destination=b&max_stops=two",
			status:  http.StatusBadRequest,
			message: "max_stops must be an integer",
		},
		{
			name:   "unresolvable address",
			method: http.MethodGet,
			target: "/routes/plan?origin=Atlantis&destination=Houston,+TX",
			status: http.StatusBadRequest,
		},
		{
			name:    "routing failure",
			method:  http.MethodGet,
			target:  "/routes/plan?origin=Dallas,+TX&destination=Nowhere",
			status:  http.StatusBadGateway,
			message: "routing failed",
		},
		{
			name:    "wrong method",
			method:  http.MethodPut,
			target:  "/routes/plan",
			status:  http.StatusMethodNotAllowed,
			message: "method not allowed",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(t)

			rr := s.do(t, tc.method, tc.target, tc.body)
			require.Equal(t, tc.status, rr.Code, rr.Body.String())

			msg := errorMessage(t, rr)
			if tc.message != "" {
				assert.Equal(t, tc.message, msg)
			} else {
				assert.NotEmpty(t, msg)
			}
		})
	}
}

func TestPlanMethodNotAllowedSetsAllow(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodDelete, "/routes/plan", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, "GET, POST", rr.Header().Get("Allow"))
}

func TestPlanIndexUnavailable(t *testing.T) {
	catalog := failingCatalog{repositories.NewMemoryStationRepository()}
	routes := routing.NewMockRouteProvider([]routing.MockRoute{
		{From: "Dallas, TX", To: "Houston, TX", Route: equatorRoute()},
	})
	h := NewRouter(Deps{Routes: routes, Catalog: catalog, Index: spatial.NewIndex(catalog, nil, nil)})

	req := httptest.NewRequest(http.MethodGet, "/routes/plan?origin=Dallas,+TX&destination=Houston,+TX", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "station index unavailable", errorMessage(t, rr))
}

type nearbyBody struct {
	Stations []struct {
		ID    int64   `json:"id"`
		State string  `json:"state"`
		Price float64 `json:"price"`
	} `json:"stations"`
}

func TestNearbyStations(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodGet, "/stations/nearby?lat=0&lon=0.1&radius_deg=0.1", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	body := decodeBody[nearbyBody](t, rr)
	require.Len(t, body.Stations, 1)
	assert.Equal(t, int64(1), body.Stations[0].ID)
	assert.Equal(t, "TX", body.Stations[0].State)
	assert.Equal(t, 3.40, body.Stations[0].Price)

	rr = s.do(t, http.MethodGet, "/stations/nearby?lat=0&lon=0.1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"id":2`)
}

func TestNearbyStationsValidation(t *testing.T) {
	s := newTestServer(t)

	for target, msg := range map[string]string{
		"/stations/nearby?lon=1":                    "lat is required",
		"/stations/nearby?lat=x&lon=1":              "lat must be a number",
		"/stations/nearby?lat=91&lon=1":             "invalid Lat: must satisfy lte=90",
		"/stations/nearby?lat=0&lon=0&radius_deg=0": "invalid RadiusDeg: must satisfy gt=0",
	} {
		rr := s.do(t, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code, target)
		assert.Equal(t, msg, errorMessage(t, rr), target)
	}
}

func TestAdminRebuildIndex(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodGet, "/admin/index/rebuild", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, "POST", rr.Header().Get("Allow"))

	rr = s.do(t, http.MethodPost, "/admin/index/rebuild", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body := decodeBody[map[string]any](t, rr)
	assert.Equal(t, float64(5), body["stations"])
	assert.NotEmpty(t, body["built_at"])
	assert.True(t, s.index.IsReady())
	assert.Equal(t, float64(5), testutil.ToFloat64(s.collector.IndexStations))
}

func TestRequestIDPropagation(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodGet, "/health", "")
	assert.Len(t, rr.Header().Get("X-Request-ID"), 36)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "trace-123")
	rr = httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	assert.Equal(t, "trace-123", rr.Header().Get("X-Request-ID"))
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)

	s.do(t, http.MethodGet, "/routes/plan?origin=Dallas,+TX&destination=Houston,+TX", "")
	s.do(t, http.MethodGet, "/routes/plan?origin=Dallas,+TX&destination=Nowhere", "")

	rr := s.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	for _, metric := range []string{
		`fuel_plan_duration_seconds_count{outcome="ok"} 1`,
		`fuel_plan_duration_seconds_count{outcome="error"} 1`,
		"fuel_plan_stops",
		"station_index_rebuilds_total",
	} {
		assert.Contains(t, rr.Body.String(), metric)
	}
}

func TestResponsesAreGzipped(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "gzip", rr.Header().Get("Content-Encoding"))
}
