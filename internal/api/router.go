package api

import (
	"fuel-route-service/internal/api/handlers"
	"fuel-route-service/internal/platform/metrics"
	"fuel-route-service/internal/ports"
	"fuel-route-service/internal/spatial"
	"net/http"

	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/zap"
)

// Deps carries everything the HTTP layer needs. Handlers only see ports.
type Deps struct {
	Routes  ports.RouteProvider
	Catalog ports.StationRepository
	Index   *spatial.Index
	Metrics *metrics.Collector
	Logger  *zap.Logger

	VehicleRangeKm  float64
	SearchRadiusDeg float64
	MaxQueries      int
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()

	healthHandler := &handlers.HealthHandler{Index: d.Index}
	planHandler := &handlers.PlanHandler{
		Routes:          d.Routes,
		Index:           d.Index,
		Catalog:         d.Catalog,
		Metrics:         d.Metrics,
		VehicleRangeKm:  d.VehicleRangeKm,
		SearchRadiusDeg: d.SearchRadiusDeg,
		MaxQueries:      d.MaxQueries,
	}
	stationHandler := &handlers.StationHandler{Index: d.Index, Catalog: d.Catalog}
	adminHandler := &handlers.AdminHandler{Index: d.Index}

	mux.HandleFunc("/health", healthHandler.Health)
	mux.HandleFunc("/routes/plan", planHandler.Plan)
	mux.HandleFunc("/stations/nearby", stationHandler.Nearby)
	mux.HandleFunc("/admin/index/rebuild", adminHandler.RebuildIndex)
	if d.Metrics != nil {
		mux.Handle("/metrics", d.Metrics.Handler())
	}

	var h http.Handler = mux
	h = gzhttp.GzipHandler(h)
	h = loggingMiddleware(d.Logger)(h)
	h = requestIDMiddleware(h)
	return h
}
