package handlers

import (
	"errors"
	"fuel-route-service/internal/api/dto"
	"fuel-route-service/internal/domain"
	"fuel-route-service/internal/platform/metrics"
	"fuel-route-service/internal/ports"
	"fuel-route-service/internal/services"
	"fuel-route-service/internal/spatial"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

type PlanHandler struct {
	Routes  ports.RouteProvider
	Index   services.SnapshotSource
	Catalog ports.StationRepository
	Metrics *metrics.Collector

	// Planner defaults; zero values fall back to the service defaults.
	VehicleRangeKm  float64
	SearchRadiusDeg float64
	MaxQueries      int
}

// Plan routes origin to destination and returns the cheapest fuel stops along it.
// Inputs come from a JSON body (POST) or the query string (GET).
func (h *PlanHandler) Plan(w http.ResponseWriter, r *http.Request) {
	var req dto.PlanRequest

	switch r.Method {
	case http.MethodPost:
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
	case http.MethodGet:
		parsed, err := planRequestFromQuery(r)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		req = parsed
	default:
		methodNotAllowed(w, r, http.MethodGet+", "+http.MethodPost)
		return
	}

	if err := validate.Struct(req); err != nil {
		writeError(w, r, http.StatusBadRequest, validationMessage(err))
		return
	}

	origin := strings.TrimSpace(req.ResolvedOrigin())
	destination := strings.TrimSpace(req.ResolvedDestination())
	if origin == "" || destination == "" {
		writeError(w, r, http.StatusBadRequest, "origin and destination required")
		return
	}

	rangeKm := h.VehicleRangeKm
	if req.VehicleRangeKm > 0 {
		rangeKm = req.VehicleRangeKm
	}

	svcReq := services.PlanFuelStopsRequest{
		Origin:      origin,
		Destination: destination,
		RangeKm:     rangeKm,
		RadiusDeg:   h.SearchRadiusDeg,
		MaxQueries:  h.MaxQueries,
		MaxStops:    req.MaxStops,
	}

	start := time.Now()
	plan, err := services.PlanFuelStops(r.Context(), svcReq, h.Routes, h.Index, h.Catalog)
	if err != nil {
		h.Metrics.ObservePlan(time.Since(start), 0, err)

		status, msg := planErrorStatus(err)
		if status >= http.StatusInternalServerError {
			logger(r).Error("plan fuel stops failed", zap.Int("status", status), zap.Error(err))
		}
		writeError(w, r, status, msg)
		return
	}
	h.Metrics.ObservePlan(time.Since(start), len(plan.Stops), nil)

	res := dto.PlanResponse{
		Polyline:  make([][2]float64, 0, len(plan.Route.Points)),
		TotalKm:   plan.Route.TotalKm,
		FuelStops: make([]dto.FuelStopResponse, 0, len(plan.Stops)),
	}
	for _, p := range plan.Route.Points {
		res.Polyline = append(res.Polyline, p.LatLon())
	}
	for _, s := range plan.Stops {
		res.FuelStops = append(res.FuelStops, dto.FuelStopResponse{
			ID:      s.Station.ID,
			Name:    s.Station.Name,
			Price:   s.Station.Price.InexactFloat64(),
			Lat:     s.Station.Location.Lat,
			Lon:     s.Station.Location.Lon,
			AlongKm: s.AlongKm,
		})
	}

	writeJSON(w, r, http.StatusOK, res)
}

func planRequestFromQuery(r *http.Request) (dto.PlanRequest, error) {
	q := r.URL.Query()
	req := dto.PlanRequest{
		Origin:             q.Get("origin"),
		Destination:        q.Get("destination"),
		OriginAddress:      q.Get("origin_address"),
		DestinationAddress: q.Get("destination_address"),
	}

	if v := q.Get("max_stops"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, errors.New("max_stops must be an integer")
		}
		req.MaxStops = n
	}
	if v := q.Get("vehicle_range_km"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return req, errors.New("vehicle_range_km must be a number")
		}
		req.VehicleRangeKm = f
	}

	return req, nil
}

// planErrorStatus maps planning errors to an HTTP status and client message.
func planErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrInvalidPlanRequest):
		return http.StatusBadRequest, "origin and destination required"
	case errors.Is(err, domain.ErrAddressResolution):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, spatial.ErrIndexNotBuilt):
		return http.StatusServiceUnavailable, "station index unavailable"
	case errors.Is(err, domain.ErrRouting):
		return http.StatusBadGateway, "routing failed"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
