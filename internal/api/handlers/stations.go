package handlers

import (
	"context"
	"fuel-route-service/internal/api/dto"
	"fuel-route-service/internal/domain"
	"fuel-route-service/internal/ports"
	"fuel-route-service/internal/services"
	"fuel-route-service/internal/spatial"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// StationHandler exposes raw station index queries.
type StationHandler struct {
	Index   services.SnapshotSource
	Catalog ports.StationRepository
}

// Nearby returns the stations within radius_deg (planar degrees) of lat/lon.
func (h *StationHandler) Nearby(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	q := r.URL.Query()
	req := dto.NearbyStationsRequest{RadiusDeg: services.DefaultSearchRadiusDeg}
	for _, p := range []struct {
		name     string
		dst      *float64
		required bool
	}{
		{"lat", &req.Lat, true},
		{"lon", &req.Lon, true},
		{"radius_deg", &req.RadiusDeg, false},
	} {
		raw := q.Get(p.name)
		if raw == "" {
			if p.required {
				writeError(w, r, http.StatusBadRequest, p.name+" is required")
				return
			}
			continue
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, p.name+" must be a number")
			return
		}
		*p.dst = f
	}

	if err := validate.Struct(req); err != nil {
		writeError(w, r, http.StatusBadRequest, validationMessage(err))
		return
	}

	snap, err := h.Index.EnsureBuilt(r.Context())
	if err != nil {
		logger(r).Error("station index unavailable", zap.Error(err))
		writeError(w, r, http.StatusServiceUnavailable, "station index unavailable")
		return
	}

	stations, err := services.GatherCandidates(
		r.Context(),
		[]domain.Coordinates{{Lat: req.Lat, Lon: req.Lon}},
		req.RadiusDeg,
		1,
		snap,
		h.Catalog,
	)
	if err != nil {
		logger(r).Error("nearby stations failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	res := dto.ListStationsResponse{Stations: make([]dto.StationResponse, 0, len(stations))}
	for _, s := range stations {
		res.Stations = append(res.Stations, dto.StationResponse{
			ID:      s.ID,
			Name:    s.Name,
			Address: s.Address,
			City:    s.City,
			State:   s.State,
			Price:   s.Price.InexactFloat64(),
			Lat:     s.Location.Lat,
			Lon:     s.Location.Lon,
		})
	}

	writeJSON(w, r, http.StatusOK, res)
}

// IndexRebuilder rebuilds and publishes the station index.
type IndexRebuilder interface {
	Rebuild(ctx context.Context) (*spatial.Snapshot, error)
	BuiltAt() time.Time
}

type AdminHandler struct {
	Index IndexRebuilder
}

// RebuildIndex reloads located stations from the catalog and swaps in a new snapshot.
func (h *AdminHandler) RebuildIndex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	snap, err := h.Index.Rebuild(r.Context())
	if err != nil {
		logger(r).Error("station index rebuild failed", zap.Error(err))
		writeError(w, r, http.StatusServiceUnavailable, "station index rebuild failed")
		return
	}

	writeJSON(w, r, http.StatusOK, dto.RebuildIndexResponse{
		Stations: snap.Len(),
		BuiltAt:  h.Index.BuiltAt().UTC(),
	})
}
