package handlers

import (
	"fuel-route-service/internal/api/dto"
	"net/http"
	"time"
)

// IndexStatus reports station index readiness.
type IndexStatus interface {
	IsReady() bool
	BuiltAt() time.Time
}

type HealthHandler struct {
	Index IndexStatus
}

// Health is a liveness check. Index readiness is reported but does not fail it.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	res := dto.HealthResponse{Status: "ok"}
	if h.Index != nil && h.Index.IsReady() {
		res.IndexReady = true
		builtAt := h.Index.BuiltAt().UTC()
		res.IndexBuilt = &builtAt
	}

	writeJSON(w, r, http.StatusOK, res)
}
