package api

import (
	"net/http"

	"github.com/solhart/mediakit-api/internal/api/shared"
	"github.com/solhart/mediakit-api/internal/core"
)

// HealthHandler exposes the resilience registry's aggregate status.
type HealthHandler struct {
	core *core.Core
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(c *core.Core) *HealthHandler {
	return &HealthHandler{core: c}
}

// Health handles GET /healthz requests. The body always carries the full
// component breakdown; the status code flips to 503 when any breaker is
// open or any pool reports unhealthy.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := h.core.Status()

	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	shared.RespondWithJSON(w, r, code, status)
}
