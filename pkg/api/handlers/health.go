package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urmzd/ipcom/pkg/api/types"
	"github.com/urmzd/ipcom/pkg/device"
)

// DefaultStaleAfter is how old the latest snapshot may get before an active
// session is reported as degraded. The device is polled every 350ms.
const DefaultStaleAfter = 5 * time.Second

// HealthHandler reports whether the device session is usable
type HealthHandler struct {
	controller device.Controller
	staleAfter time.Duration
	now        func() time.Time
}

// NewHealthHandler creates a new health handler. A non-positive staleAfter uses DefaultStaleAfter.
func NewHealthHandler(controller device.Controller, staleAfter time.Duration) *HealthHandler {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &HealthHandler{controller: controller, staleAfter: staleAfter, now: time.Now}
}

// Health handles GET /health
// @Summary      Health check
// @Description  healthy: session active with a fresh snapshot. degraded: active but snapshots are stale. unavailable: no active session.
// @Tags         health
// @Produce      json
// @Success      200  {object}  types.HealthResponse  "Session is active"
// @Failure      503  {object}  types.HealthResponse  "Session is not active"
// @Router       /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	now := h.now()
	resp := types.HealthResponse{
		Status:     "healthy",
		Controller: h.controller.SessionState(),
		Timestamp:  now,
	}

	snap := h.controller.Latest()
	if snap != nil {
		at := snap.ReceivedAt()
		resp.LastSnapshot = &at
		resp.SnapshotAgeMs = now.Sub(at).Milliseconds()
	}

	switch {
	case !h.controller.IsConnected():
		resp.Status = "unavailable"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	case snap == nil || now.Sub(snap.ReceivedAt()) > h.staleAfter:
		resp.Status = "degraded"
	}

	c.JSON(http.StatusOK, resp)
}
