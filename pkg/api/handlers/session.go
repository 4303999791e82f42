package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/urmzd/ipcom/pkg/api/types"
	"github.com/urmzd/ipcom/pkg/device"
)

// queueReporter is implemented by controllers that expose their command backlog.
type queueReporter interface {
	QueueLen() int
}

// SessionHandler reports the session lifecycle
type SessionHandler struct {
	controller device.Controller
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(controller device.Controller) *SessionHandler {
	return &SessionHandler{controller: controller}
}

// Get handles GET /session
// @Summary      Session status
// @Description  Returns the session state, command backlog and the age of the latest snapshot
// @Tags         session
// @Produce      json
// @Success      200  {object}  types.SessionResponse
// @Router       /session [get]
func (h *SessionHandler) Get(c *gin.Context) {
	resp := types.SessionResponse{
		State:     h.controller.SessionState(),
		Connected: h.controller.IsConnected(),
	}
	if q, ok := h.controller.(queueReporter); ok {
		resp.QueueLength = q.QueueLen()
	}
	if snap := h.controller.Latest(); snap != nil {
		at, ts := snap.ReceivedAt(), snap.Timestamp()
		resp.SnapshotSeq = snap.Seq()
		resp.SnapshotAt = &at
		resp.DeviceTime = &ts
		resp.ModuleCount = len(snap.Modules())
	}
	if topo := h.controller.Topology(); topo != nil {
		resp.ModuleCount = len(topo.Modules)
		resp.ShutterPairs = len(topo.ShutterPairs())
	}

	c.JSON(http.StatusOK, resp)
}
