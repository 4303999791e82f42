package handlers

import (
	"encoding/json"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urmzd/ipcom/pkg/api/types"
	"github.com/urmzd/ipcom/pkg/device"
)

// heartbeatInterval keeps idle proxies from closing the stream.
var heartbeatInterval = 30 * time.Second

// EventsHandler streams snapshots over Server-Sent Events
type EventsHandler struct {
	controller device.Controller
	subscriber device.SnapshotSubscriber
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(controller device.Controller, subscriber device.SnapshotSubscriber) *EventsHandler {
	return &EventsHandler{controller: controller, subscriber: subscriber}
}

// Snapshots handles GET /snapshots/events (SSE stream)
// @Summary      Subscribe to snapshots
// @Description  Server-Sent Events stream carrying every status snapshot the device sends. The latest snapshot, if any, is sent right after the connected event.
// @Tags         snapshots
// @Produce      text/event-stream
// @Success      200  {string}  string  "SSE event stream"
// @Router       /snapshots/events [get]
func (h *EventsHandler) Snapshots(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	snapshots := h.subscriber.Subscribe()
	defer h.subscriber.Unsubscribe(snapshots)

	sendSSEEvent(c.Writer, "connected", map[string]any{
		"timestamp": time.Now(),
		"session":   h.controller.SessionState(),
	})
	if snap := h.controller.Latest(); snap != nil {
		sendSSEEvent(c.Writer, "snapshot", snapshotEvent(snap))
	}
	c.Writer.Flush()

	clientGone := c.Request.Context().Done()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-clientGone:
			return

		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			sendSSEEvent(c.Writer, "snapshot", snapshotEvent(snap))
			c.Writer.Flush()

		case <-ticker.C:
			sendSSEEvent(c.Writer, "heartbeat", map[string]any{
				"timestamp": time.Now(),
				"session":   h.controller.SessionState(),
			})
			c.Writer.Flush()
		}
	}
}

func snapshotEvent(snap *device.Snapshot) types.SnapshotEvent {
	return types.SnapshotEvent{
		Seq:        snap.Seq(),
		DeviceTime: snap.Timestamp(),
		ReceivedAt: snap.ReceivedAt(),
		Modules:    snap.Values(),
	}
}

// sendSSEEvent writes an SSE event to the response
func sendSSEEvent(w io.Writer, eventType string, data any) {
	jsonData, _ := json.Marshal(data)
	io.WriteString(w, "event: "+eventType+"\n")
	io.WriteString(w, "data: "+string(jsonData)+"\n\n")
}
