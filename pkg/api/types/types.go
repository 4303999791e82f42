package types

import (
	"time"

	"github.com/urmzd/ipcom/pkg/db"
)

// --- Request DTOs ---

// SetOutputRequest is the request body for POST /modules/:module/outputs/:output
type SetOutputRequest struct {
	Value int  `json:"value"`
	Wait  bool `json:"wait,omitempty"`
}

// --- Response DTOs ---

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is returned from GET /health
type HealthResponse struct {
	Status        string     `json:"status"` // healthy, degraded or unavailable
	Controller    string     `json:"controller"`
	LastSnapshot  *time.Time `json:"last_snapshot,omitempty"`
	SnapshotAgeMs int64      `json:"snapshot_age_ms,omitempty"`
	Timestamp     time.Time  `json:"timestamp"`
}

// SessionResponse is returned from GET /session
type SessionResponse struct {
	State        string     `json:"state"`
	Connected    bool       `json:"connected"`
	QueueLength  int        `json:"queue_length"`
	SnapshotSeq  uint64     `json:"snapshot_seq,omitempty"`
	SnapshotAt   *time.Time `json:"snapshot_at,omitempty"`
	DeviceTime   *time.Time `json:"device_time,omitempty"`
	ModuleCount  int        `json:"module_count"`
	ShutterPairs int        `json:"shutter_pairs"`
}

// OutputState is one output with its latest known value
type OutputState struct {
	Module int    `json:"module"`
	Output int    `json:"output"`
	Name   string `json:"name,omitempty"`
	Kind   string `json:"kind,omitempty"`
	Value  *int   `json:"value"`
}

// ModuleResponse describes one module and its outputs
type ModuleResponse struct {
	Number  int           `json:"number"`
	Type    string        `json:"type,omitempty"`
	Outputs []OutputState `json:"outputs"`
}

// ListModulesResponse is returned from GET /modules
type ListModulesResponse struct {
	Modules []ModuleResponse `json:"modules"`
	Count   int              `json:"count"`
}

// CommandResponse is returned from output mutations
type CommandResponse struct {
	Status string `json:"status"` // queued or acknowledged
	Module int    `json:"module"`
	Output int    `json:"output"`
	Value  int    `json:"value"`
}

// SnapshotEvent is the data of a "snapshot" SSE event
type SnapshotEvent struct {
	Seq        uint64        `json:"seq"`
	DeviceTime time.Time     `json:"device_time"`
	ReceivedAt time.Time     `json:"received_at"`
	Modules    map[int][]int `json:"modules"`
}

// ListRecordingsResponse is returned from GET /recordings
type ListRecordingsResponse struct {
	Recordings []*db.Recording `json:"recordings"`
	Count      int             `json:"count"`
}

// FramesResponse is returned from GET /recordings/:id/frames.
// Next is the cursor for the following page, 0 when exhausted.
type FramesResponse struct {
	Frames []*db.FrameRecord `json:"frames"`
	Count  int               `json:"count"`
	Next   int64             `json:"next,omitempty"`
}

// SnapshotsResponse is returned from GET /recordings/:id/snapshots
type SnapshotsResponse struct {
	Snapshots []*db.SnapshotRecord `json:"snapshots"`
	Count     int                  `json:"count"`
}

// StatesResponse is returned from GET /recordings/:id/states
type StatesResponse struct {
	States []*db.StateRecord `json:"states"`
	Count  int               `json:"count"`
}
