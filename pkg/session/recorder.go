package session

import "github.com/urmzd/ipcom/pkg/device"

// Direction tells a Recorder which way a frame travelled.
type Direction string

const (
	DirectionTx Direction = "tx"
	DirectionRx Direction = "rx"
)

// Recorder receives a copy of session traffic for capture and replay.
// Calls are made from the session's own goroutines and must not block.
type Recorder interface {
	RecordFrame(dir Direction, kind string, raw []byte)
	RecordSnapshot(snap *device.Snapshot)
	RecordState(state string)
}

type nopRecorder struct{}

func (nopRecorder) RecordFrame(Direction, string, []byte) {}
func (nopRecorder) RecordSnapshot(*device.Snapshot)       {}
func (nopRecorder) RecordState(string)                    {}
