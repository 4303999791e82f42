package device

import (
	"sort"
	"time"
)

// Snapshot is an immutable point-in-time copy of every known output value.
// It is superseded, never mutated, by the next one.
type Snapshot struct {
	seq        uint64
	timestamp  time.Time
	receivedAt time.Time
	modules    map[int][]int
}

// NewSnapshot builds a snapshot from a deep copy of values.
func NewSnapshot(seq uint64, timestamp, receivedAt time.Time, values map[int][]int) *Snapshot {
	modules := make(map[int][]int, len(values))
	for n, v := range values {
		modules[n] = append([]int(nil), v...)
	}
	return &Snapshot{
		seq:        seq,
		timestamp:  timestamp,
		receivedAt: receivedAt,
		modules:    modules,
	}
}

// Seq is the store-assigned, strictly increasing sequence number.
func (s *Snapshot) Seq() uint64 { return s.seq }

// Timestamp is the device-side source time of the status frame.
func (s *Snapshot) Timestamp() time.Time { return s.timestamp }

// ReceivedAt is the local time the frame was decoded.
func (s *Snapshot) ReceivedAt() time.Time { return s.receivedAt }

// Modules returns the module numbers present, ascending.
func (s *Snapshot) Modules() []int {
	out := make([]int, 0, len(s.modules))
	for n := range s.modules {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// ModuleValues returns a copy of the ordered output values of a module.
func (s *Snapshot) ModuleValues(module int) ([]int, bool) {
	v, ok := s.modules[module]
	if !ok {
		return nil, false
	}
	return append([]int(nil), v...), true
}

// Value returns the value of one output.
func (s *Snapshot) Value(ref OutputRef) (int, bool) {
	v, ok := s.modules[ref.Module]
	if !ok || ref.Output < 1 || ref.Output > len(v) {
		return 0, false
	}
	return v[ref.Output-1], true
}

// Values returns a deep copy of all module values.
func (s *Snapshot) Values() map[int][]int {
	out := make(map[int][]int, len(s.modules))
	for n, v := range s.modules {
		out[n] = append([]int(nil), v...)
	}
	return out
}
