package db

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/urmzd/ipcom/pkg/device"
	"github.com/urmzd/ipcom/pkg/session"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	recorderBuffer     = 1024
	recorderBatch      = 128
	recorderFlushEvery = 250 * time.Millisecond
)

type eventKind int

const (
	eventFrame eventKind = iota
	eventSnapshot
	eventState
)

type recordEvent struct {
	kind      eventKind
	at        time.Time
	direction string
	frameKind string
	raw       []byte
	snap      *device.Snapshot
	state     string
}

// Recorder writes session traffic to a recording in the background. It
// implements session.Recorder; events that arrive while the buffer is full
// are dropped and counted rather than stalling the session.
type Recorder struct {
	db   *DB
	id   string
	now  func() time.Time
	done chan struct{}

	mu      sync.RWMutex
	closed  bool
	events  chan recordEvent
	dropped atomic.Int64
}

// NewRecorder creates a recording for address and starts the writer.
func NewRecorder(ctx context.Context, db *DB, address string) (*Recorder, error) {
	r := &Recorder{
		db:     db,
		id:     uuid.NewString(),
		now:    time.Now,
		done:   make(chan struct{}),
		events: make(chan recordEvent, recorderBuffer),
	}
	if err := db.Recordings().Create(ctx, &Recording{ID: r.id, Address: address, StartedAt: r.now()}); err != nil {
		return nil, err
	}

	go r.loop()
	log.Info().Str("recording", r.id).Str("path", db.Path()).Msg("Recording session")
	return r, nil
}

// ID returns the recording identifier.
func (r *Recorder) ID() string {
	return r.id
}

// Dropped returns the number of events lost to a full buffer.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

func (r *Recorder) RecordFrame(dir session.Direction, kind string, raw []byte) {
	r.push(recordEvent{
		kind:      eventFrame,
		direction: string(dir),
		frameKind: kind,
		raw:       append([]byte(nil), raw...),
	})
}

func (r *Recorder) RecordSnapshot(snap *device.Snapshot) {
	r.push(recordEvent{kind: eventSnapshot, snap: snap})
}

func (r *Recorder) RecordState(state string) {
	r.push(recordEvent{kind: eventState, state: state})
}

func (r *Recorder) push(ev recordEvent) {
	ev.at = r.now()

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.events <- ev:
	default:
		if r.dropped.Add(1) == 1 {
			log.Warn().Str("recording", r.id).Msg("Recorder falling behind, dropping events")
		}
	}
}

// Close flushes buffered events and marks the recording as ended.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		<-r.done
		return nil
	}
	r.closed = true
	close(r.events)
	r.mu.Unlock()

	select {
	case <-r.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return r.db.Recordings().End(ctx, r.id, r.now())
}

func (r *Recorder) loop() {
	defer close(r.done)

	ticker := time.NewTicker(recorderFlushEvery)
	defer ticker.Stop()

	batch := make([]recordEvent, 0, recorderBatch)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := r.write(batch); err != nil {
			log.Error().Err(err).Str("recording", r.id).Int("events", len(batch)).Msg("Failed to write recording batch")
		}
		batch = batch[:0]
	}

	for {
		select {
		case ev, ok := <-r.events:
			if !ok {
				flush()
				return
			}
			batch = append(batch, ev)
			if len(batch) >= recorderBatch {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (r *Recorder) write(batch []recordEvent) error {
	return r.db.Tx(context.Background(), func(tx *sql.Tx) error {
		for _, ev := range batch {
			var err error
			switch ev.kind {
			case eventFrame:
				_, err = tx.Exec(`
					INSERT INTO frames (recording_id, at, direction, kind, raw) VALUES (?, ?, ?, ?, ?)
				`, r.id, formatTime(ev.at), ev.direction, ev.frameKind, ev.raw)
			case eventSnapshot:
				var payload []byte
				payload, err = msgpack.Marshal(ev.snap.Values())
				if err == nil {
					_, err = tx.Exec(`
						INSERT INTO snapshots (recording_id, at, seq, device_time, payload) VALUES (?, ?, ?, ?, ?)
					`, r.id, formatTime(ev.at), int64(ev.snap.Seq()), formatTime(ev.snap.Timestamp()), payload)
				}
			case eventState:
				_, err = tx.Exec(`
					INSERT INTO state_changes (recording_id, at, state) VALUES (?, ?, ?)
				`, r.id, formatTime(ev.at), ev.state)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

var _ session.Recorder = (*Recorder)(nil)
