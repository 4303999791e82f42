package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

var ErrRecordingNotFound = errors.New("recording not found")

// Recording is one captured session run.
type Recording struct {
	ID        string     `json:"id"`
	Address   string     `json:"address"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Frames    int        `json:"frames"`
	Snapshots int        `json:"snapshots"`
}

// FrameRecord is one wire frame as sent or received.
type FrameRecord struct {
	ID        int64     `json:"id"`
	At        time.Time `json:"at"`
	Direction string    `json:"direction"`
	Kind      string    `json:"kind"`
	Raw       []byte    `json:"raw"`
}

// SnapshotRecord is one applied snapshot.
type SnapshotRecord struct {
	ID         int64         `json:"id"`
	At         time.Time     `json:"at"`
	Seq        uint64        `json:"seq"`
	DeviceTime time.Time     `json:"device_time"`
	Modules    map[int][]int `json:"modules"`
}

// StateRecord is one session state change.
type StateRecord struct {
	At    time.Time `json:"at"`
	State string    `json:"state"`
}

// RecordingStore reads and writes recordings.
type RecordingStore interface {
	Create(ctx context.Context, r *Recording) error
	End(ctx context.Context, id string, at time.Time) error
	Get(ctx context.Context, id string) (*Recording, error)
	List(ctx context.Context, limit int) ([]*Recording, error)
	Frames(ctx context.Context, id string, afterID int64, limit int) ([]*FrameRecord, error)
	Snapshots(ctx context.Context, id string, limit int) ([]*SnapshotRecord, error)
	States(ctx context.Context, id string) ([]*StateRecord, error)
	Delete(ctx context.Context, id string) error

	// Prune deletes recordings that ended before cutoff and returns how many went.
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// Recordings returns a RecordingStore for this database.
func (db *DB) Recordings() RecordingStore {
	return &recordingStore{db: db}
}

type recordingStore struct {
	db *DB
}

// timeLayout is fixed width so stored timestamps sort and compare as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

func (s *recordingStore) Create(ctx context.Context, r *Recording) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recordings (id, address, started_at) VALUES (?, ?, ?)
	`, r.ID, r.Address, formatTime(r.StartedAt))
	if err != nil {
		return fmt.Errorf("failed to create recording: %w", err)
	}
	return nil
}

func (s *recordingStore) End(ctx context.Context, id string, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `UPDATE recordings SET ended_at = ? WHERE id = ?`, formatTime(at), id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func (s *recordingStore) Get(ctx context.Context, id string) (*Recording, error) {
	rows, err := s.db.QueryContext(ctx, recordingSelect+` WHERE r.id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list, err := scanRecordings(rows)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrRecordingNotFound
	}
	return list[0], nil
}

func (s *recordingStore) List(ctx context.Context, limit int) ([]*Recording, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, recordingSelect+` ORDER BY r.started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecordings(rows)
}

const recordingSelect = `
	SELECT r.id, r.address, r.started_at, r.ended_at,
		(SELECT COUNT(*) FROM frames f WHERE f.recording_id = r.id),
		(SELECT COUNT(*) FROM snapshots s WHERE s.recording_id = r.id)
	FROM recordings r`

func scanRecordings(rows *sql.Rows) ([]*Recording, error) {
	var out []*Recording
	for rows.Next() {
		r := &Recording{}
		var startedAt string
		var endedAt sql.NullString
		if err := rows.Scan(&r.ID, &r.Address, &startedAt, &endedAt, &r.Frames, &r.Snapshots); err != nil {
			return nil, err
		}
		r.StartedAt = parseTime(startedAt)
		if endedAt.Valid {
			t := parseTime(endedAt.String)
			r.EndedAt = &t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *recordingStore) Frames(ctx context.Context, id string, afterID int64, limit int) ([]*FrameRecord, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, at, direction, kind, raw FROM frames
		WHERE recording_id = ? AND id > ?
		ORDER BY id LIMIT ?
	`, id, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*FrameRecord
	for rows.Next() {
		f := &FrameRecord{}
		var at string
		if err := rows.Scan(&f.ID, &at, &f.Direction, &f.Kind, &f.Raw); err != nil {
			return nil, err
		}
		f.At = parseTime(at)
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *recordingStore) Snapshots(ctx context.Context, id string, limit int) ([]*SnapshotRecord, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, at, seq, device_time, payload FROM snapshots
		WHERE recording_id = ?
		ORDER BY id LIMIT ?
	`, id, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*SnapshotRecord
	for rows.Next() {
		r := &SnapshotRecord{}
		var at, deviceTime string
		var payload []byte
		if err := rows.Scan(&r.ID, &at, &r.Seq, &deviceTime, &payload); err != nil {
			return nil, err
		}
		if err := msgpack.Unmarshal(payload, &r.Modules); err != nil {
			return nil, fmt.Errorf("decode snapshot %d: %w", r.ID, err)
		}
		r.At, r.DeviceTime = parseTime(at), parseTime(deviceTime)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *recordingStore) States(ctx context.Context, id string) ([]*StateRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT at, state FROM state_changes WHERE recording_id = ? ORDER BY id
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*StateRecord
	for rows.Next() {
		r := &StateRecord{}
		var at string
		if err := rows.Scan(&at, &r.State); err != nil {
			return nil, err
		}
		r.At = parseTime(at)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *recordingStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM recordings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func (s *recordingStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM recordings WHERE ended_at IS NOT NULL AND ended_at < ?`, formatTime(cutoff))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRecordingNotFound
	}
	return nil
}
