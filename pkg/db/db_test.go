package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urmzd/ipcom/pkg/device"
	"github.com/urmzd/ipcom/pkg/session"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "nested", "ipcom.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	v, err := db.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, v)

	require.NoError(t, db.Migrate(ctx))
	v, err = db.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, v)
}

func TestRecordingStore_NotFound(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.Recordings().Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrRecordingNotFound)
	assert.ErrorIs(t, db.Recordings().End(ctx, "missing", time.Now()), ErrRecordingNotFound)
	assert.ErrorIs(t, db.Recordings().Delete(ctx, "missing"), ErrRecordingNotFound)
}

func TestRecorder_WritesEverything(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	rec, err := NewRecorder(ctx, db, "10.0.0.5:5000")
	require.NoError(t, err)
	require.NotEmpty(t, rec.ID())

	rec.RecordState("connecting")
	rec.RecordFrame(session.DirectionTx, "auth", []byte{0x01, 0x02})
	rec.RecordFrame(session.DirectionRx, "ack", []byte{0x82, 0x02})
	snap := device.NewSnapshot(7, time.UnixMilli(1700000000000), time.Now(), map[int][]int{3: {255, 0, 128}})
	rec.RecordSnapshot(snap)
	rec.RecordState("active")

	require.NoError(t, rec.Close(ctx))
	require.NoError(t, rec.Close(ctx))

	// Late events after close are ignored.
	rec.RecordState("stopped")

	store := db.Recordings()
	got, err := store.Get(ctx, rec.ID())
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5:5000", got.Address)
	assert.Equal(t, 2, got.Frames)
	assert.Equal(t, 1, got.Snapshots)
	require.NotNil(t, got.EndedAt)

	frames, err := store.Frames(ctx, rec.ID(), 0, 0)
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Equal(t, "tx", frames[0].Direction)
	assert.Equal(t, "auth", frames[0].Kind)
	assert.Equal(t, []byte{0x01, 0x02}, frames[0].Raw)

	after, err := store.Frames(ctx, rec.ID(), frames[0].ID, 0)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, "ack", after[0].Kind)

	snaps, err := store.Snapshots(ctx, rec.ID(), 0)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, uint64(7), snaps[0].Seq)
	assert.Equal(t, map[int][]int{3: {255, 0, 128}}, snaps[0].Modules)
	assert.True(t, snaps[0].DeviceTime.Equal(time.UnixMilli(1700000000000)))

	states, err := store.States(ctx, rec.ID())
	require.NoError(t, err)
	require.Len(t, states, 2)
	assert.Equal(t, "connecting", states[0].State)
	assert.Equal(t, "active", states[1].State)

	list, err := store.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, store.Delete(ctx, rec.ID()))
	frames, err = store.Frames(ctx, rec.ID(), 0, 0)
	require.NoError(t, err)
	assert.Empty(t, frames)
}

func TestRecordingStore_Prune(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	store := db.Recordings()

	now := time.Now()
	for _, r := range []struct {
		id    string
		ended *time.Time
	}{
		{"old", ptr(now.Add(-48 * time.Hour))},
		{"recent", ptr(now.Add(-time.Hour))},
		{"open", nil},
	} {
		require.NoError(t, store.Create(ctx, &Recording{ID: r.id, Address: "dev:5000", StartedAt: now.Add(-72 * time.Hour)}))
		if r.ended != nil {
			require.NoError(t, store.End(ctx, r.id, *r.ended))
		}
	}

	n, err := store.Prune(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = store.Get(ctx, "old")
	assert.ErrorIs(t, err, ErrRecordingNotFound)
	for _, id := range []string{"recent", "open"} {
		_, err := store.Get(ctx, id)
		assert.NoError(t, err, id)
	}
}

func ptr[T any](v T) *T { return &v }
