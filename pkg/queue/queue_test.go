package queue

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urmzd/ipcom/pkg/device"
)

func ref(m, o int) device.OutputRef {
	return device.OutputRef{Module: m, Output: o}
}

func TestQueue_FIFO(t *testing.T) {
	q := New(10)
	for i := 1; i <= 5; i++ {
		_, err := q.Enqueue(ref(1, i), i, nil)
		require.NoError(t, err)
	}

	batch := q.DequeueBatch(3)
	require.Len(t, batch, 3)
	for i, c := range batch {
		assert.Equal(t, i+1, c.Ref.Output)
	}

	rest := q.DequeueBatch(10)
	require.Len(t, rest, 2)
	assert.Equal(t, 4, rest[0].Ref.Output)
	assert.Equal(t, 5, rest[1].Ref.Output)

	assert.Empty(t, q.DequeueBatch(1))
	assert.Zero(t, q.Len())
}

func TestQueue_FullRejectsNewest(t *testing.T) {
	q := New(2)
	_, err := q.Enqueue(ref(1, 1), 1, nil)
	require.NoError(t, err)
	_, err = q.Enqueue(ref(1, 2), 1, nil)
	require.NoError(t, err)

	_, err = q.Enqueue(ref(1, 3), 1, nil)
	assert.True(t, errors.Is(err, device.ErrQueueFull))

	batch := q.DequeueBatch(5)
	require.Len(t, batch, 2)
	assert.Equal(t, 1, batch[0].Ref.Output)
	assert.Equal(t, 2, batch[1].Ref.Output)
}

func TestQueue_EnqueueAllIsAtomic(t *testing.T) {
	q := New(3)
	_, err := q.Enqueue(ref(1, 1), 1, nil)
	require.NoError(t, err)

	_, err = q.EnqueueAll([]Request{{Ref: ref(7, 1)}, {Ref: ref(7, 2), Value: 255}, {Ref: ref(7, 3)}})
	assert.True(t, errors.Is(err, device.ErrQueueFull))
	assert.Equal(t, 1, q.Len(), "nothing from a rejected batch is queued")

	cmds, err := q.EnqueueAll([]Request{{Ref: ref(7, 1)}, {Ref: ref(7, 2), Value: 255}})
	require.NoError(t, err)
	require.Len(t, cmds, 2)
	assert.Less(t, cmds[0].ID, cmds[1].ID)
}

func TestQueue_RequeueAtHead(t *testing.T) {
	q := New(10)
	for i := 1; i <= 4; i++ {
		_, err := q.Enqueue(ref(2, i), 0, nil)
		require.NoError(t, err)
	}
	batch := q.DequeueBatch(2)
	q.Requeue(batch)

	all := q.Drain()
	require.Len(t, all, 4)
	for i, c := range all {
		assert.Equal(t, i+1, c.Ref.Output)
	}
	assert.Zero(t, q.Len())
}

func TestQueue_ConcurrentEnqueueNoLossNoDuplication(t *testing.T) {
	const producers, perProducer = 8, 250
	q := New(producers * perProducer)

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				_, err := q.Enqueue(ref(p+1, 1+i%8), i%256, nil)
				if err != nil {
					t.Error(err)
					return
				}
			}
		}(p)
	}

	// Consume concurrently with the producers.
	seen := make(map[uint64]bool)
	lastByProducer := make(map[int]uint64)
	var consumed int
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	drain := func() {
		for _, c := range q.DequeueBatch(7) {
			if seen[c.ID] {
				t.Errorf("command %d dispatched twice", c.ID)
			}
			seen[c.ID] = true
			if c.ID <= lastByProducer[c.Ref.Module] {
				t.Errorf("producer %d out of order", c.Ref.Module)
			}
			lastByProducer[c.Ref.Module] = c.ID
			consumed++
		}
	}

	for {
		select {
		case <-done:
			for q.Len() > 0 {
				drain()
			}
			assert.Equal(t, producers*perProducer, consumed)
			return
		default:
			drain()
		}
	}
}

func TestQueue_CloseRejectsUntilOpen(t *testing.T) {
	q := New(10)
	_, err := q.Enqueue(ref(1, 1), 255, nil)
	require.NoError(t, err)

	drained := q.Close()
	require.Len(t, drained, 1)
	assert.Zero(t, q.Len())

	_, err = q.Enqueue(ref(1, 2), 255, nil)
	assert.ErrorIs(t, err, device.ErrStopped)
	_, err = q.EnqueueAll([]Request{{Ref: ref(1, 3)}, {Ref: ref(1, 4)}})
	assert.ErrorIs(t, err, device.ErrStopped)
	assert.Zero(t, q.Len())

	q.Open()
	_, err = q.Enqueue(ref(1, 2), 255, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, q.Len())
}

func TestQueue_EnqueueRacingCloseIsNeverStranded(t *testing.T) {
	for round := 0; round < 100; round++ {
		q := New(1000)
		var (
			wg       sync.WaitGroup
			accepted atomic.Int64
		)
		for p := 0; p < 4; p++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 20; i++ {
					if _, err := q.Enqueue(ref(1, 1), 0, nil); err == nil {
						accepted.Add(1)
					}
				}
			}()
		}
		drained := q.Close()
		wg.Wait()

		assert.Equal(t, accepted.Load(), int64(len(drained)), "round %d", round)
		assert.Zero(t, q.Len(), "round %d", round)
	}
}

func TestQueue_TryDispatchExclusive(t *testing.T) {
	q := New(1)
	release, ok := q.TryDispatch()
	require.True(t, ok)

	_, ok = q.TryDispatch()
	assert.False(t, ok, "second dispatch cycle must not start")

	release()
	release() // idempotent

	release2, ok := q.TryDispatch()
	require.True(t, ok)
	release2()
}

func TestCommand_Resolve(t *testing.T) {
	q := New(1)
	var got Result
	cmd, err := q.Enqueue(ref(3, 2), 255, func(r Result) { got = r })
	require.NoError(t, err)

	cmd.Resolve(device.ErrCommandTimeout, cmd.EnqueuedAt)
	assert.Equal(t, cmd.ID, got.Command.ID)
	assert.True(t, errors.Is(got.Err, device.ErrTimeout))
}
