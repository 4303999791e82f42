package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urmzd/ipcom/pkg/device"
	"github.com/urmzd/ipcom/pkg/devicesim"
	"github.com/urmzd/ipcom/pkg/queue"
	"github.com/urmzd/ipcom/pkg/transport"
)

// cutoffTransport fails Receive once more than limit bytes arrived on the connection.
type cutoffTransport struct {
	transport.Transport
	limit    int
	received int
}

func (c *cutoffTransport) Receive(buf []byte, wait time.Duration) (int, error) {
	n, err := c.Transport.Receive(buf, wait)
	if err != nil {
		return n, err
	}
	c.received += n
	if c.received > c.limit {
		return 0, fmt.Errorf("%w: cut after %d bytes", device.ErrConnection, c.limit)
	}
	return n, nil
}

// countingTransport counts every Send across all connections.
type countingTransport struct {
	transport.Transport
	sends *atomic.Int64
}

func (c *countingTransport) Send(p []byte) error {
	c.sends.Add(1)
	return c.Transport.Send(p)
}

func TestEngine_BackoffGrowsWhenEveryConnectionFails(t *testing.T) {
	sim := startSim(t, devicesim.Config{Modules: map[int][]int{1: {255, 0, 0, 0, 0, 0, 0, 0}}})
	cfg := testConfig(sim.Addr())
	cfg.Backoff = BackoffConfig{
		Initial:     10 * time.Millisecond,
		Max:         200 * time.Millisecond,
		Multiplier:  2,
		Jitter:      0.2,
		StableAfter: 10 * time.Second,
	}

	var (
		mu     sync.Mutex
		delays []time.Duration
		active int
	)
	e := newEngine(t, cfg,
		WithTransport(func() (transport.Transport, error) {
			return &cutoffTransport{Transport: transport.NewTCP(time.Second), limit: 40}, nil
		}),
		WithReconnectHandler(func(_ int, delay time.Duration, _ error) {
			mu.Lock()
			defer mu.Unlock()
			delays = append(delays, delay)
		}),
		WithStateHandler(func(_, to State) {
			mu.Lock()
			defer mu.Unlock()
			if to == Active {
				active++
			}
		}),
	)
	require.NoError(t, e.Start(context.Background()))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(delays) >= 6
	}, waitFor, tick)
	e.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, active, 2)
	for i := 1; i < len(delays); i++ {
		assert.GreaterOrEqual(t, delays[i], delays[i-1], "delay %d decreased", i)
	}
	last := delays[len(delays)-1]
	assert.GreaterOrEqual(t, last, 100*time.Millisecond)
	assert.LessOrEqual(t, last, 200*time.Millisecond)
}

func TestEngine_NoWritesAfterStop(t *testing.T) {
	sim := startSim(t, devicesim.Config{IgnoreCommands: true, Modules: map[int][]int{1: make([]int, 8)}})
	cfg := testConfig(sim.Addr())
	cfg.CommandTimeout = time.Second
	cfg.KeepAliveInterval = 15 * time.Millisecond

	var sends atomic.Int64
	e := newEngine(t, cfg, WithTransport(func() (transport.Transport, error) {
		return &countingTransport{Transport: transport.NewTCP(time.Second), sends: &sends}, nil
	}))
	require.NoError(t, e.Start(context.Background()))
	waitSnapshot(t, e)

	results := make(chan queue.Result, 8)
	for out := 1; out <= 8; out++ {
		_, err := e.Submit(device.OutputRef{Module: 1, Output: out}, 255,
			WithDone(func(r queue.Result) { results <- r }))
		require.NoError(t, err)
	}
	require.Eventually(t, func() bool { return len(sim.Commands()) >= 1 }, waitFor, tick)

	e.Stop()
	after := sends.Load()
	require.Positive(t, after)

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, after, sends.Load(), "transport written after Stop returned")

	for i := 0; i < 8; i++ {
		select {
		case r := <-results:
			assert.ErrorIs(t, r.Err, device.ErrStopped)
		case <-time.After(waitFor):
			t.Fatal("command not resolved on stop")
		}
	}
}
