package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff_ExponentialAndCapped(t *testing.T) {
	b := newBackoff(BackoffConfig{Initial: 500 * time.Millisecond, Max: 30 * time.Second, Multiplier: 2, Jitter: 0.2})
	b.rand = func() float64 { return 0 }

	want := []time.Duration{
		500 * time.Millisecond, time.Second, 2 * time.Second, 4 * time.Second,
		8 * time.Second, 16 * time.Second, 30 * time.Second, 30 * time.Second,
	}
	for i, w := range want {
		assert.Equal(t, w, b.Next(), "attempt %d", i+1)
	}
}

func TestBackoff_JitterNeverDecreases(t *testing.T) {
	b := newBackoff(DefaultBackoff())
	vals := []float64{0, 1, 0, 1, 0.5, 1, 1, 0, 1}
	i := 0
	b.rand = func() float64 {
		v := vals[i%len(vals)]
		i++
		return v
	}

	var prev time.Duration
	for n := 0; n < 20; n++ {
		d := b.Next()
		assert.GreaterOrEqual(t, d, prev)
		assert.LessOrEqual(t, d, 30*time.Second)
		prev = d
	}
}

func TestBackoff_JitterShavesAtMostTheFraction(t *testing.T) {
	b := newBackoff(DefaultBackoff())
	b.rand = func() float64 { return 1 }
	assert.Equal(t, 400*time.Millisecond, b.Next())
	assert.Equal(t, 800*time.Millisecond, b.Next())
}

func TestBackoff_Reset(t *testing.T) {
	b := newBackoff(DefaultBackoff())
	b.rand = func() float64 { return 0 }
	b.Next()
	b.Next()
	b.Reset()
	assert.Equal(t, 500*time.Millisecond, b.Next())
}

func TestBackoff_ShortConnectionsKeepGrowing(t *testing.T) {
	b := newBackoff(BackoffConfig{Initial: 10 * time.Millisecond, Max: 200 * time.Millisecond, Multiplier: 2, Jitter: 0.2, StableAfter: time.Second})
	b.rand = func() float64 { return 0 }

	assert.Equal(t, 10*time.Millisecond, b.Next())
	assert.False(t, b.Connected(50*time.Millisecond))
	assert.Equal(t, 20*time.Millisecond, b.Next())
	assert.False(t, b.Connected(999*time.Millisecond))
	assert.Equal(t, 40*time.Millisecond, b.Next())

	assert.True(t, b.Connected(time.Second))
	assert.Equal(t, 10*time.Millisecond, b.Next())
}

func TestBackoff_StableAfterDefaultsToMax(t *testing.T) {
	b := newBackoff(BackoffConfig{Initial: 10 * time.Millisecond, Max: 200 * time.Millisecond})
	b.rand = func() float64 { return 0 }
	b.Next()
	b.Next()
	assert.False(t, b.Connected(199*time.Millisecond))
	assert.Equal(t, 40*time.Millisecond, b.Next())
	assert.True(t, b.Connected(200*time.Millisecond))
	assert.Equal(t, 10*time.Millisecond, b.Next())
}

func TestBackoff_DefaultsForZeroConfig(t *testing.T) {
	b := newBackoff(BackoffConfig{})
	b.rand = func() float64 { return 0 }
	assert.Equal(t, 500*time.Millisecond, b.Next())
	assert.Equal(t, time.Second, b.Next())
}
