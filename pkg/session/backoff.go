package session

import (
	"math/rand/v2"
	"time"
)

// BackoffConfig shapes the delay between reconnect attempts.
type BackoffConfig struct {
	Initial    time.Duration `yaml:"initial"`
	Max        time.Duration `yaml:"max"`
	Multiplier float64       `yaml:"multiplier"`
	Jitter     float64       `yaml:"jitter"` // fraction of the delay that may be shaved off

	// StableAfter is how long a connection must stay Active before the
	// sequence starts over. Zero uses Max.
	StableAfter time.Duration `yaml:"stable_after"`
}

// DefaultBackoff returns 500ms doubling to a 30s cap with 20% jitter.
func DefaultBackoff() BackoffConfig {
	return BackoffConfig{
		Initial:    500 * time.Millisecond,
		Max:        30 * time.Second,
		Multiplier: 2,
		Jitter:     0.2,
	}
}

// backoff produces a non-decreasing delay sequence until Reset.
type backoff struct {
	cfg     BackoffConfig
	nominal time.Duration
	last    time.Duration
	rand    func() float64
}

func newBackoff(cfg BackoffConfig) *backoff {
	d := DefaultBackoff()
	if cfg.Initial <= 0 {
		cfg.Initial = d.Initial
	}
	if cfg.Max <= 0 {
		cfg.Max = d.Max
	}
	if cfg.Max < cfg.Initial {
		cfg.Max = cfg.Initial
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = d.Multiplier
	}
	if cfg.Jitter < 0 || cfg.Jitter >= 1 {
		cfg.Jitter = d.Jitter
	}
	if cfg.StableAfter <= 0 {
		cfg.StableAfter = cfg.Max
	}
	return &backoff{cfg: cfg, rand: rand.Float64}
}

// Next returns the delay before the next attempt.
func (b *backoff) Next() time.Duration {
	if b.nominal == 0 {
		b.nominal = b.cfg.Initial
	} else {
		b.nominal = time.Duration(float64(b.nominal) * b.cfg.Multiplier)
	}
	if b.nominal > b.cfg.Max {
		b.nominal = b.cfg.Max
	}

	delay := b.nominal - time.Duration(float64(b.nominal)*b.cfg.Jitter*b.rand())
	if delay < b.last {
		delay = b.last
	}
	b.last = delay
	return delay
}

// Reset starts the sequence over from Initial.
func (b *backoff) Reset() {
	b.nominal = 0
	b.last = 0
}

// Connected resets the sequence if the connection stayed up for at least
// StableAfter. Shorter connections continue the current sequence.
func (b *backoff) Connected(up time.Duration) bool {
	if up < b.cfg.StableAfter {
		return false
	}
	b.Reset()
	return true
}
