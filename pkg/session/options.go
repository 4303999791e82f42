package session

import (
	"time"

	"github.com/urmzd/ipcom/pkg/queue"
	"github.com/urmzd/ipcom/pkg/transport"
)

// Option configures an Engine.
type Option func(*Engine)

// WithErrorHandler receives every non-fatal error: auth rejections, command
// timeouts, protocol errors, lost connections and sibling drops.
func WithErrorHandler(fn func(error)) Option {
	return func(e *Engine) { e.onError = fn }
}

// WithStateHandler is called on every state transition.
func WithStateHandler(fn func(from, to State)) Option {
	return func(e *Engine) { e.onState = fn }
}

// WithReconnectHandler is called before each backoff wait.
func WithReconnectHandler(fn func(attempt int, delay time.Duration, err error)) Option {
	return func(e *Engine) { e.onReconnect = fn }
}

// WithRecorder tees frames, snapshots and state changes to r.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// WithMetrics records session metrics. A nil m disables them.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithTransport overrides how a transport is created for each connection attempt.
func WithTransport(factory func() (transport.Transport, error)) Option {
	return func(e *Engine) { e.newTransport = factory }
}

// CommandOption tunes a single Submit.
type CommandOption func(*commandOptions)

type commandOptions struct {
	force bool
	done  func(queue.Result)
}

// WithForce skips the shutter interlock for this command.
func WithForce() CommandOption {
	return func(o *commandOptions) { o.force = true }
}

// WithDone is called once with the command outcome.
func WithDone(fn func(queue.Result)) CommandOption {
	return func(o *commandOptions) { o.done = fn }
}
