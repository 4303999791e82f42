// Package session keeps one authenticated connection to an IPCom controller
// alive and exposes its outputs as an in-memory, always-current view.
//
// An Engine connects, authenticates, then runs receive, keep-alive, status-poll
// and command-dispatch activities until the connection fails, at which point it
// reconnects with exponential backoff. Commands are queued and survive
// reconnects; snapshots keep being served from the last known state.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urmzd/ipcom/pkg/codec"
	"github.com/urmzd/ipcom/pkg/device"
	"github.com/urmzd/ipcom/pkg/queue"
	"github.com/urmzd/ipcom/pkg/state"
	"github.com/urmzd/ipcom/pkg/transport"
)

var errAlreadyStarted = errors.New("session already started")

// tagRestore marks commands queued to undo a sibling drop. Those are never verified.
const tagRestore = "restore"

// Engine is a persistent session with one device.
type Engine struct {
	cfg          Config
	newTransport func() (transport.Transport, error)

	store    *state.Store
	queue    *queue.Queue
	verifier *verifier
	metrics  *Metrics
	recorder Recorder

	onError     func(error)
	onState     func(from, to State)
	onReconnect func(attempt int, delay time.Duration, err error)

	stateMu sync.RWMutex
	state   State

	lifeMu sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	subsMu sync.Mutex
	subs   map[<-chan *device.Snapshot]func()
}

// New creates an engine in the Disconnected state. Nothing runs until Start.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	e := &Engine{
		cfg:      cfg,
		store:    state.NewStore(),
		queue:    queue.New(cfg.QueueCapacity),
		verifier: newVerifier(cfg.VerifyWindow),
		recorder: nopRecorder{},
		state:    Disconnected,
		subs:     make(map[<-chan *device.Snapshot]func()),
	}
	e.newTransport = func() (transport.Transport, error) {
		return transport.New(cfg.Network, transport.Options{
			WriteTimeout: cfg.WriteTimeout,
			BaudRate:     cfg.BaudRate,
		})
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Start connects and authenticates. It returns nil once the session is Active.
// On failure with AutoReconnect the engine keeps retrying in the background and
// the first error is still returned; without it the engine is Disconnected.
// ctx bounds only the wait for that first outcome.
func (e *Engine) Start(ctx context.Context) error {
	e.lifeMu.Lock()
	if e.running() {
		e.lifeMu.Unlock()
		return errAlreadyStarted
	}
	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	first := make(chan error, 1)
	e.cancel, e.done = cancel, done
	e.queue.Open()
	e.lifeMu.Unlock()

	log.Info().
		Str("network", e.cfg.Network).
		Str("address", e.cfg.Address).
		Msg("Starting session")

	go e.run(runCtx, first, done)

	select {
	case err := <-first:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop ends the session. Queued commands are resolved with device.ErrStopped
// and no activity is left running when it returns. Stop is idempotent.
func (e *Engine) Stop() {
	e.lifeMu.Lock()
	defer e.lifeMu.Unlock()

	if e.cancel != nil {
		e.cancel()
		<-e.done
		e.cancel, e.done = nil, nil
	}

	now := time.Now()
	for _, cmd := range e.queue.Close() {
		cmd.Resolve(fmt.Errorf("%w: output %s not sent", device.ErrStopped, cmd.Ref), now)
	}
	e.metrics.setQueueDepth(0)
	e.verifier.reset()

	if e.State() != Stopped {
		e.setState(Stopped)
		log.Info().Str("address", e.cfg.Address).Msg("Session stopped")
	}
}

// Close implements device.Controller.
func (e *Engine) Close() {
	e.Stop()
}

func (e *Engine) running() bool {
	if e.done == nil {
		return false
	}
	select {
	case <-e.done:
		return false
	default:
		return true
	}
}

// run owns the connection lifecycle until ctx is cancelled.
func (e *Engine) run(ctx context.Context, first chan<- error, done chan<- struct{}) {
	defer close(done)

	bo := newBackoff(e.cfg.Backoff)
	attempt := 0
	notified := false
	notify := func(err error) {
		if !notified {
			notified = true
			first <- err
		}
	}
	defer notify(fmt.Errorf("%w: stopped before the session became active", device.ErrStopped))

	for {
		c, err := e.establish(ctx)
		if err == nil {
			notify(nil)
			activeAt := time.Now()
			err = c.serve()
			if ctx.Err() != nil {
				return
			}
			if bo.Connected(time.Since(activeAt)) {
				attempt = 0
			}
			if err == nil {
				err = device.ErrConnection
			}
			log.Warn().Err(err).Str("address", e.cfg.Address).Msg("Connection lost")
		} else if ctx.Err() != nil {
			return
		}

		e.report(err)
		if !e.cfg.AutoReconnect {
			e.setState(Disconnected)
			notify(err)
			return
		}
		notify(err)

		attempt++
		delay := bo.Next()
		e.setState(Reconnecting)
		e.metrics.reconnect()
		log.Info().
			Int("attempt", attempt).
			Dur("delay", delay).
			Err(err).
			Msg("Reconnecting")
		if e.onReconnect != nil {
			e.onReconnect(attempt, delay, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// establish runs Connecting and Authenticating and returns an Active connection.
func (e *Engine) establish(ctx context.Context) (*conn, error) {
	e.setState(Connecting)

	t, err := e.newTransport()
	if err != nil {
		return nil, err
	}
	if err := t.Connect(ctx, e.cfg.Address, e.cfg.ConnectTimeout); err != nil {
		return nil, err
	}

	c := newConn(ctx, e, t)
	e.setState(Authenticating)
	if err := c.authenticate(); err != nil {
		c.close()
		e.metrics.authFailure()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warn().Err(err).Str("address", e.cfg.Address).Msg("Authentication failed")
		return nil, err
	}

	e.setState(Active)
	log.Info().Str("address", e.cfg.Address).Msg("Session active")
	return c, nil
}

func (e *Engine) applySnapshot(f codec.SnapshotFrame) {
	snap := e.store.Apply(f)
	e.metrics.snapshot()
	e.recorder.RecordSnapshot(snap)

	for _, drop := range e.verifier.check(snap) {
		err := fmt.Errorf("%w: output %s turned off after a command to %s",
			device.ErrSiblingDropped, drop.Sibling, drop.Command.Ref)
		log.Warn().
			Str("output", drop.Sibling.String()).
			Str("commanded", drop.Command.Ref.String()).
			Int("previous", drop.Previous).
			Msg("Sibling output dropped")
		e.metrics.siblingDrop()
		e.report(err)

		if e.cfg.RestoreSiblings {
			restore := []queue.Request{{Ref: drop.Sibling, Value: drop.Previous, Tag: tagRestore}}
			if _, qerr := e.queue.EnqueueAll(restore); qerr != nil {
				log.Warn().Err(qerr).Str("output", drop.Sibling.String()).Msg("Could not restore sibling")
			}
		}
	}
}

func (e *Engine) report(err error) {
	if err == nil || e.onError == nil {
		return
	}
	e.onError(err)
}

func (e *Engine) setState(to State) {
	e.stateMu.Lock()
	from := e.state
	e.state = to
	e.stateMu.Unlock()
	if from == to {
		return
	}

	log.Debug().Str("from", from.String()).Str("to", to.String()).Msg("Session state changed")
	e.metrics.setState(to)
	e.recorder.RecordState(to.String())
	if e.onState != nil {
		e.onState(from, to)
	}
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.state
}

// IsConnected reports whether the session is Active.
func (e *Engine) IsConnected() bool {
	return e.State() == Active
}

// SessionState names the current state.
func (e *Engine) SessionState() string {
	return e.State().String()
}

// Topology returns the configured module map, or nil.
func (e *Engine) Topology() *device.Topology {
	return e.cfg.Topology
}

// Latest returns the newest snapshot, or nil before the first status frame.
func (e *Engine) Latest() *device.Snapshot {
	return e.store.Latest()
}

// GetValue reads one output from the latest snapshot.
func (e *Engine) GetValue(module, output int) (int, error) {
	return e.store.ValueOf(module, output)
}

// GetModuleValues reads one module from the latest snapshot.
func (e *Engine) GetModuleValues(module int) ([]int, error) {
	return e.store.ModuleValues(module)
}

// QueueLen returns the number of commands waiting for dispatch.
func (e *Engine) QueueLen() int {
	return e.queue.Len()
}

// OnSnapshot calls h with every new snapshot on the receive goroutine.
// h must return quickly. The returned func unregisters it.
func (e *Engine) OnSnapshot(h state.Handler) (cancel func()) {
	return e.store.Subscribe(h)
}

// Subscribe implements device.SnapshotSubscriber. Slow readers miss
// intermediate snapshots but always receive the newest.
func (e *Engine) Subscribe() <-chan *device.Snapshot {
	ch, cancel := e.store.SubscribeChan(16)
	e.subsMu.Lock()
	e.subs[ch] = cancel
	e.subsMu.Unlock()
	return ch
}

// Unsubscribe implements device.SnapshotSubscriber.
func (e *Engine) Unsubscribe(ch <-chan *device.Snapshot) {
	e.subsMu.Lock()
	cancel, ok := e.subs[ch]
	delete(e.subs, ch)
	e.subsMu.Unlock()
	if ok {
		cancel()
	}
}

// Submit validates and queues a value for ref without waiting. Setting a
// shutter relay above zero first queues its partner off unless WithForce is given.
// The returned command is the one for ref.
func (e *Engine) Submit(ref device.OutputRef, value int, opts ...CommandOption) (queue.Command, error) {
	var o commandOptions
	for _, opt := range opts {
		opt(&o)
	}

	if !ref.Valid() {
		return queue.Command{}, fmt.Errorf("%w: invalid output address %s", device.ErrValidation, ref)
	}
	if !device.ValidValue(value) {
		return queue.Command{}, fmt.Errorf("%w: value %d outside %d..%d", device.ErrValidation, value, device.MinValue, device.MaxValue)
	}
	topo := e.cfg.Topology
	if topo != nil && !topo.HasOutput(ref) {
		return queue.Command{}, fmt.Errorf("%w: %s", device.ErrNotFound, ref)
	}
	if e.State() == Stopped {
		return queue.Command{}, device.ErrStopped
	}

	reqs := []queue.Request{{Ref: ref, Value: value, Done: o.done}}
	if topo != nil && value > device.MinValue && !o.force {
		if partner, _, ok := topo.Partner(ref); ok {
			reqs = append([]queue.Request{{Ref: partner, Value: device.MinValue}}, reqs...)
		}
	}

	cmds, err := e.queue.EnqueueAll(reqs)
	if err != nil {
		return queue.Command{}, err
	}
	e.metrics.setQueueDepth(e.queue.Len())
	return cmds[len(cmds)-1], nil
}

// SetOutput queues value for an output and returns immediately.
func (e *Engine) SetOutput(ctx context.Context, module, output, value int) error {
	_, err := e.Submit(device.OutputRef{Module: module, Output: output}, value)
	return err
}

// SetOutputAndWait queues value and blocks until the device acknowledges it,
// the command fails, or ctx ends.
func (e *Engine) SetOutputAndWait(ctx context.Context, module, output, value int) error {
	return e.submitAndWait(ctx, device.OutputRef{Module: module, Output: output}, value)
}

func (e *Engine) submitAndWait(ctx context.Context, ref device.OutputRef, value int, opts ...CommandOption) error {
	result := make(chan queue.Result, 1)
	opts = append(opts, WithDone(func(r queue.Result) { result <- r }))
	if _, err := e.Submit(ref, value, opts...); err != nil {
		return err
	}
	select {
	case r := <-result:
		return r.Err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: waiting for output %s", device.ErrTimeout, ref)
		}
		return ctx.Err()
	}
}

// TurnOn sets an output to the maximum value.
func (e *Engine) TurnOn(ctx context.Context, module, output int) error {
	return e.SetOutput(ctx, module, output, device.MaxValue)
}

// TurnOff sets an output to zero.
func (e *Engine) TurnOff(ctx context.Context, module, output int) error {
	return e.SetOutput(ctx, module, output, device.MinValue)
}

var (
	_ device.Controller         = (*Engine)(nil)
	_ device.SnapshotSubscriber = (*Engine)(nil)
)
