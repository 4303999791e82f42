package session

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urmzd/ipcom/pkg/codec"
	"github.com/urmzd/ipcom/pkg/device"
	"github.com/urmzd/ipcom/pkg/queue"
	"github.com/urmzd/ipcom/pkg/transport"
	"golang.org/x/sync/errgroup"
)

type writeReq struct {
	kind  codec.Kind
	frame []byte
	errc  chan error
}

// conn is one transport connection and the activities bound to it. The first
// activity to fail cancels the others; the transport is closed once all exit.
type conn struct {
	e       *Engine
	t       transport.Transport
	dec     *codec.Decoder
	pending *pendingTable
	writes  chan writeReq
	seq     atomic.Uint32
	lastRx  atomic.Int64

	// owned by the receive loop
	malformed int

	parent context.Context
	ctx    context.Context
	cancel context.CancelFunc
	g      *errgroup.Group
}

// newConn starts the receive and write loops on an already connected transport.
func newConn(parent context.Context, e *Engine, t transport.Transport) *conn {
	ctx, cancel := context.WithCancel(parent)
	g, gctx := errgroup.WithContext(ctx)
	c := &conn{
		e:       e,
		t:       t,
		dec:     codec.NewDecoder(),
		pending: newPendingTable(),
		writes:  make(chan writeReq),
		parent:  parent,
		ctx:     gctx,
		cancel:  cancel,
		g:       g,
	}
	g.Go(c.receiveLoop)
	g.Go(c.writeLoop)
	return c
}

// serve adds the periodic activities and blocks until the connection ends.
// It returns nil when the parent context was cancelled.
func (c *conn) serve() error {
	c.g.Go(c.keepAliveLoop)
	c.g.Go(c.pollLoop)
	c.g.Go(c.dispatchLoop)
	return c.wait()
}

// close tears down a connection that never reached serve.
func (c *conn) close() {
	c.cancel()
	_ = c.wait()
}

func (c *conn) wait() error {
	err := c.g.Wait()
	c.cancel()
	if cerr := c.t.Close(); cerr != nil {
		log.Debug().Err(cerr).Msg("Transport close failed")
	}
	return err
}

func (c *conn) nextSeq() uint8 {
	return uint8(c.seq.Add(1))
}

// send hands frame to the writer. A frame the writer accepted is always
// attempted, so a nil or transport error here is final.
func (c *conn) send(kind codec.Kind, frame []byte) error {
	req := writeReq{kind: kind, frame: frame, errc: make(chan error, 1)}
	select {
	case c.writes <- req:
	case <-c.ctx.Done():
		return fmt.Errorf("%w: connection closing", device.ErrConnection)
	}
	return <-req.errc
}

// request sends frame and waits for the ack or error frame carrying seq.
// sent reports whether the frame reached the transport.
func (c *conn) request(kind codec.Kind, seq uint8, frame []byte, timeout time.Duration) (f codec.Frame, sent bool, err error) {
	ch := c.pending.register(seq)
	defer c.pending.remove(seq)

	if err := c.send(kind, frame); err != nil {
		return nil, false, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case f := <-ch:
		return f, true, nil
	case <-timer.C:
		return nil, true, fmt.Errorf("%w: no reply to %s seq %d within %s", device.ErrTimeout, kind, seq, timeout)
	case <-c.ctx.Done():
		return nil, true, fmt.Errorf("%w: connection closed awaiting %s reply", device.ErrConnection, kind)
	}
}

func (c *conn) authenticate() error {
	cfg := c.e.cfg
	seq := c.nextSeq()
	frame, err := codec.EncodeAuth(seq, cfg.Username, cfg.Password)
	if err != nil {
		return fmt.Errorf("%w: %w", device.ErrValidation, err)
	}

	f, _, err := c.request(codec.KindAuth, seq, frame, cfg.AuthTimeout)
	if err != nil {
		if errors.Is(err, device.ErrTimeout) {
			return fmt.Errorf("authentication: %w", err)
		}
		return err
	}

	switch f := f.(type) {
	case codec.AckFrame:
		return nil
	case codec.ErrorFrame:
		if f.Code == codec.CodeAuthRejected {
			return fmt.Errorf("%w: user %q", device.ErrAuthRejected, cfg.Username)
		}
		return fmt.Errorf("%w: authentication answered with %s", device.ErrProtocol, f.Code)
	default:
		return fmt.Errorf("%w: unexpected %s reply to authentication", device.ErrProtocol, f.Kind())
	}
}

func (c *conn) writeLoop() error {
	for {
		select {
		case <-c.ctx.Done():
			return nil
		case req := <-c.writes:
			err := c.t.Send(req.frame)
			req.errc <- err
			if err != nil {
				return err
			}
			c.e.metrics.frame(DirectionTx, req.kind.String())
			c.e.recorder.RecordFrame(DirectionTx, req.kind.String(), req.frame)
		}
	}
}

func (c *conn) receiveLoop() error {
	buf := make([]byte, 4096)
	for {
		if c.ctx.Err() != nil {
			return nil
		}
		n, err := c.t.Receive(buf, c.e.cfg.ReceiveWait)
		if n > 0 {
			c.lastRx.Store(time.Now().UnixNano())
			for _, d := range c.dec.FeedRaw(buf[:n]) {
				if herr := c.handle(d); herr != nil {
					return herr
				}
			}
		}
		if err != nil {
			if c.ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

func (c *conn) handle(d codec.Decoded) error {
	kind := frameKind(d.Frame)
	c.e.metrics.frame(DirectionRx, kind)
	c.e.recorder.RecordFrame(DirectionRx, kind, d.Raw)

	switch f := d.Frame.(type) {
	case codec.Malformed:
		c.malformed++
		c.e.metrics.malformedFrame()
		log.Warn().
			Str("reason", f.Reason).
			Int("consecutive", c.malformed).
			Msg("Discarding malformed frame")
		if c.malformed > c.e.cfg.MalformedTolerance {
			return fmt.Errorf("%w: %w: %d consecutive malformed frames", device.ErrConnection, device.ErrProtocol, c.malformed)
		}
		return nil
	case codec.SnapshotFrame:
		c.malformed = 0
		c.e.applySnapshot(f)
	case codec.AckFrame:
		c.malformed = 0
		if !c.pending.resolve(f.Seq, f) {
			log.Debug().Uint8("seq", f.Seq).Msg("Unsolicited ack")
		}
	case codec.ErrorFrame:
		c.malformed = 0
		if c.pending.resolve(f.Seq, f) {
			return nil
		}
		if f.Code == codec.CodeNotAuthenticated {
			return fmt.Errorf("%w: device reports the session is not authenticated", device.ErrConnection)
		}
		log.Warn().Uint8("seq", f.Seq).Str("code", f.Code.String()).Msg("Unsolicited device error")
	}
	return nil
}

// keepAliveLoop probes the device when nothing was received during a whole interval.
func (c *conn) keepAliveLoop() error {
	cfg := c.e.cfg
	ticker := time.NewTicker(cfg.KeepAliveInterval)
	defer ticker.Stop()

	checked := time.Now().UnixNano()
	for {
		select {
		case <-c.ctx.Done():
			return nil
		case <-ticker.C:
		}

		idle := c.lastRx.Load() <= checked
		checked = time.Now().UnixNano()
		if !idle {
			continue
		}

		seq := c.nextSeq()
		if _, _, err := c.request(codec.KindPing, seq, codec.EncodePing(seq), cfg.KeepAliveGrace); err != nil {
			if c.ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("%w: keep-alive unanswered: %w", device.ErrConnection, err)
		}
		log.Debug().Msg("Keep-alive answered")
	}
}

func (c *conn) pollLoop() error {
	ticker := time.NewTicker(c.e.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := c.send(codec.KindSnapshotRequest, codec.EncodeSnapshotRequest(c.nextSeq())); err != nil {
			if c.ctx.Err() != nil {
				return nil
			}
			return err
		}
		select {
		case <-c.ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (c *conn) dispatchLoop() error {
	ticker := time.NewTicker(c.e.cfg.DispatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return nil
		case <-ticker.C:
		}
		if err := c.dispatchOnce(); err != nil {
			return err
		}
	}
}

// dispatchOnce sends up to one batch, waiting for each acknowledgment in turn.
// Commands that never reached the transport go back to the head of the queue.
func (c *conn) dispatchOnce() error {
	e := c.e
	release, ok := e.queue.TryDispatch()
	if !ok {
		return nil
	}
	defer release()

	batch := e.queue.DequeueBatch(e.cfg.DispatchBatch)
	if len(batch) == 0 {
		return nil
	}
	defer func() { e.metrics.setQueueDepth(e.queue.Len()) }()

	for i, cmd := range batch {
		if c.ctx.Err() != nil {
			e.queue.Requeue(batch[i:])
			return nil
		}

		now := time.Now()
		if ttl := e.cfg.CommandTTL; ttl > 0 && now.Sub(cmd.EnqueuedAt) > ttl {
			err := fmt.Errorf("%w: output %s waited %s", device.ErrCommandExpired, cmd.Ref, now.Sub(cmd.EnqueuedAt).Round(time.Millisecond))
			log.Warn().Str("output", cmd.Ref.String()).Msg("Dropping expired command")
			e.metrics.command("expired", 0)
			cmd.Resolve(err, now)
			continue
		}

		seq := c.nextSeq()
		frame, err := codec.EncodeSetOutput(seq, cmd.Ref.Module, cmd.Ref.Output, cmd.Value)
		if err != nil {
			e.metrics.command("invalid", 0)
			cmd.Resolve(fmt.Errorf("%w: %w", device.ErrValidation, err), now)
			continue
		}

		baseline := e.store.Latest()
		e.verifier.touch(cmd.Ref)

		f, sent, err := c.request(codec.KindSetOutput, seq, frame, e.cfg.CommandTimeout)
		switch {
		case err == nil:
			if ef, ok := f.(codec.ErrorFrame); ok && ef.Code == codec.CodeNotAuthenticated {
				e.queue.Requeue(batch[i:])
				return fmt.Errorf("%w: device reports the session is not authenticated", device.ErrConnection)
			}
			c.complete(cmd, f, baseline)
		case errors.Is(err, device.ErrTimeout):
			terr := fmt.Errorf("%w: output %s unacknowledged after %s", device.ErrCommandTimeout, cmd.Ref, e.cfg.CommandTimeout)
			log.Warn().Str("output", cmd.Ref.String()).Msg("Command timed out")
			e.metrics.command("timeout", 0)
			cmd.Resolve(terr, time.Now())
			e.report(terr)
		case !sent:
			e.queue.Requeue(batch[i:])
			if c.ctx.Err() != nil {
				return nil
			}
			return err
		default:
			lost := fmt.Errorf("%w: connection lost awaiting ack for output %s", device.ErrConnection, cmd.Ref)
			if c.parent.Err() != nil {
				lost = fmt.Errorf("%w: session stopped awaiting ack for output %s", device.ErrStopped, cmd.Ref)
			}
			e.metrics.command("lost", 0)
			cmd.Resolve(lost, time.Now())
			e.queue.Requeue(batch[i+1:])
			return nil
		}
	}
	return nil
}

func (c *conn) complete(cmd queue.Command, f codec.Frame, baseline *device.Snapshot) {
	e := c.e
	now := time.Now()
	switch f := f.(type) {
	case codec.AckFrame:
		log.Debug().
			Str("output", cmd.Ref.String()).
			Int("value", cmd.Value).
			Msg("Command acknowledged")
		e.metrics.command("ok", now.Sub(cmd.EnqueuedAt))
		var afterSeq uint64
		if latest := e.store.Latest(); latest != nil {
			afterSeq = latest.Seq()
		}
		if cmd.Tag != tagRestore {
			e.verifier.expect(cmd, baseline, afterSeq)
		}
		cmd.Resolve(nil, now)
	case codec.ErrorFrame:
		cerr := &CommandError{Ref: cmd.Ref, Code: f.Code}
		log.Warn().
			Str("output", cmd.Ref.String()).
			Str("code", f.Code.String()).
			Msg("Command rejected by device")
		e.metrics.command("rejected", 0)
		cmd.Resolve(cerr, now)
		e.report(cerr)
	}
}

func frameKind(f codec.Frame) string {
	if _, ok := f.(codec.Malformed); ok {
		return "malformed"
	}
	return f.Kind().String()
}
