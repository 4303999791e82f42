// Package devicesim emulates an IPCom controller on a TCP listener. It speaks
// the same frames as the real device and can inject the faults observed in the
// field: refused logins, unanswered probes, lost acks, corrupted status frames,
// dropped connections and the firmware bug that switches sibling outputs off.
package devicesim

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urmzd/ipcom/pkg/codec"
	"github.com/urmzd/ipcom/pkg/device"
)

// Config seeds a simulated device.
type Config struct {
	Username string
	Password string

	// Modules maps module number to its initial output values.
	Modules map[int][]int

	RejectAuth     bool
	IgnorePings    bool
	IgnoreCommands bool

	// SiblingDrop switches every other output of a module off when one is set above zero.
	SiblingDrop bool

	// FailFirstConnAfterBytes cuts the first connection once the device has
	// written this many bytes to it. Zero disables it.
	FailFirstConnAfterBytes int
}

// ModulesFromTopology returns all-off values for every module in t.
func ModulesFromTopology(t *device.Topology) map[int][]int {
	out := make(map[int][]int)
	if t == nil {
		return out
	}
	for _, n := range t.Numbers() {
		out[n] = make([]int, device.OutputsPerModule)
	}
	return out
}

// Device is a running simulator.
type Device struct {
	cfg Config
	ln  net.Listener

	rejectAuth     atomic.Bool
	ignorePings    atomic.Bool
	ignoreCommands atomic.Bool
	corrupt        atomic.Int32

	mu       sync.Mutex
	values   map[int][]int
	received map[codec.Kind]int
	commands []codec.Request
	conns    int
	active   map[net.Conn]struct{}

	wg     sync.WaitGroup
	closed atomic.Bool
}

// Start listens on addr ("127.0.0.1:0" picks a free port) and serves until Close.
func Start(addr string, cfg Config) (*Device, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}

	d := &Device{
		cfg:      cfg,
		ln:       ln,
		values:   make(map[int][]int, len(cfg.Modules)),
		received: make(map[codec.Kind]int),
		active:   make(map[net.Conn]struct{}),
	}
	for n, values := range cfg.Modules {
		d.values[n] = append([]int(nil), values...)
	}
	d.rejectAuth.Store(cfg.RejectAuth)
	d.ignorePings.Store(cfg.IgnorePings)
	d.ignoreCommands.Store(cfg.IgnoreCommands)

	d.wg.Add(1)
	go d.acceptLoop()

	log.Debug().Str("addr", ln.Addr().String()).Msg("Device simulator listening")
	return d, nil
}

// Addr is the host:port the simulator listens on.
func (d *Device) Addr() string {
	return d.ln.Addr().String()
}

// Close stops listening, drops every connection and waits for the handlers.
func (d *Device) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := d.ln.Close()
	d.DropConnections()
	d.wg.Wait()
	return err
}

// DropConnections closes every open connection, as a network outage would.
func (d *Device) DropConnections() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for c := range d.active {
		_ = c.Close()
	}
}

// SetRejectAuth toggles credential rejection for future logins.
func (d *Device) SetRejectAuth(v bool) { d.rejectAuth.Store(v) }

// SetIgnorePings toggles answering keep-alive probes.
func (d *Device) SetIgnorePings(v bool) { d.ignorePings.Store(v) }

// SetIgnoreCommands toggles acknowledging (and applying) SetOutput commands.
func (d *Device) SetIgnoreCommands(v bool) { d.ignoreCommands.Store(v) }

// CorruptNextSnapshots replaces the next n status replies with frames that fail the CRC check.
func (d *Device) CorruptNextSnapshots(n int) { d.corrupt.Store(int32(n)) }

// SetValue changes an output locally, like a wall switch would.
func (d *Device) SetValue(ref device.OutputRef, value int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if values, ok := d.values[ref.Module]; ok && ref.Output >= 1 && ref.Output <= len(values) {
		values[ref.Output-1] = value
	}
}

// Value returns one output as the device sees it.
func (d *Device) Value(ref device.OutputRef) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	values := d.values[ref.Module]
	if ref.Output < 1 || ref.Output > len(values) {
		return 0
	}
	return values[ref.Output-1]
}

// Values returns a copy of every module's outputs.
func (d *Device) Values() map[int][]int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.copyValues()
}

// Connections is the number of accepted connections so far.
func (d *Device) Connections() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conns
}

// Received counts the requests of kind seen across all connections.
func (d *Device) Received(kind codec.Kind) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.received[kind]
}

// Commands returns every SetOutput received, in arrival order.
func (d *Device) Commands() []codec.Request {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]codec.Request(nil), d.commands...)
}

func (d *Device) acceptLoop() {
	defer d.wg.Done()
	for {
		c, err := d.ln.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				log.Warn().Err(err).Msg("Device simulator accept failed")
			}
			return
		}

		d.mu.Lock()
		if d.closed.Load() {
			d.mu.Unlock()
			_ = c.Close()
			return
		}
		d.conns++
		n := d.conns
		d.active[c] = struct{}{}
		d.mu.Unlock()

		d.wg.Add(1)
		go d.serve(c, n)
	}
}

func (d *Device) serve(c net.Conn, n int) {
	defer d.wg.Done()
	defer func() {
		d.mu.Lock()
		delete(d.active, c)
		d.mu.Unlock()
		_ = c.Close()
	}()

	log.Debug().Int("conn", n).Str("remote", c.RemoteAddr().String()).Msg("Simulator connection accepted")

	limit := 0
	if n == 1 {
		limit = d.cfg.FailFirstConnAfterBytes
	}
	written := 0
	write := func(frame []byte) bool {
		if limit > 0 && written+len(frame) >= limit {
			_, _ = c.Write(frame[:limit-written])
			log.Debug().Int("conn", n).Int("bytes", limit).Msg("Simulator cutting connection")
			return false
		}
		written += len(frame)
		_, err := c.Write(frame)
		return err == nil
	}

	dec := codec.NewRequestDecoder()
	authed := false
	buf := make([]byte, 1024)
	for {
		k, err := c.Read(buf)
		if err != nil {
			return
		}
		for _, f := range dec.Feed(buf[:k]) {
			req, ok := codec.AsRequest(f)
			if !ok {
				log.Debug().Int("conn", n).Msg("Simulator ignoring undecodable request")
				continue
			}
			reply := d.respond(req, &authed)
			if reply != nil && !write(reply) {
				return
			}
		}
	}
}

func (d *Device) respond(req codec.Request, authed *bool) []byte {
	d.mu.Lock()
	d.received[req.Kind]++
	d.mu.Unlock()

	if req.Kind == codec.KindAuth {
		if d.rejectAuth.Load() || req.Username != d.cfg.Username || req.Password != d.cfg.Password {
			return codec.EncodeError(req.Seq, codec.CodeAuthRejected)
		}
		*authed = true
		return codec.EncodeAck(req.Seq)
	}
	if !*authed {
		return codec.EncodeError(req.Seq, codec.CodeNotAuthenticated)
	}

	switch req.Kind {
	case codec.KindPing:
		if d.ignorePings.Load() {
			return nil
		}
		return codec.EncodeAck(req.Seq)
	case codec.KindSnapshotRequest:
		return d.snapshotReply(req.Seq)
	case codec.KindSetOutput:
		return d.setOutput(req)
	default:
		return nil
	}
}

func (d *Device) snapshotReply(seq uint8) []byte {
	if d.corrupt.Load() > 0 {
		d.corrupt.Add(-1)
		// Snapshot payload followed by a zero CRC, which does not match it.
		return []byte{byte(codec.KindSnapshot), 0x00, 0x00, 0x00, 0x00, 0x7E}
	}

	d.mu.Lock()
	values := d.copyValues()
	d.mu.Unlock()

	frame, err := codec.EncodeSnapshot(seq, time.Now(), values)
	if err != nil {
		log.Error().Err(err).Msg("Simulator cannot encode snapshot")
		return nil
	}
	return frame
}

func (d *Device) setOutput(req codec.Request) []byte {
	if d.ignoreCommands.Load() {
		d.mu.Lock()
		d.commands = append(d.commands, req)
		d.mu.Unlock()
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.commands = append(d.commands, req)

	values, ok := d.values[req.Module]
	if !ok {
		return codec.EncodeError(req.Seq, codec.CodeUnknownModule)
	}
	if req.Output < 1 || req.Output > len(values) {
		return codec.EncodeError(req.Seq, codec.CodeUnknownOutput)
	}
	values[req.Output-1] = req.Value
	if d.cfg.SiblingDrop && req.Value > 0 {
		for i := range values {
			if i != req.Output-1 {
				values[i] = 0
			}
		}
	}
	return codec.EncodeAck(req.Seq)
}

func (d *Device) copyValues() map[int][]int {
	out := make(map[int][]int, len(d.values))
	for n, values := range d.values {
		out[n] = append([]int(nil), values...)
	}
	return out
}
