package session

import (
	"fmt"
	"time"

	"github.com/urmzd/ipcom/pkg/device"
	"github.com/urmzd/ipcom/pkg/transport"
)

// Config holds the connection parameters and activity cadences of a session.
type Config struct {
	Network  string // transport.NetworkTCP or transport.NetworkSerial
	Address  string // host:port, or a serial device path
	Username string
	Password string

	// Topology is optional. When set, commands to unknown outputs are refused
	// and shutter pairs are interlocked.
	Topology *device.Topology

	AutoReconnect bool

	ConnectTimeout    time.Duration
	AuthTimeout       time.Duration
	WriteTimeout      time.Duration
	BaudRate          int
	ReceiveWait       time.Duration
	KeepAliveInterval time.Duration
	KeepAliveGrace    time.Duration
	PollInterval      time.Duration
	DispatchInterval  time.Duration
	DispatchBatch     int
	CommandTimeout    time.Duration
	QueueCapacity     int

	// CommandTTL expires commands that waited longer than this before dispatch.
	// Zero keeps them until they are sent.
	CommandTTL time.Duration

	// MalformedTolerance is the number of consecutive malformed frames accepted
	// before the connection is considered broken.
	MalformedTolerance int

	// VerifyWindow is the number of snapshots after an acknowledged command in
	// which sibling outputs of the same module are watched. Zero disables it.
	VerifyWindow    int
	RestoreSiblings bool

	Backoff BackoffConfig
}

// DefaultConfig returns the documented session defaults for address.
func DefaultConfig(address string) Config {
	return Config{
		Network:            transport.NetworkTCP,
		Address:            address,
		AutoReconnect:      true,
		ConnectTimeout:     5 * time.Second,
		AuthTimeout:        5 * time.Second,
		WriteTimeout:       5 * time.Second,
		ReceiveWait:        50 * time.Millisecond,
		KeepAliveInterval:  30 * time.Second,
		KeepAliveGrace:     5 * time.Second,
		PollInterval:       350 * time.Millisecond,
		DispatchInterval:   250 * time.Millisecond,
		DispatchBatch:      4,
		CommandTimeout:     2 * time.Second,
		CommandTTL:         10 * time.Second,
		QueueCapacity:      256,
		MalformedTolerance: 5,
		VerifyWindow:       3,
		Backoff:            DefaultBackoff(),
	}
}

// withDefaults fills every zero duration and size from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig(c.Address)
	if c.Network == "" {
		c.Network = d.Network
	}
	setDuration(&c.ConnectTimeout, d.ConnectTimeout)
	setDuration(&c.AuthTimeout, d.AuthTimeout)
	setDuration(&c.WriteTimeout, d.WriteTimeout)
	setDuration(&c.ReceiveWait, d.ReceiveWait)
	setDuration(&c.KeepAliveInterval, d.KeepAliveInterval)
	setDuration(&c.KeepAliveGrace, d.KeepAliveGrace)
	setDuration(&c.PollInterval, d.PollInterval)
	setDuration(&c.DispatchInterval, d.DispatchInterval)
	setDuration(&c.CommandTimeout, d.CommandTimeout)
	if c.DispatchBatch <= 0 {
		c.DispatchBatch = d.DispatchBatch
	}
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = d.QueueCapacity
	}
	if c.MalformedTolerance <= 0 {
		c.MalformedTolerance = d.MalformedTolerance
	}
	return c
}

// Validate checks the fields that have no usable default.
func (c Config) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("%w: session address is required", device.ErrValidation)
	}
	if c.Topology != nil {
		if err := c.Topology.Validate(); err != nil {
			return err
		}
	}
	if c.VerifyWindow < 0 {
		return fmt.Errorf("%w: verify window must not be negative", device.ErrValidation)
	}
	return nil
}

func setDuration(d *time.Duration, def time.Duration) {
	if *d <= 0 {
		*d = def
	}
}
