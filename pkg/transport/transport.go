// Package transport owns the single byte stream to the device. It has no protocol
// knowledge and no retry logic, so the session can be exercised against fakes.
package transport

import (
	"context"
	"fmt"
	"time"
)

// Network names accepted by New.
const (
	NetworkTCP    = "tcp"
	NetworkSerial = "serial"
)

// Transport is a bidirectional byte stream.
type Transport interface {
	// Connect opens the stream. Failures wrap device.ErrConnection.
	Connect(ctx context.Context, address string, timeout time.Duration) error

	// Send writes p completely. Failures wrap device.ErrConnection.
	Send(p []byte) error

	// Receive reads whatever arrives within wait into buf. It returns 0, nil when
	// nothing arrived, so callers can re-check cancellation and call again.
	Receive(buf []byte, wait time.Duration) (int, error)

	// Close releases the stream. It is idempotent.
	Close() error
}

// Options tune the concrete transports.
type Options struct {
	WriteTimeout time.Duration // TCP write deadline
	BaudRate     int           // serial only
}

// New returns an unconnected transport for network.
func New(network string, opts Options) (Transport, error) {
	switch network {
	case "", NetworkTCP:
		return NewTCP(opts.WriteTimeout), nil
	case NetworkSerial:
		return NewSerial(opts.BaudRate), nil
	default:
		return nil, fmt.Errorf("unknown transport network %q", network)
	}
}
