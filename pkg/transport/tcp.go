package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urmzd/ipcom/pkg/device"
)

const defaultWriteTimeout = 5 * time.Second

// TCP is a Transport over a TCP connection.
type TCP struct {
	writeTimeout time.Duration

	mu   sync.Mutex
	conn net.Conn
}

// NewTCP creates an unconnected TCP transport.
func NewTCP(writeTimeout time.Duration) *TCP {
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &TCP{writeTimeout: writeTimeout}
}

func (t *TCP) Connect(ctx context.Context, address string, timeout time.Duration) error {
	d := net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", device.ErrConnection, address, err)
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}

	t.mu.Lock()
	old := t.conn
	t.conn = conn
	t.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}

	log.Debug().Str("address", address).Msg("TCP transport connected")
	return nil
}

func (t *TCP) current() (net.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil, fmt.Errorf("%w: not connected", device.ErrConnection)
	}
	return t.conn, nil
}

func (t *TCP) Send(p []byte) error {
	conn, err := t.current()
	if err != nil {
		return err
	}
	if err := conn.SetWriteDeadline(time.Now().Add(t.writeTimeout)); err != nil {
		return fmt.Errorf("%w: set write deadline: %v", device.ErrConnection, err)
	}
	for len(p) > 0 {
		n, err := conn.Write(p)
		if err != nil {
			return fmt.Errorf("%w: write: %v", device.ErrConnection, err)
		}
		p = p[n:]
	}
	return nil
}

func (t *TCP) Receive(buf []byte, wait time.Duration) (int, error) {
	conn, err := t.current()
	if err != nil {
		return 0, err
	}
	if err := conn.SetReadDeadline(time.Now().Add(wait)); err != nil {
		return 0, fmt.Errorf("%w: set read deadline: %v", device.ErrConnection, err)
	}
	n, err := conn.Read(buf)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return n, nil
		}
		return n, fmt.Errorf("%w: read: %v", device.ErrConnection, err)
	}
	return n, nil
}

func (t *TCP) Close() error {
	t.mu.Lock()
	conn := t.conn
	t.conn = nil
	t.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}
