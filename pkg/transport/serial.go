package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urmzd/ipcom/pkg/device"
	"go.bug.st/serial"
)

const defaultBaudRate = 115200

// Serial is a Transport over a local RS-232/USB bridge to the controller bus.
// The address passed to Connect is the device path.
type Serial struct {
	baud int

	mu   sync.Mutex
	port serial.Port
}

// NewSerial creates an unopened serial transport. baud <= 0 uses 115200.
func NewSerial(baud int) *Serial {
	if baud <= 0 {
		baud = defaultBaudRate
	}
	return &Serial{baud: baud}
}

// Connect opens the port 8N1. The timeout is not used; opening a port does not block.
func (s *Serial) Connect(ctx context.Context, address string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", device.ErrConnection, err)
	}
	mode := &serial.Mode{
		BaudRate: s.baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(address, mode)
	if err != nil {
		return fmt.Errorf("%w: open serial port %s: %v", device.ErrConnection, address, err)
	}

	s.mu.Lock()
	old := s.port
	s.port = port
	s.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}

	log.Info().Str("port", address).Int("baud", s.baud).Msg("Serial port opened")
	return nil
}

func (s *Serial) current() (serial.Port, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return nil, fmt.Errorf("%w: serial port not open", device.ErrConnection)
	}
	return s.port, nil
}

func (s *Serial) Send(p []byte) error {
	port, err := s.current()
	if err != nil {
		return err
	}
	for len(p) > 0 {
		n, err := port.Write(p)
		if err != nil {
			return fmt.Errorf("%w: serial write: %v", device.ErrConnection, err)
		}
		p = p[n:]
	}
	return nil
}

// Receive reads with the port read timeout set to wait. go.bug.st/serial returns
// 0, nil on timeout, which matches the Transport contract.
func (s *Serial) Receive(buf []byte, wait time.Duration) (int, error) {
	port, err := s.current()
	if err != nil {
		return 0, err
	}
	if err := port.SetReadTimeout(wait); err != nil {
		return 0, fmt.Errorf("%w: set read timeout: %v", device.ErrConnection, err)
	}
	n, err := port.Read(buf)
	if err != nil {
		return n, fmt.Errorf("%w: serial read: %v", device.ErrConnection, err)
	}
	return n, nil
}

func (s *Serial) Close() error {
	s.mu.Lock()
	port := s.port
	s.port = nil
	s.mu.Unlock()
	if port == nil {
		return nil
	}
	return port.Close()
}
