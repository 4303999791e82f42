package transport

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urmzd/ipcom/pkg/device"
)

func TestTCP_SendReceive(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err == nil {
			accepted <- c
		}
	}()

	tr := NewTCP(time.Second)
	require.NoError(t, tr.Connect(context.Background(), ln.Addr().String(), time.Second))
	defer tr.Close()

	peer := <-accepted
	defer peer.Close()

	// Nothing sent yet: Receive returns 0, nil after the wait.
	buf := make([]byte, 16)
	n, err := tr.Receive(buf, 20*time.Millisecond)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = peer.Write([]byte("hello"))
	require.NoError(t, err)

	n, err = tr.Receive(buf, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))

	require.NoError(t, tr.Send([]byte("world")))
	got := make([]byte, 5)
	_, err = peer.Read(got)
	require.NoError(t, err)
	assert.Equal(t, "world", string(got))
}

func TestTCP_ConnectRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	tr := NewTCP(time.Second)
	err = tr.Connect(context.Background(), addr, 200*time.Millisecond)
	assert.True(t, errors.Is(err, device.ErrConnection))
}

func TestTCP_PeerCloseIsConnectionError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		c, err := ln.Accept()
		if err == nil {
			c.Close()
		}
	}()

	tr := NewTCP(time.Second)
	require.NoError(t, tr.Connect(context.Background(), ln.Addr().String(), time.Second))

	buf := make([]byte, 8)
	deadline := time.Now().Add(2 * time.Second)
	for {
		_, err = tr.Receive(buf, 50*time.Millisecond)
		if err != nil || time.Now().After(deadline) {
			break
		}
	}
	assert.True(t, errors.Is(err, device.ErrConnection))
}

func TestTCP_UseAfterCloseAndIdempotentClose(t *testing.T) {
	tr := NewTCP(0)
	assert.NoError(t, tr.Close())
	assert.NoError(t, tr.Close())
	assert.True(t, errors.Is(tr.Send([]byte{1}), device.ErrConnection))
}

func TestNew_UnknownNetwork(t *testing.T) {
	_, err := New("carrier-pigeon", Options{})
	assert.Error(t, err)

	tr, err := New("", Options{})
	require.NoError(t, err)
	assert.IsType(t, &TCP{}, tr)
}
