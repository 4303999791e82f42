package devicesim

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urmzd/ipcom/pkg/codec"
	"github.com/urmzd/ipcom/pkg/device"
)

func dial(t *testing.T, d *Device) net.Conn {
	t.Helper()
	c, err := net.Dial("tcp", d.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func roundTrip(t *testing.T, c net.Conn, dec *codec.Decoder, frame []byte) codec.Frame {
	t.Helper()
	_, err := c.Write(frame)
	require.NoError(t, err)

	buf := make([]byte, 512)
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		n, err := c.Read(buf)
		require.NoError(t, err)
		if frames := dec.Feed(buf[:n]); len(frames) > 0 {
			return frames[0]
		}
	}
}

func TestDevice_AuthThenSnapshotAndSet(t *testing.T) {
	d, err := Start("127.0.0.1:0", Config{
		Username: "admin",
		Password: "pw",
		Modules:  map[int][]int{2: {0, 0, 0, 0, 0, 0, 0, 0}},
	})
	require.NoError(t, err)
	defer d.Close()

	c := dial(t, d)
	dec := codec.NewDecoder()

	frame, err := codec.EncodeAuth(1, "admin", "pw")
	require.NoError(t, err)
	assert.Equal(t, codec.AckFrame{Seq: 1}, roundTrip(t, c, dec, frame))

	frame, err = codec.EncodeSetOutput(2, 2, 3, 90)
	require.NoError(t, err)
	assert.Equal(t, codec.AckFrame{Seq: 2}, roundTrip(t, c, dec, frame))
	assert.Equal(t, 90, d.Value(device.OutputRef{Module: 2, Output: 3}))

	snap, ok := roundTrip(t, c, dec, codec.EncodeSnapshotRequest(3)).(codec.SnapshotFrame)
	require.True(t, ok)
	assert.Equal(t, []int{0, 0, 90, 0, 0, 0, 0, 0}, snap.Modules[2])

	assert.Equal(t, 1, d.Connections())
	assert.Equal(t, 1, d.Received(codec.KindSetOutput))
}

func TestDevice_RejectsUnauthenticated(t *testing.T) {
	d, err := Start("127.0.0.1:0", Config{Username: "admin", Password: "pw"})
	require.NoError(t, err)
	defer d.Close()

	c := dial(t, d)
	dec := codec.NewDecoder()

	got := roundTrip(t, c, dec, codec.EncodeSnapshotRequest(7))
	assert.Equal(t, codec.ErrorFrame{Seq: 7, Code: codec.CodeNotAuthenticated}, got)

	frame, err := codec.EncodeAuth(8, "admin", "wrong")
	require.NoError(t, err)
	assert.Equal(t, codec.ErrorFrame{Seq: 8, Code: codec.CodeAuthRejected}, roundTrip(t, c, dec, frame))
}

func TestDevice_SiblingDrop(t *testing.T) {
	d, err := Start("127.0.0.1:0", Config{
		SiblingDrop: true,
		Modules:     map[int][]int{1: {255, 0, 40, 0, 0, 0, 0, 0}},
	})
	require.NoError(t, err)
	defer d.Close()

	c := dial(t, d)
	dec := codec.NewDecoder()
	frame, err := codec.EncodeAuth(1, "", "")
	require.NoError(t, err)
	roundTrip(t, c, dec, frame)

	frame, err = codec.EncodeSetOutput(2, 1, 2, 255)
	require.NoError(t, err)
	roundTrip(t, c, dec, frame)
	assert.Equal(t, []int{0, 255, 0, 0, 0, 0, 0, 0}, d.Values()[1])
}

func TestDevice_CloseIsIdempotent(t *testing.T) {
	d, err := Start("127.0.0.1:0", Config{})
	require.NoError(t, err)
	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
}

func TestModulesFromTopology(t *testing.T) {
	topo := &device.Topology{Modules: []device.Module{{Number: 3, Type: device.ModuleExo8}}}
	mods := ModulesFromTopology(topo)
	assert.Equal(t, map[int][]int{3: make([]int, 8)}, mods)
	assert.Empty(t, ModulesFromTopology(nil))
}
