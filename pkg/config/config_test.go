package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urmzd/ipcom/pkg/device"
)

const sample = `
device:
  address: 192.168.1.50:5000
  username: admin
  password: secret
session:
  poll_interval: 500ms
  keepalive_interval: 1m
  auto_reconnect: false
  verify_window: 0
  command_ttl: 0s
  backoff:
    initial: 1s
    jitter: 0
    stable_after: 2m
api:
  address: 127.0.0.1:9090
recording:
  enabled: true
  retention: 720h
topology:
  modules:
    - number: 4
      type: ExoStore
      outputs: ["Salon D", "Salon M"]
`

func TestParse_MergesOverDefaults(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	sc := cfg.SessionConfig()
	assert.Equal(t, "tcp", sc.Network)
	assert.Equal(t, "192.168.1.50:5000", sc.Address)
	assert.Equal(t, "admin", sc.Username)
	assert.Equal(t, 500*time.Millisecond, sc.PollInterval)
	assert.Equal(t, time.Minute, sc.KeepAliveInterval)
	assert.Equal(t, 250*time.Millisecond, sc.DispatchInterval)
	assert.False(t, sc.AutoReconnect)
	assert.Zero(t, sc.VerifyWindow)
	assert.Equal(t, time.Second, sc.Backoff.Initial)
	assert.Equal(t, 30*time.Second, sc.Backoff.Max)
	assert.Zero(t, sc.Backoff.Jitter)
	assert.Equal(t, 2*time.Minute, sc.Backoff.StableAfter)
	assert.Zero(t, sc.CommandTTL)

	require.NotNil(t, sc.Topology)
	partner, _, ok := sc.Topology.Partner(device.OutputRef{Module: 4, Output: 2})
	require.True(t, ok)
	assert.Equal(t, 1, partner.Output)

	assert.Equal(t, "127.0.0.1:9090", cfg.APIAddress())
	assert.True(t, cfg.Recording.Enabled)
	assert.Equal(t, 720*time.Hour, cfg.Recording.Retention)
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("device:\n  address: 10.0.0.1:5000\n"))
	require.NoError(t, err)

	sc := cfg.SessionConfig()
	assert.True(t, sc.AutoReconnect)
	assert.Equal(t, 350*time.Millisecond, sc.PollInterval)
	assert.Equal(t, 3, sc.VerifyWindow)
	assert.Equal(t, 10*time.Second, sc.CommandTTL)
	assert.Zero(t, sc.Backoff.StableAfter)
	assert.Nil(t, sc.Topology)
	assert.Equal(t, "0.0.0.0:8080", cfg.APIAddress())
}

func TestParse_Rejects(t *testing.T) {
	cases := map[string]string{
		"empty":            "",
		"missing device":   "api:\n  address: x\n",
		"missing address":  "device:\n  username: a\n",
		"unknown key":      "device:\n  address: a\n  colour: red\n",
		"bad duration":     "device:\n  address: a\nsession:\n  poll_interval: soon\n",
		"bad module type":  "device:\n  address: a\ntopology:\n  modules:\n    - number: 1\n      type: Exo9\n",
		"too many outputs": "device:\n  address: a\ntopology:\n  modules:\n    - {number: 1, type: Exo8, outputs: [a,b,c,d,e,f,g,h,i]}\n",
		"duplicate module": "device:\n  address: a\ntopology:\n  modules:\n    - {number: 1, type: Exo8}\n    - {number: 1, type: ExoDim}\n",
		"not yaml":         "device: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.ErrorIs(t, err, device.ErrValidation)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ipcom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.Device.Password)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
