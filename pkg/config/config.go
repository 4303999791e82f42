// Package config loads the YAML configuration file shared by the ipcom commands.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/urmzd/ipcom/pkg/device"
	"github.com/urmzd/ipcom/pkg/device/schema"
	"github.com/urmzd/ipcom/pkg/session"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaDoc []byte

const schemaName = "config"

// Config is the root of the configuration file.
type Config struct {
	Device    Device          `yaml:"device"`
	Session   Session         `yaml:"session"`
	API       API             `yaml:"api"`
	Recording Recording       `yaml:"recording"`
	Log       Log             `yaml:"log"`
	Topology  device.Topology `yaml:"topology"`
}

// Device addresses the controller.
type Device struct {
	Network  string `yaml:"network"`
	Address  string `yaml:"address"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	BaudRate int    `yaml:"baud_rate"`
}

// Session overrides session defaults. Zero values keep the default.
type Session struct {
	AutoReconnect      *bool          `yaml:"auto_reconnect"`
	ConnectTimeout     time.Duration  `yaml:"connect_timeout"`
	AuthTimeout        time.Duration  `yaml:"auth_timeout"`
	WriteTimeout       time.Duration  `yaml:"write_timeout"`
	KeepAliveInterval  time.Duration  `yaml:"keepalive_interval"`
	KeepAliveGrace     time.Duration  `yaml:"keepalive_grace"`
	PollInterval       time.Duration  `yaml:"poll_interval"`
	DispatchInterval   time.Duration  `yaml:"dispatch_interval"`
	DispatchBatch      int            `yaml:"dispatch_batch"`
	CommandTimeout     time.Duration  `yaml:"command_timeout"`
	CommandTTL         *time.Duration `yaml:"command_ttl"` // 0s disables expiry
	QueueCapacity      int            `yaml:"queue_capacity"`
	MalformedTolerance int            `yaml:"malformed_tolerance"`
	VerifyWindow       *int           `yaml:"verify_window"`
	RestoreSiblings    bool           `yaml:"restore_siblings"`
	Backoff            Backoff        `yaml:"backoff"`
}

// Backoff overrides the reconnect delay sequence.
type Backoff struct {
	Initial    time.Duration `yaml:"initial"`
	Max        time.Duration `yaml:"max"`
	Multiplier float64       `yaml:"multiplier"`
	Jitter     *float64      `yaml:"jitter"`

	StableAfter time.Duration `yaml:"stable_after"`
}

// API configures the HTTP surface.
type API struct {
	Address     string   `yaml:"address"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// Recording configures the SQLite session recorder.
type Recording struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`

	// Retention prunes finished recordings older than this at startup. Zero keeps everything.
	Retention time.Duration `yaml:"retention"`
}

// Log configures the global logger.
type Log struct {
	Level string `yaml:"level"`
}

// Load reads, validates and decodes the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse validates data against the embedded schema and decodes it.
func Parse(data []byte) (*Config, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: invalid YAML: %v", device.ErrValidation, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: empty configuration", device.ErrValidation)
	}

	v := schema.NewValidator()
	v.Register(schemaName, schemaDoc)
	if err := v.Validate(schemaName, doc); err != nil {
		return nil, fmt.Errorf("%w: %v", device.ErrValidation, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", device.ErrValidation, err)
	}
	if err := cfg.Topology.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SessionConfig merges the file over session.DefaultConfig.
func (c *Config) SessionConfig() session.Config {
	sc := session.DefaultConfig(c.Device.Address)
	if c.Device.Network != "" {
		sc.Network = c.Device.Network
	}
	sc.Username = c.Device.Username
	sc.Password = c.Device.Password
	sc.BaudRate = c.Device.BaudRate
	if len(c.Topology.Modules) > 0 {
		topo := c.Topology
		sc.Topology = &topo
	}

	s := c.Session
	if s.AutoReconnect != nil {
		sc.AutoReconnect = *s.AutoReconnect
	}
	override(&sc.ConnectTimeout, s.ConnectTimeout)
	override(&sc.AuthTimeout, s.AuthTimeout)
	override(&sc.WriteTimeout, s.WriteTimeout)
	override(&sc.KeepAliveInterval, s.KeepAliveInterval)
	override(&sc.KeepAliveGrace, s.KeepAliveGrace)
	override(&sc.PollInterval, s.PollInterval)
	override(&sc.DispatchInterval, s.DispatchInterval)
	override(&sc.CommandTimeout, s.CommandTimeout)
	override(&sc.Backoff.Initial, s.Backoff.Initial)
	override(&sc.Backoff.Max, s.Backoff.Max)
	override(&sc.Backoff.StableAfter, s.Backoff.StableAfter)
	if s.CommandTTL != nil {
		sc.CommandTTL = *s.CommandTTL
	}
	if s.DispatchBatch > 0 {
		sc.DispatchBatch = s.DispatchBatch
	}
	if s.QueueCapacity > 0 {
		sc.QueueCapacity = s.QueueCapacity
	}
	if s.MalformedTolerance > 0 {
		sc.MalformedTolerance = s.MalformedTolerance
	}
	if s.VerifyWindow != nil {
		sc.VerifyWindow = *s.VerifyWindow
	}
	sc.RestoreSiblings = s.RestoreSiblings
	if s.Backoff.Multiplier > 0 {
		sc.Backoff.Multiplier = s.Backoff.Multiplier
	}
	if s.Backoff.Jitter != nil {
		sc.Backoff.Jitter = *s.Backoff.Jitter
	}
	return sc
}

// APIAddress returns the HTTP listen address.
func (c *Config) APIAddress() string {
	if c.API.Address == "" {
		return "0.0.0.0:8080"
	}
	return c.API.Address
}

func override(dst *time.Duration, v time.Duration) {
	if v > 0 {
		*dst = v
	}
}
