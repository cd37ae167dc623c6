package goshawk

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values can be written as Go duration
// strings ("30s", "1m30s") or bare integer seconds.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// MarshalYAML encodes the duration as a string.
func (d Duration) MarshalYAML() (any, error) { return d.String(), nil }

// UnmarshalYAML decodes a duration string or integer seconds.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var secs int64
	if err := node.Decode(&secs); err == nil {
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config holds the serving engine's tunables. Zero fields take the defaults
// from DefaultConfig.
type Config struct {
	// BindAddress is the TCP address to listen on, e.g. ":8080".
	BindAddress string `yaml:"bind_address"`

	// MaxConcurrency is the fixed worker pool size: at most this many
	// connections are processed in parallel.
	MaxConcurrency int `yaml:"max_concurrency"`

	// ConnectionBacklog is how many accepted connections may queue for a
	// worker. Connections beyond the backlog are closed at the transport
	// layer.
	ConnectionBacklog int `yaml:"connection_backlog"`

	// IdleTimeout closes a persistent connection that stays quiet between
	// requests.
	IdleTimeout Duration `yaml:"idle_timeout"`

	// ReadHeaderTimeout bounds reading the request line and header block
	// once the first byte has arrived.
	ReadHeaderTimeout Duration `yaml:"read_header_timeout"`

	// RequestTimeout bounds reading the request body; a slow body read past
	// the deadline aborts the request with 408.
	RequestTimeout Duration `yaml:"request_timeout"`

	// MaxBodySize caps the request body in bytes; larger bodies fail with
	// 413 before being buffered.
	MaxBodySize int64 `yaml:"max_body_size"`

	// MaxRequestsPerConn bounds how many requests one persistent connection
	// may carry before it is closed.
	MaxRequestsPerConn int `yaml:"max_requests_per_conn"`

	// ShutdownGracePeriod is how long in-flight requests get to finish after
	// a graceful-shutdown signal before their connections are force-closed.
	ShutdownGracePeriod Duration `yaml:"shutdown_grace_period"`

	// CORS, when set, wires the cross-origin middleware around the router's
	// chain.
	CORS *CORSConfig `yaml:"cors"`
}

// DefaultConfig returns a Config with all default values filled in.
func DefaultConfig() Config {
	return Config{
		BindAddress:         ":8080",
		MaxConcurrency:      256,
		ConnectionBacklog:   128,
		IdleTimeout:         Duration(60 * time.Second),
		ReadHeaderTimeout:   Duration(10 * time.Second),
		RequestTimeout:      Duration(30 * time.Second),
		MaxBodySize:         4 << 20, // 4 MiB
		MaxRequestsPerConn:  100,
		ShutdownGracePeriod: Duration(15 * time.Second),
	}
}

// LoadConfig reads a YAML config file over the defaults and validates it.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // operator-provided path
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return &cfg, nil
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.BindAddress == "" {
		c.BindAddress = def.BindAddress
	}
	if c.MaxConcurrency == 0 {
		c.MaxConcurrency = def.MaxConcurrency
	}
	if c.ConnectionBacklog == 0 {
		c.ConnectionBacklog = def.ConnectionBacklog
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = def.IdleTimeout
	}
	if c.ReadHeaderTimeout == 0 {
		c.ReadHeaderTimeout = def.ReadHeaderTimeout
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = def.RequestTimeout
	}
	if c.MaxBodySize == 0 {
		c.MaxBodySize = def.MaxBodySize
	}
	if c.MaxRequestsPerConn == 0 {
		c.MaxRequestsPerConn = def.MaxRequestsPerConn
	}
	if c.ShutdownGracePeriod == 0 {
		c.ShutdownGracePeriod = def.ShutdownGracePeriod
	}
	return c
}

// Validate rejects nonsensical settings.
func (c *Config) Validate() error {
	var errs []error
	if c.MaxConcurrency < 0 {
		errs = append(errs, fmt.Errorf("max_concurrency must not be negative, got %d", c.MaxConcurrency))
	}
	if c.ConnectionBacklog < 0 {
		errs = append(errs, fmt.Errorf("connection_backlog must not be negative, got %d", c.ConnectionBacklog))
	}
	if c.MaxBodySize < 0 {
		errs = append(errs, fmt.Errorf("max_body_size must not be negative, got %d", c.MaxBodySize))
	}
	if c.IdleTimeout < 0 || c.ReadHeaderTimeout < 0 || c.RequestTimeout < 0 || c.ShutdownGracePeriod < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	return errors.Join(errs...)
}
