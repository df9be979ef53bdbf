package config

import (
	"fmt"
	"time"
)

// Config represents a crucible.yaml configuration file.
// All values are optional and act as defaults for crucible command flags.
// CLI flags always override config values.
type Config struct {
	Pool      PoolConfig      `yaml:"pool"`
	Limits    LimitsConfig    `yaml:"limits"`
	Tuner     TunerConfig     `yaml:"tuner"`
	Handshake HandshakeConfig `yaml:"handshake"`
	Shm       ShmConfig       `yaml:"shm"`
	Storage   StorageConfig   `yaml:"storage"`
	Adapter   AdapterConfig   `yaml:"adapter"`
}

// PoolConfig holds worker pool defaults.
type PoolConfig struct {
	Size       int    `yaml:"size"`
	Transport  string `yaml:"transport"`
	WorkerPath string `yaml:"worker_path"`
	MemorySize int    `yaml:"memory_size"`
	// StartTimeout bounds pool startup.
	StartTimeout Duration `yaml:"start_timeout"`
}

// LimitsConfig holds request size limits. Zero keeps the built-in limit.
type LimitsConfig struct {
	MaxBufferLength int `yaml:"max_buffer_length"`
	MaxImageSize    int `yaml:"max_image_size"`
	MaxMatrixSize   int `yaml:"max_matrix_size"`
}

// TunerConfig holds warmup tuner defaults.
type TunerConfig struct {
	Disabled   bool  `yaml:"disabled"`
	Size       int   `yaml:"size"`
	Candidates []int `yaml:"candidates,omitempty"`
}

// HandshakeConfig selects the control cell wait backend.
type HandshakeConfig struct {
	// Wait is auto, futex or poll.
	Wait         string   `yaml:"wait"`
	PollInterval Duration `yaml:"poll_interval"`
}

// ShmConfig holds shared memory defaults.
type ShmConfig struct {
	Dir string `yaml:"dir"`
}

// StorageConfig holds benchmark report storage defaults.
type StorageConfig struct {
	Dataset     string `yaml:"dataset"`
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// AdapterConfig holds bench-completed publisher defaults.
type AdapterConfig struct {
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// Validate checks values that flags would also reject.
func (c *Config) Validate() error {
	switch c.Pool.Transport {
	case "", "inprocess", "process":
	default:
		return fmt.Errorf("pool.transport: unknown transport %q", c.Pool.Transport)
	}
	if c.Pool.Size < 0 {
		return fmt.Errorf("pool.size must be >= 0, got %d", c.Pool.Size)
	}
	switch c.Handshake.Wait {
	case "", "auto", "futex", "poll":
	default:
		return fmt.Errorf("handshake.wait: unknown backend %q", c.Handshake.Wait)
	}
	for _, v := range c.Tuner.Candidates {
		if v <= 0 {
			return fmt.Errorf("tuner.candidates must be positive, got %d", v)
		}
	}
	switch c.Storage.Backend {
	case "", "fs", "s3":
	default:
		return fmt.Errorf("storage.backend: unknown backend %q", c.Storage.Backend)
	}
	switch c.Adapter.Type {
	case "", "webhook", "redis":
	default:
		return fmt.Errorf("adapter.type: unknown adapter %q", c.Adapter.Type)
	}
	return nil
}
