// Package config provides the unified configuration for the mempool
// framework. A single Config structure covers chunk sizing, the idle-memory
// ceiling, handle checking, and the maintenance sweep cadence, so every
// embedding process configures pooling the same way.
//
// Example usage:
//
//	cfg := config.DefaultConfig()
//	cfg.IdleLimitBytes = 32 << 20
//	cfg.Sweep.Interval = 30 * time.Second
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/mempool/pkg/errors"
)

// Defaults carried from long-running proxy deployments of chunked pooling.
const (
	// DefaultChunkSize is the target backing size of one chunk in bytes.
	DefaultChunkSize = 16 * 1024
	// MaxChunkSize caps a single chunk's backing size.
	MaxChunkSize = 256 * 1024
	// DefaultIdleLimitBytes is the soft ceiling on aggregate idle memory.
	DefaultIdleLimitBytes = 64 << 20
	// DefaultSweepInterval is the recommended maintenance cadence.
	DefaultSweepInterval = 60 * time.Second
	// DefaultMaxChunkAge is how long a fully idle chunk survives sweeps.
	DefaultMaxChunkAge = 3 * DefaultSweepInterval
)

// Config is the configuration for a pool registry and its maintenance sweep.
type Config struct {
	// Chunk controls how pools grow and shrink backing storage
	Chunk ChunkConfig `yaml:"chunk" json:"chunk"`

	// IdleLimitBytes is the soft ceiling on aggregate idle memory across
	// all pools. Pools over the limit are preferentially reclaimed by the
	// sweep; this is advisory, never a hard cap. Zero means no idle memory
	// is tolerated; a negative value disables the limit.
	IdleLimitBytes int64 `yaml:"idle_limit_bytes" json:"idle_limit_bytes"`

	// Checked enables handle validation: double releases and releases of
	// foreign handles fail fatally instead of corrupting pool state.
	// Intended for tests and debug deployments; the production contract
	// remains "callers must not misuse handles".
	Checked bool `yaml:"checked" json:"checked"`

	// ZeroOnRelease zeroes raw slots when they are returned to the pool
	ZeroOnRelease bool `yaml:"zero_on_release" json:"zero_on_release"`

	// Sweep controls the periodic maintenance pass
	Sweep SweepConfig `yaml:"sweep" json:"sweep"`
}

// ChunkConfig controls chunk sizing for all pools created by a registry.
type ChunkConfig struct {
	// Size is the target backing size of one chunk in bytes. A pool's
	// chunk capacity is Size divided by its object size, clamped to a
	// sane slot range.
	Size int `yaml:"size" json:"size"`
}

// SweepConfig controls the reclamation sweep cadence.
type SweepConfig struct {
	// Interval between maintenance passes
	Interval time.Duration `yaml:"interval" json:"interval"`
	// MaxChunkAge is how long a fully idle chunk must go unreferenced
	// before the sweep returns it to the general heap
	MaxChunkAge time.Duration `yaml:"max_chunk_age" json:"max_chunk_age"`
}

// UnmarshalYAML accepts humane duration strings ("30s", "2m") for the
// sweep settings. Absent fields keep their current values.
func (s *SweepConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Interval    string `yaml:"interval"`
		MaxChunkAge string `yaml:"max_chunk_age"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	if raw.Interval != "" {
		d, err := time.ParseDuration(raw.Interval)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeConfig, "invalid sweep interval")
		}
		s.Interval = d
	}
	if raw.MaxChunkAge != "" {
		d, err := time.ParseDuration(raw.MaxChunkAge)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeConfig, "invalid max chunk age")
		}
		s.MaxChunkAge = d
	}
	return nil
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() *Config {
	return &Config{
		Chunk: ChunkConfig{
			Size: DefaultChunkSize,
		},
		IdleLimitBytes: DefaultIdleLimitBytes,
		Sweep: SweepConfig{
			Interval:    DefaultSweepInterval,
			MaxChunkAge: DefaultMaxChunkAge,
		},
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Chunk.Size <= 0 {
		return errors.New(errors.ErrorTypeConfig, "chunk size must be positive")
	}
	if c.Chunk.Size > MaxChunkSize {
		return errors.Newf(errors.ErrorTypeConfig,
			"chunk size %d exceeds maximum %d", c.Chunk.Size, MaxChunkSize)
	}
	if c.Sweep.Interval <= 0 {
		return errors.New(errors.ErrorTypeConfig, "sweep interval must be positive")
	}
	if c.Sweep.MaxChunkAge < 0 {
		return errors.New(errors.ErrorTypeConfig, "max chunk age must not be negative")
	}
	return nil
}

// Load reads a Config from a YAML file and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to read config file")
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse config file")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
