// Package config defines service configuration and its loading.
//
// Values are layered: defaults from New, then an optional YAML file, then
// environment variables. See Load.
package config

import (
	"fmt"
	"runtime"
	"strings"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogJSON switches log output to JSON lines.
	LogJSON bool `koanf:"log_json"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// EventQueueSize bounds the in-memory event queue.
	EventQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of evaluation workers.
	WorkerCount int `koanf:"worker_count"`

	// ShardCount configures the number of shards in the result store.
	ShardCount int `koanf:"shard_count"`

	// MaxResults caps how many event results the store retains.
	MaxResults int `koanf:"max_results"`

	// ElectronEffectiveAreas and MuonEffectiveAreas are paths to the
	// effective-area tables (text or YAML) for the rhoArea correction.
	ElectronEffectiveAreas string `koanf:"electron_ea"`
	MuonEffectiveAreas     string `koanf:"muon_ea"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		Addr:                   ":9080",
		EventQueueSize:         10_000,
		WorkerCount:            runtime.NumCPU(),
		ShardCount:             8,
		MaxResults:             100_000,
		ElectronEffectiveAreas: "data/effAreaElectrons_cone03_pfNeuHadronsAndPhotons.txt",
		MuonEffectiveAreas:     "data/effAreaMuons_cone03_pfNeuHadronsAndPhotons.txt",
	}
}

// Validate reports the first invalid setting, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.EventQueueSize < 1:
		return fmt.Errorf("%w: queue_size must be positive, got %d", ErrInvalidConfig, c.EventQueueSize)
	case c.WorkerCount < 1:
		return fmt.Errorf("%w: worker_count must be positive, got %d", ErrInvalidConfig, c.WorkerCount)
	case c.ShardCount < 1:
		return fmt.Errorf("%w: shard_count must be positive, got %d", ErrInvalidConfig, c.ShardCount)
	case c.MaxResults < 0:
		return fmt.Errorf("%w: max_results must not be negative, got %d", ErrInvalidConfig, c.MaxResults)
	case strings.TrimSpace(c.ElectronEffectiveAreas) == "":
		return fmt.Errorf("%w: electron_ea must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.MuonEffectiveAreas) == "":
		return fmt.Errorf("%w: muon_ea must not be empty", ErrInvalidConfig)
	}
	return nil
}
