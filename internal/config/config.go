// Package config loads the runtime configuration from YAML with sensible
// development defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete service configuration.
type Config struct {
	// ListenAddr is the HTTP listen address.
	ListenAddr string `yaml:"listen_addr"`

	// StorageRoot is the base path for the database and public assets.
	StorageRoot string `yaml:"storage_root"`

	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Fetch      FetchConfig      `yaml:"fetch"`
	Lighthouse LighthouseConfig `yaml:"lighthouse"`
	Sweeper    SweeperConfig    `yaml:"sweeper"`
}

// PipelineConfig bounds the analysis worker pool and per-run execution.
type PipelineConfig struct {
	Workers     int           `yaml:"workers"`
	QueueSize   int           `yaml:"queue_size"`
	RunTimeout  time.Duration `yaml:"run_timeout"`
	MaxAttempts int           `yaml:"max_attempts"`
}

// FetchConfig controls the document fetch step.
type FetchConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// LighthouseConfig locates and bounds the external audit CLI.
type LighthouseConfig struct {
	// Path is the lighthouse binary; resolved via PATH when relative.
	Path    string        `yaml:"path"`
	Timeout time.Duration `yaml:"timeout"`
}

// SweeperConfig controls reclassification of stuck scans.
type SweeperConfig struct {
	// StaleAfter is how long a scan may sit in processing before it is
	// considered orphaned.
	StaleAfter time.Duration `yaml:"stale_after"`
	Interval   time.Duration `yaml:"interval"`
}

// Default returns a Config populated with development defaults.
func Default() *Config {
	return &Config{
		ListenAddr:  ":8080",
		StorageRoot: "./data",
		Pipeline: PipelineConfig{
			Workers:     4,
			QueueSize:   64,
			RunTimeout:  300 * time.Second,
			MaxAttempts: 3,
		},
		Fetch: FetchConfig{
			Timeout: 200 * time.Second,
		},
		Lighthouse: LighthouseConfig{
			Path:    "lighthouse",
			Timeout: 120 * time.Second,
		},
		Sweeper: SweeperConfig{
			StaleAfter: 10 * time.Minute,
			Interval:   time.Minute,
		},
	}
}

// Load reads a YAML config file over the defaults. A missing path returns
// the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
