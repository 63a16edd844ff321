// Package model defines the data structures for botprobe's configuration,
// observed responses, and per-attempt records.
package model

import (
	"fmt"
	"os"
	"time"

	yamlv3 "gopkg.in/yaml.v3"
)

// Defaults applied by DefaultProbeConfig.
const (
	DefaultMaxWaitSec      = 120
	DefaultPollIntervalSec = 5
	DefaultMaxRetries      = 3
	DefaultRetryDelaySec   = 60
)

// ProbeConfig governs one verification run against a responder.
type ProbeConfig struct {
	ResponderID         string `yaml:"responder_id"`
	ChannelID           string `yaml:"channel_id"`
	MaxWaitSec          int    `yaml:"max_wait_sec"`
	PollIntervalSec     int    `yaml:"poll_interval_sec"`
	MaxRetries          int    `yaml:"max_retries"`
	RetryDelaySec       int    `yaml:"retry_delay_sec"`
	AutoDeleteOnFailure bool   `yaml:"auto_delete_on_failure"`
}

// DefaultProbeConfig returns a config with defaults filled in. Loaders
// unmarshal on top of it so absent fields keep their defaults while an
// explicit zero (e.g. retry_delay_sec: 0) sticks.
func DefaultProbeConfig() ProbeConfig {
	return ProbeConfig{
		MaxWaitSec:          DefaultMaxWaitSec,
		PollIntervalSec:     DefaultPollIntervalSec,
		MaxRetries:          DefaultMaxRetries,
		RetryDelaySec:       DefaultRetryDelaySec,
		AutoDeleteOnFailure: true,
	}
}

// LoadProbeConfig reads a YAML config file over the defaults.
func LoadProbeConfig(path string) (ProbeConfig, error) {
	cfg := DefaultProbeConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yamlv3.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate reports the first configuration fault. These are the only
// errors a verification run raises before absorbing failures into the
// response model.
func (c ProbeConfig) Validate() error {
	if c.ResponderID == "" {
		return fmt.Errorf("responder_id is required")
	}
	if c.ChannelID == "" {
		return fmt.Errorf("channel_id is required")
	}
	if c.MaxWaitSec <= 0 {
		return fmt.Errorf("max_wait_sec must be > 0, got %d", c.MaxWaitSec)
	}
	if c.PollIntervalSec <= 0 {
		return fmt.Errorf("poll_interval_sec must be > 0, got %d", c.PollIntervalSec)
	}
	if c.PollIntervalSec > c.MaxWaitSec {
		return fmt.Errorf("poll_interval_sec %d exceeds max_wait_sec %d", c.PollIntervalSec, c.MaxWaitSec)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be >= 1, got %d", c.MaxRetries)
	}
	if c.RetryDelaySec < 0 {
		return fmt.Errorf("retry_delay_sec must be >= 0, got %d", c.RetryDelaySec)
	}
	return nil
}

func (c ProbeConfig) MaxWait() time.Duration {
	return time.Duration(c.MaxWaitSec) * time.Second
}

func (c ProbeConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSec) * time.Second
}

func (c ProbeConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelaySec) * time.Second
}
