// Package config loads and validates the lock broker configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/xeipuuv/gojsonschema"
)

// configSchema constrains the configuration document before it is
// unmarshalled, so a malformed file fails with field-level errors instead of
// silently producing zero values.
const configSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "listen_addr":        {"type": "string", "minLength": 1},
    "metrics_addr":       {"type": "string"},
    "default_timeout_ms": {"type": "integer", "minimum": 0},
    "max_locks":          {"type": "integer", "minimum": 1}
  },
  "additionalProperties": false
}`

// Config holds the lock broker settings.
type Config struct {
	// ListenAddr is the gRPC listen address.
	ListenAddr string `json:"listen_addr"`
	// MetricsAddr is the metrics HTTP listen address; empty disables metrics.
	MetricsAddr string `json:"metrics_addr"`
	// DefaultTimeoutMS bounds acquire waits when the client sends none.
	DefaultTimeoutMS int `json:"default_timeout_ms"`
	// MaxLocks caps how many distinct named locks may be held at once.
	MaxLocks int `json:"max_locks"`
}

// Default returns the standard broker configuration.
func Default() Config {
	return Config{
		ListenAddr:       ":9650",
		MetricsAddr:      ":9651",
		DefaultTimeoutMS: 5000,
		MaxLocks:         10000,
	}
}

// DefaultTimeout returns DefaultTimeoutMS as a duration.
func (c Config) DefaultTimeout() time.Duration {
	return time.Duration(c.DefaultTimeoutMS) * time.Millisecond
}

// Load reads path, validates the document against the configuration schema
// and merges it over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(configSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return cfg, fmt.Errorf("failed to validate config: %w", err)
	}
	if !result.Valid() {
		errs := result.Errors()
		if len(errs) > 0 {
			return cfg, fmt.Errorf("invalid config: %s: %s", errs[0].Field(), errs[0].Description())
		}
		return cfg, fmt.Errorf("invalid config")
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.ListenAddr == "" {
		return cfg, fmt.Errorf("invalid config: listen_addr cannot be empty")
	}
	return cfg, nil
}
