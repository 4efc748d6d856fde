// Package config handles configuration loading from YAML files and environment variables.
// Configuration precedence: environment variables > config file > defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a wrapper around time.Duration that supports YAML unmarshaling
// from human-readable strings like "1s", "500ms", "1m".
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements the yaml.Unmarshaler interface for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		parsed, err := time.ParseDuration(value.Value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value.Value, err)
		}
		d.Duration = parsed
		return nil
	default:
		return fmt.Errorf("unsupported duration format: %v", value.Kind)
	}
}

// MarshalYAML implements the yaml.Marshaler interface for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Config holds all configuration shared by the agent and desktop hosts.
type Config struct {
	Collection CollectionConfig `yaml:"collection"`
	Server     ServerConfig     `yaml:"server"`
	Pull       PullConfig       `yaml:"pull"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// CollectionConfig holds sampler settings.
type CollectionConfig struct {
	Interval      Duration `yaml:"interval"`
	Cadence       string   `yaml:"cadence"`
	SampleTimeout Duration `yaml:"sample_timeout"`
	CPUWindow     Duration `yaml:"cpu_window"`
	Processes     bool     `yaml:"processes"`
	TopProcesses  int      `yaml:"top_processes"`
}

// ServerConfig holds the HTTP/WebSocket listener settings of the headless agent.
type ServerConfig struct {
	Listen string `yaml:"listen"`
	Token  string `yaml:"token"`
}

// PullConfig paces on-demand queries. Rate is queries per second; 0 disables pacing.
type PullConfig struct {
	Rate  float64 `yaml:"rate"`
	Burst int     `yaml:"burst"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Collection: CollectionConfig{
			Interval:      Duration{1 * time.Second},
			Cadence:       "relative",
			SampleTimeout: Duration{10 * time.Second},
			CPUWindow:     Duration{250 * time.Millisecond},
			Processes:     true,
			TopProcesses:  0,
		},
		Server: ServerConfig{
			Listen: "127.0.0.1:9180",
		},
		Pull: PullConfig{
			Rate:  0,
			Burst: 1,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromBytes parses YAML configuration from a byte slice and merges with defaults.
// Environment variables take highest precedence and override values from the byte slice.
func LoadFromBytes(data []byte) (*Config, error) {
	cfg := DefaultConfig()

	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config data: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load reads configuration from a YAML file and merges with defaults.
// If path is empty or the file does not exist, only defaults and environment
// variables are used.
func Load(path string) (*Config, error) {
	if path == "" {
		return LoadFromBytes(nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// No file: defaults plus env overrides
		return LoadFromBytes(nil)
	}

	return LoadFromBytes(data)
}

// Locate searches standard config file paths and returns the first one found.
// Returns empty string if no config file exists.
func Locate() string {
	for _, p := range configSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// WriteConfig serializes the config to a YAML file at the given path.
// Creates parent directories if needed.
func WriteConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0640)
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) error {
	if listen := os.Getenv("SYSINFO_LISTEN"); listen != "" {
		cfg.Server.Listen = listen
	}
	if token := os.Getenv("SYSINFO_TOKEN"); token != "" {
		cfg.Server.Token = token
	}
	if level := os.Getenv("SYSINFO_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if interval := os.Getenv("SYSINFO_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err != nil {
			return fmt.Errorf("invalid SYSINFO_INTERVAL %q: %w", interval, err)
		}
		cfg.Collection.Interval = Duration{d}
	}
	return nil
}

// Validate checks that the configuration can drive a sampler.
func (c *Config) Validate() error {
	if c.Collection.Interval.Duration <= 0 {
		return fmt.Errorf("collection interval must be positive (got: %s)", c.Collection.Interval.Duration)
	}
	switch c.Collection.Cadence {
	case "relative", "aligned":
	default:
		return fmt.Errorf("unknown collection cadence %q (expected \"relative\" or \"aligned\")", c.Collection.Cadence)
	}
	if c.Collection.SampleTimeout.Duration <= 0 {
		return fmt.Errorf("sample timeout must be positive (got: %s)", c.Collection.SampleTimeout.Duration)
	}
	if c.Collection.CPUWindow.Duration <= 0 {
		return fmt.Errorf("cpu window must be positive (got: %s)", c.Collection.CPUWindow.Duration)
	}
	if c.Collection.TopProcesses < 0 {
		return fmt.Errorf("top_processes must not be negative (got: %d)", c.Collection.TopProcesses)
	}
	if c.Pull.Rate < 0 {
		return fmt.Errorf("pull rate must not be negative (got: %g)", c.Pull.Rate)
	}
	if c.Pull.Rate > 0 && c.Pull.Burst < 1 {
		return fmt.Errorf("pull burst must be at least 1 when rate is set (got: %d)", c.Pull.Burst)
	}
	return nil
}
