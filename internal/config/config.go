package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/courier/internal/core/observability/log"
)

var ErrInvalid = errors.New("invalid config")

// Config describes a courier host in YAML.
type Config struct {
	Log        Log        `json:"log" yaml:"log"`
	Dispatcher Dispatcher `json:"dispatcher" yaml:"dispatcher"`
	Loop       Loop       `json:"loop" yaml:"loop"`
	Monitor    Monitor    `json:"monitor" yaml:"monitor"`
}

type Log struct {
	Level string `json:"level" yaml:"level"`
}

type Dispatcher struct {
	Name           string `json:"name,omitempty" yaml:"name,omitempty"`
	RegistryShards int    `json:"registry_shards,omitempty" yaml:"registry_shards,omitempty"`
}

type Loop struct {
	FixedStep     float64 `json:"fixed_step,omitempty" yaml:"fixed_step,omitempty"`
	FrameRate     int     `json:"frame_rate,omitempty" yaml:"frame_rate,omitempty"`
	MaxFixedSteps int     `json:"max_fixed_steps,omitempty" yaml:"max_fixed_steps,omitempty"`
}

type Monitor struct {
	Enabled bool          `json:"enabled" yaml:"enabled"`
	Addr    string        `json:"addr,omitempty" yaml:"addr,omitempty"`
	Path    string        `json:"path,omitempty" yaml:"path,omitempty"`
	Backlog int           `json:"backlog,omitempty" yaml:"backlog,omitempty"`
	Timeout time.Duration `json:"write_timeout,omitempty" yaml:"write_timeout,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Log:        Log{Level: "info"},
		Dispatcher: Dispatcher{Name: "courier", RegistryShards: 8},
		Loop:       Loop{FixedStep: 0.02, FrameRate: 60, MaxFixedSteps: 5},
		Monitor: Monitor{
			Addr:    ":8090",
			Path:    "/events",
			Backlog: 256,
			Timeout: 5 * time.Second,
		},
	}
}

// Load reads a YAML file. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer func() { _ = f.Close() }()
	return LoadYAML(f)
}

// LoadYAML decodes r over the defaults and validates the result. Unknown keys
// are rejected.
func LoadYAML(r io.Reader) (*Config, error) {
	c := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Parse is LoadYAML over an in-memory document.
func Parse(data []byte) (*Config, error) {
	return LoadYAML(bytes.NewReader(data))
}

func (c *Config) Validate() error {
	var errs []error
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Dispatcher.RegistryShards <= 0 {
		errs = append(errs, fmt.Errorf("dispatcher.registry_shards must be positive, got %d", c.Dispatcher.RegistryShards))
	}
	if c.Loop.FixedStep <= 0 {
		errs = append(errs, fmt.Errorf("loop.fixed_step must be positive, got %v", c.Loop.FixedStep))
	}
	if c.Loop.FrameRate <= 0 {
		errs = append(errs, fmt.Errorf("loop.frame_rate must be positive, got %d", c.Loop.FrameRate))
	}
	if c.Loop.MaxFixedSteps <= 0 {
		errs = append(errs, fmt.Errorf("loop.max_fixed_steps must be positive, got %d", c.Loop.MaxFixedSteps))
	}
	if c.Monitor.Enabled {
		if c.Monitor.Addr == "" {
			errs = append(errs, errors.New("monitor.addr is required when the monitor is enabled"))
		}
		if c.Monitor.Path == "" || c.Monitor.Path[0] != '/' {
			errs = append(errs, fmt.Errorf("monitor.path must start with '/', got %q", c.Monitor.Path))
		}
		if c.Monitor.Backlog <= 0 {
			errs = append(errs, fmt.Errorf("monitor.backlog must be positive, got %d", c.Monitor.Backlog))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// LogLevel returns the parsed log level.
func (c *Config) LogLevel() log.Level {
	level, _ := log.ParseLevel(c.Log.Level)
	return level
}
