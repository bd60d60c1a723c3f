package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// BacktestConfig carries the simulated window for Backtest-mode clocks.
// Required when Config.Mode == "backtest".
type BacktestConfig struct {
	StartTime time.Time     `yaml:"start_time" toml:"start_time"`
	EndTime   time.Time     `yaml:"end_time" toml:"end_time"`
	Step      time.Duration `yaml:"step" toml:"step"`
}

// AcceleratedConfig carries the scale factor for Accelerated-mode
// clocks. Required when Config.Mode == "accelerated".
type AcceleratedConfig struct {
	Factor float64 `yaml:"factor" toml:"factor"`
}

// BusConfig configures the EventBus's execution mode, dispatch policy,
// and optional supplemented features (rotation, history).
type BusConfig struct {
	// Mode is "sync" or "async" — see dispatch.ExecutionMode.
	Mode string `yaml:"mode" toml:"mode"`

	// ExecutorKind is "inline" (no worker pool; only meaningful with
	// Mode=="async") or "thread_pool".
	ExecutorKind string `yaml:"executor_kind" toml:"executor_kind"`
	// ExecutorSize is the worker-pool goroutine count when
	// ExecutorKind=="thread_pool". Zero means runtime.NumCPU() workers.
	ExecutorSize int `yaml:"executor_size" toml:"executor_size"`

	// Policy is one of "immediate", "batch", "time", "hybrid".
	Policy         string `yaml:"policy" toml:"policy"`
	BatchN         int    `yaml:"batch_n" toml:"batch_n"`
	TimeIntervalMS int    `yaml:"time_interval_ms" toml:"time_interval_ms"`

	// RotateSubscribers enables the opt-in fairness rotation described
	// in dispatch.Dispatcher.SetRotateSubscribers.
	RotateSubscribers bool `yaml:"rotate_subscribers" toml:"rotate_subscribers"`
	// HistorySize bounds the optional per-type event replay ring; 0
	// disables it.
	HistorySize int `yaml:"history_size" toml:"history_size"`
}

// Config is the root configuration recognized by Engine.Initialize.
type Config struct {
	// Mode is one of "backtest", "realtime", "accelerated".
	Mode string `yaml:"mode" toml:"mode"`

	Backtest    BacktestConfig    `yaml:"backtest" toml:"backtest"`
	Accelerated AcceleratedConfig `yaml:"accelerated" toml:"accelerated"`
	Bus         BusConfig         `yaml:"bus" toml:"bus"`

	// EventQueueCapacity is advisory: nothing in the core validates or
	// enforces it.
	EventQueueCapacity int `yaml:"event_queue_capacity" toml:"event_queue_capacity"`
}

// DefaultConfig returns the baseline configuration applied before any
// file is parsed, matching the defaults-then-overlay order used
// throughout the config loader this is grounded on.
func DefaultConfig() Config {
	return Config{
		Mode: "realtime",
		Bus: BusConfig{
			Mode:         "sync",
			ExecutorKind: "inline",
			Policy:       "immediate",
		},
	}
}

// LoadConfig reads path, applying defaults first and then overlaying
// whatever the file specifies. The format is chosen by file extension:
// .yaml/.yml uses gopkg.in/yaml.v3, .toml uses BurntSushi/toml.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("engine: read config: %w", err)
	}

	cfg := DefaultConfig()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("engine: parse yaml config: %w", err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, fmt.Errorf("engine: parse toml config: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: unrecognized config extension %q", ErrInvalidArgument, ext)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the fields required by Mode and Bus.Policy are
// present and well-formed.
func (c *Config) Validate() error {
	switch c.Mode {
	case "backtest":
		if c.Backtest.EndTime.Before(c.Backtest.StartTime) {
			return fmt.Errorf("%w: backtest.end_time before backtest.start_time", ErrInvalidArgument)
		}
		if c.Backtest.Step <= 0 {
			return fmt.Errorf("%w: backtest.step must be positive", ErrInvalidArgument)
		}
	case "realtime":
	case "accelerated":
		if c.Accelerated.Factor <= 0 {
			return fmt.Errorf("%w: accelerated.factor must be positive", ErrInvalidArgument)
		}
	default:
		return fmt.Errorf("%w: unrecognized mode %q", ErrInvalidArgument, c.Mode)
	}

	switch c.Bus.Mode {
	case "sync", "async":
	default:
		return fmt.Errorf("%w: unrecognized bus.mode %q", ErrInvalidArgument, c.Bus.Mode)
	}

	switch c.Bus.Policy {
	case "immediate":
	case "batch":
		if c.Bus.BatchN <= 0 {
			return fmt.Errorf("%w: bus.batch_n must be positive", ErrInvalidArgument)
		}
	case "time":
		if c.Bus.TimeIntervalMS <= 0 {
			return fmt.Errorf("%w: bus.time_interval_ms must be positive", ErrInvalidArgument)
		}
	case "hybrid":
		if c.Bus.BatchN <= 0 || c.Bus.TimeIntervalMS <= 0 {
			return fmt.Errorf("%w: hybrid policy requires both bus.batch_n and bus.time_interval_ms", ErrInvalidArgument)
		}
	default:
		return fmt.Errorf("%w: unrecognized bus.policy %q", ErrInvalidArgument, c.Bus.Policy)
	}

	switch c.Bus.ExecutorKind {
	case "inline", "thread_pool":
	default:
		return fmt.Errorf("%w: unrecognized bus.executor_kind %q", ErrInvalidArgument, c.Bus.ExecutorKind)
	}
	return nil
}
