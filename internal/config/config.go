// Package config provides configuration management for the compile
// orchestrator using Viper for flexible configuration loading from files,
// environment variables, and defaults.
//
// Adapted from the teacher's internal/config.Config: same
// viper.Unmarshal-plus-defaults shape and env-prefix override convention,
// retargeted from templar's dev-server/scanner settings to the
// orchestrator's executor, queue, and incremental-mode settings (spec.md
// §4.5 step 1, §6's "bloop.zinc.disabled" toggle).
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the environment-variable prefix Viper binds settings under,
// e.g. COMPILEORCH_EXECUTORS_CPUWORKERS.
const EnvPrefix = "COMPILEORCH"

// Config holds every orchestrator-tunable setting.
type Config struct {
	Executors  ExecutorsConfig  `yaml:"executors"`
	Queues     QueuesConfig     `yaml:"queues"`
	Timeouts   TimeoutsConfig   `yaml:"timeouts"`
	Orphan     OrphanConfig     `yaml:"orphan"`
	Incremental IncrementalConfig `yaml:"incremental"`
	OutRoot    string           `yaml:"out_root" mapstructure:"out_root"`
}

// ExecutorsConfig sizes the two pools spec.md §5 requires: one for
// CPU-bound engine work, one for parallel background I/O.
type ExecutorsConfig struct {
	CPUWorkers int `yaml:"cpu_workers" mapstructure:"cpu_workers"`
	IOWorkers  int `yaml:"io_workers" mapstructure:"io_workers"`
}

// QueuesConfig holds background-task buffer sizes. They are loaded and
// defaulted here; internal/compile does not read them, and its background
// tasks run without a queue.
type QueuesConfig struct {
	TaskBufferSize   int `yaml:"task_buffer_size" mapstructure:"task_buffer_size"`
	ResultBufferSize int `yaml:"result_buffer_size" mapstructure:"result_buffer_size"`
}

// TimeoutsConfig bounds long-running orchestrator operations.
type TimeoutsConfig struct {
	Compile time.Duration `yaml:"compile"`
	Shutdown time.Duration `yaml:"shutdown"`
}

// OrphanConfig configures the internal/orphan sweep.
type OrphanConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
}

// IncrementalConfig mirrors spec.md §6's single recognized process
// property: bloop.zinc.disabled.
type IncrementalConfig struct {
	Disabled bool `yaml:"disabled"`
}

// Load reads configuration from whatever Viper has already been pointed at
// (a config file, environment variables under EnvPrefix, or flags bound by
// the caller), applies defaults, validates, and returns it.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Executors.CPUWorkers <= 0 {
		cfg.Executors.CPUWorkers = 1
	}
	if cfg.Executors.IOWorkers <= 0 {
		cfg.Executors.IOWorkers = 4
	}
	if cfg.Queues.TaskBufferSize <= 0 {
		cfg.Queues.TaskBufferSize = 32
	}
	if cfg.Queues.ResultBufferSize <= 0 {
		cfg.Queues.ResultBufferSize = 32
	}
	if cfg.Timeouts.Compile <= 0 {
		cfg.Timeouts.Compile = 10 * time.Minute
	}
	if cfg.Timeouts.Shutdown <= 0 {
		cfg.Timeouts.Shutdown = 30 * time.Second
	}
	if cfg.Orphan.TTL <= 0 {
		cfg.Orphan.TTL = 24 * time.Hour
	}
	if cfg.OutRoot == "" {
		cfg.OutRoot = "out"
	}

	// bloop.zinc.disabled: environment toggle wins over file/default.
	if v := viper.GetString("bloop.zinc.disabled"); v != "" {
		cfg.Incremental.Disabled = viper.GetBool("bloop.zinc.disabled")
	}
}

func validate(cfg *Config) error {
	if err := validatePath(cfg.OutRoot); err != nil {
		return fmt.Errorf("out_root: %w", err)
	}
	if cfg.Executors.CPUWorkers < 1 {
		return fmt.Errorf("executors.cpu_workers must be >= 1")
	}
	if cfg.Executors.IOWorkers < 1 {
		return fmt.Errorf("executors.io_workers must be >= 1")
	}
	return nil
}

// validatePath rejects path traversal and dangerous shell metacharacters in
// a configured filesystem path, matching the teacher's security posture.
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}
	clean := filepath.Clean(path)
	if strings.Contains(clean, "..") {
		return fmt.Errorf("path contains traversal: %s", path)
	}
	for _, char := range []string{";", "&", "|", "$", "`", "<", ">", "\"", "'"} {
		if strings.Contains(clean, char) {
			return fmt.Errorf("path contains dangerous character %q: %s", char, path)
		}
	}
	return nil
}
