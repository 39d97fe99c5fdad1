package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration decodes YAML strings like "30s" or bare integers (seconds) into
// a time.Duration
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var secs int64
	if err := value.Decode(&secs); err == nil {
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}

	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("bad duration: %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("bad duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// Std returns the wrapped time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// DefaultPerfEvents is the counter set sampled for every measured dispatch
const DefaultPerfEvents = "cycles,instructions,task-clock,context-switches," +
	"cache-misses,L1-dcache-load-misses,LLC-load-misses," +
	"page-faults,major-faults,minor-faults"

// Config is the controller configuration. Zero values are filled in by
// Default; Load overlays a YAML file on top of the defaults.
type Config struct {
	Listen     string `yaml:"listen"`
	DockerHost string `yaml:"docker_host"`
	PerfLogDir string `yaml:"perf_log_dir"`
	StorePath  string `yaml:"store_path"`

	Perf    PerfConfig    `yaml:"perf"`
	Manager ManagerConfig `yaml:"manager"`
}

// PerfConfig controls the performance sampler
type PerfConfig struct {
	Enabled bool   `yaml:"enabled"`
	Events  string `yaml:"events"`

	// AttachDelay is slept between sampler launch and /run so the sampler
	// attaches before short tasks finish
	AttachDelay Duration `yaml:"attach_delay"`

	// StopGrace bounds the wait between SIGINT and SIGKILL on teardown
	StopGrace Duration `yaml:"stop_grace"`

	// BaselineUsesPayload forwards the target's payload to the noop baseline
	// run, so the baseline includes payload-parsing cost
	BaselineUsesPayload bool `yaml:"baseline_uses_payload"`
}

// ManagerConfig holds pool defaults applied when create_manager omits them
type ManagerConfig struct {
	ImageName         string   `yaml:"image_name"`
	ContainerPort     int      `yaml:"container_port"`
	IdleTimeout       Duration `yaml:"idle_timeout"`
	MinIdleContainers int      `yaml:"min_idle_containers"`
	CleanInterval     Duration `yaml:"clean_interval"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Listen:     ":5000",
		DockerHost: "",
		PerfLogDir: "storage/perf_logs",
		StorePath:  "storage/faas.db",
		Perf: PerfConfig{
			Enabled:             true,
			Events:              DefaultPerfEvents,
			AttachDelay:         Duration(500 * time.Millisecond),
			StopGrace:           Duration(5 * time.Second),
			BaselineUsesPayload: true,
		},
		Manager: ManagerConfig{
			ImageName:         "myimage:latest",
			ContainerPort:     5000,
			IdleTimeout:       Duration(300 * time.Second),
			MinIdleContainers: 0,
			CleanInterval:     Duration(30 * time.Second),
		},
	}
}

// Load reads a YAML config file over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return cfg, nil
}
