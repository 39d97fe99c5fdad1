/*
Package config defines the controller configuration: defaults, a YAML file
overlay, and the tunables for measurement and pool management.

# Architecture

	┌──────────────────── CONFIGURATION ────────────────────────┐
	│                                                             │
	│  Default()                                                  │
	│     │  built-in values                                      │
	│     ▼                                                       │
	│  Load(path)  ──  yaml.Unmarshal over the defaults           │
	│     │  file wins where present, defaults elsewhere          │
	│     ▼                                                       │
	│  cmd/faas serve flags (--listen, --perf, ...)               │
	│     │  flags win over the file                              │
	│     ▼                                                       │
	│  *Config handed to driver / dispatcher / api                │
	└───────────────────────────────────────────────────────────┘

# Structure

	listen:        ":5000"              HTTP bind address
	docker_host:   ""                   daemon address ("" = environment)
	perf_log_dir:  storage/perf_logs    reports + clean records
	store_path:    storage/faas.db      bbolt invocation history

	perf:
	  enabled: true                     measure dispatches by default
	  events: cycles,instructions,...   the ten-counter perf set
	  attach_delay: 500ms               sampler-attach race guard
	  stop_grace: 5s                    SIGINT → SIGKILL window
	  baseline_uses_payload: true       noop baseline sees target payload

	manager:                            defaults for create_manager
	  image_name: myimage:latest
	  container_port: 5000
	  idle_timeout: 300s
	  min_idle_containers: 0
	  clean_interval: 30s

# Duration Fields

yaml.v3 has no native time.Duration decoding, so duration fields use the
local Duration type: YAML strings parse through time.ParseDuration
("100ms", "30s", "5m") and bare integers are taken as seconds, matching
the HTTP API's idle_timeout convention. Std() unwraps to time.Duration
at use sites.

# Usage

	cfg, err := config.Load(configPath) // "" returns Default()
	if err != nil {
		return err
	}
	cfg.Listen = listenFlag // flags override last

	delay := cfg.Perf.AttachDelay.Std()

A minimal config file:

	perf_log_dir: /srv/faas/perf_logs
	perf:
	  attach_delay: 200ms
	manager:
	  image_name: workflow-proxy:latest
	  min_idle_containers: 1

# Tunables Worth Knowing

  - perf.attach_delay trades coverage of very short functions against
    added dispatch latency (see pkg/perf's attach-race notes)
  - perf.baseline_uses_payload preserves the behaviour of measuring
    payload-parsing cost in the baseline; turn it off to baseline
    against an empty payload instead
  - manager.* values are only defaults: each create_manager request may
    override image, port, timeout and minimum per function

# See Also

  - cmd/faas: flag wiring and precedence
  - pkg/perf: what the perf tunables control
  - pkg/manager: what the pool defaults control
*/
package config
