/*
Package log provides structured logging using zerolog.

The package wraps zerolog behind a global logger initialized once via
log.Init, with component- and entity-scoped child loggers. All logs carry
timestamps; console output is the default, JSON is opt-in for production.

# Architecture

	┌──────────────────── LOGGING SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐           │
	│  │            Global Logger                    │           │
	│  │  - zerolog instance, thread-safe            │           │
	│  │  - initialized once via log.Init()          │           │
	│  └──────────────────┬─────────────────────────┘           │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐           │
	│  │           Configuration                     │           │
	│  │  - Level: debug/info/warn/error             │           │
	│  │  - Format: JSON or console (human)          │           │
	│  │  - Output: stdout, file, custom writer      │           │
	│  └──────────────────┬─────────────────────────┘           │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐           │
	│  │         Context Loggers                     │           │
	│  │  - WithComponent("dispatcher")              │           │
	│  │  - WithFunction("matmul")                   │           │
	│  │  - WithContainer("<id>") (short id)         │           │
	│  │  - WithWorkflow("wordcount", runID)         │           │
	│  └──────────────────┬─────────────────────────┘           │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐           │
	│  │            Log Output                       │           │
	│  │  {"level":"info","component":"manager",     │           │
	│  │   "function":"noop",                        │           │
	│  │   "container":"3fa9c1d2e4b0",               │           │
	│  │   "time":"...","message":"container ready"} │           │
	│  └────────────────────────────────────────────┘           │
	└──────────────────────────────────────────────────────────┘

# Core Components

Global Logger:
  - Package-level zerolog.Logger, initialized once at startup
  - Accessible from all packages without plumbing
  - Safe for concurrent writes

Log Levels:
  - Debug: per-checkout and per-probe detail, development only
  - Info: lifecycle events (manager created, container ready, workflow
    progress) — the production default
  - Warn: degraded-but-proceeding conditions (init failed, sampler
    skipped, baseline failed)
  - Error: failed operations (dispatch error, workflow abort)
  - Fatal: unrecoverable startup errors; exits the process

Context Loggers:
  - WithComponent tags a subsystem (manager, dispatcher, workflow,
    api, perf, registry)
  - WithFunction / WithContainer / WithWorkflow attach the domain
    fields used to correlate one invocation or run across subsystems

ShortID:
  - Truncates runtime container ids to the familiar 12-character form
    used in every log line, report filename and API response

# Usage

Initializing (done once, in cmd/faas):

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
	})

Simple logging:

	log.Info("faas controller starting")
	log.Errorf("http shutdown", err)

Structured, component-scoped logging:

	mlog := log.WithComponent("manager").With().
		Str("function", cfg.FunctionName).Logger()

	mlog.Info().
		Str("container", log.ShortID(id)).
		Int("host_port", hostPort).
		Msg("container ready")

Correlating one dispatch:

	dlog := log.WithComponent("dispatcher").With().
		Str("function", fn).
		Str("container", log.ShortID(cid)).
		Logger()
	dlog.Warn().Err(err).Msg("worker init failed, attempting run anyway")

Workflow run logs:

	wlog := log.WithWorkflow("wordcount", runID)
	wlog.Info().Int("chunks", 4).Msg("input sliced, counting in parallel")

# Output Examples

JSON (production):

	{"level":"info","component":"manager","function":"noop","time":"2025-07-29T10:30:00Z","message":"function manager initialized"}
	{"level":"warn","component":"dispatcher","function":"matmul","container":"3fa9c1d2e4b0","time":"2025-07-29T10:30:02Z","message":"sampler launch failed, continuing without metrics"}

Console (development):

	2025-07-29T10:30:00Z INF function manager initialized component=manager function=noop
	2025-07-29T10:30:02Z WRN sampler launch failed, continuing without metrics component=dispatcher function=matmul container=3fa9c1d2e4b0

# Integration Points

This package integrates with:

  - pkg/manager: pool lifecycle and eviction logging
  - pkg/dispatcher: per-invocation pipeline logging
  - pkg/workflow: run-scoped progress (the only workflow status surface)
  - pkg/api, pkg/perf, pkg/runtime: component loggers
  - cmd/faas: Init from --log-level / --log-json flags

# Design Patterns

Global Logger Pattern:
  - A single package-level instance initialized in main; avoids passing
    a logger through every constructor

Context Logger Pattern:
  - Child loggers carry correlation fields so deep call sites never
    re-specify them

Structured Field Pattern:
  - Typed fields (.Str, .Int, .Err, .Dur) instead of formatted strings;
    queryable by log tooling and immune to injection from payloads

# Performance Characteristics

  - Disabled level: zero allocation (zerolog compile-time-style checks)
  - JSON line: ~500ns plus ~50ns per field
  - Console line: ~1µs (development only)
  - Debug level in production roughly triples log volume per dispatch

# Troubleshooting

No output at all:
  - log.Init was not called (tests call it in TestMain with a discard
    writer); in production it runs via cobra.OnInitialize

Workflow appears to do nothing:
  - Workflow progress only exists in logs; filter by run_id from the
    202 response

Too noisy:
  - Drop to info: per-checkout and per-release lines are debug level

# See Also

  - zerolog: https://github.com/rs/zerolog
  - cmd/faas: flag wiring for level and format
*/
package log
