/*
Package health probes worker containers for readiness.

A freshly created container is only useful once the worker process inside
it is accepting HTTP. This package owns that determination: a probe of the
worker's GET /status endpoint, and a bounded polling loop that drives the
probe until the worker is ready or the creation deadline expires.

# Architecture

	┌──────────────────── READINESS PROBING ────────────────────┐
	│                                                             │
	│  ┌────────────────────────────────────────────┐            │
	│  │            Checker interface                │            │
	│  │  Check(ctx) → Result                        │            │
	│  └──────────────────┬─────────────────────────┘            │
	│                     │                                       │
	│  ┌──────────────────▼─────────────────────────┐            │
	│  │            StatusChecker                    │            │
	│  │  GET http://127.0.0.1:<hostPort>/status     │            │
	│  │  ready ⇔ body.status ∈ {new, ok, ready}     │            │
	│  │  per-probe HTTP timeout (1s default)        │            │
	│  └──────────────────┬─────────────────────────┘            │
	│                     │ driven by                             │
	│  ┌──────────────────▼─────────────────────────┐            │
	│  │            WaitReady                        │            │
	│  │  constant-interval backoff (100ms)          │            │
	│  │  bounded elapsed time (30s)                 │            │
	│  │  context-cancellable                        │            │
	│  │  failure → ErrHealthCheckFailed             │            │
	│  └────────────────────────────────────────────┘            │
	└───────────────────────────────────────────────────────────┘

# Worker Status Semantics

The worker reports one of five states; three of them mean the container
can take an /init:

	Status   Meaning                          Ready?
	───────  ───────────────────────────────  ──────
	new      process booted, nothing loaded   yes
	ok       previous action completed        yes
	ready    explicitly idle                  yes
	init     /init in progress                no
	run      /run in progress                 no

Connection errors, non-200 responses and undecodable bodies are all
simply "not ready yet" — during container boot these are the normal
sequence of observations, not failures.

# Core Components

Result:
  - One probe's outcome: readiness, a short message (the reported
    status or the transport error), timestamp and duration

Checker:
  - The single-method probe interface; WaitReady drives any Checker,
    and tests substitute scripted ones

StatusChecker:
  - The production probe against a host-published worker port
  - WithTimeout adjusts the per-probe HTTP timeout

WaitReady:
  - Polls at a constant interval up to a total deadline, built on the
    backoff package (multiplier 1, no jitter, bounded elapsed time)
  - Returns nil on the first ready probe; otherwise wraps the last
    probe's message in types.ErrHealthCheckFailed

# Usage

As the pool manager uses it during the creation protocol:

	checker := health.NewStatusChecker(hostPort)
	if err := health.WaitReady(ctx, checker,
		100*time.Millisecond, 30*time.Second); err != nil {
		// errors.Is(err, types.ErrHealthCheckFailed) == true
		// caller fetches a log tail and removes the container
	}

One-shot probe:

	result := health.NewStatusChecker(hostPort).
		WithTimeout(500 * time.Millisecond).
		Check(ctx)
	if !result.Ready {
		log.Debug().Str("status", result.Message).Msg("worker not ready")
	}

# Integration Points

This package integrates with:

  - pkg/manager: the creation protocol's readiness gate (the manager's
    injectable readinessProbe defaults to WaitReady over a
    StatusChecker)
  - pkg/types: WorkerStatus is the decoded /status body;
    ErrHealthCheckFailed classifies the timeout

# Design Patterns

Single-Probe Interface Pattern:
  - Checker carries no retry policy; WaitReady owns cadence and
    deadline, so probes stay trivially testable

Tolerant Probe Pattern:
  - Every failure mode during boot maps to "not ready", never to an
    error; only the elapsed deadline produces one

Builder Option Pattern:
  - WithTimeout mirrors the configuration style used across the
    codebase for small adjustable components

# Performance Characteristics

  - A worker that boots in ~1s is detected within one probe interval
    of readiness: ~10 probes of a few ms each
  - The probe body is a handful of bytes; polling cost is negligible
    next to container start
  - Worst case cost is the deadline: 30s of 100ms probes for a
    container that never comes up

# Troubleshooting

Creation always fails with "health check failed":
  - Fetch the container's log tail (the manager logs it automatically):
    the worker is crashing at boot, listening on the wrong internal
    port, or not speaking HTTP
  - Check the registered container_port matches the port the worker
    binds inside the container

Probes succeed but /init then fails:
  - "new" only means the proxy is up; the action's own imports happen
    at /init time and can fail independently

Slow images time out at exactly the deadline:
  - The 30s creation deadline is a constant of the creation protocol;
    very large models should be baked into the image or lazily loaded
    after /init rather than at process boot

# See Also

  - pkg/manager: the creation protocol around WaitReady
  - pkg/types: WorkerStatus and the error kinds
*/
package health
