/*
Package metrics exposes Prometheus collectors for the container pools,
dispatch pipeline and workflow runs, plus a component health registry
backing GET /healthz.

# Architecture

	┌──────────────────── OBSERVABILITY ────────────────────────┐
	│                                                             │
	│  ┌────────────────────────────────────────────┐            │
	│  │        package-level collectors             │            │
	│  │  - registered once in init()                │            │
	│  │  - written directly by manager /            │            │
	│  │    dispatcher / workflow / api              │            │
	│  └──────────────────┬─────────────────────────┘            │
	│                     │                                       │
	│  ┌──────────────────▼─────────────────────────┐            │
	│  │        Handler() → promhttp                 │            │
	│  │        GET /metrics exposition              │            │
	│  └────────────────────────────────────────────┘            │
	│                                                             │
	│  ┌────────────────────────────────────────────┐            │
	│  │        HealthChecker (separate)             │            │
	│  │  - component name → healthy/message         │            │
	│  │  - RegisterComponent / UpdateComponent      │            │
	│  │  - HealthHandler → GET /healthz 200/503     │            │
	│  └────────────────────────────────────────────┘            │
	└───────────────────────────────────────────────────────────┘

# Collectors

Pool state:

	faas_containers_total{function,status}      gauge   pool composition
	faas_container_creations_total{function,outcome}
	                                            counter success/error/rejected
	faas_container_evictions_total{function}    counter cleaner removals

Dispatch pipeline:

	faas_dispatches_total{function,status}      counter success/error
	faas_dispatch_duration_seconds{function}    histogram end-to-end latency
	faas_sampler_failures_total                 counter launch/teardown faults

Workflows:

	faas_workflows_total{workflow,status}       counter run outcomes
	faas_workflow_duration_seconds{workflow}    histogram run wall time

API:

	faas_api_requests_total{endpoint,status}    counter per response

# Core Components

Collectors:
  - Declared as package-level vars, registered in init() against the
    default registry; writers reference them directly rather than
    threading a metrics object through constructors

Handler:
  - The promhttp exposition handler, mounted at GET /metrics

Timer:
  - A small start-time helper: NewTimer at operation start,
    ObserveDuration / ObserveDurationVec at the end, Duration for ad
    hoc reads

HealthChecker:
  - A mutex-guarded component table, deliberately separate from the
    Prometheus registry: /healthz answers "should a load balancer send
    traffic here", which is a boolean per component, not a time series
  - SetVersion stamps health responses with the build version
  - Overall status is unhealthy iff any component is unhealthy (503)

# Usage

Instrumenting an operation:

	timer := metrics.NewTimer()
	// ... do the work ...
	metrics.DispatchesTotal.WithLabelValues(fn, "success").Inc()
	timer.ObserveDurationVec(metrics.DispatchDuration, fn)

Maintaining pool gauges (as the manager does on every transition):

	metrics.ContainersTotal.WithLabelValues(fn, "idle").Set(idle)
	metrics.ContainersTotal.WithLabelValues(fn, "busy").Set(busy)

Component health:

	metrics.SetVersion(Version)
	metrics.RegisterComponent("docker", true, "connected")
	// later, on failure:
	metrics.UpdateComponent("docker", false, "daemon unreachable")

Mounting the handlers:

	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /healthz", metrics.HealthHandler())

# Integration Points

This package integrates with:

  - pkg/manager: pool gauges, creation and eviction counters
  - pkg/dispatcher: dispatch counters, duration, sampler failures
  - pkg/workflow: run counters and durations
  - pkg/api: request counters plus both HTTP handlers
  - cmd/faas: version stamp and component registration at startup

# Example Queries

Dispatch error rate per function:

	rate(faas_dispatches_total{status="error"}[5m])
	  / rate(faas_dispatches_total[5m])

Cold-start pressure (pool growing under load):

	rate(faas_container_creations_total{outcome="success"}[5m])

p95 dispatch latency:

	histogram_quantile(0.95,
	  rate(faas_dispatch_duration_seconds_bucket[5m]))

Pre-warm health (idle pool at zero while dispatching):

	faas_containers_total{status="idle"} == 0
	  and rate(faas_dispatches_total[1m]) > 0

# Design Patterns

Package-Level Collector Pattern:
  - One flat set of collectors, registered once; write sites are a
    single expression with no plumbing

Separate Health Registry Pattern:
  - Liveness for machines (/healthz status codes) is kept apart from
    measurements for humans (/metrics series)

Timer Helper Pattern:
  - Wraps the observe-at-end idiom so call sites cannot forget the
    seconds conversion

# Troubleshooting

Panic "duplicate metrics collector registration":
  - Something imported this package twice under different module paths,
    or a test re-registered a collector manually; collectors register
    exactly once in init()

Gauges stuck at stale values:
  - Pool gauges are event-driven (updated on transitions), so a crashed
    manager leaves its last written values; restart resets them

/healthz healthy while the daemon is down:
  - Components self-report; the docker component reflects only the
    connection made at startup, and later daemon failures do not
    change it

# See Also

  - pkg/api: where both handlers are mounted
  - Prometheus naming: https://prometheus.io/docs/practices/naming/
*/
package metrics
