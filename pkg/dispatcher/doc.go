/*
Package dispatcher is the per-invocation path: it drives one function call
from container checkout through measurement to teardown.

A dispatch checks a container out of its function's pool, best-effort
re-inits the worker, optionally attaches the perf sampler to the
container's main process, posts the payload to /run, and tears everything
down. Release of the container and sampler stop run on every exit path;
only the /run call itself can fail a dispatch.

# Architecture

	┌───────────────────── DISPATCH PIPELINE ─────────────────────┐
	│                                                               │
	│   Dispatch(function, payload, runPerf, logDir)                │
	│        │                                                      │
	│  ┌─────▼──────────┐  miss                                     │
	│  │ registry.Get    │─────────► ErrUnknownFunction             │
	│  └─────┬──────────┘                                           │
	│  ┌─────▼──────────┐  fail                                     │
	│  │ mgr.Checkout    │─────────► ErrResourceExhausted           │
	│  └─────┬──────────┘          (defer mgr.Release)              │
	│  ┌─────▼──────────┐                                           │
	│  │ POST /init      │  failure logged, run attempted anyway    │
	│  └─────┬──────────┘                                           │
	│  ┌─────▼──────────┐                                           │
	│  │ sampler.Launch  │  pid from driver.Inspect; failure        │
	│  │ + attach delay  │  logged, dispatch proceeds unmeasured    │
	│  └─────┬──────────┘          (defer proc.Stop)                │
	│  ┌─────▼──────────┐  failure: log tail fetched,               │
	│  │ POST /run       │─────────► ErrWorkerRun                   │
	│  └─────┬──────────┘                                           │
	│        ▼                                                      │
	│   result (the worker's top-level "result" field)              │
	└──────────────────────────────────────────────────────────────┘

# Core Components

Dispatcher:
  - Holds the registry, driver, sampler, optional invocation store and
    config; all are interfaces or injectable, so the test suite runs the
    full pipeline against fakes and an httptest worker
  - Two HTTP clients: a short-timeout one for /init (10s) and a
    long-timeout one for /run (300s — functions may legitimately run
    for minutes)

Dispatch:
  - The strict ordering checkout → init → sampler-launch → run →
    sampler-stop → release, with the teardown steps as defers so they
    run on every exit path
  - Returns the checked-out container id alongside the result for log
    correlation and report-path derivation

DispatchWithDenoising:
  - Brackets the target run with a measured noop run and subtracts the
    baseline counters (see # Denoising below)

ReportPath:
  - <logDir>/<function>_<short_container_id>.txt
  - Unique per simultaneous dispatch because a container is busy at
    most once at a time

# Failure Semantics

	Step            Failure handling
	──────────────  ────────────────────────────────────────────
	registry miss   ErrUnknownFunction to the caller
	checkout        ErrResourceExhausted to the caller
	/init           logged, non-fatal (workers re-init idempotently)
	sampler launch  logged, non-fatal; dispatch proceeds unmeasured
	/run            log tail fetched, ErrWorkerRun to the caller
	sampler stop    logged, non-fatal; metrics counter incremented
	release         cannot fail (manager contract)

The invariant the table encodes: measurement is auxiliary. No sampler,
parser or persistence problem ever fails a dispatch, and the container
always goes back to the pool.

# Denoising

DispatchWithDenoising(target, payload):

 1. A bare noop dispatch is measured directly — no baseline recursion;
    its clean record carries an empty noise baseline
 2. Otherwise the noop manager is registered on first use, inheriting
    the target's image and storage so both run the same proxy
 3. noop is dispatched with the target's own payload (so the baseline
    includes payload-parsing cost; a config toggle sends {} instead)
    and its report parsed as the noise baseline. A failed baseline
    logs a warning and proceeds with empty noise
 4. The target is dispatched with the sampler attached; its report is
    parsed as the raw metrics
 5. clean = Denoise(raw, noise) is persisted two ways: a
    clean_<function>_<short_id>.json record next to the raw reports,
    and a row in the bbolt invocation store when one is wired

All reports for one target live under <perf_log_dir>/<target>/,
including the noop baselines run on its behalf.

# Usage

One measured invocation, end to end:

	disp := dispatcher.New(registry, driver, perf.NewPerfSampler(), store, cfg)

	result, containerID, err := disp.DispatchWithDenoising(ctx,
		"matmul", map[string]any{"param": 5000})
	if err != nil {
		// ErrUnknownFunction, ErrResourceExhausted or ErrWorkerRun
	}
	_ = containerID // short id appears in every related log line

Unmeasured dispatch (perf disabled per call):

	result, containerID, err := disp.Dispatch(ctx, "matmul",
		payload, false, cfg.PerfLogDir)

# Worker Contract

The dispatcher relies on exactly this worker shape:

	GET  /status → 200 {"status": "new"|"ok"|"ready"|"init"|"run", ...}
	POST /init   → 200 on success, body {"action": "<function>"}
	POST /run    → 200 {"start_time", "end_time", "duration",
	                    "result": <function-specific payload>}

The top-level "result" value is what Dispatch returns; everything else
in the run response is timing the worker reports about itself.

# Integration Points

This package integrates with:

  - pkg/manager: checkout and guaranteed release
  - pkg/runtime: pid resolution for the sampler, log tails on failure
  - pkg/perf: sampler lifecycle, report parsing, denoising arithmetic
  - pkg/storage: invocation history persistence
  - pkg/workflow: the orchestrator invokes every stage through
    DispatchWithDenoising
  - pkg/api: POST /dispatch/<function> terminates here
  - pkg/metrics: dispatch counters, duration histogram, sampler failures

# Design Patterns

Deferred Teardown Pattern:
  - Release and sampler stop are registered as defers immediately after
    acquisition, so no error path can skip them

Best-Effort Measurement Pattern:
  - Every measurement step degrades to "proceed without metrics" rather
    than failing the invocation

Derived Path Pattern:
  - Report paths are recomputed from (dir, function, container) instead
    of threaded through return values, keeping Dispatch's signature at
    the spec contract

# Performance Characteristics

  - Pipeline overhead beyond the worker's own run time: one checkout
    (microseconds warm), one /init round trip (~1ms locally), sampler
    launch (~10-30ms) plus the attach delay when measuring
  - Denoising doubles invocation count: every measured target dispatch
    costs one noop dispatch first

# Troubleshooting

502 from the API with "worker run failed":
  - The worker's /run returned non-2xx or timed out; the preceding log
    lines carry a tail of the container's output

Clean record missing after a successful dispatch:
  - Perf disabled (config or ?perf=0), or the record write failed —
    look for "could not write clean metrics record"

Baseline noise larger than raw counters:
  - Normal for cheap functions; Denoise clamps at zero rather than
    reporting negative counters

Dispatch hangs near 300s:
  - The /run timeout is doing its job on a stuck worker; the container
    is released and the error surfaced when it fires

# See Also

  - pkg/perf: sampler mechanics and the report format
  - pkg/manager: what checkout/release guarantee
  - pkg/workflow: the multi-stage caller built on this pipeline
*/
package dispatcher
