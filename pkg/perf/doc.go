/*
Package perf attaches an out-of-process hardware-counter sampler to worker
containers and turns its reports into per-invocation metrics.

The package has three parts that mirror the measurement pipeline: a sampler
that drives perf stat against a target pid, a parser that recovers counter
values from perf's text report, and the denoising arithmetic that subtracts
a noop baseline so the numbers reflect the function body rather than the
framework around it.

# Architecture

	┌──────────────────── MEASUREMENT PIPELINE ────────────────────┐
	│                                                                │
	│  ┌────────────────────────────────────────────┐               │
	│  │              Sampler (Launch)               │               │
	│  │  sudo perf stat -p <pid> -e <events>        │               │
	│  │  - own process group (Setpgid)              │               │
	│  │  - stderr → report file                     │               │
	│  │  - runs until signalled                     │               │
	│  └──────────────────┬─────────────────────────┘               │
	│                     │ SIGINT group → grace → SIGKILL           │
	│  ┌──────────────────▼─────────────────────────┐               │
	│  │              Report file                    │               │
	│  │  <function>_<short_id>.txt                  │               │
	│  │  flushed and closed before readers run      │               │
	│  └──────────────────┬─────────────────────────┘               │
	│                     │                                          │
	│  ┌──────────────────▼─────────────────────────┐               │
	│  │              Parser                         │               │
	│  │  "<value> [unit] <key>" lines → MetricReport│               │
	│  │  tolerant: comments, blanks, garbage,       │               │
	│  │  missing file all yield partial/empty maps  │               │
	│  └──────────────────┬─────────────────────────┘               │
	│                     │ raw + noise baseline                     │
	│  ┌──────────────────▼─────────────────────────┐               │
	│  │              Denoise                        │               │
	│  │  clean[k] = max(0, raw[k] − noise[k])       │               │
	│  │  IPC = instructions / cycles                │               │
	│  └────────────────────────────────────────────┘               │
	└──────────────────────────────────────────────────────────────┘

# Core Components

Sampler / Process interfaces:
  - Launch(pid, events, path) starts a sampler and returns its handle
  - Stop(grace) interrupts, waits, kills; Running() reports liveness
  - The dispatcher holds only these interfaces; tests substitute a fake
    that writes canned reports

PerfSampler:
  - Runs perf stat under sudo so counter access works without running
    the whole controller privileged
  - Setpgid puts the sampler in its own process group: sudo spawns perf
    as a child, and signalling the group is the only way to reach the
    actual counter-reading process rather than just its parent
  - perf prints its report to stderr on SIGINT, so stderr is pointed at
    the report file from the start
  - The sleep argument is a cap, not a schedule: the dispatcher always
    interrupts the sampler at run completion

Parser:
  - ParseReport consumes any reader; ParseReportFile adds the
    missing-file tolerance (empty map plus a warning — measurement is
    auxiliary and must never fail a dispatch)

Denoise:
  - Fixed eight-counter subtraction set (task-clock included); the
    synthetic seconds and the major/minor fault splits stay raw
  - IPC derived from the clean values, 0 when cycles is 0

# Report Format

perf stat output, as parsed:

	# started on Tue Jul 29 14:03:11 2025

	 Performance counter stats for process id '41782':

	     1,234,567,890      cycles
	       987,654,321      instructions     #  0.80 insn per cycle
	            452.18 msec task-clock       #  0.998 CPUs utilized
	               142      context-switches
	   <not supported>      branch-misses

	       5.001234567 seconds time elapsed

Line rules, applied per whitespace-split line with commas stripped from
the value:

  - "<value> <unit> <key>" where unit ∈ {msec, ms, sec, seconds}: the
    key is the third token
  - "<value> seconds time elapsed": the synthetic key "seconds"
  - "<value> <key>": the key is the second token
  - comments, blanks and anything whose first token is not a number are
    skipped silently

# Attach Race

A sampler needs a moment between process start and counter attachment.
For very short functions the target can finish before perf is counting,
yielding an empty report. The dispatcher therefore sleeps a small fixed
delay (configurable, default 500ms) between Launch and the /run call.
The delay is tunable via perf.attach_delay; lowering it trades sampler
coverage of short tasks against added dispatch latency.

# Usage

Sampling one process:

	sampler := perf.NewPerfSampler()
	proc, err := sampler.Launch(pid, config.DefaultPerfEvents,
		"/srv/faas/perf_logs/matmul/matmul_3fa9c1d2e4b0.txt")
	if err != nil {
		// non-fatal: proceed unmeasured
	}

	// ... drive the function ...

	_ = proc.Stop(5 * time.Second) // report is closed when this returns

Reading and cleaning a report:

	raw := perf.ParseReportFile(rawPath)
	noise := perf.ParseReportFile(noopPath)
	clean := perf.Denoise(raw, noise)
	// clean["IPC"], clean["cycles"], ... ≥ 0, ≤ raw

# Integration Points

This package integrates with:

  - pkg/dispatcher: launches the sampler per measured dispatch, stops it
    on every exit path, parses and denoises the reports
  - pkg/config: the event list, attach delay and stop grace
  - pkg/types: MetricReport is the shared report shape
  - pkg/metrics: sampler failures increment a counter

# Design Patterns

Out-of-Process Observer Pattern:
  - The function runs identically whether or not measurement is on;
    nothing is injected into the container
  - The sampler's lifetime is strictly inside the dispatch that owns it

Process Group Signalling Pattern:
  - Kill(-pgid, sig) reaches every process in the sampler's group
  - ESRCH is tolerated: the group may already be gone

Reaper Goroutine Pattern:
  - A goroutine waits on the subprocess and closes a done channel
  - Stop bounds its wait by selecting on done versus the grace timer

# Performance Characteristics

  - Sampler launch: ~10-30ms (sudo + perf startup)
  - Counter overhead on the target: typically under 2%
  - Parse: linear in report size; reports are a few hundred bytes
  - Denoise: fixed eight-key arithmetic, negligible

# Troubleshooting

Empty report after a successful dispatch:
  - The target finished before the sampler attached; raise
    perf.attach_delay
  - Or the sampler was killed externally — the dispatch still completes
    and the clean record carries zeros

"failed to start perf":
  - perf not installed, or sudo requires a password; configure NOPASSWD
    for perf stat or run the controller with the needed capability

Counters read <not supported>:
  - The kernel or hardware lacks that event; the parser skips the line,
    the raw metrics omit the key, and a denoised counter reads 0 in the
    clean metrics

Sampler outlives its dispatch:
  - Should not happen: Stop escalates SIGINT → SIGKILL on the group
  - If the controller died mid-dispatch, orphaned perf processes are
    visible with pgrep perf and safe to kill

# Security

  - The sampler runs under sudo; restrict the controller's sudoers entry
    to exactly "perf stat" rather than blanket root
  - Report files land under the configured perf_log_dir; they contain
    only counter values, never payload data

# See Also

  - pkg/dispatcher: the sampler's only production caller
  - pkg/config: DefaultPerfEvents and the perf tunables
  - perf documentation: https://perf.wiki.kernel.org/
*/
package perf
