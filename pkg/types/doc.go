/*
Package types holds the shared data model: container pool records, metric
reports, workflow payload shapes, and the error kinds exchanged between
the manager, dispatcher and HTTP surface.

The package is pure declarations — no behaviour, no dependencies beyond
the standard library — so every other package can import it without
cycles.

# Architecture

	┌────────────────────── SHARED TYPES ──────────────────────┐
	│                                                            │
	│  pool model          measurement          workflows        │
	│  ─────────────       ─────────────        ─────────────    │
	│  ContainerRecord     MetricReport         VideoPayload     │
	│  ContainerStatus     InvocationRecord     RecognizerPayload│
	│  ManagerConfig                            SVDPayload       │
	│  PoolStatus          worker contract      WordcountPayload │
	│  ContainerSummary    ─────────────        SVDPartial       │
	│                      RunResponse          RecognizerResult │
	│  errors.go           WorkerStatus                          │
	│  ─────────────                                             │
	│  ErrUnknownFunction · ErrResourceExhausted ·               │
	│  ErrHealthCheckFailed · ErrWorkerRun ·                     │
	│  ErrImageMissing · ErrCreateRefused · ErrNotFound          │
	└──────────────────────────────────────────────────────────┘

# Pool Model

ContainerStatus is the controller-side lifecycle state:

	idle ⇄ busy, idle → removed

The manager enters a record idle (pre-warm) or busy (created for a
checkout) and marks only idle records removed on eviction;
ContainerStarting is declared but the manager does not assign it.

ContainerRecord is one live container: runtime id, human name, the
daemon-assigned host port, status and the last-active timestamp the
eviction policy keys on. Invariants: exactly one manager owns a record;
a busy record is held by at most one in-flight dispatch; the idle timer
is only meaningful while idle.

ManagerConfig carries a pool's registration: function name, image,
internal port, optional shared-storage path, idle timeout, pre-warm
minimum, optional max cap and the cleaner interval.

PoolStatus / ContainerSummary are the JSON projection behind
GET /manager_status.

# Measurement Model

MetricReport maps perf counter names (cycles, instructions, task-clock,
context-switches, cache-misses, L1-dcache-load-misses, LLC-load-misses,
page-faults, major-faults, minor-faults) plus the synthetic "seconds"
and "IPC" entries to non-negative values.

InvocationRecord is the persisted outcome of one denoised dispatch:

	{function, container, timestamp,
	 raw_metrics, noise_baseline, clean_metrics, result_payload}

It is both the clean_*.json file shape and the bbolt store row.

# Worker Contract

RunResponse decodes a worker's POST /run body; its Result field is the
function's actual output and the only part the dispatcher forwards.
WorkerStatus decodes GET /status for the readiness probe.

# Workflow Payloads

One tagged struct per workflow rather than free-form maps, so payload
shape errors surface at the decode boundary:

	VideoPayload      {video_name, segment_time, target_type, output_prefix}
	RecognizerPayload {image_filename}
	SVDPayload        {row_num, col_num, slice_num}
	WordcountPayload  {input_filename, slice_num}

SVDPartial is one svd_compute result ({mat_index, u_path, s_path,
v_path}); the orchestrator decodes each fan-out result into it and the
merge consumes them in mat_index order. RecognizerResult assembles the
moderation verdict, final image path, translation and per-check detail.

Every inter-stage datum is a scalar or a shared-volume path; binary
artifacts never appear in these types.

# Error Kinds

Sentinels classified with errors.Is; sites wrap with fmt.Errorf %w:

	Kind                  Raised by              Meaning
	────────────────────  ─────────────────────  ───────────────────────
	ErrUnknownFunction    registry lookup        no manager registered
	ErrResourceExhausted  manager checkout       could not provide a container
	ErrHealthCheckFailed  creation protocol      worker never became ready
	ErrWorkerRun          dispatcher /run        non-2xx or timeout
	ErrImageMissing       driver create          image absent from daemon
	ErrCreateRefused      driver create/start    daemon rejected the container
	ErrNotFound           driver (any op)        container already gone

# Usage

	cfg := types.ManagerConfig{
		FunctionName:      "matmul",
		ImageName:         "workflow-proxy:latest",
		ContainerPort:     5000,
		MinIdleContainers: 1,
	}

	if errors.Is(err, types.ErrResourceExhausted) {
		// 502 with pool-exhausted message
	}

# See Also

  - pkg/manager: owns ContainerRecord lifecycles
  - pkg/perf: produces MetricReport values
  - pkg/workflow: consumes the payload structs
*/
package types
