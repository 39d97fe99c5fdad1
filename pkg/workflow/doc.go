/*
Package workflow executes the statically defined multi-function DAGs.

Each workflow decomposes into stages that are either sequential (one
dispatch) or fan-out (one dispatch per element of a list produced
upstream). Fan-out stages run concurrently with a barrier: every sub-task
must finish before the next stage starts, and any sub-task failure aborts
the whole run.

# Architecture

	┌──────────────────── WORKFLOW ORCHESTRATOR ────────────────────┐
	│                                                                 │
	│  Start(name, payload) ──► run id, immediately                   │
	│        │                                                        │
	│        └──► background goroutine                                │
	│                  │                                              │
	│  ┌───────────────▼───────────────────────────────┐             │
	│  │            static DAG table                    │             │
	│  │  video | recognizer | svd | wordcount          │             │
	│  └───────────────┬───────────────────────────────┘             │
	│                  │ per stage                                    │
	│  ┌───────────────▼───────────────────────────────┐             │
	│  │  sequential stage: one Invoker call            │             │
	│  │  fan-out stage: errgroup sized to the input    │             │
	│  │    list, barrier join, first error aborts      │             │
	│  └───────────────┬───────────────────────────────┘             │
	│                  │ every call                                   │
	│  ┌───────────────▼───────────────────────────────┐             │
	│  │            Invoker (the dispatcher)            │             │
	│  │  DispatchWithDenoising per stage task          │             │
	│  └───────────────────────────────────────────────┘             │
	└───────────────────────────────────────────────────────────────┘

Inter-stage data is limited to scalars and shared-volume paths; large
artifacts never pass through the controller. Execution is asynchronous
and observable only through the run's log stream — there is no status
endpoint for workflows.

# The Four DAGs

video — split, transcode, merge:

	video_split(video_name, segment_time) ─► split_keys[]
	    ├─► video_transcode(split_file, target_type)   ┐ fan-out over
	    ├─► video_transcode(...)                       │ split_keys
	    └─► video_transcode(...)                       ┘
	video_merge(transcoded_files, target_type,
	            output_prefix, video_name) ─► final_video

recognizer — moderation with a conditional tail:

	recognizer_upload(image_filename) ─► image_path
	    ├─► recognizer_adult(image_path)     ┐
	    ├─► recognizer_violence(image_path)  │ fan-out of 3
	    └─► recognizer_extract(image_path)   ┘ ─► text
	    ├─► recognizer_censor(text)          ┐ fan-out of 2
	    └─► recognizer_translate(text)       ┘
	illegal = adult.illegal OR violence.illegal OR censor.illegal
	illegal ? recognizer_mosaic(image_path) : pass image_path through

svd — divide-and-conquer decomposition:

	svd_start(row_num, col_num, slice_num) ─► slice_paths[]
	    └─► svd_compute(slice_path, mat_index=i)  fan-out, results
	        decoded into typed SVDPartial{mat_index, u/s/v_path}
	svd_merge(results) ─► final_{u,s,v}_path

wordcount — map/reduce:

	wordcount_start(input_filename, slice_num) ─► chunk_paths[]
	    └─► wordcount_count(chunk_path) ─► result_path   fan-out
	wordcount_merge(result_paths) ─► final_word_count

# Core Components

Orchestrator:
  - Holds the Invoker and the name → runFunc table
  - Known answers the API's 404-vs-202 decision; Start launches the
    background run and returns its id

Invoker:
  - The single-method seam to the dispatcher; the test suite scripts it
    per function name and records every call

runFunc:
  - One per workflow, decoding the raw payload into its typed struct
    (types.VideoPayload etc.) before the first stage

Result helpers:
  - Worker results arrive as decoded JSON; asMap/stringField/
    stringSliceField/boolField read the loose shapes, decodeResult
    re-marshals into typed structs (SVDPartial) where a stage's output
    feeds a later stage in bulk
  - A missing or mistyped field aborts the run with a stage-qualified
    error

# Concurrency Model

  - Fan-out width equals the input list length; each sub-task is one
    goroutine in an errgroup
  - errgroup.WithContext gives the barrier and first-error-cancels
    semantics: remaining sub-tasks see a cancelled context, the stage
    error propagates, and no later stage runs
  - Results land in pre-sized slices by index, so stage output order
    matches input order without extra locking; the recognizer's
    name-keyed map uses a mutex instead
  - There is no user-initiated cancellation: per-dispatch timeouts are
    the only termination pressure, matching the dispatch contract

# Usage

Launching from the API layer:

	orch := workflow.New(disp)

	if !orch.Known(req.WorkflowName) {
		// 404
	}
	runID, err := orch.Start(req.WorkflowName, req.Payload)
	// 202 {"status": "started", "run_id": runID}

Following a run:

	10:30:00 INF workflow started workflow=wordcount run_id=3fa9c1d2
	10:30:01 INF input sliced, counting in parallel chunks=4 ...
	10:30:04 INF count complete, merging ...
	10:30:05 INF wordcount merge complete unique_words=31887 ...
	10:30:05 INF workflow complete workflow=wordcount run_id=3fa9c1d2

A failed run ends with "workflow failed" and the stage-qualified error;
apart from the error count in faas_workflows_total, nothing else records
the failure.

# Integration Points

This package integrates with:

  - pkg/dispatcher: every stage task is one DispatchWithDenoising call,
    so each carries its own perf measurement and denoising
  - pkg/types: the per-workflow payload structs and SVDPartial
  - pkg/api: POST /dispatch_workflow validates with Known and launches
    with Start
  - pkg/metrics: run counters and duration histogram per workflow
  - pkg/log: the run-scoped logger (workflow + run_id on every line)

# Design Patterns

Static DAG Pattern:
  - Workflows are code, not configuration: each DAG is a plain function
    whose control flow is the graph. Adding a workflow is adding a
    runFunc and a table entry

Barrier Fan-Out Pattern:
  - errgroup per fan-out stage; the Wait call is the stage barrier

Typed Payload Pattern:
  - Payloads and bulk inter-stage results are tagged structs rather
    than free-form maps, so shape errors surface at the stage boundary
    with a useful message

Fire-and-Observe Pattern:
  - Start returns before execution; the run id ties the HTTP response
    to the log stream, which is the only progress surface

# Performance Characteristics

  - Stage latency is dispatch latency; the orchestrator adds goroutine
    scheduling only
  - A fan-out of N holds N containers of that function's pool
    concurrently — pools below N grow on demand, serializing the
    overflow behind cold starts
  - Workflow duration is recorded in the metrics histogram for each
    successful run; failed runs are only counted

# Troubleshooting

Run never progresses past a fan-out stage:
  - One sub-task is stuck in its /run timeout; the barrier waits for
    it, then aborts with that sub-task's error

"result field ... missing or not a string":
  - The worker returned a shape the stage plumbing does not expect;
    check the function's result keys against the DAG's expectations

Workflow accepted but nothing happens:
  - The stage managers are not registered; the first stage fails with
    ErrUnknownFunction — visible only in the logs, by design

Partial files left on the shared volume after a failed run:
  - Cleanup of intermediate artifacts is the functions' concern; the
    orchestrator only ever forwards paths

# See Also

  - pkg/dispatcher: the invocation pipeline under every stage
  - pkg/types: payload and partial-result shapes
  - pkg/api: the endpoint that launches runs
*/
package workflow
