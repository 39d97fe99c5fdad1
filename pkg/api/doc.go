/*
Package api exposes the controller over JSON HTTP: manager registration,
single-function dispatch, workflow launch, pool status, invocation history,
health and Prometheus metrics.

The surface is a thin layer: handlers decode, delegate to the registry,
dispatcher or orchestrator, and encode. No business logic lives here.

# Architecture

	┌───────────────────────── HTTP SURFACE ─────────────────────────┐
	│                                                                  │
	│  ┌────────────────────────────────────────────────┐             │
	│  │                 http.Server                     │             │
	│  │  - net/http mux, method+path patterns           │             │
	│  │  - ReadHeaderTimeout 10s                        │             │
	│  │  - graceful Shutdown on SIGINT/SIGTERM          │             │
	│  └───────┬───────────┬───────────┬────────────────┘             │
	│          │           │           │                               │
	│  ┌───────▼───┐ ┌─────▼─────┐ ┌───▼────────────┐                 │
	│  │ registry  │ │ dispatcher│ │ orchestrator   │                 │
	│  │ create /  │ │ dispatch  │ │ dispatch_      │                 │
	│  │ status    │ │           │ │ workflow       │                 │
	│  └───────────┘ └───────────┘ └────────────────┘                 │
	│  ┌────────────────────────────────────────────────┐             │
	│  │  storage (invocations) · metrics (/metrics,     │             │
	│  │  /healthz)                                      │             │
	│  └────────────────────────────────────────────────┘             │
	└────────────────────────────────────────────────────────────────┘

# Endpoints

	Method  Path                         Codes        Purpose
	──────  ───────────────────────────  ───────────  ─────────────────────
	POST    /create_manager              201/200/400  register a pool
	POST    /dispatch/<function>         200/502      one invocation
	POST    /dispatch_workflow           202/404/400  launch a DAG
	GET     /manager_status/<function>   200/404      pool snapshot
	GET     /invocations/<function>      200/404/500  metric history
	GET     /healthz                     200/503      component health
	GET     /metrics                     200          Prometheus exposition

POST /create_manager:
  - Body: {function_name, image_name?, container_port?,
    host_storage_path?, host_port_start?, idle_timeout?,
    min_idle_containers?, max_containers?}
  - 201 {"status": "created"} on first registration
  - 200 {"status": "exists"} on idempotent repeat (the original
    manager's configuration is kept untouched)
  - 400 when function_name is missing or the body is not JSON
  - idle_timeout is seconds; omitted fields take the controller
    defaults; host_port_start is accepted for wire compatibility and
    ignored (the runtime assigns host ports)

POST /dispatch/<function>:
  - Body: the function's payload, forwarded verbatim; an unreadable
    body degrades to {}
  - 200 {"status": "success", "result": ..., "container": "<short id>"}
  - 502 {"status": "error", "message": ...} for unknown function,
    exhausted pool or a failed /run
  - ?perf=0 overrides the configured measurement default for this call;
    otherwise the dispatch runs through the denoising wrapper

POST /dispatch_workflow:
  - Body: {workflow_name, payload}
  - 202 {"status": "started", "run_id": ...} — execution is
    asynchronous; progress and failure are observable only in logs
  - 404 for an unrecognised workflow_name, 400 for a missing one

GET /manager_status/<function>:
  - 200 {function, total, idle, busy, containers: [{id, host_port}]}
  - 404 for an unregistered function

GET /invocations/<function>?limit=N:
  - 200 {function, invocations: [...]} newest first, default limit 20
  - 404 when the invocation store is disabled

# Core Components

Server:
  - New wires handlers onto a mux and configures the http.Server;
    Start blocks in ListenAndServe; Stop drains via Shutdown
  - Handler exposes the route table for httptest-based tests

createManagerRequest / dispatchWorkflowRequest:
  - The only request DTOs; everything else is raw payload passthrough

writeJSON:
  - Single exit point for every handler of this package: sets the
    content type, counts the request in the API metrics, encodes the
    body (/healthz and /metrics are served by pkg/metrics handlers)

# Usage

Wiring and serving:

	server := api.New(registry, disp, orch, store, cfg)

	go func() {
		<-sigCh
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Stop(ctx)
	}()

	if err := server.Start(); err != nil {
		return err
	}

Driving it with curl:

	curl -XPOST localhost:5000/create_manager \
	     -d '{"function_name":"noop","min_idle_containers":1}'
	curl -XPOST localhost:5000/dispatch/noop -d '{}'
	curl -XPOST localhost:5000/dispatch_workflow \
	     -d '{"workflow_name":"wordcount",
	          "payload":{"input_filename":"book.txt","slice_num":4}}'
	curl localhost:5000/manager_status/noop

# Request Validation

  - function names come from the path; unknown names surface as 502
    (dispatch) or 404 (status) per the endpoint contract
  - workflow names are validated against the orchestrator's static
    table before the 202 is issued
  - numeric fields are range-checked (ports > 0, timeouts > 0,
    limit > 0) and fall back to defaults otherwise

# Metrics Instrumentation

Every response of this package's own handlers increments
faas_api_requests_total{endpoint,status}; /healthz and /metrics are not
counted.
Dispatch and workflow timing live one layer down in the dispatcher and
orchestrator histograms, so API counts stay cheap and uniform.

# Timeouts

  - ReadHeaderTimeout bounds slow-header clients
  - No server-side write timeout: a dispatch response legitimately
    waits on /run, which the dispatcher bounds with its own 300s
    client timeout
  - Shutdown is bounded by the caller's context (10s in cmd/faas);
    dispatches in flight past that fail with connection errors and do
    not block termination

# Integration Points

This package integrates with:

  - pkg/manager: registration and pool snapshots
  - pkg/dispatcher: the dispatch endpoint's whole behaviour
  - pkg/workflow: workflow validation and launch
  - pkg/storage: invocation history reads
  - pkg/metrics: request counters, /metrics and /healthz handlers
  - cmd/faas: lifecycle (Start, signal-driven Stop)

# Design Patterns

Thin Handler Pattern:
  - Handlers decode → delegate → encode; every policy decision lives in
    the component behind them

Single Writer Pattern:
  - All responses of this package's handlers flow through writeJSON
    (/healthz and /metrics excepted), so instrumentation and
    content-type handling cannot drift between endpoints

Stdlib Router Pattern:
  - net/http method+path patterns ("POST /dispatch/{function}") cover
    the whole surface; no third-party router is involved anywhere in
    this codebase

# Troubleshooting

400 from /create_manager with a well-formed body:
  - Check function_name is present and non-empty; check the JSON is an
    object, not a bare string

502 from /dispatch with "unknown function":
  - Register the manager first; dispatch never auto-registers (only
    the denoising baseline auto-registers, and only for noop)

202 from /dispatch_workflow but no effect:
  - Execution is asynchronous; look for the run_id in the controller
    logs. Stage-manager registration errors appear there, not in the
    HTTP response

/healthz returns 503:
  - A registered component (docker, store, api) marked itself
    unhealthy; the body names it

# See Also

  - pkg/dispatcher: dispatch semantics behind POST /dispatch
  - pkg/workflow: what a 202 actually starts
  - pkg/metrics: the health registry behind /healthz
*/
package api
