/*
Package manager owns the per-function container pools and the process-wide
registry that maps function names to them.

Each Manager runs one function's pool: on-demand creation with a bounded
port-mapping wait and readiness probe, LIFO checkout of idle workers,
idempotent release, and a background eviction loop that removes containers
idle past their timeout while keeping the pre-warm minimum available.

# Architecture

	┌───────────────────── POOL MANAGEMENT ─────────────────────┐
	│                                                             │
	│  ┌────────────────────────────────────────────┐            │
	│  │               Registry                      │            │
	│  │  - function name → *Manager                 │            │
	│  │  - mutex-serialized Create                  │            │
	│  │  - StopAll broadcast at shutdown            │            │
	│  └──────────────────┬─────────────────────────┘            │
	│                     │ one per function                      │
	│  ┌──────────────────▼─────────────────────────┐            │
	│  │               Manager                       │            │
	│  │  - container table (id → entry)             │            │
	│  │  - single mutex over table + counters       │            │
	│  │  - Checkout / Release / StopAll             │            │
	│  └───────┬──────────────────────────┬─────────┘            │
	│          │                          │                       │
	│  ┌───────▼──────────┐   ┌──────────▼──────────┐            │
	│  │ Creation protocol │   │   Eviction loop     │            │
	│  │ - driver.Create   │   │ - ticker + stopCh   │            │
	│  │ - wait host port  │   │ - refresh liveness  │            │
	│  │ - /status probe   │   │ - evict stale idle  │            │
	│  │ - insert record   │   │ - pre-warm to min   │            │
	│  └───────┬──────────┘   └──────────┬──────────┘            │
	│          │                          │                       │
	│  ┌───────▼──────────────────────────▼──────────┐           │
	│  │            runtime.Driver                    │           │
	│  │  (Docker Engine API, outside the lock)       │           │
	│  └──────────────────────────────────────────────┘          │
	└─────────────────────────────────────────────────────────┘

# Core Components

Manager:
  - Owns exactly one function's containers
  - Guards its table with a single mutex
  - Performs every runtime call outside that mutex
  - Started by New, terminated by StopAll

Registry:
  - Process-wide map from function name to Manager
  - Create is serialized; the second caller of the same name
    observes existed=true and receives the original Manager
  - Get resolves dispatch targets, failing with ErrUnknownFunction
  - StopAll detaches all managers under the lock, then stops each
    outside it

containerEntry:
  - Pairs the public ContainerRecord (id, name, host port, status,
    last-active timestamp) with the last observed runtime liveness
  - Mutated only by the owning manager, always under its mutex

# Container Lifecycle

	      create                checkout             release
	(none) ──────► idle ───────────────► busy ───────────────► idle
	                 │                                            │
	                 │ idle_timeout exceeded                      │
	                 │ and pool above min_idle                    │
	                 ▼                                            │
	              removed ◄───────────────────────────────────────┘
	                            (eviction loop)

Creation protocol, in order:
 1. driver.Create starts the container with the internal port published
    to a daemon-chosen host port
 2. Inspect is polled until the host port mapping appears (bounded)
 3. The worker's GET /status is probed until it reports new/ok/ready
    (100ms interval, 30s deadline)
 4. On probe timeout: a log tail is captured, the container is stopped
    and removed, and creation fails upward
 5. On success the record enters the table with the caller's status:
    busy for a checkout, idle for a pre-warm

Checkout:
  - Prefers the most recently used idle container (LIFO) so the warm
    working set stays warm
  - Creates on demand when the pool has no idle running container
  - A creation failure surfaces as ErrResourceExhausted
  - New records enter the table already busy, so a concurrent checkout
    cannot steal a container between insert and hand-off

Release:
  - Transitions busy → idle and refreshes the last-active timestamp
  - Idempotent: releasing an already-idle or unknown container logs
    and returns; it never fails visibly

# Eviction Loop

One background goroutine per manager wakes every clean interval (or
immediately on the stop signal) and runs a cycle:

 1. Refresh runtime liveness of every record (inspects outside the lock,
    results folded back in under it)
 2. Under the lock, collect idle running records sorted oldest-first and
    mark for removal every record that (a) has been idle longer than
    idle_timeout and (b) leaves at least min_idle_containers newer idle
    records behind
 3. Stop and remove the marked containers outside the lock
 4. Recount idle records; create the shortfall up to min_idle_containers,
    again outside the lock, with a small delay between creations

The cycle guarantees: steady-state idle count converges to the minimum,
stale containers are eventually evicted unless the minimum forbids it,
and neither Checkout nor Release ever blocks on the daemon.

# Usage

Registering and using a pool:

	registry := manager.NewRegistry(driver)

	mgr, existed, err := registry.Create(types.ManagerConfig{
		FunctionName:      "wordcount_count",
		ImageName:         "workflow-proxy:latest",
		ContainerPort:     5000,
		IdleTimeout:       300 * time.Second,
		MinIdleContainers: 2,
	})
	if err != nil {
		return err
	}
	if existed {
		// Idempotent re-registration; mgr is the original
	}

	hostPort, containerID, err := mgr.Checkout(ctx)
	if err != nil {
		return err // wraps types.ErrResourceExhausted on creation failure
	}
	defer mgr.Release(containerID)

	// ... drive the worker on 127.0.0.1:hostPort ...

Inspecting a pool:

	status := mgr.Status()
	fmt.Printf("%s: %d total, %d idle, %d busy\n",
		status.Function, status.Total, status.Idle, status.Busy)

Shutting down:

	// Stops every eviction loop, then synchronously stops and removes
	// every owned container
	registry.StopAll()

# Locking Discipline

  - Lock order is always registry → single manager; two manager locks
    are never held at once
  - The manager mutex protects only the table and in-memory counters
  - Container creation, removal, log fetches, readiness probes and every
    other blocking operation run outside the lock
  - The eviction loop decides under the lock and mutates outside it

# Integration Points

This package integrates with:

  - pkg/runtime: all container operations go through the Driver interface
  - pkg/health: the readiness probe driven during creation
  - pkg/dispatcher: the only caller of Checkout/Release in production
  - pkg/metrics: pool gauges, creation and eviction counters
  - pkg/api: Status backs GET /manager_status; Create backs
    POST /create_manager
  - cmd/faas: StopAll wired into process shutdown

# Design Patterns

Collect-Then-Act Pattern:
  - Decisions (what to evict, what to create) are made under the lock
  - Actions (stop, remove, create) are performed outside it
  - Keeps dispatch latency independent of daemon latency

Injected Probe Pattern:
  - The readiness probe is a swappable function field
  - Production uses pkg/health against the worker's /status
  - Tests substitute an immediate success and drive cycles by hand

Stop-Channel Loop Pattern:
  - Eviction runs on a ticker select with a stop channel
  - StopAll closes the channel once and waits for loop exit before
    tearing containers down

# Performance Characteristics

Checkout latency:
  - Warm pool hit: microseconds (map scan under one mutex)
  - Cold creation: dominated by container start + readiness probe,
    typically 1-5s depending on image and worker boot

Eviction cycle:
  - O(n log n) in pool size for the idle sort
  - Inspect calls are serialized per cycle; a pool of dozens refreshes
    in well under a second against a local daemon

Memory:
  - ~200 bytes per container record
  - No per-dispatch allocation beyond the entry lookup

# Troubleshooting

Checkout returns ErrResourceExhausted:
  - Cause: container creation failed or max_containers reached
  - Check: daemon reachable, image present, pool cap
  - The failed container's log tail is in the controller log

Pool never shrinks:
  - Check: idle_timeout versus clean interval (eviction only fires on
    cycle boundaries)
  - Check: min_idle_containers — the minimum is never evicted below

Pool never reaches min_idle_containers:
  - Cause: pre-warm creations failing every cycle
  - Check: "pre-warm creation failed" warnings in the log

Containers leak after crash:
  - StopAll only runs on orderly shutdown; a killed process leaves
    containers behind
  - Recover with: docker ps --filter name=<function>- and remove

# Monitoring

Key metrics (see pkg/metrics):

  - faas_containers_total{function,status}: pool composition
  - faas_container_creations_total{function,outcome}: creation churn
  - faas_container_evictions_total{function}: eviction rate

Alert when idle count stays at zero while dispatch volume is nonzero:
the pool is thrashing through cold starts.

# See Also

  - pkg/runtime: the driver the manager orchestrates
  - pkg/health: the readiness probe
  - pkg/dispatcher: the consumer of checked-out containers
*/
package manager
