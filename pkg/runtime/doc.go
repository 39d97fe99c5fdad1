/*
Package runtime provides the container driver: a thin capability layer over
the Docker Engine API that the rest of the controller uses for every
container operation.

The driver's contract is deliberately small — create, inspect, logs, stop,
remove — because the pool manager owns all lifecycle policy. The one piece
of policy the driver does carry is port allocation: the daemon assigns the
host port, which is the only way two managers can never collide on one.

# Architecture

	┌──────────────────── CONTAINER DRIVER ────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐           │
	│  │            Driver interface                 │           │
	│  │  Create / Inspect / Logs / Stop / Remove    │           │
	│  │  - consumed by pkg/manager, pkg/dispatcher  │           │
	│  │  - faked in-memory by the test suites       │           │
	│  └──────────────────┬─────────────────────────┘           │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐           │
	│  │            DockerDriver                     │           │
	│  │  - client.NewClientWithOpts(FromEnv,        │           │
	│  │      WithAPIVersionNegotiation)             │           │
	│  │  - optional explicit daemon host            │           │
	│  └──────────────────┬─────────────────────────┘           │
	│                     │ HTTP over unix socket / tcp          │
	│  ┌──────────────────▼─────────────────────────┐           │
	│  │            Docker daemon                    │           │
	│  │  - image store, container lifecycle         │           │
	│  │  - ephemeral host-port allocation           │           │
	│  │  - userland proxy for published ports       │           │
	│  └────────────────────────────────────────────┘           │
	└──────────────────────────────────────────────────────────┘

# Core Components

Driver interface:
  - The only surface the controller sees
  - Context-first methods, explicit timeouts at every call site
  - Implemented by DockerDriver in production and by in-memory fakes
    in the manager, dispatcher and api test suites

DockerDriver:
  - One Engine API client per process, shared by every manager
  - The daemon is treated as an external shared service with its own
    concurrency guarantees; no additional locking is layered on top

Info:
  - The inspect projection the controller needs: host port, pid of the
    container's main process, liveness, raw state string
  - HostPort is 0 until the daemon publishes the mapping; callers poll

CreateOpts:
  - Image, internal port, optional shared-storage bind mount
  - StoragePath, when set, is mounted at /storage so functions exchange
    artifacts by path instead of through the controller

# Error Mapping

The driver surfaces failure modes as distinct error kinds from pkg/types,
mapped from the Engine API's errdefs classification:

	Engine API condition            Driver error
	──────────────────────────────  ─────────────────────────
	404 on create (no such image)   types.ErrImageMissing
	create/start rejected           types.ErrCreateRefused
	404 on inspect/logs/stop/remove types.ErrNotFound
	anything else                   wrapped original error

Nothing is swallowed: every path either returns the mapped error or a
wrapped original with the container id in the message.

# Port Allocation

Create publishes the worker's internal port with an empty HostPort
binding:

	PortBindings: nat.PortMap{port: {{HostIP: "0.0.0.0", HostPort: ""}}}

The daemon picks a free ephemeral port and exposes it through inspect.
Because allocation lives in the daemon, the controller never tracks,
reserves or reuses port numbers, and concurrent managers cannot race
for the same one. The mapping is not synchronous with create; the pool
manager polls Inspect until HostPort is nonzero.

# Usage

Connecting:

	driver, err := runtime.NewDockerDriver("") // from environment
	if err != nil {
		return err
	}
	defer driver.Close()

Creating and resolving a worker:

	id, err := driver.Create(ctx, "wordcount_count-3fa9c1d2", runtime.CreateOpts{
		Image:        "workflow-proxy:latest",
		InternalPort: 5000,
		StoragePath:  "/srv/faas/storage",
	})
	if err != nil {
		if errors.Is(err, types.ErrImageMissing) {
			// pull or fail registration
		}
		return err
	}

	info, err := driver.Inspect(ctx, id)
	// info.HostPort → where the worker listens on the host
	// info.PID      → target for the perf sampler
	// info.Running  → liveness for the eviction loop

Diagnostics and teardown:

	tail, _ := driver.Logs(ctx, id, 80) // demuxed stdout+stderr
	_ = driver.Stop(ctx, id, 5*time.Second)
	_ = driver.Remove(ctx, id, true)

# Integration Points

This package integrates with:

  - pkg/manager: creation protocol, liveness refresh, eviction, teardown
  - pkg/dispatcher: pid resolution for the sampler, log tails on failure
  - cmd/faas: constructs the single DockerDriver at startup

# Design Patterns

Capability Interface Pattern:
  - Consumers depend on the five-method Driver, not on the Docker SDK
  - Test fakes are ~50 lines; no daemon needed for the core test suites

Error Taxonomy Pattern:
  - Sentinel errors wrapped with %w, classified by errors.Is
  - Callers branch on kind (image missing vs not found) without string
    matching

Half-Create Cleanup Pattern:
  - If start fails after create, the driver force-removes the container
    before returning, so no unstarted container leaks into the daemon

# Performance Characteristics

Operation latencies against a local daemon:
  - Inspect: ~1-3ms
  - Create + start: 300ms-2s depending on image size
  - Stop: bounded by the grace period plus daemon overhead
  - Logs (tail 50-80): ~5-10ms

The client negotiates API version once; all subsequent calls reuse the
connection.

# Troubleshooting

"failed to connect to docker daemon":
  - Check the socket (/var/run/docker.sock) or DOCKER_HOST
  - Check daemon is running and the controller's user is in the docker
    group

Create succeeds but HostPort stays 0:
  - The daemon has not finished wiring the userland proxy; the manager's
    bounded poll covers this
  - If it never appears, the container likely exited at boot — fetch
    Logs and look at the worker's startup output

ErrImageMissing on a present image:
  - Tag mismatch; Create does not pull. Build or pull the exact
    image_name the manager was registered with

# Security

  - The Engine API socket is root-equivalent; the controller should run
    under a dedicated user with docker group membership, not as root
  - Bind mounts are limited to the registered host_storage_path; no
    other host paths are exposed to workers
  - Workers listen on daemon-published ephemeral ports bound to all
    interfaces; firewall accordingly in multi-host deployments

# See Also

  - pkg/manager: the lifecycle policy above this driver
  - pkg/types: the shared error kinds
  - Docker Engine API: https://docs.docker.com/engine/api/
*/
package runtime
