package types

import "errors"

// Error kinds surfaced across component boundaries. Callers classify with
// errors.Is; sites wrap with fmt.Errorf("...: %w", err) to add context.
var (
	// ErrUnknownFunction means no manager is registered for the name
	ErrUnknownFunction = errors.New("unknown function")

	// ErrResourceExhausted means the manager could not provide a container
	ErrResourceExhausted = errors.New("resource exhausted")

	// ErrHealthCheckFailed means a new container never reported ready
	ErrHealthCheckFailed = errors.New("health check failed")

	// ErrWorkerRun means the worker's /run call failed or timed out
	ErrWorkerRun = errors.New("worker run failed")

	// Driver-level failures, kept distinct per the runtime contract
	ErrImageMissing  = errors.New("image not found")
	ErrCreateRefused = errors.New("container creation refused")
	ErrNotFound      = errors.New("container not found")
)
