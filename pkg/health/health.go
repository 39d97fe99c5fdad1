package health

import (
	"context"
	"time"
)

// Result represents the outcome of one readiness probe
type Result struct {
	Ready     bool
	Message   string
	CheckedAt time.Time
	Duration  time.Duration
}

// Checker probes a worker once; WaitReady drives a Checker to a deadline
type Checker interface {
	Check(ctx context.Context) Result
}
