package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/Jurf666/FaaSDocker/pkg/types"
)

// readyStates are the worker /status values that mean the container can take
// an /init
var readyStates = map[string]bool{
	"new":   true,
	"ok":    true,
	"ready": true,
}

// StatusChecker probes a worker's GET /status endpoint and reports ready when
// the body carries one of the accepted states
type StatusChecker struct {
	// URL is the worker status endpoint, e.g. "http://127.0.0.1:32768/status"
	URL string

	// Client is the HTTP client to use (allows custom configuration)
	Client *http.Client
}

// NewStatusChecker creates a checker for a worker bound to a host port
func NewStatusChecker(hostPort int) *StatusChecker {
	return &StatusChecker{
		URL: fmt.Sprintf("http://127.0.0.1:%d/status", hostPort),
		Client: &http.Client{
			Timeout: time.Second,
		},
	}
}

// WithTimeout sets the per-probe HTTP timeout
func (c *StatusChecker) WithTimeout(timeout time.Duration) *StatusChecker {
	c.Client.Timeout = timeout
	return c
}

// Check performs one probe
func (c *StatusChecker) Check(ctx context.Context) Result {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return Result{Message: fmt.Sprintf("failed to create request: %v", err), CheckedAt: start, Duration: time.Since(start)}
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return Result{Message: fmt.Sprintf("request failed: %v", err), CheckedAt: start, Duration: time.Since(start)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{Message: fmt.Sprintf("HTTP %d", resp.StatusCode), CheckedAt: start, Duration: time.Since(start)}
	}

	var status types.WorkerStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return Result{Message: fmt.Sprintf("bad status body: %v", err), CheckedAt: start, Duration: time.Since(start)}
	}

	return Result{
		Ready:     readyStates[status.Status],
		Message:   status.Status,
		CheckedAt: start,
		Duration:  time.Since(start),
	}
}

// WaitReady polls the checker at interval until it reports ready or deadline
// elapses. The final probe error is wrapped in ErrHealthCheckFailed.
func WaitReady(ctx context.Context, checker Checker, interval, deadline time.Duration) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = interval
	policy.MaxInterval = interval
	policy.Multiplier = 1 // constant-interval polling
	policy.RandomizationFactor = 0
	policy.MaxElapsedTime = deadline
	policy.Reset()

	var last Result
	probe := func() error {
		last = checker.Check(ctx)
		if !last.Ready {
			return fmt.Errorf("not ready: %s", last.Message)
		}
		return nil
	}

	if err := backoff.Retry(probe, backoff.WithContext(policy, ctx)); err != nil {
		return fmt.Errorf("%w: %v", types.ErrHealthCheckFailed, err)
	}
	return nil
}
