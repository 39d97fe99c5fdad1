package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Jurf666/FaaSDocker/pkg/log"
	"github.com/Jurf666/FaaSDocker/pkg/metrics"
)

// ErrUnknownWorkflow means no DAG is defined under the requested name
var ErrUnknownWorkflow = errors.New("unknown workflow")

// Invoker dispatches one function invocation; the dispatcher satisfies it
type Invoker interface {
	DispatchWithDenoising(ctx context.Context, functionName string, payload any) (any, string, error)
}

// runFunc executes one workflow DAG to completion
type runFunc func(ctx context.Context, o *Orchestrator, wlog zerolog.Logger, payload json.RawMessage) error

// Orchestrator runs the statically defined workflow DAGs. Execution is
// asynchronous: Start returns a run id immediately and the DAG proceeds on a
// background goroutine, observable through logs.
type Orchestrator struct {
	invoker   Invoker
	logger    zerolog.Logger
	workflows map[string]runFunc
}

// New creates an orchestrator over the given invoker
func New(invoker Invoker) *Orchestrator {
	return &Orchestrator{
		invoker: invoker,
		logger:  log.WithComponent("workflow"),
		workflows: map[string]runFunc{
			"video":      runVideo,
			"recognizer": runRecognizer,
			"svd":        runSVD,
			"wordcount":  runWordcount,
		},
	}
}

// Known reports whether a workflow name is defined
func (o *Orchestrator) Known(name string) bool {
	_, ok := o.workflows[name]
	return ok
}

// Start launches a workflow in the background and returns its run id.
// Unknown names fail synchronously with ErrUnknownWorkflow.
func (o *Orchestrator) Start(name string, payload json.RawMessage) (string, error) {
	run, ok := o.workflows[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownWorkflow, name)
	}

	runID := uuid.NewString()[:8]
	wlog := log.WithWorkflow(name, runID)

	go func() {
		// No user-initiated cancellation: timeouts inside each dispatch are
		// the only termination pressure
		ctx := context.Background()
		timer := metrics.NewTimer()

		wlog.Info().Msg("workflow started")

		if err := run(ctx, o, wlog, payload); err != nil {
			metrics.WorkflowsTotal.WithLabelValues(name, "error").Inc()
			wlog.Error().Err(err).Msg("workflow failed")
			return
		}

		metrics.WorkflowsTotal.WithLabelValues(name, "success").Inc()
		timer.ObserveDurationVec(metrics.WorkflowDuration, name)
		wlog.Info().Msg("workflow complete")
	}()

	return runID, nil
}

// Result-shape helpers: worker results arrive as decoded JSON, so stage
// plumbing reads them as maps. A missing or mistyped field aborts the run.

// decodeResult re-marshals a worker result into a typed struct, the inverse
// of the JSON decode the dispatcher applied to the wire body
func decodeResult(v any, out any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("result not re-encodable: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("result shape mismatch: %w", err)
	}
	return nil
}

func asMap(v any) (map[string]any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected object result, got %T", v)
	}
	return m, nil
}

func stringField(m map[string]any, key string) (string, error) {
	v, ok := m[key].(string)
	if !ok {
		return "", fmt.Errorf("result field %q missing or not a string", key)
	}
	return v, nil
}

func boolField(m map[string]any, key string) bool {
	v, _ := m[key].(bool)
	return v
}

func stringSliceField(m map[string]any, key string) ([]string, error) {
	raw, ok := m[key].([]any)
	if !ok {
		return nil, fmt.Errorf("result field %q missing or not a list", key)
	}
	out := make([]string, 0, len(raw))
	for i, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("result field %q[%d] is not a string", key, i)
		}
		out = append(out, s)
	}
	return out, nil
}
