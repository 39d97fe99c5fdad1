package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/Jurf666/FaaSDocker/pkg/config"
	"github.com/Jurf666/FaaSDocker/pkg/log"
	"github.com/Jurf666/FaaSDocker/pkg/manager"
	"github.com/Jurf666/FaaSDocker/pkg/metrics"
	"github.com/Jurf666/FaaSDocker/pkg/perf"
	"github.com/Jurf666/FaaSDocker/pkg/runtime"
	"github.com/Jurf666/FaaSDocker/pkg/storage"
	"github.com/Jurf666/FaaSDocker/pkg/types"
)

const (
	initTimeout = 10 * time.Second
	runTimeout  = 300 * time.Second

	logTailOnRunFailure = 50
)

// Dispatcher drives single invocations end to end: checkout, init, sampler
// attach, run, teardown. Container release and sampler stop happen on every
// exit path.
type Dispatcher struct {
	registry *manager.Registry
	driver   runtime.Driver
	sampler  perf.Sampler
	store    storage.Store
	cfg      *config.Config
	logger   zerolog.Logger

	initClient *http.Client
	runClient  *http.Client
}

// New creates a dispatcher. store may be nil when invocation history is not
// persisted.
func New(registry *manager.Registry, driver runtime.Driver, sampler perf.Sampler, store storage.Store, cfg *config.Config) *Dispatcher {
	return &Dispatcher{
		registry:   registry,
		driver:     driver,
		sampler:    sampler,
		store:      store,
		cfg:        cfg,
		logger:     log.WithComponent("dispatcher"),
		initClient: &http.Client{Timeout: initTimeout},
		runClient:  &http.Client{Timeout: runTimeout},
	}
}

// Dispatch runs one invocation. Only a /run failure is surfaced as an error;
// init and sampler problems are logged and the invocation proceeds without
// them. The checked-out container id is returned for log correlation.
func (d *Dispatcher) Dispatch(ctx context.Context, functionName string, payload any, runPerf bool, logDir string) (result any, containerID string, err error) {
	mgr, err := d.registry.Get(functionName)
	if err != nil {
		return nil, "", err
	}

	timer := metrics.NewTimer()

	hostPort, containerID, err := mgr.Checkout(ctx)
	if err != nil {
		metrics.DispatchesTotal.WithLabelValues(functionName, "error").Inc()
		return nil, "", err
	}
	defer mgr.Release(containerID)

	dlog := d.logger.With().
		Str("function", functionName).
		Str("container", log.ShortID(containerID)).
		Logger()

	// Init is best effort: workers re-init idempotently
	if err := d.initWorker(ctx, hostPort, functionName); err != nil {
		dlog.Warn().Err(err).Msg("worker init failed, attempting run anyway")
	}

	// Attach the sampler between init and run so the window covers only the
	// function body
	var proc perf.Process
	if runPerf {
		proc = d.attachSampler(ctx, dlog, functionName, containerID, logDir)
		if proc != nil {
			time.Sleep(d.cfg.Perf.AttachDelay.Std())
		}
	}
	defer func() {
		if proc == nil {
			return
		}
		if stopErr := proc.Stop(d.cfg.Perf.StopGrace.Std()); stopErr != nil {
			metrics.SamplerFailuresTotal.Inc()
			dlog.Warn().Err(stopErr).Msg("sampler teardown failed")
		}
	}()

	result, err = d.runWorker(ctx, hostPort, payload)
	if err != nil {
		d.logWorkerTail(dlog, containerID)
		metrics.DispatchesTotal.WithLabelValues(functionName, "error").Inc()
		return nil, containerID, fmt.Errorf("%w: %v", types.ErrWorkerRun, err)
	}

	metrics.DispatchesTotal.WithLabelValues(functionName, "success").Inc()
	timer.ObserveDurationVec(metrics.DispatchDuration, functionName)

	return result, containerID, nil
}

// initWorker loads the function's code into the worker process
func (d *Dispatcher) initWorker(ctx context.Context, hostPort int, action string) error {
	body, err := json.Marshal(map[string]string{"action": action})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("http://127.0.0.1:%d/init", hostPort)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.initClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("init returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// runWorker executes the loaded function and unwraps the result field
func (d *Dispatcher) runWorker(ctx context.Context, hostPort int, payload any) (any, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	url := fmt.Sprintf("http://127.0.0.1:%d/run", hostPort)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.runClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("run returned HTTP %d", resp.StatusCode)
	}

	var runResp types.RunResponse
	if err := json.NewDecoder(resp.Body).Decode(&runResp); err != nil {
		return nil, fmt.Errorf("failed to decode run response: %w", err)
	}

	return runResp.Result, nil
}

// attachSampler resolves the container's pid and launches the external
// counter sampler. Any failure is non-fatal: the dispatch proceeds
// unmeasured.
func (d *Dispatcher) attachSampler(ctx context.Context, dlog zerolog.Logger, functionName, containerID, logDir string) perf.Process {
	info, err := d.driver.Inspect(ctx, containerID)
	if err != nil || info.PID == 0 {
		metrics.SamplerFailuresTotal.Inc()
		dlog.Warn().Err(err).Msg("could not resolve container pid, skipping sampler")
		return nil
	}

	if err := os.MkdirAll(logDir, 0o755); err != nil {
		metrics.SamplerFailuresTotal.Inc()
		dlog.Warn().Err(err).Msg("could not create perf log dir, skipping sampler")
		return nil
	}

	proc, err := d.sampler.Launch(info.PID, d.cfg.Perf.Events, ReportPath(logDir, functionName, containerID))
	if err != nil {
		metrics.SamplerFailuresTotal.Inc()
		dlog.Warn().Err(err).Msg("sampler launch failed, continuing without metrics")
		return nil
	}

	return proc
}

// logWorkerTail captures recent container output when a run fails
func (d *Dispatcher) logWorkerTail(dlog zerolog.Logger, containerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tail, err := d.driver.Logs(ctx, containerID, logTailOnRunFailure)
	if err != nil {
		dlog.Debug().Err(err).Msg("could not fetch container logs")
		return
	}
	dlog.Warn().Bytes("logs", tail).Msg("container output after failed run")
}

// ReportPath is the sampler report location for one invocation. Uniqueness
// holds because a container is busy at most once at a time.
func ReportPath(logDir, functionName, containerID string) string {
	return filepath.Join(logDir, fmt.Sprintf("%s_%s.txt", functionName, log.ShortID(containerID)))
}
