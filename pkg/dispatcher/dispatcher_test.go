package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jurf666/FaaSDocker/pkg/config"
	"github.com/Jurf666/FaaSDocker/pkg/log"
	"github.com/Jurf666/FaaSDocker/pkg/manager"
	"github.com/Jurf666/FaaSDocker/pkg/perf"
	"github.com/Jurf666/FaaSDocker/pkg/runtime"
	"github.com/Jurf666/FaaSDocker/pkg/storage"
	"github.com/Jurf666/FaaSDocker/pkg/types"
)

func TestMain(m *testing.M) {
	log.Init(log.Config{Level: log.ErrorLevel, Output: io.Discard})
	m.Run()
}

// fakeWorker stands in for a worker container: /status, /init, /run
type fakeWorker struct {
	server *httptest.Server

	mu        sync.Mutex
	initCalls int
	runCalls  int
	failInit  bool
	failRuns  int // fail this many /run calls before succeeding
	result    any
}

func newFakeWorker(t *testing.T) *fakeWorker {
	t.Helper()

	w := &fakeWorker{result: map[string]any{"status": "ok", "latency": 0.01}}

	mux := http.NewServeMux()
	mux.HandleFunc("/status", func(rw http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(rw).Encode(types.WorkerStatus{Status: "ok"})
	})
	mux.HandleFunc("/init", func(rw http.ResponseWriter, r *http.Request) {
		w.mu.Lock()
		w.initCalls++
		fail := w.failInit
		w.mu.Unlock()
		if fail {
			http.Error(rw, "init exploded", http.StatusInternalServerError)
			return
		}
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("OK"))
	})
	mux.HandleFunc("/run", func(rw http.ResponseWriter, r *http.Request) {
		w.mu.Lock()
		w.runCalls++
		fail := w.failRuns > 0
		if fail {
			w.failRuns--
		}
		result := w.result
		w.mu.Unlock()

		if fail {
			http.Error(rw, "run exploded", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(rw).Encode(types.RunResponse{
			StartTime: 1, EndTime: 2, Duration: 1,
			Result: result,
		})
	})

	w.server = httptest.NewServer(mux)
	t.Cleanup(w.server.Close)

	return w
}

func (w *fakeWorker) port(t *testing.T) int {
	t.Helper()
	parts := strings.Split(w.server.Listener.Addr().String(), ":")
	port, err := strconv.Atoi(parts[len(parts)-1])
	require.NoError(t, err)
	return port
}

// fakeDriver maps every container onto the fake worker's port
type fakeDriver struct {
	hostPort int

	mu  sync.Mutex
	seq int
	ids map[string]bool
}

func newFakeDriver(hostPort int) *fakeDriver {
	return &fakeDriver{hostPort: hostPort, ids: make(map[string]bool)}
}

func (d *fakeDriver) Create(ctx context.Context, name string, opts runtime.CreateOpts) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	id := fmt.Sprintf("dispatchfake%06d", d.seq)
	d.ids[id] = true
	return id, nil
}

func (d *fakeDriver) Inspect(ctx context.Context, id string) (runtime.Info, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.ids[id] {
		return runtime.Info{}, fmt.Errorf("%w: %s", types.ErrNotFound, id)
	}
	return runtime.Info{HostPort: d.hostPort, PID: 1234, Running: true, State: "running"}, nil
}

func (d *fakeDriver) Logs(ctx context.Context, id string, tail int) ([]byte, error) {
	return []byte("worker stack trace"), nil
}

func (d *fakeDriver) Stop(ctx context.Context, id string, grace time.Duration) error { return nil }

func (d *fakeDriver) Remove(ctx context.Context, id string, force bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.ids, id)
	return nil
}

func (d *fakeDriver) Close() error { return nil }

var _ runtime.Driver = (*fakeDriver)(nil)

// fakeSampler writes a canned report at launch and tracks teardown
type fakeSampler struct {
	mu       sync.Mutex
	launches int
	stops    int
	failStop bool
	empty    bool
}

type fakeSamplerProc struct {
	s       *fakeSampler
	stopped bool
}

func (s *fakeSampler) Launch(pid int, events, path string) (perf.Process, error) {
	s.mu.Lock()
	s.launches++
	empty := s.empty
	s.mu.Unlock()

	report := ""
	if !empty {
		scale := 1.0
		if strings.Contains(filepath.Base(path), "noop_") {
			scale = 0.1 // the baseline is cheaper than any real function
		}
		report = fmt.Sprintf(
			"     %d      cycles\n     %d      instructions\n     %.2f msec task-clock\n     12      context-switches\n     %d      cache-misses\n     100      page-faults\n       0.5 seconds time elapsed\n",
			int(1000000*scale), int(800000*scale), 52.5*scale, int(5000*scale),
		)
	}
	if err := os.WriteFile(path, []byte(report), 0o644); err != nil {
		return nil, err
	}

	return &fakeSamplerProc{s: s}, nil
}

func (p *fakeSamplerProc) Stop(grace time.Duration) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	p.stopped = true
	p.s.stops++
	if p.s.failStop {
		return fmt.Errorf("sampler already dead")
	}
	return nil
}

func (p *fakeSamplerProc) Running() bool { return !p.stopped }

var _ perf.Sampler = (*fakeSampler)(nil)

type testRig struct {
	worker     *fakeWorker
	driver     *fakeDriver
	sampler    *fakeSampler
	registry   *manager.Registry
	store      *storage.BoltStore
	dispatcher *Dispatcher
	cfg        *config.Config
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()

	worker := newFakeWorker(t)
	driver := newFakeDriver(worker.port(t))
	sampler := &fakeSampler{}
	registry := manager.NewRegistry(driver)
	t.Cleanup(registry.StopAll)

	store, err := storage.NewBoltStore(filepath.Join(t.TempDir(), "faas.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := config.Default()
	cfg.PerfLogDir = t.TempDir()
	cfg.Perf.AttachDelay = 0
	cfg.Perf.StopGrace = config.Duration(100 * time.Millisecond)

	return &testRig{
		worker:     worker,
		driver:     driver,
		sampler:    sampler,
		registry:   registry,
		store:      store,
		dispatcher: New(registry, driver, sampler, store, cfg),
		cfg:        cfg,
	}
}

func (r *testRig) register(t *testing.T, name string) *manager.Manager {
	t.Helper()

	m, _, err := r.registry.Create(types.ManagerConfig{
		FunctionName:  name,
		ImageName:     "workflow-proxy:latest",
		ContainerPort: 5000,
		IdleTimeout:   time.Minute,
		CleanInterval: time.Hour,
	})
	require.NoError(t, err)
	return m
}

func TestDispatchSuccess(t *testing.T) {
	rig := newTestRig(t)
	mgr := rig.register(t, "matmul")

	result, containerID, err := rig.dispatcher.Dispatch(context.Background(), "matmul", map[string]any{"param": 5000}, false, rig.cfg.PerfLogDir)
	require.NoError(t, err)
	assert.NotEmpty(t, containerID)
	assert.NotNil(t, result)

	// The worker was driven through init then run
	assert.Equal(t, 1, rig.worker.initCalls)
	assert.Equal(t, 1, rig.worker.runCalls)

	// And the container went back to idle
	status := mgr.Status()
	assert.Equal(t, 0, status.Busy)
	assert.Equal(t, 1, status.Idle)
}

func TestDispatchUnknownFunction(t *testing.T) {
	rig := newTestRig(t)

	_, _, err := rig.dispatcher.Dispatch(context.Background(), "ghost", nil, false, rig.cfg.PerfLogDir)
	require.ErrorIs(t, err, types.ErrUnknownFunction)
}

func TestDispatchRunFailureReleasesContainer(t *testing.T) {
	rig := newTestRig(t)
	mgr := rig.register(t, "matmul")
	rig.worker.failRuns = 1

	_, _, err := rig.dispatcher.Dispatch(context.Background(), "matmul", nil, true, rig.cfg.PerfLogDir)
	require.ErrorIs(t, err, types.ErrWorkerRun)

	// Release happened despite the failure
	status := mgr.Status()
	assert.Equal(t, 0, status.Busy)
	assert.Equal(t, 1, status.Idle)

	// And the sampler did not outlive the dispatch
	assert.Equal(t, 1, rig.sampler.launches)
	assert.Equal(t, 1, rig.sampler.stops)
}

func TestDispatchInitFailureIsNonFatal(t *testing.T) {
	rig := newTestRig(t)
	rig.register(t, "matmul")
	rig.worker.failInit = true

	result, _, err := rig.dispatcher.Dispatch(context.Background(), "matmul", nil, false, rig.cfg.PerfLogDir)
	require.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, 1, rig.worker.runCalls)
}

func TestDispatchWithDenoisingWritesCleanRecord(t *testing.T) {
	rig := newTestRig(t)
	rig.register(t, "matmul")

	result, _, err := rig.dispatcher.DispatchWithDenoising(context.Background(), "matmul", map[string]any{"param": 100})
	require.NoError(t, err)
	assert.NotNil(t, result)

	// The noop manager was registered on demand and the baseline measured
	_, err = rig.registry.Get("noop")
	require.NoError(t, err)
	assert.Equal(t, 2, rig.sampler.launches, "baseline and target both sampled")

	// A clean record landed in the target's perf subdirectory
	perfDir := filepath.Join(rig.cfg.PerfLogDir, "matmul")
	matches, err := filepath.Glob(filepath.Join(perfDir, "clean_matmul_*.json"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)

	var rec types.InvocationRecord
	require.NoError(t, json.Unmarshal(data, &rec))

	assert.Equal(t, "matmul", rec.Function)
	assert.Contains(t, rec.CleanMetrics, "cycles")
	assert.Contains(t, rec.CleanMetrics, "instructions")
	assert.Contains(t, rec.CleanMetrics, "IPC")

	for key, v := range rec.CleanMetrics {
		if key == "IPC" {
			continue
		}
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, rec.RawMetrics[key]+1e-9)
	}

	// The record is also in the history store
	records, err := rig.store.ListInvocations("matmul", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, rec.Container, records[0].Container)
}

func TestDispatchWithDenoisingBaselineFailure(t *testing.T) {
	rig := newTestRig(t)
	rig.register(t, "matmul")
	rig.worker.failRuns = 1 // the baseline runs first and eats the failure

	result, _, err := rig.dispatcher.DispatchWithDenoising(context.Background(), "matmul", map[string]any{})
	require.NoError(t, err, "a failed baseline must not fail the target")
	assert.NotNil(t, result)

	perfDir := filepath.Join(rig.cfg.PerfLogDir, "matmul")
	matches, err := filepath.Glob(filepath.Join(perfDir, "clean_matmul_*.json"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	var rec types.InvocationRecord
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &rec))

	assert.Empty(t, rec.NoiseBaseline, "baseline failure yields empty noise")
}

func TestDispatchSurvivesDeadSampler(t *testing.T) {
	rig := newTestRig(t)
	rig.register(t, "matmul")
	rig.sampler.empty = true    // killed sampler leaves an empty report
	rig.sampler.failStop = true // and teardown errors

	result, _, err := rig.dispatcher.DispatchWithDenoising(context.Background(), "matmul", map[string]any{})
	require.NoError(t, err)
	assert.NotNil(t, result)

	perfDir := filepath.Join(rig.cfg.PerfLogDir, "matmul")
	matches, err := filepath.Glob(filepath.Join(perfDir, "clean_matmul_*.json"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	var rec types.InvocationRecord
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &rec))

	assert.Empty(t, rec.RawMetrics)
	for key, v := range rec.CleanMetrics {
		assert.Zero(t, v, "clean[%s] should be zero with no raw data", key)
	}
}

func TestDispatchNoopDirect(t *testing.T) {
	rig := newTestRig(t)
	rig.register(t, "noop")

	result, _, err := rig.dispatcher.DispatchWithDenoising(context.Background(), "noop", map[string]any{})
	require.NoError(t, err)
	assert.NotNil(t, result)

	// Direct noop dispatch measures once, no baseline recursion
	assert.Equal(t, 1, rig.sampler.launches)
}
