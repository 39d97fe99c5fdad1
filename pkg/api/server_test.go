package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jurf666/FaaSDocker/pkg/config"
	"github.com/Jurf666/FaaSDocker/pkg/dispatcher"
	"github.com/Jurf666/FaaSDocker/pkg/log"
	"github.com/Jurf666/FaaSDocker/pkg/manager"
	"github.com/Jurf666/FaaSDocker/pkg/perf"
	"github.com/Jurf666/FaaSDocker/pkg/runtime"
	"github.com/Jurf666/FaaSDocker/pkg/types"
	"github.com/Jurf666/FaaSDocker/pkg/workflow"
)

func TestMain(m *testing.M) {
	log.Init(log.Config{Level: log.ErrorLevel, Output: io.Discard})
	m.Run()
}

// stubDriver points every container at one worker address
type stubDriver struct {
	hostPort int

	mu  sync.Mutex
	seq int
	ids map[string]bool
}

func (d *stubDriver) Create(ctx context.Context, name string, opts runtime.CreateOpts) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	id := fmt.Sprintf("apistub%09d", d.seq)
	d.ids[id] = true
	return id, nil
}

func (d *stubDriver) Inspect(ctx context.Context, id string) (runtime.Info, error) {
	return runtime.Info{HostPort: d.hostPort, PID: 4321, Running: true, State: "running"}, nil
}

func (d *stubDriver) Logs(ctx context.Context, id string, tail int) ([]byte, error) {
	return nil, nil
}

func (d *stubDriver) Stop(ctx context.Context, id string, grace time.Duration) error { return nil }

func (d *stubDriver) Remove(ctx context.Context, id string, force bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.ids, id)
	return nil
}

func (d *stubDriver) Close() error { return nil }

// nopSampler satisfies perf.Sampler without spawning anything
type nopSampler struct{}

type nopProc struct{}

func (nopSampler) Launch(pid int, events, path string) (perf.Process, error) {
	return nopProc{}, nil
}
func (nopProc) Stop(grace time.Duration) error { return nil }
func (nopProc) Running() bool                  { return false }

func newTestServer(t *testing.T) (*Server, *manager.Registry) {
	t.Helper()

	workerMux := http.NewServeMux()
	workerMux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(types.WorkerStatus{Status: "ready"})
	})
	workerMux.HandleFunc("/init", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	workerMux.HandleFunc("/run", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(types.RunResponse{
			Result: map[string]any{"status": "ok"},
		})
	})
	worker := httptest.NewServer(workerMux)
	t.Cleanup(worker.Close)

	parts := strings.Split(worker.Listener.Addr().String(), ":")
	port, err := strconv.Atoi(parts[len(parts)-1])
	require.NoError(t, err)

	driver := &stubDriver{hostPort: port, ids: make(map[string]bool)}
	registry := manager.NewRegistry(driver)
	t.Cleanup(registry.StopAll)

	cfg := config.Default()
	cfg.PerfLogDir = t.TempDir()
	cfg.Perf.Enabled = false // API tests exercise routing, not measurement

	disp := dispatcher.New(registry, driver, nopSampler{}, nil, cfg)
	orch := workflow.New(disp)

	return New(registry, disp, orch, nil, cfg), registry
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(data))
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestCreateManagerLifecycle(t *testing.T) {
	server, _ := newTestServer(t)
	h := server.Handler()

	// Missing function_name
	w := doJSON(t, h, "POST", "/create_manager", map[string]any{"image_name": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// First registration creates
	w = doJSON(t, h, "POST", "/create_manager", map[string]any{
		"function_name":       "noop",
		"image_name":          "workflow-proxy:latest",
		"container_port":      5000,
		"min_idle_containers": 1,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "created", created["status"])

	// Second registration is an idempotent no-op
	w = doJSON(t, h, "POST", "/create_manager", map[string]any{"function_name": "noop"})
	require.Equal(t, http.StatusOK, w.Code)

	var exists map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &exists))
	assert.Equal(t, "exists", exists["status"])
}

func TestDispatchEndpoint(t *testing.T) {
	server, registry := newTestServer(t)
	h := server.Handler()

	w := doJSON(t, h, "POST", "/create_manager", map[string]any{
		"function_name":  "noop",
		"image_name":     "workflow-proxy:latest",
		"container_port": 5000,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, h, "POST", "/dispatch/noop", map[string]any{})
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp["status"])
	assert.NotEmpty(t, resp["container"])

	// The container is back in the pool
	mgr, err := registry.Get("noop")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, mgr.Status().Idle, 1)
}

func TestDispatchUnknownFunctionIs502(t *testing.T) {
	server, _ := newTestServer(t)

	w := doJSON(t, server.Handler(), "POST", "/dispatch/ghost", map[string]any{})
	require.Equal(t, http.StatusBadGateway, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "error", resp["status"])
}

func TestDispatchWorkflowEndpoint(t *testing.T) {
	server, _ := newTestServer(t)
	h := server.Handler()

	// Unknown workflow
	w := doJSON(t, h, "POST", "/dispatch_workflow", map[string]any{
		"workflow_name": "nope",
		"payload":       map[string]any{},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Missing name
	w = doJSON(t, h, "POST", "/dispatch_workflow", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Known workflow is accepted asynchronously; managers are not registered
	// here so the run itself will fail in the background, which is exactly
	// the observable-only-via-logs contract
	w = doJSON(t, h, "POST", "/dispatch_workflow", map[string]any{
		"workflow_name": "wordcount",
		"payload":       map[string]any{"input_filename": "book.txt", "slice_num": 4},
	})
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "started", resp["status"])
	assert.NotEmpty(t, resp["run_id"])
}

func TestManagerStatusEndpoint(t *testing.T) {
	server, _ := newTestServer(t)
	h := server.Handler()

	w := doJSON(t, h, "GET", "/manager_status/ghost", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, h, "POST", "/create_manager", map[string]any{
		"function_name": "matmul",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, h, "GET", "/manager_status/matmul", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var status types.PoolStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "matmul", status.Function)
	assert.Equal(t, 0, status.Total)
}

func TestHealthzEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	w := doJSON(t, server.Handler(), "GET", "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
