package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/Jurf666/FaaSDocker/pkg/config"
	"github.com/Jurf666/FaaSDocker/pkg/dispatcher"
	"github.com/Jurf666/FaaSDocker/pkg/log"
	"github.com/Jurf666/FaaSDocker/pkg/manager"
	"github.com/Jurf666/FaaSDocker/pkg/metrics"
	"github.com/Jurf666/FaaSDocker/pkg/storage"
	"github.com/Jurf666/FaaSDocker/pkg/types"
	"github.com/Jurf666/FaaSDocker/pkg/workflow"
)

// Server is the controller's JSON-over-HTTP surface
type Server struct {
	registry     *manager.Registry
	dispatcher   *dispatcher.Dispatcher
	orchestrator *workflow.Orchestrator
	store        storage.Store
	cfg          *config.Config
	logger       zerolog.Logger

	httpServer *http.Server
}

// New wires the handlers onto a mux. store may be nil.
func New(registry *manager.Registry, disp *dispatcher.Dispatcher, orch *workflow.Orchestrator, store storage.Store, cfg *config.Config) *Server {
	s := &Server{
		registry:     registry,
		dispatcher:   disp,
		orchestrator: orch,
		store:        store,
		cfg:          cfg,
		logger:       log.WithComponent("api"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /create_manager", s.handleCreateManager)
	mux.HandleFunc("POST /dispatch/{function}", s.handleDispatch)
	mux.HandleFunc("POST /dispatch_workflow", s.handleDispatchWorkflow)
	mux.HandleFunc("GET /manager_status/{function}", s.handleManagerStatus)
	mux.HandleFunc("GET /invocations/{function}", s.handleInvocations)
	mux.HandleFunc("GET /healthz", metrics.HealthHandler())
	mux.Handle("GET /metrics", metrics.Handler())

	s.httpServer = &http.Server{
		Addr:              cfg.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		// No write timeout: dispatch responses wait on /run, which is
		// bounded by the dispatcher's own client timeout
	}

	return s
}

// Handler exposes the route table, primarily for tests
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until Stop is called. Blocks.
func (s *Server) Start() error {
	s.logger.Info().Str("listen", s.cfg.Listen).Msg("http server starting")
	metrics.RegisterComponent("api", true, "serving")

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop drains in-flight requests up to the context deadline
func (s *Server) Stop(ctx context.Context) error {
	metrics.UpdateComponent("api", false, "shutting down")
	return s.httpServer.Shutdown(ctx)
}

// createManagerRequest mirrors the original registration body. host_port_start
// is accepted for wire compatibility and ignored: the runtime assigns ports.
type createManagerRequest struct {
	FunctionName      string `json:"function_name"`
	ImageName         string `json:"image_name"`
	ContainerPort     int    `json:"container_port"`
	HostStoragePath   string `json:"host_storage_path"`
	HostPortStart     int    `json:"host_port_start"`
	IdleTimeout       int    `json:"idle_timeout"`
	MinIdleContainers *int   `json:"min_idle_containers"`
	MaxContainers     int    `json:"max_containers"`
}

func (s *Server) handleCreateManager(w http.ResponseWriter, r *http.Request) {
	var req createManagerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, "/create_manager", http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		return
	}
	if req.FunctionName == "" {
		s.writeJSON(w, "/create_manager", http.StatusBadRequest, map[string]any{"error": "function_name required"})
		return
	}

	defaults := s.cfg.Manager
	cfg := types.ManagerConfig{
		FunctionName:      req.FunctionName,
		ImageName:         defaults.ImageName,
		ContainerPort:     defaults.ContainerPort,
		HostStoragePath:   req.HostStoragePath,
		IdleTimeout:       defaults.IdleTimeout.Std(),
		MinIdleContainers: defaults.MinIdleContainers,
		MaxContainers:     req.MaxContainers,
		CleanInterval:     defaults.CleanInterval.Std(),
	}
	if req.ImageName != "" {
		cfg.ImageName = req.ImageName
	}
	if req.ContainerPort > 0 {
		cfg.ContainerPort = req.ContainerPort
	}
	if req.IdleTimeout > 0 {
		cfg.IdleTimeout = time.Duration(req.IdleTimeout) * time.Second
	}
	if req.MinIdleContainers != nil {
		cfg.MinIdleContainers = *req.MinIdleContainers
	}

	_, existed, err := s.registry.Create(cfg)
	if err != nil {
		s.writeJSON(w, "/create_manager", http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}

	if existed {
		s.writeJSON(w, "/create_manager", http.StatusOK, map[string]any{
			"status":  "exists",
			"message": "manager " + req.FunctionName + " already exists",
		})
		return
	}

	s.writeJSON(w, "/create_manager", http.StatusCreated, map[string]any{
		"status":   "created",
		"function": req.FunctionName,
	})
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	functionName := r.PathValue("function")

	var payload any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		payload = map[string]any{}
	}

	result, containerID, err := s.dispatchForRequest(r, functionName, payload)
	if err != nil {
		s.logger.Error().Err(err).Str("function", functionName).Msg("dispatch failed")
		s.writeJSON(w, "/dispatch", http.StatusBadGateway, map[string]any{
			"status":  "error",
			"message": err.Error(),
		})
		return
	}

	s.writeJSON(w, "/dispatch", http.StatusOK, map[string]any{
		"status":    "success",
		"result":    result,
		"container": log.ShortID(containerID),
	})
}

// dispatchForRequest honours the ?perf query override of the configured
// measurement default
func (s *Server) dispatchForRequest(r *http.Request, functionName string, payload any) (any, string, error) {
	if v := r.URL.Query().Get("perf"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil && !enabled {
			return s.dispatcher.Dispatch(r.Context(), functionName, payload, false, s.cfg.PerfLogDir)
		}
	}
	return s.dispatcher.DispatchWithDenoising(r.Context(), functionName, payload)
}

type dispatchWorkflowRequest struct {
	WorkflowName string          `json:"workflow_name"`
	Payload      json.RawMessage `json:"payload"`
}

func (s *Server) handleDispatchWorkflow(w http.ResponseWriter, r *http.Request) {
	var req dispatchWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, "/dispatch_workflow", http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		return
	}
	if req.WorkflowName == "" {
		s.writeJSON(w, "/dispatch_workflow", http.StatusBadRequest, map[string]any{"error": "workflow_name required"})
		return
	}
	if !s.orchestrator.Known(req.WorkflowName) {
		s.writeJSON(w, "/dispatch_workflow", http.StatusNotFound, map[string]any{
			"error": "unknown workflow_name: " + req.WorkflowName,
		})
		return
	}

	if req.Payload == nil {
		req.Payload = json.RawMessage(`{}`)
	}

	runID, err := s.orchestrator.Start(req.WorkflowName, req.Payload)
	if err != nil {
		s.writeJSON(w, "/dispatch_workflow", http.StatusNotFound, map[string]any{"error": err.Error()})
		return
	}

	s.writeJSON(w, "/dispatch_workflow", http.StatusAccepted, map[string]any{
		"status":        "started",
		"workflow_name": req.WorkflowName,
		"run_id":        runID,
		"message":       "workflow running in background, follow controller logs",
	})
}

func (s *Server) handleManagerStatus(w http.ResponseWriter, r *http.Request) {
	functionName := r.PathValue("function")

	mgr, err := s.registry.Get(functionName)
	if err != nil {
		s.writeJSON(w, "/manager_status", http.StatusNotFound, map[string]any{"error": "unknown function"})
		return
	}

	s.writeJSON(w, "/manager_status", http.StatusOK, mgr.Status())
}

func (s *Server) handleInvocations(w http.ResponseWriter, r *http.Request) {
	functionName := r.PathValue("function")

	if s.store == nil {
		s.writeJSON(w, "/invocations", http.StatusNotFound, map[string]any{"error": "invocation history disabled"})
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	records, err := s.store.ListInvocations(functionName, limit)
	if err != nil {
		s.writeJSON(w, "/invocations", http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}

	s.writeJSON(w, "/invocations", http.StatusOK, map[string]any{
		"function":    functionName,
		"invocations": records,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, endpoint string, status int, body any) {
	metrics.APIRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Debug().Err(err).Msg("response encode failed")
	}
}
