package manager

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	units "github.com/docker/go-units"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Jurf666/FaaSDocker/pkg/health"
	"github.com/Jurf666/FaaSDocker/pkg/log"
	"github.com/Jurf666/FaaSDocker/pkg/metrics"
	"github.com/Jurf666/FaaSDocker/pkg/runtime"
	"github.com/Jurf666/FaaSDocker/pkg/types"
)

const (
	// portWaitInterval paces inspect polls while the daemon publishes the
	// host port mapping
	portWaitInterval = 500 * time.Millisecond
	portWaitDeadline = 30 * time.Second

	// healthInterval paces readiness probes against the worker's /status
	healthInterval = 100 * time.Millisecond
	healthDeadline = 30 * time.Second

	// stopGrace bounds container stop before the cleaner forces removal
	stopGrace = 5 * time.Second

	// prewarmDelay spaces pre-warm creations so the daemon is not hammered
	prewarmDelay = 500 * time.Millisecond

	logTailOnFailure = 80
)

// containerEntry pairs the pool record with the last observed runtime
// liveness. Only the owning manager mutates entries, always under mu.
type containerEntry struct {
	rec     types.ContainerRecord
	running bool
}

// Manager owns one function's container pool: creation, readiness,
// checkout/release, idle eviction and pre-warming.
type Manager struct {
	cfg    types.ManagerConfig
	driver runtime.Driver
	logger zerolog.Logger

	mu         sync.Mutex
	containers map[string]*containerEntry

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// readinessProbe blocks until a freshly created container accepts
	// traffic; tests substitute their own
	readinessProbe func(ctx context.Context, hostPort int) error
}

// New creates a manager and starts its eviction loop
func New(cfg types.ManagerConfig, driver runtime.Driver) *Manager {
	if cfg.CleanInterval <= 0 {
		cfg.CleanInterval = 30 * time.Second
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 300 * time.Second
	}

	m := &Manager{
		cfg:        cfg,
		driver:     driver,
		logger:     log.WithComponent("manager").With().Str("function", cfg.FunctionName).Logger(),
		containers: make(map[string]*containerEntry),
		stopCh:     make(chan struct{}),
	}
	m.readinessProbe = func(ctx context.Context, hostPort int) error {
		return health.WaitReady(ctx, health.NewStatusChecker(hostPort), healthInterval, healthDeadline)
	}

	m.wg.Add(1)
	go m.runCleaner()

	m.logger.Info().
		Str("image", cfg.ImageName).
		Int("min_idle", cfg.MinIdleContainers).
		Dur("idle_timeout", cfg.IdleTimeout).
		Msg("function manager initialized")

	return m
}

// Config returns the manager's pool configuration
func (m *Manager) Config() types.ManagerConfig {
	return m.cfg
}

// Checkout hands out an idle running container, marking it busy before
// returning. With no idle container available one is created on demand; a
// creation failure surfaces as ErrResourceExhausted.
func (m *Manager) Checkout(ctx context.Context) (hostPort int, containerID string, err error) {
	m.mu.Lock()
	if entry := m.pickIdleLocked(); entry != nil {
		entry.rec.Status = types.ContainerBusy
		entry.rec.LastActive = time.Now()
		m.updateGaugesLocked()
		m.mu.Unlock()

		m.logger.Debug().
			Str("container", log.ShortID(entry.rec.ID)).
			Msg("assigned idle container")
		return entry.rec.HostPort, entry.rec.ID, nil
	}
	m.mu.Unlock()

	// No idle container; create one outside the lock. The record enters the
	// table already busy so a concurrent checkout cannot steal it.
	entry, err := m.createContainer(ctx, types.ContainerBusy)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %v", types.ErrResourceExhausted, err)
	}

	m.logger.Debug().
		Str("container", log.ShortID(entry.rec.ID)).
		Msg("assigned newly created container")
	return entry.rec.HostPort, entry.rec.ID, nil
}

// pickIdleLocked prefers the most recently used idle container so the warm
// working set stays warm
func (m *Manager) pickIdleLocked() *containerEntry {
	var best *containerEntry
	for _, entry := range m.containers {
		if entry.rec.Status != types.ContainerIdle || !entry.running {
			continue
		}
		if best == nil || entry.rec.LastActive.After(best.rec.LastActive) {
			best = entry
		}
	}
	return best
}

// Release returns a busy container to the idle pool. Idempotent: releasing
// an already-idle or unknown container logs and succeeds.
func (m *Manager) Release(containerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.containers[containerID]
	if !ok {
		m.logger.Warn().
			Str("container", log.ShortID(containerID)).
			Msg("release of unknown container ignored")
		return
	}

	if entry.rec.Status == types.ContainerIdle {
		m.logger.Debug().
			Str("container", log.ShortID(containerID)).
			Msg("container already idle")
		return
	}

	entry.rec.Status = types.ContainerIdle
	entry.rec.LastActive = time.Now()
	m.updateGaugesLocked()

	m.logger.Debug().
		Str("container", log.ShortID(containerID)).
		Msg("container released")
}

// HostPort reports the published port of an owned container
func (m *Manager) HostPort(containerID string) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.containers[containerID]
	if !ok {
		return 0, false
	}
	return entry.rec.HostPort, true
}

// Status snapshots the pool for the status endpoint
func (m *Manager) Status() types.PoolStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	status := types.PoolStatus{
		Function:   m.cfg.FunctionName,
		Containers: make([]types.ContainerSummary, 0, len(m.containers)),
	}
	for _, entry := range m.containers {
		status.Total++
		switch entry.rec.Status {
		case types.ContainerIdle:
			status.Idle++
		case types.ContainerBusy:
			status.Busy++
		}
		status.Containers = append(status.Containers, types.ContainerSummary{
			ID:       log.ShortID(entry.rec.ID),
			HostPort: entry.rec.HostPort,
		})
	}
	return status
}

// createContainer runs the full creation protocol: start, wait for the host
// port mapping, probe readiness, then insert the record with the caller's
// status (busy for checkout, idle for pre-warm). Failures tear the container
// down and fetch a log tail for diagnosis.
func (m *Manager) createContainer(ctx context.Context, initial types.ContainerStatus) (*containerEntry, error) {
	m.mu.Lock()
	if m.cfg.MaxContainers > 0 && len(m.containers) >= m.cfg.MaxContainers {
		m.mu.Unlock()
		metrics.ContainerCreationsTotal.WithLabelValues(m.cfg.FunctionName, "rejected").Inc()
		return nil, fmt.Errorf("pool at max_containers=%d", m.cfg.MaxContainers)
	}
	m.mu.Unlock()

	name := fmt.Sprintf("%s-%s", m.cfg.FunctionName, uuid.NewString()[:8])
	id, err := m.driver.Create(ctx, name, runtime.CreateOpts{
		Image:        m.cfg.ImageName,
		InternalPort: m.cfg.ContainerPort,
		StoragePath:  m.cfg.HostStoragePath,
	})
	if err != nil {
		metrics.ContainerCreationsTotal.WithLabelValues(m.cfg.FunctionName, "error").Inc()
		return nil, fmt.Errorf("create %s: %w", name, err)
	}

	clog := m.logger.With().Str("container", log.ShortID(id)).Logger()
	clog.Info().Str("name", name).Msg("container created, waiting for port mapping")

	hostPort, err := m.waitForHostPort(ctx, id)
	if err != nil {
		m.failCreation(clog, id, "port mapping never appeared")
		metrics.ContainerCreationsTotal.WithLabelValues(m.cfg.FunctionName, "error").Inc()
		return nil, err
	}

	if err := m.readinessProbe(ctx, hostPort); err != nil {
		m.failCreation(clog, id, "service never became ready")
		metrics.ContainerCreationsTotal.WithLabelValues(m.cfg.FunctionName, "error").Inc()
		return nil, err
	}

	entry := &containerEntry{
		rec: types.ContainerRecord{
			ID:         id,
			Name:       name,
			HostPort:   hostPort,
			Status:     initial,
			LastActive: time.Now(),
		},
		running: true,
	}

	m.mu.Lock()
	m.containers[id] = entry
	m.updateGaugesLocked()
	m.mu.Unlock()

	metrics.ContainerCreationsTotal.WithLabelValues(m.cfg.FunctionName, "success").Inc()
	clog.Info().Int("host_port", hostPort).Msg("container ready")

	return entry, nil
}

// waitForHostPort polls inspect until the daemon publishes the mapping
func (m *Manager) waitForHostPort(ctx context.Context, id string) (int, error) {
	deadline := time.Now().Add(portWaitDeadline)
	for {
		info, err := m.driver.Inspect(ctx, id)
		if err == nil && info.HostPort > 0 {
			return info.HostPort, nil
		}
		if time.Now().After(deadline) {
			return 0, fmt.Errorf("%w: no host port within %s", types.ErrHealthCheckFailed, portWaitDeadline)
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(portWaitInterval):
		}
	}
}

// failCreation logs a tail of container output then removes the container
func (m *Manager) failCreation(clog zerolog.Logger, id, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if tail, err := m.driver.Logs(ctx, id, logTailOnFailure); err == nil && len(tail) > 0 {
		clog.Warn().Str("reason", reason).Bytes("logs", tail).Msg("new container failed")
	} else {
		clog.Warn().Str("reason", reason).Msg("new container failed, no logs available")
	}

	if err := m.driver.Stop(ctx, id, time.Second); err != nil {
		clog.Debug().Err(err).Msg("stop of failed container")
	}
	if err := m.driver.Remove(ctx, id, true); err != nil {
		clog.Warn().Err(err).Msg("removal of failed container")
	}
}

// runCleaner is the eviction loop: one background worker per manager that
// evicts stale idle containers and tops the pool back up to the minimum.
func (m *Manager) runCleaner() {
	defer m.wg.Done()

	for {
		select {
		case <-m.stopCh:
			return
		case <-time.After(m.cfg.CleanInterval):
		}

		m.cleanCycle()
	}
}

// cleanCycle makes all removal decisions under the lock but performs every
// runtime operation outside it, so checkout and release never block on the
// daemon.
func (m *Manager) cleanCycle() {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.CleanInterval)
	defer cancel()

	m.refreshRuntimeState(ctx)

	now := time.Now()

	// Decide removals: idle running containers, oldest first. A container
	// goes iff enough newer idle containers remain to cover the minimum and
	// it has been idle past the timeout.
	m.mu.Lock()
	idle := make([]*containerEntry, 0, len(m.containers))
	for _, entry := range m.containers {
		if entry.rec.Status == types.ContainerIdle && entry.running {
			idle = append(idle, entry)
		}
	}
	sort.Slice(idle, func(i, j int) bool {
		return idle[i].rec.LastActive.Before(idle[j].rec.LastActive)
	})

	var toRemove []*containerEntry
	for i, entry := range idle {
		idleRemaining := len(idle) - i
		if idleRemaining > m.cfg.MinIdleContainers && now.Sub(entry.rec.LastActive) > m.cfg.IdleTimeout {
			entry.rec.Status = types.ContainerRemoved
			toRemove = append(toRemove, entry)
		}
	}
	m.mu.Unlock()

	for _, entry := range toRemove {
		m.logger.Info().
			Str("container", log.ShortID(entry.rec.ID)).
			Str("idle_for", units.HumanDuration(now.Sub(entry.rec.LastActive))).
			Msg("evicting idle container")
		m.removeContainer(ctx, entry.rec.ID)
		metrics.ContainerEvictionsTotal.WithLabelValues(m.cfg.FunctionName).Inc()
	}

	// Top the pool back up to the minimum
	m.mu.Lock()
	idleCount := m.idleCountLocked()
	toCreate := m.cfg.MinIdleContainers - idleCount
	m.mu.Unlock()

	if toCreate <= 0 {
		return
	}

	m.logger.Info().Int("count", toCreate).Msg("pre-warming containers")
	for i := 0; i < toCreate; i++ {
		select {
		case <-m.stopCh:
			return
		default:
		}

		if _, err := m.createContainer(ctx, types.ContainerIdle); err != nil {
			m.logger.Warn().Err(err).Msg("pre-warm creation failed")
			continue
		}

		// Give the daemon breathing room between creations
		select {
		case <-m.stopCh:
			return
		case <-time.After(prewarmDelay):
		}
	}
}

// refreshRuntimeState re-inspects every owned container. Inspect calls run
// outside the lock; results are folded back in afterwards.
func (m *Manager) refreshRuntimeState(ctx context.Context) {
	m.mu.Lock()
	ids := make([]string, 0, len(m.containers))
	for id := range m.containers {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	liveness := make(map[string]bool, len(ids))
	for _, id := range ids {
		info, err := m.driver.Inspect(ctx, id)
		if err != nil {
			// Inspect failures leave the last observation in place, matching
			// a momentarily unreachable daemon
			continue
		}
		liveness[id] = info.Running
	}

	m.mu.Lock()
	for id, running := range liveness {
		if entry, ok := m.containers[id]; ok {
			entry.running = running
		}
	}
	m.mu.Unlock()
}

// removeContainer stops and deletes one container, then drops its record
func (m *Manager) removeContainer(ctx context.Context, id string) {
	if err := m.driver.Stop(ctx, id, stopGrace); err != nil {
		m.logger.Debug().Err(err).Str("container", log.ShortID(id)).Msg("stop before removal")
	}
	if err := m.driver.Remove(ctx, id, true); err != nil {
		m.logger.Warn().Err(err).Str("container", log.ShortID(id)).Msg("container removal")
	}

	m.mu.Lock()
	delete(m.containers, id)
	m.updateGaugesLocked()
	m.mu.Unlock()
}

// StopAll terminates the eviction loop and synchronously removes every owned
// container. Called once at process shutdown.
func (m *Manager) StopAll() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	m.wg.Wait()

	m.mu.Lock()
	ids := make([]string, 0, len(m.containers))
	for id := range m.containers {
		ids = append(ids, id)
	}
	m.containers = make(map[string]*containerEntry)
	m.updateGaugesLocked()
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	for _, id := range ids {
		if err := m.driver.Stop(ctx, id, stopGrace); err != nil {
			m.logger.Debug().Err(err).Str("container", log.ShortID(id)).Msg("stop at shutdown")
		}
		if err := m.driver.Remove(ctx, id, true); err != nil {
			m.logger.Warn().Err(err).Str("container", log.ShortID(id)).Msg("removal at shutdown")
		}
	}

	m.logger.Info().Int("count", len(ids)).Msg("all containers stopped and removed")
}

func (m *Manager) idleCountLocked() int {
	count := 0
	for _, entry := range m.containers {
		if entry.rec.Status == types.ContainerIdle && entry.running {
			count++
		}
	}
	return count
}

func (m *Manager) updateGaugesLocked() {
	var idle, busy float64
	for _, entry := range m.containers {
		switch entry.rec.Status {
		case types.ContainerIdle:
			idle++
		case types.ContainerBusy:
			busy++
		}
	}
	metrics.ContainersTotal.WithLabelValues(m.cfg.FunctionName, string(types.ContainerIdle)).Set(idle)
	metrics.ContainersTotal.WithLabelValues(m.cfg.FunctionName, string(types.ContainerBusy)).Set(busy)
}
