package manager

import (
	"fmt"
	"sync"

	"github.com/Jurf666/FaaSDocker/pkg/log"
	"github.com/Jurf666/FaaSDocker/pkg/runtime"
	"github.com/Jurf666/FaaSDocker/pkg/types"
)

// Registry is the process-wide map from function name to manager. Creation
// is serialized so concurrent registrations of the same name yield exactly
// one manager.
type Registry struct {
	driver runtime.Driver

	mu       sync.Mutex
	managers map[string]*Manager
}

// NewRegistry creates an empty registry backed by the given driver
func NewRegistry(driver runtime.Driver) *Registry {
	return &Registry{
		driver:   driver,
		managers: make(map[string]*Manager),
	}
}

// Create registers a manager for cfg.FunctionName. The second return is true
// when a manager already existed; the existing manager is returned untouched.
func (r *Registry) Create(cfg types.ManagerConfig) (*Manager, bool, error) {
	if cfg.FunctionName == "" {
		return nil, false, fmt.Errorf("function name required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.managers[cfg.FunctionName]; ok {
		return existing, true, nil
	}

	m := New(cfg, r.driver)
	r.managers[cfg.FunctionName] = m
	return m, false, nil
}

// Get resolves a manager by function name
func (r *Registry) Get(functionName string) (*Manager, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.managers[functionName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownFunction, functionName)
	}
	return m, nil
}

// Names lists the registered function names
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.managers))
	for name := range r.managers {
		names = append(names, name)
	}
	return names
}

// StopAll broadcasts shutdown to every manager, synchronously removing all
// owned containers. Managers are detached under the lock and stopped outside
// it, per the lock-ordering discipline.
func (r *Registry) StopAll() {
	r.mu.Lock()
	managers := make([]*Manager, 0, len(r.managers))
	for _, m := range r.managers {
		managers = append(managers, m)
	}
	r.managers = make(map[string]*Manager)
	r.mu.Unlock()

	for _, m := range managers {
		m.StopAll()
	}

	rlog := log.WithComponent("registry")
	rlog.Info().Int("managers", len(managers)).Msg("all managers stopped")
}
