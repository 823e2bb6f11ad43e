package engine

import (
	"fmt"
	"sort"
	"sync"
)

// Factory is a function that creates a new Engine instance.
type Factory func() Engine

// Registry manages engine factories and the live engines of open sessions.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	active    map[string]Engine // keyed by session ID
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		active:    make(map[string]Engine),
	}
}

// RegisterDriver registers an engine factory for a driver type.
func (r *Registry) RegisterDriver(driver string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[driver] = factory
}

// Drivers returns the registered driver names, sorted.
func (r *Registry) Drivers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.availableDrivers()
}

// Open creates an engine for the given driver, connects it, and binds it to
// the session ID. An existing engine under the same session is disconnected
// first, which is how session resets drop all prior state.
func (r *Registry) Open(sessionID string, cfg ConnectionConfig) (Engine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	factory, ok := r.factories[cfg.Driver]
	if !ok {
		return nil, fmt.Errorf("unsupported driver: %s (available: %v)", cfg.Driver, r.availableDrivers())
	}

	eng := factory()
	if err := eng.Connect(cfg); err != nil {
		return nil, fmt.Errorf("connect session %q: %w", sessionID, err)
	}

	if existing, ok := r.active[sessionID]; ok {
		existing.Disconnect()
	}

	r.active[sessionID] = eng
	return eng, nil
}

// Get returns the live engine for a session.
func (r *Registry) Get(sessionID string) (Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	eng, ok := r.active[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %q has no open engine", sessionID)
	}
	return eng, nil
}

// Close disconnects and removes a session's engine.
func (r *Registry) Close(sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	eng, ok := r.active[sessionID]
	if !ok {
		return fmt.Errorf("session %q has no open engine", sessionID)
	}

	err := eng.Disconnect()
	delete(r.active, sessionID)
	return err
}

// CloseAll disconnects every live engine. Used at server shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, eng := range r.active {
		eng.Disconnect()
		delete(r.active, id)
	}
}

func (r *Registry) availableDrivers() []string {
	drivers := make([]string, 0, len(r.factories))
	for d := range r.factories {
		drivers = append(drivers, d)
	}
	sort.Strings(drivers)
	return drivers
}
