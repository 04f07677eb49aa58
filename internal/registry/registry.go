package registry

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/vk/pkgresolve/internal/target"
)

// Module is the interface that all built-in strategy packages implement to
// be registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds the strategy registered for each target type.
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{strategies: make(map[string]Strategy)}
}

// Register associates s with targetType. A later registration for the same
// type replaces the earlier one.
func (r *Registry) Register(targetType string, s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, exists := r.strategies[targetType]; exists {
		slog.Debug("Replacing resolution strategy.", "type", targetType, "previous", prev.Name(), "strategy", s.Name())
	} else {
		slog.Debug("Registering resolution strategy.", "type", targetType, "strategy", s.Name())
	}
	r.strategies[targetType] = s
}

// RegisterModules lets each module register its strategies.
func (r *Registry) RegisterModules(modules ...Module) {
	for _, m := range modules {
		m.Register(r)
	}
}

// Lookup returns the strategy registered for t's exact type.
func (r *Registry) Lookup(t *target.Target) (Strategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strategies[t.Type]
	return s, ok
}

// CanResolve reports whether t is eligible for resolution: its category is
// resolvable and a strategy is registered for its type.
func (r *Registry) CanResolve(t *target.Target) bool {
	if !t.Category.Resolvable() {
		return false
	}
	_, ok := r.Lookup(t)
	return ok
}

// Types returns every registered type, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.strategies))
	for ty := range r.strategies {
		out = append(out, ty)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.strategies)
}

// Clear removes every registration.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies = make(map[string]Strategy)
}
