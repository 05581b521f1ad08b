package operator

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ajitpratap0/indexima/pkg/config"
	"github.com/ajitpratap0/indexima/pkg/errors"
)

// Factory creates an operator from a task configuration
type Factory func(cfg *config.TaskConfig, deps Deps) (Operator, error)

// Registry maps operator names to factories
type Registry struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

var globalRegistry = NewRegistry()

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register registers a factory under name
func (r *Registry) Register(name string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return errors.New(errors.ErrorTypeConfig, fmt.Sprintf("operator %s already registered", name))
	}
	r.factories[name] = factory
	return nil
}

// Create builds the operator registered under name
func (r *Registry) Create(name string, cfg *config.TaskConfig, deps Deps) (Operator, error) {
	r.mu.RLock()
	factory, exists := r.factories[name]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.New(errors.ErrorTypeConfig, fmt.Sprintf("operator %s not found", name))
	}

	op, err := factory(cfg, deps)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, fmt.Sprintf("failed to create operator %s", name))
	}
	return op, nil
}

// List returns the registered names, sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has checks if name is registered
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.factories[name]
	return exists
}

// Clear removes every factory (mainly for testing)
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories = make(map[string]Factory)
}

// Register registers a factory in the global registry
func Register(name string, factory Factory) error {
	return globalRegistry.Register(name, factory)
}

// Create builds an operator from the global registry
func Create(name string, cfg *config.TaskConfig, deps Deps) (Operator, error) {
	return globalRegistry.Create(name, cfg, deps)
}

// List returns the operators of the global registry
func List() []string {
	return globalRegistry.List()
}

// Has checks the global registry
func Has(name string) bool {
	return globalRegistry.Has(name)
}

// FromTask builds the operator a task configuration selects
func FromTask(cfg *config.TaskConfig, deps Deps) (Operator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeValidation, "invalid task configuration").
			WithDetail("task_id", cfg.TaskID)
	}
	return Create(cfg.Operator, cfg, deps)
}

func init() {
	_ = Register(config.OperatorQuery, func(cfg *config.TaskConfig, deps Deps) (Operator, error) {
		return NewQueryRunner(cfg.TaskID, cfg.Hook, cfg.Query.SQL, cfg.Vars, deps)
	})
	_ = Register(config.OperatorLoad, func(cfg *config.TaskConfig, deps Deps) (Operator, error) {
		return NewLoadData(cfg.TaskID, cfg.Hook, cfg.Load, cfg.Vars, deps)
	})
}
