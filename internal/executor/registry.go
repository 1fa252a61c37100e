package executor

import (
	"fmt"
	"sync"

	v1 "github.com/kination/bosun/api/v1"
)

// Registry maps each implementation variant to the executor that runs it.
// A later registration for the same variant replaces the earlier one.
type Registry struct {
	mu        sync.RWMutex
	executors map[v1.Variant]Executor
}

func NewRegistry() *Registry {
	return &Registry{
		executors: make(map[v1.Variant]Executor),
	}
}

// Register binds exec to every variant it reports.
func (r *Registry) Register(exec Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, variant := range exec.Variants() {
		r.executors[variant] = exec
	}
}

// Get returns the executor for variant.
func (r *Registry) Get(variant v1.Variant) (Executor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exec, ok := r.executors[variant]
	if !ok {
		return nil, fmt.Errorf("no executor for %s tasks", variant)
	}
	return exec, nil
}
