// Package registry holds the shared task implementations compiled into bosun.
// The registry is populated once at startup and sealed; it never changes
// while a task is being dispatched.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-logr/logr"

	v1 "github.com/kination/bosun/api/v1"
)

// ErrRegistrySealed is returned by Register once the registry has been sealed.
var ErrRegistrySealed = errors.New("task registry is sealed")

// Task is a shared task implementation.
type Task interface {
	// Name returns the task name used on the command line
	Name() string

	// Description is a one-line summary shown by help
	Description() string

	// Options enumerates the configuration options the task recognizes
	Options() []v1.OptionSpec

	// Run executes the task once and returns its exit code
	Run(ctx context.Context, tc *TaskContext) (int, error)
}

// TaskContext is everything a shared task may read. Tasks must not consult
// the process environment for configuration.
type TaskContext struct {
	Invocation  v1.Invocation
	Options     v1.Options
	ProjectDir  string
	OverrideDir string
	Streams     v1.Streams
	Log         logr.Logger
}

// Registry manages shared task registration and lookup
type Registry struct {
	mu     sync.RWMutex
	tasks  map[string]Task
	order  []string
	sealed bool
}

// NewRegistry creates an empty, unsealed registry
func NewRegistry() *Registry {
	return &Registry{
		tasks: make(map[string]Task),
	}
}

// New registers tasks in order and seals the registry.
func New(tasks ...Task) (*Registry, error) {
	r := NewRegistry()
	for _, t := range tasks {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	r.Seal()
	return r, nil
}

// MustNew is like New but panics on a bad declaration list.
func MustNew(tasks ...Task) *Registry {
	r, err := New(tasks...)
	if err != nil {
		panic(fmt.Sprintf("registry: %v", err))
	}
	return r
}

// Register adds a shared task. Each name may be registered once.
func (r *Registry) Register(task Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return ErrRegistrySealed
	}
	name := task.Name()
	if err := v1.ValidateTaskName(name); err != nil {
		return &InvalidNameError{Name: name, Err: err}
	}
	if _, ok := r.tasks[name]; ok {
		return &DuplicateTaskError{Name: name}
	}
	r.tasks[name] = task
	r.order = append(r.order, name)
	return nil
}

// Seal prevents further registration.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

// Lookup retrieves the shared task registered under name
func (r *Registry) Lookup(name string) (Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, ok := r.tasks[name]
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return task, nil
}

// Names returns all registered task names in registration order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string(nil), r.order...)
}

// Tasks returns all registered tasks in registration order
func (r *Registry) Tasks() []Task {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tasks := make([]Task, 0, len(r.order))
	for _, name := range r.order {
		tasks = append(tasks, r.tasks[name])
	}
	return tasks
}
