// Package executor provides the Executor interface and registry used to run
// a resolved task, whichever implementation variant it is.
package executor

import (
	"context"

	v1 "github.com/kination/bosun/api/v1"
	"github.com/kination/bosun/internal/registry"
)

// Executor runs one implementation variant of a task.
type Executor interface {
	// Variants returns the implementation variant(s) this executor handles
	Variants() []v1.Variant

	// Execute runs the task once and returns its exit code. A non-nil error
	// means the implementation could not be started or failed outside its
	// own exit status; the exit code is still meaningful.
	Execute(ctx context.Context, req *Request) (int, error)
}

// Target is a resolved task: exactly one of Task or Path is set.
type Target struct {
	Name    string
	Variant v1.Variant

	// Task is the shared implementation
	Task registry.Task

	// Path is the override executable
	Path string
}

// SharedTarget builds a target for a registered shared task
func SharedTarget(task registry.Task) Target {
	return Target{Name: task.Name(), Variant: v1.VariantShared, Task: task}
}

// OverrideTarget builds a target for an override executable
func OverrideTarget(name, path string) Target {
	return Target{Name: name, Variant: v1.VariantOverridden, Path: path}
}

// Request carries everything needed for a single execution
type Request struct {
	Target      Target
	Invocation  v1.Invocation
	Options     v1.Options
	ProjectDir  string
	OverrideDir string
	Streams     v1.Streams
}
