// Package shared provides the executor for task implementations compiled
// into bosun.
package shared

import (
	"context"
	"fmt"

	ctrl "sigs.k8s.io/controller-runtime"

	v1 "github.com/kination/bosun/api/v1"
	"github.com/kination/bosun/internal/executor"
	"github.com/kination/bosun/internal/executor/process"
	"github.com/kination/bosun/internal/registry"
)

var log = ctrl.Log.WithName("executor").WithName("shared")

// Executor implements executor.Executor for registered shared tasks
type Executor struct{}

// New creates a new shared Executor
func New() *Executor {
	return &Executor{}
}

// Variants returns the variants this executor handles
func (e *Executor) Variants() []v1.Variant {
	return []v1.Variant{v1.VariantShared}
}

// Execute calls the task's Run once. A task error is reported on the
// task's stderr, and never turns into a zero exit code.
func (e *Executor) Execute(ctx context.Context, req *executor.Request) (code int, err error) {
	task := req.Target.Task
	if task == nil {
		return 1, fmt.Errorf("shared task %s has no implementation", req.Target.Name)
	}

	defer func() {
		if r := recover(); r != nil {
			code, err = 1, fmt.Errorf("shared task %s panicked: %v", task.Name(), r)
		}
	}()

	tc := &registry.TaskContext{
		Invocation:  req.Invocation,
		Options:     req.Options,
		ProjectDir:  req.ProjectDir,
		OverrideDir: req.OverrideDir,
		Streams:     req.Streams,
		Log:         ctrl.Log.WithName("task").WithName(task.Name()),
	}

	log.V(1).Info("Starting shared task", "task", task.Name())

	code, err = task.Run(ctx, tc)
	if err != nil {
		if req.Streams.Err != nil {
			fmt.Fprintf(req.Streams.Err, "%s: %v\n", task.Name(), err)
		}
		if code == 0 {
			code = 1
		}
	}
	if code == 0 && ctx.Err() != nil {
		code = process.ExitInterrupted
	}

	log.V(1).Info("Shared task finished", "task", task.Name(), "exitCode", code)
	return code, nil
}
