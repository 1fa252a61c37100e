package runner

import (
	"context"
	"fmt"

	ctrl "sigs.k8s.io/controller-runtime"

	v1 "github.com/kination/bosun/api/v1"
	"github.com/kination/bosun/internal/config"
	"github.com/kination/bosun/internal/executor"
)

var log = ctrl.Log.WithName("runner")

// DefaultRunner implements the Runner interface using the executor registry.
type DefaultRunner struct {
	executorRegistry *executor.Registry
	config           RunnerConfig
}

// NewRunner creates a new DefaultRunner with the given executor registry
func NewRunner(registry *executor.Registry, cfg RunnerConfig) *DefaultRunner {
	if cfg.Config == nil {
		cfg.Config = config.Default()
	}
	return &DefaultRunner{
		executorRegistry: registry,
		config:           cfg,
	}
}

// Run executes a task using the executor for its variant. There is no retry:
// the result carries the implementation's exit code verbatim.
func (r *DefaultRunner) Run(ctx context.Context, target executor.Target, inv v1.Invocation) (*v1.Result, error) {
	exec, err := r.executorRegistry.Get(target.Variant)
	if err != nil {
		return nil, fmt.Errorf("no executor found for task %s: %w", target.Name, err)
	}

	opts, err := r.options(target)
	if err != nil {
		return nil, err
	}

	log.V(1).Info("Running task", "task", target.Name, "variant", target.Variant, "args", len(inv.Args()))

	code, execErr := exec.Execute(ctx, &executor.Request{
		Target:      target,
		Invocation:  inv,
		Options:     opts,
		ProjectDir:  r.config.ProjectDir,
		OverrideDir: r.config.OverrideDir,
		Streams:     r.config.Streams,
	})

	result := &v1.Result{
		TaskName: target.Name,
		Variant:  target.Variant,
		Path:     target.Path,
		ExitCode: code,
	}
	if execErr != nil {
		result.Message = execErr.Error()
		return result, execErr
	}
	if code != 0 {
		result.Message = fmt.Sprintf("task %s exited with code %d", target.Name, code)
	}
	return result, nil
}

// options resolves the task options; shared tasks get validation and defaults
func (r *DefaultRunner) options(target executor.Target) (v1.Options, error) {
	if target.Variant == v1.VariantShared && target.Task != nil {
		return r.config.Config.ResolveOptions(target.Name, target.Task.Options())
	}
	return r.config.Config.TaskOptions(target.Name), nil
}
