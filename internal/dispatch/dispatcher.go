// Package dispatch resolves a task name to one implementation and runs it.
//
// A dispatch moves through Start, ParseArgs, Resolve and Execute, ending in
// Done, Help or Error. Nothing is kept between dispatches: the override
// directory is re-read every time.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"

	ctrl "sigs.k8s.io/controller-runtime"

	v1 "github.com/kination/bosun/api/v1"
	"github.com/kination/bosun/internal/config"
	"github.com/kination/bosun/internal/executor"
	"github.com/kination/bosun/internal/help"
	"github.com/kination/bosun/internal/override"
	"github.com/kination/bosun/internal/registry"
	"github.com/kination/bosun/internal/runner"
)

var log = ctrl.Log.WithName("dispatch")

// State is a dispatcher state.
type State string

const (
	StateStart     State = "Start"
	StateParseArgs State = "ParseArgs"
	StateResolve   State = "Resolve"
	StateExecute   State = "Execute"
	StateDone      State = "Done"
	StateHelp      State = "Help"
	StateError     State = "Error"
)

// helpWords are first arguments that ask for help instead of a task.
var helpWords = map[string]bool{
	"help":   true,
	"-h":     true,
	"--help": true,
	"-help":  true,
	"?":      true,
}

// IsHelpRequest reports whether arg asks for help.
func IsHelpRequest(arg string) bool {
	return helpWords[arg]
}

// Config wires a Dispatcher.
type Config struct {
	Program     string
	Registry    *registry.Registry
	Runner      runner.Runner
	OverrideDir string
	Stdout      io.Writer
	Stderr      io.Writer
}

// Dispatcher is the top-level command resolution and execution.
type Dispatcher struct {
	program     string
	registry    *registry.Registry
	runner      runner.Runner
	overrideDir string
	stdout      io.Writer
	stderr      io.Writer
}

// New creates a Dispatcher.
func New(cfg Config) *Dispatcher {
	if cfg.Program == "" {
		cfg.Program = "bosun"
	}
	if cfg.Stdout == nil {
		cfg.Stdout = io.Discard
	}
	if cfg.Stderr == nil {
		cfg.Stderr = io.Discard
	}
	return &Dispatcher{
		program:     cfg.Program,
		registry:    cfg.Registry,
		runner:      cfg.Runner,
		overrideDir: cfg.OverrideDir,
		stdout:      cfg.Stdout,
		stderr:      cfg.Stderr,
	}
}

// Dispatch runs one invocation. On success the result holds exit code 0.
// Typed failures implement ExitCoder; anything else means exit 1.
func (d *Dispatcher) Dispatch(ctx context.Context, args []string) (*v1.Result, error) {
	d.transition(StateStart, StateParseArgs)

	if len(args) == 0 {
		d.transition(StateParseArgs, StateError)
		_ = help.Render(d.stderr, d.program, d.registry.Tasks())
		return nil, &InvocationError{Message: "no task given"}
	}

	if IsHelpRequest(args[0]) {
		return d.help(args[1:])
	}

	name := args[0]
	if err := v1.ValidateTaskName(name); err != nil {
		d.transition(StateParseArgs, StateError)
		return nil, &InvocationError{Message: err.Error()}
	}
	inv := v1.NewInvocation(name, args[1:]...)

	d.transition(StateParseArgs, StateResolve)
	target, err := d.Resolve(name)
	if err != nil {
		d.transition(StateResolve, StateError)
		return nil, err
	}

	d.transition(StateResolve, StateExecute)
	result, err := d.runner.Run(ctx, target, inv)
	if err != nil {
		d.transition(StateExecute, StateError)
		var cfgErr *config.ConfigError
		if errors.As(err, &cfgErr) {
			return result, cfgErr
		}
		if result == nil {
			result = &v1.Result{TaskName: name, Variant: target.Variant, Path: target.Path, ExitCode: 1}
		}
		return result, &TaskExecutionError{Result: result, Err: err}
	}
	if result.ExitCode != 0 {
		d.transition(StateExecute, StateError)
		return result, &TaskExecutionError{Result: result}
	}

	d.transition(StateExecute, StateDone)
	return result, nil
}

// Resolve picks the implementation for name. An override always wins over
// a shared task; a blocked override never falls back to it.
func (d *Dispatcher) Resolve(name string) (executor.Target, error) {
	decision, err := override.Resolve(name, d.overrideDir)
	if err != nil {
		return executor.Target{}, fmt.Errorf("resolve task %s: %w", name, err)
	}
	log.V(1).Info("Override decision", "task", name, "decision", decision.Kind, "path", decision.Path)

	switch decision.Kind {
	case v1.DecisionUseOverride:
		return executor.OverrideTarget(name, decision.Path), nil
	case v1.DecisionOverrideBlocked:
		return executor.Target{}, &OverrideBlockedError{
			Task:        name,
			Path:        decision.Path,
			Reason:      decision.Reason,
			Remediation: override.Remediation(decision),
		}
	}

	task, err := d.registry.Lookup(name)
	if err != nil {
		return executor.Target{}, &UnknownTaskError{Task: name, OverrideDir: d.overrideDir, Program: d.program}
	}
	return executor.SharedTarget(task), nil
}

func (d *Dispatcher) help(args []string) (*v1.Result, error) {
	d.transition(StateParseArgs, StateHelp)

	if len(args) == 0 {
		if err := help.Render(d.stdout, d.program, d.registry.Tasks()); err != nil {
			return nil, fmt.Errorf("render help: %w", err)
		}
		return &v1.Result{ExitCode: ExitSuccess}, nil
	}

	task, err := d.registry.Lookup(args[0])
	if err != nil {
		return nil, &UnknownTaskError{Task: args[0], OverrideDir: d.overrideDir, Program: d.program}
	}
	if err := help.RenderTask(d.stdout, d.program, task); err != nil {
		return nil, fmt.Errorf("render help: %w", err)
	}
	return &v1.Result{TaskName: task.Name(), ExitCode: ExitSuccess}, nil
}

func (d *Dispatcher) transition(from, to State) {
	log.V(1).Info("Transition", "from", from, "to", to)
}
