// Package process provides the executor for project-local override files.
package process

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	ctrl "sigs.k8s.io/controller-runtime"

	v1 "github.com/kination/bosun/api/v1"
	"github.com/kination/bosun/internal/executor"
)

var log = ctrl.Log.WithName("executor").WithName("process")

// Environment variables exported to override executables.
const (
	EnvTask        = "BOSUN_TASK"
	EnvProjectDir  = "BOSUN_PROJECT_DIR"
	EnvOverrideDir = "BOSUN_OVERRIDE_DIR"
	EnvOptPrefix   = "BOSUN_OPT_"
)

// Executor implements executor.Executor for override executables
type Executor struct {
	// BaseEnv is the environment the child inherits; nil means os.Environ()
	BaseEnv     []string
	GracePeriod time.Duration
}

// New creates a new process Executor
func New() *Executor {
	return &Executor{}
}

// Variants returns the variants this executor handles
func (e *Executor) Variants() []v1.Variant {
	return []v1.Variant{v1.VariantOverridden}
}

// Execute runs the override file with the invocation arguments
func (e *Executor) Execute(ctx context.Context, req *executor.Request) (int, error) {
	if req.Target.Path == "" {
		return ExitCannotExecute, fmt.Errorf("override for task %s has no path", req.Target.Name)
	}

	log.V(1).Info("Starting override", "task", req.Target.Name, "path", req.Target.Path)

	code, err := Run(ctx, Command{
		Path:        req.Target.Path,
		Args:        req.Invocation.Args(),
		Dir:         req.ProjectDir,
		Env:         e.buildEnv(req),
		Streams:     req.Streams,
		GracePeriod: e.GracePeriod,
	})
	if err != nil {
		return code, fmt.Errorf("failed to run override %s: %w", req.Target.Path, err)
	}

	log.V(1).Info("Override finished", "task", req.Target.Name, "exitCode", code)
	return code, nil
}

// buildEnv appends the bosun variables to the inherited environment
func (e *Executor) buildEnv(req *executor.Request) []string {
	base := e.BaseEnv
	if base == nil {
		base = os.Environ()
	}
	env := append([]string(nil), base...)
	env = append(env,
		EnvTask+"="+req.Target.Name,
		EnvProjectDir+"="+req.ProjectDir,
		EnvOverrideDir+"="+req.OverrideDir,
	)
	for _, k := range req.Options.Keys() {
		env = append(env, OptionEnvName(k)+"="+req.Options[k])
	}
	return env
}

// OptionEnvName converts an option key such as "image-tag" to BOSUN_OPT_IMAGE_TAG.
func OptionEnvName(key string) string {
	key = strings.ToUpper(key)
	key = strings.Map(func(r rune) rune {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, key)
	return EnvOptPrefix + key
}
