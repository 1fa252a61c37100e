// Package runner provides task execution capabilities.
// Runner is responsible for actually executing a resolved task using executors.
package runner

import (
	"context"
	"os"

	v1 "github.com/kination/bosun/api/v1"
	"github.com/kination/bosun/internal/config"
	"github.com/kination/bosun/internal/executor"
)

// Runner defines the interface for task execution.
// It receives a resolved target and uses executors to run it exactly once.
type Runner interface {
	// Run executes a task and returns the result
	Run(ctx context.Context, target executor.Target, inv v1.Invocation) (*v1.Result, error)
}

// RunnerConfig holds configuration for the runner
type RunnerConfig struct {
	// Config is the loaded project configuration
	Config *config.Config

	// ProjectDir is the working directory for tasks; empty means the
	// current directory
	ProjectDir string

	// OverrideDir is the resolved, absolute override directory
	OverrideDir string

	// Streams are handed to the task unchanged
	Streams v1.Streams
}

// DefaultRunnerConfig runs tasks in the current directory with the process
// streams and an empty project configuration.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		Config:      config.Default(),
		OverrideDir: config.DefaultOverrideDir,
		Streams: v1.Streams{
			In:  os.Stdin,
			Out: os.Stdout,
			Err: os.Stderr,
		},
	}
}
