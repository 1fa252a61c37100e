package dispatch

import (
	"fmt"

	v1 "github.com/kination/bosun/api/v1"
	"github.com/kination/bosun/internal/executor/process"
)

const (
	ExitSuccess = 0
	ExitUsage   = 1
	// ExitOverrideBlocked follows the shell: found but not executable.
	ExitOverrideBlocked = process.ExitCannotExecute
	// ExitUnknownTask follows the shell: command not found.
	ExitUnknownTask = process.ExitNotFound
)

// ExitCoder is implemented by every error the dispatcher returns.
type ExitCoder interface {
	error
	ExitCode() int
}

// InvocationError means the command line itself was wrong.
type InvocationError struct {
	Message string
}

func (e *InvocationError) Error() string {
	return e.Message
}

func (e *InvocationError) ExitCode() int {
	return ExitUsage
}

// OverrideBlockedError means an override file exists but may not be run.
type OverrideBlockedError struct {
	Task        string
	Path        string
	Reason      string
	Remediation string
}

func (e *OverrideBlockedError) Error() string {
	msg := fmt.Sprintf("override for task %q at %s is %s; refusing to run it or fall back to the shared task", e.Task, e.Path, e.Reason)
	if e.Remediation != "" {
		msg += "\nfix: " + e.Remediation
	}
	return msg
}

func (e *OverrideBlockedError) ExitCode() int {
	return ExitOverrideBlocked
}

// UnknownTaskError means neither the override directory nor the registry
// provides the task.
type UnknownTaskError struct {
	Task        string
	OverrideDir string
	Program     string
}

func (e *UnknownTaskError) Error() string {
	return fmt.Sprintf("unknown task %q: no shared task by that name and no override in %s (run %q to list tasks)",
		e.Task, e.OverrideDir, e.Program+" help")
}

func (e *UnknownTaskError) ExitCode() int {
	return ExitUnknownTask
}

// TaskExecutionError carries a failed task result. When Err is nil the task
// already reported its own failure and nothing more should be printed.
type TaskExecutionError struct {
	Result *v1.Result
	Err    error
}

func (e *TaskExecutionError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Result.Message
}

func (e *TaskExecutionError) Unwrap() error {
	return e.Err
}

// ExitCode is the task's own exit code, never zero.
func (e *TaskExecutionError) ExitCode() int {
	if e.Result == nil || e.Result.ExitCode == 0 {
		return 1
	}
	return e.Result.ExitCode
}

// Silent reports whether the dispatcher should add nothing to the output.
func (e *TaskExecutionError) Silent() bool {
	return e.Err == nil
}
