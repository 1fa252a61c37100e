package process

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"syscall"
	"time"

	v1 "github.com/kination/bosun/api/v1"
)

const (
	// ExitCannotExecute matches the shell's code for a file that exists but could not run.
	ExitCannotExecute = 126
	// ExitNotFound matches the shell's code for a missing command.
	ExitNotFound = 127
	// ExitInterrupted is 128+SIGINT.
	ExitInterrupted = 130
)

// DefaultGracePeriod is how long a child gets after SIGINT before it is killed.
const DefaultGracePeriod = 10 * time.Second

// Command describes one external process run with inherited streams.
type Command struct {
	Path    string
	Args    []string
	Dir     string
	Env     []string
	Streams v1.Streams

	// GracePeriod overrides DefaultGracePeriod when non-zero
	GracePeriod time.Duration
}

// Run starts the command, waits for it, and returns its exit code. The
// streams are handed to the child unchanged so interactive prompts work.
// When ctx is cancelled the child is sent SIGINT and killed after the
// grace period.
func Run(ctx context.Context, c Command) (int, error) {
	if err := ctx.Err(); err != nil {
		return ExitInterrupted, err
	}

	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = c.Env
	cmd.Stdin = c.Streams.In
	cmd.Stdout = c.Streams.Out
	cmd.Stderr = c.Streams.Err
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = c.GracePeriod
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = DefaultGracePeriod
	}

	if err := cmd.Start(); err != nil {
		return startFailureCode(err), err
	}

	err := cmd.Wait()
	code := ExitCode(err)
	if code == 0 && ctx.Err() != nil {
		code = ExitInterrupted
	}

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return code, err
	}
	return code, nil
}

// ExitCode maps the error returned by exec.Cmd.Wait to a shell-style exit
// code: the process status, or 128+N when killed by signal N.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return 1
	}
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	if code := exitErr.ExitCode(); code >= 0 {
		return code
	}
	return 1
}

func startFailureCode(err error) int {
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
		return ExitNotFound
	}
	return ExitCannotExecute
}
