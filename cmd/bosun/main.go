package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	v1 "github.com/kination/bosun/api/v1"
	"github.com/kination/bosun/internal/config"
	"github.com/kination/bosun/internal/dispatch"
	"github.com/kination/bosun/internal/executor"
	"github.com/kination/bosun/internal/executor/process"
	"github.com/kination/bosun/internal/executor/shared"
	"github.com/kination/bosun/internal/help"
	"github.com/kination/bosun/internal/registry"
	"github.com/kination/bosun/internal/runner"
	"github.com/kination/bosun/internal/tasks"
)

const program = "bosun"

// Environment variables read in place of the matching flags.
const (
	envProjectDir  = "BOSUN_PROJECT_DIR"
	envOverrideDir = "BOSUN_OVERRIDE_DIR"
)

var version = "dev"

// rootOptions holds the flag values of one root command.
type rootOptions struct {
	configPath  string
	projectDir  string
	overrideDir string
	verbose     bool
}

// sharedTasks is the process-wide registry, built once from the static list.
var sharedTasks = registry.MustNew(tasks.Shared(tasks.DefaultDeps())...)

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   program + " <task> [args...]",
		Short: "bosun - run shared project tasks, with per-project overrides",
		Long: `bosun runs named automation tasks such as clean, lint, test, build and push.

A project replaces any task by placing an executable file with the task's
name in its override directory (default .bosun/tasks). The override always
wins over the shared task. Everything after the task name is passed to the
task unchanged, and bosun exits with the task's exit code.`,
		Version:       version,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to the project config file (default <project-dir>/bosun.yaml)")
	cmd.Flags().StringVarP(&opts.projectDir, "project-dir", "C", "", "Project directory tasks run in (env "+envProjectDir+", default current directory)")
	cmd.Flags().StringVar(&opts.overrideDir, "override-dir", "", "Directory holding task overrides (env "+envOverrideDir+")")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log dispatch decisions to stderr")

	// Flags end at the task name; the rest belongs to the task.
	cmd.Flags().SetInterspersed(false)

	cmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		_ = help.Render(cmd.OutOrStdout(), program, sharedTasks.Tasks())
		fmt.Fprintf(cmd.OutOrStdout(), "\nFlags:\n%s", cmd.Flags().FlagUsages())
	})
	cmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &dispatch.InvocationError{Message: err.Error()}
	})
	return cmd
}

func run(cmd *cobra.Command, opts *rootOptions, args []string) error {
	setupLogger(opts.verbose)

	project, err := resolveProjectDir(opts.projectDir)
	if err != nil {
		return err
	}
	cfg, err := config.Load(opts.configPath, project)
	if err != nil {
		return err
	}

	rc := runner.DefaultRunnerConfig()
	rc.Config = cfg
	rc.ProjectDir = project
	rc.OverrideDir = config.ResolveOverrideDir(firstNonEmpty(opts.overrideDir, os.Getenv(envOverrideDir), cfg.OverrideDir), project)
	rc.Streams = v1.Streams{
		In:  cmd.InOrStdin(),
		Out: cmd.OutOrStdout(),
		Err: cmd.ErrOrStderr(),
	}

	execs := executor.NewRegistry()
	execs.Register(shared.New())
	execs.Register(process.New())

	d := dispatch.New(dispatch.Config{
		Program:     program,
		Registry:    sharedTasks,
		Runner:      runner.NewRunner(execs, rc),
		OverrideDir: rc.OverrideDir,
		Stdout:      rc.Streams.Out,
		Stderr:      rc.Streams.Err,
	})

	_, err = d.Dispatch(cmd.Context(), args)
	return err
}

func setupLogger(verbose bool) {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	ctrl.SetLogger(zap.New(
		zap.UseDevMode(verbose),
		zap.WriteTo(os.Stderr),
		zap.Level(level),
	))
}

func resolveProjectDir(flagValue string) (string, error) {
	dir := firstNonEmpty(flagValue, os.Getenv(envProjectDir))
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
		return wd, nil
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("invalid project dir %q: %w", dir, err)
	}
	return abs, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// exitCode maps a dispatch error to the process exit code, printing it
// unless the task already reported its own failure.
func exitCode(err error) int {
	if err == nil {
		return dispatch.ExitSuccess
	}

	var taskErr *dispatch.TaskExecutionError
	if errors.As(err, &taskErr) && taskErr.Silent() {
		return taskErr.ExitCode()
	}

	fmt.Fprintf(os.Stderr, "%s: %v\n", program, err)

	var coded interface{ ExitCode() int }
	if errors.As(err, &coded) {
		return coded.ExitCode()
	}
	return dispatch.ExitUsage
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	os.Exit(exitCode(err))
}
