package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/shlex"

	v1 "github.com/kination/bosun/api/v1"
	"github.com/kination/bosun/internal/registry"
)

// toolTask runs one external tool built from the task options and args.
type toolTask struct {
	name        string
	description string
	options     []v1.OptionSpec
	cmd         Commander

	// command returns the tool argv; ok=false means a required option was
	// missing and has already been reported
	command func(tc *registry.TaskContext) (argv []string, ok bool, err error)
}

func (t *toolTask) Name() string {
	return t.name
}

func (t *toolTask) Description() string {
	return t.description
}

func (t *toolTask) Options() []v1.OptionSpec {
	return t.options
}

func (t *toolTask) Run(ctx context.Context, tc *registry.TaskContext) (int, error) {
	argv, ok, err := t.command(tc)
	if err != nil {
		return 1, err
	}
	if !ok {
		return ExitMissingOption, nil
	}
	tc.Log.V(1).Info("Running tool", "argv", argv)
	return t.cmd.Run(ctx, tc.ProjectDir, tc.Streams, argv[0], argv[1:]...)
}

// splitCommand parses a configured command line with shell quoting rules.
func splitCommand(option, line string) ([]string, error) {
	argv, err := shlex.Split(line)
	if err != nil {
		return nil, fmt.Errorf("option %s: %w", option, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("option %s is empty", option)
	}
	return argv, nil
}

func lintTask(cmd Commander) registry.Task {
	return &toolTask{
		name:        "lint",
		description: "Run the project linter",
		cmd:         cmd,
		options: []v1.OptionSpec{
			{Name: "linter", Description: "linter command line", Default: "golangci-lint run"},
		},
		command: func(tc *registry.TaskContext) ([]string, bool, error) {
			argv, err := splitCommand("linter", tc.Options.Get("linter"))
			if err != nil {
				return nil, false, err
			}
			return append(argv, tc.Invocation.Args()...), true, nil
		},
	}
}

func testTask(cmd Commander) registry.Task {
	return &toolTask{
		name:        "test",
		description: "Run the test suite",
		cmd:         cmd,
		options: []v1.OptionSpec{
			{Name: "runner", Description: "test command line", Default: "go test"},
			{Name: "packages", Description: "comma separated package patterns", Default: "./..."},
		},
		command: func(tc *registry.TaskContext) ([]string, bool, error) {
			argv, err := splitCommand("runner", tc.Options.Get("runner"))
			if err != nil {
				return nil, false, err
			}
			argv = append(argv, tc.Invocation.Args()...)
			return append(argv, tc.Options.List("packages")...), true, nil
		},
	}
}

var imageOptions = []v1.OptionSpec{
	{Name: "image", Description: "image repository, e.g. registry.local/app", Required: true},
	{Name: "tag", Description: "image tag", Default: "latest"},
	{Name: "engine", Description: "container engine binary", Default: "docker"},
}

func imageRef(tc *registry.TaskContext) (string, bool) {
	image, ok := tc.Options.Lookup("image")
	if !ok {
		return "", false
	}
	return image + ":" + tc.Options.Get("tag"), true
}

func buildTask(cmd Commander) registry.Task {
	return &toolTask{
		name:        "build",
		description: "Build the project container image",
		cmd:         cmd,
		options: append(append([]v1.OptionSpec(nil), imageOptions...),
			v1.OptionSpec{Name: "context", Description: "build context directory", Default: "."},
			v1.OptionSpec{Name: "file", Description: "Dockerfile path, relative to the context"},
		),
		command: func(tc *registry.TaskContext) ([]string, bool, error) {
			if _, ok := requireOption(tc, "build", "image"); !ok {
				return nil, false, nil
			}
			ref, _ := imageRef(tc)
			argv := []string{tc.Options.Get("engine"), "build", "-t", ref}
			if file, ok := tc.Options.Lookup("file"); ok {
				argv = append(argv, "-f", file)
			}
			argv = append(argv, tc.Invocation.Args()...)
			return append(argv, tc.Options.Get("context")), true, nil
		},
	}
}

func pushTask(cmd Commander) registry.Task {
	return &toolTask{
		name:        "push",
		description: "Push the project container image",
		cmd:         cmd,
		options:     imageOptions,
		command: func(tc *registry.TaskContext) ([]string, bool, error) {
			if _, ok := requireOption(tc, "push", "image"); !ok {
				return nil, false, nil
			}
			ref, _ := imageRef(tc)
			argv := []string{tc.Options.Get("engine"), "push"}
			argv = append(argv, tc.Invocation.Args()...)
			return append(argv, ref), true, nil
		},
	}
}

var clusterOptions = []v1.OptionSpec{
	{Name: "cluster", Description: "kind cluster name", Default: "bosun"},
	{Name: "kind", Description: "kind binary", Default: "kind"},
}

func clusterUpTask(cmd Commander) registry.Task {
	return &toolTask{
		name:        "cluster-up",
		description: "Create a local kind cluster",
		cmd:         cmd,
		options: append(append([]v1.OptionSpec(nil), clusterOptions...),
			v1.OptionSpec{Name: "config", Description: "kind cluster config file"},
		),
		command: func(tc *registry.TaskContext) ([]string, bool, error) {
			argv := []string{tc.Options.Get("kind"), "create", "cluster", "--name", tc.Options.Get("cluster")}
			if cfg, ok := tc.Options.Lookup("config"); ok {
				argv = append(argv, "--config", cfg)
			}
			return append(argv, tc.Invocation.Args()...), true, nil
		},
	}
}

// confirm asks a yes/no question on the task's streams. The read runs in its
// own goroutine so an interrupt ends the prompt; ctx.Err() is returned then.
func confirm(ctx context.Context, tc *registry.TaskContext, question string) (bool, error) {
	fmt.Fprintf(tc.Streams.Err, "%s [y/N] ", question)
	if tc.Streams.In == nil {
		return false, nil
	}

	answers := make(chan string, 1)
	go func() {
		var answer string
		if _, err := fmt.Fscanln(tc.Streams.In, &answer); err != nil {
			answer = ""
		}
		answers <- answer
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(tc.Streams.Err)
		return false, ctx.Err()
	case answer := <-answers:
		answer = strings.ToLower(strings.TrimSpace(answer))
		return answer == "y" || answer == "yes", nil
	}
}
