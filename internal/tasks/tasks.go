package tasks

import (
	"context"
	"fmt"

	"sigs.k8s.io/controller-runtime/pkg/client"

	v1 "github.com/kination/bosun/api/v1"
	"github.com/kination/bosun/internal/executor/process"
	"github.com/kination/bosun/internal/registry"
)

// ExitMissingOption is returned by a task whose required option is unset.
const ExitMissingOption = 2

// Commander runs an external tool and returns its exit code.
type Commander interface {
	Run(ctx context.Context, dir string, streams v1.Streams, name string, args ...string) (int, error)
}

// ExecCommander runs tools as child processes.
type ExecCommander struct{}

func (ExecCommander) Run(ctx context.Context, dir string, streams v1.Streams, name string, args ...string) (int, error) {
	return process.Run(ctx, process.Command{
		Path:    name,
		Args:    args,
		Dir:     dir,
		Streams: streams,
	})
}

// ClientFactory builds a Kubernetes client for a kubeconfig path and context.
type ClientFactory func(kubeconfig, kubecontext string) (client.Client, error)

// Deps are the collaborators shared tasks use.
type Deps struct {
	Commander Commander
	NewClient ClientFactory
}

// DefaultDeps spawns real tools and talks to the cluster named by kubeconfig.
func DefaultDeps() Deps {
	return Deps{
		Commander: ExecCommander{},
		NewClient: NewKubeClient,
	}
}

// Shared returns the static declaration list of shared tasks.
func Shared(deps Deps) []registry.Task {
	if deps.Commander == nil {
		deps.Commander = ExecCommander{}
	}
	if deps.NewClient == nil {
		deps.NewClient = NewKubeClient
	}

	tasks := []registry.Task{
		&cleanTask{},
		lintTask(deps.Commander),
		testTask(deps.Commander),
		buildTask(deps.Commander),
		pushTask(deps.Commander),
		clusterUpTask(deps.Commander),
		&clusterDownTask{cmd: deps.Commander},
		&clusterStatusTask{newClient: deps.NewClient},
	}

	ov := &overridesTask{}
	tasks = append(tasks, ov)
	for _, t := range tasks {
		ov.shared = append(ov.shared, t.Name())
	}
	return tasks
}

// requireOption reports a missing required option on the task's stderr.
func requireOption(tc *registry.TaskContext, task, key string) (string, bool) {
	v, ok := tc.Options.Lookup(key)
	if !ok {
		fmt.Fprintf(tc.Streams.Err, "%s: option %q is required (set tasks.%s.%s in bosun.yaml)\n", task, key, task, key)
	}
	return v, ok
}
