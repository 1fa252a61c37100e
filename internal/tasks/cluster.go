package tasks

import (
	"context"
	"fmt"
	"text/tabwriter"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/tools/clientcmd"
	"sigs.k8s.io/controller-runtime/pkg/client"

	v1 "github.com/kination/bosun/api/v1"
	"github.com/kination/bosun/internal/executor/process"
	"github.com/kination/bosun/internal/registry"
)

// clusterDownTask deletes the local kind cluster after confirmation.
type clusterDownTask struct {
	cmd Commander
}

func (t *clusterDownTask) Name() string {
	return "cluster-down"
}

func (t *clusterDownTask) Description() string {
	return "Delete the local kind cluster (asks first unless --yes)"
}

func (t *clusterDownTask) Options() []v1.OptionSpec {
	return clusterOptions
}

func (t *clusterDownTask) Run(ctx context.Context, tc *registry.TaskContext) (int, error) {
	name := tc.Options.Get("cluster")

	yes := false
	var rest []string
	for _, a := range tc.Invocation.Args() {
		if a == "--yes" || a == "-y" {
			yes = true
			continue
		}
		rest = append(rest, a)
	}

	if !yes {
		ok, err := confirm(ctx, tc, fmt.Sprintf("Delete kind cluster %q?", name))
		if err != nil {
			return process.ExitInterrupted, nil
		}
		if !ok {
			fmt.Fprintln(tc.Streams.Err, "aborted")
			return 1, nil
		}
	}

	args := append([]string{"delete", "cluster", "--name", name}, rest...)
	return t.cmd.Run(ctx, tc.ProjectDir, tc.Streams, tc.Options.Get("kind"), args...)
}

// clusterStatusTask reports node readiness of the current cluster.
type clusterStatusTask struct {
	newClient ClientFactory
}

func (t *clusterStatusTask) Name() string {
	return "cluster-status"
}

func (t *clusterStatusTask) Description() string {
	return "Show cluster nodes and fail if any is not Ready"
}

func (t *clusterStatusTask) Options() []v1.OptionSpec {
	return []v1.OptionSpec{
		{Name: "kubeconfig", Description: "kubeconfig path; default loading rules when unset"},
		{Name: "context", Description: "kubeconfig context; current context when unset"},
	}
}

func (t *clusterStatusTask) Run(ctx context.Context, tc *registry.TaskContext) (int, error) {
	cl, err := t.newClient(tc.Options.Get("kubeconfig"), tc.Options.Get("context"))
	if err != nil {
		return 1, fmt.Errorf("failed to create client: %w", err)
	}

	var nodes corev1.NodeList
	if err := cl.List(ctx, &nodes); err != nil {
		return 1, fmt.Errorf("failed to list nodes: %w", err)
	}
	if len(nodes.Items) == 0 {
		fmt.Fprintln(tc.Streams.Out, "no nodes found")
		return 1, nil
	}

	notReady := 0
	tw := tabwriter.NewWriter(tc.Streams.Out, 0, 4, 3, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSTATUS\tVERSION")
	for _, node := range nodes.Items {
		status := "NotReady"
		if nodeReady(&node) {
			status = "Ready"
		} else {
			notReady++
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", node.Name, status, node.Status.NodeInfo.KubeletVersion)
	}
	if err := tw.Flush(); err != nil {
		return 1, err
	}

	tc.Log.V(1).Info("Cluster status", "nodes", len(nodes.Items), "notReady", notReady)
	if notReady > 0 {
		return 1, nil
	}
	return 0, nil
}

func nodeReady(node *corev1.Node) bool {
	for _, c := range node.Status.Conditions {
		if c.Type == corev1.NodeReady {
			return c.Status == corev1.ConditionTrue
		}
	}
	return false
}

// NewKubeClient loads kubeconfig with the standard loading rules, honouring
// an explicit path and context when given.
func NewKubeClient(kubeconfig, kubecontext string) (client.Client, error) {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfig != "" {
		rules.ExplicitPath = kubeconfig
	}
	overrides := &clientcmd.ConfigOverrides{CurrentContext: kubecontext}

	restConfig, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("load kubeconfig: %w", err)
	}
	return client.New(restConfig, client.Options{Scheme: scheme.Scheme})
}
