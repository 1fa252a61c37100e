package tasks

import (
	"context"
	"fmt"
	"text/tabwriter"

	v1 "github.com/kination/bosun/api/v1"
	"github.com/kination/bosun/internal/override"
	"github.com/kination/bosun/internal/registry"
)

// overridesTask lists the project's override directory. Help never shows
// overrides; this is the place to inspect them.
type overridesTask struct {
	shared []string
}

func (t *overridesTask) Name() string {
	return "overrides"
}

func (t *overridesTask) Description() string {
	return "List this project's task overrides and whether they can run"
}

func (t *overridesTask) Options() []v1.OptionSpec {
	return nil
}

func (t *overridesTask) Run(ctx context.Context, tc *registry.TaskContext) (int, error) {
	entries, err := override.List(tc.OverrideDir)
	if err != nil {
		return 1, err
	}
	if len(entries) == 0 {
		fmt.Fprintf(tc.Streams.Out, "no overrides in %s\n", tc.OverrideDir)
		return 0, nil
	}

	shared := make(map[string]bool, len(t.shared))
	for _, name := range t.shared {
		shared[name] = true
	}

	blocked := 0
	tw := tabwriter.NewWriter(tc.Streams.Out, 0, 4, 3, ' ', 0)
	fmt.Fprintln(tw, "TASK\tSTATUS\tREPLACES SHARED")
	for _, e := range entries {
		status := "ok"
		if e.Decision.Kind == v1.DecisionOverrideBlocked {
			status = "blocked: " + e.Decision.Reason
			blocked++
		}
		replaces := "no"
		if shared[e.Name] {
			replaces = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Name, status, replaces)
	}
	if err := tw.Flush(); err != nil {
		return 1, err
	}

	if blocked > 0 {
		for _, e := range entries {
			if e.Decision.Kind == v1.DecisionOverrideBlocked {
				fmt.Fprintf(tc.Streams.Err, "fix: %s\n", override.Remediation(e.Decision))
			}
		}
		return 1, nil
	}
	return 0, nil
}
