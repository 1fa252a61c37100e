// Package help renders the list of shared tasks. It only ever looks at the
// registry: overrides are project-local and are not advertised here.
package help

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/kination/bosun/internal/registry"
)

// Render writes the usage line followed by every shared task, in
// registration order.
func Render(w io.Writer, program string, tasks []registry.Task) error {
	if _, err := fmt.Fprintf(w, "Usage: %s <task> [args...]\n       %s help [task]\n\n", program, program); err != nil {
		return err
	}
	if len(tasks) == 0 {
		_, err := fmt.Fprintln(w, "No shared tasks registered.")
		return err
	}

	if _, err := fmt.Fprintln(w, "Shared tasks:"); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 3, ' ', 0)
	for _, t := range tasks {
		fmt.Fprintf(tw, "  %s\t%s\n", t.Name(), t.Description())
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\nA project overrides a task by placing an executable file with the task's\nname in its override directory.\n")
	return err
}

// RenderTask writes one task's description and the options it recognizes.
func RenderTask(w io.Writer, program string, t registry.Task) error {
	fmt.Fprintf(w, "Usage: %s %s [args...]\n\n%s\n", program, t.Name(), t.Description())

	opts := t.Options()
	if len(opts) == 0 {
		return nil
	}
	fmt.Fprintf(w, "\nOptions (tasks.%s in bosun.yaml):\n", t.Name())
	tw := tabwriter.NewWriter(w, 0, 4, 3, ' ', 0)
	for _, o := range opts {
		var note string
		switch {
		case o.Required:
			note = "(required)"
		case o.Default != "":
			note = fmt.Sprintf("(default %q)", o.Default)
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", o.Name, o.Description, note)
	}
	return tw.Flush()
}
