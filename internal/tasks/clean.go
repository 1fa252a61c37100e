package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	v1 "github.com/kination/bosun/api/v1"
	"github.com/kination/bosun/internal/registry"
)

// cleanTask removes build outputs inside the project directory.
type cleanTask struct{}

func (t *cleanTask) Name() string {
	return "clean"
}

func (t *cleanTask) Description() string {
	return "Remove build outputs from the project directory"
}

func (t *cleanTask) Options() []v1.OptionSpec {
	return []v1.OptionSpec{
		{Name: "paths", Description: "comma separated paths to remove", Default: "bin,dist"},
	}
}

// Run removes the configured paths plus any given as arguments. Paths that
// resolve outside the project directory are refused.
func (t *cleanTask) Run(ctx context.Context, tc *registry.TaskContext) (int, error) {
	root, err := filepath.Abs(tc.ProjectDir)
	if err != nil {
		return 1, fmt.Errorf("project dir: %w", err)
	}

	paths := append(tc.Options.List("paths"), tc.Invocation.Args()...)
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return 1, err
		}

		target := p
		if !filepath.IsAbs(target) {
			target = filepath.Join(root, target)
		}
		target = filepath.Clean(target)
		if !within(target, root) {
			return 1, fmt.Errorf("refusing to remove %s: outside project dir %s", p, root)
		}

		if _, err := os.Lstat(target); os.IsNotExist(err) {
			continue
		}
		if err := os.RemoveAll(target); err != nil {
			return 1, fmt.Errorf("remove %s: %w", p, err)
		}
		fmt.Fprintf(tc.Streams.Out, "removed %s\n", p)
	}
	return 0, nil
}

// within reports whether path is strictly inside root.
func within(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
