// Package override decides whether a project-local executable replaces a
// shared task. It only reads the filesystem and never caches: every call
// re-examines the override directory.
package override

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	v1 "github.com/kination/bosun/api/v1"
)

const (
	ReasonNotExecutable = "not executable"
	ReasonNotRegular    = "not a regular file"
)

// Resolve checks dir/name. A missing file or a missing dir means the
// shared implementation is used.
func Resolve(name, dir string) (v1.Decision, error) {
	if err := v1.ValidateTaskName(name); err != nil {
		return v1.Decision{}, err
	}
	if dir == "" {
		return v1.UseShared(), nil
	}

	path := filepath.Join(dir, name)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscallNotDir) {
			return v1.UseShared(), nil
		}
		return v1.Decision{}, fmt.Errorf("stat override %s: %w", path, err)
	}

	if !info.Mode().IsRegular() {
		return v1.OverrideBlocked(path, ReasonNotRegular), nil
	}
	if !executable(path, info) {
		return v1.OverrideBlocked(path, ReasonNotExecutable), nil
	}
	return v1.UseOverride(path), nil
}

// Remediation describes how to fix a blocked override.
func Remediation(d v1.Decision) string {
	switch d.Reason {
	case ReasonNotExecutable:
		return fmt.Sprintf("chmod +x %s", d.Path)
	case ReasonNotRegular:
		return fmt.Sprintf("replace %s with an executable file or remove it", d.Path)
	default:
		return ""
	}
}

// Entry is one candidate file in an override directory.
type Entry struct {
	Name     string
	Decision v1.Decision
}

// List resolves every file in dir whose name is a valid task name, sorted
// by name. A missing dir yields no entries.
func List(dir string) ([]Entry, error) {
	if dir == "" {
		return nil, nil
	}
	des, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read override dir %s: %w", dir, err)
	}

	var entries []Entry
	for _, de := range des {
		name := de.Name()
		if strings.HasPrefix(name, ".") || v1.ValidateTaskName(name) != nil {
			continue
		}
		d, err := Resolve(name, dir)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Name: name, Decision: d})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}
