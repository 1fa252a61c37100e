package v1

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Variant identifies which implementation of a task is active for one invocation.
type Variant string

const (
	// VariantShared is an implementation compiled into bosun.
	VariantShared Variant = "Shared"
	// VariantOverridden is an executable supplied by the calling project.
	VariantOverridden Variant = "Overridden"
)

var taskNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateTaskName rejects names that could address a file outside the
// override directory or that the shell convention never allowed.
func ValidateTaskName(name string) error {
	if name == "" {
		return fmt.Errorf("task name is empty")
	}
	if strings.Contains(name, "..") || !taskNamePattern.MatchString(name) {
		return fmt.Errorf("invalid task name %q: must match %s and not contain \"..\"", name, taskNamePattern)
	}
	return nil
}

// Invocation is a task name plus its ordered arguments. The zero value is an
// empty invocation; use NewInvocation to build one.
type Invocation struct {
	task string
	args []string
}

// NewInvocation copies args so later changes by the caller are not observed.
func NewInvocation(task string, args ...string) Invocation {
	return Invocation{
		task: task,
		args: append([]string(nil), args...),
	}
}

// Task returns the task name.
func (i Invocation) Task() string {
	return i.task
}

// Args returns a copy of the task arguments.
func (i Invocation) Args() []string {
	return append([]string(nil), i.args...)
}

func (i Invocation) String() string {
	if len(i.args) == 0 {
		return i.task
	}
	return i.task + " " + strings.Join(i.args, " ")
}

// DecisionKind is the outcome of override resolution.
type DecisionKind string

const (
	DecisionUseShared       DecisionKind = "UseShared"
	DecisionUseOverride     DecisionKind = "UseOverride"
	DecisionOverrideBlocked DecisionKind = "OverrideBlocked"
)

// Decision is the result of checking the override directory for a task.
type Decision struct {
	Kind DecisionKind
	// Path is the override file path; empty for DecisionUseShared.
	Path string
	// Reason explains a blocked override, e.g. "not executable".
	Reason string
}

// UseShared means no override file exists.
func UseShared() Decision {
	return Decision{Kind: DecisionUseShared}
}

// UseOverride means path exists and may be executed.
func UseOverride(path string) Decision {
	return Decision{Kind: DecisionUseOverride, Path: path}
}

// OverrideBlocked means path exists but must not be run.
func OverrideBlocked(path, reason string) Decision {
	return Decision{Kind: DecisionOverrideBlocked, Path: path, Reason: reason}
}

// Result is the outcome of one invocation. It is never persisted.
type Result struct {
	TaskName string
	Variant  Variant
	// Path is the override file that ran, if any.
	Path     string
	ExitCode int
	Message  string
}

// Streams are the standard streams handed to a task implementation.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// OptionSpec declares one configuration option recognized by a shared task.
type OptionSpec struct {
	Name        string
	Description string
	Default     string
	Required    bool
}

// Options are resolved option values for one task run.
type Options map[string]string

// Get returns the value for key, or "" when unset.
func (o Options) Get(key string) string {
	return o[key]
}

// Lookup reports whether key is set to a non-empty value.
func (o Options) Lookup(key string) (string, bool) {
	v, ok := o[key]
	return v, ok && v != ""
}

// List splits a comma separated value, dropping empty items.
func (o Options) List(key string) []string {
	var out []string
	for _, item := range strings.Split(o[key], ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Bool parses key as a boolean; unset or unparsable values return def.
func (o Options) Bool(key string, def bool) bool {
	v, ok := o.Lookup(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// Keys returns the option names in sorted order.
func (o Options) Keys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
