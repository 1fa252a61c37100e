// Package config loads the optional per-project bosun.yaml and turns it into
// the explicit option sets handed to each task.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	v1 "github.com/kination/bosun/api/v1"
)

const (
	// FileName is looked up in the project directory when no path is given
	FileName = "bosun.yaml"
	// DefaultOverrideDir is relative to the project directory
	DefaultOverrideDir = ".bosun/tasks"
	// ExitConfigError is the process exit code for configuration problems
	ExitConfigError = 3
)

// OptionValue is a scalar option, or a list written as a YAML sequence
// which is stored comma separated.
type OptionValue string

func (v *OptionValue) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*v = OptionValue(node.Value)
	case yaml.SequenceNode:
		items := make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: list options may only hold scalars", item.Line)
			}
			items = append(items, item.Value)
		}
		*v = OptionValue(strings.Join(items, ","))
	default:
		return fmt.Errorf("line %d: option must be a scalar or a list", node.Line)
	}
	return nil
}

// Config is the project configuration.
type Config struct {
	// OverrideDir holds project-local task executables
	OverrideDir string `yaml:"overrideDir,omitempty"`

	// Tasks maps task name to option values
	Tasks map[string]map[string]OptionValue `yaml:"tasks,omitempty"`

	// Path is the file the config was read from, empty for defaults
	Path string `yaml:"-"`
}

// ConfigError reports an unreadable or invalid configuration.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("config error: %v", e.Err)
	}
	return fmt.Sprintf("config error in %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ExitCode implements the exit code contract used by cmd/bosun
func (e *ConfigError) ExitCode() int {
	return ExitConfigError
}

// Default returns an empty configuration
func Default() *Config {
	return &Config{
		OverrideDir: DefaultOverrideDir,
		Tasks:       map[string]map[string]OptionValue{},
	}
}

// Load reads the config at path. When path is empty, projectDir/bosun.yaml
// is used if it exists and defaults otherwise.
func Load(path, projectDir string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = filepath.Join(projectDir, FileName)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, &ConfigError{Path: path, Err: fmt.Errorf("read config error: %w", err)}
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &ConfigError{Path: path, Err: fmt.Errorf("yaml parse error: %w", err)}
	}
	cfg.Path = path
	if cfg.OverrideDir == "" {
		cfg.OverrideDir = DefaultOverrideDir
	}
	if cfg.Tasks == nil {
		cfg.Tasks = map[string]map[string]OptionValue{}
	}
	for name := range cfg.Tasks {
		if err := v1.ValidateTaskName(name); err != nil {
			return nil, &ConfigError{Path: path, Err: err}
		}
	}
	return cfg, nil
}

// TaskOptions returns the raw configured options for a task, without
// validation or defaults. Override executables receive these.
func (c *Config) TaskOptions(name string) v1.Options {
	opts := v1.Options{}
	for k, v := range c.Tasks[name] {
		opts[k] = string(v)
	}
	return opts
}

// ResolveOptions validates the configured options for a shared task against
// the options it declares and fills in defaults. Unknown keys are an error.
// Required options are left for the task to check, since reporting them is
// part of the task's own output.
func (c *Config) ResolveOptions(name string, specs []v1.OptionSpec) (v1.Options, error) {
	known := make(map[string]v1.OptionSpec, len(specs))
	for _, s := range specs {
		known[s.Name] = s
	}

	opts := c.TaskOptions(name)
	var unknown []string
	for k := range opts {
		if _, ok := known[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, &ConfigError{
			Path: c.Path,
			Err:  fmt.Errorf("task %s does not recognize option(s) %s", name, strings.Join(unknown, ", ")),
		}
	}

	for _, s := range specs {
		if _, set := opts[s.Name]; !set && s.Default != "" {
			opts[s.Name] = s.Default
		}
	}
	return opts, nil
}

// ResolveOverrideDir returns dir made absolute against projectDir.
func ResolveOverrideDir(dir, projectDir string) string {
	if dir == "" {
		dir = DefaultOverrideDir
	}
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(projectDir, dir)
}
