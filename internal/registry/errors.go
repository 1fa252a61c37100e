package registry

import "fmt"

// DuplicateTaskError is returned when a shared task name is declared twice.
type DuplicateTaskError struct {
	Name string
}

func (e *DuplicateTaskError) Error() string {
	return fmt.Sprintf("shared task %q is already registered", e.Name)
}

// InvalidNameError is returned for task names that fail validation.
type InvalidNameError struct {
	Name string
	Err  error
}

func (e *InvalidNameError) Error() string {
	return e.Err.Error()
}

func (e *InvalidNameError) Unwrap() error {
	return e.Err
}

// NotFoundError is returned by Lookup for unregistered names.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no shared task registered for name: %s", e.Name)
}
