// Package tasks declares the shared task implementations compiled into
// bosun. Shared returns them in the order help lists them; the registry is
// built from that list once at startup.
//
// Tasks that wrap an external tool run it through a Commander with the
// caller's streams, so the tool's output and prompts reach the user
// unchanged and its exit code becomes the task's exit code.
package tasks
