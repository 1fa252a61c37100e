package process

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	v1 "github.com/kination/bosun/api/v1"
	"github.com/kination/bosun/internal/executor"
)

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func newRequest(path string, streams v1.Streams, args ...string) *executor.Request {
	return &executor.Request{
		Target:      executor.OverrideTarget(filepath.Base(path), path),
		Invocation:  v1.NewInvocation(filepath.Base(path), args...),
		Options:     v1.Options{"image": "web", "image-tag": "1.2"},
		ProjectDir:  filepath.Dir(path),
		OverrideDir: filepath.Dir(path),
		Streams:     streams,
	}
}

func TestExecutor_Variants(t *testing.T) {
	variants := New().Variants()
	if len(variants) != 1 || variants[0] != v1.VariantOverridden {
		t.Errorf("expected [Overridden], got %v", variants)
	}
}

func TestExecutor_ExitCodeTransparency(t *testing.T) {
	dir := t.TempDir()

	for _, k := range []int{0, 1, 127} {
		t.Run(fmt.Sprintf("exit %d", k), func(t *testing.T) {
			path := writeScript(t, dir, fmt.Sprintf("exit%d", k), fmt.Sprintf("exit %d", k))
			var out, errOut bytes.Buffer

			code, err := New().Execute(context.Background(), newRequest(path, v1.Streams{Out: &out, Err: &errOut}))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if code != k {
				t.Errorf("expected exit code %d, got %d", k, code)
			}
		})
	}
}

func TestExecutor_PassesArgsAndStreams(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "build", `read line; echo "args:$*"; echo "in:$line"; echo "err" >&2`)

	var out, errOut bytes.Buffer
	streams := v1.Streams{In: strings.NewReader("hello\n"), Out: &out, Err: &errOut}

	code, err := New().Execute(context.Background(), newRequest(path, streams, "--push", "two words"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if got := out.String(); got != "args:--push two words\nin:hello\n" {
		t.Errorf("unexpected stdout %q", got)
	}
	if got := errOut.String(); got != "err\n" {
		t.Errorf("unexpected stderr %q", got)
	}
}

func TestExecutor_Environment(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "push", `echo "$BOSUN_TASK|$BOSUN_OPT_IMAGE|$BOSUN_OPT_IMAGE_TAG|$INHERITED"`)

	var out bytes.Buffer
	exec := &Executor{BaseEnv: []string{"INHERITED=yes", "PATH=" + os.Getenv("PATH")}}

	if _, err := exec.Execute(context.Background(), newRequest(path, v1.Streams{Out: &out, Err: &out})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "push|web|1.2|yes" {
		t.Errorf("unexpected environment %q", got)
	}
}

func TestExecutor_MissingShebang(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken")
	if err := os.WriteFile(path, []byte{0x7f, 'E', 'L', 'F', 0, 0}, 0o755); err != nil {
		t.Fatal(err)
	}

	code, err := New().Execute(context.Background(), newRequest(path, v1.Streams{}))
	if err == nil {
		t.Fatal("expected error for unrunnable file")
	}
	if code != ExitCannotExecute {
		t.Errorf("expected %d, got %d", ExitCannotExecute, code)
	}
}

func TestExecutor_EmptyPath(t *testing.T) {
	req := &executor.Request{Target: executor.OverrideTarget("build", "")}
	if _, err := New().Execute(context.Background(), req); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestRun_Interrupt(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "wait", "exec sleep 5")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	code, _ := Run(ctx, Command{Path: path, GracePeriod: time.Second})
	if code == 0 {
		t.Error("interrupted command must not report success")
	}
	if time.Since(start) > 4*time.Second {
		t.Error("command was not interrupted")
	}
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	code, err := Run(ctx, Command{Path: "/bin/true"})
	if err == nil || code != ExitInterrupted {
		t.Errorf("expected interrupted, got %d, %v", code, err)
	}
}

func TestRun_NotFound(t *testing.T) {
	code, err := Run(context.Background(), Command{Path: "definitely-not-a-bosun-tool"})
	if err == nil {
		t.Fatal("expected error")
	}
	if code != ExitNotFound {
		t.Errorf("expected %d, got %d", ExitNotFound, code)
	}
}

func TestOptionEnvName(t *testing.T) {
	tests := map[string]string{
		"image":      "BOSUN_OPT_IMAGE",
		"image-tag":  "BOSUN_OPT_IMAGE_TAG",
		"kube.ctx":   "BOSUN_OPT_KUBE_CTX",
		"cluster_id": "BOSUN_OPT_CLUSTER_ID",
	}
	for in, want := range tests {
		if got := OptionEnvName(in); got != want {
			t.Errorf("OptionEnvName(%q) = %q, want %q", in, got, want)
		}
	}
}
