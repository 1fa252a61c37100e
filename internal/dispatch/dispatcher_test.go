package dispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	v1 "github.com/kination/bosun/api/v1"
	"github.com/kination/bosun/internal/config"
	"github.com/kination/bosun/internal/executor"
	"github.com/kination/bosun/internal/executor/process"
	"github.com/kination/bosun/internal/executor/shared"
	"github.com/kination/bosun/internal/registry"
	"github.com/kination/bosun/internal/runner"
)

// exitTask is a shared task that exits with a fixed code
type exitTask struct {
	name  string
	code  int
	calls *int
}

func (t exitTask) Name() string             { return t.name }
func (t exitTask) Description() string      { return "exits " + fmt.Sprint(t.code) }
func (t exitTask) Options() []v1.OptionSpec { return []v1.OptionSpec{{Name: "image"}} }

func (t exitTask) Run(ctx context.Context, tc *registry.TaskContext) (int, error) {
	if t.calls != nil {
		*t.calls++
	}
	fmt.Fprintf(tc.Streams.Out, "shared %s\n", t.name)
	return t.code, nil
}

type fixture struct {
	dir        string
	stdout     *bytes.Buffer
	stderr     *bytes.Buffer
	cfg        *config.Config
	dispatcher *Dispatcher
}

func newFixture(tasks ...registry.Task) *fixture {
	f := &fixture{
		dir:    GinkgoT().TempDir(),
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
		cfg:    config.Default(),
	}

	execs := executor.NewRegistry()
	execs.Register(shared.New())
	execs.Register(process.New())

	r := runner.NewRunner(execs, runner.RunnerConfig{
		Config:      f.cfg,
		ProjectDir:  f.dir,
		OverrideDir: f.dir,
		Streams:     v1.Streams{Out: f.stdout, Err: f.stderr},
	})

	f.dispatcher = New(Config{
		Program:     "bosun",
		Registry:    registry.MustNew(tasks...),
		Runner:      r,
		OverrideDir: f.dir,
		Stdout:      f.stdout,
		Stderr:      f.stderr,
	})
	return f
}

func (f *fixture) override(name, body string, mode os.FileMode) string {
	path := filepath.Join(f.dir, name)
	Expect(os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), mode)).To(Succeed())
	Expect(os.Chmod(path, mode)).To(Succeed())
	return path
}

func (f *fixture) dispatch(args ...string) (*v1.Result, error) {
	return f.dispatcher.Dispatch(context.Background(), args)
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var coded ExitCoder
	Expect(errors.As(err, &coded)).To(BeTrue(), "error %v has no exit code", err)
	return coded.ExitCode()
}

var _ = Describe("Dispatcher", func() {
	Context("with no arguments", func() {
		It("prints the task list and exits non-zero", func() {
			f := newFixture(exitTask{name: "build"}, exitTask{name: "push"})

			_, err := f.dispatch()

			var invErr *InvocationError
			Expect(errors.As(err, &invErr)).To(BeTrue())
			Expect(exitCode(err)).To(Equal(ExitUsage))
			Expect(f.stderr.String()).To(ContainSubstring("build"))
			Expect(f.stderr.String()).To(ContainSubstring("push"))
		})
	})

	Context("when help is requested", func() {
		DescribeTable("exits zero and lists tasks",
			func(arg string) {
				f := newFixture(exitTask{name: "build"})

				result, err := f.dispatch(arg)

				Expect(err).NotTo(HaveOccurred())
				Expect(result.ExitCode).To(Equal(0))
				Expect(f.stdout.String()).To(ContainSubstring("build"))
			},
			Entry("help", "help"),
			Entry("-h", "-h"),
			Entry("--help", "--help"),
		)

		It("exits zero with an empty registry", func() {
			f := newFixture()

			result, err := f.dispatch("help")

			Expect(err).NotTo(HaveOccurred())
			Expect(result.ExitCode).To(Equal(0))
			Expect(f.stdout.String()).To(ContainSubstring("No shared tasks registered."))
		})

		It("never advertises overrides", func() {
			f := newFixture(exitTask{name: "build"})
			f.override("deploy", "exit 0", 0o755)

			_, err := f.dispatch("-h")

			Expect(err).NotTo(HaveOccurred())
			Expect(f.stdout.String()).NotTo(ContainSubstring("deploy"))
		})

		It("describes a single task", func() {
			f := newFixture(exitTask{name: "build", code: 4})

			_, err := f.dispatch("help", "build")

			Expect(err).NotTo(HaveOccurred())
			Expect(f.stdout.String()).To(ContainSubstring("exits 4"))
			Expect(f.stdout.String()).To(ContainSubstring("image"))
		})

		It("bypasses task resolution", func() {
			f := newFixture()
			f.override("help", "exit 9", 0o755)

			result, err := f.dispatch("help")

			Expect(err).NotTo(HaveOccurred())
			Expect(result.ExitCode).To(Equal(0))
		})
	})

	Context("with an unknown task", func() {
		It("fails with a distinct message", func() {
			f := newFixture(exitTask{name: "build"})

			_, err := f.dispatch("deploy")

			var unknown *UnknownTaskError
			Expect(errors.As(err, &unknown)).To(BeTrue())
			Expect(exitCode(err)).To(Equal(ExitUnknownTask))
			Expect(err.Error()).To(ContainSubstring(`unknown task "deploy"`))
			Expect(err.Error()).NotTo(ContainSubstring("chmod"))
		})
	})

	Context("with an invalid task name", func() {
		It("rejects path traversal", func() {
			f := newFixture()

			_, err := f.dispatch("../../bin/sh")

			var invErr *InvocationError
			Expect(errors.As(err, &invErr)).To(BeTrue())
			Expect(exitCode(err)).To(Equal(ExitUsage))
		})
	})

	Context("with a non-executable override", func() {
		It("refuses to run it or the shared task", func() {
			calls := 0
			f := newFixture(exitTask{name: "build", calls: &calls})
			path := f.override("build", "echo ran", 0o644)

			_, err := f.dispatch("build")

			var blocked *OverrideBlockedError
			Expect(errors.As(err, &blocked)).To(BeTrue())
			Expect(blocked.Path).To(Equal(path))
			Expect(exitCode(err)).To(Equal(ExitOverrideBlocked))
			Expect(err.Error()).To(ContainSubstring("chmod +x " + path))
			Expect(err.Error()).NotTo(ContainSubstring("unknown task"))
			Expect(calls).To(Equal(0))
			Expect(f.stdout.String()).To(BeEmpty())
		})
	})

	Context("with an executable override", func() {
		It("selects the override over the shared task", func() {
			calls := 0
			f := newFixture(exitTask{name: "build", calls: &calls})
			f.override("build", `echo "override $*"`, 0o755)

			result, err := f.dispatch("build", "--fast")

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Variant).To(Equal(v1.VariantOverridden))
			Expect(calls).To(Equal(0))
			Expect(f.stdout.String()).To(Equal("override --fast\n"))
		})

		It("runs overrides that have no shared counterpart", func() {
			f := newFixture()
			f.override("deploy", "exit 0", 0o755)

			result, err := f.dispatch("deploy")

			Expect(err).NotTo(HaveOccurred())
			Expect(result.Variant).To(Equal(v1.VariantOverridden))
		})

		It("resolves the same way every time", func() {
			f := newFixture(exitTask{name: "build"})
			f.override("build", "exit 0", 0o755)

			first, err := f.dispatcher.Resolve("build")
			Expect(err).NotTo(HaveOccurred())
			for i := 0; i < 5; i++ {
				again, err := f.dispatcher.Resolve("build")
				Expect(err).NotTo(HaveOccurred())
				Expect(again.Variant).To(Equal(first.Variant))
				Expect(again.Path).To(Equal(first.Path))
			}
		})
	})

	Context("exit code transparency", func() {
		DescribeTable("shared task exit code is propagated",
			func(k int) {
				f := newFixture(exitTask{name: "stub", code: k})

				result, err := f.dispatch("stub")

				Expect(result.ExitCode).To(Equal(k))
				Expect(exitCode(err)).To(Equal(k))
				if k != 0 {
					var taskErr *TaskExecutionError
					Expect(errors.As(err, &taskErr)).To(BeTrue())
					Expect(taskErr.Silent()).To(BeTrue())
				}
			},
			Entry("exit 0", 0),
			Entry("exit 1", 1),
			Entry("exit 127", 127),
		)

		DescribeTable("override exit code is propagated",
			func(k int) {
				f := newFixture()
				f.override("stub", fmt.Sprintf("exit %d", k), 0o755)

				result, err := f.dispatch("stub")

				Expect(result.ExitCode).To(Equal(k))
				Expect(exitCode(err)).To(Equal(k))
			},
			Entry("exit 0", 0),
			Entry("exit 1", 1),
			Entry("exit 127", 127),
		)
	})

	Context("with invalid task options", func() {
		It("reports a config error without running the task", func() {
			calls := 0
			f := newFixture(exitTask{name: "build", calls: &calls})
			f.cfg.Tasks["build"] = map[string]config.OptionValue{"imag": "web"}

			_, err := f.dispatch("build")

			var cfgErr *config.ConfigError
			Expect(errors.As(err, &cfgErr)).To(BeTrue())
			Expect(exitCode(err)).To(Equal(config.ExitConfigError))
			Expect(calls).To(Equal(0))
		})
	})
})
