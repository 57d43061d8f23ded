// Package simrun invokes the external simulator binary for a single run of
// a sweep and captures its output.
package simrun

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/gargmohit24/platoonbench/internal/ctxlog"
)

// Spec describes one simulator invocation.
type Spec struct {
	Binary    string
	Ini       string
	UI        string
	Config    string
	RunNumber int
	ExtraArgs []string
	// WorkDir is the directory the simulator runs in; empty means the
	// current directory.
	WorkDir string
	// LogPath receives the combined stdout/stderr of the run. Empty
	// discards the output.
	LogPath string
}

// Args builds the simulator command line arguments for the spec.
func (s Spec) Args() []string {
	args := []string{"-u", s.UI, "-c", s.Config, "-r", strconv.Itoa(s.RunNumber)}
	args = append(args, s.ExtraArgs...)
	if s.Ini != "" {
		args = append(args, "-f", s.Ini)
	}
	return args
}

// String identifies the run in logs and errors.
func (s Spec) String() string {
	return fmt.Sprintf("%s#%d", s.Config, s.RunNumber)
}

// Runner executes simulator invocations. The seam exists so pipelines can
// be tested without a simulator binary.
type Runner interface {
	Run(ctx context.Context, spec Spec) error
}

// ExecRunner runs the simulator as a child process.
type ExecRunner struct{}

// Run executes the spec and blocks until the process exits. Cancelling the
// context kills the process.
func (ExecRunner) Run(ctx context.Context, spec Spec) error {
	logger := ctxlog.FromContext(ctx)

	var output io.Writer = io.Discard
	if spec.LogPath != "" {
		if err := os.MkdirAll(filepath.Dir(spec.LogPath), 0o755); err != nil {
			return fmt.Errorf("run %s: create log dir: %w", spec, err)
		}
		f, err := os.Create(spec.LogPath)
		if err != nil {
			return fmt.Errorf("run %s: create log file: %w", spec, err)
		}
		defer f.Close()
		output = f
	}

	cmd := exec.CommandContext(ctx, spec.Binary, spec.Args()...)
	cmd.Dir = spec.WorkDir
	cmd.Stdout = output
	cmd.Stderr = output

	logger.Info("Starting simulation run.", "run", spec.String(), "binary", spec.Binary, "log", spec.LogPath)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("run %s: %w", spec, err)
	}
	logger.Info("Simulation run finished.", "run", spec.String())
	return nil
}

// Task adapts one invocation to a pipeline graph node.
type Task struct {
	Runner Runner
	Spec   Spec
}

// Run implements dag.Task.
func (t Task) Run(ctx context.Context) error {
	return t.Runner.Run(ctx, t.Spec)
}
