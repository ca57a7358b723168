// Package execx spawns plugin handler processes and detached commands.
package execx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// ErrTimeout indicates a handler process exceeded its wall-clock budget.
var ErrTimeout = errors.New("process timed out")

// Result holds the captured output of a piped spawn.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Spawner runs external processes for the plugin runner.
type Spawner interface {
	// Spawn runs argv with stdin piped in and stdout/stderr captured. A
	// non-zero exit is reported through Result, not through err.
	Spawn(ctx context.Context, argv []string, stdin []byte, timeout time.Duration) (*Result, error)

	// SpawnDetached starts argv fire-and-forget, with no pipes attached.
	SpawnDetached(argv []string) error
}

// OSRunner is the real Spawner backed by os/exec.
type OSRunner struct {
	workDir string
}

// New creates an OSRunner. workDir may be empty.
func New(workDir string) *OSRunner {
	return &OSRunner{workDir: workDir}
}

// Spawn runs a handler process for one protocol step.
func (r *OSRunner) Spawn(ctx context.Context, argv []string, stdin []byte, timeout time.Duration) (*Result, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty argv")
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if r.workDir != "" {
		cmd.Dir = r.workDir
	}
	cmd.Stdin = bytes.NewReader(stdin)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return nil, ErrTimeout
	}

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return nil, fmt.Errorf("exec error: %w", err)
		}
	}

	return &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: exitCode,
	}, nil
}

// SpawnDetached starts a command without waiting for it. The child is
// released so its exit status never blocks the caller.
func (r *OSRunner) SpawnDetached(argv []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("empty argv")
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	if r.workDir != "" {
		cmd.Dir = r.workDir
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start detached: %w", err)
	}
	return cmd.Process.Release()
}
