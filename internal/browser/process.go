// Package browser launches Chrome with remote debugging enabled and
// speaks enough of the DevTools protocol to drive grading pages.
package browser

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
)

// ProcessRunner abstracts browser process control so tests can substitute
// a fake for real process execution.
type ProcessRunner interface {
	// Start spawns a process. The process runs until Kill is called or
	// the context is cancelled.
	Start(ctx context.Context, name string, args ...string) error

	// Wait blocks until the process exits and returns the exit error.
	Wait() error

	// Kill terminates the process immediately with SIGKILL.
	// Safe to call multiple times or if process already exited.
	Kill() error
}

// ExecProcessRunner implements ProcessRunner using os/exec.
type ExecProcessRunner struct {
	mu      sync.Mutex
	cmd     *exec.Cmd
	started bool
}

// NewExecProcessRunner creates a new ExecProcessRunner.
func NewExecProcessRunner() *ExecProcessRunner {
	return &ExecProcessRunner{}
}

// Start spawns the named process with the given arguments.
func (r *ExecProcessRunner) Start(ctx context.Context, name string, args ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return fmt.Errorf("process already started")
	}

	r.cmd = exec.CommandContext(ctx, name, args...)

	if err := r.cmd.Start(); err != nil {
		return fmt.Errorf("start process: %w", err)
	}

	r.started = true
	return nil
}

// Wait blocks until the process exits and returns the exit error.
func (r *ExecProcessRunner) Wait() error {
	r.mu.Lock()
	cmd := r.cmd
	r.mu.Unlock()

	if cmd == nil {
		return fmt.Errorf("process not started")
	}

	return cmd.Wait()
}

// Kill terminates the process immediately with SIGKILL.
func (r *ExecProcessRunner) Kill() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cmd == nil || r.cmd.Process == nil {
		return nil // Not started or already cleaned up
	}

	return r.cmd.Process.Kill()
}
