// Package simproc builds and launches external simulator processes: one
// blocking subprocess per grid cell, with typed argument construction and
// a mockable execution seam.
package simproc

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"sync"
)

// CommandRunner defines an interface for running external processes.
// This abstraction enables unit testing without real process execution.
type CommandRunner interface {
	// Run starts the named program with args, streams its combined
	// stdout and stderr to logw, and blocks until it exits. It returns
	// the exit code when the process ran to completion (zero or not)
	// and a non-nil error only when the process could not be started
	// or was killed before producing an exit status.
	Run(ctx context.Context, name string, args []string, logw io.Writer) (int, error)
}

// ExecRunner implements CommandRunner using os/exec.
type ExecRunner struct{}

// Run launches the process and waits for it. Cancelling ctx kills the
// process.
func (ExecRunner) Run(ctx context.Context, name string, args []string, logw io.Writer) (int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = logw
	cmd.Stderr = logw

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
		// The process started and exited on its own; a non-zero exit
		// is an outcome, not a launch failure.
		return exitErr.ExitCode(), nil
	}
	return -1, err
}

// MockCall records one invocation of a MockRunner.
type MockCall struct {
	Name string
	Args []string
}

// MockRunner implements CommandRunner for testing.
type MockRunner struct {
	// ExitCode is the exit code to return from Run.
	ExitCode int
	// Err is the error to return from Run.
	Err error
	// Output is written to logw on each call.
	Output []byte
	// RunFunc, if set, overrides the canned behaviour entirely.
	RunFunc func(ctx context.Context, name string, args []string, logw io.Writer) (int, error)

	mu    sync.Mutex
	calls []MockCall
}

// Run records the call and returns the configured outcome.
func (m *MockRunner) Run(ctx context.Context, name string, args []string, logw io.Writer) (int, error) {
	m.mu.Lock()
	argsCopy := make([]string, len(args))
	copy(argsCopy, args)
	m.calls = append(m.calls, MockCall{Name: name, Args: argsCopy})
	m.mu.Unlock()

	if m.RunFunc != nil {
		return m.RunFunc(ctx, name, args, logw)
	}
	if len(m.Output) > 0 && logw != nil {
		logw.Write(m.Output)
	}
	return m.ExitCode, m.Err
}

// Calls returns all recorded invocations.
func (m *MockRunner) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// LastCall returns the most recent invocation, or nil if none.
func (m *MockRunner) LastCall() *MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	c := m.calls[len(m.calls)-1]
	return &c
}
