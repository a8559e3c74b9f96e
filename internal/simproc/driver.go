package simproc

import (
	"context"
	"fmt"

	"github.com/iot-trust/simsweep/internal/fsutil"
	"github.com/iot-trust/simsweep/internal/sweep"
)

// Driver launches one simulator subprocess per grid cell. It satisfies the
// orchestrator's execution seam.
type Driver struct {
	// Python is the interpreter binary, e.g. "python3".
	Python string

	// Script is the path to the simulator entry script.
	Script string

	Runner CommandRunner
	FS     fsutil.FileSystem
}

// NewDriver creates a simulator driver. runner and fs may be nil, in which
// case real process execution and the real filesystem are used.
func NewDriver(python, script string, runner CommandRunner, fs fsutil.FileSystem) *Driver {
	if python == "" {
		python = "python3"
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	if fs == nil {
		fs = fsutil.OSFileSystem{}
	}
	return &Driver{Python: python, Script: script, Runner: runner, FS: fs}
}

// Execute runs the simulator for one configuration, blocking until it
// exits. The process's combined output lands in the cell's log file. A
// returned error means the run never started.
func (d *Driver) Execute(ctx context.Context, cfg sweep.Configuration, paths sweep.ArtifactPaths) (sweep.ExecResult, error) {
	inv := FromConfiguration(cfg, paths.Prefix)
	if err := inv.Validate(); err != nil {
		return sweep.ExecResult{}, &sweep.LaunchError{Err: err}
	}

	logw, err := d.FS.Create(paths.LogPath)
	if err != nil {
		return sweep.ExecResult{}, &sweep.LaunchError{Err: fmt.Errorf("create log file: %w", err)}
	}
	defer logw.Close()

	args := append([]string{d.Script}, inv.Argv()...)
	code, err := d.Runner.Run(ctx, d.Python, args, logw)
	if err != nil {
		return sweep.ExecResult{}, &sweep.LaunchError{Err: err}
	}
	return sweep.ExecResult{ExitCode: code}, nil
}
