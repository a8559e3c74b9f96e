package sweep

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/iot-trust/simsweep/internal/fsutil"
	"github.com/iot-trust/simsweep/internal/monitoring"
	"github.com/iot-trust/simsweep/internal/timeutil"
)

// ExistingPolicy selects what to do when a metrics artifact already exists
// at a cell's prefix before the cell runs.
type ExistingPolicy string

const (
	// PolicyOverwrite reruns the cell unconditionally. This matches the
	// historical harness behaviour: a rerun supersedes prior artifacts.
	PolicyOverwrite ExistingPolicy = "overwrite"

	// PolicySkip records the cell as skipped and keeps the artifact.
	PolicySkip ExistingPolicy = "skip"

	// PolicyFail aborts the sweep at the first pre-existing artifact.
	PolicyFail ExistingPolicy = "fail"
)

// ArtifactPaths locates one cell's outputs on storage. It is the typed
// request the run driver receives instead of raw path strings scattered
// through the core.
type ArtifactPaths struct {
	// Dir is the output directory for the cell; created before the run.
	Dir string

	// Prefix is the full path prefix handed to the simulator.
	Prefix string

	// LogPath receives the simulator's combined stdout and stderr.
	LogPath string

	// MetricsPath is where the simulator will write its metrics artifact.
	MetricsPath string
}

// ExecResult is the typed response from a completed simulator process.
type ExecResult struct {
	ExitCode int
}

// Driver executes one configuration as a blocking external process. A
// returned error means the process could not be started (LaunchError);
// a non-zero exit is reported through ExecResult, not through error.
type Driver interface {
	Execute(ctx context.Context, cfg Configuration, paths ArtifactPaths) (ExecResult, error)
}

// RunnerStatus represents the current state of a sweep run.
type RunnerStatus string

const (
	RunnerIdle      RunnerStatus = "idle"
	RunnerRunning   RunnerStatus = "running"
	RunnerComplete  RunnerStatus = "complete"
	RunnerCancelled RunnerStatus = "cancelled"
)

// RunnerState is a snapshot of sweep progress.
type RunnerState struct {
	Status         RunnerStatus
	TotalCells     int
	CompletedCells int
}

// RunnerOptions configures a sweep run.
type RunnerOptions struct {
	// ResultsRoot is the directory under which all artifact prefixes live.
	ResultsRoot string

	// Existing selects the pre-existing-artifact policy.
	Existing ExistingPolicy

	// Parallel is the maximum number of cells in flight. Values below 1
	// mean sequential execution.
	Parallel int
}

// Runner iterates a configuration grid, drives one external simulation per
// cell and assembles the sweep manifest. One failing cell never stops the
// remaining grid; only cancellation or PolicyFail do.
type Runner struct {
	driver Driver
	fs     fsutil.FileSystem
	clock  timeutil.Clock
	opts   RunnerOptions

	mu    sync.Mutex
	state RunnerState
}

// NewRunner creates a sweep runner. fs and clock may be nil, in which case
// the real filesystem and clock are used.
func NewRunner(driver Driver, fs fsutil.FileSystem, clock timeutil.Clock, opts RunnerOptions) *Runner {
	if fs == nil {
		fs = fsutil.OSFileSystem{}
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if opts.ResultsRoot == "" {
		opts.ResultsRoot = "results"
	}
	if opts.Existing == "" {
		opts.Existing = PolicyOverwrite
	}
	if opts.Parallel < 1 {
		opts.Parallel = 1
	}
	return &Runner{
		driver: driver,
		fs:     fs,
		clock:  clock,
		opts:   opts,
		state:  RunnerState{Status: RunnerIdle},
	}
}

// State returns a snapshot of the current sweep progress.
func (r *Runner) State() RunnerState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// PathsFor resolves the artifact paths for one configuration under the
// runner's results root. Only this boundary composes path strings; the
// rest of the core deals in ArtifactPaths values.
func (r *Runner) PathsFor(cfg Configuration) ArtifactPaths {
	dir := filepath.Join(r.opts.ResultsRoot, filepath.FromSlash(cfg.ArtifactDir()))
	prefix := dir + string(filepath.Separator) + cfg.FilePrefix()

	metrics := prefix + "metrics.pickle.bz2"
	log := prefix + "run.log"
	if seed, ok := cfg.Seed(); ok {
		metrics = fmt.Sprintf("%smetrics.%d.pickle.bz2", prefix, seed)
		log = fmt.Sprintf("%srun.%d.log", prefix, seed)
	}

	return ArtifactPaths{Dir: dir, Prefix: prefix, LogPath: log, MetricsPath: metrics}
}

// Run executes the grid and returns the manifest. The returned error is
// nil when the full grid was attempted, regardless of per-cell failures;
// it is non-nil when the sweep was cancelled or aborted by PolicyFail, in
// which case the manifest covers only the cells that completed.
func (r *Runner) Run(ctx context.Context, grid *Grid) (Manifest, error) {
	r.mu.Lock()
	if r.state.Status == RunnerRunning {
		r.mu.Unlock()
		return Manifest{}, fmt.Errorf("sweep already in progress")
	}
	r.state = RunnerState{Status: RunnerRunning, TotalCells: len(grid.Cells)}
	r.mu.Unlock()

	manifest := Manifest{
		SweepID:   uuid.New().String(),
		StartedAt: r.clock.Now(),
	}

	sweepCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		abortMu  sync.Mutex
		abortErr error
	)
	abort := func(err error) {
		abortMu.Lock()
		if abortErr == nil {
			abortErr = err
		}
		abortMu.Unlock()
		cancel()
	}

	results := make([]*RunResult, len(grid.Cells))
	sem := make(chan struct{}, r.opts.Parallel)
	var wg sync.WaitGroup

launch:
	for i, cfg := range grid.Cells {
		select {
		case <-sweepCtx.Done():
			break launch
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i int, cfg Configuration) {
			defer wg.Done()
			defer func() { <-sem }()

			res := r.runCell(sweepCtx, i, len(grid.Cells), cfg, abort)
			if res == nil {
				return
			}
			results[i] = res
			r.mu.Lock()
			r.state.CompletedCells++
			r.mu.Unlock()
		}(i, cfg)
	}
	wg.Wait()

	for _, res := range results {
		if res != nil {
			manifest.Results = append(manifest.Results, *res)
		}
	}
	manifest.CompletedAt = r.clock.Now()

	abortMu.Lock()
	err := abortErr
	abortMu.Unlock()
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	manifest.Cancelled = err != nil

	r.mu.Lock()
	if manifest.Cancelled {
		r.state.Status = RunnerCancelled
	} else {
		r.state.Status = RunnerComplete
	}
	r.mu.Unlock()

	monitoring.Logf("[sweep] %d/%d cells complete: %d succeeded, %d failed, %d skipped",
		len(manifest.Results), len(grid.Cells), manifest.Succeeded(), manifest.Failed(), manifest.Skipped())

	return manifest, err
}

// runCell runs one grid cell. It returns nil when the cell did not complete
// because the sweep was cancelled mid-flight.
func (r *Runner) runCell(ctx context.Context, index, total int, cfg Configuration, abort func(error)) *RunResult {
	paths := r.PathsFor(cfg)
	started := r.clock.Now()

	monitoring.Logf("[sweep] cell %d/%d: %s", index+1, total, cfg.String())

	res := &RunResult{
		Config:      cfg,
		StartedAt:   started,
		LogPath:     paths.LogPath,
		MetricsPath: paths.MetricsPath,
	}

	// Idempotent: an existing directory is never an error.
	if err := r.fs.MkdirAll(paths.Dir, 0o755); err != nil {
		res.Status = StatusLaunchFailed
		res.Message = fmt.Sprintf("create output directory: %v", err)
		res.Duration = r.clock.Since(started)
		return res
	}

	if r.fs.Exists(paths.MetricsPath) {
		switch r.opts.Existing {
		case PolicySkip:
			monitoring.Logf("[sweep] cell %d/%d: artifact present, skipping", index+1, total)
			res.Status = StatusSkipped
			res.Duration = r.clock.Since(started)
			return res
		case PolicyFail:
			abort(&ArtifactExistsError{Path: paths.MetricsPath})
			return nil
		}
		// PolicyOverwrite: fall through and rerun.
	}

	exec, err := r.driver.Execute(ctx, cfg, paths)
	if ctx.Err() != nil && err != nil {
		// Cancellation cut the run short: the cell did not complete
		// and must not appear in the manifest. A cell that finished
		// just as cancellation landed is still recorded.
		return nil
	}
	res.Duration = r.clock.Since(started)

	switch {
	case err != nil:
		res.Status = StatusLaunchFailed
		res.Message = err.Error()
		monitoring.Logf("[sweep] cell %d/%d: launch failed: %v (config: %s)", index+1, total, err, cfg.String())
	case exec.ExitCode != 0:
		res.Status = StatusFailed
		res.ExitCode = exec.ExitCode
		monitoring.Logf("[sweep] cell %d/%d: exit %d (log: %s)", index+1, total, exec.ExitCode, paths.LogPath)
	default:
		res.Status = StatusSuccess
	}
	return res
}
