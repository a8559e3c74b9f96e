// Package analysis hands completed sweep artifacts to the external
// analysis tooling.
package analysis

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/iot-trust/simsweep/internal/monitoring"
	"github.com/iot-trust/simsweep/internal/simproc"
	"github.com/iot-trust/simsweep/internal/sweep"
)

// AggregationError reports a failed aggregation pass.
type AggregationError struct {
	ExitCode int
	Err      error
}

func (e *AggregationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("aggregation failed: %v", e.Err)
	}
	return fmt.Sprintf("aggregation exited %d", e.ExitCode)
}

func (e *AggregationError) Unwrap() error { return e.Err }

// Invoker runs the external metrics analyser over a finished sweep's
// artifacts.
type Invoker struct {
	// Python is the interpreter binary, e.g. "python3".
	Python string

	// Script is the path to the analyser entry script.
	Script string

	// ResultsRoot is the directory the sweep wrote artifacts under.
	ResultsRoot string

	Runner simproc.CommandRunner

	// Output receives the analyser's combined stdout and stderr.
	// Defaults to the process's stdout.
	Output io.Writer
}

// NewInvoker creates an aggregation invoker. runner may be nil, in which
// case real process execution is used.
func NewInvoker(python, script, resultsRoot string, runner simproc.CommandRunner) *Invoker {
	if python == "" {
		python = "python3"
	}
	if runner == nil {
		runner = simproc.ExecRunner{}
	}
	return &Invoker{
		Python:      python,
		Script:      script,
		ResultsRoot: resultsRoot,
		Runner:      runner,
		Output:      os.Stdout,
	}
}

// Aggregate runs the analyser over every behaviour/eviction pair the
// manifest holds a usable artifact for. Pairs whose every cell failed are
// left out, so the analyser only ever sees directories with data in them.
// Each pair is passed as its metrics directory under the results root,
// which is what the analyser lists. A manifest with no usable artifacts
// is a no-op, not an error.
func (inv *Invoker) Aggregate(ctx context.Context, m sweep.Manifest) error {
	ids := m.Identifiers()
	if len(ids) == 0 {
		monitoring.Logf("[analysis] no usable artifacts, skipping aggregation")
		return nil
	}

	monitoring.Logf("[analysis] aggregating %d result sets under %s", len(ids), inv.ResultsRoot)

	args := make([]string, 0, len(ids)+1)
	args = append(args, inv.Script)
	for _, id := range ids {
		args = append(args, filepath.Join(inv.ResultsRoot, filepath.FromSlash(id)))
	}

	out := inv.Output
	if out == nil {
		out = os.Stdout
	}

	code, err := inv.Runner.Run(ctx, inv.Python, args, out)
	if err != nil {
		return &AggregationError{ExitCode: -1, Err: err}
	}
	if code != 0 {
		return &AggregationError{ExitCode: code}
	}
	return nil
}
