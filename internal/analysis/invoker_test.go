package analysis

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iot-trust/simsweep/internal/simproc"
	"github.com/iot-trust/simsweep/internal/sweep"
)

func manifestWith(t *testing.T, statuses []sweep.Status) sweep.Manifest {
	t.Helper()
	reg := sweep.NewRegistry()
	require.NoError(t, reg.Declare(sweep.DimBehaviour, "AlwaysGoodBehaviour", "AlwaysBadBehaviour"))
	require.NoError(t, reg.Declare(sweep.DimEviction, "LRU", "FIFO"))

	fixed := sweep.FixedParams{
		GoodAgents: 5, BadAgents: 5, NumCapabilities: 1, Duration: 10,
		TrustDissemPeriod: 1, TaskPeriod: 1, SequentialFailsThreshold: 1,
	}
	regimes := map[string]sweep.BufferSizes{"complete": {MaxCrypto: 1, MaxTrust: 1, MaxReputation: 1, MaxStereotype: 1, MaxChallengeResponse: 1, CuckooMaxCapacity: 1}}
	grid, err := sweep.BuildGrid(reg, fixed, regimes)
	require.NoError(t, err)
	require.Len(t, grid.Cells, len(statuses))

	m := sweep.Manifest{SweepID: "s"}
	for i, c := range grid.Cells {
		m.Results = append(m.Results, sweep.RunResult{Config: c, Status: statuses[i]})
	}
	return m
}

func TestAggregateArgs(t *testing.T) {
	m := manifestWith(t, []sweep.Status{
		sweep.StatusSuccess, sweep.StatusFailed, sweep.StatusSkipped, sweep.StatusLaunchFailed,
	})

	runner := &simproc.MockRunner{Output: []byte("analysis complete\n")}
	var out bytes.Buffer
	inv := NewInvoker("python3", "analyse.py", "results", runner)
	inv.Output = &out

	require.NoError(t, inv.Aggregate(context.Background(), m))

	call := runner.LastCall()
	require.NotNil(t, call)
	assert.Equal(t, "python3", call.Name)
	// Failed pairs are excluded; identifiers are sorted and passed as
	// metrics directories under the results root.
	assert.Equal(t, []string{
		"analyse.py",
		filepath.Join("results", "AlwaysBadBehaviour", "LRU"),
		filepath.Join("results", "AlwaysGoodBehaviour", "LRU"),
	}, call.Args)
	assert.Contains(t, out.String(), "analysis complete")
}

func TestAggregateArgsResolveOnDisk(t *testing.T) {
	m := manifestWith(t, []sweep.Status{
		sweep.StatusSuccess, sweep.StatusSuccess, sweep.StatusSuccess, sweep.StatusSuccess,
	})

	root := t.TempDir()
	for _, id := range m.Identifiers() {
		require.NoError(t, os.MkdirAll(filepath.Join(root, filepath.FromSlash(id)), 0o755))
	}

	runner := &simproc.MockRunner{}
	inv := NewInvoker("python3", "analyse.py", root, runner)
	inv.Output = &bytes.Buffer{}

	require.NoError(t, inv.Aggregate(context.Background(), m))

	call := runner.LastCall()
	require.NotNil(t, call)
	// The analyser lists each positional, so every one must be a real
	// directory regardless of the harness working directory.
	for _, dir := range call.Args[1:] {
		info, err := os.Stat(dir)
		require.NoError(t, err, "positional %q must exist", dir)
		assert.True(t, info.IsDir())
	}
}

func TestAggregateNoUsableArtifacts(t *testing.T) {
	m := manifestWith(t, []sweep.Status{
		sweep.StatusFailed, sweep.StatusFailed, sweep.StatusLaunchFailed, sweep.StatusFailed,
	})

	runner := &simproc.MockRunner{}
	inv := NewInvoker("python3", "analyse.py", "results", runner)

	require.NoError(t, inv.Aggregate(context.Background(), m))
	assert.Empty(t, runner.Calls(), "analyser must not run without artifacts")
}

func TestAggregateNonZeroExit(t *testing.T) {
	m := manifestWith(t, []sweep.Status{
		sweep.StatusSuccess, sweep.StatusSuccess, sweep.StatusSuccess, sweep.StatusSuccess,
	})

	runner := &simproc.MockRunner{ExitCode: 1}
	inv := NewInvoker("python3", "analyse.py", "results", runner)

	err := inv.Aggregate(context.Background(), m)
	var aggErr *AggregationError
	require.ErrorAs(t, err, &aggErr)
	assert.Equal(t, 1, aggErr.ExitCode)
}

func TestAggregateLaunchFailure(t *testing.T) {
	m := manifestWith(t, []sweep.Status{
		sweep.StatusSuccess, sweep.StatusSuccess, sweep.StatusSuccess, sweep.StatusSuccess,
	})

	runner := &simproc.MockRunner{Err: errors.New("not found")}
	inv := NewInvoker("python3", "analyse.py", "results", runner)

	err := inv.Aggregate(context.Background(), m)
	var aggErr *AggregationError
	require.ErrorAs(t, err, &aggErr)
	assert.NotNil(t, aggErr.Unwrap())
}
