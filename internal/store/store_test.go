package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iot-trust/simsweep/internal/sweep"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "sweeps.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.MigrateUp(filepath.Join("..", "..", "db", "migrations")))
	return s
}

func testGrid(t *testing.T) *sweep.Grid {
	t.Helper()
	reg := sweep.NewRegistry()
	require.NoError(t, reg.Declare(sweep.DimBehaviour, "AlwaysGoodBehaviour", "AlwaysBadBehaviour"))
	require.NoError(t, reg.Declare(sweep.DimEviction, "LRU"))

	fixed := sweep.FixedParams{
		GoodAgents: 5, BadAgents: 5, NumCapabilities: 1, Duration: 10,
		TrustDissemPeriod: 1, TaskPeriod: 1, SequentialFailsThreshold: 1,
	}
	regimes := map[string]sweep.BufferSizes{"complete": {MaxCrypto: 1, MaxTrust: 1, MaxReputation: 1, MaxStereotype: 1, MaxChallengeResponse: 1, CuckooMaxCapacity: 1}}

	grid, err := sweep.BuildGrid(reg, fixed, regimes)
	require.NoError(t, err)
	return grid
}

func TestStoreSweepLifecycle(t *testing.T) {
	s := openTestStore(t)
	grid := testGrid(t)

	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.CreateSweep("sweep-1", "results", grid, started))

	rec, err := s.GetSweep("sweep-1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "running", rec.Status)
	assert.Equal(t, "results", rec.ResultsRoot)
	assert.Equal(t, started, rec.StartedAt)
	assert.Nil(t, rec.CompletedAt)
	assert.Contains(t, string(rec.Dimensions), "AlwaysGoodBehaviour")

	m := sweep.Manifest{
		SweepID:     "sweep-1",
		StartedAt:   started,
		CompletedAt: started.Add(time.Hour),
		Results: []sweep.RunResult{
			{Config: grid.Cells[0], Status: sweep.StatusSuccess, Duration: 90 * time.Second, StartedAt: started, MetricsPath: "m0"},
			{Config: grid.Cells[1], Status: sweep.StatusFailed, ExitCode: 2, Message: "boom", Duration: time.Second, StartedAt: started},
		},
	}
	require.NoError(t, s.FinishSweep(m))

	rec, err = s.GetSweep("sweep-1")
	require.NoError(t, err)
	assert.Equal(t, "complete", rec.Status)
	assert.False(t, rec.Cancelled)
	require.NotNil(t, rec.CompletedAt)
	assert.Equal(t, started.Add(time.Hour), *rec.CompletedAt)

	results, err := s.Results("sweep-1")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "AlwaysGoodBehaviour/LRU/", results[0].ArtifactPrefix)
	assert.Equal(t, "success", results[0].Status)
	assert.Equal(t, 90.0, results[0].DurationSeconds)
	assert.Equal(t, "failed", results[1].Status)
	assert.Equal(t, 2, results[1].ExitCode)
	assert.Equal(t, "boom", results[1].Message)
}

func TestStoreCancelledSweep(t *testing.T) {
	s := openTestStore(t)
	grid := testGrid(t)

	started := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, s.CreateSweep("sweep-2", "results", grid, started))

	m := sweep.Manifest{
		SweepID:     "sweep-2",
		StartedAt:   started,
		CompletedAt: started.Add(time.Minute),
		Cancelled:   true,
		Results: []sweep.RunResult{
			{Config: grid.Cells[0], Status: sweep.StatusSuccess, StartedAt: started},
		},
	}
	require.NoError(t, s.FinishSweep(m))

	rec, err := s.GetSweep("sweep-2")
	require.NoError(t, err)
	assert.Equal(t, "cancelled", rec.Status)
	assert.True(t, rec.Cancelled)

	results, err := s.Results("sweep-2")
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestStoreGetSweepMissing(t *testing.T) {
	s := openTestStore(t)

	rec, err := s.GetSweep("nope")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestStoreListSweeps(t *testing.T) {
	s := openTestStore(t)
	grid := testGrid(t)

	started := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, s.CreateSweep("a", "results", grid, started))
	require.NoError(t, s.CreateSweep("b", "results", grid, started.Add(time.Minute)))

	recs, err := s.ListSweeps(0)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	// Newest first.
	assert.Equal(t, "b", recs[0].SweepID)
	assert.Equal(t, "a", recs[1].SweepID)

	recs, err = s.ListSweeps(1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "b", recs[0].SweepID)
}

func TestStoreDuplicateSweepID(t *testing.T) {
	s := openTestStore(t)
	grid := testGrid(t)

	started := time.Now().UTC()
	require.NoError(t, s.CreateSweep("dup", "results", grid, started))
	assert.Error(t, s.CreateSweep("dup", "results", grid, started))
}

func TestMigrateVersion(t *testing.T) {
	s := openTestStore(t)

	version, dirty, err := s.MigrateVersion(filepath.Join("..", "..", "db", "migrations"))
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(1), version)
}

func TestRetryOnBusy(t *testing.T) {
	t.Run("success after retry", func(t *testing.T) {
		calls := 0
		err := retryOnBusy(func() error {
			calls++
			if calls < 3 {
				return errors.New("database is locked (5) (SQLITE_BUSY)")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("non-busy error fails immediately", func(t *testing.T) {
		calls := 0
		testErr := errors.New("some other error")
		err := retryOnBusy(func() error {
			calls++
			return testErr
		})
		assert.Equal(t, testErr, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("max retries exceeded", func(t *testing.T) {
		calls := 0
		err := retryOnBusy(func() error {
			calls++
			return errors.New("database is locked")
		})
		assert.Error(t, err)
		assert.Equal(t, 5, calls)
	})
}
