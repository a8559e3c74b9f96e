package sweep

import (
	"sort"
	"time"
)

// Status classifies the outcome of one grid cell.
type Status string

const (
	// StatusSuccess means the simulation exited zero and wrote its
	// metrics artifact.
	StatusSuccess Status = "success"

	// StatusFailed means the simulation started but exited non-zero.
	StatusFailed Status = "failed"

	// StatusLaunchFailed means the simulation process could not be
	// started at all.
	StatusLaunchFailed Status = "launch-failed"

	// StatusSkipped means a metrics artifact already existed at the
	// cell's prefix and the existing-artifact policy was PolicySkip.
	StatusSkipped Status = "skipped"
)

// RunResult records the outcome of one grid cell. It is created when the
// run driver returns and never mutated afterwards.
type RunResult struct {
	Config      Configuration
	Status      Status
	ExitCode    int
	Message     string
	LogPath     string
	MetricsPath string
	StartedAt   time.Time
	Duration    time.Duration
}

// ArtifactUsable reports whether a metrics artifact exists at this cell's
// prefix: either the run succeeded, or it was skipped because the artifact
// was already there.
func (r RunResult) ArtifactUsable() bool {
	return r.Status == StatusSuccess || r.Status == StatusSkipped
}

// Manifest is the complete record of run outcomes for one sweep
// invocation. Results appear in grid order; on cancellation only completed
// cells are present.
type Manifest struct {
	SweepID     string
	StartedAt   time.Time
	CompletedAt time.Time
	Cancelled   bool
	Results     []RunResult
}

// Succeeded returns the number of cells that exited zero.
func (m Manifest) Succeeded() int { return m.count(StatusSuccess) }

// Failed returns the number of cells that failed to run or exited non-zero.
func (m Manifest) Failed() int {
	return m.count(StatusFailed) + m.count(StatusLaunchFailed)
}

// Skipped returns the number of cells skipped under PolicySkip.
func (m Manifest) Skipped() int { return m.count(StatusSkipped) }

func (m Manifest) count(s Status) int {
	n := 0
	for _, r := range m.Results {
		if r.Status == s {
			n++
		}
	}
	return n
}

// Identifiers returns the sorted, distinct "<behaviour>/<eviction>"
// identifiers for which a usable metrics artifact exists. Failed cells do
// not contribute: the downstream analysis collaborator can compare this set
// against the full grid to diagnose gaps.
func (m Manifest) Identifiers() []string {
	set := make(map[string]struct{})
	for _, r := range m.Results {
		if !r.ArtifactUsable() {
			continue
		}
		b := r.Config.Value(DimBehaviour)
		e := r.Config.Value(DimEviction)
		if b == "" || e == "" {
			continue
		}
		set[b+"/"+e] = struct{}{}
	}

	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
