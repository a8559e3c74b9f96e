package sweep

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func testFixedParams() FixedParams {
	return FixedParams{
		GoodAgents:               8,
		BadAgents:                2,
		NumCapabilities:          2,
		Duration:                 300,
		MaxStartDelay:            1,
		TrustDissemPeriod:        5,
		TaskPeriod:               2,
		ChallengeResponsePeriod:  10,
		ChallengeExecutionTime:   1,
		SequentialFailsThreshold: 3,
	}
}

func singleRegime() map[string]BufferSizes {
	return map[string]BufferSizes{
		"complete": DefaultRegimes(10, 2)["complete"],
	}
}

func TestBuildGridOrder(t *testing.T) {
	reg := NewRegistry()
	reg.Declare(DimBehaviour, "AlwaysGoodBehaviour", "AlwaysBadBehaviour")
	reg.Declare(DimEviction, "LRU", "FIFO")

	grid, err := BuildGrid(reg, testFixedParams(), singleRegime())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// First declared dimension is the outermost loop.
	want := []string{
		"AlwaysGoodBehaviour/LRU/",
		"AlwaysGoodBehaviour/FIFO/",
		"AlwaysBadBehaviour/LRU/",
		"AlwaysBadBehaviour/FIFO/",
	}
	got := make([]string, len(grid.Cells))
	for i, c := range grid.Cells {
		got[i] = c.ArtifactPrefix()
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Grid order mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildGridCardinality(t *testing.T) {
	reg := NewRegistry()
	reg.Declare(DimBehaviour, Behaviours()...)
	reg.Declare(DimEviction, EvictionStrategies()...)
	reg.Declare(DimAgentChoose, "BRS", "CR")
	reg.Declare(DimSeed, "1", "2", "3")

	grid, err := BuildGrid(reg, testFixedParams(), singleRegime())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if want := 5 * 5 * 2 * 3; len(grid.Cells) != want {
		t.Errorf("Expected %d cells, got %d", want, len(grid.Cells))
	}
}

func TestBuildGridDeterministic(t *testing.T) {
	build := func() []string {
		reg := NewRegistry()
		reg.Declare(DimBehaviour, "GoodBehaviour", "UnstableBehaviour")
		reg.Declare(DimEviction, "Random", "Chen2016")
		reg.Declare(DimSeed, "7", "8", "9")
		grid, err := BuildGrid(reg, testFixedParams(), singleRegime())
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		out := make([]string, len(grid.Cells))
		for i, c := range grid.Cells {
			out[i] = c.ArtifactPrefix() + "|" + c.String()
		}
		return out
	}

	if diff := cmp.Diff(build(), build()); diff != "" {
		t.Errorf("Repeated builds differ:\n%s", diff)
	}
}

func TestBuildGridFilePrefix(t *testing.T) {
	reg := NewRegistry()
	reg.Declare(DimBehaviour, "AlwaysGoodBehaviour")
	reg.Declare(DimEviction, "LRU")
	reg.Declare(DimAgentChoose, "CR")
	reg.Declare(DimUtilityTargets, "Good")
	reg.Declare(DimRegime, "medium")
	reg.Declare(DimSeed, "7")

	regimes := DefaultRegimes(10, 2)
	grid, err := BuildGrid(reg, testFixedParams(), regimes)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(grid.Cells) != 1 {
		t.Fatalf("Expected 1 cell, got %d", len(grid.Cells))
	}

	c := grid.Cells[0]
	if got := c.ArtifactDir(); got != "AlwaysGoodBehaviour/LRU" {
		t.Errorf("ArtifactDir: got %q", got)
	}
	if got := c.FilePrefix(); got != "CR-Good-medium-7-" {
		t.Errorf("FilePrefix: got %q", got)
	}
	if got := c.ArtifactPrefix(); got != "AlwaysGoodBehaviour/LRU/CR-Good-medium-7-" {
		t.Errorf("ArtifactPrefix: got %q", got)
	}

	seed, ok := c.Seed()
	if !ok || seed != 7 {
		t.Errorf("Seed: got (%d, %t), want (7, true)", seed, ok)
	}
	if got := c.Buffers(); got != regimes["medium"] {
		t.Errorf("Buffers: got %+v, want medium regime %+v", got, regimes["medium"])
	}
}

func TestBuildGridRegimeResolution(t *testing.T) {
	reg := NewRegistry()
	reg.Declare(DimBehaviour, "AlwaysGoodBehaviour")
	reg.Declare(DimEviction, "LRU")
	reg.Declare(DimRegime, "complete", "small")

	regimes := DefaultRegimes(10, 2)
	grid, err := BuildGrid(reg, testFixedParams(), regimes)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	for _, c := range grid.Cells {
		want := regimes[c.Value(DimRegime)]
		if c.Buffers() != want {
			t.Errorf("Cell %s: buffers %+v, want %+v", c.String(), c.Buffers(), want)
		}
	}
}

func TestBuildGridErrors(t *testing.T) {
	testCases := []struct {
		name    string
		declare func(r *Registry)
		fixed   FixedParams
		regimes map[string]BufferSizes
		field   string
	}{
		{
			name:    "no_dimensions",
			declare: func(r *Registry) {},
			fixed:   testFixedParams(),
			regimes: singleRegime(),
			field:   "dimensions",
		},
		{
			name: "unknown_behaviour_label",
			declare: func(r *Registry) {
				r.Declare(DimBehaviour, "NotABehaviour")
				r.Declare(DimEviction, "LRU")
			},
			fixed:   testFixedParams(),
			regimes: singleRegime(),
			field:   DimBehaviour,
		},
		{
			name: "unsafe_path_segment",
			declare: func(r *Registry) {
				r.Declare(DimBehaviour, "AlwaysGoodBehaviour")
				r.Declare(DimEviction, "LRU")
				r.Declare(DimSeed, "../7")
			},
			fixed:   testFixedParams(),
			regimes: singleRegime(),
			field:   DimSeed,
		},
		{
			name: "non_integer_seed",
			declare: func(r *Registry) {
				r.Declare(DimBehaviour, "AlwaysGoodBehaviour")
				r.Declare(DimEviction, "LRU")
				r.Declare(DimSeed, "seven")
			},
			fixed:   testFixedParams(),
			regimes: singleRegime(),
			field:   DimSeed,
		},
		{
			name: "missing_regime_bundle",
			declare: func(r *Registry) {
				r.Declare(DimBehaviour, "AlwaysGoodBehaviour")
				r.Declare(DimEviction, "LRU")
				r.Declare(DimRegime, "tiny")
			},
			fixed:   testFixedParams(),
			regimes: DefaultRegimes(10, 2),
			field:   DimRegime,
		},
		{
			name: "ambiguous_default_regime",
			declare: func(r *Registry) {
				r.Declare(DimBehaviour, "AlwaysGoodBehaviour")
				r.Declare(DimEviction, "LRU")
			},
			fixed:   testFixedParams(),
			regimes: DefaultRegimes(10, 2),
			field:   DimRegime,
		},
		{
			name: "zero_agents",
			declare: func(r *Registry) {
				r.Declare(DimBehaviour, "AlwaysGoodBehaviour")
				r.Declare(DimEviction, "LRU")
			},
			fixed: func() FixedParams {
				p := testFixedParams()
				p.GoodAgents, p.BadAgents = 0, 0
				return p
			}(),
			regimes: singleRegime(),
			field:   "agents",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			reg := NewRegistry()
			tc.declare(reg)
			_, err := BuildGrid(reg, tc.fixed, tc.regimes)
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Expected ConfigurationError, got %v", err)
			}
			if cfgErr.Field != tc.field {
				t.Errorf("Expected field %q, got %q", tc.field, cfgErr.Field)
			}
		})
	}
}

func TestBuildGridPrefixCollision(t *testing.T) {
	// Dash-joined tails can collide when labels themselves contain the
	// separator: ("a-b", "c") and ("a", "b-c") both name "a-b-c-".
	reg := NewRegistry()
	reg.Declare(DimBehaviour, "AlwaysGoodBehaviour")
	reg.Declare(DimEviction, "LRU")
	reg.Declare("alpha", "a-b", "a")
	reg.Declare("beta", "c", "b-c")

	_, err := BuildGrid(reg, testFixedParams(), singleRegime())
	var coll *PrefixCollisionError
	if !errors.As(err, &coll) {
		t.Fatalf("Expected PrefixCollisionError, got %v", err)
	}
	if coll.Prefix != "AlwaysGoodBehaviour/LRU/a-b-c-" {
		t.Errorf("Unexpected colliding prefix %q", coll.Prefix)
	}
}

func TestDefaultRegimes(t *testing.T) {
	regimes := DefaultRegimes(10, 3)

	complete := regimes["complete"]
	if complete.MaxCrypto != 10 || complete.MaxTrust != 30 || complete.CuckooMaxCapacity != 20 {
		t.Errorf("Unexpected complete regime: %+v", complete)
	}

	small := regimes["small"]
	if small.MaxCrypto != 2 || small.MaxTrust != 7 {
		t.Errorf("Unexpected small regime: %+v", small)
	}

	// Scaling never produces a zero cap.
	tiny := DefaultRegimes(1, 1)["small"]
	if tiny.MaxCrypto < 1 || tiny.MaxTrust < 1 {
		t.Errorf("Expected minimum cap of 1, got %+v", tiny)
	}
}
