package sweep

import (
	"fmt"
	"strconv"

	"github.com/iot-trust/simsweep/internal/fsutil"
)

// BufferSizes is one named bundle of the bounded-buffer caps a simulation
// run is given. A regime label maps to one of these.
type BufferSizes struct {
	MaxCrypto            int `json:"max_crypto"`
	MaxTrust             int `json:"max_trust"`
	MaxReputation        int `json:"max_reputation"`
	MaxStereotype        int `json:"max_stereotype"`
	MaxChallengeResponse int `json:"max_challenge_response"`
	CuckooMaxCapacity    int `json:"cuckoo_max_capacity"`
}

// FixedParams is the scalar parameter block shared by every cell of a grid.
type FixedParams struct {
	GoodAgents int `json:"good_agents"`
	BadAgents  int `json:"bad_agents"`

	NumCapabilities int     `json:"num_capabilities"`
	Duration        float64 `json:"duration"`
	MaxStartDelay   float64 `json:"max_start_delay"`

	TrustDissemPeriod       float64 `json:"trust_dissem_period"`
	TaskPeriod              float64 `json:"task_period"`
	ChallengeResponsePeriod float64 `json:"challenge_response_period"`
	ChallengeExecutionTime  float64 `json:"challenge_execution_time"`

	SequentialFailsThreshold int `json:"sequential_fails_threshold"`

	LogLevel int `json:"log_level"`
}

// Validate checks the fixed parameter block, returning a ConfigurationError
// describing the first offending field.
func (p FixedParams) Validate() error {
	if p.GoodAgents < 0 {
		return &ConfigurationError{Field: "good-agents", Reason: "must not be negative"}
	}
	if p.BadAgents < 0 {
		return &ConfigurationError{Field: "bad-agents", Reason: "must not be negative"}
	}
	if p.GoodAgents+p.BadAgents == 0 {
		return &ConfigurationError{Field: "agents", Reason: "at least one agent required"}
	}
	if p.NumCapabilities <= 0 {
		return &ConfigurationError{Field: "num-capabilities", Reason: "must be positive"}
	}
	if p.Duration <= 0 {
		return &ConfigurationError{Field: "duration", Reason: "must be positive"}
	}
	if p.MaxStartDelay < 0 {
		return &ConfigurationError{Field: "max-start-delay", Reason: "must not be negative"}
	}
	if p.TrustDissemPeriod <= 0 {
		return &ConfigurationError{Field: "trust-dissem-period", Reason: "must be positive"}
	}
	if p.TaskPeriod <= 0 {
		return &ConfigurationError{Field: "task-period", Reason: "must be positive"}
	}
	if p.ChallengeResponsePeriod < 0 {
		return &ConfigurationError{Field: "challenge-response-period", Reason: "must not be negative"}
	}
	if p.ChallengeExecutionTime < 0 {
		return &ConfigurationError{Field: "challenge-execution-time", Reason: "must not be negative"}
	}
	if p.SequentialFailsThreshold < 1 {
		return &ConfigurationError{Field: "sequential-fails-threshold", Reason: "must be at least 1"}
	}
	if p.LogLevel != 0 && p.LogLevel != 1 {
		return &ConfigurationError{Field: "log-level", Reason: "must be 0 or 1"}
	}
	return nil
}

// Validate checks a buffer bundle for negative caps.
func (b BufferSizes) Validate() error {
	checks := []struct {
		name string
		v    int
	}{
		{"max-crypto-buf", b.MaxCrypto},
		{"max-trust-buf", b.MaxTrust},
		{"max-reputation-buf", b.MaxReputation},
		{"max-stereotype-buf", b.MaxStereotype},
		{"max-cr-buf", b.MaxChallengeResponse},
		{"cuckoo-max-capacity", b.CuckooMaxCapacity},
	}
	for _, c := range checks {
		if c.v < 0 {
			return &ConfigurationError{Field: c.name, Reason: "must not be negative"}
		}
	}
	return nil
}

// DefaultRegimes derives the standard regime bundles for a roster of the
// given size. "complete" is sized so no eviction occurs; "large", "medium"
// and "small" shrink the caps to 80%, 50% and 25% of complete (minimum 1)
// to exercise increasing eviction pressure.
func DefaultRegimes(agents, capabilities int) map[string]BufferSizes {
	complete := BufferSizes{
		MaxCrypto:            agents,
		MaxTrust:             agents * capabilities,
		MaxReputation:        agents,
		MaxStereotype:        agents * capabilities,
		MaxChallengeResponse: agents,
		CuckooMaxCapacity:    2 * agents,
	}
	return map[string]BufferSizes{
		"complete": complete,
		"large":    scaleBuffers(complete, 80),
		"medium":   scaleBuffers(complete, 50),
		"small":    scaleBuffers(complete, 25),
	}
}

func scaleBuffers(b BufferSizes, percent int) BufferSizes {
	s := func(v int) int {
		scaled := v * percent / 100
		if scaled < 1 {
			return 1
		}
		return scaled
	}
	return BufferSizes{
		MaxCrypto:            s(b.MaxCrypto),
		MaxTrust:             s(b.MaxTrust),
		MaxReputation:        s(b.MaxReputation),
		MaxStereotype:        s(b.MaxStereotype),
		MaxChallengeResponse: s(b.MaxChallengeResponse),
		CuckooMaxCapacity:    s(b.CuckooMaxCapacity),
	}
}

// Configuration is one fully bound experiment parameter set: a value for
// every declared dimension plus the fixed scalar block and the resolved
// buffer bundle. Configurations are immutable once the grid is built.
type Configuration struct {
	dims    []string
	vals    map[string]string
	fixed   FixedParams
	buffers BufferSizes
	dir     string
	filePfx string
}

// Value returns the bound value for a dimension, or "" if the dimension is
// not part of this configuration.
func (c Configuration) Value(name string) string {
	return c.vals[name]
}

// Dimensions returns the dimension names in declaration order.
func (c Configuration) Dimensions() []string {
	out := make([]string, len(c.dims))
	copy(out, c.dims)
	return out
}

// Fixed returns the shared scalar parameter block.
func (c Configuration) Fixed() FixedParams { return c.fixed }

// Buffers returns the buffer caps resolved from the regime binding.
func (c Configuration) Buffers() BufferSizes { return c.buffers }

// Seed returns the parsed seed binding. ok is false if no seed dimension
// was declared.
func (c Configuration) Seed() (int64, bool) {
	s, present := c.vals[DimSeed]
	if !present {
		return 0, false
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// Grid build rejects unparsable seeds, so this is unreachable
		// for configurations drawn from a grid.
		return 0, false
	}
	return v, true
}

// ArtifactDir returns the directory part of the artifact prefix,
// e.g. "AlwaysGoodBehaviour/LRU".
func (c Configuration) ArtifactDir() string { return c.dir }

// FilePrefix returns the filename part of the artifact prefix,
// e.g. "CR-Good-medium-7-". Empty when only behaviour and eviction
// strategy are swept.
func (c Configuration) FilePrefix() string { return c.filePfx }

// ArtifactPrefix returns the full collision-free prefix identifying this
// configuration's outputs, relative to the results root.
func (c Configuration) ArtifactPrefix() string {
	if c.dir == "" {
		return c.filePfx
	}
	return c.dir + "/" + c.filePfx
}

// String renders the dimension bindings for log lines.
func (c Configuration) String() string {
	out := ""
	for i, d := range c.dims {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("%s=%s", d, c.vals[d])
	}
	return out
}

// Grid is the frozen, ordered set of configurations for one sweep.
type Grid struct {
	Cells    []Configuration
	Fixed    FixedParams
	Registry *Registry
}

// BuildGrid produces the Cartesian product of all dimension value sets in
// the registry's declared order, combined with the fixed parameter block.
// The first declared dimension is the outermost loop. Given identical
// inputs the output sequence is identical, cell for cell.
//
// regimes maps each value of the regime dimension to its buffer bundle; if
// no regime dimension is declared, regimes must contain exactly one entry,
// which every cell uses.
func BuildGrid(reg *Registry, fixed FixedParams, regimes map[string]BufferSizes) (*Grid, error) {
	if err := fixed.Validate(); err != nil {
		return nil, err
	}

	dims := reg.All()
	if len(dims) == 0 {
		return nil, &ConfigurationError{Field: "dimensions", Reason: "no dimensions declared"}
	}

	for _, d := range dims {
		for _, v := range d.Values {
			if !fsutil.SanitizePathSegment(v) {
				return nil, &ConfigurationError{
					Field:  d.Name,
					Reason: fmt.Sprintf("value %q is not a safe path segment", v),
				}
			}
			if !ValidLabel(d.Name, v) {
				return nil, &ConfigurationError{
					Field:  d.Name,
					Reason: fmt.Sprintf("unknown label %q", v),
				}
			}
			if d.Name == DimSeed {
				if _, err := strconv.ParseInt(v, 10, 64); err != nil {
					return nil, &ConfigurationError{
						Field:  DimSeed,
						Reason: fmt.Sprintf("value %q is not an integer", v),
					}
				}
			}
		}
	}

	var defaultBuffers BufferSizes
	if !reg.Has(DimRegime) {
		if len(regimes) != 1 {
			return nil, &ConfigurationError{
				Field:  DimRegime,
				Reason: "no regime dimension declared and no single default buffer bundle supplied",
			}
		}
		for _, b := range regimes {
			defaultBuffers = b
		}
		if err := defaultBuffers.Validate(); err != nil {
			return nil, err
		}
	} else {
		for _, d := range dims {
			if d.Name != DimRegime {
				continue
			}
			for _, label := range d.Values {
				b, ok := regimes[label]
				if !ok {
					return nil, &ConfigurationError{
						Field:  DimRegime,
						Reason: fmt.Sprintf("no buffer bundle for regime %q", label),
					}
				}
				if err := b.Validate(); err != nil {
					return nil, err
				}
			}
		}
	}

	total := reg.Cardinality()
	cells := make([]Configuration, total)
	names := make([]string, len(dims))
	for i, d := range dims {
		names[i] = d.Name
	}

	// Odometer indexing: the last declared dimension cycles fastest, so
	// the first declared dimension forms the outer loop.
	repeat := 1
	bindings := make([]map[string]string, total)
	for i := range bindings {
		bindings[i] = make(map[string]string, len(dims))
	}
	for di := len(dims) - 1; di >= 0; di-- {
		vals := dims[di].Values
		cycle := len(vals)
		for i := 0; i < total; i++ {
			bindings[i][dims[di].Name] = vals[(i/repeat)%cycle]
		}
		repeat *= cycle
	}

	seen := make(map[string]int, total)
	for i := range cells {
		buffers := defaultBuffers
		if reg.Has(DimRegime) {
			buffers = regimes[bindings[i][DimRegime]]
		}

		dir, filePfx := Name(names, bindings[i])
		cells[i] = Configuration{
			dims:    names,
			vals:    bindings[i],
			fixed:   fixed,
			buffers: buffers,
			dir:     dir,
			filePfx: filePfx,
		}

		prefix := cells[i].ArtifactPrefix()
		if prior, dup := seen[prefix]; dup {
			return nil, &PrefixCollisionError{Prefix: prefix, First: prior, Second: i}
		}
		seen[prefix] = i
	}

	return &Grid{Cells: cells, Fixed: fixed, Registry: reg}, nil
}
