package simproc

import (
	"strconv"

	"github.com/iot-trust/simsweep/internal/sweep"
)

// AgentGroup is one roster entry: a number of agents sharing a capability
// behaviour.
type AgentGroup struct {
	Count     int
	Behaviour string
}

// Invocation is the typed argument set for one simulator run. Build one
// from a grid cell with FromConfiguration, or construct it directly for
// one-off runs.
type Invocation struct {
	Roster []AgentGroup

	NumCapabilities int
	Duration        float64
	MaxStartDelay   float64

	TrustDissemPeriod       float64
	TaskPeriod              float64
	ChallengeResponsePeriod float64
	ChallengeExecutionTime  float64

	Buffers sweep.BufferSizes

	SequentialFailsThreshold int

	EvictionStrategy string
	AgentChoose      string
	UtilityTargets   string

	// Seed, when set, pins the simulation RNG for reproducibility.
	Seed *int64

	// PathPrefix is prepended verbatim to every artifact filename the
	// simulator writes.
	PathPrefix string

	LogLevel int
}

// FromConfiguration builds the invocation for one grid cell. The roster
// places the fixed good-agent population on AlwaysGoodBehaviour and binds
// the cell's behaviour value to the remaining agents, so each cell measures
// how the trust model handles that one adversarial population.
func FromConfiguration(cfg sweep.Configuration, pathPrefix string) Invocation {
	fixed := cfg.Fixed()

	inv := Invocation{
		NumCapabilities:          fixed.NumCapabilities,
		Duration:                 fixed.Duration,
		MaxStartDelay:            fixed.MaxStartDelay,
		TrustDissemPeriod:        fixed.TrustDissemPeriod,
		TaskPeriod:               fixed.TaskPeriod,
		ChallengeResponsePeriod:  fixed.ChallengeResponsePeriod,
		ChallengeExecutionTime:   fixed.ChallengeExecutionTime,
		Buffers:                  cfg.Buffers(),
		SequentialFailsThreshold: fixed.SequentialFailsThreshold,
		EvictionStrategy:         cfg.Value(sweep.DimEviction),
		AgentChoose:              cfg.Value(sweep.DimAgentChoose),
		UtilityTargets:           cfg.Value(sweep.DimUtilityTargets),
		PathPrefix:               pathPrefix,
		LogLevel:                 fixed.LogLevel,
	}

	if inv.AgentChoose == "" {
		inv.AgentChoose = "BRS"
	}
	if inv.UtilityTargets == "" {
		inv.UtilityTargets = "Good"
	}

	if fixed.GoodAgents > 0 {
		inv.Roster = append(inv.Roster, AgentGroup{Count: fixed.GoodAgents, Behaviour: "AlwaysGoodBehaviour"})
	}
	if fixed.BadAgents > 0 {
		inv.Roster = append(inv.Roster, AgentGroup{Count: fixed.BadAgents, Behaviour: cfg.Value(sweep.DimBehaviour)})
	}

	if seed, ok := cfg.Seed(); ok {
		s := seed
		inv.Seed = &s
	}

	return inv
}

// Validate checks the invocation against the simulator's accepted domains.
func (inv Invocation) Validate() error {
	if len(inv.Roster) == 0 {
		return &sweep.ConfigurationError{Field: "agents", Reason: "empty roster"}
	}
	for _, g := range inv.Roster {
		if g.Count <= 0 {
			return &sweep.ConfigurationError{Field: "agents", Reason: "group count must be positive"}
		}
		if !sweep.ValidLabel(sweep.DimBehaviour, g.Behaviour) {
			return &sweep.ConfigurationError{Field: "agents", Reason: "unknown behaviour " + strconv.Quote(g.Behaviour)}
		}
	}
	if !sweep.ValidLabel(sweep.DimEviction, inv.EvictionStrategy) {
		return &sweep.ConfigurationError{Field: "eviction-strategy", Reason: "unknown strategy " + strconv.Quote(inv.EvictionStrategy)}
	}
	if !sweep.ValidLabel(sweep.DimAgentChoose, inv.AgentChoose) {
		return &sweep.ConfigurationError{Field: "agent-choose", Reason: "unknown strategy " + strconv.Quote(inv.AgentChoose)}
	}
	if !sweep.ValidLabel(sweep.DimUtilityTargets, inv.UtilityTargets) {
		return &sweep.ConfigurationError{Field: "utility-targets", Reason: "unknown target " + strconv.Quote(inv.UtilityTargets)}
	}
	if err := inv.Buffers.Validate(); err != nil {
		return err
	}
	return nil
}

// Argv renders the flat simulator argument list. The layout mirrors the
// simulator's own CLI exactly; changing it breaks every launch.
func (inv Invocation) Argv() []string {
	args := make([]string, 0, 48)

	for _, g := range inv.Roster {
		args = append(args, "--agents", strconv.Itoa(g.Count), g.Behaviour)
	}

	args = append(args,
		"--num-capabilities", strconv.Itoa(inv.NumCapabilities),
		"--duration", formatFloat(inv.Duration),
		"--max-start-delay", formatFloat(inv.MaxStartDelay),
		"--trust-dissem-period", formatFloat(inv.TrustDissemPeriod),
		"--task-period", formatFloat(inv.TaskPeriod),
		"--max-crypto-buf", strconv.Itoa(inv.Buffers.MaxCrypto),
		"--max-trust-buf", strconv.Itoa(inv.Buffers.MaxTrust),
		"--max-reputation-buf", strconv.Itoa(inv.Buffers.MaxReputation),
		"--max-stereotype-buf", strconv.Itoa(inv.Buffers.MaxStereotype),
		"--max-cr-buf", strconv.Itoa(inv.Buffers.MaxChallengeResponse),
		"--cuckoo-max-capacity", strconv.Itoa(inv.Buffers.CuckooMaxCapacity),
		"--sequential-fails-threshold", strconv.Itoa(inv.SequentialFailsThreshold),
		"--challenge-response-period", formatFloat(inv.ChallengeResponsePeriod),
		"--challenge-execution-time", formatFloat(inv.ChallengeExecutionTime),
		"--eviction-strategy", inv.EvictionStrategy,
		"--agent-choose", inv.AgentChoose,
		"--utility-targets", inv.UtilityTargets,
	)

	if inv.Seed != nil {
		args = append(args, "--seed", strconv.FormatInt(*inv.Seed, 10))
	}
	if inv.PathPrefix != "" {
		args = append(args, "--path-prefix", inv.PathPrefix)
	}
	args = append(args, "--log-level", strconv.Itoa(inv.LogLevel))

	return args
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
