package sweep

// Canonical dimension names. The registry accepts arbitrary names, but the
// harness declares these for the standard trust-simulation sweep and the
// argument builder validates their domains.
const (
	DimBehaviour      = "behaviour"
	DimEviction       = "eviction-strategy"
	DimAgentChoose    = "agent-choose"
	DimUtilityTargets = "utility-targets"
	DimRegime         = "regime"
	DimSeed           = "seed"
)

// Behaviours returns the capability behaviour labels the simulator accepts.
func Behaviours() []string {
	return []string{
		"AlwaysGoodBehaviour",
		"AlwaysBadBehaviour",
		"VeryGoodBehaviour",
		"GoodBehaviour",
		"UnstableBehaviour",
	}
}

// EvictionStrategies returns the eviction strategy labels the simulator accepts.
func EvictionStrategies() []string {
	return []string{"Random", "FIFO", "LRU", "MRU", "Chen2016"}
}

// AgentChooseBehaviours returns the agent-choose strategy labels.
func AgentChooseBehaviours() []string {
	return []string{"Random", "BRS", "CR", "Cuckoo"}
}

// UtilityTargets returns the utility target labels.
func UtilityTargets() []string {
	return []string{"Good", "All"}
}

// RegimeLabels returns the buffer-size regime labels, from least to most
// eviction pressure.
func RegimeLabels() []string {
	return []string{"complete", "large", "medium", "small"}
}

// knownDomain returns the admissible values for dimensions whose domains the
// external simulator fixes. Dimensions not listed here (such as seed) have
// open domains.
func knownDomain(dim string) ([]string, bool) {
	switch dim {
	case DimBehaviour:
		return Behaviours(), true
	case DimEviction:
		return EvictionStrategies(), true
	case DimAgentChoose:
		return AgentChooseBehaviours(), true
	case DimUtilityTargets:
		return UtilityTargets(), true
	default:
		return nil, false
	}
}

// ValidLabel reports whether value belongs to the domain of dim. Dimensions
// with open domains accept any value.
func ValidLabel(dim, value string) bool {
	domain, ok := knownDomain(dim)
	if !ok {
		return true
	}
	for _, v := range domain {
		if v == value {
			return true
		}
	}
	return false
}
