// Package config loads sweep harness configuration from JSON files.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/iot-trust/simsweep/internal/sweep"
)

// SweepConfig is the file form of the harness configuration. Every field
// is optional; values present in the file act as defaults that explicit
// command-line flags override. Pointer fields distinguish "absent" from
// zero values.
type SweepConfig struct {
	// External collaborators
	Simulator *string `json:"simulator,omitempty"`
	Analyser  *string `json:"analyser,omitempty"`
	Python    *string `json:"python,omitempty"`

	// Output
	ResultsRoot *string `json:"results_root,omitempty"`
	Database    *string `json:"database,omitempty"`

	// Dimension domains
	Behaviours         []string `json:"behaviours,omitempty"`
	EvictionStrategies []string `json:"eviction_strategies,omitempty"`
	AgentChoose        []string `json:"agent_choose,omitempty"`
	UtilityTargets     []string `json:"utility_targets,omitempty"`
	Regimes            []string `json:"regimes,omitempty"`

	// Seeds is a seed list spec: comma-separated values or "min:max:step".
	Seeds *string `json:"seeds,omitempty"`

	// Roster
	GoodAgents *int `json:"good_agents,omitempty"`
	BadAgents  *int `json:"bad_agents,omitempty"`

	// Fixed scalars
	NumCapabilities          *int     `json:"num_capabilities,omitempty"`
	Duration                 *float64 `json:"duration,omitempty"`
	MaxStartDelay            *float64 `json:"max_start_delay,omitempty"`
	TrustDissemPeriod        *float64 `json:"trust_dissem_period,omitempty"`
	TaskPeriod               *float64 `json:"task_period,omitempty"`
	ChallengeResponsePeriod  *float64 `json:"challenge_response_period,omitempty"`
	ChallengeExecutionTime   *float64 `json:"challenge_execution_time,omitempty"`
	SequentialFailsThreshold *int     `json:"sequential_fails_threshold,omitempty"`
	SimLogLevel              *int     `json:"sim_log_level,omitempty"`

	// RegimeSizes overrides the derived buffer bundles per regime label.
	RegimeSizes map[string]sweep.BufferSizes `json:"regime_sizes,omitempty"`

	// Orchestration
	Existing *string `json:"existing,omitempty"`
	Parallel *int    `json:"parallel,omitempty"`
}

// Load reads a SweepConfig from a JSON file. The file must have a .json
// extension and stay under the size cap; fields omitted from the file
// stay nil so flag defaults apply.
func Load(path string) (*SweepConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &SweepConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the values that can be rejected without building a grid.
func (c *SweepConfig) Validate() error {
	if c.Existing != nil {
		switch sweep.ExistingPolicy(*c.Existing) {
		case sweep.PolicyOverwrite, sweep.PolicySkip, sweep.PolicyFail:
		default:
			return fmt.Errorf("existing must be one of overwrite, skip, fail; got %q", *c.Existing)
		}
	}
	if c.Parallel != nil && *c.Parallel < 1 {
		return fmt.Errorf("parallel must be at least 1, got %d", *c.Parallel)
	}
	if c.Seeds != nil {
		if _, err := sweep.ParseSeedSpec(*c.Seeds); err != nil {
			return fmt.Errorf("seeds: %w", err)
		}
	}
	for label, b := range c.RegimeSizes {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("regime_sizes[%s]: %w", label, err)
		}
	}
	return nil
}
