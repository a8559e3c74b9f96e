package sweep

import (
	"fmt"
	"strconv"
	"strings"
)

// SeedRangeSpec defines an integer seed range for sweeping.
type SeedRangeSpec struct {
	Min  int64
	Max  int64
	Step int64
}

// ParseSeedRangeSpec parses a "min:max:step" string into a SeedRangeSpec.
// Returns an error if the format is invalid or values cannot be parsed.
func ParseSeedRangeSpec(s string) (SeedRangeSpec, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return SeedRangeSpec{}, fmt.Errorf("invalid range format %q: expected min:max:step", s)
	}

	min, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return SeedRangeSpec{}, fmt.Errorf("invalid min value %q: %w", parts[0], err)
	}

	max, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return SeedRangeSpec{}, fmt.Errorf("invalid max value %q: %w", parts[1], err)
	}

	step, err := strconv.ParseInt(strings.TrimSpace(parts[2]), 10, 64)
	if err != nil {
		return SeedRangeSpec{}, fmt.Errorf("invalid step value %q: %w", parts[2], err)
	}

	if step <= 0 {
		return SeedRangeSpec{}, fmt.Errorf("step must be positive, got %d", step)
	}

	return SeedRangeSpec{Min: min, Max: max, Step: step}, nil
}

// GenerateSeedRange generates seeds from min to max (inclusive) stepping by
// step. Returns nil if min > max. The number of generated values is capped
// to keep a mistyped range from exploding the grid.
func GenerateSeedRange(min, max, step int64) []int64 {
	if step <= 0 || min > max {
		return nil
	}

	const maxValues = 10000
	expected := (max-min)/step + 1
	if expected > maxValues || expected < 0 {
		return nil
	}

	var result []int64
	for v := min; v <= max; v += step {
		result = append(result, v)
	}
	return result
}

// ParseSeedSpec parses a seed list specification. If the string contains a
// colon it is treated as a "min:max:step" range; otherwise it is parsed as
// comma-separated values.
func ParseSeedSpec(s string) ([]int64, error) {
	if s == "" {
		return nil, nil
	}

	if strings.Contains(s, ":") {
		spec, err := ParseSeedRangeSpec(s)
		if err != nil {
			return nil, err
		}
		seeds := GenerateSeedRange(spec.Min, spec.Max, spec.Step)
		if len(seeds) == 0 {
			return nil, fmt.Errorf("seed range %q generates no values", s)
		}
		return seeds, nil
	}

	return ParseCSVInt64s(s)
}

// SeedValues renders seeds as dimension value strings.
func SeedValues(seeds []int64) []string {
	out := make([]string, len(seeds))
	for i, s := range seeds {
		out[i] = strconv.FormatInt(s, 10)
	}
	return out
}
