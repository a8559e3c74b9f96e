package sweep

import (
	"reflect"
	"testing"
)

func TestParseSeedRangeSpec(t *testing.T) {
	testCases := []struct {
		name      string
		input     string
		expected  SeedRangeSpec
		expectErr bool
	}{
		{"valid_range", "1:10:2", SeedRangeSpec{Min: 1, Max: 10, Step: 2}, false},
		{"with_spaces", " 1 : 10 : 2 ", SeedRangeSpec{Min: 1, Max: 10, Step: 2}, false},
		{"negative_values", "-10:10:5", SeedRangeSpec{Min: -10, Max: 10, Step: 5}, false},
		{"single_step", "0:100:1", SeedRangeSpec{Min: 0, Max: 100, Step: 1}, false},
		{"missing_parts", "1:10", SeedRangeSpec{}, true},
		{"too_many_parts", "1:10:2:5", SeedRangeSpec{}, true},
		{"float_value", "1.5:10:2", SeedRangeSpec{}, true},
		{"invalid_min", "abc:10:2", SeedRangeSpec{}, true},
		{"invalid_max", "1:abc:2", SeedRangeSpec{}, true},
		{"invalid_step", "1:10:abc", SeedRangeSpec{}, true},
		{"zero_step", "1:10:0", SeedRangeSpec{}, true},
		{"negative_step", "1:10:-2", SeedRangeSpec{}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := ParseSeedRangeSpec(tc.input)
			if tc.expectErr {
				if err == nil {
					t.Errorf("Expected error for input %q, got nil", tc.input)
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
				return
			}
			if result != tc.expected {
				t.Errorf("Expected %+v, got %+v", tc.expected, result)
			}
		})
	}
}

func TestGenerateSeedRange(t *testing.T) {
	testCases := []struct {
		name     string
		min, max int64
		step     int64
		expected []int64
	}{
		{"basic", 1, 5, 1, []int64{1, 2, 3, 4, 5}},
		{"step_two", 0, 10, 2, []int64{0, 2, 4, 6, 8, 10}},
		{"inclusive_max", 1, 7, 3, []int64{1, 4, 7}},
		{"max_not_hit", 1, 8, 3, []int64{1, 4, 7}},
		{"single_value", 5, 5, 1, []int64{5}},
		{"min_above_max", 10, 1, 1, nil},
		{"zero_step", 1, 10, 0, nil},
		{"negative_step", 1, 10, -1, nil},
		{"exploding_range", 0, 1 << 40, 1, nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := GenerateSeedRange(tc.min, tc.max, tc.step)
			if !reflect.DeepEqual(result, tc.expected) {
				t.Errorf("Expected %v, got %v", tc.expected, result)
			}
		})
	}
}

func TestParseSeedSpec(t *testing.T) {
	testCases := []struct {
		name      string
		input     string
		expected  []int64
		expectErr bool
	}{
		{"csv", "1,2,3", []int64{1, 2, 3}, false},
		{"csv_with_spaces", " 1 , 2 , 3 ", []int64{1, 2, 3}, false},
		{"single_value", "42", []int64{42}, false},
		{"range", "1:5:2", []int64{1, 3, 5}, false},
		{"empty", "", nil, false},
		{"bad_csv", "1,two,3", nil, true},
		{"bad_range", "1:5", nil, true},
		{"empty_range", "10:1:1", nil, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := ParseSeedSpec(tc.input)
			if tc.expectErr {
				if err == nil {
					t.Errorf("Expected error for input %q, got nil", tc.input)
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
				return
			}
			if !reflect.DeepEqual(result, tc.expected) {
				t.Errorf("Expected %v, got %v", tc.expected, result)
			}
		})
	}
}

func TestSeedValues(t *testing.T) {
	got := SeedValues([]int64{7, -1, 0})
	want := []string{"7", "-1", "0"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}
