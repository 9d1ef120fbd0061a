package scoring

import (
	"fmt"
	"math"
	"sort"
)

// WeightTolerance is the allowed distance of a weight sum from 1.0.
const WeightTolerance = 1e-6

// ValidateWeights checks that weights is non-empty, every weight lies in
// [0,1] and the weights sum to 1.0 within WeightTolerance.
func ValidateWeights(weights map[string]float64) error {
	if len(weights) == 0 {
		return &ConfigurationError{Check: "weights", Message: "no criterion weights configured"}
	}

	var sum float64
	for _, name := range SortedNames(weights) {
		w := weights[name]
		if name == "" {
			return &ConfigurationError{Check: "criterion_name", Message: "criterion name is empty"}
		}
		if math.IsNaN(w) || w < 0 || w > 1 {
			return &ConfigurationError{
				Check:   "weight_range",
				Message: fmt.Sprintf("weight of %q is %v, must be within [0,1]", name, w),
			}
		}
		sum += w
	}

	if math.Abs(sum-1.0) > WeightTolerance {
		return &ConfigurationError{
			Check:   "weight_sum",
			Message: fmt.Sprintf("criterion weights sum to %.6g, must sum to 1.0", sum),
		}
	}
	return nil
}

// SortedNames returns the criterion names of weights in ascending order.
func SortedNames(weights map[string]float64) []string {
	names := make([]string, 0, len(weights))
	for name := range weights {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TopCriterion returns the highest-weighted criterion; equal weights resolve
// to the smallest name.
func TopCriterion(weights map[string]float64) string {
	top := ""
	for _, name := range SortedNames(weights) {
		if top == "" || weights[name] > weights[top] {
			top = name
		}
	}
	return top
}
