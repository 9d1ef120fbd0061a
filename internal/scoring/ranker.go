package scoring

import (
	"fmt"
	"math"
	"sort"

	"github.com/timvw/plan-judge/internal/model"
)

// totalEpsilon is the distance under which two composite totals are equal.
const totalEpsilon = 1e-9

// Rank orders composites best first. Totals sort descending with nil totals
// last. Ties resolve by fewer unscored criteria, then the higher score on
// the highest-weighted criterion (unscored counts as below zero), then plan
// ID ascending. The result does not depend on input order.
func Rank(composites []model.CompositeScore) (*model.RankedResult, error) {
	if len(composites) == 0 {
		return nil, &EmptyInputError{What: "composites to rank"}
	}

	seen := make(map[string]bool, len(composites))
	weights := make(map[string]float64)
	for _, c := range composites {
		if seen[c.PlanID] {
			return nil, fmt.Errorf("rank: duplicate plan id %q", c.PlanID)
		}
		seen[c.PlanID] = true
		for name, r := range c.Criteria {
			weights[name] = math.Max(weights[name], r.Weight)
		}
	}
	top := TopCriterion(weights)

	sorted := make([]model.CompositeScore, len(composites))
	copy(sorted, composites)
	sort.SliceStable(sorted, func(i, j int) bool {
		return less(sorted[i], sorted[j], top)
	})

	result := &model.RankedResult{Entries: make([]model.RankedEntry, len(sorted))}
	for i, c := range sorted {
		result.Entries[i] = model.RankedEntry{Rank: i + 1, PlanID: c.PlanID, Composite: c}
	}
	return result, nil
}

// less reports whether a ranks before b.
func less(a, b model.CompositeScore, top string) bool {
	switch {
	case a.Total == nil && b.Total != nil:
		return false
	case a.Total != nil && b.Total == nil:
		return true
	case a.Total != nil && b.Total != nil && math.Abs(*a.Total-*b.Total) > totalEpsilon:
		return *a.Total > *b.Total
	}

	if ua, ub := a.UnscoredCount(), b.UnscoredCount(); ua != ub {
		return ua < ub
	}

	if sa, sb := criterionValue(a, top), criterionValue(b, top); sa != sb {
		return sa > sb
	}

	return a.PlanID < b.PlanID
}

// criterionValue returns the plan's score on name, or -1 when unscored.
func criterionValue(c model.CompositeScore, name string) float64 {
	if r, ok := c.Criteria[name]; ok && r.Scored() {
		return r.Score.Value
	}
	return -1
}
