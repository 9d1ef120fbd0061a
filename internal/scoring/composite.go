package scoring

import "github.com/timvw/plan-judge/internal/model"

// Composite aggregates criterion results into a plan's composite score.
//
// Unscored criteria are excluded from both numerator and denominator and
// mark the composite partial. The total is nil only when nothing scored.
// When every scored criterion carries zero weight, the total falls back to
// the unweighted mean of the scored values.
func Composite(planID string, results []model.CriterionResult) model.CompositeScore {
	c := model.CompositeScore{
		PlanID:   planID,
		Criteria: make(map[string]model.CriterionResult, len(results)),
	}

	var weighted, weightSum, plainSum float64
	scored := 0
	for _, r := range results {
		c.Criteria[r.Criterion] = r
		if !r.Scored() {
			c.Partial = true
			continue
		}
		weighted += r.Weight * r.Score.Value
		weightSum += r.Weight
		plainSum += r.Score.Value
		scored++
	}

	if scored == 0 {
		return c
	}

	var total float64
	if weightSum > 0 {
		total = weighted / weightSum
	} else {
		total = plainSum / float64(scored)
	}
	// Guard against floating-point drift past the scale bounds.
	total = min(max(total, model.MinScore), model.MaxScore)
	c.Total = &total
	return c
}
