// Package champion synthesizes one recommended plan from the strongest
// sections of the top-ranked candidates.
//
// Categories come from the criterion catalog, one per criterion. Within a
// category the best sub-score wins; ties go to the higher composite and
// remaining ties are merged with every tied plan listed as a source. The
// treatment of a category is the set of plan actions the evaluator cited
// when scoring that criterion.
package champion

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/timvw/plan-judge/internal/model"
)

const (
	// DefaultTopN is the number of ranked plans considered by default.
	DefaultTopN = 3
	// DefaultGapThreshold is the best sub-score below which a category is
	// reported as a gap.
	DefaultGapThreshold = 5.0

	scoreEpsilon = 1e-9
)

// InsufficientDataError reports that no considered plan scored on any
// category.
type InsufficientDataError struct {
	Reason string
}

func (e *InsufficientDataError) Error() string {
	return "insufficient data for champion synthesis: " + e.Reason
}

// Synthesizer builds a ChampionPlan from a ranking.
type Synthesizer struct {
	// Criteria defines the categories. When empty, categories are derived
	// from the criteria present in the ranked composites.
	Criteria     []model.CriterionSpec
	GapThreshold float64
}

// New returns a synthesizer with the default gap threshold.
func New(criteria []model.CriterionSpec) *Synthesizer {
	return &Synthesizer{Criteria: criteria, GapThreshold: DefaultGapThreshold}
}

// ClampTopN bounds topN to [1, n].
func ClampTopN(topN, n int) int {
	return max(1, min(topN, n))
}

// Synthesize considers the first topN ranked plans and picks the winning
// treatment of every category.
func (s *Synthesizer) Synthesize(ranked model.RankedResult, plans []model.PlanCandidate, topN int) (*model.ChampionPlan, error) {
	if len(ranked.Entries) == 0 {
		return nil, &InsufficientDataError{Reason: "no ranked plans"}
	}

	considered := ranked.Entries[:ClampTopN(topN, len(ranked.Entries))]
	byID := make(map[string]model.PlanCandidate, len(plans))
	for _, p := range plans {
		byID[p.ID] = p
	}

	champion := &model.ChampionPlan{}
	for _, e := range considered {
		champion.Considered = append(champion.Considered, e.PlanID)
	}

	for _, cat := range s.categories(considered) {
		winners, best, ok := pickWinners(considered, cat.Name)
		if !ok {
			champion.Gaps = append(champion.Gaps, model.Gap{
				Category: cat.Name,
				Reason:   "no considered plan was scored on this category",
			})
			continue
		}

		champion.Sections = append(champion.Sections, buildSection(cat, winners, best, byID))
		if best < s.GapThreshold {
			b := best
			champion.Gaps = append(champion.Gaps, model.Gap{
				Category:  cat.Name,
				BestScore: &b,
				Reason:    fmt.Sprintf("best score %.1f is below %.1f", best, s.GapThreshold),
			})
		}
	}

	if len(champion.Sections) == 0 {
		return nil, &InsufficientDataError{
			Reason: fmt.Sprintf("none of the %d considered plans scored on any category", len(considered)),
		}
	}

	for _, sec := range champion.Sections {
		champion.Actions = mergeActions(champion.Actions, sec.Actions)
	}
	return champion, nil
}

// categories orders criteria by weight descending, then name.
func (s *Synthesizer) categories(entries []model.RankedEntry) []model.CriterionSpec {
	cats := append([]model.CriterionSpec(nil), s.Criteria...)
	if len(cats) == 0 {
		seen := make(map[string]float64)
		for _, e := range entries {
			for name, r := range e.Composite.Criteria {
				seen[name] = math.Max(seen[name], r.Weight)
			}
		}
		for name, w := range seen {
			cats = append(cats, model.CriterionSpec{Name: name, Weight: w})
		}
	}
	sort.SliceStable(cats, func(i, j int) bool {
		if cats[i].Weight != cats[j].Weight {
			return cats[i].Weight > cats[j].Weight
		}
		return cats[i].Name < cats[j].Name
	})
	return cats
}

// pickWinners returns the entries holding the best score on category, after
// the composite-total tie-break. Entries keep rank order.
func pickWinners(entries []model.RankedEntry, category string) ([]model.RankedEntry, float64, bool) {
	best := math.Inf(-1)
	var tied []model.RankedEntry
	for _, e := range entries {
		r, ok := e.Composite.Criteria[category]
		if !ok || !r.Scored() {
			continue
		}
		v := r.Score.Value
		switch {
		case v > best+scoreEpsilon:
			best = v
			tied = []model.RankedEntry{e}
		case math.Abs(v-best) <= scoreEpsilon:
			tied = append(tied, e)
		}
	}
	if len(tied) == 0 {
		return nil, 0, false
	}
	if len(tied) == 1 {
		return tied, best, true
	}

	bestTotal := math.Inf(-1)
	var winners []model.RankedEntry
	for _, e := range tied {
		t := total(e)
		switch {
		case t > bestTotal+scoreEpsilon:
			bestTotal = t
			winners = []model.RankedEntry{e}
		case math.Abs(t-bestTotal) <= scoreEpsilon:
			winners = append(winners, e)
		}
	}
	return winners, best, true
}

func total(e model.RankedEntry) float64 {
	if e.Composite.Total == nil {
		return math.Inf(-1)
	}
	return *e.Composite.Total
}

func buildSection(cat model.CriterionSpec, winners []model.RankedEntry, best float64, plans map[string]model.PlanCandidate) model.ChampionSection {
	sec := model.ChampionSection{
		Category: cat.Name,
		Title:    cat.DisplayName(),
		Score:    best,
		Merged:   len(winners) > 1,
	}
	for _, w := range winners {
		score := w.Composite.Criteria[cat.Name].Score
		sec.Sources = append(sec.Sources, w.PlanID)
		if score.Rationale != "" {
			sec.Rationale = append(sec.Rationale, score.Rationale)
		}

		plan := plans[w.PlanID]
		var actions []model.ChampionAction
		for _, idx := range score.Actions {
			if idx < 0 || idx >= len(plan.Actions) {
				continue
			}
			actions = append(actions, model.ChampionAction{
				Text:       plan.Actions[idx],
				Categories: []string{cat.Name},
				Sources:    []string{w.PlanID},
			})
		}
		sec.Actions = mergeActions(sec.Actions, actions)
	}
	return sec
}

// mergeActions appends add to dst. An action whose normalized text is
// already present only contributes its sources and categories.
func mergeActions(dst, add []model.ChampionAction) []model.ChampionAction {
	index := make(map[string]int, len(dst))
	for i, a := range dst {
		index[actionKey(a.Text)] = i
	}
	for _, a := range add {
		key := actionKey(a.Text)
		if i, ok := index[key]; ok {
			dst[i].Sources = union(dst[i].Sources, a.Sources)
			dst[i].Categories = union(dst[i].Categories, a.Categories)
			continue
		}
		a.Sources = append([]string(nil), a.Sources...)
		a.Categories = append([]string(nil), a.Categories...)
		index[key] = len(dst)
		dst = append(dst, a)
	}
	return dst
}

func actionKey(text string) string {
	return strings.TrimRight(strings.Join(strings.Fields(strings.ToLower(text)), " "), ".;:")
}

func union(a, b []string) []string {
	out := append([]string(nil), a...)
	for _, s := range b {
		found := false
		for _, existing := range out {
			if existing == s {
				found = true
				break
			}
		}
		if !found {
			out = append(out, s)
		}
	}
	return out
}
