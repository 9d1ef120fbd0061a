package model

// DefaultCriteria returns the standard accessibility-plan rubric:
// strategic 40%, technical 30%, comprehensive 20%, long-term 10%.
func DefaultCriteria() []CriterionSpec {
	return []CriterionSpec{
		{
			Name:        "strategic",
			Title:       "Strategic Prioritization",
			Description: "Logic and rationale behind task sequencing and prioritization",
			Weight:      0.4,
			Rubric: []string{
				"Does the plan combine several prioritization models (user impact, architectural leverage, effort, risk) instead of a single factor?",
				"Are critical user paths and high-impact, site-wide issues prioritized?",
				"Is the ordering justified, and does it account for dependencies between fixes?",
				"Are foundational or architectural issues addressed early?",
				"Does it consider the barriers that affect the most users and different disability types?",
			},
		},
		{
			Name:        "technical",
			Title:       "Technical Specificity",
			Description: "Clarity, accuracy, and actionability of technical solutions",
			Weight:      0.3,
			Rubric: []string{
				"Can developers implement the fixes without further research (code snippets, CSS values, ARIA roles)?",
				"Are the solutions technically correct and aligned with WCAG 2.1/2.2?",
				"Are there clear acceptance criteria for each fix?",
				"Do the fixes prefer semantic HTML and use ARIA correctly and sparingly?",
			},
		},
		{
			Name:        "comprehensive",
			Title:       "Comprehensiveness",
			Description: "Complete coverage and structural organization",
			Weight:      0.2,
			Rubric: []string{
				"Does the plan address every violation in the audit report?",
				"Is it structured so developers, designers and PMs can follow it?",
				"Does it connect fixes to the POUR principles (Perceivable, Operable, Understandable, Robust)?",
				"Does it give guidance to the different team roles, including design and content?",
			},
		},
		{
			Name:        "longterm",
			Title:       "Long-Term Vision",
			Description: "Sustainability and continuous improvement provisions",
			Weight:      0.1,
			Rubric: []string{
				"Does it include post-remediation verification, including testing with people with disabilities?",
				"Does it cover ongoing monitoring and automated regression testing?",
				"Does it embed accessibility into design, development and content workflows and training?",
				"Does it treat accessibility as a continuous process with governance and accountability?",
			},
		},
	}
}

// Weights returns the name -> weight mapping of specs.
func Weights(specs []CriterionSpec) map[string]float64 {
	w := make(map[string]float64, len(specs))
	for _, s := range specs {
		w[s.Name] = s.Weight
	}
	return w
}
