package enrichment

// Strength is a dimension the organization can build on.
type Strength struct {
	Dimension string `json:"dimension"`
	Insight   string `json:"insight"`
}

// Gap is a weak dimension with its business risk.
type Gap struct {
	Dimension string `json:"dimension"`
	Risk      string `json:"risk"`
	Impact    string `json:"impact"`
}

// Recommendation is a prioritized next action.
type Recommendation struct {
	Priority  int    `json:"priority"`
	Action    string `json:"action"`
	Rationale string `json:"rationale"`
}

// Analysis is the narrative assessment produced by the model.
type Analysis struct {
	Narrative       string           `json:"narrative"`
	Strengths       []Strength       `json:"strengths"`
	Gaps            []Gap            `json:"gaps"`
	Recommendations []Recommendation `json:"recommendations"`
}

// Step is one action inside a plan phase.
type Step struct {
	Week      string `json:"week"`
	Action    string `json:"action"`
	Detail    string `json:"detail"`
	Dimension string `json:"dimension"`
}

// Phase groups the steps of a four-week block.
type Phase struct {
	Name  string `json:"name"`
	Focus string `json:"focus"`
	Steps []Step `json:"steps"`
}

// ActionPlan is the 90-day plan produced by the model.
type ActionPlan struct {
	Summary           string   `json:"summary"`
	WeakestDimensions []string `json:"weakestDimensions"`
	Phases            []Phase  `json:"phases"`
	ExpectedOutcome   string   `json:"expectedOutcome"`
}
