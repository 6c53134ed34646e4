package enrichment

import (
	"sort"

	"revops-backend/internal/scoring"
)

const (
	weakestCount   = 3
	strongestCount = 2
)

var dimensionNames = map[scoring.Dimension]string{
	scoring.Strategy: "Strategy & Leadership",
	scoring.Process:  "Processes",
	scoring.Data:     "Data & Analytics",
	scoring.Tech:     "Technology & Tools",
	scoring.People:   "People & Culture",
	scoring.Journey:  "Customer Journey",
}

// DimensionName returns the display name used in prompts.
func DimensionName(d scoring.Dimension) string {
	if name, ok := dimensionNames[d]; ok {
		return name
	}
	return string(d)
}

// Input is the assessment context a prompt is built from.
type Input struct {
	AssessmentID string
	Company      string
	Role         string
	Scores       scoring.Scores
	Level        string
}

// DimensionScore pairs a dimension with its score.
type DimensionScore struct {
	Key   scoring.Dimension
	Name  string
	Score float64
}

// Dimensions returns every dimension score in canonical order.
func (in Input) Dimensions() []DimensionScore {
	out := make([]DimensionScore, 0, len(scoring.Dimensions))
	for _, d := range scoring.Dimensions {
		out = append(out, DimensionScore{Key: d, Name: DimensionName(d), Score: in.Scores.Get(d)})
	}
	return out
}

// Weakest returns the three lowest dimensions, lowest first. Ties keep canonical order.
func (in Input) Weakest() []DimensionScore {
	sorted := in.ascending()
	return sorted[:weakestCount]
}

// Strongest returns the two highest dimensions, highest first.
func (in Input) Strongest() []DimensionScore {
	sorted := in.ascending()
	out := make([]DimensionScore, 0, strongestCount)
	for i := len(sorted) - 1; i >= len(sorted)-strongestCount; i-- {
		out = append(out, sorted[i])
	}
	return out
}

func (in Input) ascending() []DimensionScore {
	dims := in.Dimensions()
	sort.SliceStable(dims, func(i, j int) bool { return dims[i].Score < dims[j].Score })
	return dims
}
