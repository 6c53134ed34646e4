package assessments

import (
	"time"

	"revops-backend/internal/scoring"
)

var baseTime = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func uniformScores(v float64) scoring.Scores {
	return scoring.Scores{Strategy: v, Process: v, Data: v, Tech: v, People: v, Journey: v, Overall: v}
}

func sampleAssessment(id string, at time.Time, overall float64) Assessment {
	return Assessment{
		ID:            id,
		CreatedAt:     at,
		Lead:          Lead{Name: "Ada", Email: "ada@example.com", Company: "Acme"},
		Answers:       scoring.Answers{"strategy_1": overall},
		Scores:        uniformScores(overall),
		MaturityLevel: scoring.LevelFor(overall).Name,
	}
}
