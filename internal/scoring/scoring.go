// Package scoring turns questionnaire answers into dimension scores and a maturity level.
package scoring

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// Dimension identifies one of the six assessed RevOps areas.
type Dimension string

const (
	Strategy Dimension = "strategy"
	Process  Dimension = "process"
	Data     Dimension = "data"
	Tech     Dimension = "tech"
	People   Dimension = "people"
	Journey  Dimension = "journey"
)

// Dimensions lists every dimension in presentation order.
var Dimensions = []Dimension{Strategy, Process, Data, Tech, People, Journey}

const (
	// QuestionsPerDimension is the number of questions asked per dimension.
	QuestionsPerDimension = 3
	MinRating             = 1.0
	MaxRating             = 5.0
)

// ErrInvalidAnswers is returned when an answer set cannot be scored.
var ErrInvalidAnswers = errors.New("invalid answers")

// Answers maps question keys of the form "<dimension>_<index>" to ratings.
type Answers map[string]float64

// QuestionKey returns the answer key for a dimension question.
func QuestionKey(d Dimension, index int) string {
	return fmt.Sprintf("%s_%d", d, index)
}

// Scores holds the six dimension scores and their overall mean.
type Scores struct {
	Strategy float64 `json:"strategy"`
	Process  float64 `json:"process"`
	Data     float64 `json:"data"`
	Tech     float64 `json:"tech"`
	People   float64 `json:"people"`
	Journey  float64 `json:"journey"`
	Overall  float64 `json:"overall"`
}

// Get returns the score for a dimension.
func (s Scores) Get(d Dimension) float64 {
	switch d {
	case Strategy:
		return s.Strategy
	case Process:
		return s.Process
	case Data:
		return s.Data
	case Tech:
		return s.Tech
	case People:
		return s.People
	case Journey:
		return s.Journey
	default:
		return 0
	}
}

// Set stores the score for a dimension.
func (s *Scores) Set(d Dimension, v float64) {
	switch d {
	case Strategy:
		s.Strategy = v
	case Process:
		s.Process = v
	case Data:
		s.Data = v
	case Tech:
		s.Tech = v
	case People:
		s.People = v
	case Journey:
		s.Journey = v
	}
}

// Calculate scores an answer set. Missing questions are left out of the
// dimension mean; a dimension with no answers scores MinRating.
func Calculate(answers Answers) Scores {
	var out Scores
	var total float64
	for _, d := range Dimensions {
		var sum float64
		var count int
		for i := 0; i < QuestionsPerDimension; i++ {
			v, ok := answers[QuestionKey(d, i)]
			if !ok {
				continue
			}
			sum += clamp(v)
			count++
		}
		score := MinRating
		if count > 0 {
			score = Round1(sum / float64(count))
		}
		out.Set(d, score)
		total += score
	}
	out.Overall = Round1(total / float64(len(Dimensions)))
	return out
}

// ParseAnswers decodes a raw JSON answers object. Every value must be a
// number within [MinRating, MaxRating].
func ParseAnswers(raw json.RawMessage) (Answers, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, fmt.Errorf("%w: answers are required", ErrInvalidAnswers)
	}
	var values map[string]any
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("%w: answers must be an object", ErrInvalidAnswers)
	}
	out := make(Answers, len(values))
	for key, val := range values {
		n, ok := val.(float64)
		if !ok {
			return nil, fmt.Errorf("%w: %s must be a number", ErrInvalidAnswers, key)
		}
		if n < MinRating || n > MaxRating {
			return nil, fmt.Errorf("%w: %s must be between %g and %g", ErrInvalidAnswers, key, MinRating, MaxRating)
		}
		out[key] = n
	}
	return out, nil
}

// Round1 rounds half-up to one decimal place.
func Round1(v float64) float64 {
	return math.Floor(v*10+0.5+1e-9) / 10
}

// Bucket returns the 0-based histogram bucket of a score. Bucket edges match
// the maturity bands.
func Bucket(score float64) int {
	switch {
	case score < 1.5:
		return 0
	case score < 2.5:
		return 1
	case score < 3.5:
		return 2
	case score < 4.5:
		return 3
	default:
		return 4
	}
}

// BucketCount is the number of histogram buckets returned by Bucket.
const BucketCount = 5

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return MinRating
	}
	return math.Max(MinRating, math.Min(MaxRating, v))
}
