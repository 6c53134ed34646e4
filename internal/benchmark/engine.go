// Package benchmark ranks a score set against every stored assessment.
package benchmark

import (
	"context"
	"fmt"
	"math"
	"sort"

	"revops-backend/internal/scoring"
)

// DefaultMinSample is the number of stored assessments needed before percentiles are reported.
const DefaultMinSample = 10

// OverallKey is the map key used for the overall score next to the dimension keys.
const OverallKey = "overall"

// ScoreSource provides the full history of stored scores.
type ScoreSource interface {
	AllScores(ctx context.Context) ([]scoring.Scores, error)
}

// Position is a score's standing within the stored sample.
type Position struct {
	Percentile int     `json:"percentile"`
	Average    float64 `json:"average"`
}

// Result is returned by Benchmarks. Benchmarks is empty while Available is false.
type Result struct {
	Available      bool                `json:"available"`
	TotalResponses int                 `json:"totalResponses"`
	MinRequired    int                 `json:"minRequired,omitempty"`
	Benchmarks     map[string]Position `json:"benchmarks,omitempty"`
}

// Summary describes one score column across the sample.
type Summary struct {
	Average      float64                  `json:"average"`
	Median       float64                  `json:"median"`
	Distribution [scoring.BucketCount]int `json:"distribution"`
}

// Aggregates is the public benchmark overview.
type Aggregates struct {
	TotalAssessments int                `json:"totalAssessments"`
	Dimensions       map[string]Summary `json:"dimensions"`
	Overall          Summary            `json:"overall"`
}

// Engine recomputes benchmarks from a full scan on each call.
type Engine struct {
	Source    ScoreSource
	MinSample int
}

// NewEngine constructs an Engine. A non-positive minSample uses DefaultMinSample.
func NewEngine(source ScoreSource, minSample int) *Engine {
	if minSample <= 0 {
		minSample = DefaultMinSample
	}
	return &Engine{Source: source, MinSample: minSample}
}

// Benchmarks places scores within the stored sample.
func (e *Engine) Benchmarks(ctx context.Context, scores scoring.Scores) (Result, error) {
	rows, err := e.Source.AllScores(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load scores: %w", err)
	}
	total := len(rows)
	if total < e.minSample() {
		return Result{Available: false, TotalResponses: total, MinRequired: e.minSample()}, nil
	}

	out := make(map[string]Position, len(scoring.Dimensions)+1)
	for _, d := range scoring.Dimensions {
		values := column(rows, func(s scoring.Scores) float64 { return s.Get(d) })
		out[string(d)] = Position{Percentile: Percentile(scores.Get(d), values), Average: Mean(values)}
	}
	overall := column(rows, func(s scoring.Scores) float64 { return s.Overall })
	out[OverallKey] = Position{Percentile: Percentile(scores.Overall, overall), Average: Mean(overall)}

	return Result{Available: true, TotalResponses: total, Benchmarks: out}, nil
}

// Aggregates summarizes the stored sample. It returns nil when nothing is stored.
func (e *Engine) Aggregates(ctx context.Context) (*Aggregates, error) {
	rows, err := e.Source.AllScores(ctx)
	if err != nil {
		return nil, fmt.Errorf("load scores: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	agg := &Aggregates{
		TotalAssessments: len(rows),
		Dimensions:       make(map[string]Summary, len(scoring.Dimensions)),
	}
	for _, d := range scoring.Dimensions {
		agg.Dimensions[string(d)] = summarize(column(rows, func(s scoring.Scores) float64 { return s.Get(d) }))
	}
	agg.Overall = summarize(column(rows, func(s scoring.Scores) float64 { return s.Overall }))
	return agg, nil
}

func (e *Engine) minSample() int {
	if e.MinSample <= 0 {
		return DefaultMinSample
	}
	return e.MinSample
}

// Percentile uses the midpoint rule: ties count half.
func Percentile(value float64, sample []float64) int {
	if len(sample) == 0 {
		return 50
	}
	var below, equal int
	for _, v := range sample {
		switch {
		case v < value:
			below++
		case v == value:
			equal++
		}
	}
	return int(math.Floor((float64(below)+0.5*float64(equal))/float64(len(sample))*100 + 0.5))
}

// Mean returns the sample mean rounded to one decimal.
func Mean(sample []float64) float64 {
	if len(sample) == 0 {
		return 0
	}
	var sum float64
	for _, v := range sample {
		sum += v
	}
	return scoring.Round1(sum / float64(len(sample)))
}

// Median returns the middle element of the sorted sample. Even-length samples
// take the lower of the two middle values; no interpolation. This differs from
// the common sorted[n/2] shortcut, which picks the upper middle.
func Median(sample []float64) float64 {
	if len(sample) == 0 {
		return 0
	}
	sorted := append([]float64(nil), sample...)
	sort.Float64s(sorted)
	return sorted[(len(sorted)-1)/2]
}

func summarize(values []float64) Summary {
	s := Summary{Average: Mean(values), Median: Median(values)}
	for _, v := range values {
		s.Distribution[scoring.Bucket(v)]++
	}
	return s
}

func column(rows []scoring.Scores, pick func(scoring.Scores) float64) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = pick(r)
	}
	return out
}
