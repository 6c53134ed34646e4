package assessments

import (
	"fmt"
	"sort"
	"time"

	"revops-backend/internal/scoring"
)

const (
	recentLimit = 20
	weeklyLimit = 12
)

// WeekLabel formats t as its ISO week, e.g. "2026-W07".
func WeekLabel(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

type trendPoint struct {
	at      time.Time
	overall float64
}

// weeklyTrend groups points by ISO week, newest week first, keeping the latest weeklyLimit weeks.
func weeklyTrend(points []trendPoint) []WeekTrend {
	type acc struct {
		count int
		sum   float64
	}
	byWeek := make(map[string]*acc)
	for _, p := range points {
		label := WeekLabel(p.at)
		a, ok := byWeek[label]
		if !ok {
			a = &acc{}
			byWeek[label] = a
		}
		a.count++
		a.sum += p.overall
	}

	labels := make([]string, 0, len(byWeek))
	for label := range byWeek {
		labels = append(labels, label)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(labels)))
	if len(labels) > weeklyLimit {
		labels = labels[:weeklyLimit]
	}

	out := make([]WeekTrend, 0, len(labels))
	for _, label := range labels {
		a := byWeek[label]
		out = append(out, WeekTrend{
			Week:       label,
			Count:      a.count,
			AvgOverall: scoring.Round1(a.sum / float64(a.count)),
		})
	}
	return out
}

func distributionMap(counts [scoring.BucketCount]int) map[string]int {
	out := make(map[string]int, scoring.BucketCount)
	for i, n := range counts {
		out[fmt.Sprintf("level%d", i+1)] = n
	}
	return out
}

// averageMap rounds per-column sums into the avgScores shape; an empty sample averages to 0.
func averageMap(sums scoring.Scores, n int) map[string]float64 {
	out := make(map[string]float64, len(scoring.Dimensions)+1)
	avg := func(sum float64) float64 {
		if n == 0 {
			return 0
		}
		return scoring.Round1(sum / float64(n))
	}
	for _, d := range scoring.Dimensions {
		out[string(d)] = avg(sums.Get(d))
	}
	out["overall"] = avg(sums.Overall)
	return out
}

func recentOf(a Assessment) Recent {
	return Recent{
		ID:            a.ID,
		CreatedAt:     a.CreatedAt,
		LeadName:      nullable(a.Lead.Name),
		LeadCompany:   nullable(a.Lead.Company),
		LeadEmail:     nullable(a.Lead.Email),
		ScoreOverall:  a.Scores.Overall,
		MaturityLevel: a.MaturityLevel,
	}
}
