package assessments

import (
	"context"
	"encoding/json"
	"time"

	"revops-backend/internal/scoring"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Repo defines persistence operations for assessments and analytics events.
type Repo interface {
	Insert(ctx context.Context, a Assessment) error
	Get(ctx context.Context, id string) (Assessment, error)
	UpdateAI(ctx context.Context, id string, analysis, actionPlan json.RawMessage, generatedAt time.Time) error
	AllScores(ctx context.Context) ([]scoring.Scores, error)
	Count(ctx context.Context) (int, error)
	Stats(ctx context.Context) (Stats, error)
	List(ctx context.Context, page, limit int) (Page, error)
	ListForExport(ctx context.Context) ([]Record, error)
	TrackEvent(ctx context.Context, eventType, assessmentID string, metadata json.RawMessage) error
	EventStats(ctx context.Context) ([]EventCount, error)
}

// NormalizePage clamps page to >= 1 and limit to [1, MaxPageSize], defaulting to DefaultPageSize.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}

func pageCount(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
