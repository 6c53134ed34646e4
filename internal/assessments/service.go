package assessments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"revops-backend/internal/benchmark"
	"revops-backend/internal/enrichment"
	"revops-backend/internal/events"
	"revops-backend/internal/queue"
	"revops-backend/internal/scoring"
	"revops-backend/internal/shared/metrics"
	"revops-backend/internal/shared/telemetry"
)

const (
	AIStatusReady       = "ready"
	AIStatusGenerating  = "generating"
	AIStatusUnavailable = "unavailable"
)

// Benchmarker ranks scores against the stored sample.
type Benchmarker interface {
	Benchmarks(ctx context.Context, scores scoring.Scores) (benchmark.Result, error)
}

// Enricher produces the AI analysis and action plan.
type Enricher interface {
	Configured() bool
	GenerateAnalysis(ctx context.Context, in enrichment.Input) (*enrichment.Analysis, error)
	GenerateActionPlan(ctx context.Context, in enrichment.Input) (*enrichment.ActionPlan, error)
}

// EventTracker records analytics events without blocking the caller.
type EventTracker interface {
	TrackAsync(ctx context.Context, eventType, assessmentID string, metadata json.RawMessage)
}

// Service contains business logic for assessments.
type Service struct {
	Repo     Repo
	Bench    Benchmarker
	Enricher Enricher
	Jobs     queue.Client
	Events   EventTracker
	Ladder   scoring.Ladder
	Now      func() time.Time

	flight singleflight.Group
}

// Submission is the outcome of scoring and storing a questionnaire.
type Submission struct {
	Assessment Assessment
	Level      scoring.Level
	Benchmark  benchmark.Result
}

// AIContent is the enrichment state of an assessment.
type AIContent struct {
	Status     string          `json:"status"`
	Analysis   json.RawMessage `json:"analysis,omitempty"`
	ActionPlan json.RawMessage `json:"actionPlan,omitempty"`
}

// AIEnabled reports whether enrichment can run.
func (s *Service) AIEnabled() bool {
	return s.Enricher != nil && s.Enricher.Configured() && s.Jobs != nil
}

// Submit scores answers, stores the assessment and benchmarks it. Enrichment is
// queued afterwards and never fails the submission.
func (s *Service) Submit(ctx context.Context, answers scoring.Answers, lead Lead) (Submission, error) {
	scores := scoring.Calculate(answers)
	level := s.ladder().For(scores.Overall)
	a := Assessment{
		ID:            uuid.NewString(),
		CreatedAt:     s.now().UTC(),
		Lead:          lead.Normalize(),
		Answers:       answers,
		Scores:        scores,
		MaturityLevel: level.Name,
	}
	if err := s.Repo.Insert(ctx, a); err != nil {
		return Submission{}, fmt.Errorf("insert assessment: %w", err)
	}
	metrics.IncAssessmentSubmitted()
	if s.Events != nil {
		s.Events.TrackAsync(ctx, events.AssessmentCompleted, a.ID, nil)
	}

	bench, err := s.Bench.Benchmarks(ctx, scores)
	if err != nil {
		return Submission{}, fmt.Errorf("benchmark assessment %s: %w", a.ID, err)
	}

	if s.AIEnabled() {
		if err := s.enqueue(ctx, a.ID); err != nil {
			telemetry.Warn("ai.enqueue.failed", map[string]any{
				"assessment_id": a.ID,
				"request_id":    telemetry.RequestID(ctx),
				"error":         err,
			})
		}
	}
	return Submission{Assessment: a, Level: level, Benchmark: bench}, nil
}

// Get returns a stored assessment with its level and a fresh benchmark.
func (s *Service) Get(ctx context.Context, id string) (Submission, error) {
	a, err := s.Repo.Get(ctx, id)
	if err != nil {
		return Submission{}, err
	}
	bench, err := s.Bench.Benchmarks(ctx, a.Scores)
	if err != nil {
		return Submission{}, fmt.Errorf("benchmark assessment %s: %w", id, err)
	}
	return Submission{Assessment: a, Level: s.ladder().For(a.Scores.Overall), Benchmark: bench}, nil
}

// AIStatus reports stored enrichment content, or generating while none exists.
func (s *Service) AIStatus(ctx context.Context, id string) (AIContent, error) {
	a, err := s.Repo.Get(ctx, id)
	if err != nil {
		return AIContent{}, err
	}
	if !a.HasAI() {
		return AIContent{Status: AIStatusGenerating}, nil
	}
	return AIContent{
		Status:     AIStatusReady,
		Analysis:   orNull(a.AIAnalysis),
		ActionPlan: orNull(a.AIActionPlan),
	}, nil
}

// TriggerAI queues enrichment for an assessment that has none yet.
func (s *Service) TriggerAI(ctx context.Context, id string) (string, error) {
	a, err := s.Repo.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if a.HasAI() {
		return AIStatusReady, nil
	}
	if !s.AIEnabled() {
		return AIStatusUnavailable, nil
	}
	if err := s.enqueue(ctx, id); err != nil {
		return "", err
	}
	return AIStatusGenerating, nil
}

func (s *Service) enqueue(ctx context.Context, id string) error {
	return s.Jobs.Send(ctx, queue.Message{
		AssessmentID: id,
		RequestID:    telemetry.RequestID(ctx),
		EnqueuedAt:   s.now().UTC(),
	})
}

// ProcessEnrichment is the queue handler. Concurrent runs for the same
// assessment share one execution.
func (s *Service) ProcessEnrichment(ctx context.Context, msg queue.Message) error {
	_, err, _ := s.flight.Do(msg.AssessmentID, func() (any, error) {
		return nil, s.enrich(ctx, msg.AssessmentID)
	})
	return err
}

func (s *Service) enrich(ctx context.Context, id string) error {
	a, err := s.Repo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("load assessment %s: %w", id, err)
	}
	if a.HasAI() {
		metrics.IncAIGeneration(metrics.OutcomeSkipped)
		return nil
	}
	if !s.AIEnabled() {
		metrics.IncAIGeneration(metrics.OutcomeSkipped)
		return nil
	}

	in := enrichment.Input{
		AssessmentID: a.ID,
		Company:      a.Lead.Company,
		Role:         a.Lead.Role,
		Scores:       a.Scores,
		Level:        a.MaturityLevel,
	}
	start := time.Now()

	var analysis *enrichment.Analysis
	var plan *enrichment.ActionPlan
	var g errgroup.Group
	g.Go(func() error {
		out, err := s.Enricher.GenerateAnalysis(ctx, in)
		if err != nil {
			logGenerationFailure(ctx, "analysis", id, err)
			return nil
		}
		analysis = out
		return nil
	})
	g.Go(func() error {
		out, err := s.Enricher.GenerateActionPlan(ctx, in)
		if err != nil {
			logGenerationFailure(ctx, "action_plan", id, err)
			return nil
		}
		plan = out
		return nil
	})
	_ = g.Wait()
	metrics.ObserveAIDurationMs(float64(time.Since(start).Milliseconds()))

	if analysis == nil && plan == nil {
		metrics.IncAIGeneration(metrics.OutcomeFailed)
		return nil
	}

	analysisJSON, err := marshalOptional(analysis)
	if err != nil {
		return fmt.Errorf("encode analysis: %w", err)
	}
	planJSON, err := marshalOptional(plan)
	if err != nil {
		return fmt.Errorf("encode action plan: %w", err)
	}
	if err := s.Repo.UpdateAI(ctx, id, analysisJSON, planJSON, s.now().UTC()); err != nil {
		metrics.IncAIGeneration(metrics.OutcomeFailed)
		return fmt.Errorf("store enrichment %s: %w", id, err)
	}
	metrics.IncAIGeneration(metrics.OutcomeCompleted)
	telemetry.Info("ai.generation.completed", map[string]any{
		"assessment_id":   id,
		"request_id":      telemetry.RequestID(ctx),
		"has_analysis":    analysis != nil,
		"has_action_plan": plan != nil,
		"duration_ms":     time.Since(start).Milliseconds(),
	})
	return nil
}

func logGenerationFailure(ctx context.Context, kind, id string, err error) {
	reason := "upstream"
	switch {
	case errors.Is(err, enrichment.ErrMalformedResponse):
		reason = "malformed_response"
	case errors.Is(err, enrichment.ErrUnconfigured):
		reason = "unconfigured"
	}
	telemetry.Warn("ai.generation.failed", map[string]any{
		"kind":          kind,
		"reason":        reason,
		"assessment_id": id,
		"request_id":    telemetry.RequestID(ctx),
		"error":         err,
	})
}

func marshalOptional[T any](v *T) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func orNull(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	return raw
}

func (s *Service) ladder() scoring.Ladder {
	if len(s.Ladder) == 0 {
		return scoring.DefaultLadder
	}
	return s.Ladder
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
