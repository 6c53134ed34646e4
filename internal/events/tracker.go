// Package events records analytics events for the funnel dashboard.
package events

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"revops-backend/internal/shared/metrics"
	"revops-backend/internal/shared/telemetry"
)

// AssessmentCompleted is tracked once per successful submission.
const AssessmentCompleted = "assessment_completed"

const defaultTrackTimeout = 5 * time.Second

// Store appends analytics events.
type Store interface {
	TrackEvent(ctx context.Context, eventType, assessmentID string, metadata json.RawMessage) error
}

// Tracker writes events to a Store, synchronously or in the background.
type Tracker struct {
	Store   Store
	Timeout time.Duration

	wg sync.WaitGroup
}

// NewTracker constructs a Tracker. A non-positive timeout uses five seconds.
func NewTracker(store Store, timeout time.Duration) *Tracker {
	if timeout <= 0 {
		timeout = defaultTrackTimeout
	}
	return &Tracker{Store: store, Timeout: timeout}
}

// Track appends one event and returns the store error.
func (t *Tracker) Track(ctx context.Context, eventType, assessmentID string, metadata json.RawMessage) error {
	err := t.Store.TrackEvent(ctx, strings.TrimSpace(eventType), strings.TrimSpace(assessmentID), metadata)
	metrics.IncEventTracked(err == nil)
	return err
}

// TrackAsync appends one event off the caller's path with its own timeout.
// Failures are logged and never reach the caller.
func (t *Tracker) TrackAsync(ctx context.Context, eventType, assessmentID string, metadata json.RawMessage) {
	if t == nil || t.Store == nil {
		return
	}
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		trackCtx, cancel := context.WithTimeout(telemetry.Detach(ctx), t.Timeout)
		defer cancel()
		if err := t.Track(trackCtx, eventType, assessmentID, metadata); err != nil {
			telemetry.Warn("event.track.failed", map[string]any{
				"event_type":    eventType,
				"assessment_id": assessmentID,
				"request_id":    telemetry.RequestID(ctx),
				"error":         err,
			})
		}
	}()
}

// Wait blocks until background writes started by TrackAsync finish.
func (t *Tracker) Wait() {
	t.wg.Wait()
}
