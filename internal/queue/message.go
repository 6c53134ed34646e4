package queue

import "time"

// Message asks a worker to enrich one assessment.
type Message struct {
	AssessmentID string    `json:"assessmentId"`
	RequestID    string    `json:"requestId"`
	EnqueuedAt   time.Time `json:"enqueuedAt"`
}
