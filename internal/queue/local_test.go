package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"revops-backend/internal/shared/telemetry"
)

func TestLocalQueueProcessesMessages(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]string{}
	q := NewLocalQueue(func(ctx context.Context, msg Message) error {
		mu.Lock()
		seen[msg.AssessmentID] = telemetry.RequestID(ctx)
		mu.Unlock()
		return nil
	}, 2, 8, time.Second)

	for _, id := range []string{"a", "b", "c"} {
		if err := q.Send(context.Background(), Message{AssessmentID: id, RequestID: "req-" + id}); err != nil {
			t.Fatalf("Send(%s): %v", id, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := q.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 3 {
		t.Fatalf("expected 3 processed messages, got %v", seen)
	}
	if seen["b"] != "req-b" {
		t.Fatalf("expected request id to reach the handler, got %q", seen["b"])
	}
}

func TestLocalQueueFullAndClosed(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	q := NewLocalQueue(func(ctx context.Context, msg Message) error {
		started <- struct{}{}
		<-release
		return nil
	}, 1, 1, 0)

	if err := q.Send(context.Background(), Message{AssessmentID: "busy"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	<-started
	if err := q.Send(context.Background(), Message{AssessmentID: "buffered"}); err != nil {
		t.Fatalf("Send buffered: %v", err)
	}
	if err := q.Send(context.Background(), Message{AssessmentID: "overflow"}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}

	close(release)
	if err := q.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := q.Send(context.Background(), Message{AssessmentID: "late"}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestLocalQueueSurvivesHandlerFailures(t *testing.T) {
	done := make(chan string, 2)
	q := NewLocalQueue(func(ctx context.Context, msg Message) error {
		defer func() { done <- msg.AssessmentID }()
		if msg.AssessmentID == "panic" {
			panic("boom")
		}
		return errors.New("failed")
	}, 1, 4, 0)

	_ = q.Send(context.Background(), Message{AssessmentID: "panic"})
	_ = q.Send(context.Background(), Message{AssessmentID: "error"})
	if err := q.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if len(done) != 2 {
		t.Fatalf("expected both messages handled, got %d", len(done))
	}
}

func TestShutdownTimesOut(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	q := NewLocalQueue(func(ctx context.Context, msg Message) error {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	}, 1, 1, 0)
	_ = q.Send(context.Background(), Message{AssessmentID: "slow"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := q.Shutdown(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
