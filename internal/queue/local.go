package queue

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"revops-backend/internal/shared/metrics"
	"revops-backend/internal/shared/telemetry"
)

// LocalQueue is a bounded in-process queue served by a fixed worker pool.
// Send never blocks: a full buffer returns ErrQueueFull.
type LocalQueue struct {
	jobs       chan Message
	handler    Handler
	jobTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

// NewLocalQueue starts workers goroutines consuming a buffer of size messages.
// A positive jobTimeout bounds each handler call.
func NewLocalQueue(handler Handler, workers, size int, jobTimeout time.Duration) *LocalQueue {
	if workers < 1 {
		workers = 1
	}
	if size < 1 {
		size = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &LocalQueue{
		jobs:       make(chan Message, size),
		handler:    handler,
		jobTimeout: jobTimeout,
		ctx:        ctx,
		cancel:     cancel,
	}
	q.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go q.work()
	}
	return q
}

// Send enqueues msg.
func (q *LocalQueue) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}
	if msg.EnqueuedAt.IsZero() {
		msg.EnqueuedAt = time.Now().UTC()
	}
	select {
	case q.jobs <- msg:
		metrics.SetAIQueueDepth(len(q.jobs))
		return nil
	default:
		return ErrQueueFull
	}
}

// Len returns the number of buffered messages.
func (q *LocalQueue) Len() int {
	return len(q.jobs)
}

// Shutdown stops accepting messages and waits for buffered ones to drain.
// If ctx expires first, in-flight handlers are cancelled and ctx.Err is returned.
func (q *LocalQueue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		q.cancel()
		return nil
	case <-ctx.Done():
		q.cancel()
		return ctx.Err()
	}
}

func (q *LocalQueue) work() {
	defer q.wg.Done()
	for msg := range q.jobs {
		metrics.SetAIQueueDepth(len(q.jobs))
		q.run(msg)
	}
}

func (q *LocalQueue) run(msg Message) {
	ctx := telemetry.WithRequestID(q.ctx, msg.RequestID)
	if q.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.jobTimeout)
		defer cancel()
	}
	fields := map[string]any{
		"assessment_id": msg.AssessmentID,
		"request_id":    msg.RequestID,
		"wait_ms":       time.Since(msg.EnqueuedAt).Milliseconds(),
	}
	defer func() {
		if rec := recover(); rec != nil {
			fields["error"] = fmt.Sprint(rec)
			fields["stack"] = string(debug.Stack())
			telemetry.Error("queue.job.panic", fields)
		}
	}()
	if err := q.handler(ctx, msg); err != nil {
		fields["error"] = err
		telemetry.Error("queue.job.failed", fields)
	}
}

var _ Client = (*LocalQueue)(nil)
