package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"revops-backend/internal/shared/metrics"
	"revops-backend/internal/shared/server/respond"
	"revops-backend/internal/shared/telemetry"
)

// WindowStore counts hits per key inside fixed windows.
type WindowStore interface {
	// Hit records one request and returns the count in the current window and when it resets.
	Hit(ctx context.Context, key string, window time.Duration) (count int64, resetAt time.Time, err error)
}

type RateLimitConfig struct {
	Max     int
	Window  time.Duration
	Store   WindowStore
	KeyFunc func(*gin.Context) string
	Now     func() time.Time
}

// RateLimit enforces a fixed-window limit and sets the standard RateLimit-* headers.
// Store errors let the request through.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Store == nil {
		cfg.Store = NewMemoryWindowStore(cfg.Now)
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}
	return func(c *gin.Context) {
		if cfg.Max <= 0 || cfg.Window <= 0 {
			c.Next()
			return
		}
		key := strings.TrimSpace(cfg.KeyFunc(c))
		if key == "" {
			key = "unknown"
		}
		count, resetAt, err := cfg.Store.Hit(c.Request.Context(), key, cfg.Window)
		if err != nil {
			telemetry.Warn("rate_limit.store_error", map[string]any{
				"request_id": RequestIDFromContext(c),
				"error":      err.Error(),
			})
			c.Next()
			return
		}

		resetIn := resetAt.Sub(cfg.Now())
		resetSeconds := int(math.Ceil(resetIn.Seconds()))
		if resetSeconds < 0 {
			resetSeconds = 0
		}
		remaining := int64(cfg.Max) - count
		if remaining < 0 {
			remaining = 0
		}
		h := c.Writer.Header()
		h.Set("RateLimit-Limit", strconv.Itoa(cfg.Max))
		h.Set("RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		h.Set("RateLimit-Reset", strconv.Itoa(resetSeconds))

		if count <= int64(cfg.Max) {
			c.Next()
			return
		}
		retryAfter := resetSeconds
		if retryAfter <= 0 {
			retryAfter = 1
		}
		metrics.IncRateLimited()
		h.Set("Retry-After", strconv.Itoa(retryAfter))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "Too many requests, please try again later.", gin.H{
			"retryAfterMs": retryAfter * 1000,
		})
	}
}

// MemoryWindowStore keeps counters in process memory.
type MemoryWindowStore struct {
	mu      sync.Mutex
	windows map[string]*fixedWindow
	now     func() time.Time
	hits    int
}

type fixedWindow struct {
	count   int64
	resetAt time.Time
}

const sweepEvery = 1024

func NewMemoryWindowStore(now func() time.Time) *MemoryWindowStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryWindowStore{
		windows: make(map[string]*fixedWindow),
		now:     now,
	}
}

func (s *MemoryWindowStore) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	if err := ctx.Err(); err != nil {
		return 0, time.Time{}, err
	}
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hits++
	if s.hits%sweepEvery == 0 {
		for k, w := range s.windows {
			if !now.Before(w.resetAt) {
				delete(s.windows, k)
			}
		}
	}

	w, ok := s.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &fixedWindow{resetAt: now.Add(window)}
		s.windows[key] = w
	}
	w.count++
	return w.count, w.resetAt, nil
}
