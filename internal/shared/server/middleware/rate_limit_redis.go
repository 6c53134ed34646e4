package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"revops-backend/internal/shared/util"
)

// RedisWindowStore shares fixed-window counters across instances.
type RedisWindowStore struct {
	client redis.Cmdable
	prefix string
	now    func() time.Time
}

// NewRedisWindowStore parses a redis:// URL and returns a store plus its client for shutdown.
func NewRedisWindowStore(ctx context.Context, url string) (*RedisWindowStore, *redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	return newRedisWindowStore(client, nil), client, nil
}

func newRedisWindowStore(client redis.Cmdable, now func() time.Time) *RedisWindowStore {
	if now == nil {
		now = time.Now
	}
	return &RedisWindowStore{client: client, prefix: "ratelimit:", now: now}
}

// Hit stores counters under a hashed key.
func (s *RedisWindowStore) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	k := s.prefix + util.HashKey(key)
	count, err := s.client.Incr(ctx, k).Result()
	if err != nil {
		return 0, time.Time{}, err
	}
	if count == 1 {
		if err := s.client.PExpire(ctx, k, window).Err(); err != nil {
			return 0, time.Time{}, err
		}
		return count, s.now().Add(window), nil
	}
	ttl, err := s.client.PTTL(ctx, k).Result()
	if err != nil {
		return 0, time.Time{}, err
	}
	if ttl < 0 {
		// key lost its expiry; start a fresh window
		if err := s.client.PExpire(ctx, k, window).Err(); err != nil {
			return 0, time.Time{}, err
		}
		ttl = window
	}
	return count, s.now().Add(ttl), nil
}
