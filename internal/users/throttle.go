package users

import (
	"context"
	"sync"
	"time"

	"github.com/zoheir79/whispey-sub004/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// AttemptLimiter caps login attempts per account within a fixed window.
// A successful login calls Reset.
type AttemptLimiter interface {
	// Hit records one attempt. allowed=false once the cap is exceeded;
	// retryAfter is when the window resets.
	Hit(ctx context.Context, email string) (allowed bool, retryAfter time.Duration, err error)
	Reset(ctx context.Context, email string) error
}

const attemptKeyPrefix = "whispey:login-attempts:"

func attemptKey(email string) string { return attemptKeyPrefix + NormalizeEmail(email) }

// RedisAttemptLimiter shares attempt counts across replicas.
type RedisAttemptLimiter struct {
	rdb    *redis.Client
	max    int
	window time.Duration
}

func NewRedisAttemptLimiter(rdb *redis.Client, limit int, window time.Duration) *RedisAttemptLimiter {
	return &RedisAttemptLimiter{rdb: rdb, max: limit, window: window}
}

func (l *RedisAttemptLimiter) Hit(ctx context.Context, email string) (bool, time.Duration, error) {
	n, ttl, err := utils.CountAttempt(ctx, l.rdb, attemptKey(email), l.window)
	if err != nil {
		return false, 0, err
	}
	if n > int64(l.max) {
		return false, ttl, nil
	}
	return true, 0, nil
}

func (l *RedisAttemptLimiter) Reset(ctx context.Context, email string) error {
	return utils.ClearAttempts(ctx, l.rdb, attemptKey(email))
}

// MemoryAttemptLimiter is a single-process limiter for tests and for
// deployments without Redis.
type MemoryAttemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	clock   func() time.Time
	windows map[string]attemptWindow
}

type attemptWindow struct {
	count   int
	resetAt time.Time
}

func NewMemoryAttemptLimiter(limit int, window time.Duration) *MemoryAttemptLimiter {
	return &MemoryAttemptLimiter{max: limit, window: window, clock: time.Now, windows: map[string]attemptWindow{}}
}

func (l *MemoryAttemptLimiter) Hit(ctx context.Context, email string) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	key := attemptKey(email)
	w := l.windows[key]
	if !now.Before(w.resetAt) {
		w = attemptWindow{resetAt: now.Add(l.window)}
	}
	w.count++
	l.windows[key] = w

	if w.count > l.max {
		return false, w.resetAt.Sub(now), nil
	}
	return true, 0, nil
}

func (l *MemoryAttemptLimiter) Reset(ctx context.Context, email string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, attemptKey(email))
	return nil
}
