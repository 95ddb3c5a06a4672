package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/junglehq/jungle/pkg/logging"
)

// Limiter decides whether a request identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

// LocalRateLimiter provides per-IP rate limiting using a token bucket.
// State is per process; use RedisRateLimiter when running more than one
// API instance.
type LocalRateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64 // tokens per second
	burst   int     // max tokens
}

type bucket struct {
	tokens   float64
	lastTime time.Time
}

// NewLocalRateLimiter creates a limiter allowing rate requests/sec with the
// given burst size per key.
func NewLocalRateLimiter(rate float64, burst int) *LocalRateLimiter {
	rl := &LocalRateLimiter{
		buckets: make(map[string]*bucket),
		rate:    rate,
		burst:   burst,
	}
	// Periodically evict stale entries to prevent memory growth.
	go rl.cleanup()
	return rl
}

// Allow reports whether the request is within the rate limit.
func (rl *LocalRateLimiter) Allow(_ context.Context, key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(rl.burst), lastTime: now}
		rl.buckets[key] = b
	}

	elapsed := now.Sub(b.lastTime).Seconds()
	b.tokens += elapsed * rl.rate
	if b.tokens > float64(rl.burst) {
		b.tokens = float64(rl.burst)
	}
	b.lastTime = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

func (rl *LocalRateLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		rl.mu.Lock()
		cutoff := time.Now().Add(-10 * time.Minute)
		for key, b := range rl.buckets {
			if b.lastTime.Before(cutoff) {
				delete(rl.buckets, key)
			}
		}
		rl.mu.Unlock()
	}
}

// RedisRateLimiter is a fixed-window limiter shared across API instances.
// Redis errors fail open: a cache outage must not take the API down with it.
type RedisRateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	logger *logging.Logger
}

// NewRedisRateLimiter allows limit requests per key per window.
func NewRedisRateLimiter(client *redis.Client, limit int, window time.Duration, logger *logging.Logger) *RedisRateLimiter {
	if logger == nil {
		logger = logging.Default()
	}
	return &RedisRateLimiter{client: client, limit: limit, window: window, logger: logger}
}

func (rl *RedisRateLimiter) Allow(ctx context.Context, key string) bool {
	bucketKey := fmt.Sprintf("ratelimit:%s:%d", key, time.Now().Unix()/int64(rl.window.Seconds()))

	pipe := rl.client.TxPipeline()
	count := pipe.Incr(ctx, bucketKey)
	pipe.Expire(ctx, bucketKey, rl.window)
	if _, err := pipe.Exec(ctx); err != nil {
		rl.logger.Error("rate limit check failed", "error", err, "key", key)
		return true
	}
	return count.Val() <= int64(rl.limit)
}

// RateLimit rejects requests over the limit with 429 Too Many Requests.
// Requests are keyed by client IP.
func RateLimit(limiter Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := r.RemoteAddr
			// Prefer X-Real-Ip set by chi's RealIP middleware.
			if xri := r.Header.Get("X-Real-Ip"); xri != "" {
				ip = xri
			}
			if !limiter.Allow(r.Context(), ip) {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
