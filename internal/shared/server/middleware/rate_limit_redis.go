package middleware

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"study-backend/internal/shared/telemetry"
)

const redisKeyPrefix = "ratelimit:"

// RedisLimiter shares fixed-window counters across API instances.
// Each window lasts Burst/Rate seconds and admits Burst requests.
type RedisLimiter struct {
	client redis.Cmdable
}

func NewRedisLimiter(client redis.Cmdable) *RedisLimiter {
	return &RedisLimiter{client: client}
}

// Allow fails open when redis is unreachable.
func (l *RedisLimiter) Allow(ctx context.Context, key string, rule RateLimitRule) (bool, time.Duration) {
	if l == nil || l.client == nil || rule.Rate <= 0 || rule.Burst <= 0 {
		return true, 0
	}
	window := windowFor(rule)
	redisKey := redisKeyPrefix + key

	n, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		telemetry.Warn("ratelimit.redis_error", map[string]any{"key": key, "error": err})
		return true, 0
	}
	if n == 1 {
		if err := l.client.PExpire(ctx, redisKey, window).Err(); err != nil {
			telemetry.Warn("ratelimit.redis_error", map[string]any{"key": key, "error": err})
		}
	}
	if n <= int64(rule.Burst) {
		return true, 0
	}

	ttl, err := l.client.PTTL(ctx, redisKey).Result()
	if err != nil || ttl <= 0 {
		return false, window
	}
	return false, ttl
}

func windowFor(rule RateLimitRule) time.Duration {
	seconds := float64(rule.Burst) / rule.Rate
	window := time.Duration(seconds * float64(time.Second))
	if window < time.Second {
		return time.Second
	}
	return window
}

var _ Limiter = (*RedisLimiter)(nil)
