package services

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// ResetRateLimitWindow is the fixed window for reset requests
	ResetRateLimitWindow = 1 * time.Hour
	// ResetRateLimitMax is the number of requests allowed per window for
	// one (client IP, member number) pair
	ResetRateLimitMax = 3
	// resetLimitKeyPrefix is the Redis key prefix for reset counters
	resetLimitKeyPrefix = "pwreset_limit:"
)

// ResetRateLimiter counts password-reset requests per (IP, member number) in
// a fixed Redis window.
type ResetRateLimiter struct {
	redis *redis.Client
}

func NewResetRateLimiter(redisClient *redis.Client) *ResetRateLimiter {
	return &ResetRateLimiter{redis: redisClient}
}

// Allow increments the pair's counter and returns 0 when the request may
// proceed, otherwise the seconds until the window expires. The counter is
// incremented even for the rejected attempt, so hammering extends nothing
// but reveals nothing either.
func (l *ResetRateLimiter) Allow(ctx context.Context, ip, memberNumber string) (int, error) {
	key := fmt.Sprintf("%s%s:%s", resetLimitKeyPrefix, ip, memberNumber)

	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		// Fail open like the global limiter: Redis being down must not
		// lock every member out of password resets.
		return 0, nil
	}
	if count == 1 {
		l.redis.Expire(ctx, key, ResetRateLimitWindow)
	}

	if count > ResetRateLimitMax {
		ttl, err := l.redis.TTL(ctx, key).Result()
		if err != nil || ttl < 0 {
			ttl = ResetRateLimitWindow
		}
		return int(ttl.Seconds()), nil
	}
	return 0, nil
}
