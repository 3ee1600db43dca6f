package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/memberwell/memberwell-backend/internal/database"
	"github.com/memberwell/memberwell-backend/pkg/clientip"
)

const (
	// RateLimitWindow is the fixed window for the global per-IP limit
	RateLimitWindow = 120 * time.Second
	// RateLimitMaxRequests is the maximum number of requests per window
	RateLimitMaxRequests = 60
	// rateLimitKeyPrefix is the Redis key prefix for request counters
	rateLimitKeyPrefix = "ratelimit:"
)

// RateLimit is the coarse per-IP request limiter in front of every route.
// Fails open when Redis is unavailable.
func RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		key := rateLimitKeyPrefix + clientip.FromRequest(r)

		count, err := database.RedisClient.Incr(ctx, key).Result()
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		if count == 1 {
			database.RedisClient.Expire(ctx, key, RateLimitWindow)
		}

		if count > RateLimitMaxRequests {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"success":false,"message":"Too many requests. Please try again later."}`))
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(RateLimitMaxRequests))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(RateLimitMaxRequests-int(count)))
		next.ServeHTTP(w, r)
	})
}
