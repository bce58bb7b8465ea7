package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"

	"party_server/internal/logger"
)

// RateLimiter is a fixed-window limiter backed by Redis INCR/EXPIRE. Without
// a reachable Redis it falls back to an in-process window.
type RateLimiter struct {
	client *redis.Client
	local  *memoryWindow
}

// NewRateLimiter connects to addr. An empty addr or a failed ping leaves the
// limiter in local mode so the server stays available.
func NewRateLimiter(addr, password string, db int) *RateLimiter {
	rl := &RateLimiter{local: newMemoryWindow()}
	if addr == "" {
		return rl
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, using local rate limiting", "addr", addr, "error", err)
		_ = client.Close()
		return rl
	}
	rl.client = client
	return rl
}

func (rl *RateLimiter) Redis() bool { return rl.client != nil }

// Ping reports Redis health for readiness checks.
func (rl *RateLimiter) Ping(ctx context.Context) error {
	if rl.client == nil {
		return nil
	}
	return rl.client.Ping(ctx).Err()
}

func (rl *RateLimiter) Close() error {
	if rl.client == nil {
		return nil
	}
	return rl.client.Close()
}

// Limit allows maxRequests per window per client IP.
// key format: rl:<window_seconds>:<identifier>
func (rl *RateLimiter) Limit(maxRequests int, window time.Duration) gin.HandlerFunc {
	return rl.limit("rl", maxRequests, window, func(c *gin.Context) string { return c.ClientIP() })
}

// LimitIdentity allows maxRequests per window per authenticated user. It must
// run after Auth.
func (rl *RateLimiter) LimitIdentity(maxRequests int, window time.Duration) gin.HandlerFunc {
	return rl.limit("rl_user", maxRequests, window, func(c *gin.Context) string {
		if id := IdentityFrom(c); id != nil {
			return strconv.FormatInt(id.UserID, 10)
		}
		return c.ClientIP()
	})
}

func (rl *RateLimiter) limit(prefix string, maxRequests int, window time.Duration, ident func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := prefix + ":" + strconv.FormatInt(int64(window.Seconds()), 10) + ":" + ident(c)

		var val int64
		if rl.client == nil {
			val = rl.local.hit(key, window)
		} else {
			var err error
			val, err = rl.incr(c.Request.Context(), key, window)
			if err != nil {
				// on Redis error, fail-open (allow) but set header
				c.Header("X-RateLimit-Error", "redis-error")
				c.Next()
				return
			}
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(max(0, int64(maxRequests)-val), 10))

		if val > int64(maxRequests) {
			RLBlocked.WithLabelValues(c.FullPath()).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": int(window.Seconds()),
			})
			return
		}

		RLRequests.WithLabelValues(c.FullPath()).Inc()
		c.Next()
	}
}

func (rl *RateLimiter) incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	val, err := rl.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if val == 1 {
		// first increment, set expiry
		rl.client.Expire(ctx, key, window)
	}
	return val, nil
}
