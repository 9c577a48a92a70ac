package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const rateLimitWindow = time.Minute

// RateLimit limits requests per client IP using a Redis counter with expiry.
// Redis errors fail open: an unreachable limiter must not take the API down.
func RateLimit(client *redis.Client, requestsPerMinute int) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("ratelimit:%s", c.ClientIP())

		count, err := incrWithExpiry(c, client, key, rateLimitWindow)
		if err != nil {
			slog.Warn("rate limiter unavailable, allowing request",
				"error", err,
				"request_id", GetRequestID(c),
			)
			c.Next()
			return
		}

		remaining := requestsPerMinute - int(count)
		if remaining < 0 {
			remaining = 0
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(requestsPerMinute))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if count > int64(requestsPerMinute) {
			slog.Warn("rate limit exceeded",
				"client_ip", c.ClientIP(),
				"request_id", GetRequestID(c),
			)

			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded. Please try again later.",
			})
			return
		}

		c.Next()
	}
}

func incrWithExpiry(c *gin.Context, client *redis.Client, key string, window time.Duration) (int64, error) {
	ctx := c.Request.Context()

	pipe := client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}
