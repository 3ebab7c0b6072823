package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"engage_server/pkg/apperr"
	"engage_server/pkg/logger"
)

// RateLimit enforces a fixed-window per-user limit for one route group.
// Counters live in Redis so the limit holds across instances. A Redis outage
// fails open: availability beats throttling here.
func RateLimit(rdb *redis.Client, name string, limit int, window time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := c.Locals("user_id").(uuid.UUID)
		if !ok {
			return c.Next()
		}

		key := fmt.Sprintf("ratelimit:%s:%s:%d",
			name, userID, time.Now().Unix()/int64(window.Seconds()))

		count, err := rdb.Incr(c.Context(), key).Result()
		if err != nil {
			logger.WithError(err).Warn("rate limit check failed, allowing request")
			return c.Next()
		}
		if count == 1 {
			rdb.Expire(c.Context(), key, window)
		}

		if count > int64(limit) {
			return apperr.RateLimited(limit, window.String())
		}

		c.Set("X-RateLimit-Limit", fmt.Sprintf("%d", limit))
		remaining := int64(limit) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))

		return c.Next()
	}
}
