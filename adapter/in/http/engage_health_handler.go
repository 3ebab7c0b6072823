package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// HealthHandler reports process and dependency health.
type HealthHandler struct {
	pool    *pgxpool.Pool
	rdb     *redis.Client
	started time.Time
}

func NewHealthHandler(pool *pgxpool.Pool, rdb *redis.Client) *HealthHandler {
	return &HealthHandler{
		pool:    pool,
		rdb:     rdb,
		started: time.Now(),
	}
}

// Health handles GET /api/health. Degraded dependencies flip the status but
// the endpoint itself still answers 200 so orchestrators can read the detail.
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	checks := fiber.Map{}

	if h.pool != nil {
		if err := h.pool.Ping(ctx); err != nil {
			status = "degraded"
			checks["postgres"] = err.Error()
		} else {
			checks["postgres"] = "ok"
		}
	}
	if h.rdb != nil {
		if err := h.rdb.Ping(ctx).Err(); err != nil {
			status = "degraded"
			checks["redis"] = err.Error()
		} else {
			checks["redis"] = "ok"
		}
	}

	return c.JSON(fiber.Map{
		"status":         status,
		"checks":         checks,
		"uptime_seconds": int(time.Since(h.started).Seconds()),
	})
}
