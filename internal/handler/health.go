package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
)

// Pinger is implemented by every vote store medium.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	store    Pinger
	driver   string
	rdb      *redis.Client
	snapshot SnapshotSource
	startAt  time.Time
}

// NewHealthHandler builds the probe handlers. rdb and snapshot may be nil.
func NewHealthHandler(store Pinger, driver string, rdb *redis.Client, snapshot SnapshotSource) *HealthHandler {
	return &HealthHandler{
		store:    store,
		driver:   driver,
		rdb:      rdb,
		snapshot: snapshot,
		startAt:  time.Now(),
	}
}

// Live handles GET /health/live, the liveness probe.
func (h *HealthHandler) Live(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Ready handles GET /health/ready, the readiness probe with dependency checks.
func (h *HealthHandler) Ready(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
	defer cancel()

	checks := make(fiber.Map)
	overallStatus := "healthy"

	// Vote store check
	storeCheck := checkStore(ctx, h.store)
	storeCheck["driver"] = h.driver
	checks["store"] = storeCheck
	if storeCheck["status"] != "up" {
		overallStatus = "degraded"
	}

	// Redis check; a disabled cache is not a failure
	redisCheck := checkRedis(ctx, h.rdb)
	checks["redis"] = redisCheck
	if redisCheck["status"] == "down" {
		overallStatus = "degraded"
	}

	checks["snapshot"] = checkSnapshot(h.snapshot)

	uptimeSeconds := int(time.Since(h.startAt).Seconds())

	resp := fiber.Map{
		"status":         overallStatus,
		"checks":         checks,
		"uptime_seconds": uptimeSeconds,
		"version":        "1.0.0",
	}

	status := fiber.StatusOK
	if overallStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
	}

	return c.Status(status).JSON(resp)
}

func checkStore(ctx context.Context, store Pinger) fiber.Map {
	start := time.Now()
	err := store.Ping(ctx)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return fiber.Map{
			"status":     "down",
			"latency_ms": latency,
			"error":      "connection failed",
		}
	}
	return fiber.Map{
		"status":     "up",
		"latency_ms": latency,
	}
}

func checkRedis(ctx context.Context, rdb *redis.Client) fiber.Map {
	if rdb == nil {
		return fiber.Map{
			"status": "disabled",
		}
	}

	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return fiber.Map{
			"status":     "down",
			"latency_ms": latency,
			"error":      "connection failed",
		}
	}
	return fiber.Map{
		"status":     "up",
		"latency_ms": latency,
	}
}

// checkSnapshot is informational: a missing snapshot means votes are refused,
// not that the process is unhealthy.
func checkSnapshot(src SnapshotSource) fiber.Map {
	if src == nil {
		return fiber.Map{"status": "disabled"}
	}
	st := src.State()
	switch {
	case st.Snapshot == nil:
		return fiber.Map{"status": "pending"}
	case !st.Live:
		return fiber.Map{"status": "cached", "fetched_at": st.Snapshot.FetchedAt}
	default:
		return fiber.Map{"status": "up", "fetched_at": st.Snapshot.FetchedAt}
	}
}
