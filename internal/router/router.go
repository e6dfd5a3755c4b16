package router

import (
	"github.com/gofiber/fiber/v3"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/pixelrelay/vote-system/internal/handler"
	"github.com/pixelrelay/vote-system/internal/middleware"
)

// Handlers holds all handler instances needed by the router.
type Handlers struct {
	Health   *handler.HealthHandler
	Vote     *handler.VoteHandler
	Snapshot *handler.SnapshotHandler
}

// Options controls which optional routes are mounted.
type Options struct {
	CORSOrigins    string
	AllowVoteReset bool
}

// Setup configures the middleware stack and all API routes on the given Fiber app.
func Setup(app *fiber.App, h *Handlers, opts Options) {
	// Middleware stack (order matters)
	app.Use(recoverer.New())
	app.Use(middleware.NewRequestLogger())
	app.Use(handler.MetricsMiddleware())
	app.Use(middleware.NewCORS(opts.CORSOrigins))

	// Probes and metrics (before API group, no rate limit)
	app.Get("/health/live", h.Health.Live)
	app.Get("/health/ready", h.Health.Ready)
	app.Get("/metrics", handler.MetricsHandler())

	// API routes
	api := app.Group("/api")
	read := middleware.NewReadRateLimiter().Handler()

	// Snapshot routes
	api.Get("/snapshot", read, h.Snapshot.Get)
	api.Post("/snapshot/refetch", middleware.NewRefetchRateLimiter().Handler(), h.Snapshot.Refetch)

	// Vote routes
	submit := middleware.NewVoteSubmitRateLimiter().Handler()
	api.Get("/contestants/:contestantId/vote", read, h.Vote.Status)
	api.Post("/contestants/:contestantId/vote", submit, h.Vote.Submit)
	api.Post("/contestants/:contestantId/vote/retry", submit, h.Vote.Retry)

	if opts.AllowVoteReset {
		api.Delete("/vote", middleware.NewVoteResetRateLimiter().Handler(), h.Vote.Reset)
	}
}
