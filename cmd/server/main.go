package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/pixelrelay/vote-system/internal/app"
	"github.com/pixelrelay/vote-system/internal/config"
	"github.com/pixelrelay/vote-system/internal/handler"
	"github.com/pixelrelay/vote-system/internal/metrics"
	"github.com/pixelrelay/vote-system/internal/middleware"
	"github.com/pixelrelay/vote-system/internal/router"
)

func main() {
	cfg := config.Load()
	middleware.InitLogger(cfg.LogLevel, "talentvote-api")
	log := middleware.Logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise voting stack")
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error().Err(err).Msg("shutdown: close failed")
		}
	}()

	metrics.Init(a.Pool())

	if a.Refresh.WarmStart(ctx) {
		log.Info().Msg("serving cached snapshot until the first live fetch")
	}
	sub := a.Refresh.Start(ctx, cfg.RefreshInterval)
	defer a.Refresh.Stop(sub)

	srv := fiber.New(fiber.Config{
		AppName:      "TalentVote API",
		ServerHeader: "TalentVote",
	})

	router.Setup(srv, &router.Handlers{
		Health:   handler.NewHealthHandler(a.Store, cfg.StoreDriver, a.Redis(), a.Refresh),
		Vote:     handler.NewVoteHandler(a.Engine, log),
		Snapshot: handler.NewSnapshotHandler(a.Refresh),
	}, router.Options{
		CORSOrigins:    cfg.CORSOrigins,
		AllowVoteReset: cfg.AllowVoteReset,
	})

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutdown signal received")
		if err := srv.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error().Err(err).Msg("shutdown: server did not stop cleanly")
		}
	}()

	log.Info().
		Str("port", cfg.Port).
		Str("env", cfg.Environment).
		Str("store", cfg.StoreDriver).
		Bool("vote_reset", cfg.AllowVoteReset).
		Msg("TalentVote backend starting")

	if err := srv.Listen(":"+cfg.Port, fiber.ListenConfig{DisableStartupMessage: cfg.IsProduction()}); err != nil {
		log.Error().Err(err).Msg("server stopped")
	}
}
