package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/bluebikes/internal/adapters/http"
	natsadapter "github.com/samirrijal/bluebikes/internal/adapters/nats"
	"github.com/samirrijal/bluebikes/internal/adapters/valkey"
	"github.com/samirrijal/bluebikes/internal/bootstrap"
	"github.com/samirrijal/bluebikes/internal/core/ports"
	"github.com/samirrijal/bluebikes/internal/core/usecases"
	"github.com/samirrijal/bluebikes/internal/pkg/config"
	"github.com/samirrijal/bluebikes/internal/pkg/logging"
	"github.com/samirrijal/bluebikes/internal/pkg/telemetry"
)

var version = "dev"

func main() {
	cfg, err := config.Load("bluebikes-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Pipeline: the API serves results; charts, export and events stay with the CLI.
	pipeline, err := bootstrap.NewPipeline(ctx, cfg, bootstrap.ServerOptions())
	if err != nil {
		log.Fatalf("pipeline: %v", err)
	}
	defer pipeline.Close()

	// Cache
	var cache *valkey.Cache
	if cfg.Valkey.Addr != "" {
		c, err := valkey.New(cfg.Valkey.Addr, cfg.Valkey.KeyPrefix)
		if err != nil {
			slog.Warn("valkey unavailable", "error", err)
		} else {
			cache = c
			defer cache.Close()
		}
	}

	reports := usecases.NewReportService(cfg.Analysis.TargetStation, cacheService(cache), pipeline.Service.Run)

	// Initial run. A failure leaves the server up but not ready.
	if _, err := reports.Reload(ctx); err != nil {
		slog.Error("initial analysis failed", "error", err)
	}

	// NATS: relay for websocket clients, and reload when another process
	// (usually the CLI) completes a run.
	deps := &http.Dependencies{Reports: reports, DB: pipeline.DB, Cache: cache, Version: version}
	if cfg.NATS.URL != "" {
		nc, err := natsadapter.RawConn(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats ws conn unavailable", "error", err)
		} else {
			deps.NATS = nc
			defer nc.Close()
		}

		sub, err := natsadapter.NewSubscriber(cfg.NATS.URL, cfg.NATS.Durable)
		if err != nil {
			slog.Warn("nats subscriber unavailable", "error", err)
		} else {
			defer sub.Close()
			if err := bootstrap.FollowAnalyses(ctx, sub, reports); err != nil {
				slog.Warn("subscribe analysis events failed", "error", err)
			}
		}
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024,
		AppName:      "Bluebikes API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
		MaxAge:       3600,
	}))

	http.SetupRoutes(app, deps, http.RouteOptions{RateLimit: cfg.Server.RateLimit})

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

// cacheService avoids storing a typed nil *valkey.Cache in the interface.
func cacheService(c *valkey.Cache) ports.CacheService {
	if c == nil {
		return nil
	}
	return c
}
