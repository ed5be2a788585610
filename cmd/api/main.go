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

	"github.com/samirrijal/motolog/internal/adapters/http"
	natsadapter "github.com/samirrijal/motolog/internal/adapters/nats"
	"github.com/samirrijal/motolog/internal/adapters/push"
	"github.com/samirrijal/motolog/internal/adapters/storage"
	"github.com/samirrijal/motolog/internal/adapters/valkey"
	"github.com/samirrijal/motolog/internal/core/ports"
	"github.com/samirrijal/motolog/internal/core/tracking"
	"github.com/samirrijal/motolog/internal/core/usecases"
	"github.com/samirrijal/motolog/internal/pkg/config"
	"github.com/samirrijal/motolog/internal/pkg/logging"
	"github.com/samirrijal/motolog/internal/pkg/metrics"
	"github.com/samirrijal/motolog/internal/pkg/telemetry"
)

// version is set with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load("motolog-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Storage
	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer store.Close()

	// SQLite is embedded and migrates itself; Postgres goes through cmd/migrate.
	if store.Driver == "sqlite" {
		n, err := store.Migrate(ctx)
		if err != nil {
			log.Fatalf("migrate: %v", err)
		}
		if n > 0 {
			slog.Info("migrations applied", "count", n)
		}
	}

	deps := &http.Dependencies{DB: store, Version: version}

	// Cache
	var cache ports.CacheService
	if cfg.Valkey.Enabled {
		vc, err := valkey.New(cfg.Valkey.Addr)
		if err != nil {
			slog.Warn("valkey unavailable", "error", err)
		} else {
			defer vc.Close()
			cache = vc
			deps.Cache = vc
		}
	}

	// NATS
	var (
		events ports.EventPublisher
		pub    *natsadapter.Publisher
	)
	if cfg.NATS.Enabled {
		pub, err = natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			if cfg.Tracking.Source == "nats" {
				log.Fatalf("nats: %v", err)
			}
			slog.Warn("nats unavailable", "error", err)
		} else {
			defer pub.Close()
			events = pub
			deps.NATS = pub.Conn()
		}
	}

	// Sample source
	var source ports.SampleSource
	switch cfg.Tracking.Source {
	case "nats":
		source = natsadapter.NewSampleSource(pub.JetStream(), "")
	default:
		ps := push.NewSource(0)
		source = ps
		deps.Samples = ps
	}
	tracker := tracking.NewTracker(source, cfg.Tracking.Filter, cfg.Tracking.Device)

	// Use cases
	settingsSvc := usecases.NewSettingsService(store.Settings, cfg.Tracking.Filter)
	settingsSvc.OnFilterChange(tracker.SetConfig)

	journeySvc := usecases.NewJourneyService(store.Journeys, store.Points, settingsSvc, tracker, events, cache)
	journeySvc.SetAggregateConfig(cfg.Tracking.Stats)
	deps.Journeys = journeySvc
	deps.Settings = settingsSvc
	deps.Transactions = usecases.NewTransactionService(store.Transactions, cache)
	deps.Reports = usecases.NewReportService(store.Journeys, store.Transactions, cache)

	if resumed, err := journeySvc.Resume(ctx); err != nil {
		slog.Error("resume active journey", "error", err)
	} else if resumed {
		slog.Info("tracking resumed for active journey")
	}

	go journeySvc.RunLiveTicker(ctx, time.Duration(cfg.Tracking.LiveTickMs)*time.Millisecond)
	go reportPoolMetrics(ctx, store)

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "motolog API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, If-None-Match",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "storage", store.Driver, "source", cfg.Tracking.Source)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	// The active journey stays active; Resume picks it up on next start.
	tracker.Stop()
	cancel()

	slog.Info("server stopped")
}

// reportPoolMetrics refreshes the connection pool gauges until ctx is done.
func reportPoolMetrics(ctx context.Context, store *storage.Store) {
	if store.PoolStat() == nil {
		return
	}
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.UpdateDBPoolMetrics(store.PoolStat())
		}
	}
}
