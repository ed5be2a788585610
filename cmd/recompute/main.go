package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"

	"github.com/samirrijal/motolog/internal/adapters/push"
	"github.com/samirrijal/motolog/internal/adapters/storage"
	"github.com/samirrijal/motolog/internal/adapters/valkey"
	"github.com/samirrijal/motolog/internal/core/ports"
	"github.com/samirrijal/motolog/internal/core/tracking"
	"github.com/samirrijal/motolog/internal/core/usecases"
	"github.com/samirrijal/motolog/internal/pkg/config"
	"github.com/samirrijal/motolog/internal/pkg/logging"
	"github.com/samirrijal/motolog/internal/workflows"
)

func main() {
	enqueue := flag.Bool("enqueue", false, "start a recompute workflow instead of running the worker")
	period := flag.String("period", "all", "period whose ended journeys are recomputed (today|7d|30d|90d|year|all)")
	journeys := flag.String("journeys", "", "comma-separated journey IDs; overrides -period")
	flag.Parse()

	cfg, err := config.Load("motolog-recompute")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    tlog.NewStructuredLogger(slog.Default()),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	if *enqueue {
		// The enqueuing side's thresholds win over the worker's.
		stats := cfg.Tracking.Stats
		input := workflows.RecomputeInput{Period: *period, Stats: &stats}
		if *journeys != "" {
			for _, id := range strings.Split(*journeys, ",") {
				if id = strings.TrimSpace(id); id != "" {
					input.JourneyIDs = append(input.JourneyIDs, id)
				}
			}
		}
		run, err := c.ExecuteWorkflow(context.Background(), client.StartWorkflowOptions{
			ID:        "recompute-" + uuid.NewString(),
			TaskQueue: cfg.Temporal.TaskQueue,
		}, workflows.RecomputeStatsWorkflow, input)
		if err != nil {
			log.Fatalf("start workflow: %v", err)
		}
		slog.Info("recompute workflow started", "workflow_id", run.GetID(), "run_id", run.GetRunID())
		return
	}

	ctx := context.Background()
	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer store.Close()

	var cache ports.CacheService
	if cfg.Valkey.Enabled {
		vc, err := valkey.New(cfg.Valkey.Addr)
		if err != nil {
			slog.Warn("valkey unavailable, reports will not be invalidated", "error", err)
		} else {
			defer vc.Close()
			cache = vc
		}
	}

	// The worker never records; its tracker stays stopped.
	tracker := tracking.NewTracker(push.NewSource(0), cfg.Tracking.Filter, cfg.Tracking.Device)
	settingsSvc := usecases.NewSettingsService(store.Settings, cfg.Tracking.Filter)
	journeySvc := usecases.NewJourneyService(store.Journeys, store.Points, settingsSvc, tracker, nil, cache)
	journeySvc.SetAggregateConfig(cfg.Tracking.Stats)

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	acts := &workflows.RecomputeActivities{Journeys: journeySvc}
	w.RegisterWorkflow(workflows.RecomputeStatsWorkflow)
	w.RegisterActivityWithOptions(acts.ListEndedJourneys, activity.RegisterOptions{Name: workflows.ActivityListEndedJourneys})
	w.RegisterActivityWithOptions(acts.RecomputeJourney, activity.RegisterOptions{Name: workflows.ActivityRecomputeJourney})

	slog.Info("recompute worker started", "task_queue", cfg.Temporal.TaskQueue, "storage", store.Driver)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
