package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/samirrijal/motolog/internal/adapters/storage"
	"github.com/samirrijal/motolog/internal/pkg/config"
	"github.com/samirrijal/motolog/internal/pkg/logging"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up>")
	}

	cfg, err := config.Load("motolog-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx := context.Background()
	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer store.Close()

	switch os.Args[1] {
	case "up":
		n, err := store.Migrate(ctx)
		if err != nil {
			log.Fatalf("migrate: %v", err)
		}
		slog.Info("all migrations applied", "driver", store.Driver, "applied", n)
	case "down":
		log.Println("down migrations are not supported; restore from backup instead")
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}
}
