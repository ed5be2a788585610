package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	natsadapter "github.com/samirrijal/motolog/internal/adapters/nats"
	"github.com/samirrijal/motolog/internal/core/domain"
	"github.com/samirrijal/motolog/internal/pkg/config"
	"github.com/samirrijal/motolog/internal/pkg/logging"
)

func main() {
	device := flag.String("device", "replay", "device name in the sample subject")
	speed := flag.Float64("speed", 1, "playback speed factor")
	keepTs := flag.Bool("keep-ts", false, "publish the recorded timestamps instead of shifting them to now")
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatal("usage: replay [flags] <track.csv>")
	}

	cfg, err := config.Load("motolog-replay")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	f, err := os.Open(flag.Arg(0))
	if err != nil {
		log.Fatalf("open track: %v", err)
	}
	samples, err := readTrack(f)
	f.Close()
	if err != nil {
		log.Fatalf("read track: %v", err)
	}
	if !*keepTs {
		rebase(samples, time.Now())
	}

	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer pub.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("replaying track", "file", flag.Arg(0), "samples", len(samples), "speed", *speed, "device", *device)

	sent := 0
	for i, wait := range schedule(samples, *speed) {
		if wait > 0 {
			select {
			case <-ctx.Done():
				slog.Info("replay interrupted", "sent", sent)
				return
			case <-time.After(wait):
			}
		}
		s := samples[i]
		if err := pub.PublishReading(ctx, *device, domain.Reading{Sample: &s}); err != nil {
			slog.Error("publish sample", "index", i, "error", err)
			continue
		}
		sent++
	}
	slog.Info("replay finished", "sent", sent)
}
