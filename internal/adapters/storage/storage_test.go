package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/samirrijal/motolog/internal/core/domain"
	"github.com/samirrijal/motolog/internal/pkg/config"
)

func TestOpen_SQLite(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, config.StorageConfig{Driver: "sqlite", SQLite: config.SQLiteConfig{Path: ":memory:"}})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	if err := s.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
	n, err := s.Migrate(ctx)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if n == 0 {
		t.Error("expected migrations to run on a fresh database")
	}
	if s.PoolStat() != nil {
		t.Error("sqlite store should not report pool stats")
	}

	if err := s.Settings.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := s.Journeys.GetByID(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), config.StorageConfig{Driver: "mysql"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
