// Package storage opens the repository backend selected by configuration.
package storage

import (
	"context"
	"fmt"

	"github.com/samirrijal/motolog/internal/adapters/postgres"
	"github.com/samirrijal/motolog/internal/adapters/sqlite"
	"github.com/samirrijal/motolog/internal/core/ports"
	"github.com/samirrijal/motolog/internal/pkg/config"
	"github.com/samirrijal/motolog/internal/pkg/metrics"
)

// Store bundles the repositories of one backend.
type Store struct {
	Driver       string
	Journeys     ports.JourneyRepository
	Points       ports.PointRepository
	Transactions ports.TransactionRepository
	Settings     ports.SettingsRepository

	ping    func(context.Context) error
	migrate func(context.Context) (int, error)
	close   func()
	pool    func() metrics.PoolStat
}

// Open connects to the configured backend. It does not migrate.
func Open(ctx context.Context, cfg config.StorageConfig) (*Store, error) {
	switch cfg.Driver {
	case "sqlite":
		db, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		return &Store{
			Driver:       cfg.Driver,
			Journeys:     sqlite.NewJourneyRepo(db),
			Points:       sqlite.NewPointRepo(db),
			Transactions: sqlite.NewTransactionRepo(db),
			Settings:     sqlite.NewSettingsRepo(db),
			ping:         db.Ping,
			migrate:      db.Migrate,
			close:        func() { _ = db.Close() },
		}, nil
	case "postgres":
		db, err := postgres.New(ctx, cfg.Postgres.DSN())
		if err != nil {
			return nil, err
		}
		return &Store{
			Driver:       cfg.Driver,
			Journeys:     postgres.NewJourneyRepo(db.Pool),
			Points:       postgres.NewPointRepo(db.Pool),
			Transactions: postgres.NewTransactionRepo(db.Pool),
			Settings:     postgres.NewSettingsRepo(db.Pool),
			ping:         db.Ping,
			migrate:      db.Migrate,
			close:        db.Close,
			pool:         func() metrics.PoolStat { return db.Pool.Stat() },
		}, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// Ping reports whether the backend is reachable.
func (s *Store) Ping(ctx context.Context) error { return s.ping(ctx) }

// Migrate applies pending schema migrations and returns how many ran.
func (s *Store) Migrate(ctx context.Context) (int, error) { return s.migrate(ctx) }

// Close releases the backend's connections.
func (s *Store) Close() { s.close() }

// PoolStat returns connection pool statistics, or nil when the backend has
// no pgx pool.
func (s *Store) PoolStat() metrics.PoolStat {
	if s.pool == nil {
		return nil
	}
	return s.pool()
}
