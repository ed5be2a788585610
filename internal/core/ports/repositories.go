package ports

import (
	"context"
	"time"

	"github.com/samirrijal/motolog/internal/core/domain"
)

// JourneyRepository persists journeys.
type JourneyRepository interface {
	Create(ctx context.Context, j *domain.Journey) error
	GetByID(ctx context.Context, id string) (*domain.Journey, error)
	// ListStartedBetween returns journeys started inside r, newest first.
	ListStartedBetween(ctx context.Context, r domain.TimeRange) ([]domain.Journey, error)
	Update(ctx context.Context, j *domain.Journey) error
	// Delete removes the journey and its points.
	Delete(ctx context.Context, id string) error
}

// PointRepository persists accepted track points.
type PointRepository interface {
	Add(ctx context.Context, p *domain.TrackPoint) error
	// ListByJourney returns the journey's points ordered by timestamp.
	ListByJourney(ctx context.Context, journeyID string) ([]domain.TrackPoint, error)
}

// TransactionRepository persists income and expense entries.
type TransactionRepository interface {
	Create(ctx context.Context, t *domain.Transaction) error
	GetByID(ctx context.Context, id string) (*domain.Transaction, error)
	// ListBetween returns transactions with from <= ts <= to, newest first.
	ListBetween(ctx context.Context, from, to time.Time) ([]domain.Transaction, error)
	Delete(ctx context.Context, id string) error
}

// SettingsRepository is a string key/value store.
type SettingsRepository interface {
	// Get returns domain.ErrNotFound for a missing key.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// Delete of a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
