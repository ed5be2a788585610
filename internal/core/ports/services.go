package ports

import (
	"context"

	"github.com/samirrijal/motolog/internal/core/domain"
)

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishJourneyEvent(ctx context.Context, event *domain.JourneyEvent) error
	PublishPoint(ctx context.Context, p *domain.TrackPoint) error
	PublishStatus(ctx context.Context, event *domain.StatusEvent) error
	PublishLive(ctx context.Context, live *domain.LiveStats) error
}

// SampleSource streams readings until ctx is cancelled. The returned channel
// is closed when the stream ends.
type SampleSource interface {
	Subscribe(ctx context.Context, opts domain.SourceOptions) (<-chan domain.Reading, error)
}

// Tracker turns a sample stream into accepted points and status events.
type Tracker interface {
	Start(ctx context.Context) error
	Stop()
	IsRunning() bool
	SetConfig(cfg domain.FilterConfig)
	SetHandlers(onStatus func(domain.StatusEvent), onAccepted func(domain.Sample))
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
