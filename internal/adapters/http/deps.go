package http

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/motolog/internal/core/domain"
	"github.com/samirrijal/motolog/internal/core/usecases"
)

// Pinger is a dependency that can report whether it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SampleSink accepts readings posted by a device.
type SampleSink interface {
	Push(ctx context.Context, readings ...domain.Reading) error
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Journeys     *usecases.JourneyService
	Settings     *usecases.SettingsService
	Transactions *usecases.TransactionService
	Reports      *usecases.ReportService
	Samples      SampleSink // nil unless tracking.source is push
	NATS         *nats.Conn
	DB           Pinger
	Cache        Pinger
	Version      string
}
