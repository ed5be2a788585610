package workflows

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/motolog/internal/core/domain"
	"github.com/samirrijal/motolog/internal/core/usecases"
)

// Activity names, shared by the workflow and the worker registration.
const (
	ActivityListEndedJourneys = "ListEndedJourneys"
	ActivityRecomputeJourney  = "RecomputeJourney"
)

// JourneyRecomputer is the part of the journey service the activities use.
type JourneyRecomputer interface {
	List(ctx context.Context, period domain.Period, offset, limit int) ([]domain.Journey, int, error)
	RecomputeWith(ctx context.Context, id string, cfg *domain.AggregateConfig) (*domain.JourneyStats, error)
}

// RecomputeActivities holds the activity implementations for the recompute workflow.
type RecomputeActivities struct {
	Journeys JourneyRecomputer
}

// ListEndedJourneys returns the IDs of the ended journeys started in period.
func (a *RecomputeActivities) ListEndedJourneys(ctx context.Context, period string) ([]string, error) {
	p, err := usecases.ParsePeriod(period)
	if err != nil {
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), "invalid_period", err)
	}

	journeys, _, err := a.Journeys.List(ctx, p, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("list journeys: %w", err)
	}

	ids := make([]string, 0, len(journeys))
	for _, j := range journeys {
		if !j.Active() {
			ids = append(ids, j.ID)
		}
	}
	return ids, nil
}

// RecomputeJourney re-aggregates one journey with the given stop thresholds,
// or the worker's configured ones when cfg is nil. Missing and still-active
// journeys fail without retry.
func (a *RecomputeActivities) RecomputeJourney(ctx context.Context, journeyID string, cfg *domain.AggregateConfig) (domain.JourneyStats, error) {
	stats, err := a.Journeys.RecomputeWith(ctx, journeyID, cfg)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return domain.JourneyStats{}, temporal.NewNonRetryableApplicationError(err.Error(), "not_found", err)
	case errors.Is(err, domain.ErrJourneyActive):
		return domain.JourneyStats{}, temporal.NewNonRetryableApplicationError(err.Error(), "journey_active", err)
	case err != nil:
		return domain.JourneyStats{}, fmt.Errorf("recompute %s: %w", journeyID, err)
	}

	activity.GetLogger(ctx).Info("journey recomputed", "journey_id", journeyID, "points", stats.PointsCount)
	return *stats, nil
}
