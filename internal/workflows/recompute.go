package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/motolog/internal/core/domain"
)

// RecomputeInput selects the journeys to re-aggregate: the explicit IDs,
// or every ended journey of Period when JourneyIDs is empty. Stats overrides
// the worker's stop thresholds.
type RecomputeInput struct {
	JourneyIDs []string
	Period     string
	Stats      *domain.AggregateConfig
}

// RecomputeResult reports what the workflow did.
type RecomputeResult struct {
	Recomputed int
	DistanceM  float64
	Failed     []string
}

// RecomputeStatsWorkflow re-aggregates journeys one at a time. A journey
// that fails is recorded and skipped; the workflow itself only fails when
// the journey list cannot be loaded.
func RecomputeStatsWorkflow(ctx workflow.Context, input RecomputeInput) (RecomputeResult, error) {
	logger := workflow.GetLogger(ctx)

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: time.Second,
			MaximumAttempts: 3,
		},
	})

	ids := input.JourneyIDs
	if len(ids) == 0 {
		if err := workflow.ExecuteActivity(ctx, ActivityListEndedJourneys, input.Period).Get(ctx, &ids); err != nil {
			return RecomputeResult{}, err
		}
	}
	logger.Info("recomputing journeys", "count", len(ids))

	var result RecomputeResult
	for _, id := range ids {
		var stats domain.JourneyStats
		if err := workflow.ExecuteActivity(ctx, ActivityRecomputeJourney, id, input.Stats).Get(ctx, &stats); err != nil {
			logger.Warn("recompute failed", "journey_id", id, "error", err)
			result.Failed = append(result.Failed, id)
			continue
		}
		result.Recomputed++
		result.DistanceM += stats.DistanceM
	}

	logger.Info("recompute finished", "recomputed", result.Recomputed, "failed", len(result.Failed))
	return result, nil
}
