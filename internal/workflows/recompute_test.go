package workflows_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"

	"github.com/samirrijal/motolog/internal/core/domain"
	"github.com/samirrijal/motolog/internal/workflows"
)

type fakeJourneys struct {
	mu       sync.Mutex
	journeys []domain.Journey
	stats    map[string]domain.JourneyStats
	errs     map[string]error
	calls    map[string]int
	period   domain.Period
	stopCfgs map[string]*domain.AggregateConfig
}

func (f *fakeJourneys) List(_ context.Context, period domain.Period, _, _ int) ([]domain.Journey, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.period = period
	return f.journeys, len(f.journeys), nil
}

func (f *fakeJourneys) RecomputeWith(_ context.Context, id string, cfg *domain.AggregateConfig) (*domain.JourneyStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
		f.stopCfgs = map[string]*domain.AggregateConfig{}
	}
	f.calls[id]++
	f.stopCfgs[id] = cfg
	if err := f.errs[id]; err != nil {
		return nil, err
	}
	s := f.stats[id]
	return &s, nil
}

func newEnv(t *testing.T, fake *fakeJourneys) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(workflows.RecomputeStatsWorkflow)

	acts := &workflows.RecomputeActivities{Journeys: fake}
	env.RegisterActivityWithOptions(acts.ListEndedJourneys, activity.RegisterOptions{Name: workflows.ActivityListEndedJourneys})
	env.RegisterActivityWithOptions(acts.RecomputeJourney, activity.RegisterOptions{Name: workflows.ActivityRecomputeJourney})
	return env
}

func TestRecomputeStatsWorkflow_ExplicitIDs(t *testing.T) {
	fake := &fakeJourneys{stats: map[string]domain.JourneyStats{
		"a": {DistanceM: 1000, PointsCount: 10},
		"b": {DistanceM: 2500, PointsCount: 20},
	}}
	env := newEnv(t, fake)

	env.ExecuteWorkflow(workflows.RecomputeStatsWorkflow, workflows.RecomputeInput{JourneyIDs: []string{"a", "b"}})

	if !env.IsWorkflowCompleted() {
		t.Fatal("workflow did not complete")
	}
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error: %v", err)
	}
	var res workflows.RecomputeResult
	if err := env.GetWorkflowResult(&res); err != nil {
		t.Fatal(err)
	}
	if res.Recomputed != 2 || res.DistanceM != 3500 || len(res.Failed) != 0 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestRecomputeStatsWorkflow_PeriodSkipsActive(t *testing.T) {
	ended := time.Now()
	fake := &fakeJourneys{
		journeys: []domain.Journey{
			{ID: "active"},
			{ID: "done", EndedAt: &ended},
		},
		stats: map[string]domain.JourneyStats{"done": {DistanceM: 42}},
	}
	env := newEnv(t, fake)

	env.ExecuteWorkflow(workflows.RecomputeStatsWorkflow, workflows.RecomputeInput{Period: "30d"})

	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error: %v", err)
	}
	var res workflows.RecomputeResult
	_ = env.GetWorkflowResult(&res)
	if res.Recomputed != 1 || res.DistanceM != 42 {
		t.Errorf("unexpected result: %+v", res)
	}
	if fake.period != domain.Period30Days {
		t.Errorf("expected period 30d, got %q", fake.period)
	}
	if fake.calls["active"] != 0 {
		t.Error("active journey must not be recomputed")
	}
}

func TestRecomputeStatsWorkflow_FailuresAreRecorded(t *testing.T) {
	fake := &fakeJourneys{
		stats: map[string]domain.JourneyStats{"ok": {DistanceM: 10}},
		errs: map[string]error{
			"gone":  domain.ErrNotFound,
			"flaky": errors.New("database is locked"),
		},
	}
	env := newEnv(t, fake)

	env.ExecuteWorkflow(workflows.RecomputeStatsWorkflow, workflows.RecomputeInput{JourneyIDs: []string{"gone", "flaky", "ok"}})

	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error: %v", err)
	}
	var res workflows.RecomputeResult
	_ = env.GetWorkflowResult(&res)
	if res.Recomputed != 1 || len(res.Failed) != 2 {
		t.Errorf("unexpected result: %+v", res)
	}
	if fake.calls["gone"] != 1 {
		t.Errorf("not found must not be retried, got %d attempts", fake.calls["gone"])
	}
	if fake.calls["flaky"] != 3 {
		t.Errorf("transient errors should be retried 3 times, got %d attempts", fake.calls["flaky"])
	}
}

func TestRecomputeStatsWorkflow_BadPeriod(t *testing.T) {
	env := newEnv(t, &fakeJourneys{})
	env.ExecuteWorkflow(workflows.RecomputeStatsWorkflow, workflows.RecomputeInput{Period: "decade"})

	if err := env.GetWorkflowError(); err == nil {
		t.Fatal("expected workflow error for an unknown period")
	}
}

func TestRecomputeStatsWorkflow_PassesStopThresholds(t *testing.T) {
	fake := &fakeJourneys{stats: map[string]domain.JourneyStats{"a": {DistanceM: 10}}}
	env := newEnv(t, fake)

	cfg := domain.AggregateConfig{StopSpeedMps: 1.2, StopWindowSec: 60}
	env.ExecuteWorkflow(workflows.RecomputeStatsWorkflow, workflows.RecomputeInput{JourneyIDs: []string{"a"}, Stats: &cfg})

	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error: %v", err)
	}
	got := fake.stopCfgs["a"]
	if got == nil || *got != cfg {
		t.Errorf("expected thresholds %+v passed to the activity, got %v", cfg, got)
	}
}

func TestRecomputeStatsWorkflow_NilThresholdsUseWorkerDefaults(t *testing.T) {
	fake := &fakeJourneys{stats: map[string]domain.JourneyStats{"a": {DistanceM: 10}}}
	env := newEnv(t, fake)

	env.ExecuteWorkflow(workflows.RecomputeStatsWorkflow, workflows.RecomputeInput{JourneyIDs: []string{"a"}})

	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error: %v", err)
	}
	if got, ok := fake.stopCfgs["a"]; !ok || got != nil {
		t.Errorf("expected nil thresholds, got %v (called=%v)", got, ok)
	}
}
