package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/motolog/internal/core/domain"
	"github.com/samirrijal/motolog/internal/core/ports"
	"github.com/samirrijal/motolog/internal/core/tracking"
	"github.com/samirrijal/motolog/internal/pkg/geospatial"
	"github.com/samirrijal/motolog/internal/pkg/metrics"
	"github.com/samirrijal/motolog/internal/pkg/telemetry"
)

const (
	callbackTimeout = 5 * time.Second
	// singlePointPadM frames a journey whose bounds collapse to one point.
	singlePointPadM = 50.0
)

// JourneyService owns the journey lifecycle and receives the tracker's
// accepted samples.
type JourneyService struct {
	journeys ports.JourneyRepository
	points   ports.PointRepository
	settings *SettingsService
	tracker  ports.Tracker
	events   ports.EventPublisher
	cache    ports.CacheService
	now      func() time.Time
	stopCfg  atomic.Pointer[domain.AggregateConfig]

	// mu serializes Start, Stop, Resume and Delete.
	mu     sync.Mutex
	active atomic.Pointer[domain.Journey]

	// buf holds the accepted points of the active journey for live stats.
	bufMu sync.RWMutex
	buf   []domain.TrackPoint
}

// NewJourneyService creates a JourneyService and registers it as the
// tracker's handler. events and cache may be nil.
func NewJourneyService(
	journeys ports.JourneyRepository,
	points ports.PointRepository,
	settings *SettingsService,
	tracker ports.Tracker,
	events ports.EventPublisher,
	cache ports.CacheService,
) *JourneyService {
	s := &JourneyService{
		journeys: journeys,
		points:   points,
		settings: settings,
		tracker:  tracker,
		events:   events,
		cache:    cache,
		now:      time.Now,
	}
	s.SetAggregateConfig(domain.DefaultAggregateConfig())
	tracker.SetHandlers(s.HandleStatus, s.HandleAccepted)
	return s
}

// SetAggregateConfig replaces the stop thresholds used by Stop and Recompute.
func (s *JourneyService) SetAggregateConfig(cfg domain.AggregateConfig) {
	s.stopCfg.Store(&cfg)
}

// AggregateConfig returns the stop thresholds in use.
func (s *JourneyService) AggregateConfig() domain.AggregateConfig {
	return *s.stopCfg.Load()
}

// Active returns the journey being recorded, or nil.
func (s *JourneyService) Active() *domain.Journey {
	j := s.active.Load()
	if j == nil {
		return nil
	}
	cp := *j
	return &cp
}

// Start creates a journey, marks it active and starts the tracker.
func (s *JourneyService) Start(ctx context.Context, name string) (*domain.Journey, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanJourneyStart)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active.Load() != nil {
		return nil, domain.ErrJourneyActive
	}

	now := s.now()
	j := &domain.Journey{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(name),
		StartedAt: now,
		CreatedAt: now,
	}
	if err := s.journeys.Create(ctx, j); err != nil {
		return nil, fmt.Errorf("create journey: %w", err)
	}
	if err := s.settings.SetActiveJourneyID(ctx, j.ID); err != nil {
		// Without the pointer the row would look active forever.
		if derr := s.journeys.Delete(ctx, j.ID); derr != nil {
			slog.Error("remove unrecorded journey", "journey_id", j.ID, "error", derr)
		}
		return nil, fmt.Errorf("set active journey: %w", err)
	}
	span.SetAttributes(attribute.String("journey.id", j.ID))

	s.activate(j, nil)
	if err := s.startTracker(ctx); err != nil {
		// The journey stays active; Resume or a later Start of the tracker picks it up.
		slog.Error("start tracker", "journey_id", j.ID, "error", err)
	}

	s.publishJourney(ctx, domain.JourneyStarted, j.ID, nil)
	slog.Info("journey started", "journey_id", j.ID)
	out := *j
	return &out, nil
}

// Stop stops the tracker, aggregates the active journey's points and
// persists the stats.
func (s *JourneyService) Stop(ctx context.Context) (*domain.Journey, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanJourneyStop)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	active := s.active.Load()
	if active == nil {
		return nil, domain.ErrNoActiveJourney
	}
	span.SetAttributes(attribute.String("journey.id", active.ID))

	// No accepted sample can land after this returns.
	s.tracker.Stop()

	j := *active
	stats, err := s.aggregate(ctx, j.ID, s.AggregateConfig())
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	ended := s.now()
	j.EndedAt = &ended
	j.Stats = &stats
	if err := s.journeys.Update(ctx, &j); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("update journey: %w", err)
	}
	if err := s.settings.ClearActiveJourneyID(ctx); err != nil {
		slog.Warn("clear active journey pointer", "journey_id", j.ID, "error", err)
	}

	s.deactivate()
	metrics.JourneysStopped.Inc()
	metrics.JourneyDistance.Observe(stats.DistanceM)
	invalidateReports(ctx, s.cache)
	s.publishJourney(ctx, domain.JourneyStopped, j.ID, &stats)

	slog.Info("journey stopped",
		"journey_id", j.ID,
		"distance_m", stats.DistanceM,
		"moving_sec", stats.MovingSec,
		"stopped_sec", stats.StoppedSec,
		"points", stats.PointsCount,
	)
	return &j, nil
}

// Resume restores the active journey recorded in settings, typically at
// startup. A pointer to an ended or missing journey is cleared. It reports
// whether a journey was resumed.
func (s *JourneyService) Resume(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active.Load() != nil {
		return true, s.startTracker(ctx)
	}

	id, err := s.settings.ActiveJourneyID(ctx)
	if err != nil || id == "" {
		return false, err
	}

	j, err := s.journeys.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && !j.Active()) {
		slog.Info("dropping stale active journey pointer", "journey_id", id)
		return false, s.settings.ClearActiveJourneyID(ctx)
	}
	if err != nil {
		return false, fmt.Errorf("get active journey: %w", err)
	}

	pts, err := s.points.ListByJourney(ctx, j.ID)
	if err != nil {
		return false, fmt.Errorf("list points: %w", err)
	}
	tracking.SortByTime(pts)

	s.activate(j, pts)
	if err := s.startTracker(ctx); err != nil {
		return true, err
	}

	s.publishJourney(ctx, domain.JourneyResumed, j.ID, nil)
	slog.Info("journey resumed", "journey_id", j.ID, "points", len(pts))
	return true, nil
}

// Live returns the running stats of the active journey at now.
func (s *JourneyService) Live(now time.Time) (*domain.LiveStats, error) {
	j := s.active.Load()
	if j == nil {
		return nil, domain.ErrNoActiveJourney
	}

	s.bufMu.RLock()
	live := tracking.Live(j, s.buf, now)
	s.bufMu.RUnlock()

	live.Tracking = s.tracker.IsRunning()
	return &live, nil
}

// RunLiveTicker publishes the live stats of the active journey every
// interval until ctx is done.
func (s *JourneyService) RunLiveTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.events == nil {
				continue
			}
			live, err := s.Live(s.now())
			if err != nil {
				continue
			}
			if err := s.events.PublishLive(ctx, live); err != nil {
				slog.Debug("publish live stats", "error", err)
			}
		}
	}
}

// Get returns a journey by ID.
func (s *JourneyService) Get(ctx context.Context, id string) (*domain.Journey, error) {
	return s.journeys.GetByID(ctx, id)
}

// List returns the journeys started in period, newest first, and the total
// before pagination.
func (s *JourneyService) List(ctx context.Context, period domain.Period, offset, limit int) ([]domain.Journey, int, error) {
	r := RangeForPeriod(period, s.now())
	all, err := s.journeys.ListStartedBetween(ctx, r)
	if err != nil {
		return nil, 0, fmt.Errorf("list journeys: %w", err)
	}

	total := len(all)
	if offset >= total {
		return []domain.Journey{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return all[offset:end], total, nil
}

// Points returns the accepted points of a journey in time order.
func (s *JourneyService) Points(ctx context.Context, id string) ([]domain.TrackPoint, error) {
	if _, err := s.journeys.GetByID(ctx, id); err != nil {
		return nil, err
	}
	pts, err := s.points.ListByJourney(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list points: %w", err)
	}
	tracking.SortByTime(pts)
	return pts, nil
}

// Bounds returns the rectangle covering a journey's points.
func (s *JourneyService) Bounds(ctx context.Context, id string) (domain.Bounds, error) {
	pts, err := s.Points(ctx, id)
	if err != nil {
		return domain.Bounds{}, err
	}

	geo := make([]domain.GeoPoint, len(pts))
	for i, p := range pts {
		geo[i] = domain.GeoPoint{Lat: p.Lat, Lon: p.Lon}
	}
	b, ok := geospatial.Bounds(geo)
	if !ok {
		return domain.Bounds{}, fmt.Errorf("journey %s has no points: %w", id, domain.ErrNotFound)
	}
	if b.MinLat == b.MaxLat && b.MinLon == b.MaxLon {
		minLat, minLon, maxLat, maxLon := geospatial.BoundingBox(b.MinLat, b.MinLon, singlePointPadM)
		b = domain.Bounds{MinLat: minLat, MinLon: minLon, MaxLat: maxLat, MaxLon: maxLon}
	}
	return b, nil
}

// Update changes a journey's name and notes. Nothing else is editable.
func (s *JourneyService) Update(ctx context.Context, id, name, notes string) (*domain.Journey, error) {
	// Serialized with Stop so its copy of the active journey carries the edit.
	s.mu.Lock()
	defer s.mu.Unlock()

	j, err := s.journeys.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	j.Name = strings.TrimSpace(name)
	j.Notes = strings.TrimSpace(notes)
	if err := s.journeys.Update(ctx, j); err != nil {
		return nil, fmt.Errorf("update journey: %w", err)
	}

	if a := s.active.Load(); a != nil && a.ID == id {
		cp := *a
		cp.Name, cp.Notes = j.Name, j.Notes
		s.active.Store(&cp)
	}
	return j, nil
}

// Delete removes a journey and its points. The active journey cannot be
// deleted.
func (s *JourneyService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a := s.active.Load(); a != nil && a.ID == id {
		return domain.ErrJourneyActive
	}
	if _, err := s.journeys.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.journeys.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete journey: %w", err)
	}

	invalidateReports(ctx, s.cache)
	s.publishJourney(ctx, domain.JourneyDeleted, id, nil)
	return nil
}

// Recompute re-aggregates an ended journey from its stored points.
func (s *JourneyService) Recompute(ctx context.Context, id string) (*domain.JourneyStats, error) {
	return s.RecomputeWith(ctx, id, nil)
}

// RecomputeWith is Recompute with explicit stop thresholds; nil uses the
// service's own.
func (s *JourneyService) RecomputeWith(ctx context.Context, id string, cfg *domain.AggregateConfig) (*domain.JourneyStats, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanJourneyRecompute)
	defer span.End()
	span.SetAttributes(attribute.String("journey.id", id))

	j, err := s.journeys.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if j.Active() {
		return nil, domain.ErrJourneyActive
	}

	stopCfg := s.AggregateConfig()
	if cfg != nil {
		stopCfg = *cfg
	}
	stats, err := s.aggregate(ctx, id, stopCfg)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	j.Stats = &stats
	if err := s.journeys.Update(ctx, j); err != nil {
		return nil, fmt.Errorf("update journey: %w", err)
	}
	invalidateReports(ctx, s.cache)
	return &stats, nil
}

// HandleAccepted persists an accepted sample against the active journey.
// It runs on the tracker goroutine.
func (s *JourneyService) HandleAccepted(sample domain.Sample) {
	j := s.active.Load()
	if j == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), callbackTimeout)
	defer cancel()

	p := sample.Point(j.ID)
	if err := s.points.Add(ctx, &p); err != nil {
		slog.Error("persist point", "journey_id", j.ID, "error", err)
		return
	}

	s.bufMu.Lock()
	s.buf = append(s.buf, p)
	s.bufMu.Unlock()

	if s.events != nil {
		if err := s.events.PublishPoint(ctx, &p); err != nil {
			slog.Debug("publish point", "error", err)
		}
	}
}

// HandleStatus records metrics for a status event and publishes it.
func (s *JourneyService) HandleStatus(e domain.StatusEvent) {
	switch e.Kind {
	case domain.StatusSample:
		if e.Decision != nil {
			metrics.ObserveDecision(e.Decision.Accepted, string(e.Decision.Reason))
		}
	case domain.StatusFailure:
		if e.Failure != nil {
			metrics.SensorFailures.WithLabelValues(string(e.Failure.Kind)).Inc()
			slog.Warn("sensor failure", "kind", e.Failure.Kind, "message", e.Failure.Message)
		}
	}

	if s.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), callbackTimeout)
	defer cancel()
	if err := s.events.PublishStatus(ctx, &e); err != nil {
		slog.Debug("publish status", "error", err)
	}
}

func (s *JourneyService) startTracker(ctx context.Context) error {
	cfg, err := s.settings.FilterConfig(ctx)
	if err != nil {
		return err
	}
	s.tracker.SetConfig(cfg)
	return s.tracker.Start(ctx)
}

func (s *JourneyService) activate(j *domain.Journey, pts []domain.TrackPoint) {
	s.bufMu.Lock()
	s.buf = pts
	s.bufMu.Unlock()

	cp := *j
	s.active.Store(&cp)
	metrics.ActiveJourney.Set(1)
}

func (s *JourneyService) deactivate() {
	s.active.Store(nil)
	s.bufMu.Lock()
	s.buf = nil
	s.bufMu.Unlock()
	metrics.ActiveJourney.Set(0)
}

func (s *JourneyService) aggregate(ctx context.Context, id string, cfg domain.AggregateConfig) (domain.JourneyStats, error) {
	pts, err := s.points.ListByJourney(ctx, id)
	if err != nil {
		return domain.JourneyStats{}, fmt.Errorf("list points: %w", err)
	}
	tracking.SortByTime(pts)
	return tracking.Aggregate(pts, cfg), nil
}

func (s *JourneyService) publishJourney(ctx context.Context, typ domain.JourneyEventType, id string, stats *domain.JourneyStats) {
	if s.events == nil {
		return
	}
	ev := &domain.JourneyEvent{Type: typ, JourneyID: id, Stats: stats, Time: s.now()}
	if err := s.events.PublishJourneyEvent(ctx, ev); err != nil {
		slog.Warn("publish journey event", "type", typ, "journey_id", id, "error", err)
	}
}
