package usecases_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/samirrijal/motolog/internal/core/domain"
)

// --- Mock JourneyRepository ---

type mockJourneyRepo struct {
	mu        sync.Mutex
	journeys  map[string]domain.Journey
	updateErr error
}

func newMockJourneyRepo() *mockJourneyRepo {
	return &mockJourneyRepo{journeys: map[string]domain.Journey{}}
}

func (m *mockJourneyRepo) Create(ctx context.Context, j *domain.Journey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.journeys[j.ID] = *j
	return nil
}

func (m *mockJourneyRepo) GetByID(ctx context.Context, id string) (*domain.Journey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.journeys[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &j, nil
}

func (m *mockJourneyRepo) ListStartedBetween(ctx context.Context, r domain.TimeRange) ([]domain.Journey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Journey
	for _, j := range m.journeys {
		if r.Contains(j.StartedAt) {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].StartedAt.After(out[b].StartedAt) })
	return out, nil
}

func (m *mockJourneyRepo) Update(ctx context.Context, j *domain.Journey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.journeys[j.ID]; !ok {
		return domain.ErrNotFound
	}
	m.journeys[j.ID] = *j
	return nil
}

func (m *mockJourneyRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.journeys, id)
	return nil
}

// --- Mock PointRepository ---

type mockPointRepo struct {
	mu     sync.Mutex
	points []domain.TrackPoint
	addErr error
	listFn func(journeyID string) // runs before ListByJourney reads
}

func (m *mockPointRepo) Add(ctx context.Context, p *domain.TrackPoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addErr != nil {
		return m.addErr
	}
	p.ID = int64(len(m.points) + 1)
	m.points = append(m.points, *p)
	return nil
}

func (m *mockPointRepo) ListByJourney(ctx context.Context, journeyID string) ([]domain.TrackPoint, error) {
	if m.listFn != nil {
		m.listFn(journeyID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.TrackPoint
	for _, p := range m.points {
		if p.JourneyID == journeyID {
			out = append(out, p)
		}
	}
	return out, nil
}

// --- Mock SettingsRepository ---

type mockSettingsRepo struct {
	mu     sync.Mutex
	values map[string]string
	setFn  func(key, value string) error
}

func newMockSettingsRepo() *mockSettingsRepo {
	return &mockSettingsRepo{values: map[string]string{}}
}

func (m *mockSettingsRepo) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", domain.ErrNotFound
	}
	return v, nil
}

func (m *mockSettingsRepo) Set(ctx context.Context, key, value string) error {
	if m.setFn != nil {
		if err := m.setFn(key, value); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *mockSettingsRepo) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// --- Mock TransactionRepository ---

type mockTransactionRepo struct {
	listBetweenFn func(ctx context.Context, from, to time.Time) ([]domain.Transaction, error)
	created       []domain.Transaction
	deleted       []string
}

func (m *mockTransactionRepo) Create(ctx context.Context, t *domain.Transaction) error {
	m.created = append(m.created, *t)
	return nil
}

func (m *mockTransactionRepo) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	for _, t := range m.created {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockTransactionRepo) ListBetween(ctx context.Context, from, to time.Time) ([]domain.Transaction, error) {
	if m.listBetweenFn != nil {
		return m.listBetweenFn(ctx, from, to)
	}
	return nil, nil
}

func (m *mockTransactionRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

// --- Mock CacheService ---

type mockCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	deleted []string
}

func newMockCache() *mockCache {
	return &mockCache{data: map[string][]byte{}}
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return v, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttl int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	m.deleted = append(m.deleted, key)
	return nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	mu       sync.Mutex
	journeys []domain.JourneyEvent
	points   []domain.TrackPoint
	statuses []domain.StatusEvent
	lives    []domain.LiveStats
}

func (m *mockPublisher) PublishJourneyEvent(ctx context.Context, e *domain.JourneyEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.journeys = append(m.journeys, *e)
	return nil
}

func (m *mockPublisher) PublishPoint(ctx context.Context, p *domain.TrackPoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points = append(m.points, *p)
	return nil
}

func (m *mockPublisher) PublishStatus(ctx context.Context, e *domain.StatusEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, *e)
	return nil
}

func (m *mockPublisher) PublishLive(ctx context.Context, l *domain.LiveStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lives = append(m.lives, *l)
	return nil
}

func (m *mockPublisher) liveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.lives)
}

// --- Mock Tracker ---

type mockTracker struct {
	mu         sync.Mutex
	running    bool
	starts     int
	stops      int
	cfg        domain.FilterConfig
	startErr   error
	onStatus   func(domain.StatusEvent)
	onAccepted func(domain.Sample)
}

func (m *mockTracker) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		return m.startErr
	}
	if !m.running {
		m.starts++
	}
	m.running = true
	return nil
}

func (m *mockTracker) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		m.stops++
	}
	m.running = false
}

func (m *mockTracker) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *mockTracker) SetConfig(cfg domain.FilterConfig) {
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
}

func (m *mockTracker) SetHandlers(onStatus func(domain.StatusEvent), onAccepted func(domain.Sample)) {
	m.onStatus = onStatus
	m.onAccepted = onAccepted
}
