package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"

	"github.com/samirrijal/motolog/internal/core/domain"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func fptr(v float64) *float64 { return &v }

var journeyCols = []string{"id", "name", "notes", "started_at", "ended_at",
	"distance_m", "moving_sec", "stopped_sec", "avg_moving_speed_mps", "max_speed_mps", "points_count", "created_at"}

func TestJourneyRepo_CreateWithoutStats(t *testing.T) {
	mock := newMock(t)
	repo := NewJourneyRepo(mock)

	started := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	j := &domain.Journey{ID: "j-1", Name: "morning", StartedAt: started, CreatedAt: started}

	mock.ExpectExec(`INSERT INTO journeys`).
		WithArgs("j-1", "morning", "", started, (*time.Time)(nil),
			(*float64)(nil), (*float64)(nil), (*float64)(nil), (*float64)(nil), (*float64)(nil), (*int32)(nil), started).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Create(context.Background(), j); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestJourneyRepo_GetByID(t *testing.T) {
	mock := newMock(t)
	repo := NewJourneyRepo(mock)

	started := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	ended := started.Add(time.Hour)
	points := int32(42)

	mock.ExpectQuery(`SELECT id, name, notes, started_at, ended_at`).
		WithArgs("j-1").
		WillReturnRows(pgxmock.NewRows(journeyCols).AddRow("j-1", "morning", "", started, &ended,
			fptr(12500), fptr(2400), fptr(1200), fptr(5.2), fptr(14.1), &points, started))

	j, err := repo.GetByID(context.Background(), "j-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if j.Active() {
		t.Error("expected ended journey")
	}
	if j.Stats == nil || j.Stats.PointsCount != 42 || j.Stats.DistanceM != 12500 {
		t.Errorf("unexpected stats: %+v", j.Stats)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestJourneyRepo_GetByIDActiveHasNoStats(t *testing.T) {
	mock := newMock(t)
	repo := NewJourneyRepo(mock)

	started := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT id, name, notes, started_at, ended_at`).
		WithArgs("j-2").
		WillReturnRows(pgxmock.NewRows(journeyCols).AddRow("j-2", "", "", started, (*time.Time)(nil),
			(*float64)(nil), (*float64)(nil), (*float64)(nil), (*float64)(nil), (*float64)(nil), (*int32)(nil), started))

	j, err := repo.GetByID(context.Background(), "j-2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !j.Active() || j.Stats != nil {
		t.Errorf("expected active journey without stats, got %+v", j)
	}
}

func TestJourneyRepo_GetByIDNotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewJourneyRepo(mock)

	mock.ExpectQuery(`SELECT id, name, notes`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestJourneyRepo_ListStartedBetween(t *testing.T) {
	mock := newMock(t)
	repo := NewJourneyRepo(mock)

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24*time.Hour - time.Millisecond)
	a := from.Add(9 * time.Hour)
	b := from.Add(7 * time.Hour)

	mock.ExpectQuery(`FROM journeys\s+WHERE started_at >= \$1 AND started_at <= \$2\s+ORDER BY started_at DESC`).
		WithArgs(from, to).
		WillReturnRows(pgxmock.NewRows(journeyCols).
			AddRow("j-a", "", "", a, (*time.Time)(nil),
				(*float64)(nil), (*float64)(nil), (*float64)(nil), (*float64)(nil), (*float64)(nil), (*int32)(nil), a).
			AddRow("j-b", "", "", b, (*time.Time)(nil),
				(*float64)(nil), (*float64)(nil), (*float64)(nil), (*float64)(nil), (*float64)(nil), (*int32)(nil), b))

	list, err := repo.ListStartedBetween(context.Background(), domain.TimeRange{From: from, To: to})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "j-a" {
		t.Fatalf("unexpected list: %+v", list)
	}
}

func TestJourneyRepo_UpdateMissing(t *testing.T) {
	mock := newMock(t)
	repo := NewJourneyRepo(mock)

	mock.ExpectExec(`UPDATE journeys`).
		WithArgs("gone", "", "", pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.Update(context.Background(), &domain.Journey{ID: "gone", Stats: &domain.JourneyStats{PointsCount: 3}})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestJourneyRepo_Delete(t *testing.T) {
	mock := newMock(t)
	repo := NewJourneyRepo(mock)

	mock.ExpectExec(`DELETE FROM journeys WHERE id = \$1`).
		WithArgs("j-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	if err := repo.Delete(context.Background(), "j-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPointRepo_AddReturnsID(t *testing.T) {
	mock := newMock(t)
	repo := NewPointRepo(mock)

	p := &domain.TrackPoint{JourneyID: "j-1", Lat: 43.26, Lon: -2.93, AccuracyM: 8, SpeedMps: fptr(4.5), Ts: 1700000000000}

	mock.ExpectQuery(`INSERT INTO gps_points`).
		WithArgs("j-1", 43.26, -2.93, 8.0, p.SpeedMps, (*float64)(nil), int64(1700000000000)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))

	if err := repo.Add(context.Background(), p); err != nil {
		t.Fatalf("add: %v", err)
	}
	if p.ID != 7 {
		t.Fatalf("expected id 7, got %d", p.ID)
	}
}

func TestPointRepo_ListByJourney(t *testing.T) {
	mock := newMock(t)
	repo := NewPointRepo(mock)

	mock.ExpectQuery(`FROM gps_points WHERE journey_id = \$1\s+ORDER BY ts, id`).
		WithArgs("j-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "journey_id", "lat", "lon", "accuracy_m", "speed_mps", "heading_deg", "ts"}).
			AddRow(int64(1), "j-1", 43.26, -2.93, 8.0, fptr(3.0), (*float64)(nil), int64(1000)).
			AddRow(int64(2), "j-1", 43.27, -2.93, 6.0, (*float64)(nil), fptr(90), int64(6000)))

	points, err := repo.ListByJourney(context.Background(), "j-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	if points[0].SpeedMps == nil || *points[0].SpeedMps != 3 || points[1].SpeedMps != nil {
		t.Errorf("unexpected speeds: %+v", points)
	}
}

func TestTransactionRepo_CreateAndGet(t *testing.T) {
	mock := newMock(t)
	repo := NewTransactionRepo(mock)

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tx := &domain.Transaction{ID: "t-1", Kind: domain.Income, AmountCents: 1850, Category: "delivery", Ts: ts, CreatedAt: ts}

	mock.ExpectExec(`INSERT INTO transactions`).
		WithArgs("t-1", "income", int64(1850), "delivery", "", (*string)(nil), ts, ts).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Create(context.Background(), tx); err != nil {
		t.Fatalf("create: %v", err)
	}

	journeyID := "j-1"
	mock.ExpectQuery(`SELECT id, kind, amount_cents`).
		WithArgs("t-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "kind", "amount_cents", "category", "notes", "journey_id", "ts", "created_at"}).
			AddRow("t-1", "income", int64(1850), "delivery", "", &journeyID, ts, ts))

	got, err := repo.GetByID(context.Background(), "t-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Kind != domain.Income || got.AmountCents != 1850 || got.JourneyID != "j-1" {
		t.Errorf("unexpected transaction: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTransactionRepo_DeleteMissing(t *testing.T) {
	mock := newMock(t)
	repo := NewTransactionRepo(mock)

	mock.ExpectExec(`DELETE FROM transactions`).
		WithArgs("nope").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	if err := repo.Delete(context.Background(), "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSettingsRepo(t *testing.T) {
	mock := newMock(t)
	repo := NewSettingsRepo(mock)
	ctx := context.Background()

	mock.ExpectExec(`INSERT INTO settings .* ON CONFLICT \(key\) DO UPDATE`).
		WithArgs("maxAccuracyM", "40").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`SELECT value FROM settings WHERE key = \$1`).
		WithArgs("maxAccuracyM").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow("40"))
	mock.ExpectQuery(`SELECT value FROM settings WHERE key = \$1`).
		WithArgs("activeJourneyId").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec(`DELETE FROM settings`).
		WithArgs("activeJourneyId").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	if err := repo.Set(ctx, "maxAccuracyM", "40"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v, err := repo.Get(ctx, "maxAccuracyM"); err != nil || v != "40" {
		t.Fatalf("get: %q %v", v, err)
	}
	if _, err := repo.Get(ctx, "activeJourneyId"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.Delete(ctx, "activeJourneyId"); err != nil {
		t.Fatalf("delete of missing key must not fail: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLoadMigrations(t *testing.T) {
	migs, err := loadMigrations()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(migs) == 0 || migs[0].version != 1 || migs[0].name != "init" {
		t.Fatalf("unexpected migrations: %+v", migs)
	}
}
