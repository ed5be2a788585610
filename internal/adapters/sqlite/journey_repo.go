package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/samirrijal/motolog/internal/core/domain"
)

// JourneyRepo implements ports.JourneyRepository.
type JourneyRepo struct {
	db *DB
}

func NewJourneyRepo(db *DB) *JourneyRepo {
	return &JourneyRepo{db: db}
}

const journeyColumns = `id, name, notes, started_at, ended_at,
	distance_m, moving_sec, stopped_sec, avg_moving_speed_mps, max_speed_mps, points_count, created_at`

func (r *JourneyRepo) Create(ctx context.Context, j *domain.Journey) error {
	stats := statsArgs(j.Stats)
	_, err := r.db.SQL.ExecContext(ctx, `
		INSERT INTO journeys (`+journeyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, j.ID, j.Name, j.Notes, j.StartedAt.UnixMilli(), msOrNil(j.EndedAt),
		stats[0], stats[1], stats[2], stats[3], stats[4], stats[5], j.CreatedAt.UnixMilli())
	return err
}

func (r *JourneyRepo) GetByID(ctx context.Context, id string) (*domain.Journey, error) {
	row := r.db.SQL.QueryRowContext(ctx, `SELECT `+journeyColumns+` FROM journeys WHERE id = ?`, id)
	j, err := scanJourney(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return j, err
}

func (r *JourneyRepo) ListStartedBetween(ctx context.Context, tr domain.TimeRange) ([]domain.Journey, error) {
	rows, err := r.db.SQL.QueryContext(ctx, `
		SELECT `+journeyColumns+` FROM journeys
		WHERE started_at >= ? AND started_at <= ?
		ORDER BY started_at DESC
	`, tr.From.UnixMilli(), tr.To.UnixMilli())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Journey
	for rows.Next() {
		j, err := scanJourney(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *j)
	}
	return out, rows.Err()
}

func (r *JourneyRepo) Update(ctx context.Context, j *domain.Journey) error {
	stats := statsArgs(j.Stats)
	res, err := r.db.SQL.ExecContext(ctx, `
		UPDATE journeys
		SET name = ?, notes = ?, ended_at = ?,
		    distance_m = ?, moving_sec = ?, stopped_sec = ?,
		    avg_moving_speed_mps = ?, max_speed_mps = ?, points_count = ?
		WHERE id = ?
	`, j.Name, j.Notes, msOrNil(j.EndedAt),
		stats[0], stats[1], stats[2], stats[3], stats[4], stats[5], j.ID)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// Delete removes the journey; gps_points cascade through the foreign key.
func (r *JourneyRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.SQL.ExecContext(ctx, `DELETE FROM journeys WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJourney(s scanner) (*domain.Journey, error) {
	var (
		j                                  domain.Journey
		startedAt, createdAt               int64
		endedAt, pointsCount               sql.NullInt64
		dist, moving, stopped, avg, maxSpd sql.NullFloat64
	)
	if err := s.Scan(&j.ID, &j.Name, &j.Notes, &startedAt, &endedAt,
		&dist, &moving, &stopped, &avg, &maxSpd, &pointsCount, &createdAt); err != nil {
		return nil, err
	}
	j.StartedAt = time.UnixMilli(startedAt)
	j.CreatedAt = time.UnixMilli(createdAt)
	if endedAt.Valid {
		t := time.UnixMilli(endedAt.Int64)
		j.EndedAt = &t
	}
	if pointsCount.Valid {
		j.Stats = &domain.JourneyStats{
			DistanceM:         dist.Float64,
			MovingSec:         moving.Float64,
			StoppedSec:        stopped.Float64,
			AvgMovingSpeedMps: avg.Float64,
			MaxSpeedMps:       maxSpd.Float64,
			PointsCount:       int(pointsCount.Int64),
		}
	}
	return &j, nil
}

func statsArgs(s *domain.JourneyStats) [6]any {
	if s == nil {
		return [6]any{}
	}
	return [6]any{s.DistanceM, s.MovingSec, s.StoppedSec, s.AvgMovingSpeedMps, s.MaxSpeedMps, s.PointsCount}
}

func msOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
