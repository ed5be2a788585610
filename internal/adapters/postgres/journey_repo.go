package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/samirrijal/motolog/internal/core/domain"
)

// JourneyRepo implements ports.JourneyRepository.
type JourneyRepo struct {
	q Querier
}

func NewJourneyRepo(q Querier) *JourneyRepo {
	return &JourneyRepo{q: q}
}

const journeyColumns = `id, name, notes, started_at, ended_at,
	distance_m, moving_sec, stopped_sec, avg_moving_speed_mps, max_speed_mps, points_count, created_at`

func (r *JourneyRepo) Create(ctx context.Context, j *domain.Journey) error {
	s := statsArgs(j.Stats)
	_, err := r.q.Exec(ctx, `
        INSERT INTO journeys (`+journeyColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
    `, j.ID, j.Name, j.Notes, j.StartedAt, j.EndedAt,
		s.distance, s.moving, s.stopped, s.avg, s.max, s.points, j.CreatedAt)
	return err
}

func (r *JourneyRepo) GetByID(ctx context.Context, id string) (*domain.Journey, error) {
	row := r.q.QueryRow(ctx, `SELECT `+journeyColumns+` FROM journeys WHERE id = $1`, id)
	j, err := scanJourney(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return j, err
}

func (r *JourneyRepo) ListStartedBetween(ctx context.Context, tr domain.TimeRange) ([]domain.Journey, error) {
	rows, err := r.q.Query(ctx, `
        SELECT `+journeyColumns+` FROM journeys
        WHERE started_at >= $1 AND started_at <= $2
        ORDER BY started_at DESC
    `, tr.From, tr.To)
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
	s := statsArgs(j.Stats)
	tag, err := r.q.Exec(ctx, `
        UPDATE journeys
        SET name = $2, notes = $3, ended_at = $4,
            distance_m = $5, moving_sec = $6, stopped_sec = $7,
            avg_moving_speed_mps = $8, max_speed_mps = $9, points_count = $10
        WHERE id = $1
    `, j.ID, j.Name, j.Notes, j.EndedAt,
		s.distance, s.moving, s.stopped, s.avg, s.max, s.points)
	if err != nil {
		return err
	}
	return expectOne(tag)
}

// Delete removes the journey; gps_points cascade through the foreign key.
func (r *JourneyRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM journeys WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectOne(tag)
}

func scanJourney(row pgx.Row) (*domain.Journey, error) {
	var (
		j                                  domain.Journey
		endedAt                            *time.Time
		dist, moving, stopped, avg, maxSpd *float64
		pointsCount                        *int32
	)
	if err := row.Scan(&j.ID, &j.Name, &j.Notes, &j.StartedAt, &endedAt,
		&dist, &moving, &stopped, &avg, &maxSpd, &pointsCount, &j.CreatedAt); err != nil {
		return nil, err
	}
	j.EndedAt = endedAt
	if pointsCount != nil {
		j.Stats = &domain.JourneyStats{
			DistanceM:         deref(dist),
			MovingSec:         deref(moving),
			StoppedSec:        deref(stopped),
			AvgMovingSpeedMps: deref(avg),
			MaxSpeedMps:       deref(maxSpd),
			PointsCount:       int(*pointsCount),
		}
	}
	return &j, nil
}

// statsCols holds the nullable stats columns; all nil when stats are absent.
type statsCols struct {
	distance, moving, stopped, avg, max *float64
	points                              *int32
}

func statsArgs(s *domain.JourneyStats) statsCols {
	if s == nil {
		return statsCols{}
	}
	n := int32(s.PointsCount)
	return statsCols{
		distance: &s.DistanceM,
		moving:   &s.MovingSec,
		stopped:  &s.StoppedSec,
		avg:      &s.AvgMovingSpeedMps,
		max:      &s.MaxSpeedMps,
		points:   &n,
	}
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func expectOne(tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
