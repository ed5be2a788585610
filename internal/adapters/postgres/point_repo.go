package postgres

import (
	"context"

	"github.com/samirrijal/motolog/internal/core/domain"
)

// PointRepo implements ports.PointRepository.
type PointRepo struct {
	q Querier
}

func NewPointRepo(q Querier) *PointRepo {
	return &PointRepo{q: q}
}

func (r *PointRepo) Add(ctx context.Context, p *domain.TrackPoint) error {
	return r.q.QueryRow(ctx, `
        INSERT INTO gps_points (journey_id, lat, lon, accuracy_m, speed_mps, heading_deg, ts)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id
    `, p.JourneyID, p.Lat, p.Lon, p.AccuracyM, p.SpeedMps, p.HeadingDeg, p.Ts).Scan(&p.ID)
}

func (r *PointRepo) ListByJourney(ctx context.Context, journeyID string) ([]domain.TrackPoint, error) {
	rows, err := r.q.Query(ctx, `
        SELECT id, journey_id, lat, lon, accuracy_m, speed_mps, heading_deg, ts
        FROM gps_points WHERE journey_id = $1
        ORDER BY ts, id
    `, journeyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TrackPoint
	for rows.Next() {
		var p domain.TrackPoint
		if err := rows.Scan(&p.ID, &p.JourneyID, &p.Lat, &p.Lon, &p.AccuracyM, &p.SpeedMps, &p.HeadingDeg, &p.Ts); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
