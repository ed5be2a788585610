package sqlite

import (
	"context"
	"database/sql"

	"github.com/samirrijal/motolog/internal/core/domain"
)

// PointRepo implements ports.PointRepository.
type PointRepo struct {
	db *DB
}

func NewPointRepo(db *DB) *PointRepo {
	return &PointRepo{db: db}
}

func (r *PointRepo) Add(ctx context.Context, p *domain.TrackPoint) error {
	res, err := r.db.SQL.ExecContext(ctx, `
		INSERT INTO gps_points (journey_id, lat, lon, accuracy_m, speed_mps, heading_deg, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.JourneyID, p.Lat, p.Lon, p.AccuracyM, floatOrNil(p.SpeedMps), floatOrNil(p.HeadingDeg), p.Ts)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = id
	return nil
}

func (r *PointRepo) ListByJourney(ctx context.Context, journeyID string) ([]domain.TrackPoint, error) {
	rows, err := r.db.SQL.QueryContext(ctx, `
		SELECT id, journey_id, lat, lon, accuracy_m, speed_mps, heading_deg, ts
		FROM gps_points WHERE journey_id = ?
		ORDER BY ts, id
	`, journeyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TrackPoint
	for rows.Next() {
		var (
			p              domain.TrackPoint
			speed, heading sql.NullFloat64
		)
		if err := rows.Scan(&p.ID, &p.JourneyID, &p.Lat, &p.Lon, &p.AccuracyM, &speed, &heading, &p.Ts); err != nil {
			return nil, err
		}
		p.SpeedMps = nullFloatPtr(speed)
		p.HeadingDeg = nullFloatPtr(heading)
		out = append(out, p)
	}
	return out, rows.Err()
}

func floatOrNil(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullFloatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
