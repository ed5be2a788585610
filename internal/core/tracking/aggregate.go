package tracking

import (
	"math"
	"sort"
	"time"

	"github.com/samirrijal/motolog/internal/core/domain"
	"github.com/samirrijal/motolog/internal/pkg/geospatial"
)

// Aggregate folds points (sorted by timestamp) into journey statistics,
// classifying each interval as moving or stopped with cfg.
func Aggregate(points []domain.TrackPoint, cfg domain.AggregateConfig) domain.JourneyStats {
	stats := domain.JourneyStats{PointsCount: len(points)}
	if len(points) < 2 {
		return stats
	}

	var movingDist float64
	for i := 1; i < len(points); i++ {
		p0, p1 := points[i-1], points[i]

		dt := math.Max(0, float64(p1.Ts-p0.Ts)/1000)
		d := geospatial.Haversine(p0.Lat, p0.Lon, p1.Lat, p1.Lon)
		stats.DistanceM += d

		var speed float64
		switch {
		case p1.SpeedMps != nil && finite(*p1.SpeedMps):
			speed = *p1.SpeedMps
		case dt > 0:
			speed = d / dt
		}

		if speed <= cfg.StopSpeedMps && dt >= cfg.StopWindowSec/2 {
			stats.StoppedSec += dt
		} else {
			stats.MovingSec += dt
			movingDist += d
		}

		if speed > stats.MaxSpeedMps {
			stats.MaxSpeedMps = speed
		}
	}

	if stats.MovingSec > 0 {
		stats.AvgMovingSpeedMps = movingDist / stats.MovingSec
	}
	return stats
}

// SortByTime orders points by timestamp in place, keeping insertion order for ties.
func SortByTime(points []domain.TrackPoint) {
	sort.SliceStable(points, func(i, j int) bool { return points[i].Ts < points[j].Ts })
}

// Live computes the running view of a journey: the full path length and the
// wall-clock time since it started.
func Live(journey *domain.Journey, points []domain.TrackPoint, now time.Time) domain.LiveStats {
	geo := make([]domain.GeoPoint, len(points))
	for i, p := range points {
		geo[i] = domain.GeoPoint{Lat: p.Lat, Lon: p.Lon}
	}

	live := domain.LiveStats{
		JourneyID:   journey.ID,
		StartedAt:   journey.StartedAt,
		DistanceM:   geospatial.PathLength(geo),
		ElapsedSec:  math.Max(0, now.Sub(journey.StartedAt).Seconds()),
		PointsCount: len(points),
	}
	if len(points) > 0 {
		last := points[len(points)-1]
		live.LastPoint = &last
	}
	return live
}
