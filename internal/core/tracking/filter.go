package tracking

import (
	"math"

	"github.com/samirrijal/motolog/internal/core/domain"
	"github.com/samirrijal/motolog/internal/pkg/geospatial"
)

// minElapsedSec floors the time delta of the speed gate so two fixes with the
// same timestamp do not divide by zero.
const minElapsedSec = 0.001

// FilterState is the memory of the filter between samples.
type FilterState struct {
	Last *domain.Sample // last accepted sample, nil before the first one
}

// Accept runs the gates (accuracy, interval, distance, speed) against s and
// returns the next state together with the verdict. On rejection the state
// is returned unchanged.
func Accept(state FilterState, s domain.Sample, cfg domain.FilterConfig) (FilterState, domain.Decision) {
	if !finite(s.Lat) || !finite(s.Lon) {
		return state, domain.Decision{Reason: domain.RejectInvalid}
	}

	if !finite(s.AccuracyM) || s.AccuracyM > cfg.MaxAccuracyM {
		return state, domain.Decision{Reason: domain.RejectAccuracy}
	}

	if state.Last == nil {
		return accepted(s), domain.Decision{Accepted: true}
	}

	last := *state.Last
	dtMs := s.Ts - last.Ts
	if dtMs < cfg.MinIntervalMs {
		return state, domain.Decision{Reason: domain.RejectInterval, IntervalMs: dtMs}
	}

	d := geospatial.Haversine(last.Lat, last.Lon, s.Lat, s.Lon)
	if d < cfg.MinDistanceM {
		return state, domain.Decision{Reason: domain.RejectDistance, IntervalMs: dtMs, DistanceM: d}
	}

	dtSec := math.Max(minElapsedSec, float64(dtMs)/1000)
	kmh := d / dtSec * 3.6
	if kmh > cfg.MaxSpeedKmh {
		return state, domain.Decision{Reason: domain.RejectSpeed, IntervalMs: dtMs, DistanceM: d, SpeedKmh: kmh}
	}

	return accepted(s), domain.Decision{Accepted: true, IntervalMs: dtMs, DistanceM: d, SpeedKmh: kmh}
}

func accepted(s domain.Sample) FilterState {
	return FilterState{Last: &s}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
