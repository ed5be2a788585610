package domain

import (
	"encoding/json"
	"math"
	"time"
)

// Sample is one raw position fix as delivered by a source.
// AccuracyM is +Inf when the source did not report it; SpeedMps and
// HeadingDeg are NaN when absent.
type Sample struct {
	Lat        float64
	Lon        float64
	AccuracyM  float64
	SpeedMps   float64
	HeadingDeg float64
	Ts         int64 // unix milliseconds, 0 when missing
}

type sampleJSON struct {
	Lat        *float64 `json:"lat"`
	Lon        *float64 `json:"lon"`
	AccuracyM  *float64 `json:"accuracy_m"`
	SpeedMps   *float64 `json:"speed_mps,omitempty"`
	HeadingDeg *float64 `json:"heading_deg,omitempty"`
	Ts         int64    `json:"ts"`
}

func finitePtr(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// MarshalJSON writes non-finite values as null.
func (s Sample) MarshalJSON() ([]byte, error) {
	return json.Marshal(sampleJSON{
		Lat:        finitePtr(s.Lat),
		Lon:        finitePtr(s.Lon),
		AccuracyM:  finitePtr(s.AccuracyM),
		SpeedMps:   finitePtr(s.SpeedMps),
		HeadingDeg: finitePtr(s.HeadingDeg),
		Ts:         s.Ts,
	})
}

// UnmarshalJSON maps missing coordinates to NaN, missing accuracy to +Inf
// and missing speed/heading to NaN.
func (s *Sample) UnmarshalJSON(data []byte) error {
	var raw sampleJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	orNaN := func(p *float64) float64 {
		if p == nil {
			return math.NaN()
		}
		return *p
	}
	s.Lat = orNaN(raw.Lat)
	s.Lon = orNaN(raw.Lon)
	s.AccuracyM = math.Inf(1)
	if raw.AccuracyM != nil {
		s.AccuracyM = *raw.AccuracyM
	}
	s.SpeedMps = orNaN(raw.SpeedMps)
	s.HeadingDeg = orNaN(raw.HeadingDeg)
	s.Ts = raw.Ts
	return nil
}

// Point converts an accepted sample into a persisted point of journeyID.
func (s Sample) Point(journeyID string) TrackPoint {
	return TrackPoint{
		JourneyID:  journeyID,
		Lat:        s.Lat,
		Lon:        s.Lon,
		AccuracyM:  s.AccuracyM,
		SpeedMps:   finitePtr(s.SpeedMps),
		HeadingDeg: finitePtr(s.HeadingDeg),
		Ts:         s.Ts,
	}
}

// FilterConfig holds the acceptance thresholds.
type FilterConfig struct {
	MaxAccuracyM  float64 `json:"max_accuracy_m" mapstructure:"max_accuracy_m"`
	MinIntervalMs int64   `json:"min_interval_ms" mapstructure:"min_interval_ms"`
	MinDistanceM  float64 `json:"min_distance_m" mapstructure:"min_distance_m"`
	MaxSpeedKmh   float64 `json:"max_speed_kmh" mapstructure:"max_speed_kmh"`
}

// DefaultFilterConfig returns the thresholds used when nothing is configured.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		MaxAccuracyM:  50,
		MinIntervalMs: 3000,
		MinDistanceM:  8,
		MaxSpeedKmh:   160,
	}
}

// AggregateConfig holds the stop detection thresholds of the journey
// aggregator. An interval is stopped when its speed is at most StopSpeedMps
// and it lasts at least half of StopWindowSec.
type AggregateConfig struct {
	StopSpeedMps  float64 `json:"stop_speed_mps" mapstructure:"stop_speed_mps"`
	StopWindowSec float64 `json:"stop_window_sec" mapstructure:"stop_window_sec"`
}

// DefaultAggregateConfig returns the stop thresholds used when nothing is configured.
func DefaultAggregateConfig() AggregateConfig {
	return AggregateConfig{StopSpeedMps: 0.6, StopWindowSec: 20}
}

// RejectReason names the gate that refused a sample.
type RejectReason string

const (
	RejectNone     RejectReason = ""
	RejectInvalid  RejectReason = "invalid"
	RejectAccuracy RejectReason = "accuracy"
	RejectInterval RejectReason = "interval"
	RejectDistance RejectReason = "distance"
	RejectSpeed    RejectReason = "speed"
)

// Decision is the filter outcome for one sample. The measured fields are
// only filled by the gates that ran.
type Decision struct {
	Accepted   bool         `json:"accepted"`
	Reason     RejectReason `json:"reason,omitempty"`
	DistanceM  float64      `json:"distance_m,omitempty"`
	IntervalMs int64        `json:"interval_ms,omitempty"`
	SpeedKmh   float64      `json:"speed_kmh,omitempty"`
}

// SensorErrorKind classifies a source failure.
type SensorErrorKind string

const (
	SensorPermissionDenied    SensorErrorKind = "permission_denied"
	SensorPositionUnavailable SensorErrorKind = "position_unavailable"
	SensorTimeout             SensorErrorKind = "timeout"
	SensorOther               SensorErrorKind = "other"
)

// SensorErrorKindFromCode maps the numeric codes of location providers
// (1 denied, 2 unavailable, 3 timeout) to a kind.
func SensorErrorKindFromCode(code int) SensorErrorKind {
	switch code {
	case 1:
		return SensorPermissionDenied
	case 2:
		return SensorPositionUnavailable
	case 3:
		return SensorTimeout
	default:
		return SensorOther
	}
}

// SensorFailure is reported by a source instead of a sample.
type SensorFailure struct {
	Kind    SensorErrorKind `json:"kind"`
	Code    int             `json:"code,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Reading is one item of a source stream: a sample or a failure.
type Reading struct {
	Sample  *Sample        `json:"sample,omitempty"`
	Failure *SensorFailure `json:"failure,omitempty"`
}

// StatusKind distinguishes sample verdicts from sensor failures.
type StatusKind string

const (
	StatusSample  StatusKind = "sample"
	StatusFailure StatusKind = "failure"
)

// StatusEvent is emitted for every reading the tracker consumes.
type StatusEvent struct {
	Kind     StatusKind     `json:"kind"`
	Sample   *Sample        `json:"sample,omitempty"`
	Decision *Decision      `json:"decision,omitempty"`
	Failure  *SensorFailure `json:"failure,omitempty"`
	Time     time.Time      `json:"time"`
}

// SourceOptions are forwarded to sources that can honour them.
type SourceOptions struct {
	HighAccuracy bool  `json:"high_accuracy" mapstructure:"high_accuracy"`
	TimeoutMs    int64 `json:"timeout_ms" mapstructure:"timeout_ms"`
	MaxAgeMs     int64 `json:"max_age_ms" mapstructure:"max_age_ms"`
}

// DefaultSourceOptions mirrors the usual device watch settings.
func DefaultSourceOptions() SourceOptions {
	return SourceOptions{HighAccuracy: true, TimeoutMs: 15000, MaxAgeMs: 2000}
}
