package domain

import (
	"time"
)

// Journey is one tracked working session of the driver.
type Journey struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Notes     string        `json:"notes,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	EndedAt   *time.Time    `json:"ended_at,omitempty"`
	Stats     *JourneyStats `json:"stats,omitempty"` // set once the journey is stopped
	CreatedAt time.Time     `json:"created_at"`
}

// Active reports whether the journey has not been stopped yet.
func (j *Journey) Active() bool {
	return j.EndedAt == nil
}

// JourneyStats is the aggregate of a journey's accepted points.
type JourneyStats struct {
	DistanceM         float64 `json:"distance_m"`
	MovingSec         float64 `json:"moving_sec"`
	StoppedSec        float64 `json:"stopped_sec"`
	AvgMovingSpeedMps float64 `json:"avg_moving_speed_mps"`
	MaxSpeedMps       float64 `json:"max_speed_mps"`
	PointsCount       int     `json:"points_count"`
}

// TrackPoint is an accepted sample persisted against a journey.
type TrackPoint struct {
	ID         int64    `json:"id"`
	JourneyID  string   `json:"journey_id"`
	Lat        float64  `json:"lat"`
	Lon        float64  `json:"lon"`
	AccuracyM  float64  `json:"accuracy_m"`
	SpeedMps   *float64 `json:"speed_mps,omitempty"`
	HeadingDeg *float64 `json:"heading_deg,omitempty"`
	Ts         int64    `json:"ts"` // unix milliseconds
}

// LiveStats is the running view of the active journey.
type LiveStats struct {
	JourneyID   string      `json:"journey_id"`
	StartedAt   time.Time   `json:"started_at"`
	DistanceM   float64     `json:"distance_m"`
	ElapsedSec  float64     `json:"elapsed_sec"`
	PointsCount int         `json:"points_count"`
	LastPoint   *TrackPoint `json:"last_point,omitempty"`
	Tracking    bool        `json:"tracking"`
}

// JourneyEventType names a lifecycle transition.
type JourneyEventType string

const (
	JourneyStarted JourneyEventType = "started"
	JourneyStopped JourneyEventType = "stopped"
	JourneyResumed JourneyEventType = "resumed"
	JourneyDeleted JourneyEventType = "deleted"
)

// JourneyEvent is published on the broker when a journey changes state.
type JourneyEvent struct {
	Type      JourneyEventType `json:"type"`
	JourneyID string           `json:"journey_id"`
	Stats     *JourneyStats    `json:"stats,omitempty"`
	Time      time.Time        `json:"time"`
}

// TransactionKind is either income or expense.
type TransactionKind string

const (
	Income  TransactionKind = "income"
	Expense TransactionKind = "expense"
)

// Valid reports whether k is a known kind.
func (k TransactionKind) Valid() bool {
	return k == Income || k == Expense
}

// Transaction is a money movement, optionally linked to a journey.
type Transaction struct {
	ID          string          `json:"id"`
	Kind        TransactionKind `json:"kind"`
	AmountCents int64           `json:"amount_cents"`
	Category    string          `json:"category,omitempty"`
	Notes       string          `json:"notes,omitempty"`
	JourneyID   string          `json:"journey_id,omitempty"`
	Ts          time.Time       `json:"ts"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Period selects a reporting window.
type Period string

const (
	PeriodToday   Period = "today"
	Period7Days   Period = "7d"
	Period30Days  Period = "30d"
	Period90Days  Period = "90d"
	PeriodYear    Period = "year"
	PeriodAllTime Period = "all"
)

// Periods lists every supported period.
var Periods = []Period{PeriodToday, Period7Days, Period30Days, Period90Days, PeriodYear, PeriodAllTime}

// TimeRange is an inclusive time window.
type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Contains reports whether t falls inside the window, both ends included.
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.From) && !t.After(r.To)
}

// KPIs are the money/effort ratios of a report. Nil means undefined.
type KPIs struct {
	Km          float64  `json:"km"`
	MovingHours float64  `json:"moving_hours"`
	TotalHours  float64  `json:"total_hours"`
	RevPerKm    *float64 `json:"rev_per_km"`
	CostPerKm   *float64 `json:"cost_per_km"`
	ProfitPerKm *float64 `json:"profit_per_km"`
	RevPerHour  *float64 `json:"rev_per_hour"`
	ProfitPerH  *float64 `json:"profit_per_hour"`
	CostPerHour *float64 `json:"cost_per_hour"`
	Margin      *float64 `json:"margin"`
}

// Summary is the report of one period.
type Summary struct {
	Period       Period    `json:"period"`
	Range        TimeRange `json:"range"`
	IncomeCents  int64     `json:"income_cents"`
	ExpenseCents int64     `json:"expense_cents"`
	ProfitCents  int64     `json:"profit_cents"`
	Journeys     int       `json:"journeys"`
	DistanceM    float64   `json:"distance_m"`
	MovingSec    float64   `json:"moving_sec"`
	StoppedSec   float64   `json:"stopped_sec"`
	KPIs         KPIs      `json:"kpis"`
}
