package tracking_test

import (
	"math"
	"testing"

	"github.com/samirrijal/motolog/internal/core/domain"
	"github.com/samirrijal/motolog/internal/core/tracking"
	"github.com/samirrijal/motolog/internal/pkg/geospatial"
)

func sample(lat, lon float64, ts int64, acc float64) domain.Sample {
	return domain.Sample{Lat: lat, Lon: lon, Ts: ts, AccuracyM: acc, SpeedMps: math.NaN(), HeadingDeg: math.NaN()}
}

// metersNorth returns the latitude that lies d meters north of lat along a meridian.
func metersNorth(lat, d float64) float64 {
	return lat + d/geospatial.EarthRadiusMeters*180/math.Pi
}

func TestAccept_FirstSampleOnlyChecksAccuracy(t *testing.T) {
	cfg := domain.DefaultFilterConfig()

	state, dec := tracking.Accept(tracking.FilterState{}, sample(0, 0, 1, 10), cfg)
	if !dec.Accepted {
		t.Fatalf("expected first sample accepted, got %+v", dec)
	}
	if state.Last == nil || state.Last.Ts != 1 {
		t.Fatalf("expected state to hold the sample, got %+v", state.Last)
	}

	_, dec = tracking.Accept(tracking.FilterState{}, sample(0, 0, 1, 51), cfg)
	if dec.Accepted || dec.Reason != domain.RejectAccuracy {
		t.Fatalf("expected accuracy rejection, got %+v", dec)
	}
}

func TestAccept_AccuracyGate(t *testing.T) {
	cfg := domain.DefaultFilterConfig()
	prev := sample(0, 0, 1000, 5)
	state := tracking.FilterState{Last: &prev}

	cases := []struct {
		name string
		acc  float64
	}{
		{"above threshold", 50.5},
		{"NaN", math.NaN()},
		{"+Inf", math.Inf(1)},
		{"-Inf", math.Inf(-1)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// Far enough and late enough to pass every other gate.
			next, dec := tracking.Accept(state, sample(0.001, 0, 60000, tc.acc), cfg)
			if dec.Accepted || dec.Reason != domain.RejectAccuracy {
				t.Fatalf("expected accuracy rejection, got %+v", dec)
			}
			if next.Last != state.Last {
				t.Fatal("state changed on rejection")
			}
		})
	}

	_, dec := tracking.Accept(state, sample(0.001, 0, 60000, 50), cfg)
	if !dec.Accepted {
		t.Fatalf("accuracy equal to the threshold must pass, got %+v", dec)
	}
}

func TestAccept_InvalidCoordinates(t *testing.T) {
	cfg := domain.DefaultFilterConfig()
	for _, s := range []domain.Sample{
		sample(math.NaN(), 0, 1, 5),
		sample(0, math.Inf(1), 1, 5),
	} {
		state, dec := tracking.Accept(tracking.FilterState{}, s, cfg)
		if dec.Accepted || dec.Reason != domain.RejectInvalid {
			t.Errorf("expected invalid rejection for %+v, got %+v", s, dec)
		}
		if state.Last != nil {
			t.Error("state changed on rejection")
		}
	}
}

func TestAccept_ZeroTimestampIsValid(t *testing.T) {
	cfg := domain.DefaultFilterConfig()

	state, dec := tracking.Accept(tracking.FilterState{}, sample(0, 0, 0, 10), cfg)
	if !dec.Accepted {
		t.Fatalf("expected a fix at t=0 accepted, got %+v", dec)
	}

	_, dec = tracking.Accept(state, sample(metersNorth(0, 20), 0, cfg.MinIntervalMs, 10), cfg)
	if !dec.Accepted {
		t.Fatalf("expected the next fix measured from t=0 accepted, got %+v", dec)
	}
}

func TestAccept_IntervalGate(t *testing.T) {
	cfg := domain.DefaultFilterConfig()
	prev := sample(0, 0, 10000, 5)
	state := tracking.FilterState{Last: &prev}
	far := metersNorth(0, 20)

	_, dec := tracking.Accept(state, sample(far, 0, 10000+cfg.MinIntervalMs-1, 5), cfg)
	if dec.Accepted || dec.Reason != domain.RejectInterval {
		t.Fatalf("expected interval rejection, got %+v", dec)
	}

	_, dec = tracking.Accept(state, sample(far, 0, 10000+cfg.MinIntervalMs, 5), cfg)
	if !dec.Accepted {
		t.Fatalf("expected sample at exactly the interval to pass, got %+v", dec)
	}
}

func TestAccept_DistanceGate(t *testing.T) {
	cfg := domain.DefaultFilterConfig()
	prev := sample(0, 0, 1000, 5)
	state := tracking.FilterState{Last: &prev}

	// Nudge past the boundary so float rounding cannot land just below it.
	exact := metersNorth(0, cfg.MinDistanceM+1e-6)
	_, dec := tracking.Accept(state, sample(exact, 0, 11000, 5), cfg)
	if !dec.Accepted {
		t.Fatalf("expected sample at the minimum distance to pass, got %+v", dec)
	}

	closer := metersNorth(0, cfg.MinDistanceM-1)
	next, dec := tracking.Accept(state, sample(closer, 0, 11000, 5), cfg)
	if dec.Accepted || dec.Reason != domain.RejectDistance {
		t.Fatalf("expected distance rejection, got %+v", dec)
	}
	if next.Last.Ts != prev.Ts {
		t.Fatal("state changed on rejection")
	}
}

func TestAccept_SpeedGate(t *testing.T) {
	cfg := domain.DefaultFilterConfig()
	prev := sample(0, 0, 1000, 5)
	state := tracking.FilterState{Last: &prev}

	// 500 m in 5 s is 360 km/h.
	_, dec := tracking.Accept(state, sample(metersNorth(0, 500), 0, 6000, 5), cfg)
	if dec.Accepted || dec.Reason != domain.RejectSpeed {
		t.Fatalf("expected speed rejection, got %+v", dec)
	}
	if dec.SpeedKmh < 359 || dec.SpeedKmh > 361 {
		t.Errorf("expected ~360 km/h, got %.1f", dec.SpeedKmh)
	}

	// 100 m in 5 s is 72 km/h.
	_, dec = tracking.Accept(state, sample(metersNorth(0, 100), 0, 6000, 5), cfg)
	if !dec.Accepted {
		t.Fatalf("expected plausible speed to pass, got %+v", dec)
	}
}

func TestAccept_SameTimestampJump(t *testing.T) {
	cfg := domain.DefaultFilterConfig()
	cfg.MinIntervalMs = 0
	prev := sample(0, 0, 1000, 5)
	state := tracking.FilterState{Last: &prev}

	_, dec := tracking.Accept(state, sample(metersNorth(0, 10), 0, 1000, 5), cfg)
	if dec.Accepted || dec.Reason != domain.RejectSpeed {
		t.Fatalf("zero elapsed time with movement must fail the speed gate, got %+v", dec)
	}
	if math.IsInf(dec.SpeedKmh, 0) || math.IsNaN(dec.SpeedKmh) {
		t.Fatalf("expected finite implied speed, got %v", dec.SpeedKmh)
	}
}

func TestAccept_RejectionKeepsReferencePoint(t *testing.T) {
	cfg := domain.DefaultFilterConfig()
	state, _ := tracking.Accept(tracking.FilterState{}, sample(0, 0, 1000, 5), cfg)

	// Too close: rejected, so the next check is still measured from t=1000.
	state, dec := tracking.Accept(state, sample(metersNorth(0, 2), 0, 5000, 5), cfg)
	if dec.Accepted {
		t.Fatal("expected rejection")
	}
	state, dec = tracking.Accept(state, sample(metersNorth(0, 20), 0, 5000, 5), cfg)
	if !dec.Accepted {
		t.Fatalf("expected acceptance, got %+v", dec)
	}
	if dec.IntervalMs != 4000 {
		t.Errorf("expected interval measured from last accepted, got %d", dec.IntervalMs)
	}
	if state.Last.Ts != 5000 {
		t.Errorf("expected reference point to advance, got %d", state.Last.Ts)
	}
}
