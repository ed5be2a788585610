package usecases_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/samirrijal/motolog/internal/core/domain"
	"github.com/samirrijal/motolog/internal/core/usecases"
)

func TestSettingsService_DefaultsWhenUnset(t *testing.T) {
	svc := usecases.NewSettingsService(newMockSettingsRepo(), domain.DefaultFilterConfig())
	cfg, err := svc.FilterConfig(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if cfg != domain.DefaultFilterConfig() {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestSettingsService_UpdateRoundsAndStores(t *testing.T) {
	repo := newMockSettingsRepo()
	svc := usecases.NewSettingsService(repo, domain.DefaultFilterConfig())

	var pushed domain.FilterConfig
	svc.OnFilterChange(func(cfg domain.FilterConfig) { pushed = cfg })

	cfg, err := svc.UpdateFilterConfig(context.Background(), usecases.FilterSettings{
		MaxAccuracyM:   30.4,
		MinIntervalSec: 2.5,
		MinDistanceM:   10.6,
		MaxSpeedKmh:    120,
	})
	if err != nil {
		t.Fatal(err)
	}
	want := domain.FilterConfig{MaxAccuracyM: 30, MinIntervalMs: 2500, MinDistanceM: 11, MaxSpeedKmh: 120}
	if cfg != want {
		t.Errorf("expected %+v, got %+v", want, cfg)
	}
	if pushed != want {
		t.Errorf("expected change hook to receive %+v, got %+v", want, pushed)
	}
	if repo.values[usecases.KeyMinIntervalMs] != "2500" {
		t.Errorf("expected interval stored in ms, got %q", repo.values[usecases.KeyMinIntervalMs])
	}

	reloaded, _ := svc.FilterConfig(context.Background())
	if reloaded != want {
		t.Errorf("expected stored values on reload, got %+v", reloaded)
	}
}

func TestSettingsService_UpdateRejectsOutOfRange(t *testing.T) {
	repo := newMockSettingsRepo()
	svc := usecases.NewSettingsService(repo, domain.DefaultFilterConfig())

	_, err := svc.UpdateFilterConfig(context.Background(), usecases.FilterSettings{
		MaxAccuracyM:   4,
		MinIntervalSec: 61,
		MinDistanceM:   math.NaN(),
		MaxSpeedKmh:    160,
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || len(verr.Fields) != 3 {
		t.Fatalf("expected 3 offending fields, got %v", err)
	}
	if len(repo.values) != 0 {
		t.Error("nothing must be stored on validation failure")
	}
}

func TestSettingsService_BoundaryValuesAccepted(t *testing.T) {
	svc := usecases.NewSettingsService(newMockSettingsRepo(), domain.DefaultFilterConfig())
	for _, in := range []usecases.FilterSettings{
		{MaxAccuracyM: 5, MinIntervalSec: 1, MinDistanceM: 1, MaxSpeedKmh: 20},
		{MaxAccuracyM: 500, MinIntervalSec: 60, MinDistanceM: 200, MaxSpeedKmh: 300},
	} {
		if _, err := svc.UpdateFilterConfig(context.Background(), in); err != nil {
			t.Errorf("expected %+v accepted, got %v", in, err)
		}
	}
}

func TestSettingsService_StoreErrorPropagates(t *testing.T) {
	repo := newMockSettingsRepo()
	repo.setFn = func(key, value string) error { return errors.New("locked") }
	svc := usecases.NewSettingsService(repo, domain.DefaultFilterConfig())

	_, err := svc.UpdateFilterConfig(context.Background(), usecases.ToSettings(domain.DefaultFilterConfig()))
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestSettingsService_CorruptValueFallsBack(t *testing.T) {
	repo := newMockSettingsRepo()
	repo.values[usecases.KeyMaxSpeedKmh] = "fast"
	repo.values[usecases.KeyMinDistanceM] = "12"
	svc := usecases.NewSettingsService(repo, domain.DefaultFilterConfig())

	cfg, err := svc.FilterConfig(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MaxSpeedKmh != 160 || cfg.MinDistanceM != 12 {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestSettingsService_ActiveJourneyPointer(t *testing.T) {
	svc := usecases.NewSettingsService(newMockSettingsRepo(), domain.DefaultFilterConfig())
	ctx := context.Background()

	id, err := svc.ActiveJourneyID(ctx)
	if err != nil || id != "" {
		t.Fatalf("expected empty pointer, got %q %v", id, err)
	}
	_ = svc.SetActiveJourneyID(ctx, "j1")
	if id, _ := svc.ActiveJourneyID(ctx); id != "j1" {
		t.Errorf("expected j1, got %q", id)
	}
	_ = svc.ClearActiveJourneyID(ctx)
	if id, _ := svc.ActiveJourneyID(ctx); id != "" {
		t.Errorf("expected cleared pointer, got %q", id)
	}
}

func TestToSettings(t *testing.T) {
	s := usecases.ToSettings(domain.DefaultFilterConfig())
	if s.MinIntervalSec != 3 {
		t.Errorf("expected 3 s, got %v", s.MinIntervalSec)
	}
}
