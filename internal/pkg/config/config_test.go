package config

import (
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("motolog-test")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("expected sqlite driver, got %q", cfg.Storage.Driver)
	}
	if cfg.Telemetry.ServiceName != "motolog-test" {
		t.Errorf("expected service name from argument, got %q", cfg.Telemetry.ServiceName)
	}
	f := cfg.Tracking.Filter
	if f.MaxAccuracyM != 50 || f.MinIntervalMs != 3000 || f.MinDistanceM != 8 || f.MaxSpeedKmh != 160 {
		t.Errorf("unexpected default filter: %+v", f)
	}
	if s := cfg.Tracking.Stats; s.StopSpeedMps != 0.6 || s.StopWindowSec != 20 {
		t.Errorf("unexpected default stop thresholds: %+v", s)
	}
	d := cfg.Tracking.Device
	if !d.HighAccuracy || d.TimeoutMs != 15000 || d.MaxAgeMs != 2000 {
		t.Errorf("unexpected default device options: %+v", d)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MOTOLOG_STORAGE_DRIVER", "postgres")
	t.Setenv("MOTOLOG_STORAGE_POSTGRES_HOST", "db.internal")
	t.Setenv("MOTOLOG_TRACKING_FILTER_MAX_SPEED_KMH", "140")
	t.Setenv("MOTOLOG_TRACKING_STATS_STOP_WINDOW_SEC", "30")

	cfg, err := Load("motolog-test")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Driver != "postgres" || cfg.Storage.Postgres.Host != "db.internal" {
		t.Errorf("env override not applied: %+v", cfg.Storage)
	}
	if cfg.Tracking.Filter.MaxSpeedKmh != 140 {
		t.Errorf("expected 140 km/h, got %g", cfg.Tracking.Filter.MaxSpeedKmh)
	}
	if cfg.Tracking.Stats.StopWindowSec != 30 {
		t.Errorf("expected 30 s stop window, got %g", cfg.Tracking.Stats.StopWindowSec)
	}
	if got := cfg.Storage.Postgres.DSN(); got != "postgres://motolog:@db.internal:5432/motolog?sslmode=disable" {
		t.Errorf("unexpected dsn %q", got)
	}
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("motolog-test")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	cfg.Server.Port = 0
	cfg.Storage.Driver = "mongo"
	cfg.Tracking.Source = "nats"
	cfg.Tracking.Filter.MaxAccuracyM = 2
	cfg.Tracking.Filter.MinIntervalMs = 90000
	cfg.Tracking.Stats.StopSpeedMps = 0
	cfg.Tracking.Stats.StopWindowSec = 1

	err = cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{
		"server.port",
		"storage.driver",
		"tracking.source nats requires nats.enabled",
		"max_accuracy_m",
		"min_interval_ms",
		"stop_speed_mps",
		"stop_window_sec",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to mention %q, got:\n%s", want, err)
		}
	}
}
