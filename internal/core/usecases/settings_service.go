package usecases

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/samirrijal/motolog/internal/core/domain"
	"github.com/samirrijal/motolog/internal/core/ports"
)

// Settings keys.
const (
	KeyActiveJourney = "activeJourneyId"
	KeyMaxAccuracyM  = "maxAccuracyM"
	KeyMinIntervalMs = "minIntervalMs"
	KeyMinDistanceM  = "minDistanceM"
	KeyMaxSpeedKmh   = "maxSpeedKmh"
)

// FilterSettings is the user-facing form of the thresholds; the interval
// is given in seconds.
type FilterSettings struct {
	MaxAccuracyM   float64 `json:"max_accuracy_m"`
	MinIntervalSec float64 `json:"min_interval_sec"`
	MinDistanceM   float64 `json:"min_distance_m"`
	MaxSpeedKmh    float64 `json:"max_speed_kmh"`
}

// SettingsService stores tracking thresholds and the active journey pointer.
type SettingsService struct {
	repo     ports.SettingsRepository
	defaults domain.FilterConfig
	onChange func(domain.FilterConfig)
}

// NewSettingsService creates a SettingsService falling back to defaults for
// thresholds that were never saved.
func NewSettingsService(repo ports.SettingsRepository, defaults domain.FilterConfig) *SettingsService {
	return &SettingsService{repo: repo, defaults: defaults}
}

// OnFilterChange registers fn to receive the thresholds after every update.
func (s *SettingsService) OnFilterChange(fn func(domain.FilterConfig)) {
	s.onChange = fn
}

// FilterConfig returns the stored thresholds merged over the defaults.
func (s *SettingsService) FilterConfig(ctx context.Context) (domain.FilterConfig, error) {
	cfg := s.defaults

	fields := []struct {
		key string
		set func(float64)
	}{
		{KeyMaxAccuracyM, func(v float64) { cfg.MaxAccuracyM = v }},
		{KeyMinIntervalMs, func(v float64) { cfg.MinIntervalMs = int64(v) }},
		{KeyMinDistanceM, func(v float64) { cfg.MinDistanceM = v }},
		{KeyMaxSpeedKmh, func(v float64) { cfg.MaxSpeedKmh = v }},
	}
	for _, f := range fields {
		raw, err := s.repo.Get(ctx, f.key)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return domain.FilterConfig{}, fmt.Errorf("get setting %s: %w", f.key, err)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			// A corrupt value falls back to the default.
			continue
		}
		f.set(v)
	}
	return cfg, nil
}

// UpdateFilterConfig validates in, rounds every value to a whole number and
// stores it. The interval is stored in milliseconds.
func (s *SettingsService) UpdateFilterConfig(ctx context.Context, in FilterSettings) (domain.FilterConfig, error) {
	if err := validateFilterSettings(in); err != nil {
		return domain.FilterConfig{}, err
	}

	cfg := domain.FilterConfig{
		MaxAccuracyM:  math.Round(in.MaxAccuracyM),
		MinIntervalMs: int64(math.Round(in.MinIntervalSec * 1000)),
		MinDistanceM:  math.Round(in.MinDistanceM),
		MaxSpeedKmh:   math.Round(in.MaxSpeedKmh),
	}

	values := map[string]string{
		KeyMaxAccuracyM:  strconv.FormatFloat(cfg.MaxAccuracyM, 'f', -1, 64),
		KeyMinIntervalMs: strconv.FormatInt(cfg.MinIntervalMs, 10),
		KeyMinDistanceM:  strconv.FormatFloat(cfg.MinDistanceM, 'f', -1, 64),
		KeyMaxSpeedKmh:   strconv.FormatFloat(cfg.MaxSpeedKmh, 'f', -1, 64),
	}
	for _, key := range []string{KeyMaxAccuracyM, KeyMinIntervalMs, KeyMinDistanceM, KeyMaxSpeedKmh} {
		if err := s.repo.Set(ctx, key, values[key]); err != nil {
			return domain.FilterConfig{}, fmt.Errorf("set setting %s: %w", key, err)
		}
	}

	if s.onChange != nil {
		s.onChange(cfg)
	}
	return cfg, nil
}

func validateFilterSettings(in FilterSettings) error {
	var fields []string
	check := func(name string, v, min, max float64) {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < min || v > max {
			fields = append(fields, fmt.Sprintf("%s must be between %g and %g", name, min, max))
		}
	}
	check("max_accuracy_m", in.MaxAccuracyM, 5, 500)
	check("min_interval_sec", in.MinIntervalSec, 1, 60)
	check("min_distance_m", in.MinDistanceM, 1, 200)
	check("max_speed_kmh", in.MaxSpeedKmh, 20, 300)

	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}

// ActiveJourneyID returns the stored active journey pointer, or "".
func (s *SettingsService) ActiveJourneyID(ctx context.Context) (string, error) {
	id, err := s.repo.Get(ctx, KeyActiveJourney)
	if errors.Is(err, domain.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get active journey: %w", err)
	}
	return id, nil
}

// SetActiveJourneyID stores the active journey pointer.
func (s *SettingsService) SetActiveJourneyID(ctx context.Context, id string) error {
	if err := s.repo.Set(ctx, KeyActiveJourney, id); err != nil {
		return fmt.Errorf("set active journey: %w", err)
	}
	return nil
}

// ClearActiveJourneyID removes the active journey pointer.
func (s *SettingsService) ClearActiveJourneyID(ctx context.Context) error {
	if err := s.repo.Delete(ctx, KeyActiveJourney); err != nil {
		return fmt.Errorf("clear active journey: %w", err)
	}
	return nil
}

// ToSettings converts cfg into its user-facing form.
func ToSettings(cfg domain.FilterConfig) FilterSettings {
	return FilterSettings{
		MaxAccuracyM:   cfg.MaxAccuracyM,
		MinIntervalSec: float64(cfg.MinIntervalMs) / 1000,
		MinDistanceM:   cfg.MinDistanceM,
		MaxSpeedKmh:    cfg.MaxSpeedKmh,
	}
}
