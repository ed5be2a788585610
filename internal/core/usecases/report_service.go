package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/samirrijal/motolog/internal/core/domain"
	"github.com/samirrijal/motolog/internal/core/ports"
	"github.com/samirrijal/motolog/internal/pkg/metrics"
	"github.com/samirrijal/motolog/internal/pkg/telemetry"
)

const (
	day            = 24 * time.Hour
	reportCacheTTL = 60 // seconds
)

func reportCacheKey(p domain.Period) string {
	return "reports:summary:" + string(p)
}

// invalidateReports drops every cached summary. cache may be nil.
func invalidateReports(ctx context.Context, cache ports.CacheService) {
	if cache == nil {
		return
	}
	for _, p := range domain.Periods {
		_ = cache.Delete(ctx, reportCacheKey(p))
	}
}

// ParsePeriod validates a period name. An empty name means today.
func ParsePeriod(s string) (domain.Period, error) {
	if s == "" {
		return domain.PeriodToday, nil
	}
	for _, p := range domain.Periods {
		if string(p) == s {
			return p, nil
		}
	}
	return "", &domain.ValidationError{Fields: []string{fmt.Sprintf("unknown period %q", s)}}
}

// RangeForPeriod returns the inclusive window of p ending at now. today spans
// the local calendar day of now; the rolling periods cover n-1 days back
// from now; all starts at the unix epoch.
func RangeForPeriod(p domain.Period, now time.Time) domain.TimeRange {
	switch p {
	case domain.PeriodToday:
		y, m, d := now.Date()
		start := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
		end := time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), now.Location())
		return domain.TimeRange{From: start, To: end}
	case domain.Period7Days:
		return domain.TimeRange{From: now.Add(-6 * day), To: now}
	case domain.Period30Days:
		return domain.TimeRange{From: now.Add(-29 * day), To: now}
	case domain.Period90Days:
		return domain.TimeRange{From: now.Add(-89 * day), To: now}
	case domain.PeriodYear:
		return domain.TimeRange{From: now.Add(-364 * day), To: now}
	default:
		return domain.TimeRange{From: time.UnixMilli(0).In(now.Location()), To: now}
	}
}

// ComputeKPIs derives the ratios of a summary. Money is in currency units
// per km or hour; undefined ratios stay nil.
func ComputeKPIs(incomeCents, expenseCents int64, distanceM, movingSec, stoppedSec float64) domain.KPIs {
	income := float64(incomeCents) / 100
	expense := float64(expenseCents) / 100
	profit := income - expense

	k := domain.KPIs{
		Km:          distanceM / 1000,
		MovingHours: movingSec / 3600,
		TotalHours:  (movingSec + stoppedSec) / 3600,
	}
	ratio := func(num, den float64) *float64 {
		if den <= 0 {
			return nil
		}
		v := num / den
		return &v
	}
	k.RevPerKm = ratio(income, k.Km)
	k.CostPerKm = ratio(expense, k.Km)
	k.ProfitPerKm = ratio(profit, k.Km)
	k.RevPerHour = ratio(income, k.MovingHours)
	k.ProfitPerH = ratio(profit, k.MovingHours)
	k.CostPerHour = ratio(expense, k.TotalHours)
	k.Margin = ratio(profit, income)
	return k
}

// ReportService builds period summaries over journeys and transactions.
type ReportService struct {
	journeys     ports.JourneyRepository
	transactions ports.TransactionRepository
	cache        ports.CacheService
	now          func() time.Time
}

// NewReportService creates a ReportService. cache may be nil.
func NewReportService(journeys ports.JourneyRepository, transactions ports.TransactionRepository, cache ports.CacheService) *ReportService {
	return &ReportService{journeys: journeys, transactions: transactions, cache: cache, now: time.Now}
}

// Summary returns the report of period, served from cache when fresh.
func (s *ReportService) Summary(ctx context.Context, period domain.Period) (*domain.Summary, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanReportSummary)
	defer span.End()

	key := reportCacheKey(period)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key); err == nil {
			var sum domain.Summary
			if err := json.Unmarshal(data, &sum); err == nil {
				metrics.CacheHits.WithLabelValues("report_summary").Inc()
				return &sum, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("report_summary").Inc()
	}

	sum, err := s.build(ctx, period, s.now())
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(sum); err == nil {
			_ = s.cache.Set(ctx, key, data, reportCacheTTL)
		}
	}
	return sum, nil
}

func (s *ReportService) build(ctx context.Context, period domain.Period, now time.Time) (*domain.Summary, error) {
	r := RangeForPeriod(period, now)
	sum := &domain.Summary{Period: period, Range: r}

	txs, err := s.transactions.ListBetween(ctx, r.From, r.To)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	for _, t := range txs {
		switch t.Kind {
		case domain.Income:
			sum.IncomeCents += t.AmountCents
		case domain.Expense:
			sum.ExpenseCents += t.AmountCents
		}
	}
	sum.ProfitCents = sum.IncomeCents - sum.ExpenseCents

	journeys, err := s.journeys.ListStartedBetween(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("list journeys: %w", err)
	}
	sum.Journeys = len(journeys)
	for _, j := range journeys {
		if j.Stats == nil {
			continue
		}
		sum.DistanceM += j.Stats.DistanceM
		sum.MovingSec += j.Stats.MovingSec
		sum.StoppedSec += j.Stats.StoppedSec
	}

	sum.KPIs = ComputeKPIs(sum.IncomeCents, sum.ExpenseCents, sum.DistanceM, sum.MovingSec, sum.StoppedSec)
	return sum, nil
}
