package usecases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/motolog/internal/core/domain"
	"github.com/samirrijal/motolog/internal/core/ports"
)

// TransactionService records income and expenses.
type TransactionService struct {
	repo  ports.TransactionRepository
	cache ports.CacheService
	now   func() time.Time
}

// NewTransactionService creates a TransactionService. cache may be nil.
func NewTransactionService(repo ports.TransactionRepository, cache ports.CacheService) *TransactionService {
	return &TransactionService{repo: repo, cache: cache, now: time.Now}
}

// Create validates and stores t, filling ID, CreatedAt and a missing Ts.
func (s *TransactionService) Create(ctx context.Context, t *domain.Transaction) error {
	var fields []string
	if !t.Kind.Valid() {
		fields = append(fields, fmt.Sprintf("kind must be income or expense, got %q", t.Kind))
	}
	if t.AmountCents <= 0 {
		fields = append(fields, "amount_cents must be positive")
	}
	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}

	now := s.now()
	t.ID = uuid.NewString()
	t.Category = strings.TrimSpace(t.Category)
	t.Notes = strings.TrimSpace(t.Notes)
	if t.Ts.IsZero() {
		t.Ts = now
	}
	t.CreatedAt = now

	if err := s.repo.Create(ctx, t); err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	invalidateReports(ctx, s.cache)
	return nil
}

// Get returns a single transaction.
func (s *TransactionService) Get(ctx context.Context, id string) (*domain.Transaction, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns the transactions of period, newest first.
func (s *TransactionService) List(ctx context.Context, period domain.Period) ([]domain.Transaction, error) {
	r := RangeForPeriod(period, s.now())
	return s.repo.ListBetween(ctx, r.From, r.To)
}

// Delete removes a transaction.
func (s *TransactionService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	invalidateReports(ctx, s.cache)
	return nil
}
