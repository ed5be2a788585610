package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/motolog/internal/core/domain"
)

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	q Querier
}

func NewTransactionRepo(q Querier) *TransactionRepo {
	return &TransactionRepo{q: q}
}

const transactionColumns = `id, kind, amount_cents, category, notes, journey_id, ts, created_at`

func (r *TransactionRepo) Create(ctx context.Context, t *domain.Transaction) error {
	var journeyID *string
	if t.JourneyID != "" {
		journeyID = &t.JourneyID
	}
	_, err := r.q.Exec(ctx, `
        INSERT INTO transactions (`+transactionColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `, t.ID, string(t.Kind), t.AmountCents, t.Category, t.Notes, journeyID, t.Ts, t.CreatedAt)
	return err
}

func (r *TransactionRepo) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	row := r.q.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return t, err
}

func (r *TransactionRepo) ListBetween(ctx context.Context, from, to time.Time) ([]domain.Transaction, error) {
	rows, err := r.q.Query(ctx, `
        SELECT `+transactionColumns+` FROM transactions
        WHERE ts >= $1 AND ts <= $2
        ORDER BY ts DESC
    `, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (r *TransactionRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectOne(tag)
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		t         domain.Transaction
		kind      string
		journeyID *string
	)
	if err := row.Scan(&t.ID, &kind, &t.AmountCents, &t.Category, &t.Notes, &journeyID, &t.Ts, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.Kind = domain.TransactionKind(kind)
	if journeyID != nil {
		t.JourneyID = *journeyID
	}
	return &t, nil
}
