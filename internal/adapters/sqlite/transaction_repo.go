package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/samirrijal/motolog/internal/core/domain"
)

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	db *DB
}

func NewTransactionRepo(db *DB) *TransactionRepo {
	return &TransactionRepo{db: db}
}

const transactionColumns = `id, kind, amount_cents, category, notes, journey_id, ts, created_at`

func (r *TransactionRepo) Create(ctx context.Context, t *domain.Transaction) error {
	_, err := r.db.SQL.ExecContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, string(t.Kind), t.AmountCents, t.Category, t.Notes, stringOrNil(t.JourneyID),
		t.Ts.UnixMilli(), t.CreatedAt.UnixMilli())
	return err
}

func (r *TransactionRepo) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	row := r.db.SQL.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return t, err
}

func (r *TransactionRepo) ListBetween(ctx context.Context, from, to time.Time) ([]domain.Transaction, error) {
	rows, err := r.db.SQL.QueryContext(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE ts >= ? AND ts <= ?
		ORDER BY ts DESC
	`, from.UnixMilli(), to.UnixMilli())
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
	res, err := r.db.SQL.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func scanTransaction(s scanner) (*domain.Transaction, error) {
	var (
		t             domain.Transaction
		kind          string
		journeyID     sql.NullString
		ts, createdAt int64
	)
	if err := s.Scan(&t.ID, &kind, &t.AmountCents, &t.Category, &t.Notes, &journeyID, &ts, &createdAt); err != nil {
		return nil, err
	}
	t.Kind = domain.TransactionKind(kind)
	t.JourneyID = journeyID.String
	t.Ts = time.UnixMilli(ts)
	t.CreatedAt = time.UnixMilli(createdAt)
	return &t, nil
}

func stringOrNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}
