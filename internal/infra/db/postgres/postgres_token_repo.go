package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"ai-generation-gateway/internal/domain"
	"ai-generation-gateway/internal/domain/model"
	"ai-generation-gateway/internal/domain/ports/repository"
)

var _ repository.TokenRepository = (*tokenRepo)(nil)

type tokenRepo struct {
	pool *pgxpool.Pool
}

func NewTokenRepo(pool *pgxpool.Pool) *tokenRepo {
	return &tokenRepo{pool: pool}
}

func (r *tokenRepo) Balance(ctx context.Context, qx repository.Tx, userID string) (*model.TokenBalance, error) {
	const q = `SELECT user_id, tokens, updated_at FROM token_balances WHERE user_id = $1;`

	row, err := pickRow(ctx, r.pool, qx, q, userID)
	if err != nil {
		return nil, err
	}
	var b model.TokenBalance
	if err := row.Scan(&b.UserID, &b.Tokens, &b.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

// Deduct subtracts in a single guarded UPDATE; zero rows affected means the
// balance was missing or too small.
func (r *tokenRepo) Deduct(ctx context.Context, qx repository.Tx, userID string, amount int64) error {
	if amount <= 0 {
		return domain.ErrInvalidArgument
	}
	const q = `
UPDATE token_balances
   SET tokens = tokens - $2, updated_at = NOW()
 WHERE user_id = $1
   AND tokens >= $2;`

	tag, err := execSQL(ctx, r.pool, qx, q, userID, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInsufficientTokens
	}
	return nil
}

func (r *tokenRepo) Credit(ctx context.Context, qx repository.Tx, userID string, amount int64) error {
	if amount <= 0 {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO token_balances (user_id, tokens, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (user_id) DO UPDATE SET
  tokens = token_balances.tokens + EXCLUDED.tokens,
  updated_at = NOW();`

	_, err := execSQL(ctx, r.pool, qx, q, userID, amount)
	return err
}

func (r *tokenRepo) SaveLedgerEntry(ctx context.Context, qx repository.Tx, e *model.TokenLedgerEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	const q = `
INSERT INTO token_ledger (id, user_id, job_id, amount, reason, created_at)
VALUES ($1, $2, $3, $4, $5, $6);`

	_, err := execSQL(ctx, r.pool, qx, q, e.ID, e.UserID, e.JobID, e.Amount, e.Reason, e.CreatedAt)
	return err
}
