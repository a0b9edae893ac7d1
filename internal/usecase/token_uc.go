// File: internal/usecase/token_uc.go
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"ai-generation-gateway/internal/domain/model"
	"ai-generation-gateway/internal/domain/ports/repository"
)

// TokenUseCase meters the abstract token currency charged per generation.
type TokenUseCase interface {
	Balance(ctx context.Context, userID string) (*model.TokenBalance, error)
	HasEnough(ctx context.Context, userID string, amount int64) (bool, error)

	// DeductForJob atomically deducts amount and records a ledger entry.
	DeductForJob(ctx context.Context, userID, jobID string, amount int64) error

	// Refund credits amount back, e.g. when a submission fails after the
	// deduction.
	Refund(ctx context.Context, userID, jobID string, amount int64, reason string) error
}

// EstimateCost prices a request before submission. Flat per-second rates for
// moving media, flat per-image otherwise.
func EstimateCost(kind model.JobKind, durationSeconds int) int64 {
	if durationSeconds <= 0 {
		durationSeconds = 5
	}
	switch kind {
	case model.JobKindVideo:
		return int64(durationSeconds) * 10
	case model.JobKindAnimation:
		return int64(durationSeconds) * 8
	case model.JobKindImage:
		return 5
	default:
		return int64(durationSeconds) * 10
	}
}

var _ TokenUseCase = (*tokenUC)(nil)

type tokenUC struct {
	repo repository.TokenRepository
	tm   repository.TransactionManager
}

func NewTokenUseCase(repo repository.TokenRepository, tm repository.TransactionManager) *tokenUC {
	return &tokenUC{repo: repo, tm: tm}
}

func (u *tokenUC) Balance(ctx context.Context, userID string) (*model.TokenBalance, error) {
	return u.repo.Balance(ctx, repository.NoTX, userID)
}

func (u *tokenUC) HasEnough(ctx context.Context, userID string, amount int64) (bool, error) {
	b, err := u.repo.Balance(ctx, repository.NoTX, userID)
	if err != nil {
		return false, err
	}
	return b.Tokens >= amount, nil
}

func (u *tokenUC) DeductForJob(ctx context.Context, userID, jobID string, amount int64) error {
	return u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := u.repo.Deduct(ctx, tx, userID, amount); err != nil {
			return err
		}
		return u.repo.SaveLedgerEntry(ctx, tx, &model.TokenLedgerEntry{
			ID:        uuid.NewString(),
			UserID:    userID,
			JobID:     jobID,
			Amount:    -amount,
			Reason:    "generation",
			CreatedAt: time.Now(),
		})
	})
}

func (u *tokenUC) Refund(ctx context.Context, userID, jobID string, amount int64, reason string) error {
	return u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := u.repo.Credit(ctx, tx, userID, amount); err != nil {
			return err
		}
		return u.repo.SaveLedgerEntry(ctx, tx, &model.TokenLedgerEntry{
			ID:        uuid.NewString(),
			UserID:    userID,
			JobID:     jobID,
			Amount:    amount,
			Reason:    reason,
			CreatedAt: time.Now(),
		})
	})
}
