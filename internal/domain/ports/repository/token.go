package repository

import (
	"context"

	"ai-generation-gateway/internal/domain/model"
)

// TokenRepository stores per-user token balances and their movement ledger.
type TokenRepository interface {
	Balance(ctx context.Context, qx Tx, userID string) (*model.TokenBalance, error)

	// Deduct atomically subtracts amount when the balance covers it and
	// returns domain.ErrInsufficientTokens otherwise.
	Deduct(ctx context.Context, qx Tx, userID string, amount int64) error

	// Credit adds amount, creating the balance row when absent.
	Credit(ctx context.Context, qx Tx, userID string, amount int64) error

	SaveLedgerEntry(ctx context.Context, qx Tx, e *model.TokenLedgerEntry) error
}
