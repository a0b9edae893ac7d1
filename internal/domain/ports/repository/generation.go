package repository

import (
	"context"
	"time"

	"ai-generation-gateway/internal/domain/model"
)

// GenerationRepository persists generation records. Reconciliation reads scan
// a bounded recent window; there is deliberately no lookup keyed on the
// provider task id.
type GenerationRepository interface {
	Save(ctx context.Context, qx Tx, rec *model.GenerationRecord) error

	// ListRecent returns at most limit records created after since, newest
	// first.
	ListRecent(ctx context.Context, qx Tx, since time.Time, limit int) ([]*model.GenerationRecord, error)

	ListByUser(ctx context.Context, qx Tx, userID string, limit int) ([]*model.GenerationRecord, error)

	UpdateStatus(ctx context.Context, qx Tx, id string, status model.JobStatus, resultURL, errorMessage string) error

	// FailStale marks records still non-terminal and untouched since cutoff
	// as failed, returning the number of rows changed.
	FailStale(ctx context.Context, qx Tx, cutoff time.Time, reason string) (int64, error)
}
