package repository

import (
	"context"

	"ai-generation-gateway/internal/domain/model"
)

// StatusCache remembers the final observation of a job so that repeated polls
// of a terminal job are idempotent reads and a client-observed cancellation
// cannot be overwritten by a later provider response.
type StatusCache interface {
	// Get returns the cached job or domain.ErrNotFound.
	Get(ctx context.Context, jobID string) (*model.GenerationJob, error)
	Put(ctx context.Context, job *model.GenerationJob) error
}
