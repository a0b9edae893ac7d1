// File: internal/usecase/cancel_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"ai-generation-gateway/internal/domain"
	"ai-generation-gateway/internal/domain/model"
	"ai-generation-gateway/internal/domain/ports/repository"
	"ai-generation-gateway/internal/infra/logging"
	"ai-generation-gateway/internal/infra/metrics"
)

// Watcher is the slice of the poll manager cancellation needs: stopping the
// loop for a job immediately, before the provider has acknowledged anything.
type Watcher interface {
	Unwatch(jobID string)
}

// CancelUseCase requests cancellation at the provider and forces the local
// state to cancelled regardless of the provider's answer. The provider call
// is advisory; its failure is logged, never propagated.
type CancelUseCase interface {
	Cancel(ctx context.Context, jobID string, provider model.Provider) error
}

var _ CancelUseCase = (*cancelUC)(nil)

type cancelUC struct {
	creds    CredentialResolver
	registry AdapterRegistry
	records  repository.GenerationRepository
	cache    repository.StatusCache
	watcher  Watcher
	log      *zerolog.Logger
}

func NewCancelUseCase(
	creds CredentialResolver,
	registry AdapterRegistry,
	records repository.GenerationRepository,
	cache repository.StatusCache,
	watcher Watcher,
	logger *zerolog.Logger,
) *cancelUC {
	l := logger.With().Str("component", "CancelUC").Logger()
	return &cancelUC{creds: creds, registry: registry, records: records, cache: cache, watcher: watcher, log: &l}
}

func (u *cancelUC) Cancel(ctx context.Context, jobID string, provider model.Provider) error {
	defer logging.TraceDuration(u.log, "CancelUC.Cancel")()

	// Stop any polling loop first so an in-flight completion observed a
	// moment later cannot race the user's decision.
	if u.watcher != nil {
		u.watcher.Unwatch(jobID)
	}

	u.markCancelled(ctx, jobID, provider)

	ad, err := u.registry.Get(provider)
	if err != nil {
		u.log.Warn().Err(err).Str("job_id", jobID).Msg("cancel: no adapter, outbound call skipped")
		return nil
	}

	// Cancellation without credentials simply skips the outbound call.
	secret, err := u.creds.Resolve(ctx, provider)
	if err != nil {
		if !errors.Is(err, domain.ErrMissingCredential) {
			u.log.Warn().Err(err).Str("job_id", jobID).Msg("cancel: credential resolution failed")
		}
		metrics.IncCancellation(string(provider), false)
		return nil
	}

	if err := ad.Cancel(ctx, secret, jobID); err != nil {
		// CancellationIgnored: the provider may keep processing (and
		// billing); local state stays cancelled either way.
		u.log.Warn().Err(err).Str("job_id", jobID).Str("provider", string(provider)).Msg("provider did not acknowledge cancellation")
		metrics.IncCancellation(string(provider), false)
		return nil
	}
	metrics.IncCancellation(string(provider), true)
	return nil
}

// markCancelled pins cancelled into the status cache and the persisted
// record. A job already terminal keeps its earlier outcome.
func (u *cancelUC) markCancelled(ctx context.Context, jobID string, provider model.Provider) {
	if cached, err := u.cache.Get(ctx, jobID); err == nil && cached.Status.Terminal() {
		return
	}
	job := &model.GenerationJob{
		ID:        jobID,
		Provider:  provider,
		Status:    model.JobStatusCancelled,
		CreatedAt: time.Now(),
	}
	if err := u.cache.Put(ctx, job); err != nil {
		u.log.Warn().Err(err).Str("job_id", jobID).Msg("cancel: status cache write failed")
	}
	metrics.IncJobFinished(string(provider), string(model.JobStatusCancelled))

	recs, err := u.records.ListRecent(ctx, repository.NoTX, time.Now().Add(-reconcileWindow), reconcileLimit)
	if err != nil {
		u.log.Warn().Err(err).Str("job_id", jobID).Msg("cancel: listing recent records failed")
		return
	}
	for _, rec := range recs {
		if rec.JobID != jobID || rec.Status.Terminal() {
			continue
		}
		if err := u.records.UpdateStatus(ctx, repository.NoTX, rec.ID, model.JobStatusCancelled, "", ""); err != nil {
			u.log.Warn().Err(err).Str("record_id", rec.ID).Msg("cancel: record update failed")
		}
		return
	}
}
