// File: internal/usecase/status_uc.go
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

// Reconciliation scans this bounded recent window for a record carrying the
// polled job id. Deliberately not an indexed lookup; see GenerationRepository.
const (
	reconcileWindow = 7 * 24 * time.Hour
	reconcileLimit  = 50
)

// StatusUseCase performs a single status check for a job: one provider poll,
// status translation, terminal-state caching and best-effort reconciliation
// of the persisted record. It never loops.
type StatusUseCase interface {
	Check(ctx context.Context, jobID string, provider model.Provider) (*model.GenerationJob, error)

	// Absorb records a terminal state determined outside a provider poll,
	// e.g. the poll manager giving up on a job. Idempotent: a job already
	// terminal in the cache keeps its earlier outcome.
	Absorb(ctx context.Context, job *model.GenerationJob)
}

var _ StatusUseCase = (*statusUC)(nil)

type statusUC struct {
	creds    CredentialResolver
	registry AdapterRegistry
	records  repository.GenerationRepository
	cache    repository.StatusCache
	log      *zerolog.Logger
}

func NewStatusUseCase(
	creds CredentialResolver,
	registry AdapterRegistry,
	records repository.GenerationRepository,
	cache repository.StatusCache,
	logger *zerolog.Logger,
) *statusUC {
	l := logger.With().Str("component", "StatusUC").Logger()
	return &statusUC{creds: creds, registry: registry, records: records, cache: cache, log: &l}
}

func (u *statusUC) Check(ctx context.Context, jobID string, provider model.Provider) (*model.GenerationJob, error) {
	defer logging.TraceDuration(u.log, "StatusUC.Check")()
	log := logging.With(ctx, u.log)

	// Terminal observations are sticky: once completed/failed/cancelled has
	// been recorded, later polls return the same answer without touching the
	// provider. This also makes a client-observed cancellation win against a
	// provider that later reports completion.
	if cached, err := u.cache.Get(ctx, jobID); err == nil && cached.Status.Terminal() {
		return cached, nil
	} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
		log.Debug().Err(err).Str("job_id", jobID).Msg("status cache read failed")
	}

	ad, err := u.registry.Get(provider)
	if err != nil {
		return nil, err
	}
	secret, err := u.creds.Resolve(ctx, provider)
	if err != nil {
		return nil, err
	}

	task, err := ad.Poll(ctx, secret, jobID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAuth):
			metrics.IncPoll(string(provider), "auth")
		case errors.Is(err, domain.ErrTransientPoll):
			metrics.IncPoll(string(provider), "transient")
		default:
			metrics.IncPoll(string(provider), "error")
		}
		return nil, err
	}
	metrics.IncPoll(string(provider), "ok")

	job := &model.GenerationJob{
		ID:        jobID,
		Provider:  provider,
		Status:    model.JobStatusProcessing,
		Progress:  task.Progress,
		CreatedAt: time.Now(),
	}
	// The provider only knows its task id; model, kind and the original
	// submission time live in the persisted record.
	rec := u.findRecord(ctx, jobID)
	if rec != nil {
		job.Model = rec.Model
		job.Kind = rec.Kind
		job.CreatedAt = rec.CreatedAt
	}
	switch st := ad.TranslateStatus(task.Status); st {
	case model.JobStatusCompleted:
		job.Complete(task.OutputURL)
	case model.JobStatusFailed:
		reason := task.ErrorMessage
		if reason == "" {
			reason = "generation failed"
		}
		job.Fail(reason)
	default:
		job.Status = st
	}

	if job.Status.Terminal() {
		if cerr := u.cache.Put(ctx, job); cerr != nil {
			log.Warn().Err(cerr).Str("job_id", jobID).Msg("status cache write failed")
		}
		metrics.IncJobFinished(string(provider), string(job.Status))
		u.reconcile(ctx, rec, job)
	}
	return job, nil
}

func (u *statusUC) Absorb(ctx context.Context, job *model.GenerationJob) {
	if job == nil || !job.Status.Terminal() {
		return
	}
	if cached, err := u.cache.Get(ctx, job.ID); err == nil && cached.Status.Terminal() {
		return
	}
	if err := u.cache.Put(ctx, job); err != nil {
		u.log.Warn().Err(err).Str("job_id", job.ID).Msg("status cache write failed")
	}
	metrics.IncJobFinished(string(job.Provider), string(job.Status))
	u.reconcile(ctx, u.findRecord(ctx, job.ID), job)
}

// findRecord locates the persisted record for a job id over a bounded recent
// window. Best-effort: lookup failures are logged and yield nil.
func (u *statusUC) findRecord(ctx context.Context, jobID string) *model.GenerationRecord {
	recs, err := u.records.ListRecent(ctx, repository.NoTX, time.Now().Add(-reconcileWindow), reconcileLimit)
	if err != nil {
		u.log.Warn().Err(err).Str("job_id", jobID).Msg("listing recent records failed")
		return nil
	}
	for _, rec := range recs {
		if rec.JobID == jobID {
			return rec
		}
	}
	return nil
}

// reconcile mirrors the observed status into the persisted record. Failures
// are logged and swallowed so they can never distort the returned job.
func (u *statusUC) reconcile(ctx context.Context, rec *model.GenerationRecord, job *model.GenerationJob) {
	if rec == nil {
		return
	}
	if rec.Status.Terminal() {
		return // already settled, never rewrite a terminal record
	}
	var url string
	if job.Result != nil {
		url = job.Result.URL
	}
	if err := u.records.UpdateStatus(ctx, repository.NoTX, rec.ID, job.Status, url, job.Error); err != nil {
		u.log.Warn().Err(err).Str("record_id", rec.ID).Msg("reconcile: update failed")
	}
}
