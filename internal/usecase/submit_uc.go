// File: internal/usecase/submit_uc.go
package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"ai-generation-gateway/internal/domain"
	"ai-generation-gateway/internal/domain/model"
	"ai-generation-gateway/internal/domain/ports/adapter"
	"ai-generation-gateway/internal/domain/ports/repository"
	"ai-generation-gateway/internal/infra/logging"
	"ai-generation-gateway/internal/infra/metrics"
)

// AdapterRegistry selects the adapter for a provider. Implemented by the
// providers package; kept as an interface here so tests can substitute fakes.
type AdapterRegistry interface {
	Get(p model.Provider) (adapter.ProviderAdapter, error)
}

// SubmitParams is a normalized generation request.
type SubmitParams struct {
	UserID          string
	Provider        model.Provider
	Model           string
	Kind            model.JobKind
	Prompt          string
	DurationSeconds int
	Resolution      string
	SourceImageURL  string
}

// SubmissionUseCase accepts a generation request and returns the initial job.
// It never blocks for generation completion: all waiting is the caller's (or
// the poll manager's) responsibility.
type SubmissionUseCase interface {
	Submit(ctx context.Context, p SubmitParams) (*model.GenerationJob, error)
}

var _ SubmissionUseCase = (*submitUC)(nil)

type submitUC struct {
	creds    CredentialResolver
	registry AdapterRegistry
	records  repository.GenerationRepository
	cache    repository.StatusCache
	log      *zerolog.Logger
}

func NewSubmissionUseCase(
	creds CredentialResolver,
	registry AdapterRegistry,
	records repository.GenerationRepository,
	cache repository.StatusCache,
	logger *zerolog.Logger,
) *submitUC {
	l := logger.With().Str("component", "SubmissionUC").Logger()
	return &submitUC{creds: creds, registry: registry, records: records, cache: cache, log: &l}
}

func (u *submitUC) Submit(ctx context.Context, p SubmitParams) (*model.GenerationJob, error) {
	defer logging.TraceDuration(u.log, "SubmissionUC.Submit")()

	ad, err := u.registry.Get(p.Provider)
	if err != nil {
		return nil, err
	}

	// Credential resolution comes before anything else: without a secret no
	// outbound call may be attempted.
	secret, err := u.creds.Resolve(ctx, p.Provider)
	if err != nil {
		metrics.IncSubmission(string(p.Provider), "no_credential")
		return nil, err
	}

	if err := validateParams(p); err != nil {
		metrics.IncSubmission(string(p.Provider), "invalid")
		return nil, err
	}

	task, err := ad.Submit(ctx, secret, adapter.SubmitRequest{
		Prompt:          p.Prompt,
		Model:           p.Model,
		Kind:            p.Kind,
		DurationSeconds: p.DurationSeconds,
		Resolution:      p.Resolution,
		SourceImageURL:  p.SourceImageURL,
	})
	if err != nil {
		metrics.IncSubmission(string(p.Provider), "rejected")
		return nil, err
	}
	metrics.IncSubmission(string(p.Provider), "accepted")

	id := task.ID
	if id == "" {
		// Providers that answer asynchronously without an id get a local,
		// time-sortable one so the record stays addressable.
		id = ulid.Make().String()
	}
	job := model.NewPendingJob(id, p.Provider, p.Model, p.Kind)

	// Synchronous providers (OpenAI images) finish at submission time;
	// reflect that instead of reporting a pending job nothing can poll.
	if st := ad.TranslateStatus(task.Status); st.Terminal() {
		switch st {
		case model.JobStatusCompleted:
			job.Complete(task.OutputURL)
		case model.JobStatusFailed:
			job.Fail(task.ErrorMessage)
		default:
			job.ApplyStatus(st)
		}
		if cerr := u.cache.Put(ctx, job); cerr != nil {
			u.log.Warn().Err(cerr).Str("job_id", job.ID).Msg("status cache write failed")
		}
		metrics.IncJobFinished(string(p.Provider), string(st))
	}

	u.persistRecord(ctx, p, job)
	return job, nil
}

// persistRecord writes the tracking row. The submission itself has already
// succeeded at the provider, so a storage failure is logged, not propagated.
func (u *submitUC) persistRecord(ctx context.Context, p SubmitParams, job *model.GenerationJob) {
	rec := &model.GenerationRecord{
		ID:        ulid.Make().String(),
		UserID:    p.UserID,
		JobID:     job.ID,
		Provider:  p.Provider,
		Model:     p.Model,
		Kind:      p.Kind,
		Status:    job.Status,
		CreatedAt: job.CreatedAt,
		UpdatedAt: time.Now(),
	}
	if job.Result != nil {
		rec.ResultURL = job.Result.URL
	}
	rec.ErrorMessage = job.Error
	if err := u.records.Save(ctx, repository.NoTX, rec); err != nil {
		logging.With(ctx, u.log).Error().Err(err).Str("job_id", job.ID).Msg("failed to persist generation record")
	}
}

func validateParams(p SubmitParams) error {
	if p.Model == "" {
		return fmt.Errorf("%w: model is required", domain.ErrInvalidRequest)
	}
	switch p.Kind {
	case model.JobKindVideo, model.JobKindImage:
		if strings.TrimSpace(p.Prompt) == "" {
			return fmt.Errorf("%w: prompt is required for %s generation", domain.ErrInvalidRequest, p.Kind)
		}
	case model.JobKindAnimation:
		if strings.TrimSpace(p.SourceImageURL) == "" {
			return fmt.Errorf("%w: source image is required for animation", domain.ErrInvalidRequest)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidRequest, p.Kind)
	}
	if p.DurationSeconds < 0 || p.DurationSeconds > 60 {
		return fmt.Errorf("%w: duration out of range", domain.ErrInvalidRequest)
	}
	return nil
}
