package usecase

import (
	"context"
	"errors"
	"testing"

	"ai-generation-gateway/internal/domain"
	"ai-generation-gateway/internal/domain/model"
	"ai-generation-gateway/internal/domain/ports/adapter"
)

func videoParams(provider model.Provider) SubmitParams {
	return SubmitParams{
		UserID:          "u1",
		Provider:        provider,
		Model:           "gen3a_turbo",
		Kind:            model.JobKindVideo,
		Prompt:          "a lighthouse in a storm",
		DurationSeconds: 5,
	}
}

func newSubmitFixture(ad *fakeAdapter, fallbacks map[model.Provider]string) (*submitUC, *memGenerationRepo, *memStatusCache) {
	repo := newMemGenerationRepo()
	cache := newMemStatusCache()
	resolver := NewCredentialResolver(newMemCredentialRepo(), staticCrypto{}, fallbacks, testLogger())
	uc := NewSubmissionUseCase(resolver, newFakeRegistry(ad), repo, cache, testLogger())
	return uc, repo, cache
}

func TestSubmit_WrapsProviderTaskAsPendingJob(t *testing.T) {
	t.Parallel()

	ad := &fakeAdapter{name: model.ProviderRunway}
	uc, repo, _ := newSubmitFixture(ad, map[model.Provider]string{model.ProviderRunway: "key"})

	job, err := uc.Submit(context.Background(), videoParams(model.ProviderRunway))
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if job.ID != "task-1" {
		t.Fatalf("expected provider task id as job id, got %q", job.ID)
	}
	if job.Status != model.JobStatusPending {
		t.Fatalf("expected pending, got %s", job.Status)
	}
	if rec := repo.byJobID("task-1"); rec == nil {
		t.Fatalf("expected a persisted generation record")
	} else if rec.UserID != "u1" {
		t.Fatalf("record user mismatch: %q", rec.UserID)
	}
}

func TestSubmit_MissingCredentialMakesNoProviderCall(t *testing.T) {
	t.Parallel()

	ad := &fakeAdapter{name: model.ProviderRunway}
	uc, repo, _ := newSubmitFixture(ad, nil)

	_, err := uc.Submit(context.Background(), videoParams(model.ProviderRunway))
	if !errors.Is(err, domain.ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
	if ad.submitCalls != 0 {
		t.Fatalf("provider must not be called without a credential, got %d calls", ad.submitCalls)
	}
	if len(repo.recs) != 0 {
		t.Fatalf("no record should be persisted for a refused submission")
	}
}

func TestSubmit_SecretReachesAdapter(t *testing.T) {
	t.Parallel()

	ad := &fakeAdapter{name: model.ProviderLuma}
	uc, _, _ := newSubmitFixture(ad, map[model.Provider]string{model.ProviderLuma: "luma-key"})

	if _, err := uc.Submit(context.Background(), videoParams(model.ProviderLuma)); err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if ad.lastSecret != "luma-key" {
		t.Fatalf("adapter saw secret %q", ad.lastSecret)
	}
}

func TestSubmit_Validation(t *testing.T) {
	t.Parallel()

	ad := &fakeAdapter{name: model.ProviderRunway}
	uc, _, _ := newSubmitFixture(ad, map[model.Provider]string{model.ProviderRunway: "key"})
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*SubmitParams)
	}{
		{"empty model", func(p *SubmitParams) { p.Model = "" }},
		{"video without prompt", func(p *SubmitParams) { p.Prompt = "  " }},
		{"negative duration", func(p *SubmitParams) { p.DurationSeconds = -1 }},
		{"excessive duration", func(p *SubmitParams) { p.DurationSeconds = 120 }},
		{"unknown kind", func(p *SubmitParams) { p.Kind = "hologram" }},
	}
	for _, tc := range cases {
		p := videoParams(model.ProviderRunway)
		tc.mutate(&p)
		if _, err := uc.Submit(ctx, p); !errors.Is(err, domain.ErrInvalidRequest) {
			t.Fatalf("%s: expected ErrInvalidRequest, got %v", tc.name, err)
		}
	}
	if ad.submitCalls != 0 {
		t.Fatalf("invalid requests must not reach the provider")
	}

	// Animation requires a source image, not a prompt.
	p := videoParams(model.ProviderRunway)
	p.Kind = model.JobKindAnimation
	p.Prompt = ""
	p.SourceImageURL = "https://example.com/src.png"
	if _, err := uc.Submit(ctx, p); err != nil {
		t.Fatalf("animation with source image should pass validation: %v", err)
	}
}

func TestSubmit_ProviderRejectionPropagates(t *testing.T) {
	t.Parallel()

	rejection := &domain.ProviderRejectedError{Provider: "runway", StatusCode: 400, Body: "bad prompt"}
	ad := &fakeAdapter{
		name: model.ProviderRunway,
		submitFn: func(ctx context.Context, secret string, req adapter.SubmitRequest) (*adapter.ProviderTask, error) {
			return nil, rejection
		},
	}
	uc, repo, _ := newSubmitFixture(ad, map[model.Provider]string{model.ProviderRunway: "key"})

	_, err := uc.Submit(context.Background(), videoParams(model.ProviderRunway))
	if pr, ok := domain.AsProviderRejected(err); !ok || pr.StatusCode != 400 {
		t.Fatalf("expected provider rejection, got %v", err)
	}
	if len(repo.recs) != 0 {
		t.Fatalf("rejected submission must not persist a record")
	}
}

func TestSubmit_LocalIDAssignedWhenProviderOmitsOne(t *testing.T) {
	t.Parallel()

	ad := &fakeAdapter{
		name: model.ProviderKling,
		submitFn: func(ctx context.Context, secret string, req adapter.SubmitRequest) (*adapter.ProviderTask, error) {
			return &adapter.ProviderTask{Status: "queued"}, nil
		},
	}
	uc, _, _ := newSubmitFixture(ad, map[model.Provider]string{model.ProviderKling: "key"})

	job, err := uc.Submit(context.Background(), videoParams(model.ProviderKling))
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if job.ID == "" {
		t.Fatalf("expected a locally assigned job id")
	}
}

func TestSubmit_SynchronousProviderCompletesImmediately(t *testing.T) {
	t.Parallel()

	ad := &fakeAdapter{
		name: model.ProviderOpenAI,
		submitFn: func(ctx context.Context, secret string, req adapter.SubmitRequest) (*adapter.ProviderTask, error) {
			return &adapter.ProviderTask{ID: "img-1", Status: "completed", OutputURL: "https://cdn/img.png"}, nil
		},
	}
	uc, repo, cache := newSubmitFixture(ad, map[model.Provider]string{model.ProviderOpenAI: "key"})

	p := videoParams(model.ProviderOpenAI)
	p.Kind = model.JobKindImage
	job, err := uc.Submit(context.Background(), p)
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if job.Status != model.JobStatusCompleted {
		t.Fatalf("expected completed, got %s", job.Status)
	}
	if job.Result == nil || job.Result.URL != "https://cdn/img.png" {
		t.Fatalf("expected result URL, got %+v", job.Result)
	}
	cached, err := cache.Get(context.Background(), "img-1")
	if err != nil || cached.Status != model.JobStatusCompleted {
		t.Fatalf("terminal job should be cached: %v %+v", err, cached)
	}
	if rec := repo.byJobID("img-1"); rec == nil || rec.Status != model.JobStatusCompleted {
		t.Fatalf("record should carry the terminal status, got %+v", rec)
	}
}

func TestSubmit_RecordSaveFailureDoesNotFailSubmission(t *testing.T) {
	t.Parallel()

	ad := &fakeAdapter{name: model.ProviderRunway}
	repo := newMemGenerationRepo()
	repo.saveErr = errors.New("db down")
	cache := newMemStatusCache()
	resolver := NewCredentialResolver(newMemCredentialRepo(), staticCrypto{}, map[model.Provider]string{model.ProviderRunway: "key"}, testLogger())
	uc := NewSubmissionUseCase(resolver, newFakeRegistry(ad), repo, cache, testLogger())

	job, err := uc.Submit(context.Background(), videoParams(model.ProviderRunway))
	if err != nil {
		t.Fatalf("submission already accepted by provider must not fail on storage: %v", err)
	}
	if job == nil || job.ID == "" {
		t.Fatalf("expected a job back")
	}
}

func TestSubmit_UnknownProvider(t *testing.T) {
	t.Parallel()

	uc, _, _ := newSubmitFixture(&fakeAdapter{name: model.ProviderRunway}, nil)
	_, err := uc.Submit(context.Background(), videoParams(model.ProviderLuma))
	if !errors.Is(err, domain.ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
}
