// File: internal/infra/adapters/providers/google_adapter.go
package providers

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"ai-generation-gateway/internal/domain"
	"ai-generation-gateway/internal/domain/model"
	"ai-generation-gateway/internal/domain/ports/adapter"
	"ai-generation-gateway/internal/infra/metrics"
)

var _ adapter.ProviderAdapter = (*GoogleAdapter)(nil)

// GoogleAdapter drives Veo video generation through the official genai SDK.
// Operations carry no status vocabulary of their own, only a done flag, so
// the adapter synthesizes "running" | "done" | "error" as its native states.
type GoogleAdapter struct{}

func NewGoogleAdapter() *GoogleAdapter { return &GoogleAdapter{} }

func (g *GoogleAdapter) Name() model.Provider { return model.ProviderGoogle }

// newClient builds a per-call SDK client. The secret is resolved per request
// and must not outlive it.
func (g *GoogleAdapter) newClient(ctx context.Context, secret string) (*genai.Client, error) {
	return genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  secret,
		Backend: genai.BackendGeminiAPI,
	})
}

func (g *GoogleAdapter) Submit(ctx context.Context, secret string, req adapter.SubmitRequest) (*adapter.ProviderTask, error) {
	client, err := g.newClient(ctx, secret)
	if err != nil {
		return nil, fmt.Errorf("google client: %w", err)
	}

	var image *genai.Image
	if req.SourceImageURL != "" {
		image = &genai.Image{GCSURI: req.SourceImageURL}
	}
	cfg := &genai.GenerateVideosConfig{}
	if req.Resolution != "" {
		cfg.AspectRatio = req.Resolution
	}

	start := time.Now()
	op, err := client.Models.GenerateVideos(ctx, req.Model, req.Prompt, image, cfg)
	metrics.ObserveProviderCall("google", "submit", time.Since(start))
	if err != nil {
		return nil, &domain.ProviderRejectedError{Provider: "google", StatusCode: 0, Body: err.Error()}
	}
	return &adapter.ProviderTask{ID: op.Name, Status: "running"}, nil
}

func (g *GoogleAdapter) Poll(ctx context.Context, secret string, taskID string) (*adapter.ProviderTask, error) {
	client, err := g.newClient(ctx, secret)
	if err != nil {
		return nil, fmt.Errorf("google client: %w", err)
	}

	start := time.Now()
	op, err := client.Operations.GetVideosOperation(ctx, &genai.GenerateVideosOperation{Name: taskID}, nil)
	metrics.ObserveProviderCall("google", "poll", time.Since(start))
	if err != nil {
		return nil, transport("google", err)
	}

	task := &adapter.ProviderTask{ID: taskID, Status: "running"}
	if !op.Done {
		return task, nil
	}
	if len(op.Error) > 0 {
		task.Status = "error"
		task.ErrorMessage = fmt.Sprint(op.Error["message"])
		return task, nil
	}
	task.Status = "done"
	if op.Response != nil && len(op.Response.GeneratedVideos) > 0 {
		if v := op.Response.GeneratedVideos[0].Video; v != nil {
			task.OutputURL = v.URI
		}
	}
	if task.OutputURL == "" {
		task.Status = "error"
		task.ErrorMessage = "operation finished without a video"
	}
	return task, nil
}

// Cancel: the Veo operations surface offers no cancellation; advisory no-op.
func (g *GoogleAdapter) Cancel(ctx context.Context, secret string, taskID string) error {
	return nil
}

func (g *GoogleAdapter) TranslateStatus(providerStatus string) model.JobStatus {
	switch providerStatus {
	case "done":
		return model.JobStatusCompleted
	case "error":
		return model.JobStatusFailed
	default: // "running" and anything unexpected
		return model.JobStatusProcessing
	}
}
