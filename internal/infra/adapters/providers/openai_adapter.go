// File: internal/infra/adapters/providers/openai_adapter.go
package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"ai-generation-gateway/internal/domain"
	"ai-generation-gateway/internal/domain/model"
	"ai-generation-gateway/internal/domain/ports/adapter"
	"ai-generation-gateway/internal/infra/metrics"
)

var _ adapter.ProviderAdapter = (*OpenAIAdapter)(nil)

// OpenAIAdapter serves the image kind through the official SDK. Image
// generation is synchronous: Submit returns a task that is already terminal,
// and the caller's terminal-state cache answers any later polls. Poll exists
// only to satisfy the port; OpenAI keeps no task resource to re-query.
type OpenAIAdapter struct{}

func NewOpenAIAdapter() *OpenAIAdapter { return &OpenAIAdapter{} }

func (o *OpenAIAdapter) Name() model.Provider { return model.ProviderOpenAI }

func (o *OpenAIAdapter) Submit(ctx context.Context, secret string, req adapter.SubmitRequest) (*adapter.ProviderTask, error) {
	if req.Kind != model.JobKindImage {
		return nil, fmt.Errorf("%w: openai supports only image generation", domain.ErrInvalidRequest)
	}
	client := openai.NewClient(option.WithAPIKey(secret))

	params := openai.ImageGenerateParams{
		Prompt: req.Prompt,
		Model:  openai.ImageModel(req.Model),
	}

	start := time.Now()
	resp, err := client.Images.Generate(ctx, params)
	metrics.ObserveProviderCall("openai", "submit", time.Since(start))
	if err != nil {
		return nil, &domain.ProviderRejectedError{Provider: "openai", StatusCode: 0, Body: err.Error()}
	}
	if len(resp.Data) == 0 {
		return nil, &domain.ProviderRejectedError{Provider: "openai", StatusCode: 0, Body: "no image in response"}
	}

	task := &adapter.ProviderTask{
		ID:     "img_" + ulid.Make().String(),
		Status: "succeeded",
	}
	if url := resp.Data[0].URL; url != "" {
		task.OutputURL = url
	} else if resp.Data[0].B64JSON != "" {
		task.OutputURL = "data:image/png;base64," + resp.Data[0].B64JSON
	} else {
		task.Status = "failed"
		task.ErrorMessage = "image response carried neither url nor data"
	}
	return task, nil
}

func (o *OpenAIAdapter) Poll(ctx context.Context, secret string, taskID string) (*adapter.ProviderTask, error) {
	return nil, fmt.Errorf("%w: openai image task %s", domain.ErrNotFound, taskID)
}

func (o *OpenAIAdapter) Cancel(ctx context.Context, secret string, taskID string) error {
	return nil // nothing to cancel: generation completed at submission
}

func (o *OpenAIAdapter) TranslateStatus(providerStatus string) model.JobStatus {
	switch providerStatus {
	case "succeeded":
		return model.JobStatusCompleted
	case "failed":
		return model.JobStatusFailed
	default:
		return model.JobStatusProcessing
	}
}
