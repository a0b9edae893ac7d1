// File: internal/infra/adapters/providers/noop_adapter.go
package providers

import (
	"context"

	"github.com/oklog/ulid/v2"

	"ai-generation-gateway/internal/domain/model"
	"ai-generation-gateway/internal/domain/ports/adapter"
)

var _ adapter.ProviderAdapter = (*NoopAdapter)(nil)

// NoopAdapter accepts everything and completes on the first poll. Used in dev
// mode so the full submit/poll/cancel flow can run without provider keys.
type NoopAdapter struct {
	provider model.Provider
}

func NewNoopAdapter(provider model.Provider) *NoopAdapter {
	return &NoopAdapter{provider: provider}
}

func (n *NoopAdapter) Name() model.Provider { return n.provider }

func (n *NoopAdapter) Submit(ctx context.Context, secret string, req adapter.SubmitRequest) (*adapter.ProviderTask, error) {
	return &adapter.ProviderTask{ID: "noop_" + ulid.Make().String(), Status: "queued"}, nil
}

func (n *NoopAdapter) Poll(ctx context.Context, secret string, taskID string) (*adapter.ProviderTask, error) {
	return &adapter.ProviderTask{
		ID:        taskID,
		Status:    "done",
		Progress:  100,
		OutputURL: "https://example.invalid/" + taskID + ".mp4",
	}, nil
}

func (n *NoopAdapter) Cancel(ctx context.Context, secret string, taskID string) error { return nil }

func (n *NoopAdapter) TranslateStatus(providerStatus string) model.JobStatus {
	switch providerStatus {
	case "done":
		return model.JobStatusCompleted
	case "queued":
		return model.JobStatusPending
	default:
		return model.JobStatusProcessing
	}
}
