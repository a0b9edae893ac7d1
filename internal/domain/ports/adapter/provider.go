package adapter

import (
	"context"

	"ai-generation-gateway/internal/domain/model"
)

// ProviderTask is the provider-native view of a generation task: an opaque id
// plus the provider's own status string. It is owned by the adapter layer;
// callers translate it into a model.GenerationJob before it goes anywhere
// else.
type ProviderTask struct {
	ID           string
	Status       string // provider-native vocabulary, untranslated
	Progress     int    // 0-100, zero when the provider does not report it
	OutputURL    string
	ErrorMessage string
}

// SubmitRequest carries the normalized generation parameters every adapter
// maps into its own wire format.
type SubmitRequest struct {
	Prompt          string
	Model           string
	Kind            model.JobKind
	DurationSeconds int
	Resolution      string
	SourceImageURL  string
}

// ProviderAdapter is the port each external provider implements. Credentials
// are resolved per call and passed in; adapters must not cache them.
//
// Poll performs exactly one status check. Looping, backoff and retry belong
// to the caller. Network-level failures surface as domain.ErrTransientPoll,
// 401/403 responses as domain.ErrAuth.
type ProviderAdapter interface {
	Name() model.Provider

	Submit(ctx context.Context, secret string, req SubmitRequest) (*ProviderTask, error)

	Poll(ctx context.Context, secret string, taskID string) (*ProviderTask, error)

	// Cancel is advisory. Implementations for providers without a cancel
	// endpoint return nil.
	Cancel(ctx context.Context, secret string, taskID string) error

	// TranslateStatus is a total mapping from the provider's status
	// vocabulary to the canonical one; unrecognized strings take the
	// adapter's explicit default branch, never an error.
	TranslateStatus(providerStatus string) model.JobStatus
}
