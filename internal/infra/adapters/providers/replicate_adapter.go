// File: internal/infra/adapters/providers/replicate_adapter.go
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ai-generation-gateway/internal/domain/model"
	"ai-generation-gateway/internal/domain/ports/adapter"
	"ai-generation-gateway/internal/infra/metrics"
)

var _ adapter.ProviderAdapter = (*ReplicateAdapter)(nil)

// ReplicateAdapter drives Replicate-hosted video/animation models through the
// predictions API.
type ReplicateAdapter struct {
	base   string // e.g., https://api.replicate.com/v1
	client *http.Client
}

func NewReplicateAdapter(baseURL string) *ReplicateAdapter {
	if baseURL == "" {
		baseURL = "https://api.replicate.com/v1"
	}
	return &ReplicateAdapter{base: baseURL, client: newHTTPClient()}
}

func (r *ReplicateAdapter) Name() model.Provider { return model.ProviderReplicate }

func (r *ReplicateAdapter) Submit(ctx context.Context, secret string, req adapter.SubmitRequest) (*adapter.ProviderTask, error) {
	input := map[string]any{}
	if req.Prompt != "" {
		input["prompt"] = req.Prompt
	}
	if req.SourceImageURL != "" {
		input["image"] = req.SourceImageURL
	}
	if req.DurationSeconds > 0 {
		input["duration"] = req.DurationSeconds
	}
	if req.Resolution != "" {
		input["resolution"] = req.Resolution
	}

	reqBody := struct {
		Version string         `json:"version"`
		Input   map[string]any `json:"input"`
	}{Version: req.Model, Input: input}

	b, _ := json.Marshal(reqBody)
	httpReq, _ := http.NewRequestWithContext(ctx, http.MethodPost, r.base+"/predictions", bytes.NewReader(b))
	r.headers(httpReq, secret)

	start := time.Now()
	resp, err := r.client.Do(httpReq)
	metrics.ObserveProviderCall("replicate", "submit", time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("replicate submit: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, submitError("replicate", resp)
	}

	var payload struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("replicate submit decode: %w", err)
	}
	return &adapter.ProviderTask{ID: payload.ID, Status: payload.Status}, nil
}

func (r *ReplicateAdapter) Poll(ctx context.Context, secret string, taskID string) (*adapter.ProviderTask, error) {
	httpReq, _ := http.NewRequestWithContext(ctx, http.MethodGet, r.base+"/predictions/"+taskID, nil)
	r.headers(httpReq, secret)

	start := time.Now()
	resp, err := r.client.Do(httpReq)
	metrics.ObserveProviderCall("replicate", "poll", time.Since(start))
	if err != nil {
		return nil, transport("replicate", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, pollError("replicate", resp)
	}

	var payload struct {
		ID     string          `json:"id"`
		Status string          `json:"status"`
		Output json.RawMessage `json:"output"`
		Error  string          `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("replicate poll decode: %w", err)
	}
	return &adapter.ProviderTask{
		ID:           payload.ID,
		Status:       payload.Status,
		OutputURL:    firstOutputURL(payload.Output),
		ErrorMessage: payload.Error,
	}, nil
}

// firstOutputURL handles the two shapes predictions return: a bare URL string
// or an array of URLs.
func firstOutputURL(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return single
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil && len(many) > 0 {
		return many[0]
	}
	return ""
}

func (r *ReplicateAdapter) Cancel(ctx context.Context, secret string, taskID string) error {
	httpReq, _ := http.NewRequestWithContext(ctx, http.MethodPost, r.base+"/predictions/"+taskID+"/cancel", nil)
	r.headers(httpReq, secret)

	start := time.Now()
	resp, err := r.client.Do(httpReq)
	metrics.ObserveProviderCall("replicate", "cancel", time.Since(start))
	if err != nil {
		return fmt.Errorf("replicate cancel: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("replicate cancel returned %d", resp.StatusCode)
	}
	return nil
}

func (r *ReplicateAdapter) TranslateStatus(providerStatus string) model.JobStatus {
	switch providerStatus {
	case "succeeded":
		return model.JobStatusCompleted
	case "failed":
		return model.JobStatusFailed
	case "canceled":
		return model.JobStatusCancelled
	case "starting":
		return model.JobStatusPending
	default: // "processing" and anything new the API grows
		return model.JobStatusProcessing
	}
}

func (r *ReplicateAdapter) headers(req *http.Request, secret string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+secret)
}
