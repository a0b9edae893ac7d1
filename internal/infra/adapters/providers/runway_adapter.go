// File: internal/infra/adapters/providers/runway_adapter.go
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

// Compile-time assurance this adapter satisfies the port
var _ adapter.ProviderAdapter = (*RunwayAdapter)(nil)

const runwayAPIVersion = "2024-11-06"

// RunwayAdapter talks to the Runway task API (gen3/gen4 image-to-video).
type RunwayAdapter struct {
	base   string // e.g., https://api.dev.runwayml.com/v1
	client *http.Client
}

func NewRunwayAdapter(baseURL string) *RunwayAdapter {
	if baseURL == "" {
		baseURL = "https://api.dev.runwayml.com/v1"
	}
	return &RunwayAdapter{base: baseURL, client: newHTTPClient()}
}

func (r *RunwayAdapter) Name() model.Provider { return model.ProviderRunway }

func (r *RunwayAdapter) Submit(ctx context.Context, secret string, req adapter.SubmitRequest) (*adapter.ProviderTask, error) {
	reqBody := struct {
		Model      string `json:"model"`
		PromptText string `json:"promptText,omitempty"`
		PromptImg  string `json:"promptImage,omitempty"`
		Duration   int    `json:"duration,omitempty"`
		Ratio      string `json:"ratio,omitempty"`
	}{
		Model:      req.Model,
		PromptText: req.Prompt,
		PromptImg:  req.SourceImageURL,
		Duration:   req.DurationSeconds,
		Ratio:      req.Resolution,
	}

	b, _ := json.Marshal(reqBody)
	httpReq, _ := http.NewRequestWithContext(ctx, http.MethodPost, r.base+"/image_to_video", bytes.NewReader(b))
	r.headers(httpReq, secret)

	start := time.Now()
	resp, err := r.client.Do(httpReq)
	metrics.ObserveProviderCall("runway", "submit", time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("runway submit: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, submitError("runway", resp)
	}

	var payload struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("runway submit decode: %w", err)
	}
	return &adapter.ProviderTask{ID: payload.ID, Status: "PENDING"}, nil
}

func (r *RunwayAdapter) Poll(ctx context.Context, secret string, taskID string) (*adapter.ProviderTask, error) {
	httpReq, _ := http.NewRequestWithContext(ctx, http.MethodGet, r.base+"/tasks/"+taskID, nil)
	r.headers(httpReq, secret)

	start := time.Now()
	resp, err := r.client.Do(httpReq)
	metrics.ObserveProviderCall("runway", "poll", time.Since(start))
	if err != nil {
		return nil, transport("runway", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, pollError("runway", resp)
	}

	var payload struct {
		ID       string   `json:"id"`
		Status   string   `json:"status"`
		Progress float64  `json:"progress"`
		Output   []string `json:"output"`
		Failure  string   `json:"failure"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("runway poll decode: %w", err)
	}
	task := &adapter.ProviderTask{
		ID:           payload.ID,
		Status:       payload.Status,
		Progress:     int(payload.Progress * 100),
		ErrorMessage: payload.Failure,
	}
	if len(payload.Output) > 0 {
		task.OutputURL = payload.Output[0]
	}
	return task, nil
}

func (r *RunwayAdapter) Cancel(ctx context.Context, secret string, taskID string) error {
	httpReq, _ := http.NewRequestWithContext(ctx, http.MethodDelete, r.base+"/tasks/"+taskID, nil)
	r.headers(httpReq, secret)

	start := time.Now()
	resp, err := r.client.Do(httpReq)
	metrics.ObserveProviderCall("runway", "cancel", time.Since(start))
	if err != nil {
		return fmt.Errorf("runway cancel: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("runway cancel returned %d", resp.StatusCode)
	}
	return nil
}

// TranslateStatus: SUCCEEDED and FAILED are definitive, CANCELLED sticks,
// everything else (PENDING, THROTTLED, RUNNING, unknown) is still in flight.
func (r *RunwayAdapter) TranslateStatus(providerStatus string) model.JobStatus {
	switch providerStatus {
	case "SUCCEEDED":
		return model.JobStatusCompleted
	case "FAILED":
		return model.JobStatusFailed
	case "CANCELLED":
		return model.JobStatusCancelled
	case "PENDING", "THROTTLED":
		return model.JobStatusPending
	default:
		return model.JobStatusProcessing
	}
}

func (r *RunwayAdapter) headers(req *http.Request, secret string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+secret)
	req.Header.Set("X-Runway-Version", runwayAPIVersion)
}
