// File: internal/infra/adapters/providers/luma_adapter.go
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

var _ adapter.ProviderAdapter = (*LumaAdapter)(nil)

// LumaAdapter talks to the Luma Dream Machine generations API.
type LumaAdapter struct {
	base   string // e.g., https://api.lumalabs.ai/dream-machine/v1
	client *http.Client
}

func NewLumaAdapter(baseURL string) *LumaAdapter {
	if baseURL == "" {
		baseURL = "https://api.lumalabs.ai/dream-machine/v1"
	}
	return &LumaAdapter{base: baseURL, client: newHTTPClient()}
}

func (l *LumaAdapter) Name() model.Provider { return model.ProviderLuma }

type lumaKeyframe struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

func (l *LumaAdapter) Submit(ctx context.Context, secret string, req adapter.SubmitRequest) (*adapter.ProviderTask, error) {
	reqBody := struct {
		Prompt     string                  `json:"prompt"`
		Model      string                  `json:"model,omitempty"`
		Duration   string                  `json:"duration,omitempty"`
		Resolution string                  `json:"resolution,omitempty"`
		Keyframes  map[string]lumaKeyframe `json:"keyframes,omitempty"`
	}{
		Prompt:     req.Prompt,
		Model:      req.Model,
		Resolution: req.Resolution,
	}
	if req.DurationSeconds > 0 {
		reqBody.Duration = fmt.Sprintf("%ds", req.DurationSeconds)
	}
	if req.SourceImageURL != "" {
		reqBody.Keyframes = map[string]lumaKeyframe{
			"frame0": {Type: "image", URL: req.SourceImageURL},
		}
	}

	b, _ := json.Marshal(reqBody)
	httpReq, _ := http.NewRequestWithContext(ctx, http.MethodPost, l.base+"/generations", bytes.NewReader(b))
	l.headers(httpReq, secret)

	start := time.Now()
	resp, err := l.client.Do(httpReq)
	metrics.ObserveProviderCall("luma", "submit", time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("luma submit: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, submitError("luma", resp)
	}

	var payload struct {
		ID    string `json:"id"`
		State string `json:"state"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("luma submit decode: %w", err)
	}
	return &adapter.ProviderTask{ID: payload.ID, Status: payload.State}, nil
}

func (l *LumaAdapter) Poll(ctx context.Context, secret string, taskID string) (*adapter.ProviderTask, error) {
	httpReq, _ := http.NewRequestWithContext(ctx, http.MethodGet, l.base+"/generations/"+taskID, nil)
	l.headers(httpReq, secret)

	start := time.Now()
	resp, err := l.client.Do(httpReq)
	metrics.ObserveProviderCall("luma", "poll", time.Since(start))
	if err != nil {
		return nil, transport("luma", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, pollError("luma", resp)
	}

	var payload struct {
		ID            string `json:"id"`
		State         string `json:"state"`
		FailureReason string `json:"failure_reason"`
		Assets        struct {
			Video string `json:"video"`
		} `json:"assets"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("luma poll decode: %w", err)
	}
	return &adapter.ProviderTask{
		ID:           payload.ID,
		Status:       payload.State,
		OutputURL:    payload.Assets.Video,
		ErrorMessage: payload.FailureReason,
	}, nil
}

func (l *LumaAdapter) Cancel(ctx context.Context, secret string, taskID string) error {
	httpReq, _ := http.NewRequestWithContext(ctx, http.MethodDelete, l.base+"/generations/"+taskID, nil)
	l.headers(httpReq, secret)

	start := time.Now()
	resp, err := l.client.Do(httpReq)
	metrics.ObserveProviderCall("luma", "cancel", time.Since(start))
	if err != nil {
		return fmt.Errorf("luma cancel: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("luma cancel returned %d", resp.StatusCode)
	}
	return nil
}

// TranslateStatus: only known in-flight states keep the job alive; an
// unrecognized state fails safe rather than polling forever.
func (l *LumaAdapter) TranslateStatus(providerStatus string) model.JobStatus {
	switch providerStatus {
	case "completed":
		return model.JobStatusCompleted
	case "pending", "queued", "dreaming", "processing":
		return model.JobStatusProcessing
	default:
		return model.JobStatusFailed
	}
}

func (l *LumaAdapter) headers(req *http.Request, secret string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+secret)
}
