// File: internal/infra/adapters/providers/kling_adapter.go
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ai-generation-gateway/internal/domain"
	"ai-generation-gateway/internal/domain/model"
	"ai-generation-gateway/internal/domain/ports/adapter"
	"ai-generation-gateway/internal/infra/metrics"
)

var _ adapter.ProviderAdapter = (*KlingAdapter)(nil)

// KlingAdapter talks to the Kling video task API. Text-to-video and
// image-to-video share one task resource, selected by the submit endpoint.
type KlingAdapter struct {
	base   string // e.g., https://api.klingai.com
	client *http.Client
}

func NewKlingAdapter(baseURL string) *KlingAdapter {
	if baseURL == "" {
		baseURL = "https://api.klingai.com"
	}
	return &KlingAdapter{base: baseURL, client: newHTTPClient()}
}

func (k *KlingAdapter) Name() model.Provider { return model.ProviderKling }

// klingEnvelope wraps every Kling response.
type klingEnvelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		TaskID     string `json:"task_id"`
		TaskStatus string `json:"task_status"`
		TaskMsg    string `json:"task_status_msg"`
		TaskResult struct {
			Videos []struct {
				URL string `json:"url"`
			} `json:"videos"`
		} `json:"task_result"`
	} `json:"data"`
}

func (k *KlingAdapter) Submit(ctx context.Context, secret string, req adapter.SubmitRequest) (*adapter.ProviderTask, error) {
	path := "/v1/videos/text2video"
	reqBody := map[string]any{
		"model_name": req.Model,
		"prompt":     req.Prompt,
	}
	if req.DurationSeconds > 0 {
		reqBody["duration"] = fmt.Sprintf("%d", req.DurationSeconds)
	}
	if req.SourceImageURL != "" {
		path = "/v1/videos/image2video"
		reqBody["image"] = req.SourceImageURL
	}

	b, _ := json.Marshal(reqBody)
	httpReq, _ := http.NewRequestWithContext(ctx, http.MethodPost, k.base+path, bytes.NewReader(b))
	k.headers(httpReq, secret)

	start := time.Now()
	resp, err := k.client.Do(httpReq)
	metrics.ObserveProviderCall("kling", "submit", time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("kling submit: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, submitError("kling", resp)
	}

	var payload klingEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("kling submit decode: %w", err)
	}
	if payload.Code != 0 {
		return nil, &domain.ProviderRejectedError{Provider: "kling", StatusCode: resp.StatusCode, Body: payload.Message}
	}
	return &adapter.ProviderTask{ID: payload.Data.TaskID, Status: payload.Data.TaskStatus}, nil
}

func (k *KlingAdapter) Poll(ctx context.Context, secret string, taskID string) (*adapter.ProviderTask, error) {
	httpReq, _ := http.NewRequestWithContext(ctx, http.MethodGet, k.base+"/v1/videos/text2video/"+taskID, nil)
	k.headers(httpReq, secret)

	start := time.Now()
	resp, err := k.client.Do(httpReq)
	metrics.ObserveProviderCall("kling", "poll", time.Since(start))
	if err != nil {
		return nil, transport("kling", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, pollError("kling", resp)
	}

	var payload klingEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("kling poll decode: %w", err)
	}
	task := &adapter.ProviderTask{
		ID:           payload.Data.TaskID,
		Status:       payload.Data.TaskStatus,
		ErrorMessage: payload.Data.TaskMsg,
	}
	if vids := payload.Data.TaskResult.Videos; len(vids) > 0 {
		task.OutputURL = vids[0].URL
	}
	return task, nil
}

// Cancel is a no-op: Kling exposes no cancellation endpoint. The local state
// machine still transitions; the task just runs to completion upstream.
func (k *KlingAdapter) Cancel(ctx context.Context, secret string, taskID string) error {
	return nil
}

func (k *KlingAdapter) TranslateStatus(providerStatus string) model.JobStatus {
	switch providerStatus {
	case "succeed":
		return model.JobStatusCompleted
	case "failed":
		return model.JobStatusFailed
	case "submitted":
		return model.JobStatusPending
	default: // "processing" and unknown states
		return model.JobStatusProcessing
	}
}

func (k *KlingAdapter) headers(req *http.Request, secret string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+secret)
}
