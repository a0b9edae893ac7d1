package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"ai-generation-gateway/internal/domain"
	"ai-generation-gateway/internal/domain/ports/adapter"
)

func TestRunwayAdapter_SubmitRejectionCarriesBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Runway-Version"); got != runwayAPIVersion {
			t.Errorf("missing version header, got %q", got)
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"promptImage is required"}`))
	}))
	defer srv.Close()

	ad := NewRunwayAdapter(srv.URL)
	_, err := ad.Submit(context.Background(), "k", adapter.SubmitRequest{Model: "gen3a_turbo", Prompt: "x"})

	pr, ok := domain.AsProviderRejected(err)
	if !ok {
		t.Fatalf("expected ProviderRejectedError, got %v", err)
	}
	if pr.StatusCode != http.StatusBadRequest || pr.Provider != "runway" {
		t.Fatalf("unexpected rejection %+v", pr)
	}
}

func TestRunwayAdapter_AuthFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	ad := NewRunwayAdapter(srv.URL)
	if _, err := ad.Submit(context.Background(), "bad", adapter.SubmitRequest{Model: "m"}); !errors.Is(err, domain.ErrAuth) {
		t.Fatalf("expected ErrAuth on submit 401, got %v", err)
	}
	if _, err := ad.Poll(context.Background(), "bad", "t1"); !errors.Is(err, domain.ErrAuth) {
		t.Fatalf("expected ErrAuth on poll 401, got %v", err)
	}
}

func TestRunwayAdapter_PollErrorClasses(t *testing.T) {
	t.Parallel()

	status := http.StatusTooManyRequests
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	defer srv.Close()
	ad := NewRunwayAdapter(srv.URL)
	ctx := context.Background()

	if _, err := ad.Poll(ctx, "k", "t1"); !errors.Is(err, domain.ErrTransientPoll) {
		t.Fatalf("429 should be transient, got %v", err)
	}
	status = http.StatusServiceUnavailable
	if _, err := ad.Poll(ctx, "k", "t1"); !errors.Is(err, domain.ErrTransientPoll) {
		t.Fatalf("503 should be transient, got %v", err)
	}
	status = http.StatusNotFound
	if _, err := ad.Poll(ctx, "k", "t1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("404 should be not found, got %v", err)
	}
}

func TestRunwayAdapter_NetworkErrorIsTransient(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	ad := NewRunwayAdapter(srv.URL)
	if _, err := ad.Poll(context.Background(), "k", "t1"); !errors.Is(err, domain.ErrTransientPoll) {
		t.Fatalf("connection failure should be transient, got %v", err)
	}
}

func TestRunwayAdapter_PollSuccess(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tasks/task-9" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "task-9", "status": "SUCCEEDED", "progress": 1.0,
			"output": []string{"https://cdn.runway/out.mp4"},
		})
	}))
	defer srv.Close()

	ad := NewRunwayAdapter(srv.URL)
	task, err := ad.Poll(context.Background(), "k", "task-9")
	if err != nil {
		t.Fatalf("Poll returned error: %v", err)
	}
	if task.OutputURL != "https://cdn.runway/out.mp4" || task.Progress != 100 {
		t.Fatalf("unexpected task %+v", task)
	}
}
