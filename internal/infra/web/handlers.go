package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oklog/ulid/v2"

	"ai-generation-gateway/internal/domain"
	"ai-generation-gateway/internal/domain/model"
	"ai-generation-gateway/internal/domain/ports/repository"
	"ai-generation-gateway/internal/infra/logging"
	"ai-generation-gateway/internal/infra/redis"
	"ai-generation-gateway/internal/usecase"
)

type submitRequest struct {
	UserID          string `json:"user_id"`
	Provider        string `json:"provider"`
	Model           string `json:"model"`
	Kind            string `json:"kind"`
	Prompt          string `json:"prompt"`
	DurationSeconds int    `json:"duration_seconds"`
	Resolution      string `json:"resolution"`
	SourceImageURL  string `json:"source_image_url"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	ctx = logging.WithTraceID(ctx, middleware.GetReqID(ctx))
	ctx = logging.WithUserID(ctx, req.UserID)

	if s.limiter != nil {
		ok, err := s.limiter.Allow(ctx, redis.SubmitKey(req.UserID), s.cfg.RateLimit.SubmitsPerMinute, time.Minute)
		if err != nil {
			s.log.Warn().Err(err).Msg("rate limiter unavailable, allowing request")
		} else if !ok {
			http.Error(w, "Too many submissions", http.StatusTooManyRequests)
			return
		}
	}

	provider, ok := model.ParseProvider(req.Provider)
	if !ok {
		http.Error(w, "Unknown provider", http.StatusBadRequest)
		return
	}
	kind, ok := model.ParseJobKind(req.Kind)
	if !ok {
		http.Error(w, "Unknown kind", http.StatusBadRequest)
		return
	}

	// Tokens are charged up front against a request id; a rejected submission
	// refunds the same amount under the same id.
	cost := usecase.EstimateCost(kind, req.DurationSeconds)
	requestID := ulid.Make().String()
	if err := s.tokenUC.DeductForJob(ctx, req.UserID, requestID, cost); err != nil {
		if errors.Is(err, domain.ErrInsufficientTokens) || errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "Insufficient token balance", http.StatusPaymentRequired)
			return
		}
		s.log.Error().Err(err).Msg("token deduction failed")
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	job, err := s.submitUC.Submit(ctx, usecase.SubmitParams{
		UserID:          req.UserID,
		Provider:        provider,
		Model:           req.Model,
		Kind:            kind,
		Prompt:          req.Prompt,
		DurationSeconds: req.DurationSeconds,
		Resolution:      req.Resolution,
		SourceImageURL:  req.SourceImageURL,
	})
	if err != nil {
		if rerr := s.tokenUC.Refund(ctx, req.UserID, requestID, cost, "submission failed"); rerr != nil {
			s.log.Error().Err(rerr).Str("user_id", req.UserID).Msg("refund after failed submission failed")
		}
		s.writeError(w, err)
		return
	}

	if !job.Status.Terminal() && s.watcher != nil {
		if werr := s.watcher.Watch(job.ID, provider, req.Model); werr != nil {
			s.log.Error().Err(werr).Str("job_id", job.ID).Msg("failed to start status watch")
		}
	}

	response := struct {
		Job       *model.GenerationJob `json:"job"`
		TokenCost int64                `json:"token_cost"`
	}{Job: job, TokenCost: cost}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(response)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	jobID := chi.URLParam(r, "id")
	provider, ok := model.ParseProvider(r.URL.Query().Get("provider"))
	if !ok {
		http.Error(w, "Unknown provider", http.StatusBadRequest)
		return
	}
	ctx = logging.WithJobID(logging.WithTraceID(ctx, middleware.GetReqID(ctx)), jobID)

	job, err := s.statusUC.Check(ctx, jobID, provider)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(job)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	jobID := chi.URLParam(r, "id")
	provider, ok := model.ParseProvider(r.URL.Query().Get("provider"))
	if !ok {
		http.Error(w, "Unknown provider", http.StatusBadRequest)
		return
	}
	ctx = logging.WithJobID(logging.WithTraceID(ctx, middleware.GetReqID(ctx)), jobID)

	if err := s.cancelUC.Cancel(ctx, jobID, provider); err != nil {
		s.writeError(w, err)
		return
	}

	response := struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}{ID: jobID, Status: string(model.JobStatusCancelled)}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	recs, err := s.records.ListByUser(ctx, repository.NoTX, userID, limit)
	if err != nil {
		s.log.Error().Err(err).Msg("listing generations failed")
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	type item struct {
		ID           string    `json:"id"`
		JobID        string    `json:"job_id"`
		Provider     string    `json:"provider"`
		Model        string    `json:"model"`
		Kind         string    `json:"kind"`
		Status       string    `json:"status"`
		ResultURL    string    `json:"result_url,omitempty"`
		ErrorMessage string    `json:"error,omitempty"`
		CreatedAt    time.Time `json:"created_at"`
	}
	items := make([]item, 0, len(recs))
	for _, rec := range recs {
		items = append(items, item{
			ID:           rec.ID,
			JobID:        rec.JobID,
			Provider:     string(rec.Provider),
			Model:        rec.Model,
			Kind:         string(rec.Kind),
			Status:       string(rec.Status),
			ResultURL:    rec.ResultURL,
			ErrorMessage: rec.ErrorMessage,
			CreatedAt:    rec.CreatedAt,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(struct {
		Generations []item `json:"generations"`
	}{Generations: items})
}

func (s *Server) handleTokenBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := chi.URLParam(r, "id")
	balance, err := s.tokenUC.Balance(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "No token balance", http.StatusNotFound)
			return
		}
		s.log.Error().Err(err).Msg("balance lookup failed")
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(balance)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if s.cfg.Security.AdminPassword == "" || req.Password != s.cfg.Security.AdminPassword {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	token, err := s.auth.Mint()
	if err != nil {
		s.log.Error().Err(err).Msg("token mint failed")
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(struct {
		Token string `json:"token"`
	}{Token: token})
}

func (s *Server) handleCredentialCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Service string `json:"service"`
		Name    string `json:"name"`
		Secret  string `json:"secret"`
		OwnerID string `json:"owner_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	cred, err := s.credUC.Create(ctx, req.Service, req.Name, req.Secret, req.OwnerID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.log.Error().Err(err).Msg("credential create failed")
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(cred)
}

func (s *Server) handleCredentialList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	creds, err := s.credUC.List(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("credential list failed")
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(struct {
		Credentials []*model.Credential `json:"credentials"`
	}{Credentials: creds})
}

func (s *Server) handleCredentialDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id := chi.URLParam(r, "id")
	if err := s.credUC.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		s.log.Error().Err(err).Msg("credential delete failed")
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeError maps domain errors onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrUnknownProvider):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrMissingCredential):
		http.Error(w, err.Error(), http.StatusFailedDependency)
	case errors.Is(err, domain.ErrInsufficientTokens):
		http.Error(w, err.Error(), http.StatusPaymentRequired)
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrAuth):
		http.Error(w, err.Error(), http.StatusBadGateway)
	case errors.Is(err, domain.ErrTransientPoll):
		http.Error(w, "Provider temporarily unavailable", http.StatusBadGateway)
	default:
		if pr, ok := domain.AsProviderRejected(err); ok {
			http.Error(w, pr.Error(), http.StatusBadGateway)
			return
		}
		s.log.Error().Err(err).Msg("unhandled error")
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}
