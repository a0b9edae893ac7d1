package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"ai-generation-gateway/internal/config"
	"ai-generation-gateway/internal/domain/model"
	"ai-generation-gateway/internal/domain/ports/repository"
	"ai-generation-gateway/internal/usecase"
)

// JobWatcher registers a submitted job for background status polling.
// Implemented over the poll manager in main.
type JobWatcher interface {
	Watch(jobID string, provider model.Provider, modelName string) error
}

// RateLimiter bounds submissions per user.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type Server struct {
	submitUC usecase.SubmissionUseCase
	statusUC usecase.StatusUseCase
	cancelUC usecase.CancelUseCase
	credUC   usecase.CredentialUseCase
	tokenUC  usecase.TokenUseCase
	records  repository.GenerationRepository
	watcher  JobWatcher
	limiter  RateLimiter
	auth     *AuthManager
	cfg      *config.Config
	server   *http.Server
	log      *zerolog.Logger
}

func NewServer(
	submitUC usecase.SubmissionUseCase,
	statusUC usecase.StatusUseCase,
	cancelUC usecase.CancelUseCase,
	credUC usecase.CredentialUseCase,
	tokenUC usecase.TokenUseCase,
	records repository.GenerationRepository,
	watcher JobWatcher,
	limiter RateLimiter,
	auth *AuthManager,
	cfg *config.Config,
	logger *zerolog.Logger,
) *Server {
	webLog := logger.With().Str("component", "WebServer").Logger()
	return &Server{
		submitUC: submitUC,
		statusUC: statusUC,
		cancelUC: cancelUC,
		credUC:   credUC,
		tokenUC:  tokenUC,
		records:  records,
		watcher:  watcher,
		limiter:  limiter,
		auth:     auth,
		cfg:      cfg,
		log:      &webLog,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
	)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)

		r.Route("/generations", func(r chi.Router) {
			r.Post("/", s.handleSubmit)
			r.Get("/", s.handleList)
			r.Get("/{id}", s.handleStatus)
			r.Post("/{id}/cancel", s.handleCancel)
		})

		r.Get("/users/{id}/tokens", s.handleTokenBalance)

		r.Route("/credentials", func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Post("/", s.handleCredentialCreate)
			r.Get("/", s.handleCredentialList)
			r.Delete("/{id}", s.handleCredentialDelete)
		})
	})

	return r
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info().Int("port", s.cfg.Server.Port).Msg("HTTP server listening")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// requireAdmin guards the credential management endpoints with a minted JWT.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.cfg.Security.AdminSecret) == 0 {
			s.log.Error().Msg("admin secret is not configured")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		if _, err := s.auth.ParseFromRequest(r); err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
