// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ai-generation-gateway/internal/config"
	"ai-generation-gateway/internal/domain/model"
	"ai-generation-gateway/internal/domain/ports/adapter"
	"ai-generation-gateway/internal/infra/adapters/providers"
	pg "ai-generation-gateway/internal/infra/db/postgres"
	"ai-generation-gateway/internal/infra/logging"
	"ai-generation-gateway/internal/infra/metrics"
	"ai-generation-gateway/internal/infra/poller"
	red "ai-generation-gateway/internal/infra/redis"
	"ai-generation-gateway/internal/infra/sched"
	"ai-generation-gateway/internal/infra/security"
	"ai-generation-gateway/internal/infra/web"
	"ai-generation-gateway/internal/usecase"
)

// Set at build time via -ldflags.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (stub provider, console logs)")
	flag.Parse()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("[DEV MODE] Enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.Connect(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	txManager := pg.NewTxManager(pool)

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s := pool.Stat()
				metrics.SetDBPoolStats(s.TotalConns(), s.IdleConns(), s.AcquiredConns())
			}
		}
	}()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	statusCache := red.NewStatusCache(redisClient, cfg.Redis.TTL)
	rateLimiter := red.NewRateLimiter(redisClient)

	// ---- Encryption ----
	encKey := cfg.Security.EncryptionKey
	if len(encKey) != 32 {
		logger.Warn().Msg("security.encryption_key not set or not 32 bytes; falling back to dev key (INSECURE)")
		encKey = "0123456789abcdef0123456789abcdef"
	}
	encSvc, err := security.NewEncryptionService(encKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("encryption")
	}

	// ---- Repositories ----
	credRepo := pg.NewCredentialRepo(pool)
	genRepo := pg.NewGenerationRepo(pool)
	tokenRepo := pg.NewTokenRepo(pool)

	// ---- Provider adapters ----
	adapters := []adapter.ProviderAdapter{
		providers.NewRunwayAdapter(cfg.Providers.Runway.BaseURL),
		providers.NewLumaAdapter(cfg.Providers.Luma.BaseURL),
		providers.NewKlingAdapter(cfg.Providers.Kling.BaseURL),
		providers.NewReplicateAdapter(cfg.Providers.Replicate.BaseURL),
		providers.NewGoogleAdapter(),
		providers.NewOpenAIAdapter(),
	}
	if cfg.Runtime.Dev {
		// The stub answers every provider so flows can run without keys.
		adapters = []adapter.ProviderAdapter{
			providers.NewNoopAdapter(model.ProviderRunway),
			providers.NewNoopAdapter(model.ProviderLuma),
			providers.NewNoopAdapter(model.ProviderKling),
			providers.NewNoopAdapter(model.ProviderReplicate),
			providers.NewNoopAdapter(model.ProviderGoogle),
			providers.NewNoopAdapter(model.ProviderOpenAI),
		}
	}
	registry := providers.NewRegistry(adapters...)

	// ---- Use cases ----
	fallbacks := map[model.Provider]string{
		model.ProviderRunway:    cfg.Providers.Runway.Key,
		model.ProviderLuma:      cfg.Providers.Luma.Key,
		model.ProviderKling:     cfg.Providers.Kling.Key,
		model.ProviderReplicate: cfg.Providers.Replicate.Key,
		model.ProviderGoogle:    cfg.Providers.Google.Key,
		model.ProviderOpenAI:    cfg.Providers.OpenAI.Key,
	}
	resolver := usecase.NewCredentialResolver(credRepo, encSvc, fallbacks, logger)
	credUC := usecase.NewCredentialUseCase(credRepo, encSvc)
	tokenUC := usecase.NewTokenUseCase(tokenRepo, txManager)
	submitUC := usecase.NewSubmissionUseCase(resolver, registry, genRepo, statusCache, logger)
	statusUC := usecase.NewStatusUseCase(resolver, registry, genRepo, statusCache, logger)

	// ---- Poll manager ----
	manager := poller.NewManager(statusUC, poller.Config{
		SuccessInterval: cfg.Poller.SuccessInterval,
		FailureInterval: cfg.Poller.FailureInterval,
		MaxAttempts:     cfg.Poller.MaxAttempts,
		CheckTimeout:    cfg.Poller.CheckTimeout,
	}, logger)
	defer manager.Stop()

	cancelUC := usecase.NewCancelUseCase(resolver, registry, genRepo, statusCache, manager, logger)

	// ---- Stale job reaper ----
	reaper := sched.NewStaleJobReaper(cfg.Reaper.Interval, cfg.Reaper.MaxAge, genRepo, logger)
	go func() { _ = reaper.Run(ctx) }()

	// ---- HTTP server ----
	auth := web.NewAuthManager(cfg.Security.AdminSecret, 30*time.Minute)
	srv := web.NewServer(
		submitUC, statusUC, cancelUC, credUC, tokenUC,
		genRepo,
		&managerWatcher{manager: manager, status: statusUC},
		rateLimiter, auth, cfg, logger,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	cancel()
}

// managerWatcher bridges the web server to the poll manager. Manager updates
// flow back into the status use case so terminal states synthesized by the
// manager (auth failure, attempt exhaustion) reach the cache and the record.
type managerWatcher struct {
	manager *poller.Manager
	status  usecase.StatusUseCase
}

func (w *managerWatcher) Watch(jobID string, provider model.Provider, modelName string) error {
	return w.manager.Watch(poller.Entry{JobID: jobID, Provider: provider, Model: modelName}, func(job *model.GenerationJob) {
		if !job.Status.Terminal() {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		w.status.Absorb(ctx, job)
	})
}
