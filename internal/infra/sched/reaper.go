package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"ai-generation-gateway/internal/domain/ports/repository"
	"ai-generation-gateway/internal/infra/metrics"
)

// StaleJobReaper periodically fails generation records stuck in a
// non-terminal status past max age. Catches jobs whose polling loop died
// (process restart) before the provider answered.
type StaleJobReaper struct {
	interval time.Duration
	maxAge   time.Duration
	records  repository.GenerationRepository
	log      *zerolog.Logger
}

func NewStaleJobReaper(interval, maxAge time.Duration, records repository.GenerationRepository, logger *zerolog.Logger) *StaleJobReaper {
	reaperLog := logger.With().Str("component", "StaleJobReaper").Logger()
	return &StaleJobReaper{
		interval: interval,
		maxAge:   maxAge,
		records:  records,
		log:      &reaperLog,
	}
}

func (w *StaleJobReaper) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting stale job reaper")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping stale job reaper")
			return ctx.Err()
		case <-ticker.C:
			cutoff := time.Now().Add(-w.maxAge)
			n, err := w.records.FailStale(ctx, repository.NoTX, cutoff, "generation abandoned; no status update before deadline")
			if err != nil {
				w.log.Error().Err(err).Msg("stale job reaper error")
				continue
			}
			if n > 0 {
				metrics.AddStaleReaped(n)
				w.log.Info().Int64("count", n).Msg("stale generations failed")
			}
		}
	}
}
