// File: internal/infra/poller/manager.go
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ai-generation-gateway/internal/domain"
	"ai-generation-gateway/internal/domain/model"
	"ai-generation-gateway/internal/infra/logging"
)

// Checker performs a single status check; satisfied by usecase.StatusUseCase.
type Checker interface {
	Check(ctx context.Context, jobID string, provider model.Provider) (*model.GenerationJob, error)
}

// Entry registers one job for watching.
type Entry struct {
	JobID    string
	Provider model.Provider
	Model    string
}

// UpdateFunc receives every observed job state, including the final one.
type UpdateFunc func(job *model.GenerationJob)

type Config struct {
	// SuccessInterval is the wait after a poll that answered; FailureInterval
	// after a transient failure. Failure backoff intentionally exceeds the
	// success interval so a struggling provider is not hammered.
	SuccessInterval time.Duration
	FailureInterval time.Duration

	// MaxAttempts bounds the total number of polls per job. Exhaustion
	// surfaces the job as failed rather than retaining the loop forever.
	MaxAttempts int

	// CheckTimeout bounds each individual status check.
	CheckTimeout time.Duration
}

func (c *Config) defaults() {
	if c.SuccessInterval <= 0 {
		c.SuccessInterval = 3 * time.Second
	}
	if c.FailureInterval <= 0 {
		c.FailureInterval = 5 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 60
	}
	if c.CheckTimeout <= 0 {
		c.CheckTimeout = 30 * time.Second
	}
}

// watch is one registered job. gen guards against stale loops: a loop that
// lost its registration (Unwatch, or a replacing Watch) observes a different
// generation and self-terminates instead of operating on a dead entry.
type watch struct {
	entry    Entry
	gen      uint64
	onUpdate UpdateFunc
	cancel   context.CancelFunc
}

// Manager owns every polling loop. One goroutine per watched job; the
// registry map is the only shared structure and every access holds mu.
type Manager struct {
	mu      sync.Mutex
	entries map[string]*watch
	nextGen uint64

	checker Checker
	cfg     Config
	root    context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
	log     *zerolog.Logger
}

func NewManager(checker Checker, cfg Config, logger *zerolog.Logger) *Manager {
	cfg.defaults()
	l := logger.With().Str("component", "PollManager").Logger()
	root, stop := context.WithCancel(context.Background())
	return &Manager{
		entries: make(map[string]*watch),
		checker: checker,
		cfg:     cfg,
		root:    root,
		stop:    stop,
		log:     &l,
	}
}

// Watch registers the job and starts its polling loop. Watching an already
// watched job replaces the previous loop.
func (m *Manager) Watch(entry Entry, onUpdate UpdateFunc) error {
	if entry.JobID == "" {
		return fmt.Errorf("%w: empty job id", domain.ErrInvalidArgument)
	}
	if onUpdate == nil {
		onUpdate = func(*model.GenerationJob) {}
	}

	ctx, cancel := context.WithCancel(m.root)

	m.mu.Lock()
	if prev, ok := m.entries[entry.JobID]; ok {
		prev.cancel()
	}
	m.nextGen++
	w := &watch{entry: entry, gen: m.nextGen, onUpdate: onUpdate, cancel: cancel}
	m.entries[entry.JobID] = w
	m.mu.Unlock()

	m.wg.Add(1)
	go m.loop(ctx, w)
	return nil
}

// Unwatch stops the loop for jobID. Safe to call for unknown jobs and safe to
// call from inside an onUpdate callback.
func (m *Manager) Unwatch(jobID string) {
	m.mu.Lock()
	w, ok := m.entries[jobID]
	if ok {
		delete(m.entries, jobID)
	}
	m.mu.Unlock()
	if ok {
		w.cancel()
	}
}

// Len reports the number of jobs currently watched.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Stop cancels every loop and waits for them to drain.
func (m *Manager) Stop() {
	m.stop()
	m.wg.Wait()
}

// alive reports whether the loop owning gen still holds the registration.
func (m *Manager) alive(jobID string, gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.entries[jobID]
	return ok && w.gen == gen
}

// remove clears the registration, but only when still owned by gen.
func (m *Manager) remove(jobID string, gen uint64) {
	m.mu.Lock()
	if w, ok := m.entries[jobID]; ok && w.gen == gen {
		delete(m.entries, jobID)
	}
	m.mu.Unlock()
}

func (m *Manager) loop(ctx context.Context, w *watch) {
	defer m.wg.Done()
	defer m.remove(w.entry.JobID, w.gen)

	jobID, provider := w.entry.JobID, w.entry.Provider
	ctx = logging.WithJobID(ctx, jobID)
	log := logging.With(ctx, m.log)
	attempts := 0
	wait := time.Duration(0) // first poll fires immediately

	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
		if !m.alive(jobID, w.gen) {
			return
		}

		attempts++
		checkCtx, cancel := context.WithTimeout(ctx, m.cfg.CheckTimeout)
		job, err := m.checker.Check(checkCtx, jobID, provider)
		cancel()

		// The registration may have vanished while the check was in
		// flight (user cancelled); a stale loop must not deliver updates.
		if !m.alive(jobID, w.gen) {
			return
		}

		if err != nil {
			if errors.Is(err, domain.ErrAuth) {
				// Retrying cannot succeed without new credentials.
				log.Error().Err(err).Msg("auth failure, stopping watch")
				w.onUpdate(failedJob(w.entry, "provider rejected credential"))
				return
			}
			if attempts >= m.cfg.MaxAttempts {
				log.Error().Err(err).Int("attempts", attempts).Msg("poll attempts exhausted")
				w.onUpdate(failedJob(w.entry, fmt.Sprintf("status polling gave up after %d attempts", attempts)))
				return
			}
			// Transient: invisible to the caller beyond continued
			// processing state.
			log.Debug().Err(err).Int("attempt", attempts).Msg("poll failed, retrying")
			wait = m.cfg.FailureInterval
			continue
		}

		w.onUpdate(job)
		if job.Status.Terminal() {
			return
		}
		if attempts >= m.cfg.MaxAttempts {
			w.onUpdate(failedJob(w.entry, fmt.Sprintf("generation did not finish within %d status checks", attempts)))
			return
		}
		wait = m.cfg.SuccessInterval
	}
}

func failedJob(e Entry, reason string) *model.GenerationJob {
	return &model.GenerationJob{
		ID:        e.JobID,
		Provider:  e.Provider,
		Model:     e.Model,
		Status:    model.JobStatusFailed,
		Error:     reason,
		CreatedAt: time.Now(),
	}
}
