// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"ai-generation-gateway/internal/domain"
	"ai-generation-gateway/internal/domain/model"
	"ai-generation-gateway/internal/domain/ports/adapter"
	"ai-generation-gateway/internal/domain/ports/repository"
)

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// memCredentialRepo is a small in-memory implementation used by unit tests.
type memCredentialRepo struct {
	mu      sync.RWMutex
	store   []*model.Credential
	findErr error
}

func newMemCredentialRepo() *memCredentialRepo { return &memCredentialRepo{} }

func (m *memCredentialRepo) Save(ctx context.Context, qx repository.Tx, c *model.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.store = append(m.store, &cp)
	return nil
}

func (m *memCredentialRepo) FindLatestByService(ctx context.Context, qx repository.Tx, service model.Provider) (*model.Credential, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *model.Credential
	for _, c := range m.store {
		if c.Service != service {
			continue
		}
		if latest == nil || c.CreatedAt.After(latest.CreatedAt) {
			latest = c
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (m *memCredentialRepo) List(ctx context.Context, qx repository.Tx) ([]*model.Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.Credential, 0, len(m.store))
	for _, c := range m.store {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memCredentialRepo) Delete(ctx context.Context, qx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, c := range m.store {
		if c.ID == id {
			m.store = append(m.store[:i], m.store[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

// memGenerationRepo keeps records in memory.
type memGenerationRepo struct {
	mu        sync.RWMutex
	recs      []*model.GenerationRecord
	saveErr   error
	updateErr error
	listErr   error
}

func newMemGenerationRepo() *memGenerationRepo { return &memGenerationRepo{} }

func (m *memGenerationRepo) Save(ctx context.Context, qx repository.Tx, rec *model.GenerationRecord) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.recs {
		if r.ID == rec.ID {
			cp := *rec
			m.recs[i] = &cp
			return nil
		}
	}
	cp := *rec
	m.recs = append(m.recs, &cp)
	return nil
}

func (m *memGenerationRepo) ListRecent(ctx context.Context, qx repository.Tx, since time.Time, limit int) ([]*model.GenerationRecord, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.GenerationRecord
	for _, r := range m.recs {
		if r.CreatedAt.After(since) {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memGenerationRepo) ListByUser(ctx context.Context, qx repository.Tx, userID string, limit int) ([]*model.GenerationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.GenerationRecord
	for _, r := range m.recs {
		if r.UserID == userID {
			cp := *r
			out = append(out, &cp)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memGenerationRepo) UpdateStatus(ctx context.Context, qx repository.Tx, id string, status model.JobStatus, resultURL, errorMessage string) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.recs {
		if r.ID == id {
			r.Status = status
			r.ResultURL = resultURL
			r.ErrorMessage = errorMessage
			r.UpdatedAt = time.Now()
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memGenerationRepo) FailStale(ctx context.Context, qx repository.Tx, cutoff time.Time, reason string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.recs {
		if !r.Status.Terminal() && r.UpdatedAt.Before(cutoff) {
			r.Status = model.JobStatusFailed
			r.ErrorMessage = reason
			n++
		}
	}
	return n, nil
}

func (m *memGenerationRepo) byJobID(jobID string) *model.GenerationRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.recs {
		if r.JobID == jobID {
			cp := *r
			return &cp
		}
	}
	return nil
}

// memStatusCache is the redis-backed cache replaced by a map.
type memStatusCache struct {
	mu     sync.RWMutex
	store  map[string]*model.GenerationJob
	getErr error
	putErr error
}

func newMemStatusCache() *memStatusCache {
	return &memStatusCache{store: make(map[string]*model.GenerationJob)}
}

func (m *memStatusCache) Get(ctx context.Context, jobID string) (*model.GenerationJob, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.store[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *memStatusCache) Put(ctx context.Context, job *model.GenerationJob) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *job
	m.store[job.ID] = &cp
	return nil
}

// memTokenRepo tracks balances and ledger entries in memory.
type memTokenRepo struct {
	mu       sync.Mutex
	balances map[string]int64
	ledger   []*model.TokenLedgerEntry
}

func newMemTokenRepo() *memTokenRepo {
	return &memTokenRepo{balances: make(map[string]int64)}
}

func (m *memTokenRepo) Balance(ctx context.Context, qx repository.Tx, userID string) (*model.TokenBalance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.balances[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &model.TokenBalance{UserID: userID, Tokens: b, UpdatedAt: time.Now()}, nil
}

func (m *memTokenRepo) Deduct(ctx context.Context, qx repository.Tx, userID string, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.balances[userID]
	if b < amount {
		return domain.ErrInsufficientTokens
	}
	m.balances[userID] = b - amount
	return nil
}

func (m *memTokenRepo) Credit(ctx context.Context, qx repository.Tx, userID string, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[userID] += amount
	return nil
}

func (m *memTokenRepo) SaveLedgerEntry(ctx context.Context, qx repository.Tx, e *model.TokenLedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.ledger = append(m.ledger, &cp)
	return nil
}

// memTxManager runs callbacks without a real transaction.
type memTxManager struct{}

func (memTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, repository.NoTX)
}

// fakeAdapter is a scriptable ProviderAdapter counting its calls.
type fakeAdapter struct {
	name     model.Provider
	submitFn func(ctx context.Context, secret string, req adapter.SubmitRequest) (*adapter.ProviderTask, error)
	pollFn   func(ctx context.Context, secret string, taskID string) (*adapter.ProviderTask, error)
	cancelFn func(ctx context.Context, secret string, taskID string) error

	mu          sync.Mutex
	submitCalls int
	pollCalls   int
	cancelCalls int
	lastSecret  string
}

func (f *fakeAdapter) Name() model.Provider { return f.name }

func (f *fakeAdapter) Submit(ctx context.Context, secret string, req adapter.SubmitRequest) (*adapter.ProviderTask, error) {
	f.mu.Lock()
	f.submitCalls++
	f.lastSecret = secret
	f.mu.Unlock()
	if f.submitFn == nil {
		return &adapter.ProviderTask{ID: "task-1", Status: "queued"}, nil
	}
	return f.submitFn(ctx, secret, req)
}

func (f *fakeAdapter) Poll(ctx context.Context, secret string, taskID string) (*adapter.ProviderTask, error) {
	f.mu.Lock()
	f.pollCalls++
	f.lastSecret = secret
	f.mu.Unlock()
	if f.pollFn == nil {
		return &adapter.ProviderTask{ID: taskID, Status: "queued"}, nil
	}
	return f.pollFn(ctx, secret, taskID)
}

func (f *fakeAdapter) Cancel(ctx context.Context, secret string, taskID string) error {
	f.mu.Lock()
	f.cancelCalls++
	f.mu.Unlock()
	if f.cancelFn == nil {
		return nil
	}
	return f.cancelFn(ctx, secret, taskID)
}

func (f *fakeAdapter) TranslateStatus(providerStatus string) model.JobStatus {
	switch providerStatus {
	case "completed":
		return model.JobStatusCompleted
	case "failed":
		return model.JobStatusFailed
	case "cancelled":
		return model.JobStatusCancelled
	case "queued":
		return model.JobStatusPending
	default:
		return model.JobStatusProcessing
	}
}

type fakeRegistry struct {
	adapters map[model.Provider]adapter.ProviderAdapter
}

func newFakeRegistry(ads ...adapter.ProviderAdapter) *fakeRegistry {
	m := make(map[model.Provider]adapter.ProviderAdapter)
	for _, a := range ads {
		m[a.Name()] = a
	}
	return &fakeRegistry{adapters: m}
}

func (r *fakeRegistry) Get(p model.Provider) (adapter.ProviderAdapter, error) {
	if a := r.adapters[p]; a != nil {
		return a, nil
	}
	return nil, domain.ErrUnknownProvider
}

// staticCrypto prefixes instead of encrypting; decErr simulates key rot.
type staticCrypto struct {
	decErr error
}

func (c staticCrypto) Encrypt(plaintext string) (string, error) { return "enc:" + plaintext, nil }

func (c staticCrypto) Decrypt(ciphertext string) (string, error) {
	if c.decErr != nil {
		return "", c.decErr
	}
	if !strings.HasPrefix(ciphertext, "enc:") {
		return "", errors.New("not a ciphertext")
	}
	return strings.TrimPrefix(ciphertext, "enc:"), nil
}

// fakeWatcher records Unwatch calls.
type fakeWatcher struct {
	mu        sync.Mutex
	unwatched []string
}

func (f *fakeWatcher) Unwatch(jobID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unwatched = append(f.unwatched, jobID)
}

func (f *fakeWatcher) unwatchedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.unwatched...)
}
