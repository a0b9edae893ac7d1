package web

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ai-generation-gateway/internal/config"
	"ai-generation-gateway/internal/domain"
	"ai-generation-gateway/internal/domain/model"
	"ai-generation-gateway/internal/domain/ports/repository"
	"ai-generation-gateway/internal/usecase"
)

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func testConfig() *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{Port: 0},
		RateLimit: config.RateLimitConfig{SubmitsPerMinute: 10},
		Security: config.SecurityConfig{
			AdminSecret:   "test-admin-secret",
			AdminPassword: "hunter2",
		},
	}
}

type stubSubmitUC struct {
	job  *model.GenerationJob
	err  error
	last usecase.SubmitParams
}

func (s *stubSubmitUC) Submit(ctx context.Context, p usecase.SubmitParams) (*model.GenerationJob, error) {
	s.last = p
	if s.err != nil {
		return nil, s.err
	}
	return s.job, nil
}

type stubStatusUC struct {
	job *model.GenerationJob
	err error
}

func (s *stubStatusUC) Check(ctx context.Context, jobID string, provider model.Provider) (*model.GenerationJob, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.job, nil
}

func (s *stubStatusUC) Absorb(ctx context.Context, job *model.GenerationJob) {}

type stubCancelUC struct {
	err    error
	called []string
}

func (s *stubCancelUC) Cancel(ctx context.Context, jobID string, provider model.Provider) error {
	s.called = append(s.called, jobID)
	return s.err
}

type stubCredUC struct {
	creds []*model.Credential
	err   error
}

func (s *stubCredUC) Create(ctx context.Context, service, name, secret, ownerID string) (*model.Credential, error) {
	if s.err != nil {
		return nil, s.err
	}
	c := &model.Credential{ID: "cred-1", Service: model.Provider(service), Name: name, CreatedAt: time.Now()}
	s.creds = append(s.creds, c)
	return c, nil
}

func (s *stubCredUC) List(ctx context.Context) ([]*model.Credential, error) {
	return s.creds, s.err
}

func (s *stubCredUC) Delete(ctx context.Context, id string) error { return s.err }

type stubTokenUC struct {
	mu       sync.Mutex
	balance  int64
	deducts  []int64
	refunds  []int64
	noWallet bool
}

func (s *stubTokenUC) Balance(ctx context.Context, userID string) (*model.TokenBalance, error) {
	if s.noWallet {
		return nil, domain.ErrNotFound
	}
	return &model.TokenBalance{UserID: userID, Tokens: s.balance}, nil
}

func (s *stubTokenUC) HasEnough(ctx context.Context, userID string, amount int64) (bool, error) {
	return s.balance >= amount, nil
}

func (s *stubTokenUC) DeductForJob(ctx context.Context, userID, jobID string, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.balance < amount {
		return domain.ErrInsufficientTokens
	}
	s.balance -= amount
	s.deducts = append(s.deducts, amount)
	return nil
}

func (s *stubTokenUC) Refund(ctx context.Context, userID, jobID string, amount int64, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balance += amount
	s.refunds = append(s.refunds, amount)
	return nil
}

type stubRecords struct {
	recs []*model.GenerationRecord
	err  error
}

func (s *stubRecords) Save(ctx context.Context, qx repository.Tx, rec *model.GenerationRecord) error {
	return nil
}

func (s *stubRecords) ListRecent(ctx context.Context, qx repository.Tx, since time.Time, limit int) ([]*model.GenerationRecord, error) {
	return s.recs, s.err
}

func (s *stubRecords) ListByUser(ctx context.Context, qx repository.Tx, userID string, limit int) ([]*model.GenerationRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []*model.GenerationRecord
	for _, r := range s.recs {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *stubRecords) UpdateStatus(ctx context.Context, qx repository.Tx, id string, status model.JobStatus, resultURL, errorMessage string) error {
	return nil
}

func (s *stubRecords) FailStale(ctx context.Context, qx repository.Tx, cutoff time.Time, reason string) (int64, error) {
	return 0, nil
}

type stubWatcher struct {
	mu      sync.Mutex
	watched []string
}

func (s *stubWatcher) Watch(jobID string, provider model.Provider, modelName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watched = append(s.watched, jobID)
	return nil
}

type stubLimiter struct {
	allow bool
	err   error
}

func (s *stubLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return s.allow, s.err
}

type fixture struct {
	submit  *stubSubmitUC
	status  *stubStatusUC
	cancel  *stubCancelUC
	creds   *stubCredUC
	tokens  *stubTokenUC
	records *stubRecords
	watcher *stubWatcher
	limiter *stubLimiter
	server  *Server
}

func newFixture() *fixture {
	f := &fixture{
		submit:  &stubSubmitUC{},
		status:  &stubStatusUC{},
		cancel:  &stubCancelUC{},
		creds:   &stubCredUC{},
		tokens:  &stubTokenUC{balance: 1000},
		records: &stubRecords{},
		watcher: &stubWatcher{},
		limiter: &stubLimiter{allow: true},
	}
	cfg := testConfig()
	auth := NewAuthManager(cfg.Security.AdminSecret, time.Hour)
	f.server = NewServer(f.submit, f.status, f.cancel, f.creds, f.tokens, f.records, f.watcher, f.limiter, auth, cfg, testLogger())
	return f
}
