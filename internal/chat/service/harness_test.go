package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/boddenberg/banco-agil-bfa-go/internal/chat/domain"
	"github.com/boddenberg/banco-agil-bfa-go/internal/chat/intent"
	chatport "github.com/boddenberg/banco-agil-bfa-go/internal/chat/port"
	"github.com/boddenberg/banco-agil-bfa-go/internal/chat/service"
	"github.com/boddenberg/banco-agil-bfa-go/internal/chat/session"
	maindomain "github.com/boddenberg/banco-agil-bfa-go/internal/domain"
	"github.com/boddenberg/banco-agil-bfa-go/internal/infra/cache"
	"github.com/boddenberg/banco-agil-bfa-go/internal/infra/observability"
	mainservice "github.com/boddenberg/banco-agil-bfa-go/internal/service"
)

// --- Mocks ---

type mockRepo struct {
	mu       sync.Mutex
	clients  map[string]*maindomain.Client
	requests []maindomain.LimitRequest
	findErr  error
}

func newMockRepo() *mockRepo {
	return &mockRepo{clients: map[string]*maindomain.Client{
		"12345678901": {
			CPF:       "12345678901",
			Name:      "João Silva",
			Birthdate: time.Date(1990, 5, 15, 0, 0, 0, 0, time.UTC),
			Score:     650,
		},
		"22233344455": {
			CPF:       "22233344455",
			Name:      "Carlos Pereira",
			Birthdate: time.Date(1982, 11, 11, 0, 0, 0, 0, time.UTC),
			Score:     250,
		},
	}}
}

func (m *mockRepo) FindClientByCPF(_ context.Context, cpf string) (*maindomain.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	c, ok := m.clients[cpf]
	if !ok {
		return nil, &maindomain.ErrNotFound{Resource: "client", ID: maindomain.MaskCPF(cpf)}
	}
	cp := *c
	return &cp, nil
}

func (m *mockRepo) UpdateClientScore(_ context.Context, cpf string, score int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[cpf].Score = score
	return nil
}

func (m *mockRepo) ScoreLimits(_ context.Context) ([]maindomain.ScoreLimit, error) {
	return []maindomain.ScoreLimit{
		{ScoreMin: 0, ScoreMax: 299, Limit: 500},
		{ScoreMin: 300, ScoreMax: 499, Limit: 2000},
		{ScoreMin: 500, ScoreMax: 599, Limit: 4000},
		{ScoreMin: 600, ScoreMax: 699, Limit: 6000},
		{ScoreMin: 700, ScoreMax: 799, Limit: 10000},
		{ScoreMin: 800, ScoreMax: 1000, Limit: 20000},
	}, nil
}

func (m *mockRepo) AppendLimitRequest(_ context.Context, req *maindomain.LimitRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, *req)
	return nil
}

func (m *mockRepo) score(cpf string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clients[cpf].Score
}

type downFetcher struct{}

func (downFetcher) FetchRates(context.Context, string) (map[string]float64, error) {
	return nil, errors.New("provider down")
}

type failingOracle struct{}

func (failingOracle) ClassifyIntent(context.Context, string) (domain.Intent, error) {
	return "", errors.New("timeout")
}

// --- Harness ---

type harness struct {
	orch  *service.Orchestrator
	store *session.InMemoryStore
	repo  *mockRepo
}

type harnessOption func(*harnessConfig)

type harnessConfig struct {
	responder  service.ResponderConfig
	generator  chatport.TextGenerator
	classifier intent.Classifier
}

func withHumanizer(gen chatport.TextGenerator) harnessOption {
	return func(c *harnessConfig) {
		c.responder.Enabled = true
		c.generator = gen
	}
}

func withClassifier(cl intent.Classifier) harnessOption {
	return func(c *harnessConfig) { c.classifier = cl }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg := harnessConfig{
		responder:  service.ResponderConfig{Seed: 42, Lookback: 4},
		classifier: intent.NewRuleClassifier(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	repo := newMockRepo()
	store := session.NewInMemoryStore(ctx, 0, logger)

	orch := service.NewOrchestrator(service.Dependencies{
		Sessions:  store,
		Clients:   repo,
		Credit:    mainservice.NewCreditService(repo, metrics, logger),
		Interview: mainservice.NewInterviewService(repo, logger),
		Exchange: mainservice.NewExchangeService(downFetcher{},
			cache.New[maindomain.ExchangeQuote](ctx, time.Minute), metrics, logger, time.Second),
		Tokens:          mainservice.NewTokenService("test-secret", time.Hour),
		Classifier:      cfg.classifier,
		Responder:       service.NewResponder(cfg.generator, cfg.responder, metrics, logger),
		Metrics:         metrics,
		Logger:          logger,
		MaxAuthAttempts: 3,
		Clock:           func() time.Time { return time.Date(2025, 6, 10, 14, 30, 0, 0, time.UTC) },
	})

	return &harness{orch: orch, store: store, repo: repo}
}

func (h *harness) init(t *testing.T) string {
	t.Helper()
	resp, err := h.orch.InitSession(context.Background())
	if err != nil {
		t.Fatalf("init session: %v", err)
	}
	return resp.SessionID
}

func (h *harness) send(t *testing.T, id, message string) *domain.ChatResponse {
	t.Helper()
	resp, err := h.orch.ProcessMessage(context.Background(), &domain.ChatRequest{SessionID: id, Message: message})
	if err != nil {
		t.Fatalf("process %q: %v", message, err)
	}
	return resp
}

// authenticated abre uma sessão já autenticada como João Silva.
func (h *harness) authenticated(t *testing.T) string {
	t.Helper()
	id := h.init(t)
	h.send(t, id, "12345678901")
	if resp := h.send(t, id, "15/05/1990"); !resp.Authenticated {
		t.Fatalf("expected authentication, got %+v", resp)
	}
	return id
}

func (h *harness) session(t *testing.T, id string) *domain.Session {
	t.Helper()
	sess, ok := h.store.Get(context.Background(), id)
	if !ok {
		t.Fatalf("session %s not found", id)
	}
	return sess
}

func zapNop() *zap.Logger { return zap.NewNop() }
