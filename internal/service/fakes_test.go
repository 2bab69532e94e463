package service_test

import (
	"context"
	"sync"

	"github.com/boddenberg/banco-agil-bfa-go/internal/domain"
)

// --- Mocks ---

var testBands = []domain.ScoreLimit{
	{ScoreMin: 0, ScoreMax: 299, Limit: 1000},
	{ScoreMin: 300, ScoreMax: 499, Limit: 3000},
	{ScoreMin: 500, ScoreMax: 699, Limit: 8000},
	{ScoreMin: 700, ScoreMax: 1000, Limit: 20000},
}

type mockRepo struct {
	mu        sync.Mutex
	clients   map[string]*domain.Client
	bands     []domain.ScoreLimit
	requests  []domain.LimitRequest
	findErr   error
	bandsErr  error
	appendErr error
}

func newMockRepo(clients ...*domain.Client) *mockRepo {
	r := &mockRepo{clients: map[string]*domain.Client{}, bands: testBands}
	for _, c := range clients {
		r.clients[c.CPF] = c
	}
	return r
}

func (m *mockRepo) FindClientByCPF(_ context.Context, cpf string) (*domain.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	c, ok := m.clients[cpf]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "client", ID: domain.MaskCPF(cpf)}
	}
	cp := *c
	return &cp, nil
}

func (m *mockRepo) UpdateClientScore(_ context.Context, cpf string, score int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[cpf]
	if !ok {
		return &domain.ErrNotFound{Resource: "client", ID: domain.MaskCPF(cpf)}
	}
	c.Score = score
	return nil
}

func (m *mockRepo) ScoreLimits(_ context.Context) ([]domain.ScoreLimit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bands, m.bandsErr
}

func (m *mockRepo) AppendLimitRequest(_ context.Context, req *domain.LimitRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	m.requests = append(m.requests, *req)
	return nil
}

func (m *mockRepo) score(cpf string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clients[cpf].Score
}

type mockFetcher struct {
	mu    sync.Mutex
	rates map[string]map[string]float64
	err   error
	calls int
}

func (m *mockFetcher) FetchRates(_ context.Context, base string) (map[string]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.rates[base], nil
}
