// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the chat core and
// the REST layer from concrete implementations (CSV files, HTTP APIs, JWT).
package port

import (
	"context"
	"time"

	"github.com/boddenberg/banco-agil-bfa-go/internal/domain"
)

// ClientRepository is the persistence port for clients, the score table and
// limit-increase requests. Implemented by the CSV store.
type ClientRepository interface {
	// FindClientByCPF returns *domain.ErrNotFound when the CPF is not registered.
	FindClientByCPF(ctx context.Context, cpf string) (*domain.Client, error)
	UpdateClientScore(ctx context.Context, cpf string, score int) error
	ScoreLimits(ctx context.Context) ([]domain.ScoreLimit, error)
	AppendLimitRequest(ctx context.Context, req *domain.LimitRequest) error
}

// CreditService answers limit queries and evaluates increase requests.
type CreditService interface {
	GetLimit(ctx context.Context, cpf string) (*domain.CreditLimit, error)
	RequestIncrease(ctx context.Context, cpf string, newLimit float64) (*domain.IncreaseResult, error)
}

// InterviewService recalculates a client's score from interview answers.
type InterviewService interface {
	Submit(ctx context.Context, cpf string, data *domain.InterviewData) (*domain.InterviewResult, error)
}

// ExchangeService returns a quote for a currency pair. It degrades to a
// static table instead of failing.
type ExchangeService interface {
	GetRate(ctx context.Context, from, to string) *domain.ExchangeQuote
}

// RateFetcher fetches live rates for a base currency from an external API.
type RateFetcher interface {
	FetchRates(ctx context.Context, base string) (map[string]float64, error)
}

// TokenService issues and verifies access tokens.
type TokenService interface {
	IssueToken(cpf string) (string, error)
	// VerifyToken returns the CPF in the token, or *domain.ErrUnauthorized.
	VerifyToken(token string) (string, error)
	TTL() time.Duration
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
