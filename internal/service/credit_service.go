package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/boddenberg/banco-agil-bfa-go/internal/domain"
	"github.com/boddenberg/banco-agil-bfa-go/internal/infra/observability"
	"github.com/boddenberg/banco-agil-bfa-go/internal/port"
)

var creditTracer = otel.Tracer("service/credit")

// availableRatio is the share of the limit the client can use.
const availableRatio = 0.8

// InterviewOffer is appended to denied increase requests.
const InterviewOffer = "Gostaria de realizar uma entrevista financeira para melhorar seu score? " +
	"Com base nas suas informações, podemos reavaliar seu limite de crédito."

// CreditService answers limit queries and evaluates increase requests
// against the score table.
type CreditService struct {
	repo    port.ClientRepository
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewCreditService creates the credit service with all dependencies injected.
func NewCreditService(repo port.ClientRepository, metrics *observability.Metrics, logger *zap.Logger) *CreditService {
	return &CreditService{
		repo:    repo,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// GetLimit returns the client's limit (from the score table) and the
// available share of it.
func (s *CreditService) GetLimit(ctx context.Context, cpf string) (*domain.CreditLimit, error) {
	ctx, span := creditTracer.Start(ctx, "CreditService.GetLimit")
	defer span.End()
	span.SetAttributes(attribute.String("cpf", domain.MaskCPF(cpf)))

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("credit_limit", time.Since(start))
	}()

	client, bands, err := s.load(ctx, cpf)
	if err != nil {
		return nil, err
	}

	limit := LimitForScore(client.Score, bands)

	s.logger.Info("credit limit retrieved", zap.String("cpf", domain.MaskCPF(cpf)))

	return &domain.CreditLimit{
		CPF:            cpf,
		CurrentLimit:   limit,
		AvailableLimit: limit * availableRatio,
		Score:          client.Score,
	}, nil
}

// RequestIncrease evaluates and records a limit-increase request.
func (s *CreditService) RequestIncrease(ctx context.Context, cpf string, newLimit float64) (*domain.IncreaseResult, error) {
	ctx, span := creditTracer.Start(ctx, "CreditService.RequestIncrease")
	defer span.End()
	span.SetAttributes(attribute.String("cpf", domain.MaskCPF(cpf)))

	if newLimit <= 0 {
		return nil, &domain.ErrValidation{Field: "new_limit", Message: "deve ser maior que zero"}
	}

	client, bands, err := s.load(ctx, cpf)
	if err != nil {
		return nil, err
	}

	current := LimitForScore(client.Score, bands)
	status := EvaluateIncrease(client.Score, current, newLimit, bands)

	err = s.repo.AppendLimitRequest(ctx, &domain.LimitRequest{
		CPF:            cpf,
		RequestedAt:    s.now().UTC(),
		CurrentLimit:   current,
		RequestedLimit: newLimit,
		Status:         status,
	})
	if err != nil {
		return nil, fmt.Errorf("record limit request: %w", err)
	}

	span.SetAttributes(attribute.String("credit.status", string(status)))
	s.logger.Info("limit increase evaluated",
		zap.String("cpf", domain.MaskCPF(cpf)),
		zap.String("status", string(status)),
	)

	result := &domain.IncreaseResult{
		CPF:            cpf,
		RequestedLimit: newLimit,
		Status:         status,
		Message:        statusMessage(status, newLimit),
		OfferInterview: status == domain.IncreaseDenied,
	}
	if result.OfferInterview {
		result.InterviewMessage = InterviewOffer
	}
	return result, nil
}

// load reads the client row and the score table concurrently.
func (s *CreditService) load(ctx context.Context, cpf string) (*domain.Client, []domain.ScoreLimit, error) {
	var (
		client *domain.Client
		bands  []domain.ScoreLimit
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		c, err := s.repo.FindClientByCPF(gCtx, cpf)
		if err != nil {
			return fmt.Errorf("client lookup: %w", err)
		}
		client = c
		return nil
	})

	g.Go(func() error {
		b, err := s.repo.ScoreLimits(gCtx)
		if err != nil {
			return fmt.Errorf("score table: %w", err)
		}
		bands = b
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return client, bands, nil
}

// LimitForScore returns the limit of the band containing score. Scores
// outside every band get 500 below 300, 50000 from 900 and 1000 otherwise.
func LimitForScore(score int, bands []domain.ScoreLimit) float64 {
	for _, b := range bands {
		if b.ScoreMin <= score && score <= b.ScoreMax {
			return b.Limit
		}
	}
	switch {
	case score < 300:
		return 500
	case score >= 900:
		return 50000
	}
	return 1000
}

// EvaluateIncrease approves requests up to the current limit or up to the
// maximum for the score, and denies the rest.
func EvaluateIncrease(score int, current, requested float64, bands []domain.ScoreLimit) domain.IncreaseStatus {
	if requested <= current {
		return domain.IncreaseApproved
	}
	if requested <= LimitForScore(score, bands) {
		return domain.IncreaseApproved
	}
	return domain.IncreaseDenied
}

func statusMessage(status domain.IncreaseStatus, requested float64) string {
	switch status {
	case domain.IncreaseApproved:
		return fmt.Sprintf("Sua solicitação de limite de %s foi aprovada!", domain.FormatBRL(requested))
	case domain.IncreasePending:
		return "Sua solicitação está em análise. Entraremos em contato em breve."
	case domain.IncreaseDenied:
		return "Infelizmente, sua solicitação não pôde ser aprovada no momento."
	}
	return "Solicitação processada."
}
