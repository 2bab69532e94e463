package service

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/banco-agil-bfa-go/internal/domain"
	"github.com/boddenberg/banco-agil-bfa-go/internal/port"
)

var interviewTracer = otel.Tracer("service/interview")

// InterviewService recalculates the client score from interview answers.
type InterviewService struct {
	repo   port.ClientRepository
	logger *zap.Logger
}

// NewInterviewService creates the interview service.
func NewInterviewService(repo port.ClientRepository, logger *zap.Logger) *InterviewService {
	return &InterviewService{repo: repo, logger: logger}
}

// Submit scores the answers, stores the blended score and returns it with a
// recommendation.
func (s *InterviewService) Submit(ctx context.Context, cpf string, data *domain.InterviewData) (*domain.InterviewResult, error) {
	ctx, span := interviewTracer.Start(ctx, "InterviewService.Submit")
	defer span.End()
	span.SetAttributes(attribute.String("cpf", domain.MaskCPF(cpf)))

	if err := validateInterview(data); err != nil {
		return nil, err
	}

	client, err := s.repo.FindClientByCPF(ctx, cpf)
	if err != nil {
		return nil, fmt.Errorf("client lookup: %w", err)
	}

	computed := ComputeInterviewScore(data)
	final := BlendScore(client.Score, computed)

	if err := s.repo.UpdateClientScore(ctx, cpf, final); err != nil {
		return nil, fmt.Errorf("update score: %w", err)
	}

	span.SetAttributes(attribute.Int("score.new", final))
	s.logger.Info("interview submitted",
		zap.String("cpf", domain.MaskCPF(cpf)),
		zap.Int("previous_score", client.Score),
		zap.Int("computed_score", computed),
		zap.Int("new_score", final),
	)

	return &domain.InterviewResult{
		CPF:            cpf,
		PreviousScore:  client.Score,
		NewScore:       final,
		Recommendation: Recommendation(final),
	}, nil
}

func validateInterview(d *domain.InterviewData) error {
	switch {
	case d == nil:
		return &domain.ErrValidation{Field: "body", Message: "obrigatório"}
	case d.MonthlyIncome < 0:
		return &domain.ErrValidation{Field: "renda_mensal", Message: "não pode ser negativa"}
	case d.Expenses < 0:
		return &domain.ErrValidation{Field: "despesas", Message: "não podem ser negativas"}
	case d.Dependents < 0:
		return &domain.ErrValidation{Field: "num_dependentes", Message: "não pode ser negativo"}
	case !d.EmploymentType.Valid():
		return &domain.ErrValidation{Field: "tipo_emprego", Message: "tipo de emprego inválido"}
	}
	return nil
}
