package service_test

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/boddenberg/banco-agil-bfa-go/internal/domain"
	"github.com/boddenberg/banco-agil-bfa-go/internal/service"
)

func TestInterviewSubmit_UpdatesScore(t *testing.T) {
	repo := newMockRepo(&domain.Client{CPF: "12345678901", Score: 650})
	svc := service.NewInterviewService(repo, zap.NewNop())

	res, err := svc.Submit(context.Background(), "12345678901", &domain.InterviewData{
		MonthlyIncome:  5000,
		EmploymentType: domain.EmploymentFormal,
		Expenses:       2000,
		Dependents:     1,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.PreviousScore != 650 || res.NewScore != 602 {
		t.Errorf("expected 650 -> 602, got %d -> %d", res.PreviousScore, res.NewScore)
	}
	if res.Recommendation != "Bom perfil! Você tem acesso aos produtos de crédito padrão." {
		t.Errorf("unexpected recommendation %q", res.Recommendation)
	}
	if got := repo.score("12345678901"); got != 602 {
		t.Errorf("expected stored score 602, got %d", got)
	}
}

func TestInterviewSubmit_Validation(t *testing.T) {
	repo := newMockRepo(&domain.Client{CPF: "12345678901", Score: 650})
	svc := service.NewInterviewService(repo, zap.NewNop())

	bad := []*domain.InterviewData{
		nil,
		{MonthlyIncome: -1, EmploymentType: domain.EmploymentCLT},
		{MonthlyIncome: 1000, EmploymentType: "ESTAGIO"},
		{MonthlyIncome: 1000, EmploymentType: domain.EmploymentCLT, Dependents: -2},
	}
	for i, data := range bad {
		_, err := svc.Submit(context.Background(), "12345678901", data)
		var ve *domain.ErrValidation
		if !errors.As(err, &ve) {
			t.Errorf("case %d: expected ErrValidation, got %v", i, err)
		}
	}
	if got := repo.score("12345678901"); got != 650 {
		t.Errorf("score changed on invalid input: %d", got)
	}
}

func TestInterviewSubmit_UnknownClient(t *testing.T) {
	svc := service.NewInterviewService(newMockRepo(), zap.NewNop())

	_, err := svc.Submit(context.Background(), "99999999999", &domain.InterviewData{EmploymentType: domain.EmploymentMEI})
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
