package service_test

import (
	"testing"

	"github.com/boddenberg/banco-agil-bfa-go/internal/domain"
	"github.com/boddenberg/banco-agil-bfa-go/internal/service"
)

func TestComputeInterviewScore(t *testing.T) {
	tests := []struct {
		name string
		data domain.InterviewData
		want int
	}{
		{
			name: "formal no debts",
			// 5000/2001*30 = 74.96 + 300 + 80 + 100
			data: domain.InterviewData{MonthlyIncome: 5000, EmploymentType: domain.EmploymentFormal, Expenses: 2000, Dependents: 1},
			want: 554,
		},
		{
			name: "unemployed with debts",
			// 0 + 0 + 30 - 100
			data: domain.InterviewData{EmploymentType: domain.EmploymentUnemployed, Expenses: 1000, Dependents: 5, HasDebts: true},
			want: 0,
		},
		{
			name: "self-employed",
			// 3000/1001*30 = 89.9 + 200 + 100 + 100
			data: domain.InterviewData{MonthlyIncome: 3000, EmploymentType: domain.EmploymentSelfEmployed, Expenses: 1000},
			want: 489,
		},
		{
			name: "clamped to 1000",
			data: domain.InterviewData{MonthlyIncome: 100000, EmploymentType: domain.EmploymentCLT},
			want: 1000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := service.ComputeInterviewScore(&tt.data); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestBlendScore(t *testing.T) {
	if got := service.BlendScore(650, 554); got != 602 {
		t.Errorf("expected 602, got %d", got)
	}
	if got := service.BlendScore(0, 1); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
}

func TestRecommendation(t *testing.T) {
	cases := map[int]string{
		850: "Perfil excelente! Você se qualifica para nossas opções de crédito premium.",
		600: "Bom perfil! Você tem acesso aos produtos de crédito padrão.",
		400: "Perfil moderado. Considere reduzir despesas para melhorar seu score.",
		399: "Seu perfil precisa de melhorias. Recomendamos uma consultoria financeira.",
	}
	for score, want := range cases {
		if got := service.Recommendation(score); got != want {
			t.Errorf("Recommendation(%d) = %q, want %q", score, got, want)
		}
	}
}
