package service

import "github.com/boddenberg/banco-agil-bfa-go/internal/domain"

// ============================================================
// Interview score formula
// ============================================================

const incomeWeight = 30

var employmentWeight = map[domain.EmploymentType]float64{
	domain.EmploymentCLT:          300,
	domain.EmploymentFormal:       300,
	domain.EmploymentPublic:       300,
	domain.EmploymentSelfEmployed: 200,
	domain.EmploymentMEI:          200,
	domain.EmploymentUnemployed:   0,
}

// dependentsWeight is indexed by min(dependents, 3).
var dependentsWeight = [4]float64{100, 80, 60, 30}

// ComputeInterviewScore turns interview answers into a score in [0, 1000]:
// income/(expenses+1)*30 + employment + dependents ± 100 for debts.
func ComputeInterviewScore(d *domain.InterviewData) int {
	score := d.MonthlyIncome / (d.Expenses + 1) * incomeWeight
	score += employmentWeight[d.EmploymentType]

	deps := d.Dependents
	if deps > 3 {
		deps = 3
	}
	if deps < 0 {
		deps = 0
	}
	score += dependentsWeight[deps]

	if d.HasDebts {
		score -= 100
	} else {
		score += 100
	}

	return clampScore(int(score))
}

// BlendScore is the new client score: midpoint of previous and computed.
func BlendScore(previous, computed int) int {
	return clampScore((previous + computed) / 2)
}

func clampScore(s int) int {
	return max(0, min(1000, s))
}

// Recommendation returns the advice shown after an interview.
func Recommendation(score int) string {
	switch {
	case score >= 800:
		return "Perfil excelente! Você se qualifica para nossas opções de crédito premium."
	case score >= 600:
		return "Bom perfil! Você tem acesso aos produtos de crédito padrão."
	case score >= 400:
		return "Perfil moderado. Considere reduzir despesas para melhorar seu score."
	}
	return "Seu perfil precisa de melhorias. Recomendamos uma consultoria financeira."
}
