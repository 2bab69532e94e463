package domain

import (
	"strings"
	"time"
)

// ============================================================
// Cliente — registro de clientes.csv
// ============================================================

// Client é um cliente do Banco Ágil como persistido em clientes.csv.
// O CPF é a chave primária da conta.
type Client struct {
	CPF          string    `json:"cpf"`
	Name         string    `json:"nome"`
	Birthdate    time.Time `json:"data_nascimento"`
	Score        int       `json:"score"`
	CurrentLimit float64   `json:"limite_atual"`
}

// ScoreLimit é uma faixa de score_limite.csv: clientes com score entre
// ScoreMin e ScoreMax (inclusive) têm direito a Limit.
type ScoreLimit struct {
	ScoreMin int     `json:"score_min"`
	ScoreMax int     `json:"score_max"`
	Limit    float64 `json:"limite"`
}

// LimitRequest é uma linha de solicitacoes_aumento_limite.csv.
type LimitRequest struct {
	CPF            string         `json:"cpf_cliente"`
	RequestedAt    time.Time      `json:"data_hora_solicitacao"`
	CurrentLimit   float64        `json:"limite_atual"`
	RequestedLimit float64        `json:"novo_limite_solicitado"`
	Status         IncreaseStatus `json:"status_pedido"`
}

// MaskCPF devolve o CPF com apenas os 3 primeiros dígitos visíveis, para logs.
func MaskCPF(cpf string) string {
	if len(cpf) < 3 {
		return "***"
	}
	return cpf[:3] + "***"
}

// ============================================================
// Crédito
// ============================================================

// IncreaseStatus é o resultado da avaliação de um pedido de aumento.
type IncreaseStatus string

const (
	IncreaseApproved IncreaseStatus = "approved"
	IncreasePending  IncreaseStatus = "pending_analysis"
	IncreaseDenied   IncreaseStatus = "denied"
)

// CreditLimit é a resposta de consulta de limite.
type CreditLimit struct {
	CPF            string  `json:"cpf"`
	CurrentLimit   float64 `json:"current_limit"`
	AvailableLimit float64 `json:"available_limit"`
	Score          int     `json:"score"`
}

// IncreaseRequest é o body do POST /v1/credit/request-increase.
type IncreaseRequest struct {
	NewLimit float64 `json:"new_limit"`
}

// IncreaseResult é o resultado de um pedido de aumento de limite.
type IncreaseResult struct {
	CPF            string         `json:"cpf"`
	RequestedLimit float64        `json:"requested_limit"`
	Status         IncreaseStatus `json:"status"`
	Message        string         `json:"message"`
	OfferInterview bool           `json:"offer_interview"`
	// InterviewMessage é o convite para a entrevista quando o pedido é negado.
	InterviewMessage string `json:"interview_message,omitempty"`
}

// ============================================================
// Entrevista financeira
// ============================================================

// EmploymentType é a categoria de emprego coletada na entrevista.
type EmploymentType string

const (
	EmploymentUnemployed   EmploymentType = "DESEMPREGADO"
	EmploymentPublic       EmploymentType = "PUBLICO"
	EmploymentSelfEmployed EmploymentType = "AUTONOMO"
	EmploymentMEI          EmploymentType = "MEI"
	EmploymentFormal       EmploymentType = "FORMAL"
	EmploymentCLT          EmploymentType = "CLT"
)

// Valid reports whether e is one of the six known categories.
func (e EmploymentType) Valid() bool {
	switch e {
	case EmploymentUnemployed, EmploymentPublic, EmploymentSelfEmployed,
		EmploymentMEI, EmploymentFormal, EmploymentCLT:
		return true
	}
	return false
}

// Label devolve o nome amigável da categoria.
func (e EmploymentType) Label() string {
	switch e {
	case EmploymentUnemployed:
		return "Desempregado"
	case EmploymentPublic:
		return "Servidor Público"
	case EmploymentSelfEmployed:
		return "Autônomo"
	case EmploymentMEI:
		return "MEI"
	case EmploymentFormal:
		return "Formal"
	case EmploymentCLT:
		return "CLT"
	}
	return string(e)
}

// ParseEmploymentType aceita o código da categoria em qualquer caixa.
func ParseEmploymentType(s string) (EmploymentType, bool) {
	e := EmploymentType(strings.ToUpper(strings.TrimSpace(s)))
	return e, e.Valid()
}

// InterviewData são as respostas da entrevista, já validadas.
type InterviewData struct {
	MonthlyIncome  float64        `json:"renda_mensal"`
	EmploymentType EmploymentType `json:"tipo_emprego"`
	Expenses       float64        `json:"despesas"`
	Dependents     int            `json:"num_dependentes"`
	HasDebts       bool           `json:"tem_dividas"`
}

// InterviewResult é o resultado da submissão da entrevista.
type InterviewResult struct {
	CPF            string `json:"cpf"`
	PreviousScore  int    `json:"previous_score"`
	NewScore       int    `json:"new_score"`
	Recommendation string `json:"recommendation"`
}

// ============================================================
// Câmbio
// ============================================================

// RateSource identifica de onde veio a cotação.
type RateSource string

const (
	RateLive     RateSource = "live"
	RateCached   RateSource = "cached"
	RateFallback RateSource = "fallback"
)

// ExchangeQuote é uma cotação from → to.
type ExchangeQuote struct {
	From      string     `json:"from_currency"`
	To        string     `json:"to_currency"`
	Rate      float64    `json:"rate"`
	Timestamp time.Time  `json:"timestamp"`
	Source    RateSource `json:"source"`
}
