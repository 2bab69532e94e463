package nlp

import (
	"github.com/boddenberg/banco-agil-bfa-go/internal/domain"
)

// ============================================================
// Parser — um ponto de entrada por slot
// ============================================================
//
// Contrato de todo Parse<Slot>: nunca falha; devolve (valor, "") quando
// extraiu um valor dentro dos limites, ou (zero, mensagem) para re-perguntar.
// A lista de "não sei" só escolhe o tom da re-pergunta: uma resposta hesitante
// que traz um valor ("não sei ao certo, uns 5 mil") é aceita.

// Bounds são os limites de domínio aplicados pelos parsers.
type Bounds struct {
	MaxIncome     float64
	MaxExpenses   float64
	MaxDependents int
	MaxLimit      float64
}

// DefaultBounds são os limites usados pelo Banco Ágil.
var DefaultBounds = Bounds{
	MaxIncome:     1_000_000,
	MaxExpenses:   500_000,
	MaxDependents: 20,
	MaxLimit:      1_000_000,
}

// Parser aplica os extratores com os limites configurados.
type Parser struct {
	bounds Bounds
}

// NewParser cria um Parser. Bounds zerados caem nos DefaultBounds.
func NewParser(b Bounds) *Parser {
	if b == (Bounds{}) {
		b = DefaultBounds
	}
	return &Parser{bounds: b}
}

// Frases que indicam que o usuário não sabe responder ou não entendeu.
var unsurePhrases = []string{
	"nao sei", "nao lembro", "nao me lembro", "nao tenho certeza", "nao tenho ideia",
	"como assim", "o que e", "o que sao", "nao entendi", "sei la",
}

// IsUnsure reports whether the message is an "I don't know"/"what?" reply.
func IsUnsure(s string) bool {
	return newPhraseText(s).hasAny(unsurePhrases)
}

func (p *Parser) ParseIncome(text string) (float64, string) {
	v, ok := ExtractMonetaryValue(text)
	if !ok {
		return 0, Clarification(FieldIncome, IsUnsure(text))
	}
	if v < 0 || v > p.bounds.MaxIncome {
		return 0, "O valor de renda parece incorreto. Informe um valor entre R$ 0 e " +
			domain.FormatBRL(p.bounds.MaxIncome) + "."
	}
	return v, ""
}

func (p *Parser) ParseExpenses(text string) (float64, string) {
	v, ok := ExtractMonetaryValue(text)
	if !ok {
		return 0, Clarification(FieldExpenses, IsUnsure(text))
	}
	if v < 0 || v > p.bounds.MaxExpenses {
		return 0, "O valor de despesas parece muito alto. Informe um valor de até " +
			domain.FormatBRL(p.bounds.MaxExpenses) + "."
	}
	return v, ""
}

func (p *Parser) ParseEmploymentType(text string) (domain.EmploymentType, string) {
	if e, ok := ExtractEmploymentType(text); ok {
		return e, ""
	}
	return "", Clarification(FieldEmployment, IsUnsure(text) || isQuestion(text))
}

func (p *Parser) ParseDependents(text string) (int, string) {
	n, ok := ExtractInteger(text)
	// "não tenho certeza" casa com "não tenho": zero vindo de dúvida não vale.
	if !ok || (n == 0 && IsUnsure(text)) {
		return 0, Clarification(FieldDependents, IsUnsure(text) || isQuestion(text))
	}
	if n < 0 || n > p.bounds.MaxDependents {
		return 0, "O número de dependentes parece muito alto. Informe um valor entre 0 e 20."
	}
	return n, ""
}

func (p *Parser) ParseHasDebts(text string) (bool, string) {
	switch ParseBoolean(text) {
	case Yes:
		return true, ""
	case No:
		return false, ""
	}
	return false, Clarification(FieldDebts, IsUnsure(text) || isQuestion(text))
}

func (p *Parser) ParseLimitValue(text string) (float64, string) {
	v, ok := ExtractMonetaryValue(text)
	if !ok {
		return 0, Clarification(FieldLimitValue, IsUnsure(text))
	}
	if v <= 0 || v > p.bounds.MaxLimit {
		return 0, "O limite deve ser maior que zero e de até " + domain.FormatBRL(p.bounds.MaxLimit) + "."
	}
	return v, ""
}

func (p *Parser) ParseCurrency(text string) (string, string) {
	if code, ok := ExtractCurrencyCode(text); ok {
		return code, ""
	}
	return "", Clarification(FieldCurrency, false)
}

func isQuestion(s string) bool {
	for _, r := range s {
		if r == '?' {
			return true
		}
	}
	return false
}
