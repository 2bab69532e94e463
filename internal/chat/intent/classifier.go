// Package intent classifica mensagens do cliente autenticado em uma das
// intenções fixas: credit_limit, request_increase, exchange_rate, interview, other.
//
// Duas implementações:
//   - RuleClassifier: contagem de palavras-chave, sempre disponível
//   - OracleClassifier: pergunta a um LLM e cai nas regras em qualquer falha
package intent

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/banco-agil-bfa-go/internal/chat/domain"
	"github.com/boddenberg/banco-agil-bfa-go/internal/chat/nlp"
	"github.com/boddenberg/banco-agil-bfa-go/internal/chat/port"
)

var tracer = otel.Tracer("chat/intent")

// Source indica quem decidiu a intenção.
type Source string

const (
	SourceRules  Source = "rules"
	SourceOracle Source = "oracle"
)

// Result é a intenção classificada e sua origem.
type Result struct {
	Intent domain.Intent
	Source Source
}

// Classifier é o contrato usado pelo Orchestrator.
type Classifier interface {
	Classify(ctx context.Context, text string) Result
}

// ============================================================
// RuleClassifier — contagem de palavras-chave
// ============================================================

// Palavras casadas por palavra inteira sobre o texto normalizado, então
// "limit" não casa "limite". Frases contam em dobro com suas palavras
// ("aumento de limite" soma "aumento" e a frase inteira).
var keywords = map[domain.Intent][]string{
	domain.IntentCreditLimit: {
		"limite", "credito", "limit", "credit", "disponivel",
		"consultar limite", "ver limite", "qual meu limite", "qual o meu limite",
	},
	domain.IntentRequestIncrease: {
		"aumento", "aumentar", "increase", "elevar", "subir",
		"aumento de limite", "aumentar limite", "aumentar meu limite", "aumentar o limite",
		"mais limite", "mais credito",
	},
	domain.IntentExchangeRate: {
		"cotacao", "cambio", "moeda", "moedas", "exchange", "converter", "conversao",
		"dolar", "euro", "libra", "iene", "peso", "taxa de cambio",
	},
	domain.IntentInterview: {
		"entrevista", "perfil", "score", "interview", "renda",
		"atualizar perfil", "perfil financeiro", "melhorar score", "melhorar meu score",
	},
}

// RuleClassifier escolhe a intenção com mais palavras-chave; empate fica
// com a primeira na ordem credit_limit > request_increase > exchange_rate > interview.
type RuleClassifier struct{}

// NewRuleClassifier cria o classificador por regras.
func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{}
}

// Classify implementa Classifier.
func (RuleClassifier) Classify(_ context.Context, text string) Result {
	return Result{Intent: ClassifyRules(text), Source: SourceRules}
}

// ClassifyRules é a classificação por regras sem contexto.
func ClassifyRules(text string) domain.Intent {
	words := " " + nlp.Words(text) + " "
	best, bestScore := domain.IntentOther, 0
	for _, in := range domain.Intents {
		score := 0
		for _, kw := range keywords[in] {
			score += countPhrase(words, kw)
		}
		if score > bestScore {
			best, bestScore = in, score
		}
	}
	return best
}

func countPhrase(padded, phrase string) int {
	n := 0
	needle := " " + phrase + " "
	for i := 0; i+len(needle) <= len(padded); i++ {
		if padded[i:i+len(needle)] == needle {
			n++
		}
	}
	return n
}

// ============================================================
// OracleClassifier — LLM com fallback para regras
// ============================================================

// OracleClassifier consulta o IntentOracle e usa as regras quando o oráculo
// falha, demora mais que o timeout, devolve algo fora da taxonomia ou "other".
type OracleClassifier struct {
	oracle  port.IntentOracle
	rules   *RuleClassifier
	timeout time.Duration
	logger  *zap.Logger
}

// NewOracleClassifier cria o classificador. oracle nil equivale às regras.
func NewOracleClassifier(oracle port.IntentOracle, timeout time.Duration, logger *zap.Logger) *OracleClassifier {
	return &OracleClassifier{
		oracle:  oracle,
		rules:   NewRuleClassifier(),
		timeout: timeout,
		logger:  logger,
	}
}

// Classify implementa Classifier.
func (c *OracleClassifier) Classify(ctx context.Context, text string) Result {
	ctx, span := tracer.Start(ctx, "OracleClassifier.Classify")
	defer span.End()

	if c.oracle == nil {
		return c.rules.Classify(ctx, text)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	got, err := c.oracle.ClassifyIntent(ctx, text)
	if err != nil {
		c.logger.Warn("intent oracle failed, using rules", zap.Error(err))
		span.SetAttributes(attribute.String("intent.source", string(SourceRules)))
		return c.rules.Classify(ctx, text)
	}
	if _, ok := domain.ParseIntent(string(got)); !ok || got == domain.IntentOther {
		c.logger.Debug("intent oracle inconclusive, using rules", zap.String("oracle_intent", string(got)))
		return c.rules.Classify(ctx, text)
	}

	span.SetAttributes(
		attribute.String("intent.source", string(SourceOracle)),
		attribute.String("intent", string(got)),
	)
	return Result{Intent: got, Source: SourceOracle}
}
