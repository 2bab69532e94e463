package infra

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/banco-agil-bfa-go/internal/chat/domain"
	"github.com/boddenberg/banco-agil-bfa-go/internal/infra/resilience"
)

// ============================================================
// ArkOracle — classificação e humanização via eino + Ark
// ============================================================

const classifySystemPrompt = `Você classifica mensagens de clientes do Banco Ágil.
Responda apenas com uma destas palavras, sem pontuação:
credit_limit (consultar limite de crédito)
request_increase (pedir aumento de limite)
exchange_rate (cotação ou conversão de moedas)
interview (entrevista financeira ou atualizar perfil e renda)
other (qualquer outra coisa)`

const generateSystemPrompt = `Você é o assistente virtual do Banco Ágil.
Reescreva o texto pedido em português do Brasil, curto e cordial.
Mantenha todos os números, valores e datas exatamente como estão.`

// ArkModelConfig reúne as credenciais e parâmetros do modelo Ark.
type ArkModelConfig struct {
	BaseURL     string
	Region      string
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	MaxTokens   int
	Temperature float64
}

// NewArkChatModel cria o chat model Ark a partir da configuração.
func NewArkChatModel(ctx context.Context, c ArkModelConfig) (model.ChatModel, error) {
	if c.Model == "" || (c.APIKey == "" && (c.AccessKey == "" || c.SecretKey == "")) {
		return nil, errors.New("ark: model and credentials (ARK_API_KEY or AK/SK) are required")
	}

	temperature := float32(c.Temperature)
	maxTokens := c.MaxTokens

	return ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
	})
}

// ArkOracle implementa IntentOracle e TextGenerator sobre duas chains eino
// compiladas a partir do mesmo chat model.
type ArkOracle struct {
	classifier compose.Runnable[map[string]any, *schema.Message]
	generator  compose.Runnable[map[string]any, *schema.Message]
	bulkhead   *resilience.Bulkhead
	logger     *zap.Logger
}

// NewArkOracle compila as chains de classificação e de geração.
func NewArkOracle(ctx context.Context, chatModel model.BaseChatModel, bulkhead *resilience.Bulkhead, logger *zap.Logger) (*ArkOracle, error) {
	classifier, err := compileChain(ctx, chatModel, classifySystemPrompt, "{message}")
	if err != nil {
		return nil, fmt.Errorf("compile intent chain: %w", err)
	}
	generator, err := compileChain(ctx, chatModel, generateSystemPrompt, "{prompt}")
	if err != nil {
		return nil, fmt.Errorf("compile generation chain: %w", err)
	}

	return &ArkOracle{
		classifier: classifier,
		generator:  generator,
		bulkhead:   bulkhead,
		logger:     logger,
	}, nil
}

func compileChain(ctx context.Context, chatModel model.BaseChatModel, system, user string) (compose.Runnable[map[string]any, *schema.Message], error) {
	template := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(system),
		schema.UserMessage(user),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(template)
	chain.AppendChatModel(chatModel)

	return chain.Compile(ctx)
}

// ClassifyIntent implementa port.IntentOracle.
func (o *ArkOracle) ClassifyIntent(ctx context.Context, text string) (domain.Intent, error) {
	ctx, span := tracer.Start(ctx, "ArkOracle.ClassifyIntent")
	defer span.End()

	answer, err := o.invoke(ctx, o.classifier, map[string]any{"message": text})
	if err != nil {
		return "", err
	}

	intent, ok := ParseOracleIntent(answer)
	if !ok {
		return "", fmt.Errorf("ark: unexpected intent %q", answer)
	}
	span.SetAttributes(attribute.String("intent", string(intent)))
	return intent, nil
}

// Generate implementa port.TextGenerator.
func (o *ArkOracle) Generate(ctx context.Context, p string) (string, error) {
	ctx, span := tracer.Start(ctx, "ArkOracle.Generate")
	defer span.End()

	return o.invoke(ctx, o.generator, map[string]any{"prompt": p})
}

func (o *ArkOracle) invoke(ctx context.Context, r compose.Runnable[map[string]any, *schema.Message], input map[string]any) (string, error) {
	var content string
	err := o.bulkhead.Do(ctx, func(ctx context.Context) error {
		msg, err := r.Invoke(ctx, input)
		if err != nil {
			return err
		}
		if msg == nil {
			return errors.New("ark: empty response")
		}
		content = strings.TrimSpace(msg.Content)
		return nil
	})
	if err != nil {
		o.logger.Debug("ark invoke failed", zap.Error(err))
		return "", err
	}
	if content == "" {
		return "", errors.New("ark: empty response")
	}
	return content, nil
}

// ParseOracleIntent extrai a intenção da resposta livre do modelo.
func ParseOracleIntent(answer string) (domain.Intent, bool) {
	cleaned := strings.ToLower(strings.TrimSpace(answer))
	cleaned = strings.Trim(cleaned, " .\"'`\n")
	if intent, ok := domain.ParseIntent(cleaned); ok {
		return intent, true
	}
	for _, intent := range domain.Intents {
		if strings.Contains(cleaned, string(intent)) {
			return intent, true
		}
	}
	return "", false
}
