package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/boddenberg/banco-agil-bfa-go/internal/chat/domain"
	maindomain "github.com/boddenberg/banco-agil-bfa-go/internal/domain"
	"github.com/boddenberg/banco-agil-bfa-go/internal/infra/resilience"
)

// tracer é o tracer OpenTelemetry para o módulo chat/infra.
var tracer = otel.Tracer("chat/infra")

const (
	agentContextClassify = "classify"
	agentContextHumanize = "humanize"
)

// ============================================================
// ChatAgentClient — cliente HTTP de um agent LLM externo
// ============================================================
//
// Contrato do agent:
//
//	Request:  {"query": "...", "session_id": "...", "context": "classify|humanize"}
//	Response: {"answer": "...", "tokens_used": 120, "timestamp": "..."}
//
// É a alternativa ao ArkOracle quando LLM_PROVIDER=agent.

type ChatAgentClient struct {
	httpClient *http.Client
	baseURL    string // ex: http://localhost:8090
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// NewChatAgentClient cria o client que se comunica com o agent.
// O baseURL deve ser a URL base do agent (sem /v1/chat no final).
func NewChatAgentClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *ChatAgentClient {
	return &ChatAgentClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		cb:         cb,
		cfg:        cfg,
	}
}

// SendChat envia uma mensagem para o agent e retorna a resposta.
//
// O circuit breaker protege contra o agent estar fora do ar.
// O retry com backoff tenta novamente em caso de falha temporária;
// respostas 4xx não são repetidas.
func (c *ChatAgentClient) SendChat(ctx context.Context, req *domain.ChatAgentRequest) (*domain.ChatAgentResponse, error) {
	ctx, span := tracer.Start(ctx, "ChatAgentClient.SendChat")
	defer span.End()
	span.SetAttributes(attribute.String("agent.context", req.Context))

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	result, err := c.cb.Execute(func() (any, error) {
		var agentResp domain.ChatAgentResponse

		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			url := fmt.Sprintf("%s/v1/chat", c.baseURL)
			httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
			if err != nil {
				return resilience.Permanent(fmt.Errorf("create http request: %w", err))
			}
			httpReq.Header.Set("Content-Type", "application/json")

			resp, err := c.httpClient.Do(httpReq)
			if err != nil {
				return fmt.Errorf("http call to agent: %w", err)
			}
			defer resp.Body.Close()

			switch {
			case resp.StatusCode >= 500:
				return fmt.Errorf("agent /v1/chat returned status %d", resp.StatusCode)
			case resp.StatusCode != http.StatusOK:
				return resilience.Permanent(fmt.Errorf("agent /v1/chat returned status %d", resp.StatusCode))
			}

			return json.NewDecoder(resp.Body).Decode(&agentResp)
		})

		if innerErr != nil {
			return nil, innerErr
		}
		return &agentResp, nil
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &maindomain.ErrCircuitOpen{Service: "chat-agent"}
		}
		return nil, &maindomain.ErrExternalService{Service: "chat-agent", Err: err}
	}

	span.SetAttributes(attribute.Int("agent.tokens_used", result.(*domain.ChatAgentResponse).TokensUsed))
	return result.(*domain.ChatAgentResponse), nil
}

// ClassifyIntent implementa port.IntentOracle sobre o agent.
func (c *ChatAgentClient) ClassifyIntent(ctx context.Context, text string) (domain.Intent, error) {
	resp, err := c.SendChat(ctx, &domain.ChatAgentRequest{Query: text, Context: agentContextClassify})
	if err != nil {
		return "", err
	}
	intent, ok := ParseOracleIntent(resp.Answer)
	if !ok {
		return "", fmt.Errorf("agent: unexpected intent %q", resp.Answer)
	}
	return intent, nil
}

// Generate implementa port.TextGenerator sobre o agent.
func (c *ChatAgentClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.SendChat(ctx, &domain.ChatAgentRequest{Query: prompt, Context: agentContextHumanize})
	if err != nil {
		return "", err
	}
	answer := strings.TrimSpace(resp.Answer)
	if answer == "" {
		return "", errors.New("agent: empty answer")
	}
	return answer, nil
}
