package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/boddenberg/banco-agil-bfa-go/internal/chat/domain"
	"github.com/boddenberg/banco-agil-bfa-go/internal/chat/nlp"
	"github.com/boddenberg/banco-agil-bfa-go/internal/chat/port"
	"github.com/boddenberg/banco-agil-bfa-go/internal/infra/observability"
)

// ============================================================
// Responder — monta a resposta e humaniza o texto técnico
// ============================================================

var (
	actionsBeforeAuth = []string{"autenticar"}
	actionsAfterAuth  = []string{"consultar_limite", "solicitar_aumento", "cotacao_cambio", "atualizar_perfil"}
)

var greetingWords = []string{
	"ola", "oi", "bom dia", "boa tarde", "boa noite", "hey", "hello", "hi", "e ai", "eai", "fala", "salve",
}

var (
	greetingTemplates = []string{
		"Olá!",
		"Oi! Tudo bem?",
		"Olá, que bom ter você por aqui!",
	}
	namedGreetingTemplates = []string{
		"Olá, %s!",
		"Oi, %s! Tudo bem?",
		"Que bom te ver, %s!",
	}
)

// Números do texto técnico precisam sobreviver à humanização.
var numberToken = regexp.MustCompile(`\d+(?:[.,]\d+)*`)

// ResponderConfig configura o Responder.
type ResponderConfig struct {
	// Enabled liga a humanização; desligada, o texto técnico sai como está.
	Enabled bool
	Timeout time.Duration
	// Lookback é quantos turnos do histórico vão no prompt.
	Lookback int
	Seed     uint64
}

// Responder monta ChatResponse e reescreve mensagens pelo TextGenerator,
// com uma reescrita determinística quando o gerador falha ou não existe.
type Responder struct {
	generator port.TextGenerator
	cfg       ResponderConfig
	metrics   *observability.Metrics
	logger    *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewResponder cria o Responder. generator pode ser nil.
func NewResponder(generator port.TextGenerator, cfg ResponderConfig, metrics *observability.Metrics, logger *zap.Logger) *Responder {
	return &Responder{
		generator: generator,
		cfg:       cfg,
		metrics:   metrics,
		logger:    logger,
		rng:       rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
	}
}

// Build monta a resposta a partir da sessão já atualizada.
func (r *Responder) Build(sess *domain.Session, message string) *domain.ChatResponse {
	actions := actionsBeforeAuth
	if sess.Authenticated() {
		actions = actionsAfterAuth
	}

	var redirect *domain.RedirectAction
	if sess.PendingRedirect != nil {
		rd := *sess.PendingRedirect
		redirect = &rd
	}

	return &domain.ChatResponse{
		SessionID:        sess.ID,
		Message:          message,
		State:            sess.State,
		Authenticated:    sess.Authenticated(),
		Token:            sess.Token,
		AvailableActions: append([]string(nil), actions...),
		Redirect:         redirect,
	}
}

// HumanizeInput é o que o Responder recebe para reescrever uma mensagem.
type HumanizeInput struct {
	Technical   string
	UserMessage string
	UserName    string
	History     []domain.Turn
}

// Humanize reescreve a mensagem técnica. Nunca falha: qualquer erro do
// gerador, timeout ou saída que perca números cai em Fallback.
func (r *Responder) Humanize(ctx context.Context, in HumanizeInput) string {
	if !r.cfg.Enabled {
		return in.Technical
	}
	if r.generator == nil {
		return r.Fallback(in.Technical, in.UserMessage, in.UserName)
	}

	ctx, span := chatTracer.Start(ctx, "Responder.Humanize")
	defer span.End()

	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	out, err := r.generator.Generate(ctx, r.prompt(in))
	if err != nil {
		r.logger.Debug("humanizer failed, using fallback", zap.Error(err))
		r.metrics.IncrOracleFallback("humanize")
		return r.Fallback(in.Technical, in.UserMessage, in.UserName)
	}

	out = strings.TrimSpace(out)
	if !keepsNumbers(in.Technical, out) {
		r.logger.Debug("humanizer dropped values, using fallback")
		r.metrics.IncrOracleFallback("humanize")
		return r.Fallback(in.Technical, in.UserMessage, in.UserName)
	}
	return out
}

func (r *Responder) prompt(in HumanizeInput) string {
	var b strings.Builder
	b.WriteString("Mensagem técnica: ")
	b.WriteString(in.Technical)
	b.WriteString("\nMensagem do cliente: ")
	b.WriteString(in.UserMessage)
	if in.UserName != "" {
		b.WriteString("\nNome do cliente: ")
		b.WriteString(in.UserName)
	}

	history := in.History
	if len(history) > r.cfg.Lookback {
		history = history[len(history)-r.cfg.Lookback:]
	}
	if len(history) > 0 {
		b.WriteString("\nConversa recente:")
		for _, t := range history {
			fmt.Fprintf(&b, "\n%s: %s", t.Role, t.Content)
		}
	}

	b.WriteString("\nReescreva a mensagem técnica de forma natural, sem inventar informações.")
	return b.String()
}

func keepsNumbers(technical, out string) bool {
	if out == "" {
		return false
	}
	for _, n := range numberToken.FindAllString(technical, -1) {
		if !strings.Contains(out, n) {
			return false
		}
	}
	return true
}

// Fallback reescreve as mensagens conhecidas (pedido de CPF, formato de
// data, CPF não encontrado, data divergente) e prefixa uma saudação quando
// o cliente cumprimentou.
func (r *Responder) Fallback(technical, userMessage, userName string) string {
	text := rephrase(technical)
	if nlp.HasAnyPhrase(userMessage, greetingWords) {
		text = r.greeting(userName) + " " + text
	}
	return text
}

func (r *Responder) greeting(name string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if fields := strings.Fields(name); len(fields) > 0 {
		return fmt.Sprintf(namedGreetingTemplates[r.rng.IntN(len(namedGreetingTemplates))], fields[0])
	}
	return greetingTemplates[r.rng.IntN(len(greetingTemplates))]
}

func rephrase(technical string) string {
	n := nlp.NormalizeText(technical)
	switch {
	case strings.Contains(n, "cpf invalido"):
		return "Não consegui identificar um CPF válido. Pode digitar os 11 dígitos? Pontos e traço são opcionais."
	case strings.Contains(n, "informe seu cpf"):
		return "Para começar, preciso do seu CPF. Pode digitar os 11 dígitos."
	case strings.Contains(n, "formato invalido"):
		return "Não consegui entender a data. Pode informar no formato DD/MM/AAAA? Ex: 15/05/1990."
	case strings.Contains(n, "cpf nao encontrado"):
		return "Não encontrei esse CPF em nossa base. Confira os números e tente novamente."
	case strings.Contains(n, "data de nascimento incorreta"):
		return "A data de nascimento não confere com o nosso cadastro. Confira e tente novamente."
	}
	return technical
}
