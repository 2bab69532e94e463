// Package service implementa o núcleo do chat do Banco Ágil.
//
// ============================================================
// ARQUITETURA — Orchestrator (máquina de estados)
// ============================================================
//
// O Orchestrator recebe cada mensagem do cliente, carrega a sessão com
// acesso exclusivo e decide o que fazer conforme o estado atual:
//
//	welcome → collecting_cpf → collecting_birthdate → authenticated
//	authenticated → credit_increase_flow → authenticated
//	authenticated → interview_income → ... → interview_debts → authenticated
//	authenticated → exchange_from → exchange_to → authenticated
//	qualquer estado → goodbye (palavra de saída ou bloqueio)
//
// Antes do roteamento por estado são checados, nesta ordem: sessão
// encerrada, palavra de saída e oferta de redirecionamento pendente.
//
// Erros de entrada nunca viram erro Go: viram uma nova pergunta no mesmo
// estado. Falhas dos colaboradores viram mensagens de "tente novamente".
package service

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/banco-agil-bfa-go/internal/chat/domain"
	"github.com/boddenberg/banco-agil-bfa-go/internal/chat/intent"
	"github.com/boddenberg/banco-agil-bfa-go/internal/chat/nlp"
	chatport "github.com/boddenberg/banco-agil-bfa-go/internal/chat/port"
	maindomain "github.com/boddenberg/banco-agil-bfa-go/internal/domain"
	"github.com/boddenberg/banco-agil-bfa-go/internal/infra/observability"
	"github.com/boddenberg/banco-agil-bfa-go/internal/port"
)

// chatTracer é o tracer OpenTelemetry para o módulo de chat.
var chatTracer = otel.Tracer("chat/service")

const (
	welcomeMessage = "Olá! Bem-vindo ao Banco Ágil!\n\n" +
		"Sou seu assistente virtual e posso ajudar com:\n" +
		"- Consultar limite de crédito\n" +
		"- Solicitar aumento de limite\n" +
		"- Cotação de moedas\n" +
		"- Atualizar seu perfil financeiro\n\n" +
		"Para começar, preciso validar sua identidade.\n" +
		"Qual é o seu CPF?"

	goodbyeMessage  = "Obrigado por usar o Banco Ágil! Até logo."
	closedMessage   = "Esta conversa foi encerrada. Inicie uma nova sessão para continuar."
	apologyMessage  = "Desculpe, algo deu errado do nosso lado. Vamos recomeçar: como posso ajudar?"
	lockoutMessage  = "Acesso bloqueado por excesso de tentativas.\n\nPara suporte: 0800-123-4567"
	tryAgainMessage = "Não foi possível consultar seus dados agora. Tente novamente em instantes."
)

var exitWords = []string{"tchau", "sair", "encerrar", "bye", "adeus", "ate logo", "finalizar", "exit"}

// Dependencies são os colaboradores do Orchestrator.
type Dependencies struct {
	Sessions   chatport.SessionStore
	Clients    port.ClientRepository
	Credit     port.CreditService
	Interview  port.InterviewService
	Exchange   port.ExchangeService
	Tokens     port.TokenService
	Classifier intent.Classifier
	Parser     *nlp.Parser
	Responder  *Responder
	Metrics    *observability.Metrics
	Logger     *zap.Logger

	// MaxAuthAttempts é o número de falhas de autenticação (CPF não
	// encontrado ou data divergente) que encerra a sessão.
	MaxAuthAttempts int
	// Clock é opcional; nil usa time.Now.
	Clock func() time.Time
}

// Orchestrator conduz o diálogo.
type Orchestrator struct {
	sessions   chatport.SessionStore
	clients    port.ClientRepository
	credit     port.CreditService
	interview  port.InterviewService
	exchange   port.ExchangeService
	tokens     port.TokenService
	classifier intent.Classifier
	parser     *nlp.Parser
	responder  *Responder
	metrics    *observability.Metrics
	logger     *zap.Logger

	maxAuthAttempts int
	now             func() time.Time
}

// NewOrchestrator cria o Orchestrator com as dependências injetadas.
func NewOrchestrator(deps Dependencies) *Orchestrator {
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	parser := deps.Parser
	if parser == nil {
		parser = nlp.NewParser(nlp.DefaultBounds)
	}

	return &Orchestrator{
		sessions:        deps.Sessions,
		clients:         deps.Clients,
		credit:          deps.Credit,
		interview:       deps.Interview,
		exchange:        deps.Exchange,
		tokens:          deps.Tokens,
		classifier:      deps.Classifier,
		parser:          parser,
		responder:       deps.Responder,
		metrics:         deps.Metrics,
		logger:          deps.Logger,
		maxAuthAttempts: deps.MaxAuthAttempts,
		now:             now,
	}
}

// reply é o resultado de um handler de estado.
type reply struct {
	text string
	// humanize manda o texto pelo Responder.Humanize.
	humanize bool
	userName string
}

func plain(text string) reply { return reply{text: text} }

func humanized(text string) reply { return reply{text: text, humanize: true} }

// InitSession abre uma sessão já no estado collecting_cpf com a saudação.
func (o *Orchestrator) InitSession(ctx context.Context) (*domain.ChatResponse, error) {
	ctx, span := chatTracer.Start(ctx, "Orchestrator.InitSession")
	defer span.End()

	created, err := o.sessions.Create(ctx)
	if err != nil {
		return nil, err
	}

	sess, err := o.sessions.Update(ctx, created.ID, func(s *domain.Session) error {
		s.State = domain.StateCollectingCPF
		s.AppendTurn(domain.RoleAssistant, welcomeMessage)
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.logger.Info("chat session started", zap.String("session_id", sess.ID))
	return o.responder.Build(sess, welcomeMessage), nil
}

// Restart volta a sessão ao início (collecting_cpf), limpando autenticação,
// slots, redirecionamento e histórico. É a única saída de goodbye além de
// uma sessão nova.
func (o *Orchestrator) Restart(ctx context.Context, sessionID string) (*domain.ChatResponse, error) {
	ctx, span := chatTracer.Start(ctx, "Orchestrator.Restart")
	defer span.End()

	sess, err := o.sessions.Update(ctx, sessionID, func(s *domain.Session) error {
		*s = domain.Session{
			ID:        s.ID,
			State:     domain.StateCollectingCPF,
			CreatedAt: s.CreatedAt,
		}
		s.AppendTurn(domain.RoleAssistant, welcomeMessage)
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.logger.Info("chat session restarted", zap.String("session_id", sess.ID))
	return o.responder.Build(sess, welcomeMessage), nil
}

// ProcessMessage trata uma mensagem. session_id vazio ou desconhecido cria
// uma sessão nova. Mensagens da mesma sessão são processadas em série.
func (o *Orchestrator) ProcessMessage(ctx context.Context, req *domain.ChatRequest) (*domain.ChatResponse, error) {
	ctx, span := chatTracer.Start(ctx, "Orchestrator.ProcessMessage")
	defer span.End()

	start := time.Now()
	defer func() {
		o.metrics.RecordRequestDuration("chat_message", time.Since(start))
	}()

	id := strings.TrimSpace(req.SessionID)
	if id == "" {
		created, err := o.sessions.Create(ctx)
		if err != nil {
			return nil, err
		}
		id = created.ID
	}
	span.SetAttributes(attribute.String("session.id", id))

	var resp *domain.ChatResponse
	_, err := o.sessions.Update(ctx, id, func(sess *domain.Session) error {
		resp = o.handle(ctx, sess, strings.TrimSpace(req.Message))
		return nil
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("chat.state", string(resp.State)))
	return resp, nil
}

// handle roda com a sessão travada.
func (o *Orchestrator) handle(ctx context.Context, sess *domain.Session, message string) *domain.ChatResponse {
	from := sess.State
	o.metrics.IncrChatMessage(string(from))

	previous := append([]domain.Turn(nil), sess.History...)
	sess.AppendTurn(domain.RoleUser, message)

	r := o.dispatch(ctx, sess, message)

	text := r.text
	if r.humanize {
		name := r.userName
		if name == "" {
			name = sess.ClientName
		}
		text = o.responder.Humanize(ctx, HumanizeInput{
			Technical:   r.text,
			UserMessage: message,
			UserName:    name,
			History:     previous,
		})
	}
	sess.AppendTurn(domain.RoleAssistant, text)

	if from != sess.State {
		o.logger.Debug("chat state transition",
			zap.String("session_id", sess.ID),
			zap.String("from", string(from)),
			zap.String("to", string(sess.State)),
		)
	}
	return o.responder.Build(sess, text)
}

func (o *Orchestrator) dispatch(ctx context.Context, sess *domain.Session, message string) reply {
	if sess.State == domain.StateGoodbye {
		return plain(closedMessage)
	}

	if isExit(message) {
		sess.State = domain.StateGoodbye
		sess.PendingRedirect = nil
		sess.Slots = domain.Slots{}
		return humanized(goodbyeMessage)
	}

	if sess.State == domain.StateWelcome {
		sess.State = domain.StateCollectingCPF
		if _, ok := nlp.ExtractCPF(message); ok {
			return o.handleCPF(ctx, sess, message)
		}
		return humanized("Olá! Para começar, informe seu CPF.")
	}

	if sess.PendingRedirect != nil {
		if r, handled := o.resolveRedirect(ctx, sess, message); handled {
			return r
		}
	}

	return o.route(ctx, sess, message)
}

func (o *Orchestrator) route(ctx context.Context, sess *domain.Session, message string) reply {
	if !sess.State.PreAuth() && !sess.Authenticated() {
		return o.resetUnexpected(sess)
	}

	switch sess.State {
	case domain.StateCollectingCPF:
		return o.handleCPF(ctx, sess, message)
	case domain.StateCollectingBirthdate:
		return o.handleBirthdate(ctx, sess, message)
	case domain.StateAuthenticated:
		return o.handleAuthenticated(ctx, sess, message)
	case domain.StateCreditIncrease:
		return o.handleIncreaseValue(ctx, sess, message)
	case domain.StateInterviewIncome, domain.StateInterviewEmployment, domain.StateInterviewExpenses,
		domain.StateInterviewDependents, domain.StateInterviewDebts:
		return o.handleInterview(ctx, sess, message)
	case domain.StateExchangeFrom, domain.StateExchangeTo:
		return o.handleExchange(ctx, sess, message)
	}
	return o.resetUnexpected(sess)
}

// resetUnexpected trata estado inesperado: pede desculpas e volta a um ponto seguro.
func (o *Orchestrator) resetUnexpected(sess *domain.Session) reply {
	o.logger.Error("unexpected chat state",
		zap.String("session_id", sess.ID),
		zap.String("state", string(sess.State)),
	)

	sess.Slots = domain.Slots{}
	sess.PendingRedirect = nil
	if sess.Authenticated() {
		sess.State = domain.StateAuthenticated
		return plain(apologyMessage)
	}
	sess.State = domain.StateCollectingCPF
	return plain(apologyMessage + "\n\nInforme seu CPF para continuar.")
}

func isExit(message string) bool {
	return nlp.HasAnyPhrase(message, exitWords)
}

func maskedCPF(sess *domain.Session) zap.Field {
	return zap.String("cpf", maindomain.MaskCPF(sess.CPF))
}
