// Package domain — chat.go define os tipos do diálogo do assistente Banco Ágil.
//
// O fluxo completo:
//  1. Cliente abre uma sessão (POST /v1/chat/session) e recebe a saudação
//  2. Cada mensagem (POST /v1/chat ou frame WebSocket) vai pro Orchestrator
//  3. O Orchestrator roteia pelo State atual da Session, extrai o slot
//     esperado (NLP) e chama os colaboradores (crédito, entrevista, câmbio)
//  4. O Responder monta o ChatResponse (opcionalmente humanizado pelo LLM)
package domain

import (
	"time"

	maindomain "github.com/boddenberg/banco-agil-bfa-go/internal/domain"
)

// ============================================================
// State — nós da máquina de estados do diálogo
// ============================================================

// State é o nó atual do diálogo. O conjunto é fechado: o Orchestrator trata
// cada valor explicitamente e um valor desconhecido vira pedido de desculpas.
type State string

const (
	StateWelcome             State = "welcome"
	StateCollectingCPF       State = "collecting_cpf"
	StateCollectingBirthdate State = "collecting_birthdate"
	StateAuthenticated       State = "authenticated"
	StateCreditIncrease      State = "credit_increase_flow"
	StateInterviewIncome     State = "interview_income"
	StateInterviewEmployment State = "interview_employment"
	StateInterviewExpenses   State = "interview_expenses"
	StateInterviewDependents State = "interview_dependents"
	StateInterviewDebts      State = "interview_debts"
	StateExchangeFrom        State = "exchange_from"
	StateExchangeTo          State = "exchange_to"
	StateGoodbye             State = "goodbye"
)

// States lista todos os estados válidos, na ordem do fluxo.
var States = []State{
	StateWelcome, StateCollectingCPF, StateCollectingBirthdate, StateAuthenticated,
	StateCreditIncrease,
	StateInterviewIncome, StateInterviewEmployment, StateInterviewExpenses,
	StateInterviewDependents, StateInterviewDebts,
	StateExchangeFrom, StateExchangeTo,
	StateGoodbye,
}

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	for _, v := range States {
		if v == s {
			return true
		}
	}
	return false
}

// PreAuth reports whether the state belongs to the authentication phase.
func (s State) PreAuth() bool {
	return s == StateWelcome || s == StateCollectingCPF || s == StateCollectingBirthdate
}

// ============================================================
// Intent — taxonomia fixa de intenções
// ============================================================

// Intent é a intenção do usuário no estado authenticated.
// A ordem de declaração é o critério de desempate do classificador.
type Intent string

const (
	IntentCreditLimit     Intent = "credit_limit"
	IntentRequestIncrease Intent = "request_increase"
	IntentExchangeRate    Intent = "exchange_rate"
	IntentInterview       Intent = "interview"
	IntentOther           Intent = "other"
)

// Intents lista as intenções na ordem de desempate.
var Intents = []Intent{IntentCreditLimit, IntentRequestIncrease, IntentExchangeRate, IntentInterview, IntentOther}

// ParseIntent aceita o nome de uma intenção conhecida.
func ParseIntent(s string) (Intent, bool) {
	for _, i := range Intents {
		if string(i) == s {
			return i, true
		}
	}
	return "", false
}

// ============================================================
// Redirect — oferta de mudar de fluxo
// ============================================================

// Flow é o destino de uma oferta de redirecionamento.
type Flow string

const (
	FlowInterview Flow = "interview"
	FlowCredit    Flow = "credit"
)

// RedirectAction é a sugestão pendente de pular para outro fluxo,
// ex: limite negado → oferecer entrevista.
type RedirectAction struct {
	TargetFlow      Flow   `json:"target_flow"`
	Reason          string `json:"reason"`
	SuggestedAction string `json:"suggested_action"`
}

// ============================================================
// Session — estado de uma conversa
// ============================================================

// Role identifica o autor de um turno.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn é uma entrada do histórico da conversa.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Slots guarda os valores coletados dentro da entrevista ou do câmbio.
// Cada campo é nil/vazio ou um valor que já passou pela validação de domínio.
type Slots struct {
	Income       *float64                   `json:"renda_mensal,omitempty"`
	Employment   *maindomain.EmploymentType `json:"tipo_emprego,omitempty"`
	Expenses     *float64                   `json:"despesas,omitempty"`
	Dependents   *int                       `json:"num_dependentes,omitempty"`
	HasDebts     *bool                      `json:"tem_dividas,omitempty"`
	FromCurrency string                     `json:"from_currency,omitempty"`
	ToCurrency   string                     `json:"to_currency,omitempty"`
}

// Empty reports whether no slot has been collected.
func (s Slots) Empty() bool {
	return s == (Slots{})
}

// Session é o registro mutável de uma conversa, mantido só em memória.
// Só o Orchestrator altera uma Session.
type Session struct {
	ID        string     `json:"session_id"`
	State     State      `json:"state"`
	CPF       string     `json:"cpf,omitempty"`
	Birthdate *time.Time `json:"birthdate,omitempty"`
	// ClientName é o nome do cliente autenticado, usado nas saudações.
	ClientName string `json:"client_name,omitempty"`
	// Token é emitido na autenticação e não muda mais durante a sessão.
	Token           string          `json:"-"`
	Slots           Slots           `json:"collected_data"`
	PendingRedirect *RedirectAction `json:"pending_redirect,omitempty"`
	History         []Turn          `json:"conversation_history"`
	// AuthFailures conta CPFs não encontrados e datas divergentes.
	AuthFailures int       `json:"auth_failures"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewSession cria uma sessão no estado inicial.
func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:        id,
		State:     StateWelcome,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Authenticated reports whether a token has been issued.
func (s *Session) Authenticated() bool {
	return s.Token != ""
}

// AppendTurn adiciona um turno ao histórico.
func (s *Session) AppendTurn(role Role, content string) {
	s.History = append(s.History, Turn{Role: role, Content: content})
}

// LastAssistantTurn devolve a última fala do assistente, se houver.
func (s *Session) LastAssistantTurn() string {
	for i := len(s.History) - 1; i >= 0; i-- {
		if s.History[i].Role == RoleAssistant {
			return s.History[i].Content
		}
	}
	return ""
}

// Clone devolve uma cópia profunda o bastante para ser lida fora do lock.
func (s *Session) Clone() *Session {
	c := *s
	c.History = append([]Turn(nil), s.History...)
	if s.PendingRedirect != nil {
		r := *s.PendingRedirect
		c.PendingRedirect = &r
	}
	if s.Birthdate != nil {
		b := *s.Birthdate
		c.Birthdate = &b
	}
	c.Slots = s.Slots.clone()
	return &c
}

func (s Slots) clone() Slots {
	c := s
	if s.Income != nil {
		v := *s.Income
		c.Income = &v
	}
	if s.Employment != nil {
		v := *s.Employment
		c.Employment = &v
	}
	if s.Expenses != nil {
		v := *s.Expenses
		c.Expenses = &v
	}
	if s.Dependents != nil {
		v := *s.Dependents
		c.Dependents = &v
	}
	if s.HasDebts != nil {
		v := *s.HasDebts
		c.HasDebts = &v
	}
	return c
}

// ============================================================
// Chat — Request/Response entre o chamador e o BFA
// ============================================================

// ChatRequest é o body do POST /v1/chat e de cada frame WebSocket.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// ChatResponse é o que o BFA devolve a cada mensagem.
type ChatResponse struct {
	SessionID        string          `json:"session_id"`
	Message          string          `json:"message"`
	State            State           `json:"state"`
	Authenticated    bool            `json:"authenticated"`
	Token            string          `json:"token,omitempty"`
	AvailableActions []string        `json:"available_actions"`
	Redirect         *RedirectAction `json:"redirect,omitempty"`
}

// ============================================================
// Chat — Request/Response entre o BFA e o Agent externo
// ============================================================

// ChatAgentRequest é o payload enviado ao agent externo (POST /v1/chat).
//
//	curl -X POST /v1/chat -d '{"query": "...", "context": "humanize"}'
type ChatAgentRequest struct {
	// Query é o prompt (obrigatório)
	Query string `json:"query"`

	// SessionID permite ao agent correlacionar chamadas da mesma conversa
	SessionID string `json:"session_id,omitempty"`

	// Context indica a tarefa: "classify" ou "humanize"
	Context string `json:"context,omitempty"`
}

// ChatAgentResponse é a resposta do agent externo.
type ChatAgentResponse struct {
	Answer     string `json:"answer"`
	TokensUsed int    `json:"tokens_used"`
	Timestamp  string `json:"timestamp"`
}
