// Package port — chat_port.go define as interfaces (ports) usadas pelo
// núcleo do chat: armazenamento de sessão e o oráculo LLM opcional.
//
// Seguindo a arquitetura hexagonal, o Orchestrator depende dessas interfaces
// e NÃO das implementações concretas (memória, Ark, agent HTTP).
package port

import (
	"context"

	chatdomain "github.com/boddenberg/banco-agil-bfa-go/internal/chat/domain"
)

// SessionStore guarda as sessões do chat.
//
// Update executa fn com acesso exclusivo à sessão: duas mensagens da mesma
// sessão nunca são processadas ao mesmo tempo. Se o id não existe, a sessão
// é criada antes (inserção preguiçosa). A sessão é gravada mesmo se fn
// devolver erro.
type SessionStore interface {
	Create(ctx context.Context) (*chatdomain.Session, error)
	Get(ctx context.Context, id string) (*chatdomain.Session, bool)
	Update(ctx context.Context, id string, fn func(*chatdomain.Session) error) (*chatdomain.Session, error)
}

// IntentOracle classifica uma mensagem usando um LLM.
// Qualquer erro faz o classificador cair nas regras.
type IntentOracle interface {
	ClassifyIntent(ctx context.Context, text string) (chatdomain.Intent, error)
}

// TextGenerator gera texto livre (humanização das respostas).
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ChatAgentCaller envia mensagens ao agent externo via POST /v1/chat.
// O client concreto (ChatAgentClient) implementa essa interface.
type ChatAgentCaller interface {
	SendChat(ctx context.Context, req *chatdomain.ChatAgentRequest) (*chatdomain.ChatAgentResponse, error)
}
