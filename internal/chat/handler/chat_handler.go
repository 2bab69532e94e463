// Package handler — chat_handler.go implementa as rotas HTTP do chat:
//
//	POST /v1/chat/session              → abre sessão e devolve a saudação
//	POST /v1/chat                      → {"session_id": "...", "message": "..."}
//	POST /v1/chat/{sessionId}/restart  → volta a sessão ao pedido de CPF
//
// O handler é fino: valida o body e delega pro Orchestrator. Toda a lógica
// do diálogo (estado, NLP, colaboradores) fica no service layer.
//
// Usamos POST (e não GET) porque proxies reversos removem o body de
// requisições GET.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/banco-agil-bfa-go/internal/chat/domain"
	maindomain "github.com/boddenberg/banco-agil-bfa-go/internal/domain"
)

// tracer é o tracer OpenTelemetry para o módulo chat/handler.
var tracer = otel.Tracer("chat/handler")

// maxMessageRunes limita o tamanho de uma mensagem do cliente.
const maxMessageRunes = 2000

// Conversation é o que as rotas do chat precisam do Orchestrator.
type Conversation interface {
	InitSession(ctx context.Context) (*domain.ChatResponse, error)
	ProcessMessage(ctx context.Context, req *domain.ChatRequest) (*domain.ChatResponse, error)
	Restart(ctx context.Context, sessionID string) (*domain.ChatResponse, error)
}

// Routes registra as rotas HTTP e WebSocket do chat sob o router recebido.
func Routes(r chi.Router, conv Conversation, logger *zap.Logger) {
	r.Post("/chat/session", SessionHandler(conv, logger))
	r.Post("/chat", ChatHandler(conv, logger))
	r.Post("/chat/{sessionId}/restart", RestartHandler(conv, logger))
	r.Get("/chat/ws", NewWebSocketHandler(conv, logger).ServeHTTP)
}

// ============================================================
// SessionHandler — POST /v1/chat/session
// ============================================================

// SessionHandler abre uma sessão nova.
//
// Response (201 Created):
//
//	{"session_id": "...", "message": "Olá! Bem-vindo ao Banco Ágil!...", "state": "collecting_cpf", ...}
func SessionHandler(conv Conversation, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/chat/session")
		defer span.End()

		resp, err := conv.InitSession(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		span.SetAttributes(attribute.String("session.id", resp.SessionID))
		writeJSON(w, http.StatusCreated, resp)
	}
}

// ============================================================
// ChatHandler — POST /v1/chat
// ============================================================

// ChatHandler processa uma mensagem. session_id vazio abre uma sessão nova.
//
// Request:
//
//	Content-Type: application/json
//	Body: {"session_id": "ab84533a-...", "message": "meu cpf é 123.456.789-01"}
func ChatHandler(conv Conversation, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/chat")
		defer span.End()

		var req domain.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, `invalid request body: expected {"session_id": "...", "message": "..."}`)
			return
		}
		if err := validateRequest(&req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("session.id", req.SessionID))

		resp, err := conv.ProcessMessage(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// ============================================================
// RestartHandler — POST /v1/chat/{sessionId}/restart
// ============================================================

// RestartHandler é a saída do estado goodbye sem abrir outra sessão.
func RestartHandler(conv Conversation, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/chat/{sessionId}/restart")
		defer span.End()

		sessionID := chi.URLParam(r, "sessionId")
		span.SetAttributes(attribute.String("session.id", sessionID))

		resp, err := conv.Restart(ctx, sessionID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func validateRequest(req *domain.ChatRequest) error {
	if req.Message == "" {
		return &maindomain.ErrValidation{Field: "message", Message: "message is required"}
	}
	if utf8.RuneCountInString(req.Message) > maxMessageRunes {
		return &maindomain.ErrValidation{Field: "message", Message: "message is too long"}
	}
	return nil
}

// ============================================================
// Helpers — funções utilitárias do chat handler
// ============================================================

// writeJSON serializa data como JSON e escreve na response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError escreve uma resposta de erro padronizada.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// handleServiceError mapeia erros de domínio para HTTP status codes.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var validation *maindomain.ErrValidation
	var notFound *maindomain.ErrNotFound

	switch {
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, validation.Error())
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, notFound.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		logger.Warn("chat request interrupted", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "request interrupted")
	default:
		logger.Error("unexpected error in chat handler", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
