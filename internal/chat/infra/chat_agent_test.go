package infra

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/boddenberg/banco-agil-bfa-go/internal/chat/domain"
	maindomain "github.com/boddenberg/banco-agil-bfa-go/internal/domain"
	"github.com/boddenberg/banco-agil-bfa-go/internal/infra/resilience"
)

var fastRetry = resilience.Config{MaxRetries: 2, InitialBackoff: time.Millisecond}

func newAgentServer(t *testing.T, status int, answer string) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Path != "/v1/chat" || r.Method != http.MethodPost {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		var req domain.ChatAgentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		_ = json.NewEncoder(w).Encode(domain.ChatAgentResponse{Answer: answer, TokensUsed: 42})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newAgentClient(srv *httptest.Server) *ChatAgentClient {
	return NewChatAgentClient(srv.Client(), srv.URL+"/",
		resilience.NewCircuitBreaker("chat-agent-test", zap.NewNop()), fastRetry)
}

func TestChatAgentClient_ClassifyIntent(t *testing.T) {
	srv, _ := newAgentServer(t, http.StatusOK, "exchange_rate")

	got, err := newAgentClient(srv).ClassifyIntent(context.Background(), "quanto está o dólar?")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != domain.IntentExchangeRate {
		t.Errorf("expected exchange_rate, got %s", got)
	}
}

func TestChatAgentClient_Generate(t *testing.T) {
	srv, _ := newAgentServer(t, http.StatusOK, "  Claro! Aqui está.  ")

	got, err := newAgentClient(srv).Generate(context.Background(), "texto")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != "Claro! Aqui está." {
		t.Errorf("unexpected %q", got)
	}
}

func TestChatAgentClient_ServerErrorRetries(t *testing.T) {
	srv, calls := newAgentServer(t, http.StatusBadGateway, "")

	_, err := newAgentClient(srv).SendChat(context.Background(), &domain.ChatAgentRequest{Query: "oi"})
	var ext *maindomain.ErrExternalService
	if !errors.As(err, &ext) {
		t.Fatalf("expected ErrExternalService, got %v", err)
	}
	if got := atomic.LoadInt32(calls); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestChatAgentClient_ClientErrorNotRetried(t *testing.T) {
	srv, calls := newAgentServer(t, http.StatusBadRequest, "")

	if _, err := newAgentClient(srv).SendChat(context.Background(), &domain.ChatAgentRequest{Query: "oi"}); err == nil {
		t.Fatal("expected error")
	}
	if got := atomic.LoadInt32(calls); got != 1 {
		t.Errorf("expected 1 attempt, got %d", got)
	}
}
