package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/boddenberg/banco-agil-bfa-go/internal/chat/domain"
	"github.com/boddenberg/banco-agil-bfa-go/internal/chat/handler"
)

// --- Mocks ---

type fakeConversation struct {
	mu       sync.Mutex
	requests []domain.ChatRequest
	restarts []string
	err      error
}

func (f *fakeConversation) InitSession(_ context.Context) (*domain.ChatResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.ChatResponse{SessionID: "s-new", Message: "Qual é o seu CPF?", State: domain.StateCollectingCPF}, nil
}

func (f *fakeConversation) ProcessMessage(_ context.Context, req *domain.ChatRequest) (*domain.ChatResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.requests = append(f.requests, *req)
	id := req.SessionID
	if id == "" {
		id = "s-new"
	}
	return &domain.ChatResponse{SessionID: id, Message: "eco: " + req.Message, State: domain.StateCollectingBirthdate}, nil
}

func (f *fakeConversation) Restart(_ context.Context, sessionID string) (*domain.ChatResponse, error) {
	f.restarts = append(f.restarts, sessionID)
	return &domain.ChatResponse{SessionID: sessionID, State: domain.StateCollectingCPF}, nil
}

func newRouter(conv handler.Conversation) http.Handler {
	r := chi.NewRouter()
	r.Route("/v1", func(r chi.Router) {
		handler.Routes(r, conv, zap.NewNop())
	})
	return r
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) domain.ChatResponse {
	t.Helper()
	var resp domain.ChatResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

// --- HTTP ---

func TestSessionHandler(t *testing.T) {
	router := newRouter(&fakeConversation{})

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/session", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if resp := decode(t, rec); resp.SessionID != "s-new" || resp.State != domain.StateCollectingCPF {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestChatHandler(t *testing.T) {
	conv := &fakeConversation{}
	router := newRouter(conv)

	body := `{"session_id": "s1", "message": "12345678901"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode(t, rec)
	if resp.SessionID != "s1" || resp.Message != "eco: 12345678901" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if len(conv.requests) != 1 {
		t.Errorf("expected 1 request, got %d", len(conv.requests))
	}
}

func TestChatHandler_BadRequests(t *testing.T) {
	cases := map[string]string{
		"invalid json":  `{"message":`,
		"empty message": `{"session_id": "s1", "message": ""}`,
		"too long":      `{"message": "` + strings.Repeat("a", 2001) + `"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			conv := &fakeConversation{}
			req := httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(body))
			rec := httptest.NewRecorder()
			newRouter(conv).ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
			if len(conv.requests) != 0 {
				t.Errorf("conversation should not be called")
			}
		})
	}
}

func TestChatHandler_ServiceError(t *testing.T) {
	router := newRouter(&fakeConversation{err: errors.New("boom")})

	req := httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(`{"message": "oi"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "boom") {
		t.Errorf("internal error leaked: %s", rec.Body.String())
	}
}

func TestRestartHandler(t *testing.T) {
	conv := &fakeConversation{}
	router := newRouter(conv)

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/s9/restart", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(conv.restarts) != 1 || conv.restarts[0] != "s9" {
		t.Errorf("unexpected restarts: %v", conv.restarts)
	}
}

// --- WebSocket ---

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/chat/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebSocket_GreetsAndKeepsSession(t *testing.T) {
	conv := &fakeConversation{}
	srv := httptest.NewServer(newRouter(conv))
	defer srv.Close()

	conn := dial(t, srv, "")

	var greeting domain.ChatResponse
	if err := conn.ReadJSON(&greeting); err != nil {
		t.Fatalf("read greeting: %v", err)
	}
	if greeting.SessionID != "s-new" {
		t.Fatalf("expected greeting for s-new, got %+v", greeting)
	}

	if err := conn.WriteJSON(domain.ChatRequest{Message: "12345678901"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var resp domain.ChatResponse
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read: %v", err)
	}
	if resp.SessionID != "s-new" || resp.Message != "eco: 12345678901" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestWebSocket_ExistingSessionAndMismatch(t *testing.T) {
	conv := &fakeConversation{}
	srv := httptest.NewServer(newRouter(conv))
	defer srv.Close()

	conn := dial(t, srv, "?session_id=s1")

	if err := conn.WriteJSON(domain.ChatRequest{SessionID: "other", Message: "oi"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var frame map[string]any
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read: %v", err)
	}
	if frame["error"] != "session mismatch" {
		t.Errorf("expected mismatch error, got %v", frame)
	}

	if err := conn.WriteJSON(domain.ChatRequest{SessionID: "s1", Message: "oi"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var resp domain.ChatResponse
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read: %v", err)
	}
	if resp.SessionID != "s1" {
		t.Errorf("expected s1, got %+v", resp)
	}

	conv.mu.Lock()
	defer conv.mu.Unlock()
	if len(conv.requests) != 1 {
		t.Errorf("expected 1 processed message, got %d", len(conv.requests))
	}
}
