package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/boddenberg/banco-agil-bfa-go/internal/chat/domain"
)

// ============================================================
// WebSocketHandler — GET /v1/chat/ws
// ============================================================
//
// Cada frame de texto {"session_id": "...", "message": "..."} gera um frame
// de resposta com o mesmo formato do POST /v1/chat. Sem ?session_id= na URL
// a conexão abre uma sessão nova e já envia a saudação. O session_id fica
// preso à conexão: frames sem session_id usam o da conexão.

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 54 * time.Second
	wsWriteTimeout = 10 * time.Second
)

// wsError é o frame enviado quando uma mensagem não pôde ser processada.
type wsError struct {
	Error string `json:"error"`
}

// WebSocketHandler atende o chat por WebSocket.
type WebSocketHandler struct {
	conv     Conversation
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewWebSocketHandler cria o handler WebSocket.
func NewWebSocketHandler(conv Conversation, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		conv:   conv,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	go h.pingLoop(ctx, conn)

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		resp, err := h.conv.InitSession(ctx)
		if err != nil {
			h.logger.Error("websocket session init failed", zap.Error(err))
			h.send(conn, wsError{Error: "could not start session"})
			return
		}
		sessionID = resp.SessionID
		h.send(conn, resp)
	}

	h.logger.Info("websocket connected", zap.String("session_id", sessionID))

	for {
		var req domain.ChatRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read error", zap.String("session_id", sessionID), zap.Error(err))
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		if req.SessionID == "" {
			req.SessionID = sessionID
		}
		if req.SessionID != sessionID {
			h.send(conn, wsError{Error: "session mismatch"})
			continue
		}
		if err := validateRequest(&req); err != nil {
			h.send(conn, wsError{Error: err.Error()})
			continue
		}

		resp, err := h.conv.ProcessMessage(ctx, &req)
		if err != nil {
			h.logger.Error("websocket message failed", zap.String("session_id", sessionID), zap.Error(err))
			h.send(conn, wsError{Error: "internal server error"})
			continue
		}
		h.send(conn, resp)
	}
}

func (h *WebSocketHandler) send(conn *websocket.Conn, v any) {
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(v); err != nil {
		h.logger.Debug("websocket write failed", zap.Error(err))
	}
}

// pingLoop usa WriteControl, que pode rodar junto com o WriteJSON do loop principal.
func (h *WebSocketHandler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		}
	}
}
