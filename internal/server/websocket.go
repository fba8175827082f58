package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lox/blackjackgym/internal/env"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 4096
)

// Message types exchanged over the WebSocket
const (
	MessageReset  = "reset"
	MessageStep   = "step"
	MessageRender = "render"
	MessageError  = "error"
)

// Request is a client message
type Request struct {
	Type   string      `json:"type"`
	Action *env.Action `json:"action,omitempty"`
}

// Response is a server message. Only the fields relevant to Type are set.
type Response struct {
	Type        string           `json:"type"`
	Observation *env.Observation `json:"observation,omitempty"`
	Info        *env.Info        `json:"info,omitempty"`
	Result      *env.StepResult  `json:"result,omitempty"`
	Text        string           `json:"text,omitempty"`
	Error       string           `json:"error,omitempty"`
	Code        int              `json:"code,omitempty"`
}

// handleWebSocket gives each connection a private environment that lives as
// long as the connection
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("failed to upgrade connection", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	e, err := s.newEnv()
	if err != nil {
		s.logger.Error("failed to create environment", "error", err)
		return
	}
	logger := s.logger.With("remote", r.RemoteAddr)
	logger.Debug("websocket connected")

	conn.SetReadLimit(maxMessageSize)
	for {
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("websocket read failed", "error", err)
			}
			return
		}

		resp := handleRequest(e, req)
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(resp); err != nil {
			logger.Warn("websocket write failed", "error", err)
			return
		}
	}
}

func handleRequest(e *env.Environment, req Request) Response {
	switch req.Type {
	case MessageReset:
		obs, info, err := e.Reset()
		if err != nil {
			return errorMessage(err)
		}
		return Response{Type: MessageReset, Observation: &obs, Info: &info}

	case MessageStep:
		if req.Action == nil {
			return Response{Type: MessageError, Error: "action is required", Code: http.StatusBadRequest}
		}
		res, err := e.Step(*req.Action)
		if err != nil {
			return errorMessage(err)
		}
		return Response{Type: MessageStep, Result: &res}

	case MessageRender:
		var b strings.Builder
		if err := e.RenderWithOptions(&b, env.RenderOptions{NoColor: true}); err != nil {
			return errorMessage(err)
		}
		return Response{Type: MessageRender, Text: b.String()}

	default:
		return Response{Type: MessageError, Error: "unknown message type: " + req.Type, Code: http.StatusBadRequest}
	}
}

func errorMessage(err error) Response {
	return Response{Type: MessageError, Error: err.Error(), Code: statusFor(err)}
}
