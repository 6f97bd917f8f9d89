package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// WebSocket upgrader with reasonable defaults.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketRequest is one recognize message. Document holds the same JSON
// accepted by POST /v1/recognize.
type WebSocketRequest struct {
	Type      string          `json:"type"` // "recognize"
	RequestID string          `json:"request_id,omitempty"`
	Document  json.RawMessage `json:"document"`
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// WebSocketResponse is sent for every request: once with status
// "processing", then with "completed" or "error".
type WebSocketResponse struct {
	Type      string             `json:"type"`
	Status    string             `json:"status"` // "processing", "completed", "error"
	Result    *RecognizeResponse `json:"result,omitempty"`
	Error     string             `json:"error,omitempty"`
	ErrorType string             `json:"error_type,omitempty"`
	RequestID string             `json:"request_id,omitempty"`
}

const wsReadTimeout = 60 * time.Second

// recognizeWebSocketHandler handles WebSocket connections for streamed pages.
func (s *Server) recognizeWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	s.logger.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)
	s.handleWebSocketConnection(r.Context(), conn)
}

// handleWebSocketConnection processes messages until the client disconnects.
func (s *Server) handleWebSocketConnection(ctx context.Context, conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsReadTimeout / 2)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Error("WebSocket error", "error", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		websocketMessagesTotal.WithLabelValues("received").Inc()

		if messageType == websocket.TextMessage {
			s.handleWebSocketMessage(ctx, conn, data)
		}
	}
}

// handleWebSocketMessage processes a single request message.
func (s *Server) handleWebSocketMessage(ctx context.Context, conn WebSocketConnWriter, data []byte) {
	var req WebSocketRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendWebSocketError(conn, "", "invalid_request", fmt.Sprintf("Failed to parse request: %v", err))
		return
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	if req.Type != "recognize" {
		s.sendWebSocketError(conn, req.RequestID, "invalid_request", "Unsupported request type: "+req.Type)
		return
	}
	if len(req.Document) == 0 {
		s.sendWebSocketError(conn, req.RequestID, "invalid_request", "No document provided")
		return
	}

	s.sendWebSocketResponse(conn, WebSocketResponse{
		Type:      "recognize_response",
		Status:    "processing",
		RequestID: req.RequestID,
	})

	result, err := s.recognizeRaw(ctx, req.Document, "websocket")
	if err != nil {
		s.sendWebSocketError(conn, req.RequestID, "processing_error", err.Error())
		return
	}
	result.RequestID = req.RequestID

	s.sendWebSocketResponse(conn, WebSocketResponse{
		Type:      "recognize_response",
		Status:    "completed",
		Result:    &result,
		RequestID: req.RequestID,
	})
}

// sendWebSocketResponse sends a response message over WebSocket.
func (s *Server) sendWebSocketResponse(conn WebSocketConnWriter, response WebSocketResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		s.logger.Error("Failed to marshal WebSocket response", "error", err)
		return
	}

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.logger.Error("Failed to send WebSocket message", "error", err)
		return
	}

	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

// sendWebSocketError sends an error message over WebSocket.
func (s *Server) sendWebSocketError(conn WebSocketConnWriter, requestID, errorType, message string) {
	s.sendWebSocketResponse(conn, WebSocketResponse{
		Type:      "error",
		Status:    "error",
		Error:     message,
		ErrorType: errorType,
		RequestID: requestID,
	})
}
