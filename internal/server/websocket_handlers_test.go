package server

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockWebSocketConn records written messages.
type mockWebSocketConn struct {
	sent []WebSocketResponse
}

func (m *mockWebSocketConn) WriteMessage(_ int, data []byte) error {
	var resp WebSocketResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return err
	}
	m.sent = append(m.sent, resp)
	return nil
}

func TestHandleWebSocketMessage(t *testing.T) {
	s := newTestServer(t, Config{}, nil)

	t.Run("recognize", func(t *testing.T) {
		conn := &mockWebSocketConn{}
		msg := `{"type": "recognize", "request_id": "r1", "document": ` + pageJSON + `}`
		s.handleWebSocketMessage(context.Background(), conn, []byte(msg))

		require.Len(t, conn.sent, 2)
		assert.Equal(t, "processing", conn.sent[0].Status)
		assert.Equal(t, "completed", conn.sent[1].Status)
		assert.Equal(t, "r1", conn.sent[1].RequestID)
		require.NotNil(t, conn.sent[1].Result)
		require.Len(t, conn.sent[1].Result.Holdings, 1)
		assert.Equal(t, "7", conn.sent[1].Result.Holdings[0].AssetID)
	})

	t.Run("assigns request id", func(t *testing.T) {
		conn := &mockWebSocketConn{}
		s.handleWebSocketMessage(context.Background(), conn, []byte(`{"type": "recognize", "document": `+pageJSON+`}`))
		require.Len(t, conn.sent, 2)
		assert.NotEmpty(t, conn.sent[1].RequestID)
		assert.Equal(t, conn.sent[0].RequestID, conn.sent[1].RequestID)
	})

	tests := []struct {
		name      string
		msg       string
		errorType string
	}{
		{"malformed", `{`, "invalid_request"},
		{"unknown type", `{"type": "image"}`, "invalid_request"},
		{"missing document", `{"type": "recognize"}`, "invalid_request"},
		{"bad document", `{"type": "recognize", "document": {"pages": []}}`, "processing_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := &mockWebSocketConn{}
			s.handleWebSocketMessage(context.Background(), conn, []byte(tt.msg))
			require.NotEmpty(t, conn.sent)
			last := conn.sent[len(conn.sent)-1]
			assert.Equal(t, "error", last.Status)
			assert.Equal(t, tt.errorType, last.ErrorType)
		})
	}
}

func TestWebSocket_EndToEnd(t *testing.T) {
	s := newTestServer(t, Config{}, nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	defer func() { _ = conn.Close() }()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"type": "recognize", "request_id": "ws-1", "document": `+pageJSON+`}`)))

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var statuses []string
	for len(statuses) < 2 {
		var msg WebSocketResponse
		require.NoError(t, conn.ReadJSON(&msg))
		statuses = append(statuses, msg.Status)
		if msg.Status == "completed" {
			require.NotNil(t, msg.Result)
			assert.Len(t, msg.Result.Holdings, 1)
		}
	}
	assert.Equal(t, []string{"processing", "completed"}, statuses)
}
