package chat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/n8n-chat/backend/internal/model/chat"
	chatservice "github.com/zhouzirui/n8n-chat/backend/internal/service/chat"
	"github.com/zhouzirui/n8n-chat/backend/internal/service/reply"
)

// gatedRelay 在收到 "slow" 时等待放行，用于验证回复按完成顺序返回
type gatedRelay struct {
	release chan struct{}
}

func (g *gatedRelay) Ask(ctx context.Context, message string) (*chatservice.Result, error) {
	return g.Send(ctx, message, "")
}

func (g *gatedRelay) Send(ctx context.Context, message, sessionID string) (*chatservice.Result, error) {
	if strings.TrimSpace(message) == "" {
		return nil, chatservice.ErrMessageRequired
	}
	if message == "slow" {
		select {
		case <-g.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return &chatservice.Result{
		Status:    http.StatusOK,
		Payload:   reply.Normalize(`{"reply":"` + message + `"}`),
		SessionID: sessionID,
	}, nil
}

type inboundFrame struct {
	Type      string         `json:"type"`
	Status    int            `json:"status"`
	SessionID string         `json:"sessionId"`
	Payload   map[string]any `json:"payload"`
	Error     string         `json:"error"`
}

func dialChat(t *testing.T, relay Relay) *websocket.Conn {
	t.Helper()
	r := chi.NewRouter()
	New(relay).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) inboundFrame {
	t.Helper()
	var frame inboundFrame
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return frame
}

func TestWebSocketRepliesInCompletionOrder(t *testing.T) {
	relay := &gatedRelay{release: make(chan struct{})}
	conn := dialChat(t, relay)

	if err := conn.WriteJSON(chat.SendRequest{Message: "slow", SessionID: "s1"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := conn.WriteJSON(chat.SendRequest{Message: "fast", SessionID: "s1"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	first := readFrame(t, conn)
	if first.Type != "reply" || first.Payload["reply"] != "fast" {
		t.Fatalf("expected fast reply first, got %+v", first)
	}

	close(relay.release)
	second := readFrame(t, conn)
	if second.Type != "reply" || second.Payload["reply"] != "slow" || second.SessionID != "s1" {
		t.Fatalf("expected slow reply second, got %+v", second)
	}
}

func TestWebSocketRejectsEmptyMessage(t *testing.T) {
	conn := dialChat(t, &gatedRelay{release: make(chan struct{})})

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"message":"  "}`)); err != nil {
		t.Fatalf("write: %v", err)
	}

	frame := readFrame(t, conn)
	if frame.Type != "error" || frame.Status != http.StatusBadRequest || frame.Error != "message is required" {
		t.Fatalf("unexpected frame: %+v", frame)
	}
}
