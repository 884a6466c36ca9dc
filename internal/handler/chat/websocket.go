package chat

import (
	"bytes"
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zhouzirui/n8n-chat/backend/internal/model/chat"
)

const wsWriteTimeout = 10 * time.Second

// wsFrame WebSocket 下行消息
type wsFrame struct {
	Type      string        `json:"type"`
	Status    int           `json:"status"`
	SessionID string        `json:"sessionId,omitempty"`
	Payload   *chat.Payload `json:"payload,omitempty"`
	Error     string        `json:"error,omitempty"`
	Detail    string        `json:"detail,omitempty"`
}

// handleWebSocket 处理 WebSocket 连接。每条上行文本消息独立转发，回复按完成顺序写回。
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	var wg sync.WaitGroup
	defer wg.Wait()
	defer cancel()

	var writeMu sync.Mutex
	write := func(frame wsFrame) {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(frame); err != nil {
			log.Printf("[ws] write failed: %v", err)
		}
	}

	log.Printf("[ws] connection opened from %s", r.RemoteAddr)
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws] read failed: %v", err)
			}
			log.Printf("[ws] connection closed from %s", r.RemoteAddr)
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		req := decodeSendRequest(bytes.NewReader(data))
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := h.relay.Send(ctx, req.Message, req.SessionID)
			if err != nil {
				status, body := errorResponse(err)
				write(wsFrame{Type: "error", Status: status, SessionID: req.SessionID, Error: body.Error, Detail: body.Detail})
				return
			}
			write(wsFrame{Type: "reply", Status: res.Status, SessionID: res.SessionID, Payload: &res.Payload})
		}()
	}
}
