package stream

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/n8n-chat/backend/internal/model/chat"
	chatService "github.com/zhouzirui/n8n-chat/backend/internal/service/chat"
	"github.com/zhouzirui/n8n-chat/backend/pkg/utils"
)

// DefaultHeartbeat is the interval between heartbeat events while a reply is pending.
const DefaultHeartbeat = 8 * time.Second

// Sender relays a message with a session id.
type Sender interface {
	Send(ctx context.Context, message, sessionID string) (*chatService.Result, error)
	NewSessionID() string
}

// Handler streams relay progress via Server-Sent Events
type Handler struct {
	relay     Sender
	heartbeat time.Duration
}

// New creates a new stream handler. A non-positive heartbeat selects DefaultHeartbeat.
func New(relay Sender, heartbeat time.Duration) *Handler {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	return &Handler{relay: relay, heartbeat: heartbeat}
}

// RegisterRoutes 注册流式路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/chat/stream", h.handleStream)
}

// StartEvent opens a stream.
type StartEvent struct {
	SessionID string `json:"sessionId"`
}

// HeartbeatEvent signals the upstream call is still pending.
type HeartbeatEvent struct {
	Message string `json:"message"`
	Time    string `json:"time"`
}

// ReplyEvent carries the normalized webhook answer.
type ReplyEvent struct {
	Status    int          `json:"status"`
	SessionID string       `json:"sessionId"`
	Payload   chat.Payload `json:"payload"`
}

// ErrorEvent reports a failed relay.
type ErrorEvent struct {
	Status int    `json:"status"`
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

type outcome struct {
	res *chatService.Result
	err error
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	message := r.URL.Query().Get("message")
	sessionID := r.URL.Query().Get("sessionId")

	// 校验失败时直接返回 JSON 400，不建立事件流
	if strings.TrimSpace(message) == "" {
		utils.RespondError(w, http.StatusBadRequest, chatService.ErrMessageRequired.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	// 未携带 sessionId 时在此生成，使 start 事件即可告知客户端
	if sessionID == "" {
		sessionID = h.relay.NewSessionID()
	}

	utils.SetupSSEHeaders(w)
	ctx := r.Context()

	done := make(chan outcome, 1)
	go func() {
		res, err := h.relay.Send(ctx, message, sessionID)
		done <- outcome{res: res, err: err}
	}()

	utils.SendSSEEvent(w, flusher, "start", StartEvent{SessionID: sessionID})

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[sse] client went away before reply (session=%s)", sessionID)
			return
		case t := <-ticker.C:
			utils.SendSSEEvent(w, flusher, "heartbeat", HeartbeatEvent{
				Message: "awaiting n8n response",
				Time:    t.UTC().Format(time.RFC3339),
			})
		case out := <-done:
			h.finish(w, flusher, out)
			return
		}
	}
}

func (h *Handler) finish(w http.ResponseWriter, flusher http.Flusher, out outcome) {
	if out.err != nil {
		if errors.Is(out.err, chatService.ErrMessageRequired) {
			utils.SendSSEEvent(w, flusher, "error", ErrorEvent{Status: http.StatusBadRequest, Error: out.err.Error()})
		} else {
			log.Printf("[sse] relay failed: %v", out.err)
			utils.SendSSEEvent(w, flusher, "error", ErrorEvent{
				Status: http.StatusBadGateway,
				Error:  chatService.GatewayErrorMessage,
				Detail: out.err.Error(),
			})
		}
	} else {
		utils.SendSSEEvent(w, flusher, "reply", ReplyEvent{
			Status:    out.res.Status,
			SessionID: out.res.SessionID,
			Payload:   out.res.Payload,
		})
	}
	utils.SendSSEEvent(w, flusher, "end", map[string]bool{"finished": true})
}
