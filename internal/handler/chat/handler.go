package chat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/n8n-chat/backend/internal/model/chat"
	chatService "github.com/zhouzirui/n8n-chat/backend/internal/service/chat"
	"github.com/zhouzirui/n8n-chat/backend/pkg/utils"
)

const maxBodyBytes = 1 << 20

// Relay 转发消息到 webhook 的服务接口
type Relay interface {
	Ask(ctx context.Context, message string) (*chatService.Result, error)
	Send(ctx context.Context, message, sessionID string) (*chatService.Result, error)
}

// Handler 聊天代理的HTTP处理器
type Handler struct {
	relay    Relay
	upgrader websocket.Upgrader
}

// New 创建聊天处理器
func New(relay Relay) *Handler {
	return &Handler{
		relay: relay,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/chat", h.handleRead)
	r.Post("/chat", h.handleSend)
	r.Get("/chat/ws", h.handleWebSocket)
}

// handleRead 处理 GET /chat?message=...，不携带 sessionId
func (h *Handler) handleRead(w http.ResponseWriter, r *http.Request) {
	message := r.URL.Query().Get("message")

	res, err := h.relay.Ask(r.Context(), message)
	h.respond(w, res, err)
}

// handleSend 处理 POST /chat，请求体为 {message, sessionId?}
func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	req := decodeSendRequest(http.MaxBytesReader(w, r.Body, maxBodyBytes))

	res, err := h.relay.Send(r.Context(), req.Message, req.SessionID)
	h.respond(w, res, err)
}

func (h *Handler) respond(w http.ResponseWriter, res *chatService.Result, err error) {
	if err != nil {
		status, body := errorResponse(err)
		utils.RespondJSON(w, status, body)
		return
	}

	if res.SessionID != "" {
		w.Header().Set("X-Session-Id", res.SessionID)
	}
	utils.RespondJSON(w, res.Status, res.Payload)
}

// errorResponse 将服务错误映射为状态码与响应体
func errorResponse(err error) (int, utils.ErrorResponse) {
	if errors.Is(err, chatService.ErrMessageRequired) {
		return http.StatusBadRequest, utils.ErrorResponse{Error: chatService.ErrMessageRequired.Error()}
	}

	log.Printf("[chat] relay failed: %v", err)
	return http.StatusBadGateway, utils.ErrorResponse{Error: chatService.GatewayErrorMessage, Detail: err.Error()}
}

// decodeSendRequest 解析请求体；无法解析时视为空对象，由后续校验返回 400
func decodeSendRequest(body io.Reader) chat.SendRequest {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return chat.SendRequest{}
	}

	return chat.SendRequest{
		Message:   scalarText(raw["message"]),
		SessionID: scalarText(raw["sessionId"]),
	}
}

// scalarText 将字符串、数字或布尔值转为文本，数字按十进制规范化，其他类型视为缺失
func scalarText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}

	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}
