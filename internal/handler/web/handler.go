package web

import (
	"bytes"
	"embed"
	"html/template"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/n8n-chat/backend/internal/config"
	"github.com/zhouzirui/n8n-chat/backend/internal/service/reply"
	"github.com/zhouzirui/n8n-chat/backend/pkg/utils"
)

//go:embed templates/index.html
var templates embed.FS

var indexTemplate = template.Must(template.ParseFS(templates, "templates/index.html"))

// PageData 渲染聊天页面所需的数据
type PageData struct {
	Title       string
	Mode        string
	ProxyURL    string
	WebhookURL  string
	DisplayKeys []string
	EmptyBody   string
}

// Handler 提供浏览器聊天组件
type Handler struct {
	page PageData
}

// New 根据界面配置创建页面处理器
func New(cfg config.UIConfig) *Handler {
	return &Handler{
		page: PageData{
			Title:       cfg.Title,
			Mode:        cfg.Mode,
			ProxyURL:    "/api/chat",
			WebhookURL:  cfg.PublicWebhookURL(),
			DisplayKeys: reply.DisplayKeys,
			EmptyBody:   reply.EmptyBodyText,
		},
	}
}

// RegisterRoutes 注册页面路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handleIndex)
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, h.page); err != nil {
		log.Printf("[web] render index failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to render page")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Printf("[web] write index failed: %v", err)
	}
}
