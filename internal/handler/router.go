package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/n8n-chat/backend/internal/config"
	"github.com/zhouzirui/n8n-chat/backend/internal/handler/chat"
	"github.com/zhouzirui/n8n-chat/backend/internal/handler/stream"
	"github.com/zhouzirui/n8n-chat/backend/internal/handler/web"
	middlewarePkg "github.com/zhouzirui/n8n-chat/backend/internal/middleware"
	chatService "github.com/zhouzirui/n8n-chat/backend/internal/service/chat"
	"github.com/zhouzirui/n8n-chat/backend/pkg/utils"
)

// Options 路由的可选参数
type Options struct {
	// Heartbeat 是 SSE 心跳间隔，零值使用默认值
	Heartbeat time.Duration
}

// NewRouter wires HTTP routes to the relay service.
func NewRouter(cfg *config.Config, chatSvc *chatService.Service, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(cfg.Server.AllowedOrigins))

	chatHandler := chat.New(chatSvc)
	streamHandler := stream.New(chatSvc, opts.Heartbeat)
	limiter := middlewarePkg.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst)

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", handleHealth)

		api.Group(func(limited chi.Router) {
			limited.Use(limiter.Handler)

			// Register chat routes
			chatHandler.RegisterRoutes(limited)

			// Server-Sent Events variant of the send path
			streamHandler.RegisterRoutes(limited)
		})
	})

	web.New(cfg.UI).RegisterRoutes(r)

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
