package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/zhouzirui/n8n-chat/backend/internal/config"
	"github.com/zhouzirui/n8n-chat/backend/internal/handler"
	"github.com/zhouzirui/n8n-chat/backend/internal/service/chat"
	"github.com/zhouzirui/n8n-chat/backend/internal/service/webhook"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	if !cfg.Webhook.Enabled() {
		log.Fatal("N8N_BASE_URL 未配置，无法转发聊天消息")
	}

	client, err := webhook.NewClient(webhook.Config{
		BaseURL:   cfg.Webhook.BaseURL,
		Path:      cfg.Webhook.Path,
		AuthToken: cfg.Webhook.AuthToken,
		Timeout:   cfg.Webhook.Timeout,
	}, nil)
	if err != nil {
		log.Fatalf("failed to create webhook client: %v", err)
	}
	log.Printf("relaying chat messages to %s", client.Endpoint())

	if cfg.UI.Mode == config.UIModeDirect {
		log.Printf("chat widget calls the webhook directly at %s", cfg.UI.PublicWebhookURL())
	}

	chatService := chat.NewService(client)
	router := handler.NewRouter(cfg, chatService, handler.Options{})

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("n8n chat proxy listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
