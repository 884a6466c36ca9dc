package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/zhouzirui/n8n-chat/backend/internal/chatui"
	"github.com/zhouzirui/n8n-chat/backend/internal/config"
	"github.com/zhouzirui/n8n-chat/backend/internal/model/chat"
	"github.com/zhouzirui/n8n-chat/backend/internal/service/ai"
	"github.com/zhouzirui/n8n-chat/backend/internal/service/webhook"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] 无法加载 .env，改用系统环境变量: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}

	mode := flag.String("mode", cfg.UI.Mode, "对话模式: proxy 通过代理服务, direct 直连 webhook")
	server := flag.String("server", defaultServerURL(cfg.Server.Addr), "proxy 模式下的代理服务地址")
	session := flag.String("session", "", "自定义 sessionID，留空则自动生成")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	replier, err := newReplier(ctx, cfg, *mode, *server)
	if err != nil {
		log.Fatalf("初始化失败: %v", err)
	}

	var printMu sync.Mutex
	conv := chatui.NewConversation(replier,
		chatui.WithSessionID(*session),
		chatui.OnAppend(func(m chat.Message) {
			if m.Sender != chat.SenderBot {
				return
			}
			printMu.Lock()
			defer printMu.Unlock()
			fmt.Printf("\rbot> %s\nyou> ", m.Text)
		}),
	)

	fmt.Printf("%s (%s mode, session %s)\n", cfg.UI.Title, *mode, conv.SessionID())
	fmt.Print("you> ")

	var wg sync.WaitGroup
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			fmt.Println()
			return
		case line, ok := <-lines:
			if !ok {
				// 输入结束后等待未完成的回复
				wg.Wait()
				fmt.Println()
				return
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				if !conv.Submit(ctx, line) {
					printMu.Lock()
					fmt.Print("you> ")
					printMu.Unlock()
				}
			}()
		}
	}
}

func newReplier(ctx context.Context, cfg *config.Config, mode, server string) (chatui.Replier, error) {
	switch mode {
	case config.UIModeProxy:
		return chatui.NewProxyReplier(server, nil), nil
	case config.UIModeDirect:
		client, err := webhook.NewClient(webhook.Config{
			BaseURL:   cfg.Webhook.BaseURL,
			Path:      cfg.Webhook.Path,
			AuthToken: cfg.Webhook.AuthToken,
			Timeout:   cfg.Webhook.Timeout,
		}, nil)
		if err != nil {
			return nil, fmt.Errorf("create webhook client: %w", err)
		}
		svc, err := ai.NewService(ctx, ai.NewWebhookModel(client))
		if err != nil {
			return nil, err
		}
		return chatui.NewModelReplier(svc), nil
	default:
		return nil, fmt.Errorf("unknown mode %q", mode)
	}
}

// defaultServerURL 由监听地址推导本机代理地址
func defaultServerURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}
