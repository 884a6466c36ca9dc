package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/zhouzirui/n8n-chat/backend/internal/config"
	"github.com/zhouzirui/n8n-chat/backend/internal/service/reply"
	"github.com/zhouzirui/n8n-chat/backend/internal/service/webhook"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] 无法加载 .env，改用系统环境变量: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}

	if !cfg.Webhook.Enabled() {
		log.Fatal("webhook 未配置，请先设置 N8N_BASE_URL")
	}

	message := flag.String("message", "", "发送给 webhook 的消息")
	session := flag.String("session", "", "自定义 sessionID，留空则自动生成，传 - 表示不携带")
	timeout := flag.Duration("timeout", 45*time.Second, "请求超时时间")

	flag.Parse()

	if *message == "" {
		flag.Usage()
		log.Fatal("请通过 -message 指定测试消息")
	}

	sessionID := *session
	switch sessionID {
	case "":
		sessionID = uuid.NewString()
	case "-":
		sessionID = ""
	}

	client, err := webhook.NewClient(webhook.Config{
		BaseURL:   cfg.Webhook.BaseURL,
		Path:      cfg.Webhook.Path,
		AuthToken: cfg.Webhook.AuthToken,
		Timeout:   cfg.Webhook.Timeout,
	}, nil)
	if err != nil {
		log.Fatalf("webhook 客户端创建失败: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	log.Printf("GET %s", client.BuildURL(*message, sessionID))
	start := time.Now()
	resp, err := client.FetchReply(ctx, *message, sessionID)
	if err != nil {
		log.Fatalf("请求失败: %v", err)
	}
	log.Printf("耗时 %s", time.Since(start).Round(time.Millisecond))

	fmt.Printf("status: %s\n", resp.Status)
	keys := make([]string, 0, len(resp.Header))
	for k := range resp.Header {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("header: %s: %v\n", k, resp.Header[k])
	}
	fmt.Printf("raw body: %s\n", resp.Body)

	payload := reply.Normalize(resp.Body)
	normalized, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		log.Fatalf("序列化失败: %v", err)
	}
	fmt.Printf("normalized:\n%s\n", normalized)
	fmt.Printf("display: %s\n", reply.DisplayText(payload))

	if !resp.OK() {
		os.Exit(1)
	}
}
