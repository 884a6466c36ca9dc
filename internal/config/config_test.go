package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_FILE", "PORT", "ALLOWED_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
		"N8N_BASE_URL", "N8N_WEBHOOK_PATH", "N8N_AUTH_TOKEN", "N8N_TIMEOUT",
		"CHAT_UI_MODE", "PUBLIC_N8N_BASE_URL", "PUBLIC_N8N_WEBHOOK_PATH", "CHAT_UI_TITLE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Fatalf("unexpected addr: %s", cfg.Server.Addr)
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "*" {
		t.Fatalf("unexpected origins: %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Server.RateLimit != 0 || cfg.Server.RateBurst != 5 {
		t.Fatalf("unexpected rate limit: %v/%d", cfg.Server.RateLimit, cfg.Server.RateBurst)
	}
	if cfg.Webhook.Enabled() {
		t.Fatal("expected webhook disabled without N8N_BASE_URL")
	}
	if cfg.Webhook.Timeout != 0 {
		t.Fatalf("expected no timeout by default, got %s", cfg.Webhook.Timeout)
	}
	if cfg.UI.Mode != UIModeProxy {
		t.Fatalf("unexpected ui mode: %s", cfg.UI.Mode)
	}
	if cfg.UI.Title != "n8n Chat" {
		t.Fatalf("unexpected title: %s", cfg.UI.Title)
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "127.0.0.1:9090")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("RATE_LIMIT_BURST", "10")
	t.Setenv("N8N_BASE_URL", "https://n8n.example")
	t.Setenv("N8N_WEBHOOK_PATH", "/webhook/chat")
	t.Setenv("N8N_AUTH_TOKEN", "secret")
	t.Setenv("N8N_TIMEOUT", "15")
	t.Setenv("CHAT_UI_MODE", "DIRECT")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Server.Addr != "127.0.0.1:9090" {
		t.Fatalf("unexpected addr: %s", cfg.Server.Addr)
	}
	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins: %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Server.RateLimit != 2.5 || cfg.Server.RateBurst != 10 {
		t.Fatalf("unexpected rate limit: %v/%d", cfg.Server.RateLimit, cfg.Server.RateBurst)
	}
	if cfg.Webhook.BaseURL != "https://n8n.example" || cfg.Webhook.Path != "/webhook/chat" {
		t.Fatalf("unexpected webhook: %+v", cfg.Webhook)
	}
	if cfg.Webhook.AuthToken != "secret" {
		t.Fatalf("unexpected auth token: %q", cfg.Webhook.AuthToken)
	}
	if cfg.Webhook.Timeout != 15*time.Second {
		t.Fatalf("unexpected timeout: %s", cfg.Webhook.Timeout)
	}
	if cfg.UI.Mode != UIModeDirect {
		t.Fatalf("unexpected ui mode: %s", cfg.UI.Mode)
	}
	// 未配置 PUBLIC_* 时沿用服务端地址
	if cfg.UI.PublicWebhookURL() != "https://n8n.example/webhook/chat" {
		t.Fatalf("unexpected public webhook url: %s", cfg.UI.PublicWebhookURL())
	}
}

func TestLoadFileWithEnvOverride(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "chat.yaml")
	content := `
server:
  port: "7070"
  allowed_origins: ["https://ui.example"]
webhook:
  base_url: https://file.example
  path: /webhook/file
  timeout: 1m
ui:
  mode: proxy
  public_base_url: https://public.example
  public_path: /webhook/public
  title: Support
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("N8N_WEBHOOK_PATH", "/webhook/env")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Server.Addr != ":7070" {
		t.Fatalf("unexpected addr: %s", cfg.Server.Addr)
	}
	if cfg.Server.AllowedOrigins[0] != "https://ui.example" {
		t.Fatalf("unexpected origins: %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Webhook.BaseURL != "https://file.example" {
		t.Fatalf("unexpected base url: %s", cfg.Webhook.BaseURL)
	}
	if cfg.Webhook.Path != "/webhook/env" {
		t.Fatalf("expected env override for path, got %s", cfg.Webhook.Path)
	}
	if cfg.Webhook.Timeout != time.Minute {
		t.Fatalf("unexpected timeout: %s", cfg.Webhook.Timeout)
	}
	if cfg.UI.PublicWebhookURL() != "https://public.example/webhook/public" {
		t.Fatalf("unexpected public webhook url: %s", cfg.UI.PublicWebhookURL())
	}
	if cfg.UI.Title != "Support" {
		t.Fatalf("unexpected title: %s", cfg.UI.Title)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"PORT":           "80 80",
		"RATE_LIMIT_RPS": "fast",
		"N8N_TIMEOUT":    "soon",
		"CHAT_UI_MODE":   "embedded",
	}

	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", key, value)
			}
		})
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
