package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// UI 模式
const (
	UIModeProxy  = "proxy"
	UIModeDirect = "direct"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server  ServerConfig
	Webhook WebhookConfig
	UI      UIConfig
}

// Load 从 CONFIG_FILE 指向的 YAML 文件（可选）和环境变量加载配置，环境变量优先。
func Load() (*Config, error) {
	file, err := loadFile(strings.TrimSpace(os.Getenv("CONFIG_FILE")))
	if err != nil {
		return nil, err
	}

	server, err := loadServerConfig(file.Server)
	if err != nil {
		return nil, err
	}

	webhook, err := loadWebhookConfig(file.Webhook)
	if err != nil {
		return nil, err
	}

	ui, err := loadUIConfig(file.UI, webhook)
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, Webhook: webhook, UI: ui}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
	RateLimit      float64
	RateBurst      int
}

// WebhookConfig 描述 n8n webhook 的服务端访问配置。
type WebhookConfig struct {
	BaseURL   string
	Path      string
	AuthToken string
	Timeout   time.Duration
}

// Enabled 表示是否配置了 webhook 地址。
func (c WebhookConfig) Enabled() bool {
	return c.BaseURL != ""
}

// UIConfig 描述浏览器聊天界面的配置。
type UIConfig struct {
	Mode string
	// PublicBaseURL/PublicPath 是暴露给浏览器的 webhook 地址副本，仅 direct 模式使用。
	PublicBaseURL string
	PublicPath    string
	Title         string
}

// PublicWebhookURL 返回浏览器直连时使用的 webhook 地址。
func (c UIConfig) PublicWebhookURL() string {
	return c.PublicBaseURL + c.PublicPath
}

type fileConfig struct {
	Server  serverFile  `yaml:"server"`
	Webhook webhookFile `yaml:"webhook"`
	UI      uiFile      `yaml:"ui"`
}

type serverFile struct {
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	RateLimit      float64  `yaml:"rate_limit_rps"`
	RateBurst      int      `yaml:"rate_limit_burst"`
}

type webhookFile struct {
	BaseURL   string `yaml:"base_url"`
	Path      string `yaml:"path"`
	AuthToken string `yaml:"auth_token"`
	Timeout   string `yaml:"timeout"`
}

type uiFile struct {
	Mode          string `yaml:"mode"`
	PublicBaseURL string `yaml:"public_base_url"`
	PublicPath    string `yaml:"public_path"`
	Title         string `yaml:"title"`
}

func loadFile(path string) (fileConfig, error) {
	var fc fileConfig
	if path == "" {
		return fc, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fc, fmt.Errorf("config file %s not found", path)
		}
		return fc, fmt.Errorf("read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(b, &fc); err != nil {
		return fc, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return fc, nil
}

// loadServerConfig 解析服务器监听地址、CORS 与限流配置。
func loadServerConfig(fc serverFile) (ServerConfig, error) {
	port := getEnvOrDefault("PORT", strings.TrimSpace(fc.Port))
	if port == "" {
		port = "8080"
	}

	var addr string
	switch {
	case strings.Contains(port, ":"):
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		addr = port
	case strings.Contains(port, " "):
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	default:
		addr = ":" + port
	}

	origins := fc.AllowedOrigins
	if raw := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); raw != "" {
		origins = splitList(raw)
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	rateLimit := fc.RateLimit
	if override, err := parseOptionalFloatEnv("RATE_LIMIT_RPS"); err != nil {
		return ServerConfig{}, err
	} else if override != nil {
		rateLimit = *override
	}
	if rateLimit < 0 {
		return ServerConfig{}, fmt.Errorf("invalid RATE_LIMIT_RPS value %v: must not be negative", rateLimit)
	}

	burst := fc.RateBurst
	if override, err := parseOptionalIntEnv("RATE_LIMIT_BURST"); err != nil {
		return ServerConfig{}, err
	} else if override != nil {
		burst = *override
	}
	if burst < 1 {
		burst = 5
	}

	return ServerConfig{
		Addr:           addr,
		AllowedOrigins: origins,
		RateLimit:      rateLimit,
		RateBurst:      burst,
	}, nil
}

func loadWebhookConfig(fc webhookFile) (WebhookConfig, error) {
	timeout, err := parseDuration("N8N_TIMEOUT", getEnvOrDefault("N8N_TIMEOUT", strings.TrimSpace(fc.Timeout)))
	if err != nil {
		return WebhookConfig{}, err
	}

	return WebhookConfig{
		BaseURL:   getEnvOrDefault("N8N_BASE_URL", strings.TrimSpace(fc.BaseURL)),
		Path:      getEnvOrDefault("N8N_WEBHOOK_PATH", strings.TrimSpace(fc.Path)),
		AuthToken: getEnvOrDefault("N8N_AUTH_TOKEN", strings.TrimSpace(fc.AuthToken)),
		Timeout:   timeout,
	}, nil
}

func loadUIConfig(fc uiFile, webhook WebhookConfig) (UIConfig, error) {
	mode := strings.ToLower(getEnvOrDefault("CHAT_UI_MODE", strings.TrimSpace(fc.Mode)))
	if mode == "" {
		mode = UIModeProxy
	}
	if mode != UIModeProxy && mode != UIModeDirect {
		return UIConfig{}, fmt.Errorf("invalid CHAT_UI_MODE value %q: expected %s or %s", mode, UIModeProxy, UIModeDirect)
	}

	// 未单独配置时沿用服务端 webhook 地址
	publicBase := getEnvOrDefault("PUBLIC_N8N_BASE_URL", strings.TrimSpace(fc.PublicBaseURL))
	publicPath := getEnvOrDefault("PUBLIC_N8N_WEBHOOK_PATH", strings.TrimSpace(fc.PublicPath))
	if publicBase == "" {
		publicBase = webhook.BaseURL
		if publicPath == "" {
			publicPath = webhook.Path
		}
	}

	title := getEnvOrDefault("CHAT_UI_TITLE", strings.TrimSpace(fc.Title))
	if title == "" {
		title = "n8n Chat"
	}

	return UIConfig{
		Mode:          mode,
		PublicBaseURL: publicBase,
		PublicPath:    publicPath,
		Title:         title,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// parseDuration 接受 Go duration（如 "30s"）或纯秒数，空值表示不设超时。
func parseDuration(key, raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}

	if secs, err := strconv.Atoi(raw); err == nil {
		if secs < 0 {
			return 0, fmt.Errorf("invalid %s value %q: must not be negative", key, raw)
		}
		return time.Duration(secs) * time.Second, nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s value %q: must not be negative", key, raw)
	}
	return d, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
