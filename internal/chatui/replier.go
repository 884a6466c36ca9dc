package chatui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/zhouzirui/n8n-chat/backend/internal/model/chat"
	"github.com/zhouzirui/n8n-chat/backend/internal/service/reply"
	"github.com/zhouzirui/n8n-chat/backend/internal/service/webhook"
)

// ProxyReplier sends messages to a running proxy endpoint.
type ProxyReplier struct {
	endpoint   string
	httpClient *http.Client
}

// NewProxyReplier targets the POST /api/chat route under serverURL.
func NewProxyReplier(serverURL string, httpClient *http.Client) *ProxyReplier {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &ProxyReplier{
		endpoint:   strings.TrimRight(serverURL, "/") + "/api/chat",
		httpClient: httpClient,
	}
}

// Reply posts {message, sessionId} and extracts the display text. Non-2xx
// answers become errors carrying the payload's "error" field when present.
func (p *ProxyReplier) Reply(ctx context.Context, sessionID, message string) (string, error) {
	body, err := json.Marshal(chat.SendRequest{Message: message, SessionID: sessionID})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	payload := reply.Normalize(string(raw))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", errors.New(errorDetail(payload, resp.StatusCode))
	}
	return reply.DisplayText(payload), nil
}

func errorDetail(p chat.Payload, status int) string {
	if raw, ok := p.Field("error"); ok {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
	}
	return fmt.Sprintf("Error %d", status)
}

// ModelReplier answers through the chat chain, calling the webhook directly.
type ModelReplier struct {
	chain Replier
}

// NewModelReplier wraps a chat chain such as ai.Service.
func NewModelReplier(chain Replier) *ModelReplier {
	return &ModelReplier{chain: chain}
}

// Reply delegates to the chain and reports non-2xx webhook answers the same
// way ProxyReplier does.
func (m *ModelReplier) Reply(ctx context.Context, sessionID, message string) (string, error) {
	text, err := m.chain.Reply(ctx, sessionID, message)
	if err != nil {
		var statusErr *webhook.StatusError
		if errors.As(err, &statusErr) {
			return "", errors.New(errorDetail(reply.Normalize(statusErr.Body), statusErr.StatusCode))
		}
		return "", err
	}
	return text, nil
}
