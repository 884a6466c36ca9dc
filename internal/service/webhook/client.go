// Package webhook calls the n8n chat webhook over HTTP GET.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// ErrGatewayUnreachable reports a failure before any HTTP response arrived.
var ErrGatewayUnreachable = errors.New("webhook unreachable")

// Config describes the webhook target. It is read once at start-up and handed
// to NewClient; the client never consults the environment itself.
type Config struct {
	BaseURL string
	Path    string
	// AuthToken, when set, is sent as a bearer token.
	AuthToken string
	// Timeout bounds a whole request. Zero means no timeout.
	Timeout time.Duration
}

// Response is the upstream answer, passed through verbatim.
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       string
}

// OK reports whether the upstream answered with a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// StatusError is returned by callers that treat a non-2xx answer as a failure.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webhook responded with status %d", e.StatusCode)
}

// Client issues webhook requests.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient validates cfg and builds a client. A nil httpClient selects a
// default one honoring cfg.Timeout.
func NewClient(cfg Config, httpClient *http.Client) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, errors.New("webhook base URL is required")
	}

	endpoint := base + strings.TrimSpace(cfg.Path)
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook URL %q: %w", endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid webhook URL %q: scheme must be http or https", endpoint)
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	if cfg.AuthToken != "" {
		transport := httpClient.Transport
		if transport == nil {
			transport = http.DefaultTransport
		}
		authed := *httpClient
		authed.Transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.AuthToken}),
			Base:   transport,
		}
		httpClient = &authed
	}

	return &Client{endpoint: endpoint, httpClient: httpClient}, nil
}

// Endpoint returns the configured base + path.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// BuildURL appends message and, when non-empty, sessionID as query parameters.
func (c *Client) BuildURL(message, sessionID string) string {
	var b strings.Builder
	b.WriteString(c.endpoint)
	if strings.Contains(c.endpoint, "?") {
		b.WriteByte('&')
	} else {
		b.WriteByte('?')
	}
	b.WriteString("message=")
	b.WriteString(encodeComponent(message))
	if sessionID != "" {
		b.WriteString("&sessionId=")
		b.WriteString(encodeComponent(sessionID))
	}
	return b.String()
}

// FetchReply sends message to the webhook. Any HTTP response, whatever its
// status, is returned without error; transport failures wrap
// ErrGatewayUnreachable.
func (c *Client) FetchReply(ctx context.Context, message, sessionID string) (*Response, error) {
	target := c.BuildURL(message, sessionID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("ngrok-skip-browser-warning", "true")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		// 已收到状态码，保留已读取的部分
		log.Printf("[webhook] failed to read body (status=%d): %v", resp.StatusCode, err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       string(body),
	}, nil
}

// encodeComponent query-escapes s with spaces as %20 rather than '+'.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
