package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/zhouzirui/n8n-chat/backend/internal/model/chat"
	"github.com/zhouzirui/n8n-chat/backend/internal/service/reply"
	"github.com/zhouzirui/n8n-chat/backend/internal/service/webhook"
)

// ErrMessageRequired rejects empty or whitespace-only messages.
var ErrMessageRequired = errors.New("message is required")

// GatewayErrorMessage is reported to callers when the webhook cannot be reached.
const GatewayErrorMessage = "Failed to reach n8n"

// Fetcher is the webhook call the service relays to.
type Fetcher interface {
	FetchReply(ctx context.Context, message, sessionID string) (*webhook.Response, error)
}

// Result is a relayed reply ready to be written back to the caller.
type Result struct {
	// Status mirrors the upstream: 200 for any 2xx, the upstream code otherwise.
	Status    int
	Payload   chat.Payload
	SessionID string
}

// Service relays chat messages to the webhook and normalizes the answers.
type Service struct {
	fetcher      Fetcher
	newSessionID func() string
}

// NewService wires the relay to a webhook fetcher.
func NewService(fetcher Fetcher) *Service {
	return &Service{
		fetcher:      fetcher,
		newSessionID: uuid.NewString,
	}
}

// NewSessionID returns a fresh random session identifier.
func (s *Service) NewSessionID() string {
	return s.newSessionID()
}

// Ask relays a message without a session id (the read path).
func (s *Service) Ask(ctx context.Context, message string) (*Result, error) {
	return s.relay(ctx, message, "")
}

// Send relays a message tagged with sessionID, generating one when empty
// (the send path).
func (s *Service) Send(ctx context.Context, message, sessionID string) (*Result, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrMessageRequired
	}
	if sessionID == "" {
		sessionID = s.newSessionID()
	}
	return s.relay(ctx, message, sessionID)
}

func (s *Service) relay(ctx context.Context, message, sessionID string) (*Result, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrMessageRequired
	}

	resp, err := s.fetcher.FetchReply(ctx, message, sessionID)
	if err != nil {
		return nil, fmt.Errorf("relay message: %w", err)
	}

	log.Printf("[chat] n8n response (session=%s status=%d): %s", sessionID, resp.StatusCode, resp.Body)
	if !resp.OK() {
		log.Printf("[chat] n8n error: status=%d statusText=%q headers=%v", resp.StatusCode, resp.Status, resp.Header)
	}

	return &Result{
		Status:    MirrorStatus(resp),
		Payload:   reply.Normalize(resp.Body),
		SessionID: sessionID,
	}, nil
}

// MirrorStatus maps an upstream response to the status returned to callers.
func MirrorStatus(resp *webhook.Response) int {
	if resp.OK() {
		return http.StatusOK
	}
	return resp.StatusCode
}
