package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/n8n-chat/backend/internal/service/reply"
	"github.com/zhouzirui/n8n-chat/backend/internal/service/webhook"
)

// ErrNoUserMessage is returned when the input has nothing to relay.
var ErrNoUserMessage = errors.New("no user message to relay")

// Fetcher is the webhook call the model relays to.
type Fetcher interface {
	FetchReply(ctx context.Context, message, sessionID string) (*webhook.Response, error)
}

type webhookOptions struct {
	SessionID string
}

// WithSessionID tags the relayed message with a conversation id.
func WithSessionID(sessionID string) model.Option {
	return model.WrapImplSpecificOptFn(func(o *webhookOptions) {
		o.SessionID = sessionID
	})
}

// WebhookModel exposes an n8n chat workflow as an eino chat model. The
// workflow owns the conversation memory, so only the last user message is
// sent.
type WebhookModel struct {
	fetcher Fetcher
}

var _ model.BaseChatModel = (*WebhookModel)(nil)

// NewWebhookModel wraps a webhook fetcher.
func NewWebhookModel(fetcher Fetcher) *WebhookModel {
	return &WebhookModel{fetcher: fetcher}
}

// Generate relays the last user message and returns the display text of the
// normalized reply as an assistant message.
func (m *WebhookModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	message, ok := lastUserMessage(input)
	if !ok {
		return nil, ErrNoUserMessage
	}

	options := model.GetImplSpecificOptions(&webhookOptions{}, opts...)

	resp, err := m.fetcher.FetchReply(ctx, message, options.SessionID)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	if !resp.OK() {
		return nil, &webhook.StatusError{StatusCode: resp.StatusCode, Body: resp.Body}
	}

	return schema.AssistantMessage(reply.DisplayText(reply.Normalize(resp.Body)), nil), nil
}

// Stream yields the generated message as a single chunk; webhooks answer in
// one piece.
func (m *WebhookModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func lastUserMessage(input []*schema.Message) (string, bool) {
	for i := len(input) - 1; i >= 0; i-- {
		msg := input[i]
		if msg != nil && msg.Role == schema.User && msg.Content != "" {
			return msg.Content, true
		}
	}
	return "", false
}
