// Package chatui holds the client-side conversation model shared by the
// terminal chat programs.
package chatui

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/zhouzirui/n8n-chat/backend/internal/model/chat"
)

// State is derived from the number of submissions awaiting a reply.
type State int

const (
	Idle State = iota
	AwaitingReply
)

func (s State) String() string {
	if s == AwaitingReply {
		return "awaiting reply"
	}
	return "idle"
}

// Replier produces the bot text for a user message.
type Replier interface {
	Reply(ctx context.Context, sessionID, message string) (string, error)
}

// Conversation is an append-only transcript bound to one session id.
// Replies are appended in completion order; nothing is de-duplicated or
// cancelled.
type Conversation struct {
	replier   Replier
	sessionID string
	onAppend  func(chat.Message)

	mu       sync.Mutex
	messages []chat.Message
	pending  int
}

// Option configures a Conversation.
type Option func(*Conversation)

// WithSessionID fixes the session id instead of generating one.
func WithSessionID(sessionID string) Option {
	return func(c *Conversation) {
		if sessionID != "" {
			c.sessionID = sessionID
		}
	}
}

// OnAppend registers a callback invoked, under the transcript lock, for every
// appended message.
func OnAppend(fn func(chat.Message)) Option {
	return func(c *Conversation) {
		c.onAppend = fn
	}
}

// NewConversation starts an empty transcript with a fresh session id.
func NewConversation(replier Replier, opts ...Option) *Conversation {
	c := &Conversation{
		replier:   replier,
		sessionID: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SessionID returns the id attached to every submission.
func (c *Conversation) SessionID() string {
	return c.sessionID
}

// Submit appends the user message, waits for the reply and appends it.
// Blank input is ignored and returns false. Errors become a bot message of
// the form "Error: <detail>".
func (c *Conversation) Submit(ctx context.Context, input string) bool {
	if strings.TrimSpace(input) == "" {
		return false
	}

	c.mu.Lock()
	c.appendLocked(chat.Message{Sender: chat.SenderUser, Text: input})
	c.pending++
	c.mu.Unlock()

	text, err := c.replier.Reply(ctx, c.sessionID, input)
	if err != nil {
		text = "Error: " + err.Error()
	}

	c.mu.Lock()
	c.appendLocked(chat.Message{Sender: chat.SenderBot, Text: text})
	c.pending--
	c.mu.Unlock()
	return true
}

// Messages returns a copy of the transcript.
func (c *Conversation) Messages() []chat.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]chat.Message(nil), c.messages...)
}

// State reports whether any submission is still awaiting its reply.
func (c *Conversation) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending > 0 {
		return AwaitingReply
	}
	return Idle
}

func (c *Conversation) appendLocked(msg chat.Message) {
	c.messages = append(c.messages, msg)
	if c.onAppend != nil {
		c.onAppend(msg)
	}
}
