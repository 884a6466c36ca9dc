package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

// Service runs user input through a prompt chain ending at a chat model.
type Service struct {
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewService compiles the chain around chatModel.
func NewService(ctx context.Context, chatModel model.BaseChatModel) (*Service, error) {
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{chain: runnable}, nil
}

// Reply generates the answer to message within the given session.
func (s *Service) Reply(ctx context.Context, sessionID, message string) (string, error) {
	response, err := s.chain.Invoke(ctx, map[string]any{"query": message},
		compose.WithChatModelOption(WithSessionID(sessionID)))
	if err != nil {
		return "", fmt.Errorf("failed to run chat chain: %w", err)
	}

	log.Printf("[ai] generated response for session=%s, length=%d", sessionID, len(response.Content))
	return response.Content, nil
}

// StreamReply concatenates the streamed chunks of the answer.
func (s *Service) StreamReply(ctx context.Context, sessionID, message string) (string, error) {
	stream, err := s.chain.Stream(ctx, map[string]any{"query": message},
		compose.WithChatModelOption(WithSessionID(sessionID)))
	if err != nil {
		return "", fmt.Errorf("failed to stream chat chain output: %w", err)
	}
	defer stream.Close()

	var sb strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return sb.String(), nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to read chat stream: %w", err)
		}
		sb.WriteString(chunk.Content)
	}
}
