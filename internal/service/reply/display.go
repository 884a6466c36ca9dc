package reply

import (
	"encoding/json"

	openai "github.com/sashabaranov/go-openai"

	"github.com/zhouzirui/n8n-chat/backend/internal/model/chat"
)

// DisplayKeys are the fields checked, in order, for a string reply.
var DisplayKeys = []string{"reply", "output", "text", "message"}

// DisplayText picks the string a chat UI shows for a payload. This is a
// best-effort heuristic with a fixed precedence:
//
//  1. text payloads are shown verbatim
//  2. the first non-empty string among DisplayKeys
//  3. choices[0].message.content of a chat-completion shaped object
//  4. the first value of the object in upstream order
//  5. the whole object as JSON (only reached for {})
func DisplayText(p chat.Payload) string {
	if p.Kind == chat.PayloadText {
		return p.Text
	}

	for _, key := range DisplayKeys {
		raw, ok := p.Field(key)
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
	}

	if text, ok := completionText(p); ok {
		return text
	}

	if p.Object != nil {
		if pair := p.Object.Oldest(); pair != nil {
			return rawText(pair.Value)
		}
	}

	b, err := p.MarshalJSON()
	if err != nil {
		return "{}"
	}
	return string(b)
}

// completionText extracts the assistant content from an OpenAI-style chat
// completion, which n8n HTTP Request nodes often hand back untouched.
func completionText(p chat.Payload) (string, bool) {
	raw, ok := p.Field("choices")
	if !ok {
		return "", false
	}

	var choices []openai.ChatCompletionChoice
	if err := json.Unmarshal(raw, &choices); err != nil || len(choices) == 0 {
		return "", false
	}

	content := choices[0].Message.Content
	if content == "" {
		return "", false
	}
	return content, true
}
