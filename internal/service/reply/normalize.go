// Package reply turns raw webhook bodies into chat payloads and picks the text
// a chat UI should display for them.
package reply

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/zhouzirui/n8n-chat/backend/internal/model/chat"
)

// EmptyBodyText is the reply used when the webhook answers with an empty body.
const EmptyBodyText = "No response content"

// Normalize decodes a raw webhook body.
//
// A JSON object passes through with its key order intact. Any other JSON value
// is wrapped as {"reply": value}. A body that is not JSON becomes a text
// payload, with EmptyBodyText standing in for an empty body.
func Normalize(raw string) chat.Payload {
	data := []byte(raw)
	if !json.Valid(data) {
		if raw == "" {
			return chat.TextPayload(EmptyBodyText)
		}
		return chat.TextPayload(raw)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		fields := chat.NewFields()
		if err := json.Unmarshal(trimmed, fields); err == nil {
			return chat.ObjectPayload(fields)
		}
		// json.Valid accepted it, so fall through and keep the raw value
	}

	fields := chat.NewFields()
	fields.Set("reply", json.RawMessage(compact(trimmed)))
	return chat.ObjectPayload(fields)
}

func compact(data []byte) []byte {
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return data
	}
	return buf.Bytes()
}

// rawText renders a JSON value for display: strings unquoted, everything else
// as compact JSON.
func rawText(raw json.RawMessage) string {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return "null"
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(compact(raw)))
}
