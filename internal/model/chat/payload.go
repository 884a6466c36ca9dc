package chat

import (
	"encoding/json"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// PayloadKind discriminates the Payload union.
type PayloadKind int

const (
	// PayloadObject is a JSON object returned by the webhook.
	PayloadObject PayloadKind = iota
	// PayloadText is a body that was not valid JSON.
	PayloadText
)

// Fields is a JSON object whose keys keep the order the webhook sent them in.
type Fields = orderedmap.OrderedMap[string, json.RawMessage]

// NewFields returns an empty ordered object.
func NewFields() *Fields {
	return orderedmap.New[string, json.RawMessage]()
}

// Payload is a normalized webhook response. Exactly one of Object or Text is
// meaningful, selected by Kind.
type Payload struct {
	Kind   PayloadKind
	Object *Fields
	Text   string
}

// ObjectPayload wraps a decoded JSON object.
func ObjectPayload(fields *Fields) Payload {
	if fields == nil {
		fields = NewFields()
	}
	return Payload{Kind: PayloadObject, Object: fields}
}

// TextPayload wraps a plain-text body.
func TextPayload(text string) Payload {
	return Payload{Kind: PayloadText, Text: text}
}

// Field returns the raw JSON value stored under key, if the payload is an object.
func (p Payload) Field(key string) (json.RawMessage, bool) {
	if p.Kind != PayloadObject || p.Object == nil {
		return nil, false
	}
	return p.Object.Get(key)
}

// MarshalJSON renders objects as-is and text as {"reply": text}.
func (p Payload) MarshalJSON() ([]byte, error) {
	if p.Kind == PayloadText {
		return json.Marshal(struct {
			Reply string `json:"reply"`
		}{Reply: p.Text})
	}
	if p.Object == nil || p.Object.Len() == 0 {
		return []byte("{}"), nil
	}
	return p.Object.MarshalJSON()
}
