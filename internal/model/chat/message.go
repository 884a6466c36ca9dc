package chat

// Sender identifies who produced a transcript entry.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Message is a single transcript entry as displayed by the chat UI.
type Message struct {
	Sender Sender `json:"sender"`
	Text   string `json:"text"`
}

// SendRequest is the body accepted by the send path.
type SendRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId,omitempty"`
}
