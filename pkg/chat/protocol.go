package chat

// EndOfMessage terminates every streamed reply.
const EndOfMessage = "[END_OF_MESSAGE]"

// DefaultModel is used when a request names no model.
const DefaultModel = "llama3.2"

// Request is one prompt sent by the client.
type Request struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// Model describes one model offered by the server.
type Model struct {
	Model string `json:"model"`
	Size  int64  `json:"size,omitempty"`
}

// ModelList is the body of GET /models.
type ModelList struct {
	Models []Model `json:"models"`
}

// Turn is one entry of a conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message senders as shown on the page and stored with each message.
const (
	SenderSystem = "System"
	SenderYou    = "You"
	SenderBot    = "Bot"
)
