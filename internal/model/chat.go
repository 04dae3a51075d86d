package model

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one conversation turn. Context and TokensUsed are only set
// on assistant turns that were grounded in retrieved chunks.
type ChatMessage struct {
	Role       string        `json:"role"`
	Content    string        `json:"content"`
	Timestamp  int64         `json:"timestamp"`
	Context    []ContextItem `json:"context,omitempty"`
	TokensUsed *TokenUsage   `json:"tokens_used,omitempty"`
}

// ChatSummary is the listing view of a conversation.
type ChatSummary struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	MessageCount int    `json:"message_count"`
	Ctime        int64  `json:"ctime"`
	Mtime        int64  `json:"mtime"`
}
