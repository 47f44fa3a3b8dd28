package domain

import "context"

// ChatRole is the author of a chat message.
type ChatRole string

// Chat roles understood by OpenAI-compatible backends.
const (
	RoleSystem ChatRole = "system"
	RoleUser   ChatRole = "user"
)

// ChatMessage is one turn of a completion prompt.
type ChatMessage struct {
	Role    ChatRole
	Content string
}

// CompletionParams tunes a single completion call. Zero values mean provider defaults.
type CompletionParams struct {
	Temperature float32
	MaxTokens   int
}

// Completion is the text answer of a chat completion plus its token usage.
type Completion struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Completer is the text-generation contract shared by query reformulation and
// recommendation prose.
type Completer interface {
	Complete(ctx context.Context, messages []ChatMessage, params CompletionParams) (Completion, error)
}
