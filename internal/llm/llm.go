package llm

import "context"

// Tier selects the model quality level for a call.
type Tier string

const (
	// TierFast is for high-volume calls (relevance scoring).
	TierFast Tier = "fast"
	// TierQuality is for calls whose output reaches the platform.
	TierQuality Tier = "quality"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is one chat-completion request.
type Request struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
	Tier        Tier
}

// Completer is the chat-completion provider consumed by the pipeline.
// Implementations may return malformed text even when asked for strict
// JSON; callers must detect that via ExtractJSON + parse, never trust it.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}
