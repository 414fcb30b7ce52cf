// Package llmprovider defines the external LLM completion interface the PA
// engine (C7), FI engine (C9), and FuI engine (C10) call through, plus a
// go-openai-backed implementation. Provider selection and credential
// management are external collaborators per this system's scope; this
// package only defines the contract and one concrete client.
// Adapted from ziadkadry99-auto-doc/internal/llm/{provider.go,types.go},
// dropping the multi-provider factory (anthropic/google/ollama + stored
// OAuth credentials) since provider choice is out of scope here.
package llmprovider

import "context"

// Role mirrors the teacher's conversation role enum.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single turn in a completion request.
type Message struct {
	Role    Role
	Content string
}

// CompletionRequest carries one completion call's parameters, including
// JSONMode for the PA/FI/FuI engines' structured-output retry ladders.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
	JSONMode    bool
}

// CompletionResponse is the result of a completion call.
type CompletionResponse struct {
	Content      string
	InputTokens  int
	OutputTokens int
	Model        string
	FinishReason string
}

// Provider is the external LLM completion contract.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	Name() string
}
