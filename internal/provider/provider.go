// Package provider implements the model-invocation collaborator: LLM
// provider interfaces and the OpenRouter-compatible HTTP client.
package provider

import (
	"context"
	"errors"
)

// ErrInvocationExhausted marks a chat call that failed after all retry
// attempts or timed out. The task pipeline treats it as terminal for the
// current task.
var ErrInvocationExhausted = errors.New("model invocation exhausted retries")

// LLMProvider is the interface for LLM API clients.
type LLMProvider interface {
	// Chat sends a completion request and returns the response. The provider
	// owns retry, backoff, and per-call timeout; on exhaustion it returns an
	// error wrapping ErrInvocationExhausted rather than hanging.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
	// DefaultModel returns the configured default model.
	DefaultModel() string
}

// ChatRequest contains the parameters for a chat completion request.
type ChatRequest struct {
	Messages    []Message
	Model       string
	MaxTokens   int
	Temperature float64
}

// ChatResponse contains the response from a chat completion request.
type ChatResponse struct {
	Content    string
	Model      string
	TokensUsed int
	Usage      Usage
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage contains token usage information.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
