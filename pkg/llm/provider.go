// Package llm provides the text generation contract used to turn a prompt
// into raw workflow text. Providers are interchangeable; the generator only
// relies on Provider and the request/response types defined here.
package llm

import (
	"context"
	"time"
)

// Provider defines the interface that all text generation providers must
// implement.
type Provider interface {
	// Name returns the unique identifier for this provider (e.g., "groq").
	Name() string

	// Complete sends a synchronous completion request and returns the full
	// response. Implementations return *errors.ProviderError for remote
	// failures so callers can decide whether to retry or fall back.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// MessageRole identifies the speaker of a message.
type MessageRole string

const (
	// MessageRoleSystem is for system prompts that set context and behavior.
	MessageRoleSystem MessageRole = "system"

	// MessageRoleUser is for user input messages.
	MessageRoleUser MessageRole = "user"

	// MessageRoleAssistant is for model responses.
	MessageRoleAssistant MessageRole = "assistant"
)

// Message is a single message in a conversation.
type Message struct {
	Role    MessageRole
	Content string
}

// CompletionRequest contains all parameters for a completion request.
type CompletionRequest struct {
	// Messages is the conversation history.
	Messages []Message

	// Model is the provider-specific model identifier.
	Model string

	// Temperature controls randomness. Nil uses the provider default.
	Temperature *float64

	// MaxTokens limits the response length. Nil uses the provider default.
	MaxTokens *int

	// JSONMode asks the provider to constrain output to a single JSON object.
	JSONMode bool

	// Metadata carries request-scoped tags for logging (e.g., correlation id).
	Metadata map[string]string
}

// FinishReason explains why the model stopped generating.
type FinishReason string

const (
	FinishReasonStop      FinishReason = "stop"
	FinishReasonLength    FinishReason = "length"
	FinishReasonFiltered  FinishReason = "content_filter"
	FinishReasonError     FinishReason = "error"
	FinishReasonUndefined FinishReason = ""
)

// CompletionResponse contains the result of a completion request.
type CompletionResponse struct {
	// Content is the generated text.
	Content string

	// FinishReason indicates why generation stopped.
	FinishReason FinishReason

	// Usage reports token consumption for this request.
	Usage TokenUsage

	// Model is the model that actually served the request.
	Model string

	// RequestID is the provider's request identifier, if any.
	RequestID string

	// Created is when the response was generated.
	Created time.Time
}

// TokenUsage tracks token consumption for a single request.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Float64 returns a pointer to v, for optional request fields.
func Float64(v float64) *float64 { return &v }

// Int returns a pointer to v, for optional request fields.
func Int(v int) *int { return &v }
