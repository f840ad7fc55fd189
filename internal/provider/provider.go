// Package provider defines the interface for communicating with an LLM
// completion service, plus shared request/response types.
package provider

import "context"

// Provider is the interface for communicating with an LLM.
// Concrete implementations live in subpackages (openai, anthropic).
type Provider interface {
	// Complete sends a completion request and returns the full response.
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)

	// ContextWindowSize returns the maximum context window in tokens.
	ContextWindowSize() int

	// ModelName returns the identifier of the underlying model.
	ModelName() string
}
