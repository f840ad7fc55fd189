// Package providertest provides test helpers for the provider package.
package providertest

import (
	"context"
	"sync"

	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/provider"
)

// MockProvider is a configurable test double for provider.Provider.
// Set CompleteFunc to control behavior; an unset func panics on call.
// All methods are safe for concurrent use.
type MockProvider struct {
	CompleteFunc  func(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error)
	ContextWindow int
	Model         string

	mu            sync.Mutex
	CompleteCalls int
	Requests      []provider.CompletionRequest
}

// Complete delegates to CompleteFunc and records the request.
func (m *MockProvider) Complete(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error) {
	m.mu.Lock()
	m.CompleteCalls++
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()
	return m.CompleteFunc(ctx, req)
}

// ContextWindowSize returns the configured window, defaulting to 32000.
func (m *MockProvider) ContextWindowSize() int {
	if m.ContextWindow == 0 {
		return 32000
	}
	return m.ContextWindow
}

// ModelName returns the configured model name.
func (m *MockProvider) ModelName() string {
	if m.Model == "" {
		return "mock-model"
	}
	return m.Model
}

// LastRequest returns the most recently observed request, if any.
func (m *MockProvider) LastRequest() (provider.CompletionRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Requests) == 0 {
		return provider.CompletionRequest{}, false
	}
	return m.Requests[len(m.Requests)-1], true
}

// Interface guard.
var _ provider.Provider = (*MockProvider)(nil)
