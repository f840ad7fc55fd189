// Package openai provides an OpenAI-compatible LLM provider.
// It works with any API that implements the OpenAI chat completions
// interface (OpenRouter, Mistral, Groq, vLLM, LiteLLM, etc.) via a
// configurable base_url.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/provider"
)

// Provider is an OpenAI-compatible LLM provider.
type Provider struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

// New creates a Provider from the given config. The config is validated;
// construction fails rather than deferring errors to the first request.
func New(cfg Config, logger *slog.Logger) (*Provider, error) {
	cfg.defaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		config: cfg,
		// Response-header timeout instead of a global client timeout so a
		// slow generation is bounded by the caller's context, not the client.
		client: &http.Client{
			Transport: &http.Transport{
				ResponseHeaderTimeout: cfg.Timeout,
			},
		},
		logger: logger,
	}, nil
}

// Compile-time interface check.
var _ provider.Provider = (*Provider)(nil)

// Complete implements provider.Provider.
func (p *Provider) Complete(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error) {
	oaiReq := buildRequest(p.config.Model, p.config.MaxTokens, req)

	resp, err := p.doRequest(ctx, oaiReq)
	if err != nil {
		return provider.CompletionResponse{}, err
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	if resp.StatusCode != http.StatusOK {
		return provider.CompletionResponse{}, handleErrorResponse(resp)
	}

	var oaiResp oaiResponse
	if err := json.NewDecoder(resp.Body).Decode(&oaiResp); err != nil {
		return provider.CompletionResponse{}, fmt.Errorf("decode response: %w", err)
	}

	return parseResponse(oaiResp), nil
}

// ContextWindowSize implements provider.Provider.
func (p *Provider) ContextWindowSize() int {
	return p.config.ContextWindow
}

// ModelName implements provider.Provider.
func (p *Provider) ModelName() string {
	return p.config.Model
}
