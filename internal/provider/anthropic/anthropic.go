// Package anthropic provides an LLM provider backed by the official
// Anthropic SDK. Unlike the openai package it does not need a base URL;
// credentials come from config or the ANTHROPIC_API_KEY environment variable.
package anthropic

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/provider"
)

// Config holds the configuration for the Anthropic provider.
type Config struct {
	APIKey        string `yaml:"api_key"`
	Model         string `yaml:"model"`
	ContextWindow int    `yaml:"context_window"`
	MaxTokens     int    `yaml:"max_tokens"`
}

// defaults sets default values for unset fields.
func (c *Config) defaults() {
	if c.Model == "" {
		c.Model = string(sdk.ModelClaudeSonnet4_20250514)
	}
	if c.ContextWindow == 0 {
		c.ContextWindow = 200000
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 1024
	}
}

// Provider is an Anthropic-backed LLM provider.
type Provider struct {
	config Config
	client sdk.Client
	logger *slog.Logger
}

// New creates a Provider from the given config.
func New(cfg Config, logger *slog.Logger) (*Provider, error) {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}

	var opts []option.RequestOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}

	return &Provider{
		config: cfg,
		client: sdk.NewClient(opts...),
		logger: logger,
	}, nil
}

// Compile-time interface check.
var _ provider.Provider = (*Provider)(nil)

// Complete implements provider.Provider.
func (p *Provider) Complete(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.config.MaxTokens
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(p.config.Model),
		MaxTokens: int64(maxTokens),
	}

	// The Messages API takes system prompts as a separate parameter;
	// fold any system-role messages into it in order.
	var systemParts []string
	for _, m := range req.Messages {
		switch m.Role {
		case provider.MessageRoleSystem:
			systemParts = append(systemParts, m.Content)
		case provider.MessageRoleAssistant:
			params.Messages = append(params.Messages, sdk.NewAssistantMessage(sdk.NewTextBlock(m.Content)))
		default:
			params.Messages = append(params.Messages, sdk.NewUserMessage(sdk.NewTextBlock(m.Content)))
		}
	}
	if len(systemParts) > 0 {
		params.System = []sdk.TextBlockParam{{Text: strings.Join(systemParts, "\n\n")}}
	}

	if req.Temperature != nil {
		params.Temperature = sdk.Float(*req.Temperature)
	}
	if req.TopP != nil {
		params.TopP = sdk.Float(*req.TopP)
	}
	if len(req.Stop) > 0 {
		params.StopSequences = req.Stop
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		if ctx.Err() != nil {
			return provider.CompletionResponse{}, ctx.Err()
		}
		return provider.CompletionResponse{}, fmt.Errorf("%w: %w", provider.ErrProviderDown, err)
	}

	var content strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	return provider.CompletionResponse{
		Content:      content.String(),
		FinishReason: mapStopReason(string(msg.StopReason)),
		Usage: provider.TokenUsage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
			TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
	}, nil
}

// ContextWindowSize implements provider.Provider.
func (p *Provider) ContextWindowSize() int {
	return p.config.ContextWindow
}

// ModelName implements provider.Provider.
func (p *Provider) ModelName() string {
	return p.config.Model
}

// mapStopReason converts an Anthropic stop_reason to a provider.FinishReason.
func mapStopReason(reason string) provider.FinishReason {
	switch reason {
	case "end_turn", "stop_sequence":
		return provider.FinishReasonStop
	case "max_tokens":
		return provider.FinishReasonLength
	case "refusal":
		return provider.FinishReasonFiltering
	default:
		return provider.FinishReason(reason)
	}
}
