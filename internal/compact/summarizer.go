package compact

import (
	"context"
	"strings"

	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/memory"
	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/provider"
	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/store"
)

// DefaultSummaryPrompt is the summarization template. Placeholders:
// {{char}}, {{user}}, {{transcript}}.
const DefaultSummaryPrompt = `Summarize the following conversation between {{char}} and {{user}} as a
short narrative. Preserve key events, feelings, plans, and anything either
person promised or revealed. Write in third person, past tense, a few
sentences at most.

Conversation:
{{transcript}}

Summary:`

// LLMSummarizer condenses one block's raw messages into a short
// narrative summary via the completion service.
type LLMSummarizer struct {
	provider  provider.Provider
	template  string
	maxTokens int
}

// NewLLMSummarizer creates a summarizer. An empty template selects
// DefaultSummaryPrompt; maxTokens <= 0 defaults to 400 (summaries must
// stay compact).
func NewLLMSummarizer(p provider.Provider, template string, maxTokens int) *LLMSummarizer {
	if template == "" {
		template = DefaultSummaryPrompt
	}
	if maxTokens <= 0 {
		maxTokens = 400
	}
	return &LLMSummarizer{provider: p, template: template, maxTokens: maxTokens}
}

// Compile-time interface check.
var _ Summarizer = (*LLMSummarizer)(nil)

// Summarize renders the block transcript into the prompt template and
// returns the model's trimmed output. Failures propagate; the
// orchestrator never deletes messages without a successful summary.
func (s *LLMSummarizer) Summarize(ctx context.Context, msgs []store.Message, characterName, userName string) (string, error) {
	prompt := strings.NewReplacer(
		"{{char}}", characterName,
		"{{user}}", userName,
		"{{transcript}}", memory.Transcript(msgs, characterName, userName),
	).Replace(s.template)

	resp, err := s.provider.Complete(ctx, provider.CompletionRequest{
		Messages:  []provider.LLMMessage{{Role: provider.MessageRoleUser, Content: prompt}},
		MaxTokens: s.maxTokens,
	})
	if err != nil {
		return "", err
	}

	// An empty summary is acceptable degradation, not a failure: the
	// block is still replaced rather than blocking compaction.
	return strings.TrimSpace(resp.Content), nil
}
