package memory

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/provider"
	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/store"
)

// NoNewMemories is the sentinel the model returns when a block contains
// nothing worth remembering.
const NoNewMemories = "NO_NEW_MEMORIES"

// memoryLine matches one "<score>: <text>" response line.
var memoryLine = regexp.MustCompile(`^(\d+):\s*(.+)$`)

// DefaultPrompt is the extraction prompt template. Placeholders:
// {{char}}, {{memories}}, {{transcript}}.
const DefaultPrompt = `You maintain the long-term memory of {{char}}, a dating-app character.

Existing memories (score: text):
{{memories}}

Read the conversation below and extract new facts about the user or the
relationship worth remembering long-term. Return one fact per line as
"<importance>: <fact>" where importance is 0-100. Do not repeat existing
memories. If there is nothing new, return exactly ` + NoNewMemories + `.

Conversation:
{{transcript}}`

// Extractor turns a compacted block's transcript into new memories.
type Extractor struct {
	provider  provider.Provider
	store     *Store
	template  string
	maxTokens int
	logger    *slog.Logger
}

// NewExtractor creates an Extractor. An empty template selects
// DefaultPrompt; maxTokens <= 0 defaults to 500.
func NewExtractor(p provider.Provider, s *Store, template string, maxTokens int, logger *slog.Logger) *Extractor {
	if template == "" {
		template = DefaultPrompt
	}
	if maxTokens <= 0 {
		maxTokens = 500
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		provider:  p,
		store:     s,
		template:  template,
		maxTokens: maxTokens,
		logger:    logger,
	}
}

// Extract asks the model for new memories from the block transcript.
// The existing set is included in the prompt so the model can avoid
// duplicates. Returns only the newly extracted memories.
func (e *Extractor) Extract(ctx context.Context, characterName, userName string, existing []Memory, msgs []store.Message) ([]Memory, error) {
	prompt := strings.NewReplacer(
		"{{char}}", characterName,
		"{{memories}}", renderMemoryList(existing),
		"{{transcript}}", Transcript(msgs, characterName, userName),
	).Replace(e.template)

	resp, err := e.provider.Complete(ctx, provider.CompletionRequest{
		Messages:  []provider.LLMMessage{{Role: provider.MessageRoleUser, Content: prompt}},
		MaxTokens: e.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("memory: extraction failed: %w", err)
	}

	return e.parse(resp.Content), nil
}

// Capture extracts memories from a block and folds them into the
// character's store. An LLM failure is logged and swallowed so that
// extraction can never block the compaction that triggered it; only
// persistence errors propagate.
func (e *Extractor) Capture(ctx context.Context, characterID, characterName, userName string, msgs []store.Message) error {
	existing, err := e.store.Get(ctx, characterID)
	if err != nil {
		return err
	}

	extracted, err := e.Extract(ctx, characterName, userName, existing, msgs)
	if err != nil {
		e.logger.Warn("memory extraction failed, keeping existing memories",
			"character", characterID,
			"error", err,
		)
		return nil
	}
	if len(extracted) == 0 {
		return nil
	}

	if _, err := e.store.Add(ctx, characterID, extracted); err != nil {
		return err
	}
	e.logger.Info("memories extracted",
		"character", characterID,
		"new", len(extracted),
	)
	return nil
}

// parse reads "<score>: <text>" lines from the model output. Malformed
// lines are skipped with a warning; the sentinel or an empty response
// yields no memories.
func (e *Extractor) parse(response string) []Memory {
	response = strings.TrimSpace(response)
	if response == "" || response == NoNewMemories {
		return nil
	}

	var memories []Memory
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line == NoNewMemories {
			continue
		}
		m := memoryLine.FindStringSubmatch(line)
		if m == nil {
			e.logger.Warn("skipping malformed memory line", "line", line)
			continue
		}
		score, err := strconv.Atoi(m[1])
		if err != nil {
			e.logger.Warn("skipping malformed memory score", "line", line)
			continue
		}
		memories = append(memories, Memory{
			Importance: clampImportance(score),
			Text:       strings.TrimSpace(m[2]),
		})
	}
	return memories
}

// renderMemoryList formats memories as "<score>: <text>" lines for the
// extraction prompt.
func renderMemoryList(memories []Memory) string {
	if len(memories) == 0 {
		return "(none yet)"
	}
	lines := make([]string, len(memories))
	for i, m := range memories {
		lines[i] = fmt.Sprintf("%d: %s", m.Importance, m.Text)
	}
	return strings.Join(lines, "\n")
}
