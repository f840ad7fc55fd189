package chat

import (
	"strings"

	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/memory"
	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/provider"
	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/store"
)

// BuildPrompt assembles the completion request for a chat turn: the
// character persona plus memories as the system prompt, followed by the
// transcript. Summary and gap-marker rows become system messages so the
// model reads them as context, not dialogue.
func BuildPrompt(char store.Character, memories []memory.Memory, userName string, msgs []store.Message) []provider.LLMMessage {
	prompt := make([]provider.LLMMessage, 0, len(msgs)+1)
	prompt = append(prompt, provider.LLMMessage{
		Role:    provider.MessageRoleSystem,
		Content: systemPrompt(char, memories, userName),
	})

	for _, m := range msgs {
		switch {
		case m.Type == store.TypeSummary:
			prompt = append(prompt, provider.LLMMessage{
				Role:    provider.MessageRoleSystem,
				Content: "[Summary of an earlier part of this conversation]\n" + m.Content,
			})
		case m.Type == store.TypeTimeGap:
			prompt = append(prompt, provider.LLMMessage{
				Role:    provider.MessageRoleSystem,
				Content: m.Content,
			})
		case m.Role == store.RoleUser:
			prompt = append(prompt, provider.LLMMessage{
				Role:    provider.MessageRoleUser,
				Content: m.Content,
			})
		case m.Role == store.RoleAssistant:
			prompt = append(prompt, provider.LLMMessage{
				Role:    provider.MessageRoleAssistant,
				Content: m.Content,
			})
		default:
			prompt = append(prompt, provider.LLMMessage{
				Role:    provider.MessageRoleSystem,
				Content: m.Content,
			})
		}
	}
	return prompt
}

func systemPrompt(char store.Character, memories []memory.Memory, userName string) string {
	var b strings.Builder
	b.WriteString("You are ")
	b.WriteString(char.Name)
	b.WriteString(", chatting with ")
	b.WriteString(userName)
	b.WriteString(" on a dating app.\n\n")
	b.WriteString(char.Persona)

	if len(memories) > 0 {
		b.WriteString("\n\nWhat you remember about ")
		b.WriteString(userName)
		b.WriteString(":\n")
		for _, m := range memories {
			b.WriteString("- ")
			b.WriteString(m.Text)
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
