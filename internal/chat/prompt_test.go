package chat

import (
	"strings"
	"testing"
	"time"

	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/memory"
	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/provider"
	"github.com/ForgottenHistory/Cupid-AI-sub002/internal/store"
)

func TestBuildPrompt_SystemPromptCarriesPersonaAndMemories(t *testing.T) {
	t.Parallel()
	char := store.Character{Name: "Aria", Persona: "Warm and curious."}
	mems := []memory.Memory{
		{Importance: 90, Text: "Sam lives in Berlin"},
		{Importance: 60, Text: "Sam owns a cat"},
	}

	prompt := BuildPrompt(char, mems, "Sam", nil)
	if len(prompt) != 1 {
		t.Fatalf("len = %d, want 1 (system prompt only)", len(prompt))
	}
	sys := prompt[0]
	if sys.Role != provider.MessageRoleSystem {
		t.Fatalf("role = %q, want system", sys.Role)
	}
	for _, want := range []string{"Aria", "Sam", "Warm and curious.", "Sam lives in Berlin", "Sam owns a cat"} {
		if !strings.Contains(sys.Content, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
}

func TestBuildPrompt_NoMemorySectionWhenEmpty(t *testing.T) {
	t.Parallel()
	prompt := BuildPrompt(store.Character{Name: "Aria"}, nil, "Sam", nil)
	if strings.Contains(prompt[0].Content, "remember") {
		t.Errorf("empty memory set should not produce a memory section: %q", prompt[0].Content)
	}
}

func TestBuildPrompt_MapsRowTypesToRoles(t *testing.T) {
	t.Parallel()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	msgs := []store.Message{
		{Role: store.RoleSystem, Type: store.TypeSummary, Content: "They met last week.", CreatedAt: base},
		{Role: store.RoleSystem, Type: store.TypeTimeGap, Content: "[2.0 hours have passed. A new session begins.]", CreatedAt: base.Add(time.Minute)},
		{Role: store.RoleUser, Type: store.TypeNormal, Content: "hi again", CreatedAt: base.Add(2 * time.Minute)},
		{Role: store.RoleAssistant, Type: store.TypeNormal, Content: "welcome back", CreatedAt: base.Add(3 * time.Minute)},
	}

	prompt := BuildPrompt(store.Character{Name: "Aria"}, nil, "Sam", msgs)
	if len(prompt) != 5 {
		t.Fatalf("len = %d, want 5", len(prompt))
	}

	summary := prompt[1]
	if summary.Role != provider.MessageRoleSystem {
		t.Errorf("summary role = %q, want system", summary.Role)
	}
	if !strings.HasPrefix(summary.Content, "[Summary of an earlier part of this conversation]") {
		t.Errorf("summary content = %q, missing prefix", summary.Content)
	}
	if !strings.Contains(summary.Content, "They met last week.") {
		t.Errorf("summary content = %q", summary.Content)
	}

	if prompt[2].Role != provider.MessageRoleSystem {
		t.Errorf("gap marker role = %q, want system", prompt[2].Role)
	}
	if prompt[3].Role != provider.MessageRoleUser || prompt[3].Content != "hi again" {
		t.Errorf("user turn = %+v", prompt[3])
	}
	if prompt[4].Role != provider.MessageRoleAssistant || prompt[4].Content != "welcome back" {
		t.Errorf("assistant turn = %+v", prompt[4])
	}
}
