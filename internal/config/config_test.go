package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cupid.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "provider:\n  kind: openai\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != ":8080" {
		t.Errorf("listen = %q, want :8080", cfg.Listen)
	}
	if cfg.Database.Path != "cupid.db" {
		t.Errorf("database path = %q", cfg.Database.Path)
	}
	if cfg.Compaction.SummaryMaxTokens != 400 {
		t.Errorf("summary max tokens = %d, want 400", cfg.Compaction.SummaryMaxTokens)
	}
	if cfg.Compaction.MemoryMaxTokens != 500 {
		t.Errorf("memory max tokens = %d, want 500", cfg.Compaction.MemoryMaxTokens)
	}
	if cfg.Compaction.LLMTimeout != 2*time.Minute {
		t.Errorf("llm timeout = %v, want 2m", cfg.Compaction.LLMTimeout)
	}
}

func TestLoad_FullConfig(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `
listen: ":9000"
database:
  path: /var/lib/cupid/cupid.db
provider:
  kind: anthropic
  anthropic:
    model: some-model
compaction:
  summary_max_tokens: 300
  llm_timeout: 90s
maintenance:
  enabled: true
  collapse_markers_schedule: "15 3 * * *"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != ":9000" {
		t.Errorf("listen = %q", cfg.Listen)
	}
	if cfg.Provider.Kind != ProviderAnthropic {
		t.Errorf("provider kind = %q", cfg.Provider.Kind)
	}
	if cfg.Compaction.SummaryMaxTokens != 300 {
		t.Errorf("summary max tokens = %d", cfg.Compaction.SummaryMaxTokens)
	}
	if cfg.Compaction.LLMTimeout != 90*time.Second {
		t.Errorf("llm timeout = %v", cfg.Compaction.LLMTimeout)
	}
	if !cfg.Maintenance.Enabled {
		t.Error("maintenance should be enabled")
	}
	if cfg.Maintenance.CollapseMarkersSchedule != "15 3 * * *" {
		t.Errorf("collapse schedule = %q", cfg.Maintenance.CollapseMarkersSchedule)
	}
	if cfg.Maintenance.IdleCompactionSchedule != "0 5 * * *" {
		t.Errorf("idle schedule default = %q", cfg.Maintenance.IdleCompactionSchedule)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "listen: [not closed\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestValidate_UnknownProviderKind(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "provider:\n  kind: llama-at-home\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	err = Validate(cfg)
	if err == nil {
		t.Fatal("expected a validation error")
	}
	if !strings.Contains(err.Error(), "llama-at-home") {
		t.Errorf("error should name the bad kind: %v", err)
	}
}
